package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// AddressDTO dirección postal.
type AddressDTO struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country" validate:"required,len=2"`
}

// DimensionsDTO medidas del paquete en cm.
type DimensionsDTO struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
}

// ShipmentDTO envío a tarificar.
type ShipmentDTO struct {
	ShipmentID        string          `json:"shipment_id" validate:"required"`
	ServiceType       string          `json:"service_type" validate:"required,oneof=ECONOMY STANDARD EXPRESS OVERNIGHT SAME_DAY"`
	WeightKg          decimal.Decimal `json:"weight_kg"`
	Dimensions        DimensionsDTO   `json:"dimensions"`
	Origin            AddressDTO      `json:"origin" validate:"required"`
	Destination       AddressDTO      `json:"destination" validate:"required"`
	DeclaredValue     decimal.Decimal `json:"declared_value"`
	SignatureRequired bool            `json:"signature_required"`
}

// CreateShipmentInvoiceRequest body para POST /api/invoices/shipment.
type CreateShipmentInvoiceRequest struct {
	CustomerID     string      `json:"customer_id" validate:"required"`
	Shipment       ShipmentDTO `json:"shipment" validate:"required"`
	Currency       string      `json:"currency,omitempty" validate:"omitempty,len=3"`
	BillingAddress *AddressDTO `json:"billing_address,omitempty"` // por defecto la del cliente
}

// CreateBulkInvoiceRequest body para POST /api/invoices/bulk.
type CreateBulkInvoiceRequest struct {
	CustomerID     string        `json:"customer_id" validate:"required"`
	Shipments      []ShipmentDTO `json:"shipments" validate:"required,min=1,dive"`
	Currency       string        `json:"currency,omitempty" validate:"omitempty,len=3"`
	BillingAddress *AddressDTO   `json:"billing_address,omitempty"`
}

// CreateSubscriptionInvoiceRequest body para POST /api/invoices/subscription.
type CreateSubscriptionInvoiceRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
}

// UpdateInvoiceRequest campos editables en DRAFT. nil = sin cambio.
type UpdateInvoiceRequest struct {
	CustomerName   *string           `json:"customer_name,omitempty"`
	CustomerEmail  *string           `json:"customer_email,omitempty" validate:"omitempty,email"`
	BillingAddress *AddressDTO       `json:"billing_address,omitempty"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	Currency       *string           `json:"currency,omitempty" validate:"omitempty,len=3"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// SendInvoiceRequest destinatarios adicionales; vacío = email del cliente.
type SendInvoiceRequest struct {
	Recipients []string `json:"recipients,omitempty" validate:"omitempty,dive,email"`
}

// CancelInvoiceRequest body para POST /api/invoices/:number/cancel.
type CancelInvoiceRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ManualPaymentRequest body para POST /api/invoices/:number/payments/manual.
type ManualPaymentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	Notes    string          `json:"notes,omitempty" validate:"max=500"`
}

// ProcessPaymentRequest body para POST /api/invoices/:number/payments.
type ProcessPaymentRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	PaymentMethodID   string          `json:"payment_method_id" validate:"required"`
	PaymentMethodType string          `json:"payment_method_type,omitempty" validate:"omitempty,oneof=MANUAL AUTOMATIC"`
}

// RefundRequest body para POST /api/payments/:id/refunds.
type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" validate:"required,max=500"`
}

// ShippingChargeRequest body para POST /api/pricing/shipping-charge.
type ShippingChargeRequest struct {
	CustomerID string      `json:"customer_id" validate:"required"`
	Shipment   ShipmentDTO `json:"shipment" validate:"required"`
}

// CreateBillingCustomerRequest body para POST /api/customers.
type CreateBillingCustomerRequest struct {
	Name                   string     `json:"name" validate:"required"`
	Email                  string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone                  string     `json:"phone,omitempty"`
	BillingAddress         AddressDTO `json:"billing_address" validate:"required"`
	PricingTier            string     `json:"pricing_tier,omitempty" validate:"omitempty,oneof=STANDARD SILVER GOLD PLATINUM"`
	PaymentTerms           string     `json:"payment_terms,omitempty"`
	AutoPayEnabled         bool       `json:"auto_pay_enabled"`
	DefaultPaymentMethodID string     `json:"default_payment_method_id,omitempty"`
}

// CreateSubscriptionRequest body para POST /api/subscriptions.
type CreateSubscriptionRequest struct {
	CustomerID      string          `json:"customer_id" validate:"required"`
	PlanName        string          `json:"plan_name" validate:"required"`
	MonthlyFee      decimal.Decimal `json:"monthly_fee"`
	DiscountPct     decimal.Decimal `json:"discount_pct"`
	ServiceType     string          `json:"service_type,omitempty"`
	Currency        string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	NextBillingDate time.Time       `json:"next_billing_date" validate:"required"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// LineItemResponse línea de factura.
type LineItemResponse struct {
	ID          string          `json:"id"`
	Position    int             `json:"position"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	ShipmentID  string          `json:"shipment_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoiceResponse factura con detalle.
type InvoiceResponse struct {
	ID             string             `json:"id"`
	Number         string             `json:"number"`
	CustomerID     string             `json:"customer_id"`
	CustomerName   string             `json:"customer_name"`
	CustomerEmail  string             `json:"customer_email,omitempty"`
	BillingAddress AddressDTO         `json:"billing_address"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	Discount       decimal.Decimal    `json:"discount"`
	Tax            decimal.Decimal    `json:"tax"`
	Total          decimal.Decimal    `json:"total"`
	AmountPaid     decimal.Decimal    `json:"amount_paid"`
	BalanceDue     decimal.Decimal    `json:"balance_due"`
	Currency       string             `json:"currency"`
	Status         string             `json:"status"`
	DueDate        time.Time          `json:"due_date"`
	ShipmentID     string             `json:"shipment_id,omitempty"`
	SubscriptionID string             `json:"subscription_id,omitempty"`
	Metadata       map[string]string  `json:"metadata,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	SentAt         *time.Time         `json:"sent_at,omitempty"`
	LastSentAt     *time.Time         `json:"last_sent_at,omitempty"`
	PaidAt         *time.Time         `json:"paid_at,omitempty"`
	CancelledAt    *time.Time         `json:"cancelled_at,omitempty"`
	Items          []LineItemResponse `json:"items"`
}

// PaymentResponse pago o reembolso.
type PaymentResponse struct {
	ID                   string          `json:"id"`
	InvoiceID            string          `json:"invoice_id"`
	CustomerID           string          `json:"customer_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	MethodType           string          `json:"method_type"`
	Status               string          `json:"status"`
	PaymentMethodID      string          `json:"payment_method_id,omitempty"`
	GatewayTransactionID string          `json:"gateway_transaction_id,omitempty"`
	FailureReason        string          `json:"failure_reason,omitempty"`
	OriginalPaymentID    string          `json:"original_payment_id,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	ProcessedAt          *time.Time      `json:"processed_at,omitempty"`
	CreatedBy            string          `json:"created_by"`
	CreatedAt            time.Time       `json:"created_at"`
}

// PaymentResultResponse resultado de un cobro con el estado resultante de la factura.
type PaymentResultResponse struct {
	Payment       PaymentResponse `json:"payment"`
	InvoiceStatus string          `json:"invoice_status"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
}

// RefundResponse resultado de ProcessRefund.
type RefundResponse struct {
	Refund            PaymentResponse `json:"refund"`
	RefundID          string          `json:"refund_id"`
	OriginalPaymentID string          `json:"original_payment_id"`
	TotalRefunded     decimal.Decimal `json:"total_refunded"`
	FullyRefunded     bool            `json:"fully_refunded"`
	InvoiceStatus     string          `json:"invoice_status"`
}

// SendInvoiceResponse resultado de la entrega por destinatario.
type SendInvoiceResponse struct {
	Invoice   InvoiceResponse `json:"invoice"`
	Delivered []string        `json:"delivered"`
	Failed    []string        `json:"failed"`
}

// AuditEntryResponse entrada del historial.
type AuditEntryResponse struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Actor       string    `json:"actor"`
	CreatedAt   time.Time `json:"created_at"`
}

// BillingCustomerResponse cliente en respuestas.
type BillingCustomerResponse struct {
	ID                     string          `json:"id"`
	Name                   string          `json:"name"`
	Email                  string          `json:"email,omitempty"`
	Phone                  string          `json:"phone,omitempty"`
	BillingAddress         AddressDTO      `json:"billing_address"`
	PricingTier            string          `json:"pricing_tier"`
	PaymentTerms           string          `json:"payment_terms"`
	AutoPayEnabled         bool            `json:"auto_pay_enabled"`
	DefaultPaymentMethodID string          `json:"default_payment_method_id,omitempty"`
	Balance                decimal.Decimal `json:"balance"`
}

// SubscriptionResponse suscripción.
type SubscriptionResponse struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customer_id"`
	PlanName        string          `json:"plan_name"`
	MonthlyFee      decimal.Decimal `json:"monthly_fee"`
	DiscountPct     decimal.Decimal `json:"discount_pct"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	NextBillingDate time.Time       `json:"next_billing_date"`
}

// PricingTierResponse nivel de precio.
type PricingTierResponse struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
}

// ShippingChargeResponse desglose de tarificación.
type ShippingChargeResponse struct {
	ServiceType       string          `json:"service_type"`
	BaseRate          decimal.Decimal `json:"base_rate"`
	WeightCharge      decimal.Decimal `json:"weight_charge"`
	DimensionCharge   decimal.Decimal `json:"dimension_charge"`
	DistanceCharge    decimal.Decimal `json:"distance_charge"`
	TierDiscountPct   decimal.Decimal `json:"tier_discount_pct"`
	ShippingCharge    decimal.Decimal `json:"shipping_charge"`
	Fees              decimal.Decimal `json:"fees"`
	VolumeDiscountPct decimal.Decimal `json:"volume_discount_pct"`
	VolumeDiscount    decimal.Decimal `json:"volume_discount"`
	Total             decimal.Decimal `json:"total"` // antes de impuestos
}

// OverdueSweepResponse resultado del barrido de vencidas.
type OverdueSweepResponse struct {
	Marked  []string `json:"marked"`
	Skipped []string `json:"skipped,omitempty"`
}

package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Invoices      repository.InvoiceRepository
	Payments      repository.PaymentRepository
	Audit         repository.AuditRepository
	Customers     repository.CustomerRepository
	Subscriptions repository.SubscriptionRepository
}

// BillingTxRunner ejecuta fn dentro de una transacción; si fn devuelve error se hace rollback
// y ningún cambio queda persistido.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(repos Repos) error) error
}

// ── Pasarela de pagos ─────────────────────────────────────────────────────────

// Tipos de operación enviados a la pasarela.
const (
	GatewayKindCapture = "CAPTURE"
	GatewayKindRefund  = "REFUND"
)

// GatewayRequest cobro (importe positivo) o reembolso (importe negativo).
type GatewayRequest struct {
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID string
	CustomerID      string
	ReferenceID     string // número de factura o id del pago original
	Kind            string
}

// GatewayResult respuesta de la pasarela. Status no COMPLETED = fallo reportado.
type GatewayResult struct {
	PaymentID       string
	Status          entity.PaymentStatus
	TransactionID   string
	GatewayResponse string
	FailureReason   string
}

// PaymentGateway mueve el dinero. Cada llamada es un intento nuevo (no se asume idempotencia).
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, req GatewayRequest) (*GatewayResult, error)
}

// ── Impuestos ─────────────────────────────────────────────────────────────────

// TaxRequest datos para el cálculo.
type TaxRequest struct {
	BillingAddress entity.Address
	Amount         decimal.Decimal
	ServiceType    string
	Context        string // SHIPMENT, BULK, SUBSCRIPTION
}

// TaxResult resultado del cálculo.
type TaxResult struct {
	TotalTax     decimal.Decimal
	Rate         decimal.Decimal
	Jurisdiction string
	Breakdown    map[string]decimal.Decimal
	Exempt       bool
	Basis        decimal.Decimal
}

// TaxCalculator servicio externo de impuestos.
type TaxCalculator interface {
	CalculateTax(ctx context.Context, req TaxRequest) (*TaxResult, error)
}

// ── Tarificación ──────────────────────────────────────────────────────────────

// PricingTierLookup nivel de precio del cliente.
type PricingTierLookup interface {
	GetPricingTier(ctx context.Context, customer *entity.Customer) (*entity.PricingTier, error)
}

// ShipmentChargeLookup cargo por distancia y volumen mensual de envíos.
type ShipmentChargeLookup interface {
	DistanceCharge(ctx context.Context, origin, destination entity.Address) (decimal.Decimal, error)
	MonthlyShipmentCount(ctx context.Context, customerID string, asOf time.Time) (int, error)
}

// ── Notificaciones ────────────────────────────────────────────────────────────

// InvoiceDelivery envío de la factura a un destinatario.
type InvoiceDelivery struct {
	Invoice   *entity.Invoice
	Recipient string
	PDF       []byte // opcional
}

// Notifier entrega documentos y avisos. Sus errores nunca alteran la operación que lo invoca.
type Notifier interface {
	SendInvoice(ctx context.Context, d InvoiceDelivery) error
	SendPaymentConfirmation(ctx context.Context, inv *entity.Invoice, p *entity.Payment) error
	SendPaymentFailure(ctx context.Context, inv *entity.Invoice, p *entity.Payment) error
	SendRefundConfirmation(ctx context.Context, inv *entity.Invoice, refund *entity.Payment) error
}

// ── Documentos ────────────────────────────────────────────────────────────────

// InvoiceDocumentRenderer representación de la factura para descarga o adjunto.
type InvoiceDocumentRenderer interface {
	ContentType() string
	Render(ctx context.Context, inv *entity.Invoice, customer *entity.Customer) ([]byte, error)
}

// ── Trabajos diferidos ────────────────────────────────────────────────────────

// Scheduler ejecuta job una sola vez tras delay. No hay cancelación ni orden garantizado;
// el job recibe un contexto propio, independiente de la petición que lo programó.
type Scheduler interface {
	Schedule(name string, delay time.Duration, job func(ctx context.Context))
}

// Clock fuente de tiempo inyectable.
type Clock func() time.Time

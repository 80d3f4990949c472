package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Términos de pago soportados por CalculateDueDate.
const (
	PaymentTermsNet15     = "NET_15"
	PaymentTermsNet30     = "NET_30"
	PaymentTermsNet45     = "NET_45"
	PaymentTermsNet60     = "NET_60"
	PaymentTermsCOD       = "COD"
	PaymentTermsImmediate = "IMMEDIATE"
)

// Customer representa un cliente de la empresa de mensajería (facturación).
type Customer struct {
	ID                     string
	Name                   string
	Email                  string
	Phone                  string
	BillingAddress         Address
	PricingTier            string // STANDARD, SILVER, GOLD, PLATINUM
	PaymentTerms           string
	AutoPayEnabled         bool
	DefaultPaymentMethodID string
	Balance                decimal.Decimal // saldo pendiente: facturado - cobrado + reembolsado
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// HasDefaultPaymentMethod true si hay medio de pago para cobro automático.
func (c *Customer) HasDefaultPaymentMethod() bool {
	return c.DefaultPaymentMethodID != ""
}

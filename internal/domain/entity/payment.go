package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethodType origen del movimiento.
type PaymentMethodType string

const (
	PaymentMethodManual    PaymentMethodType = "MANUAL"
	PaymentMethodAutomatic PaymentMethodType = "AUTOMATIC"
	PaymentMethodRefund    PaymentMethodType = "REFUND"
)

// PaymentStatus resultado del intento.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment un intento de cobro o de reembolso contra una factura.
// Los reembolsos llevan importe negativo, MethodType REFUND y OriginalPaymentID.
// Nunca se modifica después de persistido: un reintento crea otro registro.
type Payment struct {
	ID                   string
	InvoiceID            string
	CustomerID           string
	Amount               decimal.Decimal
	Currency             string
	MethodType           PaymentMethodType
	Status               PaymentStatus
	PaymentMethodID      string
	GatewayTransactionID string
	GatewayResponse      string
	FailureReason        string
	OriginalPaymentID    string
	Notes                string
	ProcessedAt          *time.Time
	CreatedBy            string
	CreatedAt            time.Time
}

// IsRefund true si el movimiento es un reembolso.
func (p *Payment) IsRefund() bool {
	return p.MethodType == PaymentMethodRefund
}

// IsCompleted true si el intento fue exitoso.
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

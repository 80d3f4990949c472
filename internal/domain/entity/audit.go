package entity

import "time"

// Códigos de acción del historial de facturación.
const (
	AuditInvoiceCreated   = "INVOICE_CREATED"
	AuditInvoiceUpdated   = "INVOICE_UPDATED"
	AuditInvoiceSent      = "INVOICE_SENT"
	AuditStatusChange     = "STATUS_CHANGE"
	AuditManualPayment    = "MANUAL_PAYMENT"
	AuditAutomaticPayment = "AUTOMATIC_PAYMENT"
	AuditPaymentProcessed = "PAYMENT_PROCESSED"
	AuditPaymentFailed    = "PAYMENT_FAILED"
	AuditRefundProcessed  = "REFUND_PROCESSED"
	AuditRefundFailed     = "REFUND_FAILED"
)

// BillingAuditEntry registro inmutable de una acción sobre una factura.
type BillingAuditEntry struct {
	ID          string
	InvoiceID   string
	Action      string
	Description string
	Actor       string
	CreatedAt   time.Time
}

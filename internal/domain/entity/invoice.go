package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus estado del ciclo de vida de la factura.
type InvoiceStatus string

const (
	InvoiceStatusDraft             InvoiceStatus = "DRAFT"
	InvoiceStatusSent              InvoiceStatus = "SENT"
	InvoiceStatusPartiallyPaid     InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid              InvoiceStatus = "PAID"
	InvoiceStatusOverdue           InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled         InvoiceStatus = "CANCELLED"
	InvoiceStatusRefunded          InvoiceStatus = "REFUNDED"
	InvoiceStatusPartiallyRefunded InvoiceStatus = "PARTIALLY_REFUNDED"
)

// AllInvoiceStatuses en orden de declaración (tests y validación de filtros).
var AllInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusPartiallyPaid,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
	InvoiceStatusCancelled,
	InvoiceStatusRefunded,
	InvoiceStatusPartiallyRefunded,
}

// Valid true si s es uno de los estados conocidos.
func (s InvoiceStatus) Valid() bool {
	for _, st := range AllInvoiceStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Address dirección de facturación.
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string // ISO 3166-1 alpha-2
}

// Invoice cabecera de factura (raíz del agregado: posee sus líneas y su estado).
type Invoice struct {
	ID             string
	Number         string // PREFIX-yyyyMMdd-XXXXXX, único
	CustomerID     string
	CustomerName   string
	CustomerEmail  string
	BillingAddress Address
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	Currency       string
	Status         InvoiceStatus
	DueDate        time.Time
	ShipmentID     string // opcional
	SubscriptionID string // opcional
	Metadata       map[string]string
	Items          []*LineItem
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SentAt         *time.Time
	LastSentAt     *time.Time
	PaidAt         *time.Time
	CancelledAt    *time.Time
	Version        int // control de concurrencia optimista
}

// CheckTotals verifica total = subtotal - discount + tax.
func (i *Invoice) CheckTotals() bool {
	return i.Subtotal.Sub(i.Discount).Add(i.Tax).Equal(i.Total)
}

// IsPastDue true si la fecha de vencimiento ya pasó respecto a now.
func (i *Invoice) IsPastDue(now time.Time) bool {
	return now.After(i.DueDate)
}

// Clone copia profunda (el store en memoria nunca comparte punteros con el caller).
func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}
	c := *i
	if i.Metadata != nil {
		c.Metadata = make(map[string]string, len(i.Metadata))
		for k, v := range i.Metadata {
			c.Metadata[k] = v
		}
	}
	if i.Items != nil {
		c.Items = make([]*LineItem, len(i.Items))
		for n, it := range i.Items {
			cp := *it
			c.Items[n] = &cp
		}
	}
	c.SentAt = cloneTime(i.SentAt)
	c.LastSentAt = cloneTime(i.LastSentAt)
	c.PaidAt = cloneTime(i.PaidAt)
	c.CancelledAt = cloneTime(i.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

package entity

import "github.com/shopspring/decimal"

// Tipos de línea de factura.
const (
	LineKindShipping     = "SHIPPING"
	LineKindFee          = "FEE"
	LineKindSubscription = "SUBSCRIPTION"
	LineKindDiscount     = "DISCOUNT"
)

// LineItem representa una línea de detalle de una factura.
type LineItem struct {
	ID          string
	InvoiceID   string
	Position    int
	Kind        string
	Description string
	ShipmentID  string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal // Quantity * UnitPrice redondeado; negativo para descuentos
}

package entity

import "github.com/shopspring/decimal"

// Tipos de servicio de envío.
const (
	ServiceEconomy   = "ECONOMY"
	ServiceStandard  = "STANDARD"
	ServiceExpress   = "EXPRESS"
	ServiceOvernight = "OVERNIGHT"
	ServiceSameDay   = "SAME_DAY"
)

// Dimensions medidas del paquete en centímetros.
type Dimensions struct {
	Length decimal.Decimal
	Width  decimal.Decimal
	Height decimal.Decimal
}

// Shipment datos de un envío necesarios para tarificarlo.
type Shipment struct {
	ID                string
	ServiceType       string
	WeightKg          decimal.Decimal
	Dimensions        Dimensions
	Origin            Address
	Destination       Address
	DeclaredValue     decimal.Decimal
	SignatureRequired bool
}

// Niveles de precio de cliente.
const (
	TierStandard = "STANDARD"
	TierSilver   = "SILVER"
	TierGold     = "GOLD"
	TierPlatinum = "PLATINUM"
)

// PricingTier clasificación de cliente que modifica la tarifa base.
type PricingTier struct {
	Code        string
	Name        string
	DiscountPct decimal.Decimal
}

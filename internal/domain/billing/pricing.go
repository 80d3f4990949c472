package billing

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/money"
)

// Tarifa base por kg según tipo de servicio.
var baseRates = map[string]decimal.Decimal{
	entity.ServiceEconomy:   decimal.RequireFromString("3.50"),
	entity.ServiceStandard:  decimal.RequireFromString("5.00"),
	entity.ServiceExpress:   decimal.RequireFromString("8.50"),
	entity.ServiceOvernight: decimal.RequireFromString("10.00"),
	entity.ServiceSameDay:   decimal.RequireFromString("12.00"),
}

// Descuento por nivel de precio (porcentaje).
var tierDiscounts = map[string]decimal.Decimal{
	entity.TierStandard: decimal.Zero,
	entity.TierSilver:   decimal.NewFromInt(5),
	entity.TierGold:     decimal.NewFromInt(10),
	entity.TierPlatinum: decimal.NewFromInt(15),
}

var (
	minBillableWeight    = decimal.RequireFromString("0.5")
	volumetricDivisor    = decimal.NewFromInt(5000)
	volumetricRate       = decimal.RequireFromString("0.50")
	insurancePct         = decimal.NewFromInt(1)
	rushFeeSameDay       = decimal.RequireFromString("15.00")
	priorityFeeOvernight = decimal.RequireFromString("10.00")
	signatureFee         = decimal.RequireFromString("3.50")
)

// BaseRate tarifa por kg. Servicio desconocido => ErrInvalidInput.
func BaseRate(serviceType string) (decimal.Decimal, error) {
	rate, ok := baseRates[serviceType]
	if !ok {
		return decimal.Zero, domain.NewError("tipo de servicio desconocido: %q", serviceType).
			WithHintf("tipo de servicio no soportado: %s", serviceType).
			Mark(domain.ErrInvalidInput)
	}
	return rate, nil
}

// IsKnownServiceType true si el servicio tiene tarifa.
func IsKnownServiceType(serviceType string) bool {
	_, ok := baseRates[serviceType]
	return ok
}

// TierDiscountPct descuento de la tabla por defecto; nivel desconocido => 0.
func TierDiscountPct(tier string) decimal.Decimal {
	if pct, ok := tierDiscounts[tier]; ok {
		return pct
	}
	return decimal.Zero
}

// DefaultTiers niveles de precio conocidos.
func DefaultTiers() []entity.PricingTier {
	return []entity.PricingTier{
		{Code: entity.TierStandard, Name: "Standard", DiscountPct: tierDiscounts[entity.TierStandard]},
		{Code: entity.TierSilver, Name: "Silver", DiscountPct: tierDiscounts[entity.TierSilver]},
		{Code: entity.TierGold, Name: "Gold", DiscountPct: tierDiscounts[entity.TierGold]},
		{Code: entity.TierPlatinum, Name: "Platinum", DiscountPct: tierDiscounts[entity.TierPlatinum]},
	}
}

// WeightCharge max(peso, 0.5 kg) * tarifa.
func WeightCharge(weightKg, baseRate decimal.Decimal) decimal.Decimal {
	w := weightKg
	if w.LessThan(minBillableWeight) {
		w = minBillableWeight
	}
	return money.Round(w.Mul(baseRate))
}

// DimensionCharge (L*W*H / 5000) * 0.50.
func DimensionCharge(d entity.Dimensions) decimal.Decimal {
	vol := d.Length.Mul(d.Width).Mul(d.Height)
	if !vol.IsPositive() {
		return decimal.Zero
	}
	return money.Round(vol.Div(volumetricDivisor).Mul(volumetricRate))
}

// VolumeDiscountPct escalón sobre el conteo de envíos del último mes:
// >=100 15%, >=50 10%, >=20 5%, resto 0%.
func VolumeDiscountPct(monthlyShipments int) decimal.Decimal {
	switch {
	case monthlyShipments >= 100:
		return decimal.NewFromInt(15)
	case monthlyShipments >= 50:
		return decimal.NewFromInt(10)
	case monthlyShipments >= 20:
		return decimal.NewFromInt(5)
	default:
		return decimal.Zero
	}
}

// ChargeBreakdown desglose del cargo de un envío antes del descuento por volumen.
type ChargeBreakdown struct {
	ServiceType     string
	BaseRate        decimal.Decimal
	WeightCharge    decimal.Decimal
	DimensionCharge decimal.Decimal
	DistanceCharge  decimal.Decimal
	TierDiscountPct decimal.Decimal
	ShippingCharge  decimal.Decimal // (peso + volumen + distancia) * (1 - tier%)
	InsuranceFee    decimal.Decimal
	RushFee         decimal.Decimal
	PriorityFee     decimal.Decimal
	SignatureFee    decimal.Decimal
	Fees            decimal.Decimal
	Subtotal        decimal.Decimal // ShippingCharge + Fees
}

// ComputeShipmentCharge tarifica un envío. distanceCharge viene de ShipmentChargeLookup y
// tierDiscountPct de PricingTierLookup.
func ComputeShipmentCharge(s entity.Shipment, distanceCharge, tierDiscountPct decimal.Decimal) (ChargeBreakdown, error) {
	rate, err := BaseRate(s.ServiceType)
	if err != nil {
		return ChargeBreakdown{}, err
	}
	if s.WeightKg.IsNegative() || s.DeclaredValue.IsNegative() {
		return ChargeBreakdown{}, domain.NewError("peso o valor declarado negativo").
			WithHint("el peso y el valor declarado no pueden ser negativos").
			Mark(domain.ErrInvalidInput)
	}

	b := ChargeBreakdown{
		ServiceType:     s.ServiceType,
		BaseRate:        rate,
		WeightCharge:    WeightCharge(s.WeightKg, rate),
		DimensionCharge: DimensionCharge(s.Dimensions),
		DistanceCharge:  money.Round(distanceCharge),
		TierDiscountPct: tierDiscountPct,
	}
	base := b.WeightCharge.Add(b.DimensionCharge).Add(b.DistanceCharge)
	b.ShippingCharge = money.ApplyDiscount(base, tierDiscountPct)

	if money.IsPositive(s.DeclaredValue) {
		b.InsuranceFee = money.Percent(s.DeclaredValue, insurancePct)
	}
	switch s.ServiceType {
	case entity.ServiceSameDay:
		b.RushFee = rushFeeSameDay
	case entity.ServiceOvernight:
		b.PriorityFee = priorityFeeOvernight
	}
	if s.SignatureRequired {
		b.SignatureFee = signatureFee
	}
	b.Fees = money.Sum(b.InsuranceFee, b.RushFee, b.PriorityFee, b.SignatureFee)
	b.Subtotal = money.Sum(b.ShippingCharge, b.Fees)
	return b, nil
}

package billing

import (
	"context"

	"github.com/jhoicas/courier-billing/internal/application/dto"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/money"
)

// GetPricingTier nivel de precio vigente del cliente.
func (s *Service) GetPricingTier(ctx context.Context, customerID string) (*dto.PricingTierResponse, error) {
	customer, err := s.loadCustomer(ctx, s.reads, customerID)
	if err != nil {
		return nil, err
	}
	tier, err := s.tiers.GetPricingTier(ctx, customer)
	if err != nil {
		return nil, collaboratorErr(err, "consulta de nivel de precio")
	}
	return &dto.PricingTierResponse{Code: tier.Code, Name: tier.Name, DiscountPct: tier.DiscountPct}, nil
}

// CalculateShippingCharge cotiza un envío con las mismas reglas que la facturación, sin persistir.
// El total no incluye impuestos.
func (s *Service) CalculateShippingCharge(ctx context.Context, in dto.ShippingChargeRequest) (*dto.ShippingChargeResponse, error) {
	customer, err := s.loadCustomer(ctx, s.reads, in.CustomerID)
	if err != nil {
		return nil, err
	}
	q, err := s.quote(ctx, customer, []entity.Shipment{shipmentFromDTO(in.Shipment)}, 0)
	if err != nil {
		return nil, err
	}
	b := q.Breakdowns[0]
	return &dto.ShippingChargeResponse{
		ServiceType:       b.ServiceType,
		BaseRate:          b.BaseRate,
		WeightCharge:      b.WeightCharge,
		DimensionCharge:   b.DimensionCharge,
		DistanceCharge:    b.DistanceCharge,
		TierDiscountPct:   b.TierDiscountPct,
		ShippingCharge:    b.ShippingCharge,
		Fees:              b.Fees,
		VolumeDiscountPct: q.DiscountPct,
		VolumeDiscount:    q.Discount,
		Total:             money.Round(q.Subtotal.Sub(q.Discount)),
	}, nil
}

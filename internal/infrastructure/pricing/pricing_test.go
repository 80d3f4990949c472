package pricing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/infrastructure/memory"
	"github.com/jhoicas/courier-billing/internal/infrastructure/pricing"
	"github.com/jhoicas/courier-billing/pkg/logger"
)

// ── Niveles ───────────────────────────────────────────────────────────────────

func TestTierLookup_DefaultTable(t *testing.T) {
	l := pricing.NewTierLookup(nil, time.Minute, logger.Nop())
	ctx := context.Background()

	tier, err := l.GetPricingTier(ctx, &entity.Customer{ID: "c1", PricingTier: "gold"})
	require.NoError(t, err)
	assert.Equal(t, entity.TierGold, tier.Code)
	assert.True(t, decimal.NewFromInt(10).Equal(tier.DiscountPct))

	tier, err = l.GetPricingTier(ctx, &entity.Customer{ID: "c2"})
	require.NoError(t, err)
	assert.Equal(t, entity.TierStandard, tier.Code)
}

func TestTierLookup_CachesSourceResults(t *testing.T) {
	calls := 0
	src := func(ctx context.Context, code string) (*entity.PricingTier, error) {
		calls++
		return &entity.PricingTier{Code: code, Name: code, DiscountPct: decimal.NewFromInt(7)}, nil
	}
	l := pricing.NewTierLookup(src, time.Minute, logger.Nop())
	ctx := context.Background()
	c := &entity.Customer{ID: "c1", PricingTier: entity.TierSilver}

	for i := 0; i < 3; i++ {
		tier, err := l.GetPricingTier(ctx, c)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(7).Equal(tier.DiscountPct))
	}
	assert.Equal(t, 1, calls)

	l.Invalidate(entity.TierSilver)
	_, err := l.GetPricingTier(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTierLookup_UnknownFallsBackToStandard(t *testing.T) {
	l := pricing.NewTierLookup(nil, time.Minute, logger.Nop())
	tier, err := l.GetPricingTier(context.Background(), &entity.Customer{ID: "c1", PricingTier: "DIAMOND"})
	require.NoError(t, err)
	assert.Equal(t, entity.TierStandard, tier.Code)
	assert.True(t, tier.DiscountPct.IsZero())
}

// ── Zonas ─────────────────────────────────────────────────────────────────────

func TestZoneChargeLookup_DistanceCharge(t *testing.T) {
	z := pricing.NewZoneChargeLookup(memory.NewStore().Repos().Invoices)
	ctx := context.Background()
	bogota := entity.Address{City: "Bogotá", State: "DC", Country: "CO"}

	tests := []struct {
		name string
		dest entity.Address
		want string
	}{
		{"misma ciudad", entity.Address{City: "bogotá", State: "dc", Country: "co"}, "2.00"},
		{"mismo estado", entity.Address{City: "Soacha", State: "DC", Country: "CO"}, "5.00"},
		{"mismo país", entity.Address{City: "Medellín", State: "ANT", Country: "CO"}, "10.00"},
		{"internacional", entity.Address{City: "Miami", State: "FL", Country: "US"}, "35.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := z.DistanceCharge(ctx, bogota, tt.dest)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestZoneChargeLookup_MonthlyShipmentCountEmpty(t *testing.T) {
	z := pricing.NewZoneChargeLookup(memory.NewStore().Repos().Invoices)
	n, err := z.MonthlyShipmentCount(context.Background(), "c1", time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

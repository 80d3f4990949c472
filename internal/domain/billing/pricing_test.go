package billing_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/internal/domain/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestVolumeDiscountPct_Escalones(t *testing.T) {
	cases := []struct {
		count int
		want  int64
	}{
		{0, 0}, {19, 0}, {20, 5}, {49, 5}, {50, 10}, {99, 10}, {100, 15}, {500, 15},
	}
	for _, c := range cases {
		got := billing.VolumeDiscountPct(c.count)
		assert.True(t, decimal.NewFromInt(c.want).Equal(got), "count=%d got=%s", c.count, got)
	}
}

func TestCalculateDueDate(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		terms string
		want  time.Time
	}{
		{entity.PaymentTermsNet30, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
		{entity.PaymentTermsNet15, time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)},
		{entity.PaymentTermsNet45, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)},
		{entity.PaymentTermsNet60, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)},
		{entity.PaymentTermsCOD, base},
		{entity.PaymentTermsImmediate, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"NET_999", time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
		{"", time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		t.Run(c.terms, func(t *testing.T) {
			assert.True(t, c.want.Equal(billing.CalculateDueDate(base, c.terms)))
		})
	}
}

func TestComputeShipmentCharge_Desglose(t *testing.T) {
	s := entity.Shipment{
		ServiceType:       entity.ServiceStandard,
		WeightKg:          dec("2"),
		Dimensions:        entity.Dimensions{Length: dec("30"), Width: dec("20"), Height: dec("10")},
		DeclaredValue:     dec("200"),
		SignatureRequired: true,
	}
	b, err := billing.ComputeShipmentCharge(s, dec("5.00"), dec("10"))
	require.NoError(t, err)

	assert.Equal(t, "10.00", b.WeightCharge.StringFixed(2))
	assert.Equal(t, "0.60", b.DimensionCharge.StringFixed(2))
	assert.Equal(t, "14.04", b.ShippingCharge.StringFixed(2)) // 15.60 * 0.9
	assert.Equal(t, "2.00", b.InsuranceFee.StringFixed(2))
	assert.Equal(t, "3.50", b.SignatureFee.StringFixed(2))
	assert.True(t, b.RushFee.IsZero())
	assert.Equal(t, "5.50", b.Fees.StringFixed(2))
	assert.Equal(t, "19.54", b.Subtotal.StringFixed(2))
}

func TestComputeShipmentCharge_RecargosPorServicio(t *testing.T) {
	sameDay, err := billing.ComputeShipmentCharge(entity.Shipment{ServiceType: entity.ServiceSameDay, WeightKg: dec("1")}, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "15.00", sameDay.RushFee.StringFixed(2))
	assert.Equal(t, "27.00", sameDay.Subtotal.StringFixed(2))

	overnight, err := billing.ComputeShipmentCharge(entity.Shipment{ServiceType: entity.ServiceOvernight, WeightKg: dec("1")}, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "10.00", overnight.PriorityFee.StringFixed(2))
}

func TestWeightCharge_PesoMinimo(t *testing.T) {
	assert.Equal(t, "1.75", billing.WeightCharge(dec("0.2"), dec("3.50")).StringFixed(2))
}

func TestComputeShipmentCharge_ServicioDesconocido(t *testing.T) {
	_, err := billing.ComputeShipmentCharge(entity.Shipment{ServiceType: "DRONE", WeightKg: dec("1")}, decimal.Zero, decimal.Zero)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Contains(t, domain.Hint(err), "DRONE")
}

func TestTierDiscountPct(t *testing.T) {
	assert.True(t, dec("15").Equal(billing.TierDiscountPct(entity.TierPlatinum)))
	assert.True(t, billing.TierDiscountPct("DIAMOND").IsZero())
	assert.Len(t, billing.DefaultTiers(), 4)
}

package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/repository"
)

var _ billing.ShipmentChargeLookup = (*ZoneChargeLookup)(nil)

// Cargos por zona.
var (
	ChargeSameCity      = decimal.RequireFromString("2.00")
	ChargeSameState     = decimal.RequireFromString("5.00")
	ChargeSameCountry   = decimal.RequireFromString("10.00")
	ChargeInternational = decimal.RequireFromString("35.00")
)

// VolumeWindow ventana del conteo mensual de envíos.
const VolumeWindow = 30 * 24 * time.Hour

// ZoneChargeLookup tarifa por distancia según la zona origen/destino y conteo de envíos
// facturados en los últimos 30 días.
type ZoneChargeLookup struct {
	invoices repository.InvoiceRepository
}

// NewZoneChargeLookup construye el adaptador sobre el repositorio de facturas.
func NewZoneChargeLookup(invoices repository.InvoiceRepository) *ZoneChargeLookup {
	return &ZoneChargeLookup{invoices: invoices}
}

// DistanceCharge misma ciudad, mismo estado, mismo país o internacional.
func (z *ZoneChargeLookup) DistanceCharge(_ context.Context, origin, destination entity.Address) (decimal.Decimal, error) {
	if !same(origin.Country, destination.Country) {
		return ChargeInternational, nil
	}
	if !same(origin.State, destination.State) {
		return ChargeSameCountry, nil
	}
	if !same(origin.City, destination.City) {
		return ChargeSameState, nil
	}
	return ChargeSameCity, nil
}

// MonthlyShipmentCount envíos en (asOf-30d, asOf].
func (z *ZoneChargeLookup) MonthlyShipmentCount(ctx context.Context, customerID string, asOf time.Time) (int, error) {
	return z.invoices.CountShipmentsSince(ctx, customerID, asOf.Add(-VolumeWindow))
}

func same(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

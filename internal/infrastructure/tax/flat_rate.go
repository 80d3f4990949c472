package tax

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/domain/money"
)

var _ billing.TaxCalculator = (*FlatRateCalculator)(nil)

var hundred = decimal.NewFromInt(100)

// FlatRateCalculator tarifa plana local por país y, opcionalmente, por estado.
// Las tarifas son porcentajes (8.25 = 8,25 %). Los países marcados exentos devuelven Exempt.
type FlatRateCalculator struct {
	defaultRate decimal.Decimal
	countries   map[string]decimal.Decimal
	states      map[string]decimal.Decimal // clave "PAIS/ESTADO"
	exempt      map[string]bool
}

// NewFlatRateCalculator calculadora con la tarifa por defecto.
func NewFlatRateCalculator(defaultRate decimal.Decimal) *FlatRateCalculator {
	return &FlatRateCalculator{
		defaultRate: defaultRate,
		countries:   map[string]decimal.Decimal{},
		states:      map[string]decimal.Decimal{},
		exempt:      map[string]bool{},
	}
}

// WithCountryRate tarifa para todo un país.
func (c *FlatRateCalculator) WithCountryRate(country string, rate decimal.Decimal) *FlatRateCalculator {
	c.countries[strings.ToUpper(country)] = rate
	return c
}

// WithStateRate tarifa para un estado o provincia; tiene prioridad sobre la del país.
func (c *FlatRateCalculator) WithStateRate(country, state string, rate decimal.Decimal) *FlatRateCalculator {
	c.states[stateKey(country, state)] = rate
	return c
}

// WithExemptCountry marca un país como exento.
func (c *FlatRateCalculator) WithExemptCountry(country string) *FlatRateCalculator {
	c.exempt[strings.ToUpper(country)] = true
	return c
}

// CalculateTax impuesto = base * tarifa / 100, redondeado a 2 decimales.
func (c *FlatRateCalculator) CalculateTax(ctx context.Context, req billing.TaxRequest) (*billing.TaxResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Amount.IsNegative() {
		return nil, errors.Newf("tax: base imponible negativa %s", req.Amount)
	}
	country := strings.ToUpper(strings.TrimSpace(req.BillingAddress.Country))
	state := strings.ToUpper(strings.TrimSpace(req.BillingAddress.State))
	if c.exempt[country] {
		return &billing.TaxResult{
			TotalTax:     decimal.Zero,
			Rate:         decimal.Zero,
			Jurisdiction: country,
			Exempt:       true,
			Basis:        req.Amount,
		}, nil
	}

	rate, jurisdiction := c.defaultRate, "DEFAULT"
	if r, ok := c.countries[country]; ok {
		rate, jurisdiction = r, country
	}
	if r, ok := c.states[stateKey(country, state)]; ok {
		rate, jurisdiction = r, country+"/"+state
	}
	total := money.Round(req.Amount.Mul(rate).Div(hundred))
	return &billing.TaxResult{
		TotalTax:     total,
		Rate:         rate,
		Jurisdiction: jurisdiction,
		Breakdown:    map[string]decimal.Decimal{jurisdiction: total},
		Basis:        req.Amount,
	}, nil
}

func stateKey(country, state string) string {
	return strings.ToUpper(country) + "/" + strings.ToUpper(state)
}

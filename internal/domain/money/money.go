// Package money concentra la aritmética monetaria: decimales de punto fijo,
// escala 2 y redondeo half-up en el punto de cálculo.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Scale número de decimales de todos los importes.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Round redondea a 2 decimales (half-up, alejándose de cero en .5).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Percent devuelve round2(base * pct / 100).
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(pct).Div(hundred))
}

// DiscountMultiplier devuelve 1 - pct/100.
func DiscountMultiplier(pct decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(pct.Div(hundred))
}

// ApplyDiscount aplica un descuento porcentual y redondea.
func ApplyDiscount(base, pct decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(DiscountMultiplier(pct)))
}

// Negate representa un reembolso como importe negativo.
func Negate(d decimal.Decimal) decimal.Decimal {
	return d.Neg()
}

// Abs valor absoluto.
func Abs(d decimal.Decimal) decimal.Decimal {
	return d.Abs()
}

// Sum suma y redondea.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return Round(total)
}

// IsPositive true si d > 0.
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}

// Parse interpreta un importe textual ("100", "40.5") y lo redondea a escala 2.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	return Round(d), nil
}

// MustParse igual que Parse pero entra en pánico (constantes y tests).
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format representa el importe con 2 decimales fijos.
func Format(d decimal.Decimal) string {
	return Round(d).StringFixed(Scale)
}

package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/courier-billing/internal/domain/money"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRound_HalfUp(t *testing.T) {
	cases := []struct{ in, want string }{
		{"10.005", "10.01"},
		{"10.004", "10"},
		{"2.675", "2.68"},
		{"-1.005", "-1.01"},
		{"7", "7"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			assert.True(t, d(c.want).Equal(money.Round(d(c.in))), "Round(%s)", c.in)
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "1.00", money.Format(money.Percent(d("100"), d("1"))))
	assert.Equal(t, "8.25", money.Format(money.Percent(d("100"), d("8.25"))))
	// 33.33 * 15% = 4.9995 -> 5.00
	assert.Equal(t, "5.00", money.Format(money.Percent(d("33.33"), d("15"))))
}

func TestDiscountMultiplier(t *testing.T) {
	assert.True(t, d("0.9").Equal(money.DiscountMultiplier(d("10"))))
	assert.True(t, d("1").Equal(money.DiscountMultiplier(decimal.Zero)))
	assert.Equal(t, "85.00", money.Format(money.ApplyDiscount(d("100"), d("15"))))
}

func TestNegateAbsSum(t *testing.T) {
	r := money.Negate(d("30"))
	assert.True(t, d("-30").Equal(r))
	assert.True(t, d("30").Equal(money.Abs(r)))
	assert.True(t, d("60.01").Equal(money.Sum(d("30"), d("30.005"))))
	assert.True(t, money.IsPositive(d("0.01")))
	assert.False(t, money.IsPositive(decimal.Zero))
}

func TestParse(t *testing.T) {
	v, err := money.Parse(" 40.505 ")
	require.NoError(t, err)
	assert.Equal(t, "40.51", money.Format(v))

	_, err = money.Parse("abc")
	assert.Error(t, err)
}

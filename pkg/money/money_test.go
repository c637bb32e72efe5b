package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGSTDecomposition(t *testing.T) {
	cases := map[string]string{
		"11":    "1",
		"30":    "2.73",
		"23":    "2.09",
		"0":     "0",
		"40":    "3.64",
		"15.50": "1.41",
	}
	for total, want := range cases {
		t.Run(total, func(t *testing.T) {
			got := GST(dec(total))
			assert.True(t, dec(want).Equal(got), "GST(%s) = %s, want %s", total, got, want)
		})
	}
}

func TestLineTotalAndSumAreExact(t *testing.T) {
	// 0.1 * 3 accumulated ten times would drift with float64.
	var lines []decimal.Decimal
	for i := 0; i < 10; i++ {
		lines = append(lines, LineTotal(dec("0.1"), 3))
	}
	assert.True(t, dec("3").Equal(Sum(lines...)))
	assert.True(t, dec("30").Equal(LineTotal(dec("15"), 2)))
}

func TestRoundAndFloat(t *testing.T) {
	assert.True(t, dec("2.73").Equal(Round(dec("2.7272727"))))
	assert.True(t, dec("5.5").Equal(Round(dec("5.495"))))
	assert.Equal(t, 2.73, Float(dec("2.72727")))
	assert.True(t, dec("4.99").Equal(FromFloat(4.99)))
}

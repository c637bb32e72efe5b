// Package money holds the currency arithmetic used for pricing. Amounts are
// exact decimals; rounding happens once, at the edges.
package money

import "github.com/shopspring/decimal"

// Places is the currency precision used for presentation and persistence.
const Places = 2

// GSTRate is the tax rate already included in menu prices.
var GSTRate = decimal.RequireFromString("0.10")

var one = decimal.NewFromInt(1)

// Round rounds half away from zero to currency precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// LineTotal multiplies a unit price by a quantity without intermediate rounding.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Sum adds amounts in order.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// InclusiveTax backs the tax component out of a tax-inclusive total:
// total - total/(1+rate), rounded to currency precision.
func InclusiveTax(total, rate decimal.Decimal) decimal.Decimal {
	return Round(total.Sub(total.Div(one.Add(rate))))
}

// GST is InclusiveTax at GSTRate.
func GST(total decimal.Decimal) decimal.Decimal {
	return InclusiveTax(total, GSTRate)
}

// Float converts a rounded amount for JSON presentation.
func Float(d decimal.Decimal) float64 {
	return Round(d).InexactFloat64()
}

// FromFloat converts a client or seed supplied amount to a decimal at
// currency precision.
func FromFloat(f float64) decimal.Decimal {
	return Round(decimal.NewFromFloat(f))
}

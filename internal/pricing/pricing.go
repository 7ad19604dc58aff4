// Package pricing is the single place discounted prices are computed. Catalog display,
// cart totals and order snapshots all go through it.
package pricing

import "github.com/shopspring/decimal"

var hundredth = decimal.NewFromFloat(0.01)

// EffectivePrice returns price - discount*0.01*price rounded to cents.
// discount is a percentage; values outside [0,100] are clamped.
func EffectivePrice(price, discount float64) float64 {
	return effective(price, discount).InexactFloat64()
}

// LineTotal is the rounded effective price times quantity, so a line always equals
// what its displayed unit price implies.
func LineTotal(price, discount float64, quantity int) float64 {
	return lineTotal(price, discount, quantity).InexactFloat64()
}

// Line is the pricing input for one line item.
type Line struct {
	Price    float64
	Discount float64
	Quantity int
}

// Total sums the line totals. Each line is already in whole cents.
func Total(lines []Line) float64 {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(lineTotal(l.Price, l.Discount, l.Quantity))
	}
	return sum.InexactFloat64()
}

func effective(price, discount float64) decimal.Decimal {
	switch {
	case discount < 0:
		discount = 0
	case discount > 100:
		discount = 100
	}
	p := decimal.NewFromFloat(price)
	return p.Sub(decimal.NewFromFloat(discount).Mul(hundredth).Mul(p)).Round(2)
}

func lineTotal(price, discount float64, quantity int) decimal.Decimal {
	return effective(price, discount).Mul(decimal.NewFromInt(int64(quantity)))
}

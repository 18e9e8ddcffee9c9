// Package pricing holds the one totals formula used by carts, order
// creation and settlement.
package pricing

import "github.com/shopspring/decimal"

// TaxRate is applied to the discounted subtotal.
var TaxRate = decimal.RequireFromString("0.10")

var hundred = decimal.NewFromInt(100)

// Line is anything that contributes price × quantity.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the breakdown shown on receipts.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
}

// ClampPercent limits a discount percentage to [0, 100].
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// ComputeTotals applies discountPercent and tax to the lines. Discount and
// tax are rounded to cents before summing, so
// Total == Subtotal - DiscountAmount + Tax holds exactly.
func ComputeTotals(lines []Line, discountPercent decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)

	discount := subtotal.Mul(ClampPercent(discountPercent)).Div(hundred).Round(2)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(TaxRate).Round(2)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Tax:            tax,
		Total:          taxable.Add(tax),
	}
}

// Tolerance is the largest difference accepted between client-submitted and
// computed amounts.
var Tolerance = decimal.RequireFromString("0.01")

// Matches reports whether claimed agrees with t within Tolerance on every
// amount.
func (t Totals) Matches(claimed Totals) bool {
	pairs := [][2]decimal.Decimal{
		{t.Subtotal, claimed.Subtotal},
		{t.DiscountAmount, claimed.DiscountAmount},
		{t.Tax, claimed.Tax},
		{t.Total, claimed.Total},
	}
	for _, p := range pairs {
		if p[0].Sub(p[1]).Abs().GreaterThan(Tolerance) {
			return false
		}
	}
	return true
}

// MinorUnits converts an amount to integer minor units (paise, cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

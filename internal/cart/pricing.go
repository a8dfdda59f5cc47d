package cart

import "github.com/shopspring/decimal"

var (
	freeShippingThreshold = decimal.RequireFromString("50.00")
	flatShippingFee       = decimal.RequireFromString("9.99")
	centsPerDollar        = decimal.NewFromInt(100)
)

// ComputeTotals applies the storefront pricing rule: shipping is the flat
// fee below the free-shipping threshold and zero at or above it, and the
// total is rounded half-up to two decimal places once, at the end, rather
// than accumulating per-line rounding error.
func ComputeTotals(items []Item) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromInt(item.UnitPriceCents).
			Mul(decimal.NewFromInt(int64(item.Quantity))).
			Div(centsPerDollar)
		subtotal = subtotal.Add(line)
	}

	shipping := flatShippingFee
	if subtotal.GreaterThanOrEqual(freeShippingThreshold) {
		shipping = decimal.Zero
	}
	if subtotal.IsZero() {
		shipping = decimal.Zero
	}

	total := subtotal.Add(shipping).Round(2)

	return Totals{
		SubtotalCents: subtotal.Round(2).Mul(centsPerDollar).IntPart(),
		ShippingCents: shipping.Mul(centsPerDollar).IntPart(),
		TotalCents:    total.Mul(centsPerDollar).IntPart(),
	}
}

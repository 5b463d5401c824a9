package cart

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LinePrice computes the discounted price for quantity units at unitPrice.
//
// Flat discounts subtract an absolute amount and never produce a negative
// price. Percentage values are expected in [0,100] but are deliberately not
// clamped here; range validation belongs to the caller.
//
// The result is rounded to 2 decimal places (half-up). Rounding happens at
// every aggregation step — line price, subtotal, tax, total, final total —
// rather than once at the end, so totals stay stable regardless of how they
// are recomputed.
func LinePrice(unitPrice decimal.Decimal, quantity int, dt DiscountType, value decimal.Decimal) decimal.Decimal {
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))

	switch dt {
	case DiscountFlat:
		base = floorAtZero(base.Sub(value))
	case DiscountPercentage:
		base = base.Mul(hundred.Sub(value)).Div(hundred)
	}

	return base.Round(2)
}

// applyDiscount applies an invoice-style discount to an already-rounded
// amount and rounds the result. Flat discounts are floored at zero.
func applyDiscount(amount decimal.Decimal, dt DiscountType, value decimal.Decimal) decimal.Decimal {
	switch dt {
	case DiscountFlat:
		amount = floorAtZero(amount.Sub(value))
	case DiscountPercentage:
		amount = amount.Mul(hundred.Sub(value)).Div(hundred)
	}
	return amount.Round(2)
}

// floorAtZero clamps negative amounts to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

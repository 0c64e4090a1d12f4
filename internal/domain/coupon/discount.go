package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply calculates the discount amount for the given rule. Percentage
// discounts apply to the subtotal only; fixed discounts are capped at
// subtotal + shipping so the order total can never go negative. The result
// is always non-negative and rounded to 2 decimal places.
func Apply(rule *Rule, subtotal, shipping decimal.Decimal) (decimal.Decimal, error) {
	switch rule.DiscountType {
	case DiscountPercentage:
		amount := subtotal.Mul(rule.Value).Div(hundred)
		return floorAtZero(amount).Round(2), nil
	case DiscountFixed:
		amount := decimal.Min(rule.Value, subtotal.Add(shipping))
		return floorAtZero(amount).Round(2), nil
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

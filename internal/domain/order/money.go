package order

import "github.com/shopspring/decimal"

// MinorUnits converts a major-unit amount to integer minor currency units
// (x100 for a two-decimal currency). This is the single conversion boundary
// between the decimal order model and the provider's integer amounts.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

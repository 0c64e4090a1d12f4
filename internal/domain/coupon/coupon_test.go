package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "SAVE10", Canonical("  save10 "))
	assert.Equal(t, "WELCOME500", Canonical("Welcome500"))
	assert.Equal(t, "", Canonical("   "))
}

func TestEligible(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(24 * time.Hour)

	base := Rule{
		Code:           "SAVE10",
		DiscountType:   DiscountPercentage,
		Value:          d("10"),
		MinOrderAmount: d("5000"),
		Active:         true,
		MaxUses:        100,
		Uses:           5,
	}

	tests := []struct {
		name     string
		mutate   func(*Rule)
		subtotal decimal.Decimal
		wantErr  error
	}{
		{
			name:     "all constraints satisfied",
			mutate:   func(*Rule) {},
			subtotal: d("10000"),
			wantErr:  nil,
		},
		{
			name:     "subtotal exactly at minimum",
			mutate:   func(*Rule) {},
			subtotal: d("5000"),
			wantErr:  nil,
		},
		{
			name:     "inactive",
			mutate:   func(r *Rule) { r.Active = false },
			subtotal: d("10000"),
			wantErr:  ErrInactive,
		},
		{
			name:     "expired",
			mutate:   func(r *Rule) { r.ExpiresAt = &past },
			subtotal: d("10000"),
			wantErr:  ErrExpired,
		},
		{
			name:     "not yet expired",
			mutate:   func(r *Rule) { r.ExpiresAt = &future },
			subtotal: d("10000"),
			wantErr:  nil,
		},
		{
			name:     "exhausted",
			mutate:   func(r *Rule) { r.Uses = 100 },
			subtotal: d("10000"),
			wantErr:  ErrExhausted,
		},
		{
			name:     "unlimited uses when cap non-positive",
			mutate:   func(r *Rule) { r.MaxUses = 0; r.Uses = 999999 },
			subtotal: d("10000"),
			wantErr:  nil,
		},
		{
			name:     "below minimum order amount",
			mutate:   func(*Rule) {},
			subtotal: d("4999.99"),
			wantErr:  ErrBelowMinimum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := base
			tt.mutate(&rule)

			err := Eligible(&rule, tt.subtotal, now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestApply_Percentage(t *testing.T) {
	rule := &Rule{DiscountType: DiscountPercentage, Value: d("10")}

	amount, err := Apply(rule, d("10000"), d("1000"))
	require.NoError(t, err)

	// 10% of the subtotal only; shipping is not discounted.
	assert.True(t, d("1000").Equal(amount), "got %s", amount)
}

func TestApply_PercentageRounds(t *testing.T) {
	rule := &Rule{DiscountType: DiscountPercentage, Value: d("15")}

	amount, err := Apply(rule, d("333.33"), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, d("50.00").Equal(amount), "got %s", amount)
}

func TestApply_FixedCappedAtOrderValue(t *testing.T) {
	rule := &Rule{DiscountType: DiscountFixed, Value: d("5000")}

	amount, err := Apply(rule, d("2000"), d("500"))
	require.NoError(t, err)
	assert.True(t, d("2500").Equal(amount), "got %s", amount)
}

func TestApply_FixedBelowCap(t *testing.T) {
	rule := &Rule{DiscountType: DiscountFixed, Value: d("500")}

	amount, err := Apply(rule, d("10000"), d("1000"))
	require.NoError(t, err)
	assert.True(t, d("500").Equal(amount), "got %s", amount)
}

func TestApply_UnknownType(t *testing.T) {
	rule := &Rule{DiscountType: "bogo"}

	_, err := Apply(rule, d("10000"), decimal.Zero)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported discount type")
}

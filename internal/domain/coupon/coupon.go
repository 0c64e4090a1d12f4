package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrNotFound is returned when no active coupon exists for a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when a coupon has been deactivated.
	ErrInactive = errors.New("coupon inactive")
	// ErrExpired is returned when a coupon is past its expiry time.
	ErrExpired = errors.New("coupon expired")
	// ErrExhausted is returned when a coupon has no uses left.
	ErrExhausted = errors.New("coupon usage limit reached")
	// ErrBelowMinimum is returned when the order subtotal does not meet
	// the coupon's minimum order amount.
	ErrBelowMinimum = errors.New("order below coupon minimum")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
// Codes are canonicalized to upper-case; MaxUses <= 0 means unlimited.
type Rule struct {
	Code           string
	DiscountType   DiscountType
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	Description    string
	Active         bool
	ExpiresAt      *time.Time
	MaxUses        int
	Uses           int
}

// Ledger provides lookup and redemption of coupon rules.
//
// IncrementUses must be an atomic conditional increment: it succeeds only
// while uses < max_uses holds at the store, returning ErrExhausted otherwise.
// It is called once per successfully persisted order that earned a discount,
// never on eligibility checks.
type Ledger interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUses(ctx context.Context, code string) error
}

// Canonical returns the canonical (upper-case, trimmed) form of a code.
func Canonical(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Eligible reports whether the rule can be applied to an order with the
// given subtotal at the given time. The subtotal is compared before
// shipping. A non-nil error names the first failing constraint.
func Eligible(rule *Rule, subtotal decimal.Decimal, now time.Time) error {
	if !rule.Active {
		return ErrInactive
	}
	if rule.ExpiresAt != nil && now.After(*rule.ExpiresAt) {
		return ErrExpired
	}
	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return ErrExhausted
	}
	if subtotal.LessThan(rule.MinOrderAmount) {
		return ErrBelowMinimum
	}
	return nil
}

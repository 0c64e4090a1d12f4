package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, discount_type, value, min_order_amount, description,
		active, expires_at, max_uses, uses
		FROM coupons WHERE code = UPPER($1)`

	// The uses < max_uses guard lives inside the UPDATE itself, so two
	// concurrent redemptions against a nearly exhausted coupon cannot both
	// pass a stale check and jointly overshoot the cap.
	incrementCouponUsesSQL = `UPDATE coupons SET uses = uses + 1
		WHERE code = UPPER($1) AND (max_uses <= 0 OR uses < max_uses)`
)

var _ coupon.Ledger = (*CouponRepository)(nil)

// CouponRepository implements coupon.Ledger backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive; codes are
// stored upper-case). Returns coupon.ErrNotFound when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "finding coupon by code %q", code)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "finding coupon by code %q", code)
	}
	return &rule, nil
}

// IncrementUses atomically increments the usage counter while the cap
// holds. Returns coupon.ErrExhausted when the cap was already reached.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, incrementCouponUsesSQL, code)
	if err != nil {
		return errors.Wrapf(err, "incrementing uses for coupon %q", code)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrExhausted
	}
	return nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
		expiresAt    *time.Time
		maxUses      int32
		uses         int32
	)
	err := row.Scan(
		&rule.Code, &discountType, &rule.Value, &rule.MinOrderAmount,
		&rule.Description, &rule.Active, &expiresAt, &maxUses, &uses,
	)
	rule.DiscountType = coupon.DiscountType(discountType)
	rule.ExpiresAt = expiresAt
	rule.MaxUses = int(maxUses)
	rule.Uses = int(uses)
	return rule, err
}

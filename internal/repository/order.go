package repository

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (
			id, customer_name, customer_email, customer_phone, customer_address, customer_region,
			items, subtotal, shipping_fee, discount, total, coupon_code,
			payment_reference, payment_amount, payment_channel, paid_at,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)`

	orderColumns = `id, customer_name, customer_email, customer_phone, customer_address, customer_region,
		items, subtotal, shipping_fee, discount, total, coupon_code,
		payment_reference, payment_amount, payment_channel, paid_at,
		status, created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// payment-reference uniqueness guarantee lives in the orders table's unique
// index, so concurrent creations with one reference race at the store, not
// in application code.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Items are serialized to JSON for the JSONB
// column. Unique violations map to order.ErrDuplicateID (primary key) and
// order.ErrDuplicateReference (payment reference index).
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshaling order items")
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.Customer.Name, o.Customer.Email, o.Customer.Phone, o.Customer.Address, o.Customer.Region,
		itemsJSON, o.Subtotal, o.ShippingFee, o.Discount, o.Total, o.CouponCode,
		o.Payment.Reference, o.Payment.VerifiedAmount, o.Payment.Channel, o.Payment.PaidAt,
		string(o.Status), o.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case "orders_payment_reference_key":
				return order.ErrDuplicateReference
			case "orders_pkey":
				return order.ErrDuplicateID
			}
		}
		return errors.Wrapf(err, "creating order %q", o.ID)
	}

	return nil
}

// GetByID returns a single order. Returns order.ErrNotFound when absent.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting order %q", id)
	}
	return &o, nil
}

// List returns orders newest first.
func (r *OrderRepository) List(ctx context.Context, limit, offset int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "listing orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus writes the status column only; all other order fields are
// immutable after creation.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return errors.Wrapf(err, "updating status of order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		status    string
	)
	err := row.Scan(
		&o.ID, &o.Customer.Name, &o.Customer.Email, &o.Customer.Phone, &o.Customer.Address, &o.Customer.Region,
		&itemsJSON, &o.Subtotal, &o.ShippingFee, &o.Discount, &o.Total, &o.CouponCode,
		&o.Payment.Reference, &o.Payment.VerifiedAmount, &o.Payment.Channel, &o.Payment.PaidAt,
		&status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, errors.Wrap(err, "unmarshaling order items")
	}
	return o, nil
}

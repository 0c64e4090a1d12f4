package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order persistence.
var (
	// ErrNotFound is returned when no order exists for an ID.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateReference is returned when a payment reference already
	// backs another order. A single payment proof backs at most one order.
	ErrDuplicateReference = errors.New("payment reference already used")
	// ErrDuplicateID is returned on an order ID collision; the caller
	// retries with a fresh ID.
	ErrDuplicateID = errors.New("order id already exists")
)

// Customer is a snapshot of the buyer's contact details captured at order
// time, independent of any later profile edits.
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Region  string `json:"region"`
}

// OrderItem is a single line item. Name, UnitPrice and Image are snapshotted
// from the catalog at order time; UnitPrice is never client-supplied.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Image     string          `json:"image,omitempty"`
}

// PaymentProof records the provider's verification of the payment backing
// this order. VerifiedAmount is in minor currency units as reported by the
// provider.
type PaymentProof struct {
	Reference      string
	VerifiedAmount int64
	Channel        string
	PaidAt         *time.Time
}

// Order is a durable record of a completed, payment-verified purchase.
// All fields except Status are immutable after creation.
type Order struct {
	ID          string
	Customer    Customer
	Items       []OrderItem
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	CouponCode  string
	Payment     PaymentProof
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository defines persistence operations for orders. Create must enforce
// uniqueness of both the order ID and the payment reference at the store
// level, returning ErrDuplicateID / ErrDuplicateReference respectively.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, limit, offset int) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// Notifier emits customer/operator messages for order events. All methods
// are fire-and-forget: implementations must never block the caller or
// surface delivery failures.
type Notifier interface {
	OrderConfirmation(o *Order)
	OrderAlert(o *Order)
	StatusUpdate(o *Order)
}

package order

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/domain/coupon"
	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/domain/product"
	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/payment"
)

// maxIDRetries bounds how many fresh IDs are tried when order creation hits
// an ID collision before the error is surfaced as fatal.
const maxIDRetries = 3

// Sentinel errors for order input validation.
var (
	ErrEmptyItems       = errors.New("items required")
	ErrMissingReference = errors.New("payment reference required")
	ErrMissingCustomer  = errors.New("customer email required")
	ErrUnknownStatus    = errors.New("unknown order status")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// LineItem is a client-requested cart line. Only the product ID and quantity
// are taken from the client; prices come from the catalog.
type LineItem struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order. ClaimedTotal is
// the client-asserted amount, used solely as an audit signal.
type PlaceOrderRequest struct {
	Customer         Customer
	Items            []LineItem
	CouponCode       string
	PaymentReference string
	ShippingFee      decimal.Decimal
	ClaimedTotal     *decimal.Decimal
}

// Service runs the order pipeline: reprice from the catalog, apply coupon
// rules, verify payment against the provider, persist, redeem the coupon,
// and dispatch notifications.
type Service struct {
	products product.Repository
	coupons  coupon.Ledger
	orders   Repository
	verifier payment.Verifier
	notifier Notifier
	lg       *zap.Logger
	now      func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(
	products product.Repository,
	coupons coupon.Ledger,
	orders Repository,
	verifier payment.Verifier,
	notifier Notifier,
	lg *zap.Logger,
) *Service {
	return &Service{
		products: products,
		coupons:  coupons,
		orders:   orders,
		verifier: verifier,
		notifier: notifier,
		lg:       lg,
		now:      time.Now,
	}
}

// PlaceOrder runs the creation pipeline. Steps are strictly sequential:
// reprice -> verify payment -> persist -> redeem coupon -> notify. Nothing
// is persisted unless the provider positively confirms the recomputed total,
// and post-persistence side-effect failures never fail the request.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if strings.TrimSpace(req.PaymentReference) == "" {
		return nil, ErrMissingReference
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		return nil, ErrMissingCustomer
	}

	items, subtotal, err := s.reprice(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	shipping := req.ShippingFee
	if shipping.IsNegative() {
		shipping = decimal.Zero
	}

	code, discount, err := s.applyCoupon(ctx, req.CouponCode, subtotal, shipping)
	if err != nil {
		return nil, err
	}

	total := subtotal.Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	total = total.Round(2)

	if req.ClaimedTotal != nil && !req.ClaimedTotal.Equal(total) {
		s.lg.Warn("client-asserted total differs from repriced total",
			zap.String("reference", req.PaymentReference),
			zap.String("claimed", req.ClaimedTotal.String()),
			zap.String("computed", total.String()),
		)
	}

	proof, err := s.verifier.Verify(ctx, req.PaymentReference, MinorUnits(total))
	if err != nil {
		return nil, err
	}

	o := &Order{
		Customer:    req.Customer,
		Items:       items,
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Discount:    discount,
		Total:       total,
		CouponCode:  code,
		Payment: PaymentProof{
			Reference:      req.PaymentReference,
			VerifiedAmount: proof.Amount,
			Channel:        proof.Channel,
			PaidAt:         proof.PaidAt,
		},
		Status:    StatusPending,
		CreatedAt: s.now(),
	}

	if err := s.persist(ctx, o); err != nil {
		return nil, err
	}

	// The order is durable and paid for; everything below is best-effort.
	if code != "" && discount.IsPositive() {
		s.redeemCoupon(ctx, code, o.ID)
	}

	s.notifier.OrderConfirmation(o)
	s.notifier.OrderAlert(o)

	return o, nil
}

// reprice resolves every requested line against the catalog and returns the
// snapshotted items plus the server-derived subtotal. Client-supplied prices
// never enter this computation.
func (s *Service) reprice(ctx context.Context, lines []LineItem) ([]OrderItem, decimal.Decimal, error) {
	ids := make([]string, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, decimal.Zero, &InvalidQuantityError{ProductID: line.ProductID}
		}
		ids[i] = line.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "get products")
	}

	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	items := make([]OrderItem, len(lines))
	subtotal := decimal.Zero
	for i, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return nil, decimal.Zero, &ProductNotFoundError{ProductID: line.ProductID}
		}

		items[i] = OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
			Image:     p.Image,
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	return items, subtotal.Round(2), nil
}

// applyCoupon resolves a coupon code into a discount amount. An ineligible
// or unknown code degrades to a zero discount; only ledger infrastructure
// failures abort the order.
func (s *Service) applyCoupon(ctx context.Context, rawCode string, subtotal, shipping decimal.Decimal) (string, decimal.Decimal, error) {
	code := coupon.Canonical(rawCode)
	if code == "" {
		return "", decimal.Zero, nil
	}

	rule, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			s.lg.Info("unknown coupon code, no discount applied", zap.String("code", code))
			return code, decimal.Zero, nil
		}
		return "", decimal.Zero, errors.Wrap(err, "lookup coupon")
	}

	if err := coupon.Eligible(rule, subtotal, s.now()); err != nil {
		s.lg.Info("coupon not applicable, no discount applied",
			zap.String("code", code),
			zap.String("reason", err.Error()),
		)
		return code, decimal.Zero, nil
	}

	discount, err := coupon.Apply(rule, subtotal, shipping)
	if err != nil {
		return "", decimal.Zero, errors.Wrap(err, "apply coupon")
	}

	return code, discount, nil
}

// persist writes the order, retrying ID collisions with fresh IDs up to
// maxIDRetries. Duplicate payment references are never retried: they mean
// the reference already backs another order.
func (s *Service) persist(ctx context.Context, o *Order) error {
	for attempt := 0; attempt < maxIDRetries; attempt++ {
		o.ID = newOrderID(s.now())

		err := s.orders.Create(ctx, o)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrDuplicateID) {
			s.lg.Warn("order id collision, retrying",
				zap.String("order_id", o.ID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		return err
	}
	return errors.Errorf("order id collision persisted across %d attempts", maxIDRetries)
}

// redeemCoupon increments the coupon usage counter after the order is
// durable. Failures are logged for out-of-band reconciliation; the paid
// order always stands.
func (s *Service) redeemCoupon(ctx context.Context, code, orderID string) {
	if err := s.coupons.IncrementUses(ctx, code); err != nil {
		if errors.Is(err, coupon.ErrExhausted) {
			s.lg.Warn("coupon cap reached after order persisted, discount honored",
				zap.String("code", code),
				zap.String("order_id", orderID),
			)
			return
		}
		s.lg.Error("coupon usage increment failed, reconcile out-of-band",
			zap.String("code", code),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

// UpdateStatus moves an order through the status machine and dispatches a
// status-update notification on customer-visible transitions.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	if !to.Valid() {
		return nil, ErrUnknownStatus
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, to) {
		return nil, &IllegalTransitionError{From: o.Status, To: to}
	}

	if err := s.orders.UpdateStatus(ctx, id, to); err != nil {
		return nil, errors.Wrapf(err, "update status of order %s", id)
	}
	o.Status = to

	if notifiable(to) {
		s.notifier.StatusUpdate(o)
	}

	return o, nil
}

// newOrderID generates a human-readable, globally unique order identifier:
// a millisecond timestamp in base36 plus a random disambiguator.
func newOrderID(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	suffix := strings.ToUpper(uuid.NewString()[:4])
	return "MH-" + ts + "-" + suffix
}

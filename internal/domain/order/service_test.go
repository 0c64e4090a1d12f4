package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/domain/coupon"
	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/domain/product"
	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/payment"
)

// --- Mock implementations ---

type mockProducts struct {
	byID   map[string]product.Product
	getErr error
}

func (m *mockProducts) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockLedger struct {
	rule     *coupon.Rule
	findErr  error
	incErr   error
	incCalls int
	incCode  string
}

func (m *mockLedger) FindByCode(_ context.Context, _ string) (*coupon.Rule, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.rule == nil {
		return nil, coupon.ErrNotFound
	}
	return m.rule, nil
}

func (m *mockLedger) IncrementUses(_ context.Context, code string) error {
	m.incCalls++
	m.incCode = code
	return m.incErr
}

type mockOrders struct {
	created    []*Order
	createErrs []error
	byID       map[string]*Order
	lastStatus Status
	updateErr  error
}

func (m *mockOrders) Create(_ context.Context, o *Order) error {
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	m.created = append(m.created, o)
	return nil
}

func (m *mockOrders) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrders) List(_ context.Context, _, _ int) ([]Order, error) { return nil, nil }

func (m *mockOrders) UpdateStatus(_ context.Context, _ string, status Status) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.lastStatus = status
	return nil
}

type mockVerifier struct {
	proof       *payment.Verification
	err         error
	gotExpected int64
	calls       int
}

func (m *mockVerifier) Verify(_ context.Context, reference string, expected int64) (*payment.Verification, error) {
	m.calls++
	m.gotExpected = expected
	if m.err != nil {
		return nil, m.err
	}
	if m.proof != nil {
		return m.proof, nil
	}
	return &payment.Verification{Reference: reference, Amount: expected, Channel: "card"}, nil
}

type mockNotifier struct {
	confirmations int
	alerts        int
	statusUpdates []Status
}

func (m *mockNotifier) OrderConfirmation(_ *Order) { m.confirmations++ }
func (m *mockNotifier) OrderAlert(_ *Order)        { m.alerts++ }
func (m *mockNotifier) StatusUpdate(o *Order)      { m.statusUpdates = append(m.statusUpdates, o.Status) }

// --- Helpers ---

type fixture struct {
	products *mockProducts
	coupons  *mockLedger
	orders   *mockOrders
	verifier *mockVerifier
	notifier *mockNotifier
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		products: &mockProducts{byID: map[string]product.Product{
			"p1": {ID: "p1", Name: "Paracetamol", Price: d(t, "5000"), Image: "/img/p1.jpg"},
			"p2": {ID: "p2", Name: "Thermometer", Price: d(t, "6500")},
		}},
		coupons:  &mockLedger{},
		orders:   &mockOrders{byID: map[string]*Order{}},
		verifier: &mockVerifier{},
		notifier: &mockNotifier{},
	}
	f.svc = NewService(f.products, f.coupons, f.orders, f.verifier, f.notifier, zaptest.NewLogger(t))
	return f
}

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func validRequest() PlaceOrderRequest {
	return PlaceOrderRequest{
		Customer:         Customer{Name: "Ada", Email: "ada@example.com", Region: "Lagos"},
		Items:            []LineItem{{ProductID: "p1", Quantity: 2}},
		PaymentReference: "PAY-X",
		ShippingFee:      decimal.RequireFromString("1000"),
	}
}

// --- Placement tests ---

func TestPlaceOrder_InputValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{})
	require.ErrorIs(t, err, ErrEmptyItems)

	req := validRequest()
	req.PaymentReference = "  "
	_, err = f.svc.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, ErrMissingReference)

	req = validRequest()
	req.Customer.Email = ""
	_, err = f.svc.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, ErrMissingCustomer)

	req = validRequest()
	req.Items = []LineItem{{ProductID: "p1", Quantity: 0}}
	var iq *InvalidQuantityError
	_, err = f.svc.PlaceOrder(context.Background(), req)
	require.ErrorAs(t, err, &iq)
	assert.Equal(t, "p1", iq.ProductID)

	assert.Zero(t, f.verifier.calls, "nothing verified on input errors")
	assert.Empty(t, f.orders.created, "nothing persisted on input errors")
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Items = append(req.Items, LineItem{ProductID: "ghost", Quantity: 1})

	var pnf *ProductNotFoundError
	_, err := f.svc.PlaceOrder(context.Background(), req)
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, "ghost", pnf.ProductID)
	assert.Empty(t, f.orders.created, "no partial order")
}

func TestPlaceOrder_RepricesFromCatalog(t *testing.T) {
	f := newFixture(t)
	claimed := d(t, "1.00") // tampered client total, must be ignored
	req := validRequest()
	req.ClaimedTotal = &claimed

	o, err := f.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, d(t, "10000").Equal(o.Subtotal), "subtotal %s", o.Subtotal)
	assert.True(t, d(t, "1000").Equal(o.ShippingFee))
	assert.True(t, o.Discount.IsZero())
	assert.True(t, d(t, "11000").Equal(o.Total), "total %s", o.Total)
	assert.Equal(t, int64(1100000), f.verifier.gotExpected, "verified in minor units")

	require.Len(t, o.Items, 1)
	assert.Equal(t, "Paracetamol", o.Items[0].Name, "name snapshotted")
	assert.True(t, d(t, "5000").Equal(o.Items[0].UnitPrice), "price snapshotted from catalog")

	assert.Equal(t, StatusPending, o.Status)
	assert.NotEmpty(t, o.ID)
	require.Len(t, f.orders.created, 1)
	assert.Equal(t, 1, f.notifier.confirmations)
	assert.Equal(t, 1, f.notifier.alerts)
}

func TestPlaceOrder_PercentageCoupon(t *testing.T) {
	f := newFixture(t)
	f.coupons.rule = &coupon.Rule{
		Code:           "SAVE10",
		DiscountType:   coupon.DiscountPercentage,
		Value:          d(t, "10"),
		MinOrderAmount: d(t, "5000"),
		Active:         true,
	}
	req := validRequest()
	req.CouponCode = "save10"

	o, err := f.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	// 10% of 10000 subtotal; shipping not discounted.
	assert.True(t, d(t, "1000").Equal(o.Discount))
	assert.True(t, d(t, "10000").Equal(o.Total))
	assert.Equal(t, "SAVE10", o.CouponCode, "code canonicalized")
	assert.Equal(t, 1, f.coupons.incCalls, "usage incremented exactly once")
	assert.Equal(t, "SAVE10", f.coupons.incCode)
}

func TestPlaceOrder_IneligibleCouponDegradesSilently(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	tests := []struct {
		name string
		rule *coupon.Rule
	}{
		{"unknown code", nil},
		{"expired", &coupon.Rule{Code: "OLD", DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(10), Active: true, ExpiresAt: &past}},
		{"inactive", &coupon.Rule{Code: "OFF", DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(10)}},
		{"exhausted", &coupon.Rule{Code: "GONE", DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(10), Active: true, MaxUses: 1, Uses: 1}},
		{"below minimum", &coupon.Rule{Code: "BIG", DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(10), Active: true, MinOrderAmount: decimal.NewFromInt(999999)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.coupons.rule = tt.rule
			req := validRequest()
			req.CouponCode = "ANYCODE"

			o, err := f.svc.PlaceOrder(context.Background(), req)
			require.NoError(t, err, "ineligible coupon never blocks the order")
			assert.True(t, o.Discount.IsZero())
			assert.True(t, d(t, "11000").Equal(o.Total))
			assert.Zero(t, f.coupons.incCalls, "no redemption without discount")
		})
	}
}

func TestPlaceOrder_PaymentIntegrityAborts(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"amount mismatch", &payment.AmountMismatchError{Expected: 1100000, Paid: 900000}, nil},
		{"not successful", payment.ErrNotSuccessful, payment.ErrNotSuccessful},
		{"provider unreachable", payment.ErrProviderUnreachable, payment.ErrProviderUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.coupons.rule = &coupon.Rule{Code: "SAVE10", DiscountType: coupon.DiscountPercentage, Value: d(t, "10"), Active: true}
			f.verifier.err = tt.err
			req := validRequest()
			req.CouponCode = "SAVE10"

			_, err := f.svc.PlaceOrder(context.Background(), req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				var mismatch *payment.AmountMismatchError
				assert.ErrorAs(t, err, &mismatch)
			}

			assert.Empty(t, f.orders.created, "nothing persisted")
			assert.Zero(t, f.coupons.incCalls, "coupon usage unchanged")
			assert.Zero(t, f.notifier.confirmations)
		})
	}
}

func TestPlaceOrder_DuplicateReference(t *testing.T) {
	f := newFixture(t)
	f.orders.createErrs = []error{ErrDuplicateReference}

	_, err := f.svc.PlaceOrder(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrDuplicateReference)
	assert.Zero(t, f.coupons.incCalls)
	assert.Zero(t, f.notifier.confirmations)
}

func TestPlaceOrder_IDCollisionRetried(t *testing.T) {
	f := newFixture(t)
	f.orders.createErrs = []error{ErrDuplicateID, ErrDuplicateID}

	o, err := f.svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	require.Len(t, f.orders.created, 1)
}

func TestPlaceOrder_IDCollisionExhausted(t *testing.T) {
	f := newFixture(t)
	f.orders.createErrs = []error{ErrDuplicateID, ErrDuplicateID, ErrDuplicateID}

	_, err := f.svc.PlaceOrder(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision")
}

func TestPlaceOrder_RedemptionFailureDoesNotFailOrder(t *testing.T) {
	tests := []struct {
		name   string
		incErr error
	}{
		{"cap hit in race", coupon.ErrExhausted},
		{"ledger outage", errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.coupons.rule = &coupon.Rule{Code: "SAVE10", DiscountType: coupon.DiscountPercentage, Value: d(t, "10"), Active: true, MaxUses: 1}
			f.coupons.incErr = tt.incErr
			req := validRequest()
			req.CouponCode = "SAVE10"

			o, err := f.svc.PlaceOrder(context.Background(), req)
			require.NoError(t, err, "paid order must stand")
			assert.True(t, d(t, "1000").Equal(o.Discount), "quoted discount honored")
			require.Len(t, f.orders.created, 1)
		})
	}
}

func TestNewOrderID_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for range 1000 {
		id := newOrderID(now)
		assert.False(t, seen[id], "duplicate id %s within one millisecond", id)
		seen[id] = true
		assert.Regexp(t, `^MH-[0-9A-Z]+-[0-9A-F]{4}$`, id)
	}
}

// --- Status machine tests ---

func storedOrder(status Status) *Order {
	return &Order{
		ID:       "MH-TEST-0001",
		Customer: Customer{Email: "ada@example.com"},
		Items:    []OrderItem{{ProductID: "p1", Quantity: 1}},
		Status:   status,
	}
}

func TestUpdateStatus_AllowedTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
	}{
		{StatusPending, StatusProcessing},
		{StatusPending, StatusCancelled},
		{StatusProcessing, StatusShipped},
		{StatusProcessing, StatusCancelled},
		{StatusShipped, StatusProcessing}, // operator correction, backwards by design
		{StatusShipped, StatusDelivered},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			f := newFixture(t)
			f.orders.byID["MH-TEST-0001"] = storedOrder(tt.from)

			o, err := f.svc.UpdateStatus(context.Background(), "MH-TEST-0001", tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.to, o.Status)
			assert.Equal(t, tt.to, f.orders.lastStatus)
		})
	}
}

func TestUpdateStatus_IllegalTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
	}{
		{StatusDelivered, StatusPending},
		{StatusDelivered, StatusCancelled},
		{StatusCancelled, StatusPending},
		{StatusCancelled, StatusDelivered},
		{StatusShipped, StatusCancelled},
		{StatusPending, StatusPending},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			f := newFixture(t)
			f.orders.byID["MH-TEST-0001"] = storedOrder(tt.from)

			var illegal *IllegalTransitionError
			_, err := f.svc.UpdateStatus(context.Background(), "MH-TEST-0001", tt.to)
			require.ErrorAs(t, err, &illegal)
			assert.Equal(t, tt.from, illegal.From)
		})
	}
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	f.orders.byID["MH-TEST-0001"] = storedOrder(StatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), "MH-TEST-0001", "teleported")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestUpdateStatus_OrderNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), "MH-MISSING", StatusShipped)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_Notifications(t *testing.T) {
	tests := []struct {
		to   Status
		want int
	}{
		{StatusProcessing, 0},
		{StatusShipped, 1},
		{StatusDelivered, 1},
		{StatusCancelled, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			f := newFixture(t)
			f.orders.byID["MH-TEST-0001"] = storedOrder(StatusPending)

			_, err := f.svc.UpdateStatus(context.Background(), "MH-TEST-0001", tt.to)
			require.NoError(t, err)
			assert.Len(t, f.notifier.statusUpdates, tt.want)
			if tt.want > 0 {
				assert.Equal(t, tt.to, f.notifier.statusUpdates[0])
			}
		})
	}
}

func TestStatus_TerminalSet(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, StatusShipped.Terminal())
	assert.False(t, Status("teleported").Terminal())
}

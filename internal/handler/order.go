package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/domain/order"
	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/payment"
)

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Region  string `json:"region"`
}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	Customer         customerRequest    `json:"customer"`
	Items            []orderItemRequest `json:"items"`
	CouponCode       string             `json:"couponCode"`
	PaymentReference string             `json:"paymentReference"`
	ShippingFee      decimal.Decimal    `json:"shippingFee"`
	ClaimedTotal     *decimal.Decimal   `json:"claimedTotal"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// PlaceOrder handles POST /orders: decode, run the pipeline, map the
// outcome onto the error taxonomy.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.LineItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Customer: order.Customer{
			Name:    req.Customer.Name,
			Email:   req.Customer.Email,
			Phone:   req.Customer.Phone,
			Address: req.Customer.Address,
			Region:  req.Customer.Region,
		},
		Items:            items,
		CouponCode:       req.CouponCode,
		PaymentReference: req.PaymentReference,
		ShippingFee:      req.ShippingFee,
		ClaimedTotal:     req.ClaimedTotal,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusCreated, &e)
}

// writeOrderError maps pipeline errors to HTTP responses. Payment-integrity
// rejections deliberately avoid echoing computed totals.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrMissingReference),
		errors.Is(err, order.ErrMissingCustomer):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, order.ErrDuplicateReference):
		writeError(w, http.StatusConflict, "an order already exists for this payment reference")

	case errors.Is(err, payment.ErrNotSuccessful):
		writeError(w, http.StatusPaymentRequired, "payment was not successful")

	case errors.Is(err, payment.ErrProviderUnreachable):
		writeError(w, http.StatusServiceUnavailable, "payment could not be verified, try again later")

	default:
		var (
			iq       *order.InvalidQuantityError
			pnf      *order.ProductNotFoundError
			mismatch *payment.AmountMismatchError
		)
		switch {
		case errors.As(err, &iq):
			writeError(w, http.StatusUnprocessableEntity, iq.Error())
		case errors.As(err, &pnf):
			writeError(w, http.StatusUnprocessableEntity, pnf.Error())
		case errors.As(err, &mismatch):
			writeError(w, http.StatusPaymentRequired, "payment amount does not match the order total")
		default:
			writeInternalError(w, r, err)
		}
	}
}

// ListOrders handles GET /orders for operators, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	orders, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("orders", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range orders {
					encodeOrder(e, &orders[i])
				}
			})
		})
	})
	writeJSON(w, http.StatusOK, &e)
}

// GetOrder handles GET /orders/{orderID}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")

	o, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}

// UpdateOrderStatus handles PATCH /orders/{orderID}/status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, order.Status(req.Status))
	if err != nil {
		var illegal *order.IllegalTransitionError
		switch {
		case errors.Is(err, order.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrUnknownStatus):
			writeError(w, http.StatusBadRequest, "unknown status")
		case errors.As(err, &illegal):
			writeError(w, http.StatusConflict, illegal.Error())
		default:
			writeInternalError(w, r, err)
		}
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

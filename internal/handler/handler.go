// Package handler exposes the order pipeline over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/domain/order"
	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/domain/product"
)

// defaultListLimit bounds operator order listings when no limit is given.
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Handler implements the HTTP surface, delegating business logic to the
// order service and the repositories.
type Handler struct {
	products product.Repository
	orders   *order.Service
	store    order.Repository
}

// New constructs a Handler with the required dependencies.
func New(
	products product.Repository,
	orders *order.Service,
	store order.Repository,
) *Handler {
	return &Handler{
		products: products,
		orders:   orders,
		store:    store,
	}
}

// Routes builds the API router. Order placement is customer-facing; the
// operator endpoints (listing, fetching, status transitions) sit behind the
// given API-key middleware.
func (h *Handler) Routes(requireKey func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/products", h.ListProducts)
	r.Get("/products/{productID}", h.GetProduct)

	r.Post("/orders", h.PlaceOrder)

	r.Group(func(r chi.Router) {
		r.Use(requireKey)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{orderID}", h.GetOrder)
		r.Patch("/orders/{orderID}/status", h.UpdateOrderStatus)
	})

	return r
}

// Package handler exposes the order and statistics services over REST.
// Handlers translate JSON requests into domain calls and map domain errors
// onto the HTTP status taxonomy; all business rules live below this layer.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/herevemarket/orders-api/internal/domain/order"
	"github.com/herevemarket/orders-api/internal/domain/stats"
)

// Handler bundles the HTTP endpoints over the order service.
type Handler struct {
	orders *order.Service
	stats  *stats.Aggregator
}

// New creates a Handler.
func New(orders *order.Service, aggregator *stats.Aggregator) *Handler {
	return &Handler{
		orders: orders,
		stats:  aggregator,
	}
}

// Routes returns the API router. Status transitions are restricted to staff
// roles; creation and reads are open to any caller the gateway lets through.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(Identity)

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)

		r.Get("/problematic", h.problematicOrders)
		r.Get("/commissions/stats", h.commissionStats)

		r.Get("/hotel/{hotelID}", h.listByHotel)
		r.Get("/merchant/{merchantID}", h.listByMerchant)
		r.Get("/client/{clientID}", h.listByClient)
		r.Get("/number/{number}", h.getOrderByNumber)

		r.Get("/{id}", h.getOrder)
		r.With(RequireRole(RoleMerchant, RoleHotel, RoleAdmin)).Put("/{id}", h.transitionOrder)
	})

	return r
}

package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/herevemarket/orders-api/internal/domain/order"
)

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		}
	}

	clientID := req.ClientID
	if clientID == "" {
		// A logged-in client does not have to repeat their id in the body.
		if actor, ok := ActorFrom(r.Context()); ok && actor.Role == RoleClient {
			clientID = actor.ID
		}
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		HotelID:      req.HotelID,
		MerchantID:   req.MerchantID,
		ClientID:     clientID,
		CustomerName: req.CustomerName,
		CustomerRoom: req.CustomerRoom,
		Items:        items,
	})
	if err != nil {
		mapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapOrder(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

func (h *Handler) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	target, err := order.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	o, err := h.orders.Transition(r.Context(), chi.URLParam(r, "id"), target, order.TransitionOptions{
		PickedUp: req.PickedUp,
	})
	if err != nil {
		mapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrder(o))
}

func (h *Handler) listByHotel(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	f.HotelID = chi.URLParam(r, "hotelID")
	h.list(w, r, f)
}

func (h *Handler) listByMerchant(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	f.MerchantID = chi.URLParam(r, "merchantID")
	h.list(w, r, f)
}

func (h *Handler) listByClient(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	f.ClientID = chi.URLParam(r, "clientID")
	// Legacy guest orders predate client accounts; passing the guest
	// identity pulls those into the same history view.
	f.CustomerName = r.URL.Query().Get("customer_name")
	f.CustomerRoom = r.URL.Query().Get("room")
	h.list(w, r, f)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, f order.Filter) {
	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrders(orders))
}

func (h *Handler) problematicOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.Problematic(r.Context(), r.URL.Query().Get("hotel"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrders(orders))
}

// filterFromQuery parses the shared list query parameters: status, active,
// and the created-at range.
func filterFromQuery(r *http.Request) (order.Filter, error) {
	q := r.URL.Query()
	var f order.Filter

	if s := q.Get("status"); s != "" {
		status, err := order.ParseStatus(s)
		if err != nil {
			return order.Filter{}, err
		}
		f.Statuses = []order.Status{status}
	}
	f.ActiveOnly = q.Get("active") == "true"

	var err error
	if f.CreatedFrom, err = parseTime(q.Get("from")); err != nil {
		return order.Filter{}, err
	}
	if f.CreatedTo, err = parseTime(q.Get("to")); err != nil {
		return order.Filter{}, err
	}
	return f, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

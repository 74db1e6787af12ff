package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/herevemarket/orders-api/internal/domain/money"
	"github.com/herevemarket/orders-api/internal/domain/order"
	"github.com/herevemarket/orders-api/internal/domain/product"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{
		Code:    status,
		Kind:    kind,
		Message: msg,
	})
}

// mapError translates domain errors onto the HTTP taxonomy: invalid input
// is 400, an impossible transition is 409, missing entities are 404, and
// everything unexpected is logged and reported as a bare 500.
func mapError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *order.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, "validation_error", vErr.Error())
		return
	}
	if errors.Is(err, money.ErrInvalidAmount) {
		writeError(w, http.StatusBadRequest, "invalid_amount", err.Error())
		return
	}

	var itErr *order.InvalidTransitionError
	if errors.As(err, &itErr) {
		writeError(w, http.StatusConflict, "invalid_transition", itErr.Error())
		return
	}

	if errors.Is(err, order.ErrNotFound) || errors.Is(err, product.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}

	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal", "internal error")
}

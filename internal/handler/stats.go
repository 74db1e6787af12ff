package handler

import (
	"net/http"

	"github.com/herevemarket/orders-api/internal/domain/stats"
)

// commissionStats serves the rolling-window summaries. Either a named
// period or an explicit from/to range selects the window; hotel and
// merchant query parameters narrow the scope.
func (h *Handler) commissionStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := stats.Scope{
		HotelID:    q.Get("hotel"),
		MerchantID: q.Get("merchant"),
	}

	if q.Get("from") != "" || q.Get("to") != "" {
		from, err := parseTime(q.Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		to, err := parseTime(q.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		s, err := h.stats.ByRange(r.Context(), from, to, scope)
		if err != nil {
			mapError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, mapSummary(s))
		return
	}

	period := q.Get("period")
	if period == "" {
		period = string(stats.PeriodToday)
	}
	p, err := stats.ParsePeriod(period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	s, err := h.stats.ByPeriod(r.Context(), p, scope)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSummary(s))
}

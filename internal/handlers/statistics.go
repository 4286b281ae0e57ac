package handlers

import (
	"net/http"
	"strconv"
)

// Statistics handles GET /statistics?year=YYYY&month=M. Both default to
// the current month.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	yearStr := r.URL.Query().Get("year")
	monthStr := r.URL.Query().Get("month")

	var year, month int
	if yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			writeBadRequest(w, "year must be a number")
			return
		}
		year = y
	}
	if monthStr != "" {
		m, err := strconv.Atoi(monthStr)
		if err != nil {
			writeBadRequest(w, "month must be a number")
			return
		}
		month = m
	}

	stats, err := h.svc.Statistics(r.Context(), AccountFromContext(r), year, month)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, stats)
}

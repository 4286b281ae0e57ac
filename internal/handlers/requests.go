package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ListRequests handles GET /requests.
func (h *Handlers) ListRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := h.svc.PendingRequests(r.Context(), AccountFromContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, pending)
}

// SendRequest handles POST /requests.
func (h *Handlers) SendRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipient   string          `json:"recipient"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	mr, err := h.svc.SendMoneyRequest(r.Context(), AccountFromContext(r), req.Recipient, req.Amount, req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, mr)
}

// AcceptRequest handles POST /requests/{id}/accept.
func (h *Handlers) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	tr, err := h.svc.AcceptRequest(r.Context(), chi.URLParam(r, "id"), AccountFromContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, tr)
}

// DeclineRequest handles POST /requests/{id}/decline.
func (h *Handlers) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	tr, err := h.svc.DeclineRequest(r.Context(), chi.URLParam(r, "id"), AccountFromContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, tr)
}

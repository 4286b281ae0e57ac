package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// GetSavings handles GET /savings.
func (h *Handlers) GetSavings(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.SavingsStatus(r.Context(), AccountFromContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, st)
}

// DepositSavings handles POST /savings/deposit.
func (h *Handlers) DepositSavings(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	st, err := h.svc.DepositSavings(r.Context(), AccountFromContext(r), req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, st)
}

// WithdrawSavings handles POST /savings/withdraw.
func (h *Handlers) WithdrawSavings(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	st, err := h.svc.WithdrawSavings(r.Context(), AccountFromContext(r), req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, st)
}

// SetSavingsLock handles PUT /savings/lock with an RFC 3339 lockEndTime.
func (h *Handlers) SetSavingsLock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LockEndTime time.Time `json:"lockEndTime"`
	}
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	st, err := h.svc.SetLockEndTime(r.Context(), AccountFromContext(r), req.LockEndTime)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, st)
}

// SetSavingsGoal handles PUT /savings/goal.
func (h *Handlers) SetSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goal decimal.Decimal `json:"goal"`
	}
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	st, err := h.svc.SetSavingsGoal(r.Context(), AccountFromContext(r), req.Goal)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, st)
}

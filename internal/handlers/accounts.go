package handlers

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

// GetAccount handles GET /accounts/me.
func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Account(r.Context(), AccountFromContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, a)
}

// ListTransactions handles GET /accounts/me/transactions?limit=N.
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.svc.History(r.Context(), AccountFromContext(r), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, entries)
}

// Reconcile handles GET /accounts/me/reconciliation.
func (h *Handlers) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Reconcile(r.Context(), AccountFromContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

// SetIBAN handles PUT /accounts/me/iban.
func (h *Handlers) SetIBAN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IBAN string `json:"iban"`
	}
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	a, err := h.svc.SetIBAN(r.Context(), AccountFromContext(r), req.IBAN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, a)
}

type transferRequest struct {
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Confirm   bool            `json:"confirm"`
}

// Transfer handles POST /transfers. A budget overrun answers 409 with
// status "confirm"; repeating the request with confirm set forces it.
func (h *Handlers) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	transfer := h.svc.Transfer
	if req.Confirm {
		transfer = h.svc.ConfirmTransfer
	}
	tr, err := transfer(r.Context(), AccountFromContext(r), req.Recipient, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, tr)
}

// Withdraw handles POST /withdrawals.
func (h *Handlers) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount  decimal.Decimal `json:"amount"`
		Confirm bool            `json:"confirm"`
	}
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	withdraw := h.svc.Withdraw
	if req.Confirm {
		withdraw = h.svc.ConfirmWithdraw
	}
	tr, err := withdraw(r.Context(), AccountFromContext(r), req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, tr)
}

// GetBudget handles GET /budget.
func (h *Handlers) GetBudget(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Budget(r.Context(), AccountFromContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, st)
}

// SetBudget handles PUT /budget. A zero limit removes the budget.
func (h *Handlers) SetBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Limit decimal.Decimal `json:"limit"`
	}
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if _, err := h.svc.SetBudgetLimit(r.Context(), AccountFromContext(r), req.Limit); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.GetBudget(w, r)
}

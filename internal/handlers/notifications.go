package handlers

import (
	"net/http"

	"wallet-ledger/internal/bank"
	"wallet-ledger/internal/models"
)

// DepositNotification handles POST /api/v1/notifications/deposit from the
// bank collaborator. Replays are acknowledged with 200 and not applied.
func (h *Handlers) DepositNotification(w http.ResponseWriter, r *http.Request) {
	var n models.PaymentNotification
	if err := decode(r, &n); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, err := h.svc.ApplyDeposit(r.Context(), n)
	if err != nil {
		h.writeNotificationError(w, r, err)
		return
	}

	message := "deposit applied"
	if res.Duplicate {
		message = "duplicate notification ignored"
	}
	writeJSON(w, http.StatusOK, Response{Status: StatusSuccess, Message: message, Data: res})
}

// PurchaseNotification handles POST /api/v1/notifications/purchase from the
// store collaborator.
func (h *Handlers) PurchaseNotification(w http.ResponseWriter, r *http.Request) {
	var n models.PurchaseNotification
	if err := decode(r, &n); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	tr, err := h.svc.Purchase(r.Context(), n.UserVariableSymbol, n.ItemPrice, n.Quantity, n.ItemName)
	if err != nil {
		h.writeNotificationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Status: StatusSuccess, Message: "purchase completed", Data: tr})
}

// writeNotificationError reports every business error to collaborators as
// a 400. Infrastructure failures and exhausted conflicts become a 500 so the
// collaborator retries.
func (h *Handlers) writeNotificationError(w http.ResponseWriter, r *http.Request, err error) {
	if bank.IsBusiness(err) {
		writeBadRequest(w, err.Error())
		return
	}
	h.internalError(w, r, err)
}

// Package handlers exposes the ledger over JSON HTTP. Account holders are
// identified by the X-Account-ID header, which the upstream session
// collaborator sets after authenticating the caller.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"wallet-ledger/internal/bank"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// AccountContextKey is the context key for the caller's account id.
	AccountContextKey contextKey = "account"
	// AccountHeader carries the authenticated account id.
	AccountHeader = "X-Account-ID"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusConfirm = "confirm"
)

// Response is the envelope of every JSON response.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	svc    *bank.Service
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *bank.Service, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{svc: svc, logger: logger}
}

// Routes returns the /api/v1 routes.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/notifications", func(r chi.Router) {
		r.Post("/deposit", h.DepositNotification)
		r.Post("/purchase", h.PurchaseNotification)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.AccountMiddleware)

		r.Get("/accounts/me", h.GetAccount)
		r.Get("/accounts/me/transactions", h.ListTransactions)
		r.Get("/accounts/me/reconciliation", h.Reconcile)
		r.Put("/accounts/me/iban", h.SetIBAN)

		r.Post("/transfers", h.Transfer)
		r.Post("/withdrawals", h.Withdraw)

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Post("/", h.SendRequest)
			r.Post("/{id}/accept", h.AcceptRequest)
			r.Post("/{id}/decline", h.DeclineRequest)
		})

		r.Route("/savings", func(r chi.Router) {
			r.Get("/", h.GetSavings)
			r.Post("/deposit", h.DepositSavings)
			r.Post("/withdraw", h.WithdrawSavings)
			r.Put("/lock", h.SetSavingsLock)
			r.Put("/goal", h.SetSavingsGoal)
		})

		r.Get("/budget", h.GetBudget)
		r.Put("/budget", h.SetBudget)
		r.Get("/statistics", h.Statistics)
	})

	return r
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: StatusSuccess, Message: "ok"})
}

// AccountMiddleware requires the account header and stores the id in the
// request context.
func (h *Handlers) AccountMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(AccountHeader)
		id, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || id <= 0 {
			writeJSON(w, http.StatusUnauthorized, Response{Status: StatusError, Message: "missing or invalid " + AccountHeader})
			return
		}
		ctx := context.WithValue(r.Context(), AccountContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccountFromContext retrieves the caller's account id from request context.
func AccountFromContext(r *http.Request) int64 {
	if id, ok := r.Context().Value(AccountContextKey).(int64); ok {
		return id
	}
	return 0
}

// RequestLogger logs each request through zap.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, Response{Status: StatusSuccess, Data: data})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Response{Status: StatusError, Message: message})
}

// writeError renders a service error. Business errors keep their message;
// anything else is logged and reported generically.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var be *bank.BudgetExceededError
	switch {
	case errors.As(err, &be):
		writeJSON(w, http.StatusConflict, Response{
			Status:  StatusConfirm,
			Message: be.Error(),
			Data: map[string]any{
				"limit":     be.Limit,
				"spent":     be.Spent,
				"remaining": be.Remaining,
				"amount":    be.Amount,
			},
		})
	case errors.Is(err, bank.ErrValidation):
		writeJSON(w, http.StatusBadRequest, Response{Status: StatusError, Message: err.Error()})
	case errors.Is(err, bank.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Response{Status: StatusError, Message: err.Error()})
	case errors.Is(err, bank.ErrForbidden):
		writeJSON(w, http.StatusForbidden, Response{Status: StatusError, Message: err.Error()})
	case errors.Is(err, bank.ErrInsufficientFunds),
		errors.Is(err, bank.ErrSelfReference),
		errors.Is(err, bank.ErrLockActive),
		errors.Is(err, bank.ErrConflict):
		writeJSON(w, http.StatusConflict, Response{Status: StatusError, Message: err.Error()})
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, Response{Status: StatusError, Message: "internal server error"})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

package bank

import (
	"context"
	"time"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/shopspring/decimal"
)

// BudgetStatus describes an account's spending allowance in the current period.
type BudgetStatus struct {
	Limit       decimal.Decimal `json:"limit"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	Unlimited   bool            `json:"unlimited"`
	PeriodStart time.Time       `json:"period_start"`
}

// BudgetGuard computes the remaining monthly allowance. It only ever soft
// blocks.
type BudgetGuard struct{}

// budgetedKinds are the outflows counted against the budget.
var budgetedKinds = []models.TransactionKind{models.KindWithdraw, models.KindTransfer}

// periodStart returns the first instant of now's calendar month in UTC.
func periodStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Status reads the spending of a in the current period inside tx, so entries
// appended earlier in the same store are always counted.
func (g *BudgetGuard) Status(ctx context.Context, tx *storage.Tx, a *models.Account, now time.Time) (BudgetStatus, error) {
	start := periodStart(now)
	st := BudgetStatus{Limit: a.BudgetLimit, PeriodStart: start}

	entries, err := tx.ListTransactions(ctx, storage.TransactionFilter{
		SenderID: &a.ID,
		Kinds:    budgetedKinds,
		Since:    start,
	})
	if err != nil {
		return st, err
	}

	spent := decimal.Zero
	for _, e := range entries {
		spent = spent.Add(e.Amount)
	}
	st.Spent = spent

	if !a.BudgetLimit.IsPositive() {
		st.Unlimited = true
		return st, nil
	}

	st.Remaining = decimal.Max(a.BudgetLimit.Sub(spent), decimal.Zero)
	return st, nil
}

// Check returns a *BudgetExceededError when amount is over the remaining
// allowance. An unset budget always passes.
func (g *BudgetGuard) Check(ctx context.Context, tx *storage.Tx, a *models.Account, amount decimal.Decimal, now time.Time) error {
	if !a.BudgetLimit.IsPositive() {
		return nil
	}
	st, err := g.Status(ctx, tx, a, now)
	if err != nil {
		return err
	}
	if amount.GreaterThan(st.Remaining) {
		return &BudgetExceededError{
			Limit:     st.Limit,
			Spent:     st.Spent,
			Remaining: st.Remaining,
			Amount:    amount,
		}
	}
	return nil
}

// Budget reports the account's budget for the current period.
func (s *Service) Budget(ctx context.Context, accountID int64) (BudgetStatus, error) {
	tx := s.db.Queries()
	a, err := loadAccount(ctx, tx, accountID)
	if err != nil {
		return BudgetStatus{}, s.read("budget", err)
	}
	st, err := s.budget.Status(ctx, tx, a, s.clock())
	return st, s.read("budget", err)
}

// SetBudgetLimit sets the monthly spending limit. Zero removes the budget.
func (s *Service) SetBudgetLimit(ctx context.Context, accountID int64, limit decimal.Decimal) (*models.Account, error) {
	if limit.IsNegative() {
		return nil, invalid("budget_limit", "must not be negative")
	}

	var out *models.Account
	err := s.update(ctx, "set budget", []int64{accountID}, func(tx *storage.Tx) error {
		a, err := loadAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		a.BudgetLimit = limit
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

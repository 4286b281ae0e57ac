package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a wallet account held by the engine.
type Account struct {
	ID             int64           `json:"id"`
	Email          string          `json:"email"`
	OwnerName      string          `json:"owner_name"`
	IBAN           string          `json:"iban,omitempty"`
	VariableSymbol string          `json:"variable_symbol"`
	Balance        decimal.Decimal `json:"balance"`
	BudgetLimit    decimal.Decimal `json:"budget_limit"`
	Savings        decimal.Decimal `json:"savings"`
	SavingsGoal    decimal.Decimal `json:"savings_goal"`
	LockEndTime    *time.Time      `json:"lock_end_time,omitempty"`
	Version        int64           `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SavingsLocked reports whether the savings lock window is still open at now.
func (a *Account) SavingsLocked(now time.Time) bool {
	return a.LockEndTime != nil && now.Before(*a.LockEndTime)
}

// NewAccount holds the data needed to open an account.
type NewAccount struct {
	Email          string
	OwnerName      string
	IBAN           string
	VariableSymbol string
	OpeningBalance decimal.Decimal
}

package bank

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SavingsState is the lock state of an account's savings.
type SavingsState string

const (
	SavingsUnlocked SavingsState = "UNLOCKED"
	SavingsLocked   SavingsState = "LOCKED"
)

// Savings summarizes the piggy bank of an account.
type Savings struct {
	Savings       decimal.Decimal `json:"savings"`
	Goal          decimal.Decimal `json:"goal"`
	RemainingGoal decimal.Decimal `json:"remaining_goal"`
	LockEndTime   *time.Time      `json:"lock_end_time,omitempty"`
	State         SavingsState    `json:"state"`
}

func (s *Service) savingsOf(a *models.Account) *Savings {
	state := SavingsUnlocked
	if a.SavingsLocked(s.clock()) {
		state = SavingsLocked
	}
	return &Savings{
		Savings:       a.Savings,
		Goal:          a.SavingsGoal,
		RemainingGoal: remainingGoal(a),
		LockEndTime:   a.LockEndTime,
		State:         state,
	}
}

func remainingGoal(a *models.Account) decimal.Decimal {
	return decimal.Max(a.SavingsGoal.Sub(a.Savings), decimal.Zero)
}

// SavingsStatus evaluates the lock against the current time.
func (s *Service) SavingsStatus(ctx context.Context, accountID int64) (*Savings, error) {
	a, err := s.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.savingsOf(a), nil
}

// RemainingGoal returns max(goal - savings, 0).
func (s *Service) RemainingGoal(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	a, err := s.Account(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return remainingGoal(a), nil
}

// DepositSavings moves amount from the balance into savings. Deposits are
// allowed while locked.
func (s *Service) DepositSavings(ctx context.Context, accountID int64, amount decimal.Decimal) (*Savings, error) {
	if err := positive("amount", amount); err != nil {
		return nil, err
	}
	return s.moveSavings(ctx, "savings deposit", accountID, func(a *models.Account) error {
		if a.Balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s is less than %s", ErrInsufficientFunds, a.Balance, amount)
		}
		a.Balance = a.Balance.Sub(amount)
		a.Savings = a.Savings.Add(amount)
		return nil
	})
}

// WithdrawSavings moves amount from savings back to the balance. It fails
// with ErrLockActive until the lock end time has passed.
func (s *Service) WithdrawSavings(ctx context.Context, accountID int64, amount decimal.Decimal) (*Savings, error) {
	if err := positive("amount", amount); err != nil {
		return nil, err
	}
	return s.moveSavings(ctx, "savings withdrawal", accountID, func(a *models.Account) error {
		if now := s.clock(); a.SavingsLocked(now) {
			return fmt.Errorf("%w until %s", ErrLockActive, a.LockEndTime.UTC().Format(time.RFC3339))
		}
		if a.Savings.LessThan(amount) {
			return fmt.Errorf("%w: savings %s are less than %s", ErrInsufficientFunds, a.Savings, amount)
		}
		a.Savings = a.Savings.Sub(amount)
		a.Balance = a.Balance.Add(amount)
		return nil
	})
}

// SetLockEndTime locks savings until end, which must be in the future.
func (s *Service) SetLockEndTime(ctx context.Context, accountID int64, end time.Time) (*Savings, error) {
	if !end.After(s.clock()) {
		return nil, invalid("lock_end_time", "must be in the future")
	}
	end = end.UTC()
	return s.moveSavings(ctx, "set savings lock", accountID, func(a *models.Account) error {
		a.LockEndTime = &end
		return nil
	})
}

// SetSavingsGoal sets the target amount of the piggy bank.
func (s *Service) SetSavingsGoal(ctx context.Context, accountID int64, goal decimal.Decimal) (*Savings, error) {
	if goal.IsNegative() {
		return nil, invalid("savings_goal", "must not be negative")
	}
	return s.moveSavings(ctx, "set savings goal", accountID, func(a *models.Account) error {
		a.SavingsGoal = goal
		return nil
	})
}

func (s *Service) moveSavings(ctx context.Context, op string, accountID int64, apply func(*models.Account) error) (*Savings, error) {
	var out *models.Account
	err := s.update(ctx, op, []int64{accountID}, func(tx *storage.Tx) error {
		a, err := loadAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if err := apply(a); err != nil {
			return err
		}
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(op, zap.Int64("account_id", accountID), zap.String("savings", out.Savings.String()))
	return s.savingsOf(out), nil
}

package bank

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Business errors. Handlers map them to 4xx responses and render the
// message verbatim; they are never retried.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfReference     = errors.New("sender and recipient are the same account")
	ErrForbidden         = errors.New("operation not permitted for this account")
	ErrLockActive        = errors.New("savings are locked")

	// ErrBudgetExceeded is a soft block: the caller may repeat the operation
	// through its Confirm variant.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrConflict is returned when concurrent updates kept invalidating the
	// unit of work after all retries.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrPersistence marks infrastructure failures. The transaction has been
	// rolled back in full.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError carries a message meant for the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// BudgetExceededError reports how far an operation would overshoot the
// account's remaining budget.
type BudgetExceededError struct {
	Limit     decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Amount    decimal.Decimal
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: amount %s is over the remaining %s of %s; confirm to proceed",
		e.Amount, e.Remaining, e.Limit)
}

// Is makes errors.Is(err, ErrBudgetExceeded) match.
func (e *BudgetExceededError) Is(target error) bool {
	return target == ErrBudgetExceeded
}

// PersistenceError wraps a storage failure with the operation it broke.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPersistence) match.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// IsBusiness reports whether err is one of the caller-facing errors rather
// than an infrastructure failure.
func IsBusiness(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrNotFound, ErrInsufficientFunds, ErrSelfReference,
		ErrForbidden, ErrLockActive, ErrBudgetExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func positive(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid(field, "must be greater than zero")
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/models"
)

const accountColumns = `id, email, owner_name, iban, variable_symbol, balance, budget_limit,
	savings, savings_goal, lock_end_time, version, created_at`

// CreateAccount inserts a new account and returns it.
func (t *Tx) CreateAccount(ctx context.Context, na models.NewAccount, now time.Time) (*models.Account, error) {
	result, err := t.q.ExecContext(ctx,
		`INSERT INTO accounts (email, owner_name, iban, variable_symbol, balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		na.Email, na.OwnerName, na.IBAN, na.VariableSymbol, na.OpeningBalance, now.UTC(),
	)
	if err != nil {
		if isConstraintError(err) {
			return nil, fmt.Errorf("%w: account %s / %s", ErrDuplicate, na.Email, na.VariableSymbol)
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return t.GetAccount(ctx, id)
}

// GetAccount retrieves an account by ID.
func (t *Tx) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := t.q.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	return scanAccount(row)
}

// GetAccountByEmail retrieves an account by its email.
func (t *Tx) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := t.q.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email = ? COLLATE NOCASE", email)
	return scanAccount(row)
}

// GetAccountByVariableSymbol retrieves an account by its variable symbol.
func (t *Tx) GetAccountByVariableSymbol(ctx context.Context, vs string) (*models.Account, error) {
	row := t.q.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE variable_symbol = ?", vs)
	return scanAccount(row)
}

// ListAccounts returns all accounts ordered by ID.
func (t *Tx) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := t.q.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// UpdateAccount writes the mutable account fields back, guarded by the
// version read earlier. On success a.Version is advanced.
func (t *Tx) UpdateAccount(ctx context.Context, a *models.Account) error {
	var lockEnd any
	if a.LockEndTime != nil {
		lockEnd = a.LockEndTime.UTC()
	}

	result, err := t.q.ExecContext(ctx,
		`UPDATE accounts SET
			iban = ?, balance = ?, budget_limit = ?, savings = ?, savings_goal = ?,
			lock_end_time = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		a.IBAN, a.Balance, a.BudgetLimit, a.Savings, a.SavingsGoal, lockEnd, a.ID, a.Version,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: account %d", ErrVersionConflict, a.ID)
	}

	a.Version++
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*models.Account, error) {
	var a models.Account
	var lockEnd sql.NullTime
	err := s.Scan(
		&a.ID, &a.Email, &a.OwnerName, &a.IBAN, &a.VariableSymbol, &a.Balance, &a.BudgetLimit,
		&a.Savings, &a.SavingsGoal, &lockEnd, &a.Version, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lockEnd.Valid {
		t := lockEnd.Time
		a.LockEndTime = &t
	}
	return &a, nil
}

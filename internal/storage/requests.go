package storage

import (
	"context"
	"database/sql"
	"errors"

	"wallet-ledger/internal/models"
)

// CreateMoneyRequest inserts a pending money request.
func (t *Tx) CreateMoneyRequest(ctx context.Context, r *models.MoneyRequest) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO money_requests (id, sender_id, receiver_id, amount, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.SenderID, r.ReceiverID, r.Amount, r.Description, r.CreatedAt.UTC(),
	)
	return err
}

// GetMoneyRequest retrieves a pending money request by ID.
func (t *Tx) GetMoneyRequest(ctx context.Context, id string) (*models.MoneyRequest, error) {
	row := t.q.QueryRowContext(ctx,
		"SELECT id, sender_id, receiver_id, amount, description, created_at FROM money_requests WHERE id = ?",
		id,
	)

	var r models.MoneyRequest
	err := row.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Amount, &r.Description, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteMoneyRequest removes a resolved request. It returns ErrNotFound if
// the request was already gone.
func (t *Tx) DeleteMoneyRequest(ctx context.Context, id string) error {
	result, err := t.q.ExecContext(ctx, "DELETE FROM money_requests WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMoneyRequests returns pending requests the account sent or received,
// newest first.
func (t *Tx) ListMoneyRequests(ctx context.Context, accountID int64) ([]models.MoneyRequest, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT id, sender_id, receiver_id, amount, description, created_at
		FROM money_requests
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at DESC`,
		accountID, accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MoneyRequest
	for rows.Next() {
		var r models.MoneyRequest
		if err := rows.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Amount, &r.Description, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

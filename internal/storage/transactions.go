package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"wallet-ledger/internal/models"
)

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	SenderID   *int64
	ReceiverID *int64
	// AccountID matches entries where the account is either side.
	AccountID *int64
	Kinds     []models.TransactionKind
	Since     time.Time
	// Until is exclusive.
	Until time.Time
	Limit int
}

// InsertTransaction appends a ledger entry. There is no update or delete
// counterpart; triggers on the table reject both.
func (t *Tx) InsertTransaction(ctx context.Context, tr *models.Transaction) error {
	var sender any
	if tr.SenderID != nil {
		sender = *tr.SenderID
	}
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO transactions (id, sender_id, receiver_id, amount, kind, category, counterparty, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, sender, tr.ReceiverID, tr.Amount, string(tr.Kind), tr.Category, tr.Counterparty, tr.CreatedAt.UTC(),
	)
	return err
}

// ListTransactions retrieves ledger entries matching f, newest first.
func (t *Tx) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	var where []string
	var args []any

	if f.SenderID != nil {
		where = append(where, "sender_id = ?")
		args = append(args, *f.SenderID)
	}
	if f.ReceiverID != nil {
		where = append(where, "receiver_id = ?")
		args = append(args, *f.ReceiverID)
	}
	if f.AccountID != nil {
		where = append(where, "(sender_id = ? OR receiver_id = ?)")
		args = append(args, *f.AccountID, *f.AccountID)
	}
	if len(f.Kinds) > 0 {
		marks := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			marks[i] = "?"
			args = append(args, string(k))
		}
		where = append(where, "kind IN ("+strings.Join(marks, ", ")+")")
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, f.Until.UTC())
	}

	query := "SELECT id, sender_id, receiver_id, amount, kind, category, counterparty, created_at FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var tr models.Transaction
		var sender sql.NullInt64
		var kind string
		if err := rows.Scan(&tr.ID, &sender, &tr.ReceiverID, &tr.Amount, &kind, &tr.Category, &tr.Counterparty, &tr.CreatedAt); err != nil {
			return nil, err
		}
		if sender.Valid {
			id := sender.Int64
			tr.SenderID = &id
		}
		tr.Kind = models.TransactionKind(kind)
		out = append(out, tr)
	}
	return out, rows.Err()
}

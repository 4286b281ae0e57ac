package storage

import (
	"context"
	"database/sql"
	"time"

	"wallet-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// ProcessedNotification is the idempotency record of an applied deposit.
type ProcessedNotification struct {
	Key            string
	VariableSymbol string
	Amount         decimal.Decimal
	TransactionID  string
	ProcessedAt    time.Time
}

// RecordNotification claims an idempotency key. It reports false, with no
// error, when the key was already claimed.
func (t *Tx) RecordNotification(ctx context.Context, p ProcessedNotification) (bool, error) {
	result, err := t.q.ExecContext(ctx,
		`INSERT INTO processed_notifications (key, variable_symbol, amount, transaction_id, processed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING`,
		p.Key, p.VariableSymbol, p.Amount, p.TransactionID, p.ProcessedAt.UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// NotificationProcessed checks if an idempotency key was already claimed.
func (t *Tx) NotificationProcessed(ctx context.Context, key string) (bool, error) {
	var count int
	err := t.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM processed_notifications WHERE key = ?", key).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// EnqueueEvent writes an outbox event.
func (t *Tx) EnqueueEvent(ctx context.Context, e *models.OutboxEvent) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO outbox_events (id, event_type, account_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.EventType, e.AccountID, string(e.Payload), e.CreatedAt.UTC(),
	)
	return err
}

// PendingEvents returns unpublished events that have been attempted fewer
// than maxAttempts times, oldest first.
func (t *Tx) PendingEvents(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT id, event_type, account_id, payload, attempts, last_error, published_at, created_at
		FROM outbox_events
		WHERE published_at IS NULL AND attempts < ?
		ORDER BY created_at ASC
		LIMIT ?`,
		maxAttempts, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OutboxEvent
	for rows.Next() {
		var e models.OutboxEvent
		var payload string
		var published sql.NullTime
		if err := rows.Scan(&e.ID, &e.EventType, &e.AccountID, &payload, &e.Attempts, &e.LastError, &published, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = []byte(payload)
		if published.Valid {
			at := published.Time
			e.PublishedAt = &at
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkEventPublished records a successful delivery.
func (t *Tx) MarkEventPublished(ctx context.Context, id string, at time.Time) error {
	_, err := t.q.ExecContext(ctx,
		"UPDATE outbox_events SET published_at = ?, attempts = attempts + 1, last_error = '' WHERE id = ?",
		at.UTC(), id,
	)
	return err
}

// MarkEventFailed records a failed delivery attempt.
func (t *Tx) MarkEventFailed(ctx context.Context, id string, cause string) error {
	_, err := t.q.ExecContext(ctx,
		"UPDATE outbox_events SET attempts = attempts + 1, last_error = ? WHERE id = ?",
		cause, id,
	)
	return err
}

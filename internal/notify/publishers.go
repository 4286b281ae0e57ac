package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/models"

	"go.uber.org/zap"
)

// Message is the wire form of an event sent to collaborators.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	AccountID int64           `json:"accountId"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Encode renders e as a Message.
func Encode(e models.OutboxEvent) ([]byte, error) {
	payload := json.RawMessage(e.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return json.Marshal(Message{
		ID:        e.ID,
		Type:      e.EventType,
		AccountID: e.AccountID,
		Payload:   payload,
		CreatedAt: e.CreatedAt.UTC(),
	})
}

// LogPublisher writes events to the log. It is the fallback when no
// collaborator is configured.
type LogPublisher struct {
	Logger *zap.Logger
}

func (p LogPublisher) Publish(ctx context.Context, e models.OutboxEvent) error {
	p.Logger.Info("event",
		zap.String("event_id", e.ID),
		zap.String("event_type", e.EventType),
		zap.Int64("account_id", e.AccountID),
		zap.ByteString("payload", e.Payload),
	)
	return nil
}

// Multi fans an event out to every publisher. The event counts as
// delivered only when all of them succeed.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e models.OutboxEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("publish %s: %w", e.ID, errors.Join(errs...))
	}
	return nil
}

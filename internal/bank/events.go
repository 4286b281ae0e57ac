package bank

import (
	"context"
	"encoding/json"
	"fmt"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/google/uuid"
)

// enqueue writes an outbox event in the same transaction as the mutation
// that produced it.
func (s *Service) enqueue(ctx context.Context, tx *storage.Tx, eventType string, accountID int64, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return tx.EnqueueEvent(ctx, &models.OutboxEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		AccountID: accountID,
		Payload:   body,
		CreatedAt: s.clock(),
	})
}

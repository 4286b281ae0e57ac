package bank

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// DepositResult is the outcome of applying a payment notification.
// Duplicate deliveries report Duplicate and carry no transaction.
type DepositResult struct {
	Key         string              `json:"key"`
	Duplicate   bool                `json:"duplicate"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// PaymentReceived is the payload of a payment.received event.
type PaymentReceived struct {
	TransactionID  string          `json:"transactionId"`
	AccountID      int64           `json:"accountId"`
	Email          string          `json:"email"`
	VariableSymbol string          `json:"variableSymbol"`
	SenderAccount  string          `json:"senderAccount"`
	Amount         decimal.Decimal `json:"amount"`
}

// DepositKey fingerprints a notification. A collaborator transaction id,
// when present, identifies the payment on its own; otherwise the key covers
// sender, receiver, amount, timestamp and variable symbol.
func DepositKey(n models.PaymentNotification) string {
	var parts []string
	if n.TransactionID != "" {
		parts = []string{"txid", n.TransactionID, NormalizeIBAN(n.ReceiverAccount)}
	} else {
		parts = []string{
			strings.TrimSpace(n.SenderAccount),
			NormalizeIBAN(n.ReceiverAccount),
			n.Amount.String(),
			n.Timestamp.UTC().Format(time.RFC3339Nano),
			strings.TrimSpace(n.VariableSymbol),
		}
	}
	sum := blake2b.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// IsNew reports whether the notification has not been applied yet. It is
// advisory; ApplyDeposit claims the key atomically.
func (s *Service) IsNew(ctx context.Context, n models.PaymentNotification) (bool, error) {
	seen, err := s.db.Queries().NotificationProcessed(ctx, DepositKey(n))
	if err != nil {
		return false, s.read("check notification", err)
	}
	return !seen, nil
}

// ApplyDeposit credits an external payment to the account matching its
// variable symbol. Each notification is applied at most once; replays
// return a DepositResult with Duplicate set and no error.
func (s *Service) ApplyDeposit(ctx context.Context, n models.PaymentNotification) (*DepositResult, error) {
	if err := positive("amount", n.Amount); err != nil {
		return nil, err
	}
	if NormalizeIBAN(n.ReceiverAccount) != s.bankIBAN {
		return nil, invalid("receiverAccount", "%q is not the bank's receiving account", n.ReceiverAccount)
	}
	vs := strings.TrimSpace(n.VariableSymbol)
	if vs == "" {
		return nil, invalid("variableSymbol", "is required")
	}
	// Without either field the key cannot tell two equal payments apart.
	if n.TransactionID == "" && n.Timestamp.IsZero() {
		return nil, invalid("timestamp", "timestamp or transactionId is required")
	}

	target, err := s.db.Queries().GetAccountByVariableSymbol(ctx, vs)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: no account with variable symbol %q", ErrNotFound, vs)
	}
	if err != nil {
		return nil, s.read("apply deposit", err)
	}

	res := &DepositResult{Key: DepositKey(n)}
	err = s.update(ctx, "apply deposit", []int64{target.ID}, func(tx *storage.Tx) error {
		a, err := loadAccount(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		entry := s.newTransaction(models.KindDeposit, nil, a.ID, n.Amount, "Bank deposit")
		entry.Counterparty = strings.TrimSpace(n.SenderAccount)

		claimed, err := tx.RecordNotification(ctx, storage.ProcessedNotification{
			Key:            res.Key,
			VariableSymbol: vs,
			Amount:         n.Amount,
			TransactionID:  entry.ID,
			ProcessedAt:    entry.CreatedAt,
		})
		if err != nil {
			return err
		}
		if !claimed {
			res.Duplicate = true
			return nil
		}

		a.Balance = a.Balance.Add(n.Amount)
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return err
		}
		res.Transaction = entry

		return s.enqueue(ctx, tx, models.EventPaymentReceived, a.ID, PaymentReceived{
			TransactionID:  entry.ID,
			AccountID:      a.ID,
			Email:          a.Email,
			VariableSymbol: a.VariableSymbol,
			SenderAccount:  entry.Counterparty,
			Amount:         n.Amount,
		})
	})
	if err != nil {
		return nil, err
	}

	if res.Duplicate {
		s.logger.Info("duplicate deposit notification ignored", zap.String("key", res.Key), zap.String("variable_symbol", vs))
		return res, nil
	}
	s.afterCommit()

	s.logger.Info("deposit applied",
		zap.String("transaction_id", res.Transaction.ID),
		zap.Int64("account_id", target.ID),
		zap.String("amount", n.Amount.String()),
	)
	return res, nil
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	KindDeposit  TransactionKind = "DEPOSIT"
	KindWithdraw TransactionKind = "WITHDRAW"
	KindTransfer TransactionKind = "TRANSFER"
	KindPurchase TransactionKind = "PURCHASE"
	KindDeclined TransactionKind = "DECLINED"
)

// Valid reports whether k is one of the known kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdraw, KindTransfer, KindPurchase, KindDeclined:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry.
//
// SenderID is nil for external deposits. Withdrawals and purchases carry the
// debited account as both sender and receiver; the money leaves to Counterparty.
type Transaction struct {
	ID           string          `json:"id"`
	SenderID     *int64          `json:"sender_id,omitempty"`
	ReceiverID   int64           `json:"receiver_id"`
	Amount       decimal.Decimal `json:"amount"`
	Kind         TransactionKind `json:"kind"`
	Category     string          `json:"category"`
	Counterparty string          `json:"counterparty,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// MoneyRequest is a pending request from SenderID asking ReceiverID to pay Amount.
type MoneyRequest struct {
	ID          string          `json:"id"`
	SenderID    int64           `json:"sender_id"`
	ReceiverID  int64           `json:"receiver_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

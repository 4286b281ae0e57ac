package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentNotification is an incoming payment reported by the bank collaborator.
type PaymentNotification struct {
	SenderAccount   string          `json:"senderAccount"`
	ReceiverAccount string          `json:"receiverAccount"`
	Amount          decimal.Decimal `json:"amount"`
	VariableSymbol  string          `json:"variableSymbol"`
	Timestamp       time.Time       `json:"timestamp"`
	TransactionID   string          `json:"transactionId,omitempty"`
}

// PurchaseNotification is a purchase reported by the store collaborator.
type PurchaseNotification struct {
	ItemName           string          `json:"itemName"`
	ItemPrice          decimal.Decimal `json:"itemPrice"`
	Quantity           int64           `json:"quantity"`
	UserVariableSymbol string          `json:"userVariableSymbol"`
}

// Event types written to the outbox.
const (
	EventPaymentReceived   = "payment.received"
	EventPurchaseCompleted = "purchase.completed"
	EventMoneyRequested    = "money_request.created"
)

// OutboxEvent is a notification queued in the same transaction as the
// mutation that produced it and delivered after commit.
type OutboxEvent struct {
	ID          string     `json:"id"`
	EventType   string     `json:"event_type"`
	AccountID   int64      `json:"account_id"`
	Payload     []byte     `json:"payload"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

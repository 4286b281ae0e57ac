package bank

import (
	"context"
	"errors"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/shopspring/decimal"
)

// Ledger is the append-only transaction log.
type Ledger struct {
	db *storage.DB
}

// NewLedger creates a Ledger over db.
func NewLedger(db *storage.DB) *Ledger {
	return &Ledger{db: db}
}

// Append validates and writes an entry inside tx. Entries are never updated
// or removed once appended.
func (l *Ledger) Append(ctx context.Context, tx *storage.Tx, tr *models.Transaction) error {
	switch {
	case tr.ID == "":
		return errors.New("ledger: transaction id is required")
	case !tr.Kind.Valid():
		return errors.New("ledger: unknown transaction kind " + string(tr.Kind))
	case !tr.Amount.IsPositive():
		return invalid("amount", "must be greater than zero")
	case tr.ReceiverID == 0:
		return errors.New("ledger: receiver is required")
	case tr.CreatedAt.IsZero():
		return errors.New("ledger: timestamp is required")
	}
	return tx.InsertTransaction(ctx, tr)
}

// BySender lists entries the account sent, newest first.
func (l *Ledger) BySender(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error) {
	return l.db.Queries().ListTransactions(ctx, storage.TransactionFilter{SenderID: &accountID, Limit: limit})
}

// ByReceiver lists entries the account received, newest first.
func (l *Ledger) ByReceiver(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error) {
	return l.db.Queries().ListTransactions(ctx, storage.TransactionFilter{ReceiverID: &accountID, Limit: limit})
}

// ByAccount lists entries on either side of the account, newest first.
func (l *Ledger) ByAccount(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error) {
	return l.db.Queries().ListTransactions(ctx, storage.TransactionFilter{AccountID: &accountID, Limit: limit})
}

// Effect returns the signed change e makes to the funds (balance plus
// savings) of accountID.
func Effect(e models.Transaction, accountID int64) decimal.Decimal {
	sent := e.SenderID != nil && *e.SenderID == accountID
	switch e.Kind {
	case models.KindDeposit:
		if e.ReceiverID == accountID {
			return e.Amount
		}
	case models.KindTransfer:
		switch {
		case sent && e.ReceiverID == accountID:
			return decimal.Zero
		case sent:
			return e.Amount.Neg()
		case e.ReceiverID == accountID:
			return e.Amount
		}
	case models.KindWithdraw, models.KindPurchase:
		if sent {
			return e.Amount.Neg()
		}
	}
	return decimal.Zero
}

// Reconciliation compares an account's stored funds with its ledger.
type Reconciliation struct {
	AccountID int64           `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Savings   decimal.Decimal `json:"savings"`
	Ledger    decimal.Decimal `json:"ledger"`
	Entries   int             `json:"entries"`
	Balanced  bool            `json:"balanced"`
}

// Reconcile checks that balance plus savings equals the sum of the
// account's ledger entries. Savings moves stay inside the account and are
// not ledger entries, hence the sum.
func (s *Service) Reconcile(ctx context.Context, accountID int64) (*Reconciliation, error) {
	var rec *Reconciliation
	err := s.update(ctx, "reconcile", []int64{accountID}, func(tx *storage.Tx) error {
		a, err := loadAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		entries, err := tx.ListTransactions(ctx, storage.TransactionFilter{AccountID: &accountID})
		if err != nil {
			return err
		}

		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(Effect(e, accountID))
		}
		rec = &Reconciliation{
			AccountID: accountID,
			Balance:   a.Balance,
			Savings:   a.Savings,
			Ledger:    sum,
			Entries:   len(entries),
			Balanced:  a.Balance.Add(a.Savings).Equal(sum),
		}
		return nil
	})
	return rec, err
}

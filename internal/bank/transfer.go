package bank

import (
	"context"
	"fmt"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Transfer moves amount from senderID to the account identified by
// recipient (email or variable symbol). When the amount is over the
// sender's remaining budget it returns a *BudgetExceededError and nothing
// changes; ConfirmTransfer with the same arguments forces it through.
func (s *Service) Transfer(ctx context.Context, senderID int64, recipient string, amount decimal.Decimal) (*models.Transaction, error) {
	return s.transfer(ctx, senderID, recipient, amount, true)
}

// ConfirmTransfer is Transfer without the budget soft block.
func (s *Service) ConfirmTransfer(ctx context.Context, senderID int64, recipient string, amount decimal.Decimal) (*models.Transaction, error) {
	return s.transfer(ctx, senderID, recipient, amount, false)
}

func (s *Service) transfer(ctx context.Context, senderID int64, recipient string, amount decimal.Decimal, guard bool) (*models.Transaction, error) {
	if err := positive("amount", amount); err != nil {
		return nil, err
	}

	to, err := resolveRecipient(ctx, s.db.Queries(), recipient)
	if err != nil {
		return nil, s.read("transfer", err)
	}
	if to.ID == senderID {
		return nil, ErrSelfReference
	}

	var out *models.Transaction
	err = s.update(ctx, "transfer", []int64{senderID, to.ID}, func(tx *storage.Tx) error {
		from, err := loadAccount(ctx, tx, senderID)
		if err != nil {
			return err
		}
		dest, err := loadAccount(ctx, tx, to.ID)
		if err != nil {
			return err
		}

		if from.Balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s is less than %s", ErrInsufficientFunds, from.Balance, amount)
		}
		if guard {
			if err := s.budget.Check(ctx, tx, from, amount, s.clock()); err != nil {
				return err
			}
		}

		from.Balance = from.Balance.Sub(amount)
		dest.Balance = dest.Balance.Add(amount)
		if err := tx.UpdateAccount(ctx, from); err != nil {
			return err
		}
		if err := tx.UpdateAccount(ctx, dest); err != nil {
			return err
		}

		entry := s.newTransaction(models.KindTransfer, &from.ID, dest.ID, amount, "Transfer")
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer completed",
		zap.String("transaction_id", out.ID),
		zap.Int64("sender_id", senderID),
		zap.Int64("receiver_id", to.ID),
		zap.String("amount", amount.String()),
		zap.Bool("confirmed", !guard),
	)
	return out, nil
}

// Withdraw sends amount from the account to its configured IBAN. Like
// Transfer, it soft blocks when over budget.
func (s *Service) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.Transaction, error) {
	return s.withdraw(ctx, accountID, amount, true)
}

// ConfirmWithdraw is Withdraw without the budget soft block.
func (s *Service) ConfirmWithdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.Transaction, error) {
	return s.withdraw(ctx, accountID, amount, false)
}

func (s *Service) withdraw(ctx context.Context, accountID int64, amount decimal.Decimal, guard bool) (*models.Transaction, error) {
	if err := positive("amount", amount); err != nil {
		return nil, err
	}

	var out *models.Transaction
	err := s.update(ctx, "withdraw", []int64{accountID}, func(tx *storage.Tx) error {
		a, err := loadAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if a.IBAN == "" {
			return invalid("iban", "no IBAN configured for withdrawals")
		}
		if a.Balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s is less than %s", ErrInsufficientFunds, a.Balance, amount)
		}
		if guard {
			if err := s.budget.Check(ctx, tx, a, amount, s.clock()); err != nil {
				return err
			}
		}

		a.Balance = a.Balance.Sub(amount)
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}

		entry := s.newTransaction(models.KindWithdraw, &a.ID, a.ID, amount, "Withdrawal")
		entry.Counterparty = a.IBAN
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal completed",
		zap.String("transaction_id", out.ID),
		zap.Int64("account_id", accountID),
		zap.String("amount", amount.String()),
		zap.String("iban", out.Counterparty),
	)
	return out, nil
}

// PurchaseCompleted is the payload of a purchase.completed event.
type PurchaseCompleted struct {
	TransactionID  string          `json:"transactionId"`
	AccountID      int64           `json:"accountId"`
	VariableSymbol string          `json:"variableSymbol"`
	ItemName       string          `json:"itemName"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Quantity       int64           `json:"quantity"`
	Total          decimal.Decimal `json:"total"`
}

// Purchase debits unitPrice*quantity from the buyer identified by variable
// symbol. The store is notified through the outbox after commit.
func (s *Service) Purchase(ctx context.Context, buyerVS string, unitPrice decimal.Decimal, quantity int64, itemName string) (*models.Transaction, error) {
	if err := positive("itemPrice", unitPrice); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, invalid("quantity", "must be greater than zero")
	}
	if buyerVS == "" {
		return nil, invalid("userVariableSymbol", "is required")
	}

	buyer, err := resolveRecipient(ctx, s.db.Queries(), buyerVS)
	if err != nil {
		return nil, s.read("purchase", err)
	}
	total := unitPrice.Mul(decimal.NewFromInt(quantity))

	var out *models.Transaction
	err = s.update(ctx, "purchase", []int64{buyer.ID}, func(tx *storage.Tx) error {
		a, err := loadAccount(ctx, tx, buyer.ID)
		if err != nil {
			return err
		}
		if a.Balance.LessThan(total) {
			return fmt.Errorf("%w: balance %s is less than %s", ErrInsufficientFunds, a.Balance, total)
		}

		a.Balance = a.Balance.Sub(total)
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}

		entry := s.newTransaction(models.KindPurchase, &a.ID, a.ID, total, "Purchase")
		entry.Counterparty = itemName
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return err
		}
		out = entry

		return s.enqueue(ctx, tx, models.EventPurchaseCompleted, a.ID, PurchaseCompleted{
			TransactionID:  entry.ID,
			AccountID:      a.ID,
			VariableSymbol: a.VariableSymbol,
			ItemName:       itemName,
			UnitPrice:      unitPrice,
			Quantity:       quantity,
			Total:          total,
		})
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit()

	s.logger.Info("purchase completed",
		zap.String("transaction_id", out.ID),
		zap.Int64("account_id", buyer.ID),
		zap.String("item", itemName),
		zap.String("total", total.String()),
	)
	return out, nil
}

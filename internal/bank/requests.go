package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MoneyRequested is the payload of a money_request.created event.
type MoneyRequested struct {
	RequestID   string          `json:"requestId"`
	FromEmail   string          `json:"fromEmail"`
	FromName    string          `json:"fromName"`
	ToEmail     string          `json:"toEmail"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// PendingRequests groups the open requests of one account.
type PendingRequests struct {
	Incoming []models.MoneyRequest `json:"incoming"`
	Outgoing []models.MoneyRequest `json:"outgoing"`
}

// SendMoneyRequest asks the account identified by recipient to pay amount
// to senderID. The recipient is notified through the outbox.
func (s *Service) SendMoneyRequest(ctx context.Context, senderID int64, recipient string, amount decimal.Decimal, description string) (*models.MoneyRequest, error) {
	if err := positive("amount", amount); err != nil {
		return nil, err
	}

	q := s.db.Queries()
	from, err := loadAccount(ctx, q, senderID)
	if err != nil {
		return nil, s.read("send request", err)
	}
	ident := strings.TrimSpace(recipient)
	if strings.EqualFold(ident, from.Email) || ident == from.VariableSymbol {
		return nil, ErrSelfReference
	}
	to, err := resolveRecipient(ctx, q, ident)
	if err != nil {
		return nil, s.read("send request", err)
	}
	if to.ID == from.ID {
		return nil, ErrSelfReference
	}

	req := &models.MoneyRequest{
		ID:          uuid.NewString(),
		SenderID:    from.ID,
		ReceiverID:  to.ID,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.clock(),
	}
	err = s.update(ctx, "send request", []int64{from.ID, to.ID}, func(tx *storage.Tx) error {
		if err := tx.CreateMoneyRequest(ctx, req); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.EventMoneyRequested, to.ID, MoneyRequested{
			RequestID:   req.ID,
			FromEmail:   from.Email,
			FromName:    from.OwnerName,
			ToEmail:     to.Email,
			Amount:      amount,
			Description: req.Description,
		})
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit()

	s.logger.Info("money request created",
		zap.String("request_id", req.ID),
		zap.Int64("sender_id", from.ID),
		zap.Int64("receiver_id", to.ID),
		zap.String("amount", amount.String()),
	)
	return req, nil
}

// AcceptRequest pays a pending request from acceptorID to the requester.
// On any failure the request stays pending and no balance changes.
func (s *Service) AcceptRequest(ctx context.Context, requestID string, acceptorID int64) (*models.Transaction, error) {
	req, err := s.pendingRequest(ctx, requestID, acceptorID)
	if err != nil {
		return nil, err
	}

	var out *models.Transaction
	err = s.update(ctx, "accept request", []int64{req.SenderID, req.ReceiverID}, func(tx *storage.Tx) error {
		req, err := getRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		payer, err := loadAccount(ctx, tx, req.ReceiverID)
		if err != nil {
			return err
		}
		payee, err := loadAccount(ctx, tx, req.SenderID)
		if err != nil {
			return err
		}
		if payer.Balance.LessThan(req.Amount) {
			return fmt.Errorf("%w: balance %s is less than %s", ErrInsufficientFunds, payer.Balance, req.Amount)
		}

		payer.Balance = payer.Balance.Sub(req.Amount)
		payee.Balance = payee.Balance.Add(req.Amount)
		if err := tx.UpdateAccount(ctx, payer); err != nil {
			return err
		}
		if err := tx.UpdateAccount(ctx, payee); err != nil {
			return err
		}

		entry := s.newTransaction(models.KindTransfer, &payer.ID, payee.ID, req.Amount, "Money Request")
		entry.Counterparty = req.Description
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return err
		}
		out = entry
		return deleteRequest(ctx, tx, req.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("money request accepted",
		zap.String("request_id", requestID),
		zap.String("transaction_id", out.ID),
	)
	return out, nil
}

// DeclineRequest resolves a pending request without moving money. The
// decline is kept in the ledger for audit.
func (s *Service) DeclineRequest(ctx context.Context, requestID string, declinerID int64) (*models.Transaction, error) {
	req, err := s.pendingRequest(ctx, requestID, declinerID)
	if err != nil {
		return nil, err
	}

	var out *models.Transaction
	err = s.update(ctx, "decline request", []int64{req.SenderID, req.ReceiverID}, func(tx *storage.Tx) error {
		req, err := getRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		entry := s.newTransaction(models.KindDeclined, &req.ReceiverID, req.SenderID, req.Amount, "Money Request")
		entry.Counterparty = req.Description
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return err
		}
		out = entry
		return deleteRequest(ctx, tx, req.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("money request declined", zap.String("request_id", requestID))
	return out, nil
}

// PendingRequests lists the account's open requests.
func (s *Service) PendingRequests(ctx context.Context, accountID int64) (*PendingRequests, error) {
	q := s.db.Queries()
	if _, err := loadAccount(ctx, q, accountID); err != nil {
		return nil, s.read("pending requests", err)
	}
	all, err := q.ListMoneyRequests(ctx, accountID)
	if err != nil {
		return nil, s.read("pending requests", err)
	}

	out := &PendingRequests{
		Incoming: []models.MoneyRequest{},
		Outgoing: []models.MoneyRequest{},
	}
	for _, r := range all {
		if r.ReceiverID == accountID {
			out.Incoming = append(out.Incoming, r)
		} else {
			out.Outgoing = append(out.Outgoing, r)
		}
	}
	return out, nil
}

// pendingRequest loads a request and checks that accountID is the one asked
// to pay it.
func (s *Service) pendingRequest(ctx context.Context, requestID string, accountID int64) (*models.MoneyRequest, error) {
	req, err := getRequest(ctx, s.db.Queries(), requestID)
	if err != nil {
		return nil, s.read("load request", err)
	}
	if req.ReceiverID != accountID {
		return nil, fmt.Errorf("%w: request %s is not addressed to account %d", ErrForbidden, requestID, accountID)
	}
	return req, nil
}

func getRequest(ctx context.Context, tx *storage.Tx, id string) (*models.MoneyRequest, error) {
	req, err := tx.GetMoneyRequest(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: money request %s", ErrNotFound, id)
	}
	return req, err
}

func deleteRequest(ctx context.Context, tx *storage.Tx, id string) error {
	err := tx.DeleteMoneyRequest(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: money request %s", ErrNotFound, id)
	}
	return err
}

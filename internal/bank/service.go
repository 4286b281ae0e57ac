// Package bank is the account ledger and transfer engine. Every balance,
// savings or budget mutation goes through Service, which holds the account
// locks, runs the unit of work in one database transaction and appends the
// ledger entry.
package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxAttempts bounds how often a unit of work is replayed after a version
// conflict.
const maxAttempts = 3

// EventDispatcher delivers queued outbox events. Notify must not block.
type EventDispatcher interface {
	Notify()
}

// Service is the transfer orchestrator.
type Service struct {
	db         *storage.DB
	ledger     *Ledger
	budget     *BudgetGuard
	locks      *accountLocks
	bankIBAN   string
	now        func() time.Time
	logger     *zap.Logger
	dispatcher EventDispatcher
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now, mainly for savings-lock tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDispatcher sets the dispatcher woken after commits that queued events.
func WithDispatcher(d EventDispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// NewService creates the engine. bankIBAN is the single receiving account
// external deposits must be addressed to.
func NewService(db *storage.DB, bankIBAN string, opts ...Option) *Service {
	s := &Service{
		db:       db,
		locks:    newAccountLocks(),
		bankIBAN: NormalizeIBAN(bankIBAN),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = NewLedger(db)
	s.budget = &BudgetGuard{}
	return s
}

// Ledger returns the read side of the transaction log.
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// update runs fn in one transaction while holding the locks of ids,
// acquired in ascending order. Version conflicts replay fn; anything that is
// not a business error comes back as a PersistenceError.
func (s *Service) update(ctx context.Context, op string, ids []int64, fn func(*storage.Tx) error) error {
	unlock := s.locks.lock(ids...)
	defer unlock()

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.db.WithTx(ctx, fn)
		if !errors.Is(err, storage.ErrVersionConflict) {
			break
		}
		s.logger.Warn("version conflict, retrying",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Int64s("accounts", ids))
	}

	switch {
	case err == nil:
		return nil
	case IsBusiness(err):
		return err
	case errors.Is(err, storage.ErrVersionConflict):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	default:
		s.logger.Error("unit of work failed", zap.String("op", op), zap.Error(err))
		return &PersistenceError{Op: op, Err: err}
	}
}

// afterCommit wakes the dispatcher. Delivery happens off the request path;
// failures stay in the outbox and never affect the committed operation.
func (s *Service) afterCommit() {
	if s.dispatcher != nil {
		s.dispatcher.Notify()
	}
}

func (s *Service) read(op string, err error) error {
	if err == nil || IsBusiness(err) {
		return err
	}
	s.logger.Error("read failed", zap.String("op", op), zap.Error(err))
	return &PersistenceError{Op: op, Err: err}
}

func loadAccount(ctx context.Context, tx *storage.Tx, id int64) (*models.Account, error) {
	a, err := tx.GetAccount(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: account %d", ErrNotFound, id)
	}
	return a, err
}

// resolveRecipient looks an account up by email when the identifier looks
// like one, otherwise by variable symbol.
func resolveRecipient(ctx context.Context, tx *storage.Tx, identifier string) (*models.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, invalid("recipient", "is required")
	}

	var a *models.Account
	var err error
	if strings.Contains(identifier, "@") {
		a, err = tx.GetAccountByEmail(ctx, identifier)
	} else {
		a, err = tx.GetAccountByVariableSymbol(ctx, identifier)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: recipient %q", ErrNotFound, identifier)
	}
	return a, err
}

func (s *Service) newTransaction(kind models.TransactionKind, sender *int64, receiver int64, amount decimal.Decimal, category string) *models.Transaction {
	return &models.Transaction{
		ID:         uuid.NewString(),
		SenderID:   sender,
		ReceiverID: receiver,
		Amount:     amount,
		Kind:       kind,
		Category:   category,
		CreatedAt:  s.clock(),
	}
}

// OpenAccount creates an account. A positive opening balance is recorded as
// a Deposit so the ledger reconciles from the first entry.
func (s *Service) OpenAccount(ctx context.Context, na models.NewAccount) (*models.Account, error) {
	na.Email = strings.ToLower(strings.TrimSpace(na.Email))
	na.VariableSymbol = strings.TrimSpace(na.VariableSymbol)
	na.IBAN = NormalizeIBAN(na.IBAN)

	if na.Email == "" || !strings.Contains(na.Email, "@") {
		return nil, invalid("email", "must be an email address")
	}
	if na.VariableSymbol == "" {
		return nil, invalid("variable_symbol", "is required")
	}
	if na.IBAN != "" && !ValidIBAN(na.IBAN) {
		return nil, invalid("iban", "%q is not a valid IBAN", na.IBAN)
	}
	if na.OpeningBalance.IsNegative() {
		return nil, invalid("opening_balance", "must not be negative")
	}

	var out *models.Account
	err := s.update(ctx, "open account", nil, func(tx *storage.Tx) error {
		a, err := tx.CreateAccount(ctx, na, s.clock())
		if errors.Is(err, storage.ErrDuplicate) {
			return invalid("account", "email or variable symbol already in use")
		}
		if err != nil {
			return err
		}
		if na.OpeningBalance.IsPositive() {
			entry := s.newTransaction(models.KindDeposit, nil, a.ID, na.OpeningBalance, "Opening balance")
			if err := s.ledger.Append(ctx, tx, entry); err != nil {
				return err
			}
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account opened", zap.Int64("account_id", out.ID), zap.String("variable_symbol", out.VariableSymbol))
	return out, nil
}

// Account returns the current state of an account.
func (s *Service) Account(ctx context.Context, id int64) (*models.Account, error) {
	a, err := loadAccount(ctx, s.db.Queries(), id)
	return a, s.read("get account", err)
}

// Accounts lists every account ordered by id.
func (s *Service) Accounts(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.db.Queries().ListAccounts(ctx)
	return accounts, s.read("list accounts", err)
}

// AccountByIdentifier resolves an email or variable symbol to an account.
func (s *Service) AccountByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	a, err := resolveRecipient(ctx, s.db.Queries(), identifier)
	return a, s.read("resolve account", err)
}

// SetIBAN configures the external account withdrawals are sent to.
func (s *Service) SetIBAN(ctx context.Context, accountID int64, iban string) (*models.Account, error) {
	iban = NormalizeIBAN(iban)
	if !ValidIBAN(iban) {
		return nil, invalid("iban", "%q is not a valid IBAN", iban)
	}

	var out *models.Account
	err := s.update(ctx, "set iban", []int64{accountID}, func(tx *storage.Tx) error {
		a, err := loadAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		a.IBAN = iban
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

// History returns the account's ledger entries, newest first.
func (s *Service) History(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error) {
	if _, err := s.Account(ctx, accountID); err != nil {
		return nil, err
	}
	entries, err := s.ledger.ByAccount(ctx, accountID, limit)
	return entries, s.read("history", err)
}

// NormalizeIBAN strips spaces and upper-cases an IBAN.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}

// ValidIBAN performs a structural check: country code, check digits and an
// 11-30 character alphanumeric BBAN.
func ValidIBAN(iban string) bool {
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	for i, r := range iban {
		switch {
		case i < 2 && (r < 'A' || r > 'Z'):
			return false
		case i >= 2 && i < 4 && (r < '0' || r > '9'):
			return false
		case (r < 'A' || r > 'Z') && (r < '0' || r > '9'):
			return false
		}
	}
	return true
}

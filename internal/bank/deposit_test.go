package bank

import (
	"sync"
	"time"

	"wallet-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *ServiceTestSuite) notification(vs, amount string) models.PaymentNotification {
	return models.PaymentNotification{
		SenderAccount:   "DE89370400440532013000",
		ReceiverAccount: testBankIBAN,
		Amount:          dec(amount),
		VariableSymbol:  vs,
		Timestamp:       time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func (suite *ServiceTestSuite) TestApplyDepositOnce() {
	a := suite.open("a@example.com", "VS1", "0")
	n := suite.notification("VS1", "25")

	fresh, err := suite.svc.IsNew(suite.ctx, n)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), fresh)

	res, err := suite.svc.ApplyDeposit(suite.ctx, n)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), res.Duplicate)
	require.NotNil(suite.T(), res.Transaction)
	assert.Equal(suite.T(), models.KindDeposit, res.Transaction.Kind)
	assert.Nil(suite.T(), res.Transaction.SenderID)
	assert.Equal(suite.T(), "DE89370400440532013000", res.Transaction.Counterparty)

	res, err = suite.svc.ApplyDeposit(suite.ctx, n)
	require.NoError(suite.T(), err, "a replay is not an error")
	assert.True(suite.T(), res.Duplicate)
	assert.Nil(suite.T(), res.Transaction)

	fresh, err = suite.svc.IsNew(suite.ctx, n)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), fresh)

	suite.assertAmount("25", suite.balance(a.ID))
	received, err := suite.svc.Ledger().ByReceiver(suite.ctx, a.ID, 0)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), received, 1)

	events, err := suite.db.Queries().PendingEvents(suite.ctx, 10, 5)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), events, 1)
	assert.Equal(suite.T(), models.EventPaymentReceived, events[0].EventType)
	assert.Equal(suite.T(), a.ID, events[0].AccountID)
	assert.Equal(suite.T(), 1, suite.dispatcher.Calls(), "dispatch runs only for the applied delivery")

	suite.assertReconciled(a.ID)
}

func (suite *ServiceTestSuite) TestApplyDepositConcurrentDuplicates() {
	a := suite.open("a@example.com", "VS1", "0")
	n := suite.notification("VS1", "25")

	const deliveries = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for range deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := suite.svc.ApplyDeposit(suite.ctx, n)
			if !assert.NoError(suite.T(), err) {
				return
			}
			if !res.Duplicate {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(suite.T(), 1, applied)
	suite.assertAmount("25", suite.balance(a.ID))
}

func (suite *ServiceTestSuite) TestApplyDepositDistinctTimestamps() {
	a := suite.open("a@example.com", "VS1", "0")
	first := suite.notification("VS1", "25")
	second := first
	second.Timestamp = first.Timestamp.Add(time.Second)

	_, err := suite.svc.ApplyDeposit(suite.ctx, first)
	require.NoError(suite.T(), err)
	res, err := suite.svc.ApplyDeposit(suite.ctx, second)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), res.Duplicate)

	suite.assertAmount("50", suite.balance(a.ID))
}

func (suite *ServiceTestSuite) TestApplyDepositByTransactionID() {
	a := suite.open("a@example.com", "VS1", "0")
	first := suite.notification("VS1", "25")
	first.TransactionID = "bank-42"
	retry := first
	retry.Timestamp = first.Timestamp.Add(time.Minute)

	_, err := suite.svc.ApplyDeposit(suite.ctx, first)
	require.NoError(suite.T(), err)
	res, err := suite.svc.ApplyDeposit(suite.ctx, retry)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), res.Duplicate, "a retry with a new timestamp is still the same payment")

	suite.assertAmount("25", suite.balance(a.ID))
}

func (suite *ServiceTestSuite) TestApplyDepositRejections() {
	suite.open("a@example.com", "VS1", "0")

	wrongIBAN := suite.notification("VS1", "25")
	wrongIBAN.ReceiverAccount = "DE89370400440532013000"
	_, err := suite.svc.ApplyDeposit(suite.ctx, wrongIBAN)
	assert.ErrorIs(suite.T(), err, ErrValidation)

	_, err = suite.svc.ApplyDeposit(suite.ctx, suite.notification("VS1", "0"))
	assert.ErrorIs(suite.T(), err, ErrValidation)

	_, err = suite.svc.ApplyDeposit(suite.ctx, suite.notification("VS404", "10"))
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	spaced := suite.notification("VS1", "10")
	spaced.ReceiverAccount = "cz65 0800 0000 1920 0014 5399"
	res, err := suite.svc.ApplyDeposit(suite.ctx, spaced)
	require.NoError(suite.T(), err, "receiver IBAN is compared normalized")
	assert.False(suite.T(), res.Duplicate)
}

func (suite *ServiceTestSuite) TestApplyDepositRequiresTimestampOrTransactionID() {
	a := suite.open("a@example.com", "VS1", "0")

	bare := suite.notification("VS1", "25")
	bare.Timestamp = time.Time{}

	_, err := suite.svc.ApplyDeposit(suite.ctx, bare)
	assert.ErrorIs(suite.T(), err, ErrValidation)
	assert.ErrorContains(suite.T(), err, "timestamp or transactionId is required")

	suite.clock.Advance(30 * 24 * time.Hour)
	_, err = suite.svc.ApplyDeposit(suite.ctx, bare)
	assert.ErrorIs(suite.T(), err, ErrValidation, "rejected again, never recorded as a duplicate")

	fresh, err := suite.svc.IsNew(suite.ctx, bare)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), fresh, "a rejected notification claims no key")
	suite.assertAmount("0", suite.balance(a.ID))

	rent := bare
	rent.TransactionID = "bank-1"
	res, err := suite.svc.ApplyDeposit(suite.ctx, rent)
	require.NoError(suite.T(), err, "a transaction id alone identifies the payment")
	assert.False(suite.T(), res.Duplicate)

	suite.clock.Advance(30 * 24 * time.Hour)
	nextMonth := bare
	nextMonth.TransactionID = "bank-2"
	res, err = suite.svc.ApplyDeposit(suite.ctx, nextMonth)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), res.Duplicate, "an equal payment a month later is credited")
	suite.assertAmount("50", suite.balance(a.ID))
}

func (suite *ServiceTestSuite) TestDepositKey() {
	n := suite.notification("VS1", "25")
	assert.Equal(suite.T(), DepositKey(n), DepositKey(n))
	assert.Len(suite.T(), DepositKey(n), 64)

	other := n
	other.Amount = dec("25.01")
	assert.NotEqual(suite.T(), DepositKey(n), DepositKey(other))

	other = n
	other.VariableSymbol = "VS2"
	assert.NotEqual(suite.T(), DepositKey(n), DepositKey(other))
}

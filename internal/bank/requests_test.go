package bank

import (
	"wallet-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *ServiceTestSuite) TestMoneyRequestAccept() {
	a := suite.open("a@example.com", "1001", "100")
	b := suite.open("b@example.com", "1002", "10")

	req, err := suite.svc.SendMoneyRequest(suite.ctx, b.ID, "a@example.com", dec("30"), " Dinner ")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Dinner", req.Description)
	assert.Equal(suite.T(), 1, suite.dispatcher.Calls())

	pending, err := suite.svc.PendingRequests(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), pending.Incoming, 1)
	assert.Empty(suite.T(), pending.Outgoing)

	outgoing, err := suite.svc.PendingRequests(suite.ctx, b.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), outgoing.Outgoing, 1)

	tr, err := suite.svc.AcceptRequest(suite.ctx, req.ID, a.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.KindTransfer, tr.Kind)
	assert.Equal(suite.T(), "Money Request", tr.Category)
	assert.Equal(suite.T(), a.ID, *tr.SenderID)
	assert.Equal(suite.T(), b.ID, tr.ReceiverID)

	suite.assertAmount("70", suite.balance(a.ID))
	suite.assertAmount("40", suite.balance(b.ID))

	pending, err = suite.svc.PendingRequests(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), pending.Incoming)

	_, err = suite.svc.AcceptRequest(suite.ctx, req.ID, a.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound, "a resolved request cannot be accepted again")

	suite.assertReconciled(a.ID)
	suite.assertReconciled(b.ID)
}

func (suite *ServiceTestSuite) TestMoneyRequestAcceptInsufficientFunds() {
	a := suite.open("a@example.com", "1001", "10")
	b := suite.open("b@example.com", "1002", "0")

	req, err := suite.svc.SendMoneyRequest(suite.ctx, b.ID, "1001", dec("30"), "Rent")
	require.NoError(suite.T(), err)

	_, err = suite.svc.AcceptRequest(suite.ctx, req.ID, a.ID)
	assert.ErrorIs(suite.T(), err, ErrInsufficientFunds)

	suite.assertAmount("10", suite.balance(a.ID))
	suite.assertAmount("0", suite.balance(b.ID))

	pending, err := suite.svc.PendingRequests(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), pending.Incoming, 1, "request stays pending")
}

func (suite *ServiceTestSuite) TestMoneyRequestDecline() {
	a := suite.open("a@example.com", "1001", "100")
	b := suite.open("b@example.com", "1002", "10")

	req, err := suite.svc.SendMoneyRequest(suite.ctx, b.ID, "a@example.com", dec("30"), "Tickets")
	require.NoError(suite.T(), err)

	_, err = suite.svc.DeclineRequest(suite.ctx, req.ID, b.ID)
	assert.ErrorIs(suite.T(), err, ErrForbidden, "the requester cannot decline")

	tr, err := suite.svc.DeclineRequest(suite.ctx, req.ID, a.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.KindDeclined, tr.Kind)
	assert.Equal(suite.T(), b.ID, tr.ReceiverID)

	suite.assertAmount("100", suite.balance(a.ID))
	suite.assertAmount("10", suite.balance(b.ID))

	received, err := suite.svc.Ledger().ByReceiver(suite.ctx, b.ID, 0)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), received, 2)
	assert.Equal(suite.T(), models.KindDeclined, received[0].Kind)

	pending, err := suite.svc.PendingRequests(suite.ctx, b.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), pending.Outgoing)

	suite.assertReconciled(a.ID)
	suite.assertReconciled(b.ID)
}

func (suite *ServiceTestSuite) TestMoneyRequestRejections() {
	a := suite.open("a@example.com", "1001", "100")
	b := suite.open("b@example.com", "1002", "10")
	c := suite.open("c@example.com", "1003", "10")

	_, err := suite.svc.SendMoneyRequest(suite.ctx, a.ID, "A@Example.com", dec("1"), "")
	assert.ErrorIs(suite.T(), err, ErrSelfReference)

	_, err = suite.svc.SendMoneyRequest(suite.ctx, a.ID, "1001", dec("1"), "")
	assert.ErrorIs(suite.T(), err, ErrSelfReference)

	_, err = suite.svc.SendMoneyRequest(suite.ctx, a.ID, "b@example.com", dec("0"), "")
	assert.ErrorIs(suite.T(), err, ErrValidation)

	_, err = suite.svc.SendMoneyRequest(suite.ctx, a.ID, "nobody@example.com", dec("1"), "")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	req, err := suite.svc.SendMoneyRequest(suite.ctx, a.ID, "b@example.com", dec("5"), "")
	require.NoError(suite.T(), err)

	_, err = suite.svc.AcceptRequest(suite.ctx, req.ID, c.ID)
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	_, err = suite.svc.AcceptRequest(suite.ctx, "missing", b.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.svc.DeclineRequest(suite.ctx, "missing", b.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

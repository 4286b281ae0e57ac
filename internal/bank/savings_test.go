package bank

import (
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *ServiceTestSuite) TestSavingsLockWindow() {
	a := suite.open("a@example.com", "1001", "100")

	st, err := suite.svc.DepositSavings(suite.ctx, a.ID, dec("40"))
	require.NoError(suite.T(), err)
	suite.assertAmount("40", st.Savings)
	suite.assertAmount("60", suite.balance(a.ID))
	assert.Equal(suite.T(), SavingsUnlocked, st.State)

	tomorrow := suite.clock.Now().Add(24 * time.Hour)
	st, err = suite.svc.SetLockEndTime(suite.ctx, a.ID, tomorrow)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), SavingsLocked, st.State)

	_, err = suite.svc.WithdrawSavings(suite.ctx, a.ID, dec("10"))
	assert.ErrorIs(suite.T(), err, ErrLockActive)

	st, err = suite.svc.DepositSavings(suite.ctx, a.ID, dec("10"))
	require.NoError(suite.T(), err, "deposits are allowed while locked")
	suite.assertAmount("50", st.Savings)

	suite.clock.Advance(24 * time.Hour)

	st, err = suite.svc.WithdrawSavings(suite.ctx, a.ID, dec("10"))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), SavingsUnlocked, st.State)
	suite.assertAmount("40", st.Savings)
	suite.assertAmount("60", suite.balance(a.ID))

	suite.assertReconciled(a.ID)
}

func (suite *ServiceTestSuite) TestSavingsRejections() {
	a := suite.open("a@example.com", "1001", "20")

	_, err := suite.svc.DepositSavings(suite.ctx, a.ID, dec("25"))
	assert.ErrorIs(suite.T(), err, ErrInsufficientFunds)

	_, err = suite.svc.DepositSavings(suite.ctx, a.ID, dec("0"))
	assert.ErrorIs(suite.T(), err, ErrValidation)

	_, err = suite.svc.WithdrawSavings(suite.ctx, a.ID, dec("1"))
	assert.ErrorIs(suite.T(), err, ErrInsufficientFunds)

	_, err = suite.svc.SetLockEndTime(suite.ctx, a.ID, suite.clock.Now())
	assert.ErrorIs(suite.T(), err, ErrValidation, "lock end must be strictly in the future")

	_, err = suite.svc.SetLockEndTime(suite.ctx, a.ID, suite.clock.Now().Add(-time.Hour))
	assert.ErrorIs(suite.T(), err, ErrValidation)

	_, err = suite.svc.SetSavingsGoal(suite.ctx, a.ID, dec("-1"))
	assert.ErrorIs(suite.T(), err, ErrValidation)
}

func (suite *ServiceTestSuite) TestSavingsGoalIsIndependentOfBudget() {
	a := suite.open("a@example.com", "1001", "100")

	_, err := suite.svc.SetBudgetLimit(suite.ctx, a.ID, dec("300"))
	require.NoError(suite.T(), err)
	_, err = suite.svc.SetSavingsGoal(suite.ctx, a.ID, dec("50"))
	require.NoError(suite.T(), err)
	_, err = suite.svc.DepositSavings(suite.ctx, a.ID, dec("20"))
	require.NoError(suite.T(), err)

	remaining, err := suite.svc.RemainingGoal(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	suite.assertAmount("30", remaining)

	acct, err := suite.svc.Account(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	suite.assertAmount("300", acct.BudgetLimit)
	suite.assertAmount("50", acct.SavingsGoal)

	_, err = suite.svc.DepositSavings(suite.ctx, a.ID, dec("40"))
	require.NoError(suite.T(), err)
	st, err := suite.svc.SavingsStatus(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	suite.assertAmount("0", st.RemainingGoal, "remaining goal is clamped at zero")
}

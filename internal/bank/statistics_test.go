package bank

import (
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *ServiceTestSuite) TestStatistics() {
	a := suite.open("a@example.com", "1001", "1000")
	suite.open("b@example.com", "1002", "0")
	_, err := suite.svc.SetIBAN(suite.ctx, a.ID, testBankIBAN)
	require.NoError(suite.T(), err)

	_, err = suite.svc.Transfer(suite.ctx, a.ID, "1002", dec("100"))
	require.NoError(suite.T(), err)
	_, err = suite.svc.Transfer(suite.ctx, a.ID, "1002", dec("50"))
	require.NoError(suite.T(), err)
	_, err = suite.svc.Purchase(suite.ctx, "1001", dec("25"), 2, "Books")
	require.NoError(suite.T(), err)
	_, err = suite.svc.Withdraw(suite.ctx, a.ID, dec("50"))
	require.NoError(suite.T(), err)

	st, err := suite.svc.Statistics(suite.ctx, a.ID, 0, 0)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2026, st.Year)
	assert.Equal(suite.T(), 3, st.Month)
	assert.Equal(suite.T(), "March", st.MonthName)
	assert.True(suite.T(), st.IsCurrentMonth)
	assert.Equal(suite.T(), 2, st.PrevMonth)
	assert.Equal(suite.T(), 4, st.NextMonth)
	suite.assertAmount("250", st.Total)

	require.Len(suite.T(), st.Categories, 3)
	assert.Equal(suite.T(), "Transfer", st.Categories[0].Category)
	assert.Equal(suite.T(), 2, st.Categories[0].Count)
	suite.assertAmount("150", st.Categories[0].Total)
	suite.assertAmount("60", st.Categories[0].Percentage)
	assert.Equal(suite.T(), "Purchase", st.Categories[1].Category)
	assert.Equal(suite.T(), "Withdrawal", st.Categories[2].Category)

	suite.clock.Advance(31 * 24 * time.Hour)
	next, err := suite.svc.Statistics(suite.ctx, a.ID, 0, 0)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), next.Categories)
	suite.assertAmount("0", next.Total)

	past, err := suite.svc.Statistics(suite.ctx, a.ID, 2026, 3)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), past.IsCurrentMonth)
	suite.assertAmount("250", past.Total)

	_, err = suite.svc.Statistics(suite.ctx, a.ID, 2026, 13)
	assert.ErrorIs(suite.T(), err, ErrValidation)
}

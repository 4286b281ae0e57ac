package bank

import (
	"sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *ServiceTestSuite) TestConcurrentOppositeTransfersConserveFunds() {
	a := suite.open("a@example.com", "1001", "100")
	b := suite.open("b@example.com", "1002", "100")

	const n = 100
	var wg sync.WaitGroup
	for range n {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = suite.svc.Transfer(suite.ctx, a.ID, "1002", dec("1"))
		}()
		go func() {
			defer wg.Done()
			_, _ = suite.svc.Transfer(suite.ctx, b.ID, "1001", dec("1"))
		}()
	}
	wg.Wait()

	balA, balB := suite.balance(a.ID), suite.balance(b.ID)
	suite.assertAmount("200", balA.Add(balB), "funds are conserved")
	assert.False(suite.T(), balA.IsNegative())
	assert.False(suite.T(), balB.IsNegative())

	suite.assertReconciled(a.ID)
	suite.assertReconciled(b.ID)
}

func (suite *ServiceTestSuite) TestConcurrentDrainNeverOverdraws() {
	a := suite.open("a@example.com", "1001", "10")
	suite.open("b@example.com", "1002", "0")
	suite.open("c@example.com", "1003", "0")

	const n = 30
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recipient := "1002"
			if i%2 == 0 {
				recipient = "1003"
			}
			_, err := suite.svc.Transfer(suite.ctx, a.ID, recipient, dec("1"))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(suite.T(), err, ErrInsufficientFunds)
		}()
	}
	wg.Wait()

	require.Equal(suite.T(), 10, succeeded)
	suite.assertAmount("0", suite.balance(a.ID))
	suite.assertReconciled(a.ID)
}

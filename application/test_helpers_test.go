package application

import (
	"context"
	"sync"
	"testing"

	"quizstake/domain/services"
	"quizstake/infrastructure"
	"quizstake/infrastructure/observability"
	"quizstake/repository/memory"

	"github.com/stretchr/testify/require"
)

const testPlatformID = "platform"

// mapCache is an in-process BalanceCache. beforeFill, when set, runs
// between the ledger fold and the fill.
type mapCache struct {
	mu          sync.Mutex
	balances    map[string]int64
	generations map[string]int64
	beforeFill  func(userID string)
}

func newMapCache() *mapCache {
	return &mapCache{
		balances:    make(map[string]int64),
		generations: make(map[string]int64),
	}
}

func (c *mapCache) Get(ctx context.Context, userID string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.balances[userID]
	return b, ok, nil
}

func (c *mapCache) Generation(ctx context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[userID], nil
}

func (c *mapCache) Fill(ctx context.Context, userID string, balance int64, generation int64) (bool, error) {
	c.mu.Lock()
	hook := c.beforeFill
	c.mu.Unlock()
	if hook != nil {
		hook(userID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[userID] != generation {
		return false, nil
	}
	c.balances[userID] = balance
	return true, nil
}

func (c *mapCache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[userID]++
	delete(c.balances, userID)
	return nil
}

// put overwrites a cached balance without touching its generation
func (c *mapCache) put(userID string, balance int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[userID] = balance
}

type testEnv struct {
	wagering *Wagering
	cache    *mapCache
	metrics  *observability.Metrics
}

func newTestEnv(t *testing.T, maxAttempts int) *testEnv {
	t.Helper()

	feePolicy, err := services.NewFeePolicy("0.10", testPlatformID)
	require.NoError(t, err)

	publisher := infrastructure.NewLocalEventPublisher()
	factory := infrastructure.NewUnitOfWorkFactory(memory.NewUnitOfWorkFactory(memory.NewStore()), publisher)

	cache := newMapCache()
	metrics := observability.NewMetrics()
	wagering := NewWagering(factory, feePolicy, cache, metrics, maxAttempts)
	wagering.RegisterLocalHandlers(publisher)

	return &testEnv{wagering: wagering, cache: cache, metrics: metrics}
}

func (e *testEnv) fund(t *testing.T, userID string, amount int64) {
	t.Helper()
	_, err := e.wagering.Deposit(context.Background(), userID, amount)
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, userID string) int64 {
	t.Helper()
	balance, err := e.wagering.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}

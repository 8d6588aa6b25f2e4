package application

import (
	"context"

	"quizstake/domain/events"
)

// BalanceCache holds materialized balances. The ledger is the source of
// truth. Every invalidation bumps the user's generation, and a fill only
// lands if the generation it read before folding the ledger is still current.
type BalanceCache interface {
	Get(ctx context.Context, userID string) (int64, bool, error)
	Generation(ctx context.Context, userID string) (int64, error)
	Fill(ctx context.Context, userID string, balance int64, generation int64) (bool, error)
	Invalidate(ctx context.Context, userID string) error
}

// LocalHandlerRegistrar accepts in-process event handlers
type LocalHandlerRegistrar interface {
	RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error)
}

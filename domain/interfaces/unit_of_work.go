package interfaces

import "context"

// UnitOfWork scopes repositories to one atomic storage transaction. Events
// published through EventBus are delivered only after Commit succeeds.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	GameRepository() GameRepository
	LedgerRepository() LedgerRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

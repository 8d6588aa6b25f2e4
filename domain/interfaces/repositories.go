package interfaces

import (
	"context"

	"quizstake/domain/entities"
	"quizstake/domain/events"
)

// GameRepository persists games. Methods return (nil, nil) when a game does
// not exist.
type GameRepository interface {
	// Create inserts a new game and fills in its ID, Version and timestamps
	Create(ctx context.Context, game *entities.Game) error

	// GetByID retrieves a game by its ID
	GetByID(ctx context.Context, id int64) (*entities.Game, error)

	// CompareAndSwap stores game's status, opponent and winner only if the
	// stored row still has status expected and version game.Version. On
	// success game.Version and game.UpdatedAt are refreshed. It reports false,
	// without error, when the row moved on or no longer exists.
	CompareAndSwap(ctx context.Context, game *entities.Game, expected entities.GameStatus) (bool, error)

	// Delete removes a pending, unmatched game at the given version.
	// It reports false when the row no longer qualifies.
	Delete(ctx context.Context, id int64, version int64) (bool, error)

	// ListOpen returns pending games, newest first
	ListOpen(ctx context.Context, limit int) ([]*entities.Game, error)

	// ListByUser returns games the user created or joined, newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Game, error)
}

// LedgerRepository is the append-only ledger store. There is no update or
// delete.
type LedgerRepository interface {
	// Append writes a validated entry and fills in its ID and CreatedAt
	Append(ctx context.Context, entry *entities.LedgerEntry) error

	// EntriesFor returns the user's entries with ID greater than afterID in
	// creation order. A limit <= 0 returns all remaining entries.
	EntriesFor(ctx context.Context, userID string, afterID int64, limit int) ([]*entities.LedgerEntry, error)

	// EntriesForGame returns every entry tagged with the game, in creation order
	EntriesForGame(ctx context.Context, gameID int64) ([]*entities.LedgerEntry, error)

	// Balance folds the user's entries: credits minus debits
	Balance(ctx context.Context, userID string) (int64, error)

	// LockAccounts serializes balance-checked debits for the given users until
	// the unit of work ends. Callers pass every account they will check.
	LockAccounts(ctx context.Context, userIDs ...string) error

	// AccountIDs returns every user that has at least one entry
	AccountIDs(ctx context.Context) ([]string, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher holds events until the owning transaction ends
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes held events; called after a successful commit
	Flush(ctx context.Context) error

	// Discard drops held events; called on rollback
	Discard()
}

package interfaces

import (
	"context"

	"quizstake/domain/entities"
)

// GameService owns the lifecycle state machine of games
type GameService interface {
	// CreateGame opens a pending game. inviteeID restricts who may join.
	CreateGame(ctx context.Context, creatorID string, stake int64, subjects []string, inviteeID *string) (*entities.Game, error)

	// AcceptGame matches callerID as opponent and locks both stakes.
	// Losing a concurrent accept yields domain.ErrAlreadyMatched.
	AcceptGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error)

	// DeclineGame rejects a pending game on behalf of callerID
	DeclineGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error)

	// CancelGame lets the creator withdraw a pending game
	CancelGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error)

	// DeleteGame removes a pending, unmatched game owned by callerID
	DeleteGame(ctx context.Context, gameID int64, callerID string) error

	// CompleteGame records the winner of a live game and settles the pot
	CompleteGame(ctx context.Context, gameID int64, winnerID string) (*entities.Game, *entities.Settlement, error)

	// VoidGame cancels a live game and refunds both stakes
	VoidGame(ctx context.Context, gameID int64) (*entities.Game, error)

	// GetGame retrieves a game
	GetGame(ctx context.Context, gameID int64) (*entities.Game, error)

	// ListOpenGames returns pending games, newest first
	ListOpenGames(ctx context.Context, limit int) ([]*entities.Game, error)

	// ListUserGames returns games the user created or joined
	ListUserGames(ctx context.Context, userID string, limit int) ([]*entities.Game, error)
}

// EscrowService turns game transitions into ledger entries
type EscrowService interface {
	// LockStakes debits stake from both players after checking their balances
	LockStakes(ctx context.Context, gameID int64, playerA, playerB string, stake int64) error

	// Settle pays the pot minus the platform fee to the winner
	Settle(ctx context.Context, gameID int64, winnerID, loserID string, stake int64) (*entities.Settlement, error)

	// Refund returns both stakes of a live game
	Refund(ctx context.Context, gameID int64, playerA, playerB string, stake int64) error
}

// LedgerService exposes balances and ledger funding operations
type LedgerService interface {
	// GetBalance folds the user's ledger entries
	GetBalance(ctx context.Context, userID string) (int64, error)

	// ListEntries pages through the user's entries in creation order.
	// next is the cursor to resume from, or 0 when the page was the last.
	ListEntries(ctx context.Context, userID string, afterID int64, limit int) (entries []*entities.LedgerEntry, next int64, err error)

	// Deposit credits the user's account
	Deposit(ctx context.Context, userID string, amount int64) (*entities.LedgerEntry, error)

	// Withdraw debits the user's account after checking the balance
	Withdraw(ctx context.Context, userID string, amount int64) (*entities.LedgerEntry, error)

	// AuditGame folds the game's entries into a conservation report
	AuditGame(ctx context.Context, gameID int64) (*entities.ConservationReport, error)
}

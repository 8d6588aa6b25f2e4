package httpapi

import (
	"context"

	"quizstake/domain/entities"
)

// Service is the wagering core as seen by the HTTP layer
type Service interface {
	CreateGame(ctx context.Context, creatorID string, stake int64, subjects []string, inviteeID *string) (*entities.Game, error)
	AcceptGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error)
	DeclineGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error)
	CancelGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error)
	DeleteGame(ctx context.Context, gameID int64, callerID string) error
	CompleteGame(ctx context.Context, gameID int64, winnerID string) (*entities.Game, *entities.Settlement, error)
	VoidGame(ctx context.Context, gameID int64) (*entities.Game, error)
	GetGame(ctx context.Context, gameID int64) (*entities.Game, error)
	ListOpenGames(ctx context.Context, limit int) ([]*entities.Game, error)
	ListUserGames(ctx context.Context, userID string, limit int) ([]*entities.Game, error)

	GetBalance(ctx context.Context, userID string) (int64, error)
	ListEntries(ctx context.Context, userID string, afterID int64, limit int) ([]*entities.LedgerEntry, int64, error)
	Deposit(ctx context.Context, userID string, amount int64) (*entities.LedgerEntry, error)
	Withdraw(ctx context.Context, userID string, amount int64) (*entities.LedgerEntry, error)
	AuditGame(ctx context.Context, gameID int64) (*entities.ConservationReport, error)
}

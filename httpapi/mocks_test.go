package httpapi

import (
	"context"

	"quizstake/domain/entities"

	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateGame(ctx context.Context, creatorID string, stake int64, subjects []string, inviteeID *string) (*entities.Game, error) {
	args := m.Called(ctx, creatorID, stake, subjects, inviteeID)
	return gameArg(args, 0), args.Error(1)
}

func (m *MockService) AcceptGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error) {
	args := m.Called(ctx, gameID, callerID)
	return gameArg(args, 0), args.Error(1)
}

func (m *MockService) DeclineGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error) {
	args := m.Called(ctx, gameID, callerID)
	return gameArg(args, 0), args.Error(1)
}

func (m *MockService) CancelGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error) {
	args := m.Called(ctx, gameID, callerID)
	return gameArg(args, 0), args.Error(1)
}

func (m *MockService) DeleteGame(ctx context.Context, gameID int64, callerID string) error {
	args := m.Called(ctx, gameID, callerID)
	return args.Error(0)
}

func (m *MockService) CompleteGame(ctx context.Context, gameID int64, winnerID string) (*entities.Game, *entities.Settlement, error) {
	args := m.Called(ctx, gameID, winnerID)
	var settlement *entities.Settlement
	if s := args.Get(1); s != nil {
		settlement = s.(*entities.Settlement)
	}
	return gameArg(args, 0), settlement, args.Error(2)
}

func (m *MockService) VoidGame(ctx context.Context, gameID int64) (*entities.Game, error) {
	args := m.Called(ctx, gameID)
	return gameArg(args, 0), args.Error(1)
}

func (m *MockService) GetGame(ctx context.Context, gameID int64) (*entities.Game, error) {
	args := m.Called(ctx, gameID)
	return gameArg(args, 0), args.Error(1)
}

func (m *MockService) ListOpenGames(ctx context.Context, limit int) ([]*entities.Game, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Game), args.Error(1)
}

func (m *MockService) ListUserGames(ctx context.Context, userID string, limit int) ([]*entities.Game, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Game), args.Error(1)
}

func (m *MockService) GetBalance(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockService) ListEntries(ctx context.Context, userID string, afterID int64, limit int) ([]*entities.LedgerEntry, int64, error) {
	args := m.Called(ctx, userID, afterID, limit)
	var entries []*entities.LedgerEntry
	if e := args.Get(0); e != nil {
		entries = e.([]*entities.LedgerEntry)
	}
	return entries, args.Get(1).(int64), args.Error(2)
}

func (m *MockService) Deposit(ctx context.Context, userID string, amount int64) (*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, amount)
	return entryArg(args, 0), args.Error(1)
}

func (m *MockService) Withdraw(ctx context.Context, userID string, amount int64) (*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, amount)
	return entryArg(args, 0), args.Error(1)
}

func (m *MockService) AuditGame(ctx context.Context, gameID int64) (*entities.ConservationReport, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ConservationReport), args.Error(1)
}

func gameArg(args mock.Arguments, i int) *entities.Game {
	if g := args.Get(i); g != nil {
		return g.(*entities.Game)
	}
	return nil
}

func entryArg(args mock.Arguments, i int) *entities.LedgerEntry {
	if e := args.Get(i); e != nil {
		return e.(*entities.LedgerEntry)
	}
	return nil
}

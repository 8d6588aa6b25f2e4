package testhelpers

import (
	"context"

	"quizstake/domain/entities"

	"github.com/stretchr/testify/mock"
)

// MockEscrowService is a mock implementation of EscrowService
type MockEscrowService struct {
	mock.Mock
}

func (m *MockEscrowService) LockStakes(ctx context.Context, gameID int64, playerA, playerB string, stake int64) error {
	args := m.Called(ctx, gameID, playerA, playerB, stake)
	return args.Error(0)
}

func (m *MockEscrowService) Settle(ctx context.Context, gameID int64, winnerID, loserID string, stake int64) (*entities.Settlement, error) {
	args := m.Called(ctx, gameID, winnerID, loserID, stake)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Settlement), args.Error(1)
}

func (m *MockEscrowService) Refund(ctx context.Context, gameID int64, playerA, playerB string, stake int64) error {
	args := m.Called(ctx, gameID, playerA, playerB, stake)
	return args.Error(0)
}

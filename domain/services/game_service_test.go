package services

import (
	"context"
	"errors"
	"testing"

	"quizstake/domain"
	"quizstake/domain/entities"
	"quizstake/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestGameService(mocks *TestMocks) *gameService {
	return NewGameService(mocks.GameRepo, mocks.Escrow, mocks.EventPublisher, TestPlatformID).(*gameService)
}

func TestGameService_CreateGame(t *testing.T) {
	tests := []struct {
		name          string
		creatorID     string
		stake         int64
		subjects      []string
		inviteeID     *string
		setupMocks    func(*TestMocks, *MockHelper)
		expectedError error
	}{
		{
			name:      "creates pending game with normalized subjects",
			creatorID: TestCreatorID,
			stake:     TestStake,
			subjects:  []string{"World History", "world history", "Science"},
			setupMocks: func(m *TestMocks, h *MockHelper) {
				m.GameRepo.On("Create", mock.Anything, mock.MatchedBy(func(g *entities.Game) bool {
					return g.Status == entities.GameStatusPending &&
						g.OpponentID == nil &&
						assert.ObjectsAreEqual([]string{"world-history", "science"}, g.Subjects)
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*entities.Game).ID = TestGameID
				}).Return(nil)
				h.ExpectEventPublish(events.EventTypeGameCreated)
			},
		},
		{
			name:      "directed invitation",
			creatorID: TestCreatorID,
			stake:     TestStake,
			inviteeID: strPtr(TestOpponentID),
			setupMocks: func(m *TestMocks, h *MockHelper) {
				m.GameRepo.On("Create", mock.Anything, mock.MatchedBy(func(g *entities.Game) bool {
					return g.InviteeID != nil && *g.InviteeID == TestOpponentID
				})).Return(nil)
				h.ExpectEventPublish(events.EventTypeGameCreated)
			},
		},
		{
			name:          "zero stake rejected before persistence",
			creatorID:     TestCreatorID,
			stake:         0,
			setupMocks:    func(m *TestMocks, h *MockHelper) {},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "negative stake rejected",
			creatorID:     TestCreatorID,
			stake:         -5,
			setupMocks:    func(m *TestMocks, h *MockHelper) {},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "stake whose pot would overflow rejected",
			creatorID:     TestCreatorID,
			stake:         5_000_000_000_000_000_000,
			setupMocks:    func(m *TestMocks, h *MockHelper) {},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "missing creator",
			stake:         TestStake,
			setupMocks:    func(m *TestMocks, h *MockHelper) {},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "self invitation",
			creatorID:     TestCreatorID,
			stake:         TestStake,
			inviteeID:     strPtr(TestCreatorID),
			setupMocks:    func(m *TestMocks, h *MockHelper) {},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "platform account cannot create",
			creatorID:     TestPlatformID,
			stake:         TestStake,
			setupMocks:    func(m *TestMocks, h *MockHelper) {},
			expectedError: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := NewTestMocks()
			helper := NewMockHelper(mocks)
			tt.setupMocks(mocks, helper)

			service := newTestGameService(mocks)
			game, err := service.CreateGame(context.Background(), tt.creatorID, tt.stake, tt.subjects, tt.inviteeID)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, game)
				mocks.GameRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, entities.GameStatusPending, game.Status)
			}
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestGameService_AcceptGame(t *testing.T) {
	invited := func() *entities.Game {
		g := pendingGame()
		g.InviteeID = strPtr(TestOpponentID)
		return g
	}

	tests := []struct {
		name          string
		callerID      string
		setupMocks    func(*TestMocks, *MockHelper)
		expectedError error
	}{
		{
			name:     "accepts and locks both stakes",
			callerID: TestOpponentID,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				h.ExpectGameLookup(pendingGame())
				h.ExpectSwap(entities.GameStatusPending, entities.GameStatusLive, true)
				m.Escrow.On("LockStakes", mock.Anything, TestGameID, TestCreatorID, TestOpponentID, TestStake).Return(nil)
				h.ExpectEventPublish(events.EventTypeGameAccepted)
			},
		},
		{
			name:     "invitee may accept",
			callerID: TestOpponentID,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				h.ExpectGameLookup(invited())
				h.ExpectSwap(entities.GameStatusPending, entities.GameStatusLive, true)
				m.Escrow.On("LockStakes", mock.Anything, TestGameID, TestCreatorID, TestOpponentID, TestStake).Return(nil)
				h.ExpectEventPublish(events.EventTypeGameAccepted)
			},
		},
		{
			name:     "other player cannot take an invitation",
			callerID: TestOtherID,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				h.ExpectGameLookup(invited())
			},
			expectedError: domain.ErrForbidden,
		},
		{
			name:     "game not found",
			callerID: TestOpponentID,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				h.ExpectGameNotFound(TestGameID)
			},
			expectedError: domain.ErrNotFound,
		},
		{
			name:     "creator cannot accept own game",
			callerID: TestCreatorID,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				h.ExpectGameLookup(pendingGame())
			},
			expectedError: domain.ErrValidation,
		},
		{
			name:     "already live returns already matched",
			callerID: TestOtherID,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				h.ExpectGameLookup(liveGame())
			},
			expectedError: domain.ErrAlreadyMatched,
		},
		{
			name:     "same opponent accepting again returns already matched",
			callerID: TestOpponentID,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				h.ExpectGameLookup(liveGame())
			},
			expectedError: domain.ErrAlreadyMatched,
		},
		{
			name:     "cancelled game is a conflict",
			callerID: TestOpponentID,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				g := pendingGame()
				g.Status = entities.GameStatusCancelled
				h.ExpectGameLookup(g)
			},
			expectedError: domain.ErrConflict,
		},
		{
			name:     "losing the swap reports already matched",
			callerID: TestOtherID,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				h.ExpectGameLookup(pendingGame())
				h.ExpectSwap(entities.GameStatusPending, entities.GameStatusLive, false)
				h.ExpectGameLookup(liveGame())
			},
			expectedError: domain.ErrAlreadyMatched,
		},
		{
			name:     "insufficient funds propagates so the unit of work rolls back",
			callerID: TestOpponentID,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				h.ExpectGameLookup(pendingGame())
				h.ExpectSwap(entities.GameStatusPending, entities.GameStatusLive, true)
				m.Escrow.On("LockStakes", mock.Anything, TestGameID, TestCreatorID, TestOpponentID, TestStake).
					Return(domain.NewInsufficientFundsError("short"))
			},
			expectedError: domain.ErrInsufficientFunds,
		},
		{
			name:     "platform account cannot accept",
			callerID: TestPlatformID,
			setupMocks: func(m *TestMocks, h *MockHelper) {
			},
			expectedError: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := NewTestMocks()
			helper := NewMockHelper(mocks)
			tt.setupMocks(mocks, helper)

			service := newTestGameService(mocks)
			game, err := service.AcceptGame(context.Background(), TestGameID, tt.callerID)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, game)
			} else {
				require.NoError(t, err)
				assert.Equal(t, entities.GameStatusLive, game.Status)
				require.NotNil(t, game.OpponentID)
				assert.Equal(t, tt.callerID, *game.OpponentID)
			}
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestGameService_DeclineGame(t *testing.T) {
	tests := []struct {
		name          string
		game          func() *entities.Game
		callerID      string
		swapped       bool
		expectedError error
	}{
		{name: "any non-creator declines an open game", game: pendingGame, callerID: TestOtherID, swapped: true},
		{name: "creator must cancel instead", game: pendingGame, callerID: TestCreatorID, expectedError: domain.ErrValidation},
		{name: "live game conflicts", game: liveGame, callerID: TestOtherID, expectedError: domain.ErrConflict},
		{
			name: "non-invitee forbidden",
			game: func() *entities.Game {
				g := pendingGame()
				g.InviteeID = strPtr(TestOpponentID)
				return g
			},
			callerID:      TestOtherID,
			expectedError: domain.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := NewTestMocks()
			helper := NewMockHelper(mocks)
			helper.ExpectGameLookup(tt.game())
			if tt.swapped {
				helper.ExpectSwap(entities.GameStatusPending, entities.GameStatusRejected, true)
				helper.ExpectEventPublish(events.EventTypeGameDeclined)
			}

			service := newTestGameService(mocks)
			game, err := service.DeclineGame(context.Background(), TestGameID, tt.callerID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, entities.GameStatusRejected, game.Status)
				assert.Equal(t, tt.callerID, *game.OpponentID)
			}
			mocks.Escrow.AssertNotCalled(t, "LockStakes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestGameService_CancelGame(t *testing.T) {
	t.Run("creator cancels pending game without ledger effect", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		helper.ExpectGameLookup(pendingGame())
		helper.ExpectSwap(entities.GameStatusPending, entities.GameStatusCancelled, true)
		helper.ExpectEventPublish(events.EventTypeGameCancelled)

		game, err := newTestGameService(mocks).CancelGame(context.Background(), TestGameID, TestCreatorID)

		require.NoError(t, err)
		assert.Equal(t, entities.GameStatusCancelled, game.Status)
		assert.Nil(t, game.OpponentID)
		mocks.AssertAllExpectations(t)
	})

	t.Run("non-creator forbidden", func(t *testing.T) {
		mocks := NewTestMocks()
		NewMockHelper(mocks).ExpectGameLookup(pendingGame())

		_, err := newTestGameService(mocks).CancelGame(context.Background(), TestGameID, TestOtherID)

		assert.ErrorIs(t, err, domain.ErrForbidden)
		mocks.AssertAllExpectations(t)
	})

	t.Run("terminal game conflicts", func(t *testing.T) {
		for _, status := range []entities.GameStatus{entities.GameStatusRejected, entities.GameStatusCancelled, entities.GameStatusCompleted} {
			mocks := NewTestMocks()
			g := liveGame()
			g.Status = status
			NewMockHelper(mocks).ExpectGameLookup(g)

			_, err := newTestGameService(mocks).CancelGame(context.Background(), TestGameID, TestCreatorID)

			assert.ErrorIs(t, err, domain.ErrConflict, "status %s", status)
			mocks.AssertAllExpectations(t)
		}
	})
}

func TestGameService_DeleteGame(t *testing.T) {
	t.Run("deletes unmatched pending game", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		helper.ExpectGameLookup(pendingGame())
		mocks.GameRepo.On("Delete", mock.Anything, TestGameID, int64(1)).Return(true, nil)
		helper.ExpectEventPublish(events.EventTypeGameDeleted)

		require.NoError(t, newTestGameService(mocks).DeleteGame(context.Background(), TestGameID, TestCreatorID))
		mocks.AssertAllExpectations(t)
	})

	t.Run("matched game cannot be deleted", func(t *testing.T) {
		mocks := NewTestMocks()
		NewMockHelper(mocks).ExpectGameLookup(liveGame())

		err := newTestGameService(mocks).DeleteGame(context.Background(), TestGameID, TestCreatorID)

		assert.ErrorIs(t, err, domain.ErrConflict)
		mocks.GameRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("accepted concurrently", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		helper.ExpectGameLookup(pendingGame())
		mocks.GameRepo.On("Delete", mock.Anything, TestGameID, int64(1)).Return(false, nil)
		helper.ExpectGameLookup(liveGame())

		err := newTestGameService(mocks).DeleteGame(context.Background(), TestGameID, TestCreatorID)

		assert.ErrorIs(t, err, domain.ErrAlreadyMatched)
		mocks.AssertAllExpectations(t)
	})
}

func TestGameService_CompleteGame(t *testing.T) {
	t.Run("completes and settles", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		helper.ExpectGameLookup(liveGame())
		helper.ExpectSwap(entities.GameStatusLive, entities.GameStatusCompleted, true)
		settlement := &entities.Settlement{GameID: TestGameID, WinnerID: TestCreatorID, LoserID: TestOpponentID, Pot: 200, Payout: 180, Fee: 20}
		mocks.Escrow.On("Settle", mock.Anything, TestGameID, TestCreatorID, TestOpponentID, TestStake).Return(settlement, nil)
		helper.ExpectEventPublish(events.EventTypeGameCompleted)

		game, got, err := newTestGameService(mocks).CompleteGame(context.Background(), TestGameID, TestCreatorID)

		require.NoError(t, err)
		assert.Equal(t, entities.GameStatusCompleted, game.Status)
		assert.Equal(t, TestCreatorID, *game.WinnerID)
		assert.Equal(t, settlement, got)
		mocks.AssertAllExpectations(t)
	})

	t.Run("second completion conflicts and never settles", func(t *testing.T) {
		mocks := NewTestMocks()
		g := liveGame()
		g.Status = entities.GameStatusCompleted
		g.WinnerID = strPtr(TestCreatorID)
		NewMockHelper(mocks).ExpectGameLookup(g)

		_, _, err := newTestGameService(mocks).CompleteGame(context.Background(), TestGameID, TestCreatorID)

		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.NotErrorIs(t, err, domain.ErrAlreadyMatched)
		mocks.Escrow.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("pending game conflicts", func(t *testing.T) {
		mocks := NewTestMocks()
		NewMockHelper(mocks).ExpectGameLookup(pendingGame())

		_, _, err := newTestGameService(mocks).CompleteGame(context.Background(), TestGameID, TestCreatorID)

		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("winner must be a player", func(t *testing.T) {
		mocks := NewTestMocks()
		NewMockHelper(mocks).ExpectGameLookup(liveGame())

		_, _, err := newTestGameService(mocks).CompleteGame(context.Background(), TestGameID, TestOtherID)

		assert.ErrorIs(t, err, domain.ErrValidation)
		mocks.GameRepo.AssertNotCalled(t, "CompareAndSwap", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent completion loses the swap", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		helper.ExpectGameLookup(liveGame())
		helper.ExpectSwap(entities.GameStatusLive, entities.GameStatusCompleted, false)
		done := liveGame()
		done.Status = entities.GameStatusCompleted
		done.WinnerID = strPtr(TestOpponentID)
		helper.ExpectGameLookup(done)

		_, _, err := newTestGameService(mocks).CompleteGame(context.Background(), TestGameID, TestCreatorID)

		assert.ErrorIs(t, err, domain.ErrConflict)
		mocks.Escrow.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGameService_VoidGame(t *testing.T) {
	t.Run("refunds live game", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		helper.ExpectGameLookup(liveGame())
		helper.ExpectSwap(entities.GameStatusLive, entities.GameStatusCancelled, true)
		mocks.Escrow.On("Refund", mock.Anything, TestGameID, TestCreatorID, TestOpponentID, TestStake).Return(nil)
		helper.ExpectEventPublish(events.EventTypeGameVoided)

		game, err := newTestGameService(mocks).VoidGame(context.Background(), TestGameID)

		require.NoError(t, err)
		assert.Equal(t, entities.GameStatusCancelled, game.Status)
		mocks.AssertAllExpectations(t)
	})

	t.Run("pending game cannot be voided", func(t *testing.T) {
		mocks := NewTestMocks()
		NewMockHelper(mocks).ExpectGameLookup(pendingGame())

		_, err := newTestGameService(mocks).VoidGame(context.Background(), TestGameID)

		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestGameService_StorageErrorsPropagate(t *testing.T) {
	mocks := NewTestMocks()
	storageErr := domain.NewStorageUnavailableError(errors.New("timeout"), "failed to query game")
	mocks.GameRepo.On("GetByID", mock.Anything, TestGameID).Return(nil, storageErr)

	_, err := newTestGameService(mocks).AcceptGame(context.Background(), TestGameID, TestOpponentID)

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

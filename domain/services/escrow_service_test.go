package services

import (
	"context"
	"math"
	"testing"

	"quizstake/domain"
	"quizstake/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestEscrowService(mocks *TestMocks) *escrowService {
	return NewEscrowService(mocks.LedgerRepo, mocks.EventPublisher, testFeePolicy()).(*escrowService)
}

func TestEscrowService_LockStakes(t *testing.T) {
	gameID := TestGameID

	tests := []struct {
		name          string
		playerA       string
		playerB       string
		stake         int64
		setupMocks    func(*TestMocks, *MockHelper)
		expectedError error
	}{
		{
			name:    "debits both players",
			playerA: TestCreatorID,
			playerB: TestOpponentID,
			stake:   TestStake,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				m.LedgerRepo.On("LockAccounts", mock.Anything, []string{TestCreatorID, TestOpponentID}).Return(nil)
				h.ExpectGameEntries(gameID, nil)
				h.ExpectBalance(TestCreatorID, 100)
				h.ExpectBalance(TestOpponentID, 250)
				h.ExpectLedgerAppend(TestCreatorID, entities.EntryReasonStakeLock, TestStake)
				h.ExpectLedgerAppend(TestOpponentID, entities.EntryReasonStakeLock, TestStake)
			},
		},
		{
			name:    "insufficient funds writes nothing",
			playerA: TestCreatorID,
			playerB: TestOpponentID,
			stake:   TestStake,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				m.LedgerRepo.On("LockAccounts", mock.Anything, []string{TestCreatorID, TestOpponentID}).Return(nil)
				h.ExpectGameEntries(gameID, nil)
				h.ExpectBalance(TestCreatorID, 500)
				h.ExpectBalance(TestOpponentID, 99)
			},
			expectedError: domain.ErrInsufficientFunds,
		},
		{
			name:    "already locked game conflicts",
			playerA: TestCreatorID,
			playerB: TestOpponentID,
			stake:   TestStake,
			setupMocks: func(m *TestMocks, h *MockHelper) {
				m.LedgerRepo.On("LockAccounts", mock.Anything, []string{TestCreatorID, TestOpponentID}).Return(nil)
				h.ExpectGameEntries(gameID, stakeLocks(gameID, TestStake, TestCreatorID, TestOpponentID))
			},
			expectedError: domain.ErrConflict,
		},
		{
			name:          "zero stake",
			playerA:       TestCreatorID,
			playerB:       TestOpponentID,
			stake:         0,
			setupMocks:    func(m *TestMocks, h *MockHelper) {},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "stake above the maximum",
			playerA:       TestCreatorID,
			playerB:       TestOpponentID,
			stake:         entities.MaxAmount + 1,
			setupMocks:    func(m *TestMocks, h *MockHelper) {},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "self play",
			playerA:       TestCreatorID,
			playerB:       TestCreatorID,
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

			err := newTestEscrowService(mocks).LockStakes(context.Background(), gameID, tt.playerA, tt.playerB, tt.stake)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				mocks.LedgerRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
			}
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestEscrowService_Settle(t *testing.T) {
	gameID := TestGameID

	t.Run("pays winner 180 and platform 20 from a pot of 200", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		mocks.LedgerRepo.On("LockAccounts", mock.Anything, []string{TestCreatorID, TestOpponentID, TestPlatformID}).Return(nil)
		helper.ExpectGameEntries(gameID, stakeLocks(gameID, TestStake, TestCreatorID, TestOpponentID))
		helper.ExpectBalance(TestCreatorID, 0)
		helper.ExpectBalance(TestPlatformID, 40)
		helper.ExpectLedgerAppend(TestCreatorID, entities.EntryReasonWinPayout, 180)
		helper.ExpectLedgerAppend(TestPlatformID, entities.EntryReasonPlatformFee, 20)

		settlement, err := newTestEscrowService(mocks).Settle(context.Background(), gameID, TestCreatorID, TestOpponentID, TestStake)

		require.NoError(t, err)
		assert.Equal(t, int64(200), settlement.Pot)
		assert.Equal(t, int64(180), settlement.Payout)
		assert.Equal(t, int64(20), settlement.Fee)
		mocks.AssertAllExpectations(t)
	})

	t.Run("zero fee writes only the payout", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		mocks.LedgerRepo.On("LockAccounts", mock.Anything, []string{TestOpponentID, TestCreatorID, TestPlatformID}).Return(nil)
		helper.ExpectGameEntries(gameID, stakeLocks(gameID, 1, TestCreatorID, TestOpponentID))
		helper.ExpectBalance(TestOpponentID, 7)
		helper.ExpectLedgerAppend(TestOpponentID, entities.EntryReasonWinPayout, 2)

		settlement, err := newTestEscrowService(mocks).Settle(context.Background(), gameID, TestOpponentID, TestCreatorID, 1)

		require.NoError(t, err)
		assert.Equal(t, int64(0), settlement.Fee)
		mocks.AssertAllExpectations(t)
	})

	t.Run("settling twice conflicts", func(t *testing.T) {
		mocks := NewTestMocks()
		entries := stakeLocks(gameID, TestStake, TestCreatorID, TestOpponentID)
		entries = append(entries, entities.NewLedgerEntry(TestCreatorID, entities.EntryReasonWinPayout, 180, &gameID))
		mocks.LedgerRepo.On("LockAccounts", mock.Anything, mock.Anything).Return(nil)
		NewMockHelper(mocks).ExpectGameEntries(gameID, entries)

		_, err := newTestEscrowService(mocks).Settle(context.Background(), gameID, TestCreatorID, TestOpponentID, TestStake)

		assert.ErrorIs(t, err, domain.ErrConflict)
		mocks.LedgerRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("settling without locked stakes conflicts", func(t *testing.T) {
		mocks := NewTestMocks()
		mocks.LedgerRepo.On("LockAccounts", mock.Anything, mock.Anything).Return(nil)
		NewMockHelper(mocks).ExpectGameEntries(gameID, stakeLocks(gameID, TestStake, TestCreatorID))

		_, err := newTestEscrowService(mocks).Settle(context.Background(), gameID, TestCreatorID, TestOpponentID, TestStake)

		assert.ErrorIs(t, err, domain.ErrConflict)
		mocks.LedgerRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("payout that would overflow the winner's balance writes nothing", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		mocks.LedgerRepo.On("LockAccounts", mock.Anything, []string{TestCreatorID, TestOpponentID, TestPlatformID}).Return(nil)
		helper.ExpectGameEntries(gameID, stakeLocks(gameID, TestStake, TestCreatorID, TestOpponentID))
		helper.ExpectBalance(TestCreatorID, math.MaxInt64-100)

		_, err := newTestEscrowService(mocks).Settle(context.Background(), gameID, TestCreatorID, TestOpponentID, TestStake)

		assert.ErrorIs(t, err, domain.ErrValidation)
		mocks.LedgerRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		mocks.AssertAllExpectations(t)
	})
}

func TestEscrowService_Refund(t *testing.T) {
	gameID := TestGameID

	t.Run("reverses both locks", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		mocks.LedgerRepo.On("LockAccounts", mock.Anything, []string{TestCreatorID, TestOpponentID}).Return(nil)
		helper.ExpectGameEntries(gameID, stakeLocks(gameID, TestStake, TestCreatorID, TestOpponentID))
		helper.ExpectBalance(TestCreatorID, 0)
		helper.ExpectBalance(TestOpponentID, 50)
		helper.ExpectLedgerAppend(TestCreatorID, entities.EntryReasonStakeRefund, TestStake)
		helper.ExpectLedgerAppend(TestOpponentID, entities.EntryReasonStakeRefund, TestStake)

		err := newTestEscrowService(mocks).Refund(context.Background(), gameID, TestCreatorID, TestOpponentID, TestStake)

		require.NoError(t, err)
		mocks.AssertAllExpectations(t)
	})

	t.Run("refunding a settled game conflicts", func(t *testing.T) {
		mocks := NewTestMocks()
		entries := stakeLocks(gameID, TestStake, TestCreatorID, TestOpponentID)
		entries = append(entries, entities.NewLedgerEntry(TestPlatformID, entities.EntryReasonPlatformFee, 20, &gameID))
		mocks.LedgerRepo.On("LockAccounts", mock.Anything, []string{TestCreatorID, TestOpponentID}).Return(nil)
		NewMockHelper(mocks).ExpectGameEntries(gameID, entries)

		err := newTestEscrowService(mocks).Refund(context.Background(), gameID, TestCreatorID, TestOpponentID, TestStake)

		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

package services

import (
	"context"
	"testing"
	"time"

	"quizstake/domain/entities"
	"quizstake/domain/events"
	"quizstake/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// Test constants for consistent test data
const (
	TestGameID     = int64(1)
	TestCreatorID  = "creator-uid"
	TestOpponentID = "opponent-uid"
	TestOtherID    = "other-uid"
	TestPlatformID = "platform"
	TestStake      = int64(100)
)

// TestMocks aggregates all mocks for testing
type TestMocks struct {
	GameRepo       *testhelpers.MockGameRepository
	LedgerRepo     *testhelpers.MockLedgerRepository
	EventPublisher *testhelpers.MockEventPublisher
	Escrow         *testhelpers.MockEscrowService
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		GameRepo:       &testhelpers.MockGameRepository{},
		LedgerRepo:     &testhelpers.MockLedgerRepository{},
		EventPublisher: &testhelpers.MockEventPublisher{},
		Escrow:         &testhelpers.MockEscrowService{},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.GameRepo.AssertExpectations(t)
	m.LedgerRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
	m.Escrow.AssertExpectations(t)
}

func testFeePolicy() FeePolicy {
	return FeePolicy{Rate: decimal.RequireFromString("0.10"), PlatformAccountID: TestPlatformID}
}

// MockHelper provides common mock setup patterns
type MockHelper struct {
	mocks *TestMocks
	ctx   context.Context
}

// NewMockHelper creates a new mock helper
func NewMockHelper(mocks *TestMocks) *MockHelper {
	return &MockHelper{
		mocks: mocks,
		ctx:   context.Background(),
	}
}

// ExpectGameLookup returns a copy of game from GetByID
func (h *MockHelper) ExpectGameLookup(game *entities.Game) {
	h.mocks.GameRepo.On("GetByID", mock.Anything, game.ID).Return(game.Clone(), nil).Once()
}

// ExpectGameNotFound sets up the game repository to return not found
func (h *MockHelper) ExpectGameNotFound(gameID int64) {
	h.mocks.GameRepo.On("GetByID", mock.Anything, gameID).Return(nil, nil).Once()
}

// ExpectSwap expects a compare-and-swap from expected to next
func (h *MockHelper) ExpectSwap(expected, next entities.GameStatus, swapped bool) {
	h.mocks.GameRepo.On("CompareAndSwap", mock.Anything, mock.MatchedBy(func(g *entities.Game) bool {
		return g.Status == next
	}), expected).Run(func(args mock.Arguments) {
		if swapped {
			g := args.Get(1).(*entities.Game)
			g.Version++
			g.UpdatedAt = time.Now()
		}
	}).Return(swapped, nil).Once()
}

// ExpectEventPublish sets up event publisher mock expectations
func (h *MockHelper) ExpectEventPublish(eventType events.EventType) {
	h.mocks.EventPublisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		return e.Type() == eventType
	})).Return(nil).Once()
}

// ExpectLedgerAppend expects one entry for userID with reason and amount
func (h *MockHelper) ExpectLedgerAppend(userID string, reason entities.EntryReason, amount int64) {
	h.mocks.LedgerRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *entities.LedgerEntry) bool {
		return e.UserID == userID && e.Reason == reason && e.Amount == amount
	})).Run(func(args mock.Arguments) {
		e := args.Get(1).(*entities.LedgerEntry)
		e.ID = time.Now().UnixNano()
		e.CreatedAt = time.Now()
	}).Return(nil).Once()
	h.ExpectEventPublish(events.EventTypeBalanceChanged)
}

// ExpectBalance sets up the ledger balance for userID
func (h *MockHelper) ExpectBalance(userID string, balance int64) {
	h.mocks.LedgerRepo.On("Balance", mock.Anything, userID).Return(balance, nil).Once()
}

// ExpectGameEntries sets up the entries already recorded for gameID
func (h *MockHelper) ExpectGameEntries(gameID int64, entries []*entities.LedgerEntry) {
	h.mocks.LedgerRepo.On("EntriesForGame", mock.Anything, gameID).Return(entries, nil).Once()
}

func pendingGame() *entities.Game {
	return &entities.Game{
		ID:        TestGameID,
		CreatorID: TestCreatorID,
		Stake:     TestStake,
		Status:    entities.GameStatusPending,
		Version:   1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func liveGame() *entities.Game {
	game := pendingGame()
	opponent := TestOpponentID
	game.OpponentID = &opponent
	game.Status = entities.GameStatusLive
	game.Version = 2
	return game
}

func stakeLocks(gameID int64, stake int64, players ...string) []*entities.LedgerEntry {
	entries := make([]*entities.LedgerEntry, 0, len(players))
	for i, p := range players {
		e := entities.NewLedgerEntry(p, entities.EntryReasonStakeLock, stake, &gameID)
		e.ID = int64(i + 1)
		entries = append(entries, e)
	}
	return entries
}

func strPtr(s string) *string { return &s }

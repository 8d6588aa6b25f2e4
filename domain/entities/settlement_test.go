package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildConservationReport(t *testing.T) {
	gameID := int64(9)
	lock := func(user string) *LedgerEntry { return NewLedgerEntry(user, EntryReasonStakeLock, 100, &gameID) }

	t.Run("completed game balances payout and fee against locks", func(t *testing.T) {
		game := &Game{ID: gameID, Stake: 100, Status: GameStatusCompleted}
		report := BuildConservationReport(game, []*LedgerEntry{
			lock("alice"), lock("bob"),
			NewLedgerEntry("alice", EntryReasonWinPayout, 180, &gameID),
			NewLedgerEntry("platform", EntryReasonPlatformFee, 20, &gameID),
		})

		assert.True(t, report.Balanced)
		assert.Equal(t, int64(200), report.Locked)
		assert.Equal(t, int64(180), report.Payout)
		assert.Equal(t, int64(20), report.Fee)
		assert.Equal(t, int64(0), report.Outstanding())
	})

	t.Run("completed game missing fee is unbalanced", func(t *testing.T) {
		game := &Game{ID: gameID, Stake: 100, Status: GameStatusCompleted}
		report := BuildConservationReport(game, []*LedgerEntry{
			lock("alice"), lock("bob"),
			NewLedgerEntry("alice", EntryReasonWinPayout, 180, &gameID),
		})

		assert.False(t, report.Balanced)
		assert.Equal(t, int64(20), report.Outstanding())
	})

	t.Run("live game holds the pot", func(t *testing.T) {
		game := &Game{ID: gameID, Stake: 100, Status: GameStatusLive}
		report := BuildConservationReport(game, []*LedgerEntry{lock("alice"), lock("bob")})
		assert.True(t, report.Balanced)
	})

	t.Run("voided game refunds both stakes", func(t *testing.T) {
		game := &Game{ID: gameID, Stake: 100, Status: GameStatusCancelled}
		report := BuildConservationReport(game, []*LedgerEntry{
			lock("alice"), lock("bob"),
			NewLedgerEntry("alice", EntryReasonStakeRefund, 100, &gameID),
			NewLedgerEntry("bob", EntryReasonStakeRefund, 100, &gameID),
		})
		assert.True(t, report.Balanced)
	})

	t.Run("pending game has no entries", func(t *testing.T) {
		game := &Game{ID: gameID, Stake: 100, Status: GameStatusPending}
		assert.True(t, BuildConservationReport(game, nil).Balanced)
		assert.False(t, BuildConservationReport(game, []*LedgerEntry{lock("alice")}).Balanced)
	})
}

func TestSettlement_IsBalanced(t *testing.T) {
	assert.True(t, (&Settlement{Pot: 200, Payout: 180, Fee: 20}).IsBalanced())
	assert.False(t, (&Settlement{Pot: 200, Payout: 180, Fee: 19}).IsBalanced())
	assert.False(t, (&Settlement{Pot: 200, Payout: 201, Fee: -1}).IsBalanced())
}

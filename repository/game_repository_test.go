package repository

import (
	"context"
	"sync"
	"testing"

	"quizstake/domain/entities"
	"quizstake/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGameRepository(testDB.DB)
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		game, err := repo.GetByID(ctx, 99999)
		require.NoError(t, err)
		assert.Nil(t, game)
	})

	t.Run("round trip", func(t *testing.T) {
		invitee := "bob"
		game := testutil.NewPendingGame("alice", 250)
		game.InviteeID = &invitee
		game.Subjects = []string{"history", "geography"}

		require.NoError(t, repo.Create(ctx, game))
		assert.NotZero(t, game.ID)
		assert.Equal(t, int64(1), game.Version)
		assert.False(t, game.CreatedAt.IsZero())

		stored, err := repo.GetByID(ctx, game.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "alice", stored.CreatorID)
		assert.Equal(t, int64(250), stored.Stake)
		assert.Equal(t, entities.GameStatusPending, stored.Status)
		assert.Equal(t, []string{"history", "geography"}, stored.Subjects)
		require.NotNil(t, stored.InviteeID)
		assert.Equal(t, "bob", *stored.InviteeID)
		assert.Nil(t, stored.OpponentID)
		assert.Nil(t, stored.WinnerID)
	})

	t.Run("check constraints reject self invite", func(t *testing.T) {
		self := "alice"
		game := testutil.NewPendingGame("alice", 10)
		game.InviteeID = &self
		assert.Error(t, repo.Create(ctx, game))
	})

	t.Run("check constraints reject non-positive stake", func(t *testing.T) {
		assert.Error(t, repo.Create(ctx, testutil.NewPendingGame("alice", 0)))
	})
}

func TestGameRepository_CompareAndSwap(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGameRepository(testDB.DB)
	ctx := context.Background()

	t.Run("swap bumps version", func(t *testing.T) {
		game := testutil.NewPendingGame("alice", 100)
		require.NoError(t, repo.Create(ctx, game))

		opponent := "bob"
		game.Status = entities.GameStatusLive
		game.OpponentID = &opponent

		swapped, err := repo.CompareAndSwap(ctx, game, entities.GameStatusPending)
		require.NoError(t, err)
		assert.True(t, swapped)
		assert.Equal(t, int64(2), game.Version)

		stored, err := repo.GetByID(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.GameStatusLive, stored.Status)
		assert.Equal(t, "bob", *stored.OpponentID)
	})

	t.Run("stale version loses", func(t *testing.T) {
		game := testutil.NewPendingGame("alice", 100)
		require.NoError(t, repo.Create(ctx, game))

		stale := game.Clone()
		game.Status = entities.GameStatusCancelled
		swapped, err := repo.CompareAndSwap(ctx, game, entities.GameStatusPending)
		require.NoError(t, err)
		require.True(t, swapped)

		opponent := "bob"
		stale.Status = entities.GameStatusLive
		stale.OpponentID = &opponent
		swapped, err = repo.CompareAndSwap(ctx, stale, entities.GameStatusPending)
		require.NoError(t, err)
		assert.False(t, swapped)
	})

	t.Run("exactly one concurrent swap wins", func(t *testing.T) {
		game := testutil.NewPendingGame("alice", 100)
		require.NoError(t, repo.Create(ctx, game))

		const contenders = 8
		var wg sync.WaitGroup
		results := make(chan bool, contenders)
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				attempt := game.Clone()
				opponent := []string{"bob", "carol", "dave", "erin", "frank", "grace", "heidi", "ivan"}[i]
				attempt.Status = entities.GameStatusLive
				attempt.OpponentID = &opponent
				swapped, err := repo.CompareAndSwap(ctx, attempt, entities.GameStatusPending)
				assert.NoError(t, err)
				results <- swapped
			}(i)
		}
		wg.Wait()
		close(results)

		wins := 0
		for swapped := range results {
			if swapped {
				wins++
			}
		}
		assert.Equal(t, 1, wins)
	})
}

func TestGameRepository_DeleteAndList(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGameRepository(testDB.DB)
	ctx := context.Background()

	open := testutil.NewPendingGame("alice", 100)
	require.NoError(t, repo.Create(ctx, open))
	matched := testutil.NewPendingGame("carol", 100)
	require.NoError(t, repo.Create(ctx, matched))

	opponent := "alice"
	matched.Status = entities.GameStatusLive
	matched.OpponentID = &opponent
	swapped, err := repo.CompareAndSwap(ctx, matched, entities.GameStatusPending)
	require.NoError(t, err)
	require.True(t, swapped)

	t.Run("list open only returns pending", func(t *testing.T) {
		games, err := repo.ListOpen(ctx, 10)
		require.NoError(t, err)
		require.Len(t, games, 1)
		assert.Equal(t, open.ID, games[0].ID)
	})

	t.Run("list by user includes joined games", func(t *testing.T) {
		games, err := repo.ListByUser(ctx, "alice", 10)
		require.NoError(t, err)
		assert.Len(t, games, 2)
	})

	t.Run("delete refuses live game", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, matched.ID, matched.Version)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("delete refuses stale version", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, open.ID, open.Version+1)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("delete pending game", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, open.ID, open.Version)
		require.NoError(t, err)
		assert.True(t, deleted)

		game, err := repo.GetByID(ctx, open.ID)
		require.NoError(t, err)
		assert.Nil(t, game)
	})
}

package memory

import (
	"context"

	"quizstake/domain/entities"
)

type gameRepository struct {
	tx *txState
}

func (r *gameRepository) Create(ctx context.Context, game *entities.Game) error {
	if game.Subjects == nil {
		game.Subjects = []string{}
	}
	now := r.tx.store.now()
	game.ID = r.tx.store.allocateGameID()
	game.Version = 1
	game.CreatedAt = now
	game.UpdatedAt = now

	r.tx.games[game.ID] = &gameWrite{game: game.Clone(), created: true}
	return nil
}

func (r *gameRepository) GetByID(ctx context.Context, id int64) (*entities.Game, error) {
	return r.tx.game(id), nil
}

func (r *gameRepository) CompareAndSwap(ctx context.Context, game *entities.Game, expected entities.GameStatus) (bool, error) {
	current := r.tx.game(game.ID)
	if current == nil || current.Status != expected || current.Version != game.Version {
		return false, nil
	}

	readVersion := current.Version
	game.Version = readVersion + 1
	game.UpdatedAt = r.tx.store.now()

	next := current.Clone()
	next.Status = game.Status
	next.OpponentID = cloneString(game.OpponentID)
	next.WinnerID = cloneString(game.WinnerID)
	next.Version = game.Version
	next.UpdatedAt = game.UpdatedAt

	r.tx.write(next, readVersion)
	return true, nil
}

func (r *gameRepository) Delete(ctx context.Context, id int64, version int64) (bool, error) {
	current := r.tx.game(id)
	if current == nil || current.Version != version || !current.IsPending() || current.IsMatched() {
		return false, nil
	}
	r.tx.remove(id, current.Version)
	return true, nil
}

func (r *gameRepository) ListOpen(ctx context.Context, limit int) ([]*entities.Game, error) {
	return r.filter(limit, func(g *entities.Game) bool {
		return g.IsPending()
	}), nil
}

func (r *gameRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Game, error) {
	return r.filter(limit, func(g *entities.Game) bool {
		return g.CreatorID == userID || (g.OpponentID != nil && *g.OpponentID == userID)
	}), nil
}

func (r *gameRepository) filter(limit int, keep func(*entities.Game) bool) []*entities.Game {
	var out []*entities.Game
	for _, g := range r.tx.allGames() {
		if !keep(g) {
			continue
		}
		out = append(out, g)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

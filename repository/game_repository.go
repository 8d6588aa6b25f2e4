package repository

import (
	"context"
	"errors"

	"quizstake/database"
	"quizstake/domain/entities"

	"github.com/jackc/pgx/v5"
)

const gameColumns = `id, creator_id, opponent_id, invitee_id, stake, subjects, status, winner_id, version, created_at, updated_at`

// GameRepository implements game data access
type GameRepository struct {
	q Queryable
}

// NewGameRepository creates a game repository on the pool
func NewGameRepository(db *database.DB) *GameRepository {
	return &GameRepository{q: db.Pool}
}

func newGameRepositoryWithTx(tx Queryable) *GameRepository {
	return &GameRepository{q: tx}
}

// Create inserts a new game
func (r *GameRepository) Create(ctx context.Context, game *entities.Game) error {
	query := `
		INSERT INTO games (creator_id, opponent_id, invitee_id, stake, subjects, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version, created_at, updated_at
	`

	subjects := game.Subjects
	if subjects == nil {
		subjects = []string{}
	}

	err := r.q.QueryRow(ctx, query,
		game.CreatorID,
		game.OpponentID,
		game.InviteeID,
		game.Stake,
		subjects,
		game.Status,
	).Scan(&game.ID, &game.Version, &game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		return classifyError(err, "failed to create game")
	}

	game.Subjects = subjects
	return nil
}

// GetByID retrieves a game by its ID
func (r *GameRepository) GetByID(ctx context.Context, id int64) (*entities.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError(err, "failed to get game %d", id)
	}
	return game, nil
}

// CompareAndSwap writes the mutable columns of game only if the row is still
// at the expected status and the version the caller read. Under read
// committed a concurrent writer blocks on the row lock and then re-checks the
// WHERE clause against the committed row, so exactly one swap wins.
func (r *GameRepository) CompareAndSwap(ctx context.Context, game *entities.Game, expected entities.GameStatus) (bool, error) {
	query := `
		UPDATE games
		SET status = $1, opponent_id = $2, winner_id = $3,
		    version = version + 1, updated_at = clock_timestamp()
		WHERE id = $4 AND status = $5 AND version = $6
		RETURNING version, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		game.Status,
		game.OpponentID,
		game.WinnerID,
		game.ID,
		expected,
		game.Version,
	).Scan(&game.Version, &game.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classifyError(err, "failed to update game %d", game.ID)
	}
	return true, nil
}

// Delete removes a pending, unmatched game at the given version
func (r *GameRepository) Delete(ctx context.Context, id int64, version int64) (bool, error) {
	query := `
		DELETE FROM games
		WHERE id = $1 AND version = $2 AND status = 'pending' AND opponent_id IS NULL
	`

	tag, err := r.q.Exec(ctx, query, id, version)
	if err != nil {
		return false, classifyError(err, "failed to delete game %d", id)
	}
	return tag.RowsAffected() == 1, nil
}

// ListOpen returns pending games, newest first
func (r *GameRepository) ListOpen(ctx context.Context, limit int) ([]*entities.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE status = 'pending'
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	return r.list(ctx, "open games", query, limit)
}

// ListByUser returns games the user created or joined, newest first
func (r *GameRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE creator_id = $1 OR opponent_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return r.list(ctx, "games for user", query, userID, limit)
}

func (r *GameRepository) list(ctx context.Context, what string, query string, args ...any) ([]*entities.Game, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyError(err, "failed to list %s", what)
	}
	defer rows.Close()

	var games []*entities.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, classifyError(err, "failed to scan game")
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "failed to iterate %s", what)
	}
	return games, nil
}

func scanGame(row pgx.Row) (*entities.Game, error) {
	var game entities.Game
	err := row.Scan(
		&game.ID,
		&game.CreatorID,
		&game.OpponentID,
		&game.InviteeID,
		&game.Stake,
		&game.Subjects,
		&game.Status,
		&game.WinnerID,
		&game.Version,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

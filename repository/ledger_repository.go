package repository

import (
	"context"
	"fmt"
	"sort"

	"quizstake/database"
	"quizstake/domain/entities"

	"github.com/jackc/pgx/v5"
)

// ledgerLockClass namespaces the advisory locks taken on ledger accounts
const ledgerLockClass = 7301

const ledgerColumns = `id, user_id, kind, amount, game_id, reason, created_at`

// LedgerRepository implements the append-only ledger on ledger_entries. The
// table itself rejects UPDATE and DELETE through a trigger.
type LedgerRepository struct {
	q Queryable
}

// NewLedgerRepository creates a ledger repository on the pool
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

func newLedgerRepositoryWithTx(tx Queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Append inserts an entry
func (r *LedgerRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("refusing to append ledger entry: %w", err)
	}

	query := `
		INSERT INTO ledger_entries (user_id, kind, amount, game_id, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.UserID,
		entry.Kind,
		entry.Amount,
		entry.GameID,
		entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return classifyError(err, "failed to append ledger entry for %s", entry.UserID)
	}
	return nil
}

// EntriesFor returns the user's entries after afterID in creation order
func (r *LedgerRepository) EntriesFor(ctx context.Context, userID string, afterID int64, limit int) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE user_id = $1 AND id > $2
		ORDER BY id
	`
	args := []any{userID, afterID}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	return r.list(ctx, "ledger entries for user", query, args...)
}

// EntriesForGame returns every entry tagged with the game
func (r *LedgerRepository) EntriesForGame(ctx context.Context, gameID int64) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE game_id = $1
		ORDER BY id
	`
	return r.list(ctx, "ledger entries for game", query, gameID)
}

// Balance folds the user's entries in one statement, so it sees every entry
// of a committed transaction or none of them.
func (r *LedgerRepository) Balance(ctx context.Context, userID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN kind = 'credit' THEN amount ELSE -amount END), 0)::BIGINT
		FROM ledger_entries
		WHERE user_id = $1
	`

	var balance int64
	if err := r.q.QueryRow(ctx, query, userID).Scan(&balance); err != nil {
		return 0, classifyError(err, "failed to compute balance for %s", userID)
	}
	return balance, nil
}

// LockAccounts takes transaction-scoped advisory locks on the accounts in a
// fixed order, so two transactions locking overlapping accounts cannot
// deadlock. Locks are released at commit or rollback. Every ledger write
// locks its accounts before inserting, so an account's entry IDs follow
// commit order and cursor paging never skips one.
func (r *LedgerRepository) LockAccounts(ctx context.Context, userIDs ...string) error {
	ids := uniqueSorted(userIDs)
	for _, id := range ids {
		if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1, hashtext($2))`, ledgerLockClass, id); err != nil {
			return classifyError(err, "failed to lock ledger account %s", id)
		}
	}
	return nil
}

// AccountIDs returns every user with at least one entry
func (r *LedgerRepository) AccountIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT user_id FROM ledger_entries ORDER BY user_id`)
	if err != nil {
		return nil, classifyError(err, "failed to list ledger accounts")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classifyError(err, "failed to scan ledger accounts")
	}
	return ids, nil
}

func (r *LedgerRepository) list(ctx context.Context, what string, query string, args ...any) ([]*entities.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyError(err, "failed to list %s", what)
	}
	defer rows.Close()

	var entries []*entities.LedgerEntry
	for rows.Next() {
		var e entities.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Amount, &e.GameID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, classifyError(err, "failed to scan ledger entry")
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "failed to iterate %s", what)
	}
	return entries, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

package memory

import (
	"context"
	"fmt"
	"sort"

	"quizstake/domain"
	"quizstake/domain/entities"
)

type ledgerRepository struct {
	tx *txState
}

func (r *ledgerRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("refusing to append ledger entry: %w", err)
	}

	if entry.GameID != nil {
		key := entryKey{*entry.GameID, entry.UserID, entry.Reason}
		if _, dup := r.tx.keys[key]; dup || r.tx.store.hasKey(key) {
			return domain.NewConflictError("%s already recorded for %s in game %d", entry.Reason, entry.UserID, *entry.GameID)
		}
		r.tx.keys[key] = struct{}{}
	}

	entry.ID = r.tx.store.allocateEntryID()
	entry.CreatedAt = r.tx.store.now()

	stored := *entry
	r.tx.entries = append(r.tx.entries, &stored)
	return nil
}

func (r *ledgerRepository) EntriesFor(ctx context.Context, userID string, afterID int64, limit int) ([]*entities.LedgerEntry, error) {
	all := r.tx.entriesFor(userID)
	start := sort.Search(len(all), func(i int) bool { return all[i].ID > afterID })
	out := all[start:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ledgerRepository) EntriesForGame(ctx context.Context, gameID int64) ([]*entities.LedgerEntry, error) {
	return r.tx.entriesForGame(gameID), nil
}

func (r *ledgerRepository) Balance(ctx context.Context, userID string) (int64, error) {
	return entities.Balance(r.tx.entriesFor(userID)), nil
}

func (r *ledgerRepository) LockAccounts(ctx context.Context, userIDs ...string) error {
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, seen := r.tx.heads[id]; seen {
			continue
		}
		r.tx.heads[id] = r.tx.store.committedHead(id)
	}
	return nil
}

func (r *ledgerRepository) AccountIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, id := range r.tx.store.accountIDs() {
		seen[id] = struct{}{}
	}
	for _, e := range r.tx.entries {
		seen[e.UserID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

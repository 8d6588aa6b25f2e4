package memory

import (
	"sort"

	"quizstake/domain/entities"
)

// gameWrite is a buffered game change. A nil game is a delete.
type gameWrite struct {
	game        *entities.Game
	created     bool
	baseVersion int64
}

type txState struct {
	store   *Store
	closed  bool
	games   map[int64]*gameWrite
	entries []*entities.LedgerEntry
	keys    map[entryKey]struct{}
	// heads records, per locked account, how many committed entries the
	// unit observed. Any commit to that account in between fails this one.
	heads map[string]int
}

func newTxState(store *Store) *txState {
	return &txState{
		store: store,
		games: make(map[int64]*gameWrite),
		keys:  make(map[entryKey]struct{}),
		heads: make(map[string]int),
	}
}

// game returns this unit's view of a game
func (t *txState) game(id int64) *entities.Game {
	if w, ok := t.games[id]; ok {
		return w.game.Clone()
	}
	return t.store.committedGame(id)
}

func (t *txState) allGames() []*entities.Game {
	view := t.store.committedGames()
	for id, w := range t.games {
		if w.game == nil {
			delete(view, id)
			continue
		}
		view[id] = w.game.Clone()
	}

	games := make([]*entities.Game, 0, len(view))
	for _, g := range view {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool {
		if !games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].CreatedAt.After(games[j].CreatedAt)
		}
		return games[i].ID > games[j].ID
	})
	return games
}

// write buffers next, keeping the version first read from committed state
func (t *txState) write(next *entities.Game, readVersion int64) {
	if w, ok := t.games[next.ID]; ok {
		w.game = next
		return
	}
	t.games[next.ID] = &gameWrite{game: next, baseVersion: readVersion}
}

func (t *txState) remove(id int64, readVersion int64) {
	if w, ok := t.games[id]; ok {
		if w.created {
			delete(t.games, id)
			return
		}
		w.game = nil
		return
	}
	t.games[id] = &gameWrite{baseVersion: readVersion}
}

func (t *txState) entriesFor(userID string) []*entities.LedgerEntry {
	entries := t.store.committedEntriesFor(userID)
	for _, e := range t.entries {
		if e.UserID == userID {
			c := *e
			entries = append(entries, &c)
		}
	}
	sortByID(entries)
	return entries
}

func (t *txState) entriesForGame(gameID int64) []*entities.LedgerEntry {
	entries := t.store.committedEntriesForGame(gameID)
	for _, e := range t.entries {
		if e.GameID != nil && *e.GameID == gameID {
			c := *e
			entries = append(entries, &c)
		}
	}
	sortByID(entries)
	return entries
}

func sortByID(entries []*entities.LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
}

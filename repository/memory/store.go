// Package memory is a process-local store with the same transactional
// guarantees as the postgres repositories. Units of work buffer their writes
// and validate them at commit against what they read; a commit that lost a
// race fails with domain.ErrWriteConflict and is retried by the caller.
package memory

import (
	"sort"
	"sync"
	"time"

	"quizstake/domain/entities"
)

type entryKey struct {
	gameID int64
	userID string
	reason entities.EntryReason
}

// Store holds committed games and ledger entries
type Store struct {
	mu sync.Mutex

	games      map[int64]*entities.Game
	nextGameID int64

	entries     []*entities.LedgerEntry
	byUser      map[string][]*entities.LedgerEntry
	byGame      map[int64][]*entities.LedgerEntry
	keys        map[entryKey]struct{}
	nextEntryID int64

	now func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		games:  make(map[int64]*entities.Game),
		byUser: make(map[string][]*entities.LedgerEntry),
		byGame: make(map[int64][]*entities.LedgerEntry),
		keys:   make(map[entryKey]struct{}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) allocateGameID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGameID++
	return s.nextGameID
}

func (s *Store) allocateEntryID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEntryID++
	return s.nextEntryID
}

// committedGame returns a copy of the stored game, or nil
func (s *Store) committedGame(id int64) *entities.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.games[id]; ok {
		return g.Clone()
	}
	return nil
}

func (s *Store) committedGames() map[int64]*entities.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]*entities.Game, len(s.games))
	for id, g := range s.games {
		out[id] = g.Clone()
	}
	return out
}

func (s *Store) committedEntriesFor(userID string) []*entities.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEntries(s.byUser[userID])
}

func (s *Store) committedEntriesForGame(gameID int64) []*entities.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEntries(s.byGame[gameID])
}

func (s *Store) committedHead(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser[userID])
}

func (s *Store) hasKey(k entryKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[k]
	return ok
}

func (s *Store) accountIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.byUser))
	for id := range s.byUser {
		ids = append(ids, id)
	}
	return ids
}

// insertEntry keeps every index ordered by entry ID. IDs are allocated at
// append time, so the global list can receive a lower ID late. Per account
// this cannot happen: every append path locks the account first, and a
// locked account that moved fails the commit.
func (s *Store) insertEntry(e *entities.LedgerEntry) {
	s.entries = insertSorted(s.entries, e)
	s.byUser[e.UserID] = insertSorted(s.byUser[e.UserID], e)
	if e.GameID != nil {
		s.byGame[*e.GameID] = insertSorted(s.byGame[*e.GameID], e)
		s.keys[entryKey{*e.GameID, e.UserID, e.Reason}] = struct{}{}
	}
}

func insertSorted(list []*entities.LedgerEntry, e *entities.LedgerEntry) []*entities.LedgerEntry {
	i := sort.Search(len(list), func(i int) bool { return list[i].ID > e.ID })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = e
	return list
}

func copyEntries(list []*entities.LedgerEntry) []*entities.LedgerEntry {
	out := make([]*entities.LedgerEntry, len(list))
	for i, e := range list {
		c := *e
		out[i] = &c
	}
	return out
}

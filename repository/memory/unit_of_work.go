package memory

import (
	"context"
	"fmt"

	"quizstake/domain"
	"quizstake/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type unitOfWorkFactory struct {
	store *Store
}

// NewUnitOfWorkFactory creates units of work over store
func NewUnitOfWorkFactory(store *Store) *unitOfWorkFactory {
	return &unitOfWorkFactory{store: store}
}

// CreateWithPublisher creates a UnitOfWork that flushes transactionalPublisher
// after commit
func (f *unitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) interfaces.UnitOfWork {
	return &unitOfWork{
		store:                  f.store,
		transactionalPublisher: transactionalPublisher,
	}
}

// unitOfWork buffers writes and validates its read set at commit. Reads see
// committed data plus the unit's own writes.
type unitOfWork struct {
	store                  *Store
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher

	tx         *txState
	gameRepo   *gameRepository
	ledgerRepo *ledgerRepository
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	if err := ctx.Err(); err != nil {
		return domain.NewStorageUnavailableError(err, "failed to begin transaction")
	}

	u.ctx = ctx
	u.tx = newTxState(u.store)
	u.gameRepo = &gameRepository{tx: u.tx}
	u.ledgerRepo = &ledgerRepository{tx: u.tx}
	return nil
}

func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	tx := u.tx
	u.tx = nil
	tx.closed = true

	if err := u.store.apply(tx); err != nil {
		if u.transactionalPublisher != nil {
			u.transactionalPublisher.Discard()
		}
		return err
	}

	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			log.WithError(err).Error("Failed to flush events after commit")
		}
	}
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	u.tx.closed = true
	u.tx = nil

	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}
	return nil
}

func (u *unitOfWork) GameRepository() interfaces.GameRepository {
	if u.gameRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.gameRepo
}

func (u *unitOfWork) LedgerRepository() interfaces.LedgerRepository {
	if u.ledgerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ledgerRepo
}

func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalPublisher
}

// apply validates tx against the committed state and installs its writes.
func (s *Store) apply(tx *txState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, w := range tx.games {
		if w.created {
			continue
		}
		current, ok := s.games[id]
		if !ok || current.Version != w.baseVersion {
			return domain.NewWriteConflictError(nil, "game %d changed concurrently", id)
		}
	}
	for userID, head := range tx.heads {
		if len(s.byUser[userID]) != head {
			return domain.NewWriteConflictError(nil, "ledger account %s changed concurrently", userID)
		}
	}
	for _, e := range tx.entries {
		if e.GameID == nil {
			continue
		}
		if _, dup := s.keys[entryKey{*e.GameID, e.UserID, e.Reason}]; dup {
			return domain.NewWriteConflictError(nil, "ledger entry %s/%s for game %d committed concurrently", e.UserID, e.Reason, *e.GameID)
		}
	}

	for id, w := range tx.games {
		if w.game == nil {
			delete(s.games, id)
			continue
		}
		s.games[id] = w.game
	}
	for _, e := range tx.entries {
		s.insertEntry(e)
	}
	return nil
}

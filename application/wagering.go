package application

import (
	"context"
	"errors"
	"time"

	"quizstake/domain"
	"quizstake/domain/entities"
	"quizstake/domain/interfaces"
	"quizstake/domain/services"
	"quizstake/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// Wagering runs every game and ledger operation in its own unit of work.
// Units that lose an optimistic race or a serialization check are retried
// from scratch up to maxAttempts times.
type Wagering struct {
	uowFactory  interfaces.UnitOfWorkFactory
	feePolicy   services.FeePolicy
	cache       BalanceCache
	metrics     *observability.Metrics
	maxAttempts int
}

// NewWagering creates the wagering application service
func NewWagering(
	uowFactory interfaces.UnitOfWorkFactory,
	feePolicy services.FeePolicy,
	cache BalanceCache,
	metrics *observability.Metrics,
	maxAttempts int,
) *Wagering {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Wagering{
		uowFactory:  uowFactory,
		feePolicy:   feePolicy,
		cache:       cache,
		metrics:     metrics,
		maxAttempts: maxAttempts,
	}
}

// txServices are the domain services bound to one unit of work
type txServices struct {
	games  interfaces.GameService
	ledger interfaces.LedgerService
}

func (w *Wagering) bind(uow interfaces.UnitOfWork) txServices {
	escrow := services.NewEscrowService(uow.LedgerRepository(), uow.EventBus(), w.feePolicy)
	return txServices{
		games:  services.NewGameService(uow.GameRepository(), escrow, uow.EventBus(), w.feePolicy.PlatformAccountID),
		ledger: services.NewLedgerService(uow.LedgerRepository(), uow.GameRepository(), uow.EventBus(), w.feePolicy.PlatformAccountID),
	}
}

func (w *Wagering) inTx(ctx context.Context, operation string, fn func(txServices) error) error {
	return w.inUnit(ctx, operation, func(uow interfaces.UnitOfWork) error {
		return fn(w.bind(uow))
	})
}

func (w *Wagering) inUnit(ctx context.Context, operation string, fn func(interfaces.UnitOfWork) error) error {
	start := time.Now()
	err := w.retry(ctx, operation, fn)
	w.metrics.RecordOperation(operation, outcome(err), time.Since(start))
	return err
}

func (w *Wagering) retry(ctx context.Context, operation string, fn func(interfaces.UnitOfWork) error) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err := w.runOnce(ctx, fn)
		if !errors.Is(err, domain.ErrWriteConflict) {
			return err
		}
		lastErr = err

		log.WithFields(log.Fields{
			"operation": operation,
			"attempt":   attempt,
			"error":     err,
		}).Debug("Unit of work lost a write conflict")

		if attempt == w.maxAttempts || ctx.Err() != nil {
			break
		}
		w.metrics.RecordRetry(operation)
	}

	log.WithFields(log.Fields{
		"operation": operation,
		"attempts":  w.maxAttempts,
	}).Warn("Giving up after repeated write conflicts")
	return domain.NewStorageUnavailableError(lastErr, "%s could not commit", operation)
}

func (w *Wagering) runOnce(ctx context.Context, fn func(interfaces.UnitOfWork) error) (err error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			uow.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := uow.Rollback(); rbErr != nil {
				log.WithError(rbErr).Error("Failed to roll back unit of work")
			}
		}
	}()

	if err = fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

// CreateGame opens a pending game
func (w *Wagering) CreateGame(ctx context.Context, creatorID string, stake int64, subjects []string, inviteeID *string) (*entities.Game, error) {
	var game *entities.Game
	err := w.inTx(ctx, "create_game", func(s txServices) error {
		var err error
		game, err = s.games.CreateGame(ctx, creatorID, stake, subjects, inviteeID)
		return err
	})
	return game, err
}

// AcceptGame matches the caller and locks both stakes
func (w *Wagering) AcceptGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error) {
	return w.transition(ctx, "accept_game", func(s txServices) (*entities.Game, error) {
		return s.games.AcceptGame(ctx, gameID, callerID)
	})
}

// DeclineGame rejects a pending game
func (w *Wagering) DeclineGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error) {
	return w.transition(ctx, "decline_game", func(s txServices) (*entities.Game, error) {
		return s.games.DeclineGame(ctx, gameID, callerID)
	})
}

// CancelGame withdraws a pending game
func (w *Wagering) CancelGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error) {
	return w.transition(ctx, "cancel_game", func(s txServices) (*entities.Game, error) {
		return s.games.CancelGame(ctx, gameID, callerID)
	})
}

// VoidGame cancels a live game and refunds both players
func (w *Wagering) VoidGame(ctx context.Context, gameID int64) (*entities.Game, error) {
	return w.transition(ctx, "void_game", func(s txServices) (*entities.Game, error) {
		return s.games.VoidGame(ctx, gameID)
	})
}

func (w *Wagering) transition(ctx context.Context, operation string, fn func(txServices) (*entities.Game, error)) (*entities.Game, error) {
	var game *entities.Game
	err := w.inTx(ctx, operation, func(s txServices) error {
		var err error
		game, err = fn(s)
		return err
	})
	return game, err
}

// DeleteGame removes a pending, unmatched game
func (w *Wagering) DeleteGame(ctx context.Context, gameID int64, callerID string) error {
	return w.inTx(ctx, "delete_game", func(s txServices) error {
		return s.games.DeleteGame(ctx, gameID, callerID)
	})
}

// CompleteGame records the winner and settles the pot
func (w *Wagering) CompleteGame(ctx context.Context, gameID int64, winnerID string) (*entities.Game, *entities.Settlement, error) {
	var (
		game       *entities.Game
		settlement *entities.Settlement
	)
	err := w.inTx(ctx, "complete_game", func(s txServices) error {
		var err error
		game, settlement, err = s.games.CompleteGame(ctx, gameID, winnerID)
		return err
	})
	return game, settlement, err
}

// GetGame retrieves a game
func (w *Wagering) GetGame(ctx context.Context, gameID int64) (*entities.Game, error) {
	return w.transition(ctx, "get_game", func(s txServices) (*entities.Game, error) {
		return s.games.GetGame(ctx, gameID)
	})
}

// ListOpenGames returns pending games, newest first
func (w *Wagering) ListOpenGames(ctx context.Context, limit int) ([]*entities.Game, error) {
	var games []*entities.Game
	err := w.inTx(ctx, "list_open_games", func(s txServices) error {
		var err error
		games, err = s.games.ListOpenGames(ctx, limit)
		return err
	})
	return games, err
}

// ListUserGames returns the games a user created or joined
func (w *Wagering) ListUserGames(ctx context.Context, userID string, limit int) ([]*entities.Game, error) {
	var games []*entities.Game
	err := w.inTx(ctx, "list_user_games", func(s txServices) error {
		var err error
		games, err = s.games.ListUserGames(ctx, userID, limit)
		return err
	})
	return games, err
}

// GetBalance serves from the balance cache and falls back to folding the
// ledger. The fold only fills the cache if no invalidation for the user
// landed since the cache generation was read.
func (w *Wagering) GetBalance(ctx context.Context, userID string) (int64, error) {
	generation, cacheable := int64(0), false
	if userID != "" {
		balance, ok, err := w.cache.Get(ctx, userID)
		switch {
		case err != nil:
			w.metrics.RecordCacheLookup(observability.CacheError)
			log.WithError(err).WithField("userId", userID).Warn("Balance cache read failed")
		case ok:
			w.metrics.RecordCacheLookup(observability.CacheHit)
			return balance, nil
		default:
			w.metrics.RecordCacheLookup(observability.CacheMiss)
		}

		generation, err = w.cache.Generation(ctx, userID)
		if err != nil {
			log.WithError(err).WithField("userId", userID).Warn("Balance cache generation read failed")
		} else {
			cacheable = true
		}
	}

	var balance int64
	err := w.inTx(ctx, "get_balance", func(s txServices) error {
		var err error
		balance, err = s.ledger.GetBalance(ctx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}

	if cacheable {
		filled, err := w.cache.Fill(ctx, userID, balance, generation)
		if err != nil {
			log.WithError(err).WithField("userId", userID).Warn("Failed to cache balance")
		} else if !filled {
			log.WithField("userId", userID).Debug("Balance changed while folding, not caching")
		}
	}
	return balance, nil
}

// ListEntries pages through a user's ledger
func (w *Wagering) ListEntries(ctx context.Context, userID string, afterID int64, limit int) ([]*entities.LedgerEntry, int64, error) {
	var (
		entries []*entities.LedgerEntry
		next    int64
	)
	err := w.inTx(ctx, "list_entries", func(s txServices) error {
		var err error
		entries, next, err = s.ledger.ListEntries(ctx, userID, afterID, limit)
		return err
	})
	return entries, next, err
}

// Deposit credits a user's account
func (w *Wagering) Deposit(ctx context.Context, userID string, amount int64) (*entities.LedgerEntry, error) {
	return w.fund(ctx, "deposit", func(s txServices) (*entities.LedgerEntry, error) {
		return s.ledger.Deposit(ctx, userID, amount)
	})
}

// Withdraw debits a user's account
func (w *Wagering) Withdraw(ctx context.Context, userID string, amount int64) (*entities.LedgerEntry, error) {
	return w.fund(ctx, "withdraw", func(s txServices) (*entities.LedgerEntry, error) {
		return s.ledger.Withdraw(ctx, userID, amount)
	})
}

func (w *Wagering) fund(ctx context.Context, operation string, fn func(txServices) (*entities.LedgerEntry, error)) (*entities.LedgerEntry, error) {
	var entry *entities.LedgerEntry
	err := w.inTx(ctx, operation, func(s txServices) error {
		var err error
		entry, err = fn(s)
		return err
	})
	return entry, err
}

// AuditGame folds a game's entries into a conservation report
func (w *Wagering) AuditGame(ctx context.Context, gameID int64) (*entities.ConservationReport, error) {
	var report *entities.ConservationReport
	err := w.inTx(ctx, "audit_game", func(s txServices) error {
		var err error
		report, err = s.ledger.AuditGame(ctx, gameID)
		return err
	})
	return report, err
}

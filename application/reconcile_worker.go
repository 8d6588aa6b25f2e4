package application

import (
	"context"
	"fmt"
	"time"

	"quizstake/domain/interfaces"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// ReconcileBalances recomputes every account's balance from the ledger and
// repairs cached balances that disagree. It returns how many were repaired.
// A repair is skipped when the account was invalidated after its fold.
func (w *Wagering) ReconcileBalances(ctx context.Context) (int, error) {
	type folded struct {
		balance    int64
		generation int64
	}

	accounts := make(map[string]folded)
	err := w.inUnit(ctx, "reconcile_balances", func(uow interfaces.UnitOfWork) error {
		repo := uow.LedgerRepository()
		ids, err := repo.AccountIDs(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			generation, err := w.cache.Generation(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to read balance generation for %s: %w", id, err)
			}
			balance, err := repo.Balance(ctx, id)
			if err != nil {
				return err
			}
			accounts[id] = folded{balance: balance, generation: generation}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	drift := 0
	for userID, account := range accounts {
		cached, ok, err := w.cache.Get(ctx, userID)
		if err != nil {
			return drift, fmt.Errorf("failed to read cached balance for %s: %w", userID, err)
		}
		if !ok || cached == account.balance {
			continue
		}

		log.WithFields(log.Fields{
			"userId": userID,
			"cached": cached,
			"ledger": account.balance,
		}).Warn("Cached balance drifted from ledger")

		repaired, err := w.cache.Fill(ctx, userID, account.balance, account.generation)
		if err != nil {
			return drift, fmt.Errorf("failed to repair cached balance for %s: %w", userID, err)
		}
		if repaired {
			drift++
		}
	}

	w.metrics.RecordDrift(drift)
	return drift, nil
}

// ReconcileWorker runs ReconcileBalances on a fixed interval
type ReconcileWorker struct {
	wagering *Wagering
	interval time.Duration
}

// NewReconcileWorker creates a reconcile worker
func NewReconcileWorker(wagering *Wagering, interval time.Duration) *ReconcileWorker {
	return &ReconcileWorker{
		wagering: wagering,
		interval: interval,
	}
}

// Start schedules the job and returns a stop function
func (w *ReconcileWorker) Start(ctx context.Context) (func(), error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			w.RunOnce(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		scheduler.Shutdown()
		return nil, fmt.Errorf("failed to schedule balance reconciliation: %w", err)
	}

	scheduler.Start()
	log.WithField("interval", w.interval).Info("Balance reconcile worker started")

	return func() {
		if err := scheduler.Shutdown(); err != nil {
			log.WithError(err).Error("Failed to stop reconcile worker")
			return
		}
		log.Info("Balance reconcile worker stopped")
	}, nil
}

// RunOnce performs a single reconciliation pass
func (w *ReconcileWorker) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	drift, err := w.wagering.ReconcileBalances(ctx)
	if err != nil {
		w.wagering.metrics.RecordReconcile("error")
		log.WithError(err).Error("Balance reconciliation failed")
		return
	}

	w.wagering.metrics.RecordReconcile("ok")
	log.WithField("repaired", drift).Debug("Balance reconciliation finished")
}

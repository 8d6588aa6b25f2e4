package application

import (
	"context"
	"fmt"

	"quizstake/domain/entities"
	"quizstake/domain/events"

	log "github.com/sirupsen/logrus"
)

var gameEventStatus = map[events.EventType]entities.GameStatus{
	events.EventTypeGameCreated:   entities.GameStatusPending,
	events.EventTypeGameAccepted:  entities.GameStatusLive,
	events.EventTypeGameDeclined:  entities.GameStatusRejected,
	events.EventTypeGameCancelled: entities.GameStatusCancelled,
	events.EventTypeGameVoided:    entities.GameStatusCancelled,
	events.EventTypeGameCompleted: entities.GameStatusCompleted,
}

// RegisterLocalHandlers wires cache invalidation and metrics to committed
// events
func (w *Wagering) RegisterLocalHandlers(registrar LocalHandlerRegistrar) {
	registrar.RegisterLocalHandler(events.EventTypeBalanceChanged, w.handleBalanceChanged)
	for eventType := range gameEventStatus {
		registrar.RegisterLocalHandler(eventType, w.handleGameTransition)
	}
}

func (w *Wagering) handleBalanceChanged(ctx context.Context, event events.Event) error {
	changed, ok := event.(events.BalanceChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.Type())
	}

	amount := changed.Delta
	if amount < 0 {
		amount = -amount
	}
	w.metrics.RecordLedgerEntry(changed.Reason, amount)

	if err := w.cache.Invalidate(ctx, changed.UserID); err != nil {
		log.WithError(err).WithField("userId", changed.UserID).Warn("Failed to invalidate cached balance")
		return err
	}
	return nil
}

func (w *Wagering) handleGameTransition(ctx context.Context, event events.Event) error {
	status, ok := gameEventStatus[event.Type()]
	if !ok {
		return nil
	}
	w.metrics.RecordTransition(status.String())
	return nil
}

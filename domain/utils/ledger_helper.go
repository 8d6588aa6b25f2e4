package utils

import (
	"context"
	"fmt"

	"quizstake/domain"
	"quizstake/domain/entities"
	"quizstake/domain/events"
	"quizstake/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RecordLedgerEntry validates and appends an entry, then publishes a
// BalanceChangedEvent. It is the single entry point for ledger writes.
func RecordLedgerEntry(ctx context.Context, ledgerRepo interfaces.LedgerRepository, eventPublisher interfaces.EventPublisher, entry *entities.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return domain.NewValidationError("invalid ledger entry: %v", err)
	}

	if err := ledgerRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	event := events.BalanceChangedEvent{
		UserID:  entry.UserID,
		EntryID: entry.ID,
		GameID:  entry.GameID,
		Reason:  entry.Reason.String(),
		Delta:   entry.SignedAmount(),
	}
	log.WithFields(log.Fields{
		"userID":  event.UserID,
		"entryID": event.EntryID,
		"gameID":  event.GameID,
		"reason":  event.Reason,
		"delta":   event.Delta,
	}).Debug("Publishing BalanceChangedEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance changed event")
	}

	return nil
}

package testutil

import (
	"quizstake/domain/entities"
)

// NewPendingGame returns an unsaved open game
func NewPendingGame(creatorID string, stake int64) *entities.Game {
	return &entities.Game{
		CreatorID: creatorID,
		Stake:     stake,
		Subjects:  []string{"general-knowledge"},
		Status:    entities.GameStatusPending,
	}
}

// NewDeposit returns an unsaved deposit entry
func NewDeposit(userID string, amount int64) *entities.LedgerEntry {
	return entities.NewLedgerEntry(userID, entities.EntryReasonDeposit, amount, nil)
}

// NewGameEntry returns an unsaved game-scoped entry
func NewGameEntry(userID string, reason entities.EntryReason, amount int64, gameID int64) *entities.LedgerEntry {
	return entities.NewLedgerEntry(userID, reason, amount, &gameID)
}

package services

import (
	"context"
	"fmt"

	"quizstake/domain"
	"quizstake/domain/entities"
	"quizstake/domain/interfaces"
	"quizstake/domain/utils"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultEntriesPageSize = 50
	MaxEntriesPageSize     = 500
)

type ledgerService struct {
	ledgerRepo        interfaces.LedgerRepository
	gameRepo          interfaces.GameRepository
	eventPublisher    interfaces.EventPublisher
	platformAccountID string
}

// NewLedgerService creates a new ledger service
func NewLedgerService(ledgerRepo interfaces.LedgerRepository, gameRepo interfaces.GameRepository, eventPublisher interfaces.EventPublisher, platformAccountID string) interfaces.LedgerService {
	return &ledgerService{
		ledgerRepo:        ledgerRepo,
		gameRepo:          gameRepo,
		eventPublisher:    eventPublisher,
		platformAccountID: platformAccountID,
	}
}

func (s *ledgerService) GetBalance(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, domain.NewValidationError("user ID is required")
	}

	balance, err := s.ledgerRepo.Balance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (s *ledgerService) ListEntries(ctx context.Context, userID string, afterID int64, limit int) ([]*entities.LedgerEntry, int64, error) {
	if userID == "" {
		return nil, 0, domain.NewValidationError("user ID is required")
	}
	if afterID < 0 {
		return nil, 0, domain.NewValidationError("cursor must not be negative")
	}
	limit = clampLimit(limit, DefaultEntriesPageSize, MaxEntriesPageSize)

	// One extra row tells us whether another page exists.
	entries, err := s.ledgerRepo.EntriesFor(ctx, userID, afterID, limit+1)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	var next int64
	if len(entries) > limit {
		entries = entries[:limit]
		next = entries[limit-1].ID
	}
	return entries, next, nil
}

func (s *ledgerService) Deposit(ctx context.Context, userID string, amount int64) (*entities.LedgerEntry, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user ID is required")
	}
	if userID == s.platformAccountID {
		return nil, domain.NewValidationError("cannot deposit into the platform account")
	}
	if amount <= 0 {
		return nil, domain.NewValidationError("deposit amount must be positive, got %d", amount)
	}
	if amount > entities.MaxAmount {
		return nil, domain.NewValidationError("deposit amount %d exceeds the maximum of %d", amount, entities.MaxAmount)
	}

	if err := s.ledgerRepo.LockAccounts(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	balance, err := s.ledgerRepo.Balance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance > entities.MaxAmount-amount {
		return nil, domain.NewValidationError("deposit of %d would take %s past the maximum balance of %d", amount, userID, entities.MaxAmount)
	}

	entry := entities.NewLedgerEntry(userID, entities.EntryReasonDeposit, amount, nil)
	if err := utils.RecordLedgerEntry(ctx, s.ledgerRepo, s.eventPublisher, entry); err != nil {
		return nil, fmt.Errorf("failed to record deposit: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":  userID,
		"amount":  amount,
		"entryID": entry.ID,
	}).Info("Recorded deposit")
	return entry, nil
}

func (s *ledgerService) Withdraw(ctx context.Context, userID string, amount int64) (*entities.LedgerEntry, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user ID is required")
	}
	if amount <= 0 {
		return nil, domain.NewValidationError("withdrawal amount must be positive, got %d", amount)
	}

	if err := s.ledgerRepo.LockAccounts(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	balance, err := s.ledgerRepo.Balance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance < amount {
		return nil, domain.NewInsufficientFundsError("user %s has %d available, needs %d", userID, balance, amount)
	}

	entry := entities.NewLedgerEntry(userID, entities.EntryReasonWithdrawal, amount, nil)
	if err := utils.RecordLedgerEntry(ctx, s.ledgerRepo, s.eventPublisher, entry); err != nil {
		return nil, fmt.Errorf("failed to record withdrawal: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":  userID,
		"amount":  amount,
		"entryID": entry.ID,
	}).Info("Recorded withdrawal")
	return entry, nil
}

func (s *ledgerService) AuditGame(ctx context.Context, gameID int64) (*entities.ConservationReport, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, domain.NewNotFoundError("game %d not found", gameID)
	}

	entries, err := s.ledgerRepo.EntriesForGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries for game %d: %w", gameID, err)
	}

	report := entities.BuildConservationReport(game, entries)
	if !report.Balanced {
		log.WithFields(log.Fields{
			"gameID":      gameID,
			"status":      game.Status,
			"locked":      report.Locked,
			"refunded":    report.Refunded,
			"payout":      report.Payout,
			"fee":         report.Fee,
			"outstanding": report.Outstanding(),
		}).Warn("Game ledger entries do not conserve the pot")
	}
	return report, nil
}

func clampLimit(limit, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

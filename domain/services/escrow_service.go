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

type escrowService struct {
	ledgerRepo     interfaces.LedgerRepository
	eventPublisher interfaces.EventPublisher
	feePolicy      FeePolicy
}

// NewEscrowService creates an escrow service writing to the given ledger.
// All of its writes must happen inside the caller's unit of work.
func NewEscrowService(ledgerRepo interfaces.LedgerRepository, eventPublisher interfaces.EventPublisher, feePolicy FeePolicy) interfaces.EscrowService {
	return &escrowService{
		ledgerRepo:     ledgerRepo,
		eventPublisher: eventPublisher,
		feePolicy:      feePolicy,
	}
}

// gameEscrow summarizes what the ledger already holds for a game
type gameEscrow struct {
	locked   map[string]int64
	released bool
}

func (s *escrowService) loadGameEscrow(ctx context.Context, gameID int64) (*gameEscrow, error) {
	entries, err := s.ledgerRepo.EntriesForGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries for game %d: %w", gameID, err)
	}

	escrow := &gameEscrow{locked: make(map[string]int64)}
	for _, e := range entries {
		switch e.Reason {
		case entities.EntryReasonStakeLock:
			escrow.locked[e.UserID] += e.Amount
		case entities.EntryReasonStakeRefund, entities.EntryReasonWinPayout, entities.EntryReasonPlatformFee:
			escrow.released = true
		}
	}
	return escrow, nil
}

func (s *escrowService) validatePlayers(playerA, playerB string, stake int64) error {
	if stake <= 0 {
		return domain.NewValidationError("stake must be positive, got %d", stake)
	}
	if stake > entities.MaxAmount {
		return domain.NewValidationError("stake %d exceeds the maximum of %d", stake, entities.MaxAmount)
	}
	if playerA == "" || playerB == "" {
		return domain.NewValidationError("both players are required")
	}
	if playerA == playerB {
		return domain.NewValidationError("a player cannot play against themselves")
	}
	if playerA == s.feePolicy.PlatformAccountID || playerB == s.feePolicy.PlatformAccountID {
		return domain.NewValidationError("the platform account cannot play")
	}
	return nil
}

// ensureCreditFits refuses a credit that would overflow the account balance
func (s *escrowService) ensureCreditFits(ctx context.Context, userID string, amount int64) error {
	if amount == 0 {
		return nil
	}
	balance, err := s.ledgerRepo.Balance(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get balance for %s: %w", userID, err)
	}
	if !entities.CanCredit(balance, amount) {
		return domain.NewValidationError("crediting %d to %s would overflow its balance", amount, userID)
	}
	return nil
}

// LockStakes debits stake from both players. Balances are checked under the
// account locks right before writing, so the debits never overdraw.
func (s *escrowService) LockStakes(ctx context.Context, gameID int64, playerA, playerB string, stake int64) error {
	if err := s.validatePlayers(playerA, playerB, stake); err != nil {
		return err
	}

	if err := s.ledgerRepo.LockAccounts(ctx, playerA, playerB); err != nil {
		return fmt.Errorf("failed to lock accounts: %w", err)
	}

	escrow, err := s.loadGameEscrow(ctx, gameID)
	if err != nil {
		return err
	}
	if len(escrow.locked) > 0 || escrow.released {
		return domain.NewConflictError("stakes for game %d are already locked", gameID)
	}

	for _, player := range []string{playerA, playerB} {
		balance, err := s.ledgerRepo.Balance(ctx, player)
		if err != nil {
			return fmt.Errorf("failed to get balance for %s: %w", player, err)
		}
		if balance < stake {
			return domain.NewInsufficientFundsError("user %s has %d available, needs %d", player, balance, stake)
		}
	}

	for _, player := range []string{playerA, playerB} {
		entry := entities.NewLedgerEntry(player, entities.EntryReasonStakeLock, stake, &gameID)
		if err := utils.RecordLedgerEntry(ctx, s.ledgerRepo, s.eventPublisher, entry); err != nil {
			return fmt.Errorf("failed to lock stake for %s: %w", player, err)
		}
	}

	log.WithFields(log.Fields{
		"gameID":  gameID,
		"playerA": playerA,
		"playerB": playerB,
		"stake":   stake,
	}).Info("Locked stakes")
	return nil
}

// Settle credits the payout to the winner and the fee to the platform. The
// loser's lock debit stands.
func (s *escrowService) Settle(ctx context.Context, gameID int64, winnerID, loserID string, stake int64) (*entities.Settlement, error) {
	if err := s.validatePlayers(winnerID, loserID, stake); err != nil {
		return nil, err
	}

	if err := s.ledgerRepo.LockAccounts(ctx, winnerID, loserID, s.feePolicy.PlatformAccountID); err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}

	escrow, err := s.loadGameEscrow(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if escrow.released {
		return nil, domain.NewConflictError("game %d has already been settled", gameID)
	}
	if escrow.locked[winnerID] != stake || escrow.locked[loserID] != stake {
		return nil, domain.NewConflictError("game %d does not hold both stakes in escrow", gameID)
	}

	settlement := s.feePolicy.Split(gameID, winnerID, loserID, stake)
	lockedTotal := escrow.locked[winnerID] + escrow.locked[loserID]
	if !settlement.IsBalanced() || lockedTotal != settlement.Payout+settlement.Fee {
		return nil, fmt.Errorf("settlement for game %d does not conserve the pot: locked %d, payout %d, fee %d",
			gameID, lockedTotal, settlement.Payout, settlement.Fee)
	}

	if err := s.ensureCreditFits(ctx, winnerID, settlement.Payout); err != nil {
		return nil, err
	}
	if err := s.ensureCreditFits(ctx, s.feePolicy.PlatformAccountID, settlement.Fee); err != nil {
		return nil, err
	}

	// Zero amounts cannot be recorded; a zero fee simply has no entry.
	if settlement.Payout > 0 {
		payout := entities.NewLedgerEntry(winnerID, entities.EntryReasonWinPayout, settlement.Payout, &gameID)
		if err := utils.RecordLedgerEntry(ctx, s.ledgerRepo, s.eventPublisher, payout); err != nil {
			return nil, fmt.Errorf("failed to credit payout: %w", err)
		}
	}
	if settlement.Fee > 0 {
		fee := entities.NewLedgerEntry(s.feePolicy.PlatformAccountID, entities.EntryReasonPlatformFee, settlement.Fee, &gameID)
		if err := utils.RecordLedgerEntry(ctx, s.ledgerRepo, s.eventPublisher, fee); err != nil {
			return nil, fmt.Errorf("failed to credit platform fee: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"gameID":   gameID,
		"winnerID": winnerID,
		"loserID":  loserID,
		"pot":      settlement.Pot,
		"payout":   settlement.Payout,
		"fee":      settlement.Fee,
	}).Info("Settled game")
	return settlement, nil
}

// Refund reverses both stake locks of a game
func (s *escrowService) Refund(ctx context.Context, gameID int64, playerA, playerB string, stake int64) error {
	if err := s.validatePlayers(playerA, playerB, stake); err != nil {
		return err
	}

	if err := s.ledgerRepo.LockAccounts(ctx, playerA, playerB); err != nil {
		return fmt.Errorf("failed to lock accounts: %w", err)
	}

	escrow, err := s.loadGameEscrow(ctx, gameID)
	if err != nil {
		return err
	}
	if escrow.released {
		return domain.NewConflictError("game %d has already been settled or refunded", gameID)
	}
	if escrow.locked[playerA] != stake || escrow.locked[playerB] != stake {
		return domain.NewConflictError("game %d does not hold both stakes in escrow", gameID)
	}

	for _, player := range []string{playerA, playerB} {
		if err := s.ensureCreditFits(ctx, player, stake); err != nil {
			return err
		}
	}

	for _, player := range []string{playerA, playerB} {
		entry := entities.NewLedgerEntry(player, entities.EntryReasonStakeRefund, stake, &gameID)
		if err := utils.RecordLedgerEntry(ctx, s.ledgerRepo, s.eventPublisher, entry); err != nil {
			return fmt.Errorf("failed to refund stake for %s: %w", player, err)
		}
	}

	log.WithFields(log.Fields{
		"gameID":  gameID,
		"playerA": playerA,
		"playerB": playerB,
		"stake":   stake,
	}).Info("Refunded stakes")
	return nil
}

package services

import (
	"context"
	"fmt"

	"quizstake/domain"
	"quizstake/domain/entities"
	"quizstake/domain/events"
	"quizstake/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultGamesPageSize = 20
	MaxGamesPageSize     = 100
)

type gameService struct {
	gameRepo          interfaces.GameRepository
	escrow            interfaces.EscrowService
	eventPublisher    interfaces.EventPublisher
	platformAccountID string
}

// NewGameService creates a new game service. The escrow service must share
// the game repository's unit of work so transitions and ledger writes commit
// together.
func NewGameService(gameRepo interfaces.GameRepository, escrow interfaces.EscrowService, eventPublisher interfaces.EventPublisher, platformAccountID string) interfaces.GameService {
	return &gameService{
		gameRepo:          gameRepo,
		escrow:            escrow,
		eventPublisher:    eventPublisher,
		platformAccountID: platformAccountID,
	}
}

// CreateGame opens a pending game
func (s *gameService) CreateGame(ctx context.Context, creatorID string, stake int64, subjects []string, inviteeID *string) (*entities.Game, error) {
	if creatorID == "" {
		return nil, domain.NewValidationError("creator is required")
	}
	if creatorID == s.platformAccountID {
		return nil, domain.NewValidationError("the platform account cannot create games")
	}
	if stake <= 0 {
		return nil, domain.NewValidationError("stake must be positive, got %d", stake)
	}
	if stake > entities.MaxAmount {
		return nil, domain.NewValidationError("stake %d exceeds the maximum of %d", stake, entities.MaxAmount)
	}
	if inviteeID != nil {
		switch *inviteeID {
		case "":
			return nil, domain.NewValidationError("invitee must not be empty")
		case creatorID:
			return nil, domain.NewValidationError("cannot invite yourself")
		case s.platformAccountID:
			return nil, domain.NewValidationError("the platform account cannot be invited")
		}
	}

	normalized, err := entities.NormalizeSubjects(subjects)
	if err != nil {
		return nil, domain.NewValidationError("invalid subjects: %v", err)
	}

	game := &entities.Game{
		CreatorID: creatorID,
		InviteeID: inviteeID,
		Stake:     stake,
		Subjects:  normalized,
		Status:    entities.GameStatusPending,
	}
	if err := s.gameRepo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	s.publish(events.GameCreatedEvent{
		GameID:    game.ID,
		CreatorID: game.CreatorID,
		InviteeID: game.InviteeID,
		Stake:     game.Stake,
		Subjects:  game.Subjects,
		CreatedAt: game.CreatedAt,
	})

	log.WithFields(log.Fields{
		"gameID":    game.ID,
		"creatorID": creatorID,
		"stake":     stake,
		"invited":   inviteeID != nil,
	}).Info("Created game")
	return game, nil
}

// AcceptGame compare-and-swaps the game from pending to live and locks both
// stakes. Whoever loses the swap gets ErrAlreadyMatched.
func (s *gameService) AcceptGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error) {
	if callerID == "" {
		return nil, domain.NewValidationError("caller is required")
	}
	if callerID == s.platformAccountID {
		return nil, domain.NewValidationError("the platform account cannot play")
	}

	game, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !game.IsPending() {
		return nil, notPendingError(game)
	}
	if callerID == game.CreatorID {
		return nil, domain.NewValidationError("cannot accept your own game")
	}
	if !game.CanBeJoinedBy(callerID) {
		return nil, domain.NewForbiddenError("game %d is reserved for another player", gameID)
	}

	opponentID := callerID
	game.OpponentID = &opponentID
	game.Status = entities.GameStatusLive
	if err := s.swap(ctx, game, entities.GameStatusPending); err != nil {
		return nil, err
	}

	if err := s.escrow.LockStakes(ctx, game.ID, game.CreatorID, opponentID, game.Stake); err != nil {
		return nil, fmt.Errorf("failed to lock stakes for game %d: %w", game.ID, err)
	}

	s.publish(events.GameAcceptedEvent{
		GameID:     game.ID,
		CreatorID:  game.CreatorID,
		OpponentID: opponentID,
		Stake:      game.Stake,
		AcceptedAt: game.UpdatedAt,
	})

	log.WithFields(log.Fields{
		"gameID":     game.ID,
		"opponentID": opponentID,
	}).Info("Game accepted")
	return game, nil
}

// DeclineGame rejects a pending game and records who declined as opponent
func (s *gameService) DeclineGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error) {
	if callerID == "" {
		return nil, domain.NewValidationError("caller is required")
	}

	game, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !game.IsPending() {
		return nil, notPendingError(game)
	}
	if callerID == game.CreatorID {
		return nil, domain.NewValidationError("the creator cannot decline their own game, cancel it instead")
	}
	if !game.CanBeJoinedBy(callerID) {
		return nil, domain.NewForbiddenError("game %d is reserved for another player", gameID)
	}

	declinedBy := callerID
	game.OpponentID = &declinedBy
	game.Status = entities.GameStatusRejected
	if err := s.swap(ctx, game, entities.GameStatusPending); err != nil {
		return nil, err
	}

	s.publish(events.GameDeclinedEvent{
		GameID:     game.ID,
		CreatorID:  game.CreatorID,
		DeclinedBy: declinedBy,
		DeclinedAt: game.UpdatedAt,
	})

	log.WithFields(log.Fields{
		"gameID":     game.ID,
		"declinedBy": declinedBy,
	}).Info("Game declined")
	return game, nil
}

// CancelGame withdraws a pending game. Only the creator may cancel.
func (s *gameService) CancelGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error) {
	game, err := s.loadOwnedGame(ctx, gameID, callerID)
	if err != nil {
		return nil, err
	}
	if !game.IsPending() {
		return nil, notPendingError(game)
	}

	game.Status = entities.GameStatusCancelled
	if err := s.swap(ctx, game, entities.GameStatusPending); err != nil {
		return nil, err
	}

	s.publish(events.GameCancelledEvent{
		GameID:      game.ID,
		CreatorID:   game.CreatorID,
		CancelledAt: game.UpdatedAt,
	})

	log.WithField("gameID", game.ID).Info("Game cancelled")
	return game, nil
}

// DeleteGame removes a pending game nobody has joined
func (s *gameService) DeleteGame(ctx context.Context, gameID int64, callerID string) error {
	game, err := s.loadOwnedGame(ctx, gameID, callerID)
	if err != nil {
		return err
	}
	if !game.CanBeDeleted() {
		return domain.NewConflictError("game %d is %s and cannot be deleted", gameID, game.Status)
	}

	deleted, err := s.gameRepo.Delete(ctx, game.ID, game.Version)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	if !deleted {
		return s.raceLost(ctx, gameID, entities.GameStatusPending)
	}

	s.publish(events.GameDeletedEvent{
		GameID:    game.ID,
		CreatorID: game.CreatorID,
	})

	log.WithField("gameID", game.ID).Info("Game deleted")
	return nil
}

// CompleteGame records the winner and settles the pot in the same unit of work
func (s *gameService) CompleteGame(ctx context.Context, gameID int64, winnerID string) (*entities.Game, *entities.Settlement, error) {
	if winnerID == "" {
		return nil, nil, domain.NewValidationError("winner is required")
	}

	game, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	if !game.IsLive() {
		return nil, nil, domain.NewConflictError("game %d is %s and cannot be completed", gameID, game.Status)
	}
	loserID, ok := game.OtherPlayer(winnerID)
	if !ok {
		return nil, nil, domain.NewValidationError("winner %s does not play in game %d", winnerID, gameID)
	}

	winner := winnerID
	game.WinnerID = &winner
	game.Status = entities.GameStatusCompleted
	if err := s.swap(ctx, game, entities.GameStatusLive); err != nil {
		return nil, nil, err
	}

	settlement, err := s.escrow.Settle(ctx, game.ID, winnerID, loserID, game.Stake)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to settle game %d: %w", game.ID, err)
	}

	s.publish(events.GameCompletedEvent{
		GameID:      game.ID,
		WinnerID:    winnerID,
		LoserID:     loserID,
		Stake:       game.Stake,
		Payout:      settlement.Payout,
		Fee:         settlement.Fee,
		CompletedAt: game.UpdatedAt,
	})

	log.WithFields(log.Fields{
		"gameID":   game.ID,
		"winnerID": winnerID,
		"payout":   settlement.Payout,
		"fee":      settlement.Fee,
	}).Info("Game completed")
	return game, settlement, nil
}

// VoidGame cancels a live game and refunds both players
func (s *gameService) VoidGame(ctx context.Context, gameID int64) (*entities.Game, error) {
	game, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !game.IsLive() {
		return nil, domain.NewConflictError("game %d is %s and cannot be voided", gameID, game.Status)
	}

	game.Status = entities.GameStatusCancelled
	if err := s.swap(ctx, game, entities.GameStatusLive); err != nil {
		return nil, err
	}

	opponentID := *game.OpponentID
	if err := s.escrow.Refund(ctx, game.ID, game.CreatorID, opponentID, game.Stake); err != nil {
		return nil, fmt.Errorf("failed to refund game %d: %w", game.ID, err)
	}

	s.publish(events.GameVoidedEvent{
		GameID:     game.ID,
		CreatorID:  game.CreatorID,
		OpponentID: opponentID,
		Refunded:   game.Stake,
		VoidedAt:   game.UpdatedAt,
	})

	log.WithField("gameID", game.ID).Warn("Game voided and stakes refunded")
	return game, nil
}

func (s *gameService) GetGame(ctx context.Context, gameID int64) (*entities.Game, error) {
	return s.loadGame(ctx, gameID)
}

func (s *gameService) ListOpenGames(ctx context.Context, limit int) ([]*entities.Game, error) {
	games, err := s.gameRepo.ListOpen(ctx, clampLimit(limit, DefaultGamesPageSize, MaxGamesPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to list open games: %w", err)
	}
	return games, nil
}

func (s *gameService) ListUserGames(ctx context.Context, userID string, limit int) ([]*entities.Game, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user ID is required")
	}
	games, err := s.gameRepo.ListByUser(ctx, userID, clampLimit(limit, DefaultGamesPageSize, MaxGamesPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to list games for user: %w", err)
	}
	return games, nil
}

func (s *gameService) loadGame(ctx context.Context, gameID int64) (*entities.Game, error) {
	if gameID <= 0 {
		return nil, domain.NewValidationError("invalid game ID %d", gameID)
	}
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, domain.NewNotFoundError("game %d not found", gameID)
	}
	return game, nil
}

func (s *gameService) loadOwnedGame(ctx context.Context, gameID int64, callerID string) (*entities.Game, error) {
	if callerID == "" {
		return nil, domain.NewValidationError("caller is required")
	}
	game, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.CreatorID != callerID {
		return nil, domain.NewForbiddenError("only the creator can change game %d", gameID)
	}
	return game, nil
}

// swap writes game if it is still in expected at the version that was read
func (s *gameService) swap(ctx context.Context, game *entities.Game, expected entities.GameStatus) error {
	swapped, err := s.gameRepo.CompareAndSwap(ctx, game, expected)
	if err != nil {
		return fmt.Errorf("failed to update game %d: %w", game.ID, err)
	}
	if !swapped {
		return s.raceLost(ctx, game.ID, expected)
	}
	return nil
}

// raceLost re-reads a game whose compare-and-swap from expected failed, to
// tell the caller why
func (s *gameService) raceLost(ctx context.Context, gameID int64, expected entities.GameStatus) error {
	current, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to reload game %d: %w", gameID, err)
	}
	if current == nil {
		return domain.NewNotFoundError("game %d not found", gameID)
	}
	log.WithFields(log.Fields{
		"gameID": gameID,
		"status": current.Status,
	}).Info("Lost concurrent update on game")
	switch {
	case current.Status == expected:
		return domain.NewConflictError("game %d was modified concurrently", gameID)
	case expected == entities.GameStatusPending:
		return notPendingError(current)
	default:
		return domain.NewConflictError("game %d is %s", gameID, current.Status)
	}
}

func notPendingError(game *entities.Game) error {
	switch game.Status {
	case entities.GameStatusLive, entities.GameStatusCompleted:
		return domain.NewAlreadyMatchedError("game %d has already been accepted by another player", game.ID)
	default:
		return domain.NewConflictError("game %d is %s", game.ID, game.Status)
	}
}

func (s *gameService) publish(event events.Event) {
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to publish game event")
	}
}

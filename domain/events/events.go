package events

import (
	"time"
)

// EventType names a domain event. Values double as the event_type field of
// published envelopes.
type EventType string

const (
	EventTypeGameCreated    EventType = "game_created"
	EventTypeGameAccepted   EventType = "game_accepted"
	EventTypeGameDeclined   EventType = "game_declined"
	EventTypeGameCancelled  EventType = "game_cancelled"
	EventTypeGameDeleted    EventType = "game_deleted"
	EventTypeGameCompleted  EventType = "game_completed"
	EventTypeGameVoided     EventType = "game_voided"
	EventTypeBalanceChanged EventType = "balance_changed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// GameCreatedEvent announces a new open game. InviteeID is set for directed
// invitations so the dispatcher can notify the invited player.
type GameCreatedEvent struct {
	GameID    int64     `json:"gameId"`
	CreatorID string    `json:"creatorId"`
	InviteeID *string   `json:"inviteeId,omitempty"`
	Stake     int64     `json:"stake"`
	Subjects  []string  `json:"subjects"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e GameCreatedEvent) Type() EventType {
	return EventTypeGameCreated
}

// GameAcceptedEvent fires once both stakes are locked
type GameAcceptedEvent struct {
	GameID     int64     `json:"gameId"`
	CreatorID  string    `json:"creatorId"`
	OpponentID string    `json:"opponentId"`
	Stake      int64     `json:"stake"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

func (e GameAcceptedEvent) Type() EventType {
	return EventTypeGameAccepted
}

type GameDeclinedEvent struct {
	GameID     int64     `json:"gameId"`
	CreatorID  string    `json:"creatorId"`
	DeclinedBy string    `json:"declinedBy"`
	DeclinedAt time.Time `json:"declinedAt"`
}

func (e GameDeclinedEvent) Type() EventType {
	return EventTypeGameDeclined
}

type GameCancelledEvent struct {
	GameID      int64     `json:"gameId"`
	CreatorID   string    `json:"creatorId"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e GameCancelledEvent) Type() EventType {
	return EventTypeGameCancelled
}

type GameDeletedEvent struct {
	GameID    int64  `json:"gameId"`
	CreatorID string `json:"creatorId"`
}

func (e GameDeletedEvent) Type() EventType {
	return EventTypeGameDeleted
}

// GameCompletedEvent carries the settlement so win/loss notifications need no
// extra reads.
type GameCompletedEvent struct {
	GameID      int64     `json:"gameId"`
	WinnerID    string    `json:"winnerId"`
	LoserID     string    `json:"loserId"`
	Stake       int64     `json:"stake"`
	Payout      int64     `json:"payout"`
	Fee         int64     `json:"fee"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e GameCompletedEvent) Type() EventType {
	return EventTypeGameCompleted
}

// GameVoidedEvent reports a live game cancelled with both stakes refunded
type GameVoidedEvent struct {
	GameID     int64     `json:"gameId"`
	CreatorID  string    `json:"creatorId"`
	OpponentID string    `json:"opponentId"`
	Refunded   int64     `json:"refunded"`
	VoidedAt   time.Time `json:"voidedAt"`
}

func (e GameVoidedEvent) Type() EventType {
	return EventTypeGameVoided
}

// BalanceChangedEvent is published for every ledger entry written
type BalanceChangedEvent struct {
	UserID  string `json:"userId"`
	EntryID int64  `json:"entryId"`
	GameID  *int64 `json:"gameId,omitempty"`
	Reason  string `json:"reason"`
	Delta   int64  `json:"delta"`
}

func (e BalanceChangedEvent) Type() EventType {
	return EventTypeBalanceChanged
}

package entities

import (
	"time"
)

// GameStatus represents where a game is in its lifecycle
type GameStatus string

const (
	GameStatusPending   GameStatus = "pending"
	GameStatusLive      GameStatus = "live"
	GameStatusRejected  GameStatus = "rejected"
	GameStatusCancelled GameStatus = "cancelled"
	GameStatusCompleted GameStatus = "completed"
)

// gameTransitions lists every edge of the lifecycle. Live -> Cancelled is the
// void path and is only taken together with a stake refund.
var gameTransitions = map[GameStatus][]GameStatus{
	GameStatusPending: {GameStatusLive, GameStatusRejected, GameStatusCancelled},
	GameStatusLive:    {GameStatusCompleted, GameStatusCancelled},
}

// IsValid reports whether s is a known status
func (s GameStatus) IsValid() bool {
	switch s {
	case GameStatusPending, GameStatusLive, GameStatusRejected, GameStatusCancelled, GameStatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave s
func (s GameStatus) IsTerminal() bool {
	return s.IsValid() && len(gameTransitions[s]) == 0
}

// CanTransitionTo reports whether s -> next is an edge of the lifecycle
func (s GameStatus) CanTransitionTo(next GameStatus) bool {
	for _, allowed := range gameTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s GameStatus) String() string {
	return string(s)
}

// Game is a two-player trivia wager
type Game struct {
	ID         int64      `db:"id" json:"id"`
	CreatorID  string     `db:"creator_id" json:"creatorId"`
	OpponentID *string    `db:"opponent_id" json:"opponentId,omitempty"`
	InviteeID  *string    `db:"invitee_id" json:"inviteeId,omitempty"`
	Stake      int64      `db:"stake" json:"stake"`
	Subjects   []string   `db:"subjects" json:"subjects"`
	Status     GameStatus `db:"status" json:"status"`
	WinnerID   *string    `db:"winner_id" json:"winnerId,omitempty"`
	Version    int64      `db:"version" json:"version"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsPending checks if the game is still open
func (g *Game) IsPending() bool {
	return g.Status == GameStatusPending
}

// IsLive checks if both stakes are locked and the quiz is being played
func (g *Game) IsLive() bool {
	return g.Status == GameStatusLive
}

// IsMatched reports whether an opponent has been recorded
func (g *Game) IsMatched() bool {
	return g.OpponentID != nil
}

// IsParticipant reports whether userID is the creator or the opponent
func (g *Game) IsParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	return g.CreatorID == userID || (g.OpponentID != nil && *g.OpponentID == userID)
}

// IsInvited reports whether the game is restricted to a single invitee
func (g *Game) IsInvited() bool {
	return g.InviteeID != nil
}

// CanBeJoinedBy reports whether userID is allowed to accept or decline.
// It does not check the status.
func (g *Game) CanBeJoinedBy(userID string) bool {
	if userID == "" || userID == g.CreatorID {
		return false
	}
	return g.InviteeID == nil || *g.InviteeID == userID
}

// CanBeDeleted reports whether the game can be removed without audit impact
func (g *Game) CanBeDeleted() bool {
	return g.Status == GameStatusPending && g.OpponentID == nil
}

// OtherPlayer returns the participant that is not userID.
// ok is false when userID does not play in the game.
func (g *Game) OtherPlayer(userID string) (other string, ok bool) {
	if g.OpponentID == nil {
		return "", false
	}
	switch userID {
	case g.CreatorID:
		return *g.OpponentID, true
	case *g.OpponentID:
		return g.CreatorID, true
	}
	return "", false
}

// Pot is the total amount escrowed once both stakes are locked
func (g *Game) Pot() int64 {
	return 2 * g.Stake
}

// Clone returns a deep copy safe to mutate independently
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.OpponentID = cloneString(g.OpponentID)
	c.InviteeID = cloneString(g.InviteeID)
	c.WinnerID = cloneString(g.WinnerID)
	if g.Subjects != nil {
		c.Subjects = append([]string(nil), g.Subjects...)
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

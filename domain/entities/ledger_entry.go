package entities

import (
	"math"
	"time"
)

// MaxAmount bounds stakes and the balance an account can reach through
// deposits. A pot of two maximal stakes credited to a maximal balance still
// fits in an int64.
const MaxAmount int64 = math.MaxInt64 / 4

// EntryKind is the direction of a ledger entry
type EntryKind string

const (
	EntryKindCredit EntryKind = "credit"
	EntryKindDebit  EntryKind = "debit"
)

// EntryReason is the cause of a ledger entry
type EntryReason string

const (
	EntryReasonStakeLock   EntryReason = "stake_lock"
	EntryReasonStakeRefund EntryReason = "stake_refund"
	EntryReasonWinPayout   EntryReason = "win_payout"
	EntryReasonPlatformFee EntryReason = "platform_fee"
	EntryReasonDeposit     EntryReason = "deposit"
	EntryReasonWithdrawal  EntryReason = "withdrawal"
)

// Kind returns the only entry kind a reason may be recorded with
func (r EntryReason) Kind() EntryKind {
	switch r {
	case EntryReasonStakeLock, EntryReasonWithdrawal:
		return EntryKindDebit
	default:
		return EntryKindCredit
	}
}

// IsGameScoped reports whether entries with this reason must carry a game ID
func (r EntryReason) IsGameScoped() bool {
	switch r {
	case EntryReasonStakeLock, EntryReasonStakeRefund, EntryReasonWinPayout, EntryReasonPlatformFee:
		return true
	}
	return false
}

// IsValid reports whether r is a known reason
func (r EntryReason) IsValid() bool {
	switch r {
	case EntryReasonStakeLock, EntryReasonStakeRefund, EntryReasonWinPayout,
		EntryReasonPlatformFee, EntryReasonDeposit, EntryReasonWithdrawal:
		return true
	}
	return false
}

func (r EntryReason) String() string {
	return string(r)
}

// LedgerEntry is an immutable credit or debit against a user's account
type LedgerEntry struct {
	ID        int64       `db:"id" json:"id"`
	UserID    string      `db:"user_id" json:"userId"`
	Kind      EntryKind   `db:"kind" json:"kind"`
	Amount    int64       `db:"amount" json:"amount"`
	GameID    *int64      `db:"game_id" json:"gameId,omitempty"`
	Reason    EntryReason `db:"reason" json:"reason"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// NewLedgerEntry builds an unsaved entry whose kind follows from reason
func NewLedgerEntry(userID string, reason EntryReason, amount int64, gameID *int64) *LedgerEntry {
	return &LedgerEntry{
		UserID: userID,
		Kind:   reason.Kind(),
		Amount: amount,
		GameID: gameID,
		Reason: reason,
	}
}

// SignedAmount is the entry's effect on the owner's balance
func (e *LedgerEntry) SignedAmount() int64 {
	if e.Kind == EntryKindDebit {
		return -e.Amount
	}
	return e.Amount
}

// Validate checks the shape rules every stored entry obeys
func (e *LedgerEntry) Validate() error {
	switch {
	case e.UserID == "":
		return errMissingUser
	case e.Amount <= 0:
		return errNonPositiveAmount
	case !e.Reason.IsValid():
		return errUnknownReason
	case e.Kind != e.Reason.Kind():
		return errKindMismatch
	case e.Reason.IsGameScoped() && e.GameID == nil:
		return errMissingGame
	case !e.Reason.IsGameScoped() && e.GameID != nil:
		return errUnexpectedGame
	}
	return nil
}

// CanCredit reports whether crediting amount to balance stays within int64
func CanCredit(balance, amount int64) bool {
	return amount >= 0 && balance <= math.MaxInt64-amount
}

// Balance folds entries into a balance: credits minus debits
func Balance(entries []*LedgerEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.SignedAmount()
	}
	return total
}

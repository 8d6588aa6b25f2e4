package services

import (
	"fmt"

	"quizstake/domain/entities"

	"github.com/shopspring/decimal"
)

// DefaultPlatformAccountID receives platform fees unless configured otherwise
const DefaultPlatformAccountID = "platform"

// FeePolicy decides how a pot is split between winner and platform
type FeePolicy struct {
	// Rate is the fraction of the pot kept as fee, in [0, 1)
	Rate              decimal.Decimal
	PlatformAccountID string
}

// NewFeePolicy parses rate as a decimal fraction such as "0.10"
func NewFeePolicy(rate string, platformAccountID string) (FeePolicy, error) {
	parsed, err := decimal.NewFromString(rate)
	if err != nil {
		return FeePolicy{}, fmt.Errorf("invalid fee rate %q: %w", rate, err)
	}
	policy := FeePolicy{Rate: parsed, PlatformAccountID: platformAccountID}
	if err := policy.Validate(); err != nil {
		return FeePolicy{}, err
	}
	return policy, nil
}

// Validate checks the rate range and that a platform account is named
func (p FeePolicy) Validate() error {
	if p.Rate.IsNegative() || p.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("fee rate must be in [0, 1), got %s", p.Rate)
	}
	if p.PlatformAccountID == "" {
		return fmt.Errorf("platform account ID is required")
	}
	return nil
}

// Fee is round(pot * rate), with halves rounded up
func (p FeePolicy) Fee(pot int64) int64 {
	return decimal.NewFromInt(pot).Mul(p.Rate).Round(0).IntPart()
}

// Split computes the settlement of a game won by winnerID
func (p FeePolicy) Split(gameID int64, winnerID, loserID string, stake int64) *entities.Settlement {
	pot := 2 * stake
	fee := p.Fee(pot)
	return &entities.Settlement{
		GameID:   gameID,
		WinnerID: winnerID,
		LoserID:  loserID,
		Pot:      pot,
		Payout:   pot - fee,
		Fee:      fee,
	}
}

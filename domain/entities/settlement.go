package entities

// Settlement is the split of a completed game's pot
type Settlement struct {
	GameID   int64  `json:"gameId"`
	WinnerID string `json:"winnerId"`
	LoserID  string `json:"loserId"`
	Pot      int64  `json:"pot"`
	Payout   int64  `json:"payout"`
	Fee      int64  `json:"fee"`
}

// IsBalanced reports whether payout and fee account for the whole pot
func (s *Settlement) IsBalanced() bool {
	return s.Payout >= 0 && s.Fee >= 0 && s.Payout+s.Fee == s.Pot
}

// ConservationReport totals a game's ledger entries by reason
type ConservationReport struct {
	GameID   int64      `json:"gameId"`
	Status   GameStatus `json:"status"`
	Locked   int64      `json:"locked"`
	Refunded int64      `json:"refunded"`
	Payout   int64      `json:"payout"`
	Fee      int64      `json:"fee"`
	Entries  int        `json:"entries"`
	Balanced bool       `json:"balanced"`
}

// Outstanding is the amount still held in escrow
func (r *ConservationReport) Outstanding() int64 {
	return r.Locked - r.Refunded - r.Payout - r.Fee
}

// BuildConservationReport folds the entries recorded for game. A game is
// balanced when every locked token was returned or paid out in the status the
// game ended in: nothing is held for games that never went live, everything
// is held while live, and nothing is held once completed or voided.
func BuildConservationReport(game *Game, entries []*LedgerEntry) *ConservationReport {
	report := &ConservationReport{
		GameID:  game.ID,
		Status:  game.Status,
		Entries: len(entries),
	}
	for _, e := range entries {
		switch e.Reason {
		case EntryReasonStakeLock:
			report.Locked += e.Amount
		case EntryReasonStakeRefund:
			report.Refunded += e.Amount
		case EntryReasonWinPayout:
			report.Payout += e.Amount
		case EntryReasonPlatformFee:
			report.Fee += e.Amount
		}
	}

	switch game.Status {
	case GameStatusLive:
		report.Balanced = report.Locked == game.Pot() && report.Outstanding() == report.Locked
	case GameStatusCompleted:
		report.Balanced = report.Locked == game.Pot() && report.Refunded == 0 && report.Outstanding() == 0
	case GameStatusCancelled:
		report.Balanced = report.Payout == 0 && report.Fee == 0 && report.Outstanding() == 0
	default:
		report.Balanced = report.Entries == 0
	}
	return report
}

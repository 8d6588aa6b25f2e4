package entities

import "errors"

var (
	errMissingUser       = errors.New("ledger entry requires a user")
	errNonPositiveAmount = errors.New("ledger entry amount must be positive")
	errUnknownReason     = errors.New("ledger entry reason is unknown")
	errKindMismatch      = errors.New("ledger entry kind does not match its reason")
	errMissingGame       = errors.New("ledger entry reason requires a game")
	errUnexpectedGame    = errors.New("ledger entry reason must not reference a game")
)

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown items, teams, auctions, or bids.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for duplicate bids, duplicate team names, or
	// an attempt to start an auction while another is active.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState is returned when a command is not legal in the current
	// phase, e.g. advancing to FINAL outside REVEAL or pausing REVEAL.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation is returned for malformed or out-of-range input, e.g.
	// a bid below the base price or above the team's balance.
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited is returned when a team submits bids too quickly.
	ErrRateLimited = errors.New("rate limited")
)

// SettlementError wraps a persistence failure during resolution. Settlement
// is a one-shot, non-retryable operation; this error must surface to an
// operator rather than be swallowed or retried, since re-running resolution
// would double-charge teams.
type SettlementError struct {
	AuctionID string
	Err       error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement failed for auction %s: %v", e.AuctionID, e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}

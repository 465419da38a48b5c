package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase represents the lifecycle state of an auction.
type Phase string

const (
	PhaseOpen   Phase = "OPEN"
	PhaseReveal Phase = "REVEAL"
	PhaseFinal  Phase = "FINAL"
	PhaseClosed Phase = "CLOSED"
)

// Active reports whether the phase counts against the single active-auction
// slot. At most one auction with an active phase may exist system-wide.
func (p Phase) Active() bool {
	return p == PhaseOpen || p == PhaseReveal || p == PhaseFinal
}

// Biddable reports whether bids may be placed or updated in this phase.
func (p Phase) Biddable() bool {
	return p == PhaseOpen || p == PhaseFinal
}

// Auction is a single sealed auction run for one item. Rows are retained as
// historical records; the phase is mutated only by the engine.
type Auction struct {
	ID           string
	ItemID       string
	Phase        Phase
	StartTime    time.Time
	EndTime      time.Time
	FinalEndTime *time.Time
	CreatedAt    time.Time
}

// AuctionState is the engine's public snapshot of the active auction, pushed
// through the event sink and returned by status queries.
type AuctionState struct {
	AuctionID        string `json:"auction_id"`
	ItemID           string `json:"item_id"`
	Phase            Phase  `json:"phase"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Paused           bool   `json:"paused"`
	// LeaderName is the current highest bidder, populated in REVEAL and
	// FINAL snapshots only. Exposing the leader performs no settlement.
	LeaderName string `json:"leader_name,omitempty"`
}

// WinnerResult identifies the winning team and the amount it pays.
type WinnerResult struct {
	TeamID   string          `json:"team_id"`
	TeamName string          `json:"team_name"`
	Amount   decimal.Decimal `json:"amount"`
}

// LoserPenalty is the 10% balance penalty charged to a non-winning bidder.
type LoserPenalty struct {
	TeamID   string          `json:"team_id"`
	TeamName string          `json:"team_name"`
	Penalty  decimal.Decimal `json:"penalty"`
}

// AuctionResult is the one-shot outcome of a resolved auction. Winner is nil
// when the auction closed with no bids.
type AuctionResult struct {
	AuctionID string         `json:"auction_id"`
	ItemID    string         `json:"item_id"`
	Winner    *WinnerResult  `json:"winner"`
	Losers    []LoserPenalty `json:"losers"`
}

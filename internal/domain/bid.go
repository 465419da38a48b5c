package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is a team's single live bid for an auction. Unique on
// (TeamID, AuctionID); updated in place, never deleted while the auction is
// active. Timestamp is the last-write time and doubles as the tie-break key,
// so an update resets the team's priority at equal amounts.
type Bid struct {
	ID        string
	TeamID    string
	AuctionID string
	Amount    decimal.Decimal
	Timestamp time.Time
}

// RankedBid is a bid joined with its team, as returned by ledger queries that
// order by amount desc, timestamp asc.
type RankedBid struct {
	Bid
	TeamName  string
	TeamMoney decimal.Decimal
}

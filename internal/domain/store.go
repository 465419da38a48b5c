package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStore persists auction records. Phase mutations come only from the
// engine; rows are never deleted.
type AuctionStore interface {
	Create(ctx context.Context, a Auction) error
	GetByID(ctx context.Context, id string) (Auction, error)
	// FindActive returns the single auction whose phase is OPEN, REVEAL, or
	// FINAL, or ErrNotFound when no auction is active.
	FindActive(ctx context.Context) (Auction, error)
	SetPhase(ctx context.Context, id string, phase Phase) error
	// SetFinalEnd records the wall-clock end of the FINAL countdown. The
	// value is informational; remaining time is always derived from the
	// engine's in-memory counter.
	SetFinalEnd(ctx context.Context, id string, end time.Time) error
	// SetResult persists the settlement outcome. Written once, at
	// settlement time; outcomes are never recomputed from the ledger
	// because balances mutate during settlement.
	SetResult(ctx context.Context, id string, result AuctionResult) error
	// GetResult returns the persisted outcome, or ErrNotFound when the
	// auction was never settled.
	GetResult(ctx context.Context, id string) (AuctionResult, error)
}

// BidStore is the bid ledger. The store enforces one bid per team per
// auction and re-validates the auction phase inside the same transaction as
// every insert or update, closing the race against a concurrent phase
// transition.
type BidStore interface {
	// Place inserts a new bid. It returns ErrInvalidState when the auction
	// is no longer biddable and ErrConflict when the team already has a bid.
	Place(ctx context.Context, b Bid) error
	// Update overwrites the amount and timestamp of the team's existing bid,
	// resetting its tie-break priority. It returns ErrNotFound when the team
	// has no bid and ErrInvalidState when the auction is no longer biddable.
	Update(ctx context.Context, teamID, auctionID string, amount decimal.Decimal, ts time.Time) (Bid, error)
	GetByTeam(ctx context.Context, teamID, auctionID string) (Bid, error)
	// ListRanked returns all bids for an auction joined with their teams,
	// ordered by amount descending then timestamp ascending.
	ListRanked(ctx context.Context, auctionID string) ([]RankedBid, error)
	// Highest returns the current leader, or ErrNotFound with no bids.
	Highest(ctx context.Context, auctionID string) (RankedBid, error)
}

// TeamStore persists teams and their balances.
type TeamStore interface {
	Create(ctx context.Context, t Team) error
	GetByID(ctx context.Context, id string) (Team, error)
	List(ctx context.Context) ([]Team, error)
	SetMoney(ctx context.Context, id string, money decimal.Decimal) error
	// Debit atomically decrements the team's balance.
	Debit(ctx context.Context, id string, amount decimal.Decimal) error
	SetEliminated(ctx context.Context, id string, eliminated bool) error
	Delete(ctx context.Context, id string) error
}

// ItemStore persists auction items.
type ItemStore interface {
	Create(ctx context.Context, it Item) error
	GetByID(ctx context.Context, id string) (Item, error)
	List(ctx context.Context) ([]Item, error)
	Update(ctx context.Context, it Item) error
	SetStatus(ctx context.Context, id string, status ItemStatus) error
	Delete(ctx context.Context, id string) error
}

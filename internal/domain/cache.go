package domain

import (
	"context"
	"time"
)

// StateCache holds the most recent auction state snapshot so read paths and
// late subscribers can be served without touching the engine. A missing
// snapshot returns ErrNotFound.
type StateCache interface {
	SetState(ctx context.Context, state AuctionState, ttl time.Duration) error
	GetState(ctx context.Context) (AuctionState, error)
	// Clear removes the snapshot, typically after an auction closes.
	Clear(ctx context.Context) error
}

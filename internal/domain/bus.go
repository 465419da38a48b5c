package domain

import (
	"context"
	"time"
)

// SignalBus provides fire-and-forget pub/sub between the engine side and the
// broadcast side of the system.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of raw payloads. The subscription is torn
	// down and the channel closed when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// EventSink receives engine notifications. Delivery is fire-and-forget: no
// acknowledgement, no retry, and sink failures must never affect engine
// state.
type EventSink interface {
	EmitTick(ctx context.Context, state AuctionState)
	EmitPhaseChange(ctx context.Context, state AuctionState)
	EmitResult(ctx context.Context, result AuctionResult)
}

// RateLimiter throttles bid submissions per team.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

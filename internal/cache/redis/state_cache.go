package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hallbid/auctiond/internal/domain"
)

// stateKey is where the latest auction state snapshot lives. There is at most
// one active auction, so a single key suffices.
const stateKey = "auction:state"

// StateCache implements domain.StateCache using a single Redis string holding
// the JSON-encoded snapshot. Reads on the live endpoint and late websocket
// joins are served from here instead of the engine.
type StateCache struct {
	rdb *redis.Client
}

// NewStateCache creates a StateCache backed by the given Client.
func NewStateCache(c *Client) *StateCache {
	return &StateCache{rdb: c.Underlying()}
}

// SetState stores the snapshot with the given TTL.
func (sc *StateCache) SetState(ctx context.Context, state domain.AuctionState, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis: marshal auction state: %w", err)
	}
	if err := sc.rdb.Set(ctx, stateKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set auction state: %w", err)
	}
	return nil
}

// GetState retrieves the snapshot. It returns domain.ErrNotFound when no
// snapshot is present.
func (sc *StateCache) GetState(ctx context.Context) (domain.AuctionState, error) {
	data, err := sc.rdb.Get(ctx, stateKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.AuctionState{}, domain.ErrNotFound
		}
		return domain.AuctionState{}, fmt.Errorf("redis: get auction state: %w", err)
	}

	var state domain.AuctionState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.AuctionState{}, fmt.Errorf("redis: unmarshal auction state: %w", err)
	}
	return state, nil
}

// Clear removes the snapshot.
func (sc *StateCache) Clear(ctx context.Context) error {
	if err := sc.rdb.Del(ctx, stateKey).Err(); err != nil {
		return fmt.Errorf("redis: clear auction state: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.StateCache = (*StateCache)(nil)

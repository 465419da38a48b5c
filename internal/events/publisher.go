// Package events bridges the engine to the broadcast side. The Publisher
// serializes engine notifications into JSON envelopes, pushes them onto the
// signal bus, and keeps the live-state cache fresh. Delivery is
// fire-and-forget: failures are logged and never reach the engine.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/hallbid/auctiond/internal/domain"
)

// Bus channels. The websocket hub subscribes to these and forwards payloads
// verbatim to connected clients.
const (
	ChannelTick   = "auction:tick"
	ChannelPhase  = "auction:phase"
	ChannelResult = "auction:result"
	ChannelBids   = "bid:update"
)

// Client-facing event names carried inside envelopes.
const (
	EventTimer      = "auction:timer"
	EventStart      = "auction:start"
	EventReveal     = "auction:reveal"
	EventFinalPhase = "auction:finalPhase"
	EventPaused     = "auction:paused"
	EventResumed    = "auction:resumed"
	EventClosed     = "auction:closed"
	EventResult     = "auction:result"
	EventBidUpdate  = "bid:update"
)

// stateTTL bounds how stale a cached snapshot can get if the publisher dies
// between ticks.
const stateTTL = 15 * time.Second

// Envelope is the wire frame for every published event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Publisher implements domain.EventSink.
type Publisher struct {
	bus    domain.SignalBus
	cache  domain.StateCache
	logger *slog.Logger

	mu   sync.Mutex
	last *domain.AuctionState
}

// NewPublisher creates a Publisher. cache may be nil, in which case snapshots
// are not cached.
func NewPublisher(bus domain.SignalBus, cache domain.StateCache, logger *slog.Logger) *Publisher {
	return &Publisher{
		bus:    bus,
		cache:  cache,
		logger: logger.With(slog.String("component", "events")),
	}
}

// EmitTick broadcasts a countdown tick and refreshes the cached snapshot.
func (p *Publisher) EmitTick(ctx context.Context, state domain.AuctionState) {
	p.remember(state)
	p.cacheState(ctx, state)
	p.publish(ctx, ChannelTick, Envelope{Event: EventTimer, Data: state})
}

// EmitPhaseChange broadcasts a phase or pause transition. The event name is
// derived from the transition so clients get distinct start, reveal, final,
// paused, resumed, and closed events.
func (p *Publisher) EmitPhaseChange(ctx context.Context, state domain.AuctionState) {
	event := p.eventFor(state)
	p.remember(state)

	if state.Phase == domain.PhaseClosed {
		p.clearState(ctx)
	} else {
		p.cacheState(ctx, state)
	}
	p.publish(ctx, ChannelPhase, Envelope{Event: event, Data: state})
}

// EmitResult broadcasts the resolution outcome.
func (p *Publisher) EmitResult(ctx context.Context, result domain.AuctionResult) {
	p.publish(ctx, ChannelResult, Envelope{Event: EventResult, Data: result})
}

// EmitBidUpdate broadcasts the new leading bid. Called by the bid service, not
// the engine.
func (p *Publisher) EmitBidUpdate(ctx context.Context, leader domain.RankedBid) {
	p.publish(ctx, ChannelBids, Envelope{Event: EventBidUpdate, Data: leader})
}

// eventFor maps a state transition onto a client event name. It compares
// against the previously seen state to tell a resume apart from a fresh start
// and a pause apart from a phase move.
func (p *Publisher) eventFor(state domain.AuctionState) string {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()

	samePhase := last != nil && last.AuctionID == state.AuctionID && last.Phase == state.Phase
	if samePhase {
		if state.Paused && !last.Paused {
			return EventPaused
		}
		if !state.Paused && last.Paused {
			return EventResumed
		}
	}

	switch state.Phase {
	case domain.PhaseOpen:
		return EventStart
	case domain.PhaseReveal:
		return EventReveal
	case domain.PhaseFinal:
		return EventFinalPhase
	case domain.PhaseClosed:
		return EventClosed
	}
	return EventStart
}

func (p *Publisher) remember(state domain.AuctionState) {
	p.mu.Lock()
	p.last = &state
	p.mu.Unlock()
}

func (p *Publisher) publish(ctx context.Context, channel string, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal event failed",
			slog.String("event", env.Event),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := p.bus.Publish(ctx, channel, payload); err != nil {
		p.logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("event", env.Event),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Publisher) cacheState(ctx context.Context, state domain.AuctionState) {
	if p.cache == nil {
		return
	}
	if err := p.cache.SetState(ctx, state, stateTTL); err != nil {
		p.logger.WarnContext(ctx, "cache state failed",
			slog.String("auction_id", state.AuctionID),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Publisher) clearState(ctx context.Context) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Clear(ctx); err != nil {
		p.logger.WarnContext(ctx, "clear cached state failed",
			slog.String("error", err.Error()),
		)
	}
}

// Compile-time interface check.
var _ domain.EventSink = (*Publisher)(nil)

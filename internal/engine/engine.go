// Package engine implements the auction phase state machine and the
// resolution algorithm. One Engine instance owns the single globally-active
// auction: its phase, pause flag, remaining-seconds counter, and the armed
// countdown timer. All commands and the timer serialize through one mutex,
// and only the CLOSED transition on natural expiry invokes resolution, which
// therefore runs exactly once per auction.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hallbid/auctiond/internal/domain"
)

// Default phase budgets in seconds.
const (
	DefaultOpenSeconds  = 180
	DefaultFinalSeconds = 60
)

// Alerter pushes operator alerts for conditions that need a human, such as a
// failed settlement write. A nil Alerter disables alerts.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config holds engine timing parameters. TickInterval is the real-time length
// of one countdown second; tests shrink it to drive expiry quickly.
type Config struct {
	OpenSeconds  int
	FinalSeconds int
	TickInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.OpenSeconds <= 0 {
		c.OpenSeconds = DefaultOpenSeconds
	}
	if c.FinalSeconds <= 0 {
		c.FinalSeconds = DefaultFinalSeconds
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	return c
}

// countdown is one armed timer. A new countdown is created each time a phase
// budget is armed; disarming cancels its context and the loop bails when it
// no longer matches the engine's current countdown.
type countdown struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// active is the in-memory state of the single active auction. It exists from
// a successful start until the CLOSED transition and is the only source of
// truth for remaining time; persisted end times are informational.
type active struct {
	auctionID string
	itemID    string
	phase     domain.Phase
	remaining int
	paused    bool
	timer     *countdown
}

// Engine is the timer-driven phase state machine. The zero value is not
// usable; construct with New.
type Engine struct {
	cfg    Config
	store  Stores
	sink   domain.EventSink
	alerts Alerter
	logger *slog.Logger

	mu     sync.Mutex
	cur    *active
	runCtx context.Context
}

// Stores bundles the persistence interfaces the engine drives.
type Stores struct {
	Auctions domain.AuctionStore
	Bids     domain.BidStore
	Teams    domain.TeamStore
	Items    domain.ItemStore
}

// New creates an Engine with no active auction.
func New(cfg Config, store Stores, sink domain.EventSink, alerts Alerter, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg.withDefaults(),
		store:  store,
		sink:   sink,
		alerts: alerts,
		logger: logger.With(slog.String("component", "engine")),
		runCtx: context.Background(),
	}
}

// Run binds the engine to the application lifecycle. It blocks until ctx is
// cancelled, then disarms any pending countdown. Countdowns armed before or
// during Run are attached to ctx so shutdown stops them.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.runCtx = ctx
	e.mu.Unlock()

	<-ctx.Done()

	e.mu.Lock()
	if e.cur != nil && e.cur.timer != nil {
		e.cur.timer.cancel()
	}
	e.mu.Unlock()
	return ctx.Err()
}

// Start begins an auction for the given item: the item becomes ACTIVE, an
// auction row is created in OPEN, and the OPEN countdown is armed. It fails
// with ErrConflict while any non-CLOSED auction exists and with
// ErrInvalidState when the item is already sold.
func (e *Engine) Start(ctx context.Context, itemID string) (domain.AuctionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur != nil {
		return domain.AuctionState{}, fmt.Errorf("engine: auction %s already active: %w", e.cur.auctionID, domain.ErrConflict)
	}
	// The store is the backstop against a stale active row, e.g. after an
	// unclean restart.
	if stale, err := e.store.Auctions.FindActive(ctx); err == nil {
		return domain.AuctionState{}, fmt.Errorf("engine: auction %s already active: %w", stale.ID, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.AuctionState{}, fmt.Errorf("engine: find active auction: %w", err)
	}

	item, err := e.store.Items.GetByID(ctx, itemID)
	if err != nil {
		return domain.AuctionState{}, fmt.Errorf("engine: load item %s: %w", itemID, err)
	}
	if item.Status == domain.ItemStatusSold {
		return domain.AuctionState{}, fmt.Errorf("engine: item %s already sold: %w", itemID, domain.ErrInvalidState)
	}

	if err := e.store.Items.SetStatus(ctx, itemID, domain.ItemStatusActive); err != nil {
		return domain.AuctionState{}, fmt.Errorf("engine: mark item active: %w", err)
	}

	now := time.Now().UTC()
	a := domain.Auction{
		ID:        uuid.New().String(),
		ItemID:    itemID,
		Phase:     domain.PhaseOpen,
		StartTime: now,
		EndTime:   now.Add(time.Duration(e.cfg.OpenSeconds) * time.Second),
	}
	if err := e.store.Auctions.Create(ctx, a); err != nil {
		return domain.AuctionState{}, fmt.Errorf("engine: create auction: %w", err)
	}

	e.cur = &active{
		auctionID: a.ID,
		itemID:    itemID,
		phase:     domain.PhaseOpen,
		remaining: e.cfg.OpenSeconds,
	}
	e.armLocked()

	state := e.stateLocked()
	e.sink.EmitPhaseChange(ctx, state)
	e.logger.InfoContext(ctx, "auction started",
		slog.String("auction_id", a.ID),
		slog.String("item_id", itemID),
		slog.Int("open_seconds", e.cfg.OpenSeconds),
	)
	return state, nil
}

// AdvanceToFinal moves the auction from REVEAL to FINAL and arms the FINAL
// countdown. Legal only from REVEAL.
func (e *Engine) AdvanceToFinal(ctx context.Context) (domain.AuctionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil {
		return domain.AuctionState{}, fmt.Errorf("engine: no active auction: %w", domain.ErrInvalidState)
	}
	if e.cur.phase != domain.PhaseReveal {
		return domain.AuctionState{}, fmt.Errorf("engine: advance to final from %s: %w", e.cur.phase, domain.ErrInvalidState)
	}

	finalEnd := time.Now().UTC().Add(time.Duration(e.cfg.FinalSeconds) * time.Second)
	if err := e.store.Auctions.SetFinalEnd(ctx, e.cur.auctionID, finalEnd); err != nil {
		return domain.AuctionState{}, fmt.Errorf("engine: persist final end: %w", err)
	}
	if err := e.store.Auctions.SetPhase(ctx, e.cur.auctionID, domain.PhaseFinal); err != nil {
		return domain.AuctionState{}, fmt.Errorf("engine: persist FINAL phase: %w", err)
	}

	e.cur.phase = domain.PhaseFinal
	e.cur.remaining = e.cfg.FinalSeconds
	e.cur.paused = false
	e.armLocked()

	state := e.stateLocked()
	e.sink.EmitPhaseChange(ctx, state)
	e.logger.InfoContext(ctx, "auction advanced to final",
		slog.String("auction_id", e.cur.auctionID),
		slog.Int("final_seconds", e.cfg.FinalSeconds),
	)
	return state, nil
}

// Pause freezes the countdown. Ticks are swallowed while paused, so time
// spent paused does not count against the phase budget. Pausing is a no-op
// when already paused; it is only legal in OPEN and FINAL.
func (e *Engine) Pause(ctx context.Context) (domain.AuctionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil {
		return domain.AuctionState{}, fmt.Errorf("engine: no active auction: %w", domain.ErrInvalidState)
	}
	if !e.cur.phase.Biddable() {
		return domain.AuctionState{}, fmt.Errorf("engine: pause in %s: %w", e.cur.phase, domain.ErrInvalidState)
	}
	if e.cur.paused {
		return e.stateLocked(), nil
	}

	e.cur.paused = true
	state := e.stateLocked()
	e.sink.EmitPhaseChange(ctx, state)
	e.logger.InfoContext(ctx, "auction paused",
		slog.String("auction_id", e.cur.auctionID),
		slog.Int("remaining", e.cur.remaining),
	)
	return state, nil
}

// Resume unfreezes a paused countdown. No-op when not paused.
func (e *Engine) Resume(ctx context.Context) (domain.AuctionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil {
		return domain.AuctionState{}, fmt.Errorf("engine: no active auction: %w", domain.ErrInvalidState)
	}
	if !e.cur.paused {
		return e.stateLocked(), nil
	}

	e.cur.paused = false
	state := e.stateLocked()
	e.sink.EmitPhaseChange(ctx, state)
	e.logger.InfoContext(ctx, "auction resumed",
		slog.String("auction_id", e.cur.auctionID),
		slog.Int("remaining", e.cur.remaining),
	)
	return state, nil
}

// ForceStop is the emergency abort: it closes the auction from any
// non-CLOSED phase without running resolution. No balances are touched and
// the item keeps its current status.
func (e *Engine) ForceStop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil {
		return fmt.Errorf("engine: no active auction: %w", domain.ErrInvalidState)
	}

	e.disarmLocked()
	auctionID, itemID := e.cur.auctionID, e.cur.itemID
	if err := e.store.Auctions.SetPhase(ctx, auctionID, domain.PhaseClosed); err != nil {
		return fmt.Errorf("engine: persist CLOSED phase: %w", err)
	}
	e.cur = nil

	e.sink.EmitPhaseChange(ctx, domain.AuctionState{
		AuctionID: auctionID,
		ItemID:    itemID,
		Phase:     domain.PhaseClosed,
	})
	e.logger.InfoContext(ctx, "auction force-stopped",
		slog.String("auction_id", auctionID),
	)
	return nil
}

// Status returns the current engine snapshot. ok is false when no auction is
// active. The leader name is populated in REVEAL and FINAL.
func (e *Engine) Status(ctx context.Context) (domain.AuctionState, bool) {
	e.mu.Lock()
	if e.cur == nil {
		e.mu.Unlock()
		return domain.AuctionState{}, false
	}
	state := e.stateLocked()
	e.mu.Unlock()

	if state.Phase == domain.PhaseReveal || state.Phase == domain.PhaseFinal {
		if leader, err := e.store.Bids.Highest(ctx, state.AuctionID); err == nil {
			state.LeaderName = leader.TeamName
		}
	}
	return state, true
}

// ActiveAuctionID returns the id of the active auction, if any.
func (e *Engine) ActiveAuctionID() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return "", false
	}
	return e.cur.auctionID, true
}

// armLocked starts a fresh countdown for the current phase, disarming any
// previous one first. Caller holds e.mu.
func (e *Engine) armLocked() {
	e.disarmLocked()

	ctx, cancel := context.WithCancel(e.runCtx)
	cd := &countdown{cancel: cancel, done: make(chan struct{})}
	e.cur.timer = cd
	go e.runCountdown(ctx, e.cur, cd)
}

// disarmLocked cancels the armed countdown, if any. It does not wait for the
// loop to exit; the loop bails as soon as it observes it is stale. Caller
// holds e.mu.
func (e *Engine) disarmLocked() {
	if e.cur != nil && e.cur.timer != nil {
		e.cur.timer.cancel()
		e.cur.timer = nil
	}
}

// runCountdown is the tick loop for one armed phase budget. One countdown
// second elapses per TickInterval; paused ticks are neither broadcast nor
// decremented.
func (e *Engine) runCountdown(ctx context.Context, a *active, cd *countdown) {
	defer close(cd.done)
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.tick(ctx, a, cd) {
				return
			}
		}
	}
}

// tick advances the countdown by one second and fires phase transitions on
// expiry. It reports whether the loop should stop.
func (e *Engine) tick(ctx context.Context, a *active, cd *countdown) bool {
	e.mu.Lock()

	// Stale loop: the engine moved on (force stop, re-arm, new auction).
	if e.cur != a || a.timer != cd {
		e.mu.Unlock()
		return true
	}
	if a.paused {
		e.mu.Unlock()
		return false
	}

	a.remaining--
	if a.remaining > 0 {
		state := e.stateLocked()
		e.mu.Unlock()
		e.sink.EmitTick(ctx, state)
		return false
	}

	// Expiry. The transition runs under the engine lock so no command can
	// interleave with it.
	defer e.mu.Unlock()
	a.timer = nil
	switch a.phase {
	case domain.PhaseOpen:
		e.revealLocked(ctx)
	case domain.PhaseFinal:
		e.closeLocked(ctx)
	}
	return true
}

// revealLocked transitions OPEN -> REVEAL on natural expiry: the countdown
// stops, the phase is persisted, and the current leader is exposed. No
// balances are touched. Caller holds e.mu.
func (e *Engine) revealLocked(ctx context.Context) {
	a := e.cur
	if err := e.store.Auctions.SetPhase(ctx, a.auctionID, domain.PhaseReveal); err != nil {
		// Persisting a timer-driven transition is retried on the next
		// query path at worst; log and keep the in-memory truth moving.
		e.logger.ErrorContext(ctx, "persist REVEAL phase failed",
			slog.String("auction_id", a.auctionID),
			slog.String("error", err.Error()),
		)
	}
	a.phase = domain.PhaseReveal
	a.remaining = 0
	a.paused = false

	state := e.stateLocked()
	if leader, err := e.store.Bids.Highest(ctx, a.auctionID); err == nil {
		state.LeaderName = leader.TeamName
	} else if !errors.Is(err, domain.ErrNotFound) {
		e.logger.WarnContext(ctx, "leader lookup failed",
			slog.String("auction_id", a.auctionID),
			slog.String("error", err.Error()),
		)
	}
	e.sink.EmitPhaseChange(ctx, state)
	e.logger.InfoContext(ctx, "auction revealed",
		slog.String("auction_id", a.auctionID),
		slog.String("leader", state.LeaderName),
	)
}

// closeLocked transitions FINAL -> CLOSED on natural expiry and runs
// resolution exactly once. The active-auction slot is released before the
// result event is emitted, so a new auction can never start while settlement
// is still pending. Caller holds e.mu.
func (e *Engine) closeLocked(ctx context.Context) {
	a := e.cur
	if err := e.store.Auctions.SetPhase(ctx, a.auctionID, domain.PhaseClosed); err != nil {
		e.logger.ErrorContext(ctx, "persist CLOSED phase failed",
			slog.String("auction_id", a.auctionID),
			slog.String("error", err.Error()),
		)
	}

	result, err := e.settle(ctx, a.auctionID, a.itemID)

	a.phase = domain.PhaseClosed
	a.remaining = 0
	e.cur = nil

	e.sink.EmitPhaseChange(ctx, domain.AuctionState{
		AuctionID: a.auctionID,
		ItemID:    a.itemID,
		Phase:     domain.PhaseClosed,
	})

	if err != nil {
		// Settlement is one-shot and non-retryable: re-running it would
		// double-charge teams. Surface to an operator and stop.
		e.logger.ErrorContext(ctx, "settlement failed",
			slog.String("auction_id", a.auctionID),
			slog.String("error", err.Error()),
		)
		if e.alerts != nil {
			_ = e.alerts.Notify(ctx, "settlement_failure",
				"Auction settlement failed",
				fmt.Sprintf("auction %s (item %s) needs manual settlement: %v", a.auctionID, a.itemID, err),
			)
		}
		return
	}

	e.sink.EmitResult(ctx, result)
	if e.alerts != nil && result.Winner != nil {
		_ = e.alerts.Notify(ctx, "auction_resolved",
			"Auction resolved",
			fmt.Sprintf("%s won item %s for %s", result.Winner.TeamName, a.itemID, result.Winner.Amount),
		)
	}
	e.logger.InfoContext(ctx, "auction closed",
		slog.String("auction_id", a.auctionID),
		slog.Bool("has_winner", result.Winner != nil),
		slog.Int("losers", len(result.Losers)),
	)
}

// settle reads the ledger, computes the outcome, and applies the monetary
// effects: the winner pays its bid and is eliminated, every other bidder
// loses a fraction of its own balance, and the item is marked SOLD. With no
// bids nothing is mutated. Any persistence failure is wrapped in a
// SettlementError.
func (e *Engine) settle(ctx context.Context, auctionID, itemID string) (domain.AuctionResult, error) {
	bids, err := e.store.Bids.ListRanked(ctx, auctionID)
	if err != nil {
		return domain.AuctionResult{}, &domain.SettlementError{AuctionID: auctionID, Err: fmt.Errorf("list bids: %w", err)}
	}

	result := Resolve(auctionID, itemID, bids)
	if result.Winner == nil {
		// No bids: no balances move and the item stays unsold, but the
		// empty outcome is still recorded for the result query.
		if err := e.store.Auctions.SetResult(ctx, auctionID, result); err != nil {
			return result, &domain.SettlementError{AuctionID: auctionID, Err: fmt.Errorf("record result: %w", err)}
		}
		return result, nil
	}

	if err := e.store.Teams.Debit(ctx, result.Winner.TeamID, result.Winner.Amount); err != nil {
		return result, &domain.SettlementError{AuctionID: auctionID, Err: fmt.Errorf("debit winner %s: %w", result.Winner.TeamID, err)}
	}
	if err := e.store.Teams.SetEliminated(ctx, result.Winner.TeamID, true); err != nil {
		return result, &domain.SettlementError{AuctionID: auctionID, Err: fmt.Errorf("eliminate winner %s: %w", result.Winner.TeamID, err)}
	}

	for _, loser := range result.Losers {
		if err := e.store.Teams.Debit(ctx, loser.TeamID, loser.Penalty); err != nil {
			return result, &domain.SettlementError{AuctionID: auctionID, Err: fmt.Errorf("charge loser %s: %w", loser.TeamID, err)}
		}
	}

	if err := e.store.Items.SetStatus(ctx, itemID, domain.ItemStatusSold); err != nil {
		return result, &domain.SettlementError{AuctionID: auctionID, Err: fmt.Errorf("mark item sold: %w", err)}
	}

	if err := e.store.Auctions.SetResult(ctx, auctionID, result); err != nil {
		return result, &domain.SettlementError{AuctionID: auctionID, Err: fmt.Errorf("record result: %w", err)}
	}

	return result, nil
}

// stateLocked builds the public snapshot. Caller holds e.mu.
func (e *Engine) stateLocked() domain.AuctionState {
	return domain.AuctionState{
		AuctionID:        e.cur.auctionID,
		ItemID:           e.cur.itemID,
		Phase:            e.cur.phase,
		RemainingSeconds: e.cur.remaining,
		Paused:           e.cur.paused,
	}
}

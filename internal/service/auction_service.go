// Package service holds the application services between the HTTP handlers
// and the engine and stores. Services validate input, map it onto domain
// operations, and never reach into the transport layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hallbid/auctiond/internal/domain"
	"github.com/hallbid/auctiond/internal/engine"
)

// LiveView is the rich snapshot served by the live endpoint: the engine
// state plus the item on the block and the full ranked ledger.
type LiveView struct {
	State domain.AuctionState `json:"state"`
	Item  domain.Item         `json:"item"`
	Bids  []BidView           `json:"bids"`
}

// BidView is a ledger entry exposed to clients. Team balances are not
// included.
type BidView struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
	Amount   string `json:"amount"`
	PlacedAt string `json:"placed_at"`
}

// ResultView is the outcome of an auction as served by the result endpoint.
// Before settlement the winner is the provisional leader and Losers is
// empty; once settled it reflects the persisted resolution.
type ResultView struct {
	AuctionID string                `json:"auction_id"`
	ItemID    string                `json:"item_id"`
	Phase     domain.Phase          `json:"phase"`
	Settled   bool                  `json:"settled"`
	Winner    *domain.WinnerResult  `json:"winner"`
	Losers    []domain.LoserPenalty `json:"losers"`
	Bids      []BidView             `json:"bids"`
}

// TimerView is the countdown snapshot served by the timer endpoint.
type TimerView struct {
	AuctionID        string       `json:"auction_id"`
	Phase            domain.Phase `json:"phase"`
	RemainingSeconds int          `json:"remaining_seconds"`
	Paused           bool         `json:"paused"`
}

// AuctionService drives the auction lifecycle through the engine and serves
// the read paths.
type AuctionService struct {
	engine   *engine.Engine
	auctions domain.AuctionStore
	bids     domain.BidStore
	items    domain.ItemStore
	logger   *slog.Logger
}

// NewAuctionService creates an AuctionService.
func NewAuctionService(
	eng *engine.Engine,
	auctions domain.AuctionStore,
	bids domain.BidStore,
	items domain.ItemStore,
	logger *slog.Logger,
) *AuctionService {
	return &AuctionService{
		engine:   eng,
		auctions: auctions,
		bids:     bids,
		items:    items,
		logger:   logger,
	}
}

// Start begins an auction for the given item.
func (s *AuctionService) Start(ctx context.Context, itemID string) (domain.AuctionState, error) {
	if itemID == "" {
		return domain.AuctionState{}, fmt.Errorf("auction_service: item id required: %w", domain.ErrValidation)
	}
	return s.engine.Start(ctx, itemID)
}

// Stop force-stops the active auction without resolution.
func (s *AuctionService) Stop(ctx context.Context) error {
	return s.engine.ForceStop(ctx)
}

// Pause freezes the active countdown.
func (s *AuctionService) Pause(ctx context.Context) (domain.AuctionState, error) {
	return s.engine.Pause(ctx)
}

// Resume unfreezes a paused countdown.
func (s *AuctionService) Resume(ctx context.Context) (domain.AuctionState, error) {
	return s.engine.Resume(ctx)
}

// AdvanceToFinal moves the auction from REVEAL into FINAL.
func (s *AuctionService) AdvanceToFinal(ctx context.Context) (domain.AuctionState, error) {
	return s.engine.AdvanceToFinal(ctx)
}

// Status returns the engine snapshot of the active auction.
func (s *AuctionService) Status(ctx context.Context) (domain.AuctionState, error) {
	state, ok := s.engine.Status(ctx)
	if !ok {
		return domain.AuctionState{}, fmt.Errorf("auction_service: no active auction: %w", domain.ErrNotFound)
	}
	return state, nil
}

// Timer returns the countdown snapshot of the active auction.
func (s *AuctionService) Timer(ctx context.Context) (TimerView, error) {
	state, err := s.Status(ctx)
	if err != nil {
		return TimerView{}, err
	}
	return TimerView{
		AuctionID:        state.AuctionID,
		Phase:            state.Phase,
		RemainingSeconds: state.RemainingSeconds,
		Paused:           state.Paused,
	}, nil
}

// Live returns the full live view: state, item, and ranked ledger. This is
// an administrative view; bids are sealed, so it must not be served to teams
// while the auction is OPEN.
func (s *AuctionService) Live(ctx context.Context) (LiveView, error) {
	state, err := s.Status(ctx)
	if err != nil {
		return LiveView{}, err
	}

	item, err := s.items.GetByID(ctx, state.ItemID)
	if err != nil {
		return LiveView{}, fmt.Errorf("auction_service: load item %s: %w", state.ItemID, err)
	}

	ranked, err := s.bids.ListRanked(ctx, state.AuctionID)
	if err != nil {
		return LiveView{}, fmt.Errorf("auction_service: list bids: %w", err)
	}

	return LiveView{State: state, Item: item, Bids: toBidViews(ranked)}, nil
}

// Result returns the outcome view of any known auction. For a settled
// auction it is the persisted settlement (winner, penalties); mid-flight it
// is the provisional outcome, with the current leader as winner and no
// penalties. Settled reports which of the two the caller got.
func (s *AuctionService) Result(ctx context.Context, auctionID string) (ResultView, error) {
	a, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return ResultView{}, fmt.Errorf("auction_service: load auction %s: %w", auctionID, err)
	}

	ranked, err := s.bids.ListRanked(ctx, auctionID)
	if err != nil {
		return ResultView{}, fmt.Errorf("auction_service: list bids: %w", err)
	}

	view := ResultView{
		AuctionID: auctionID,
		ItemID:    a.ItemID,
		Phase:     a.Phase,
		Losers:    []domain.LoserPenalty{},
		Bids:      toBidViews(ranked),
	}

	if a.Phase == domain.PhaseClosed {
		settled, err := s.auctions.GetResult(ctx, auctionID)
		switch {
		case err == nil:
			view.Settled = true
			view.Winner = settled.Winner
			view.Losers = settled.Losers
			return view, nil
		case !errors.Is(err, domain.ErrNotFound):
			return ResultView{}, fmt.Errorf("auction_service: result for %s: %w", auctionID, err)
		}
		// Closed without settlement (force-stopped): fall through to the
		// provisional view of the frozen ledger.
	}

	if len(ranked) > 0 {
		leader := ranked[0]
		view.Winner = &domain.WinnerResult{
			TeamID:   leader.TeamID,
			TeamName: leader.TeamName,
			Amount:   leader.Amount,
		}
	}
	return view, nil
}

// Restart reruns an auction for the given item, whatever state the item is
// in: a SOLD or ACTIVE item is reset to PENDING first, and any auction still
// running is force-stopped (keeping its ledger as history) so the fresh
// start finds the slot free.
func (s *AuctionService) Restart(ctx context.Context, itemID string) (domain.AuctionState, error) {
	if itemID == "" {
		return domain.AuctionState{}, fmt.Errorf("auction_service: item id required: %w", domain.ErrValidation)
	}
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return domain.AuctionState{}, fmt.Errorf("auction_service: restart item %s: %w", itemID, err)
	}

	oldID := ""
	if state, ok := s.engine.Status(ctx); ok {
		oldID = state.AuctionID
		if err := s.engine.ForceStop(ctx); err != nil {
			return domain.AuctionState{}, fmt.Errorf("auction_service: restart stop: %w", err)
		}
	}

	if err := s.items.SetStatus(ctx, itemID, domain.ItemStatusPending); err != nil {
		return domain.AuctionState{}, fmt.Errorf("auction_service: restart reset item: %w", err)
	}

	fresh, err := s.engine.Start(ctx, itemID)
	if err != nil {
		return domain.AuctionState{}, fmt.Errorf("auction_service: restart start: %w", err)
	}

	s.logger.InfoContext(ctx, "auction restarted",
		slog.String("old_auction_id", oldID),
		slog.String("auction_id", fresh.AuctionID),
		slog.String("item_id", itemID),
	)
	return fresh, nil
}

// History returns the ranked ledger of any auction, active or closed.
func (s *AuctionService) History(ctx context.Context, auctionID string) ([]BidView, error) {
	if _, err := s.auctions.GetByID(ctx, auctionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("auction_service: load auction %s: %w", auctionID, err)
	}

	ranked, err := s.bids.ListRanked(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("auction_service: list bids: %w", err)
	}
	return toBidViews(ranked), nil
}

func toBidViews(ranked []domain.RankedBid) []BidView {
	views := make([]BidView, 0, len(ranked))
	for _, rb := range ranked {
		views = append(views, BidView{
			TeamID:   rb.TeamID,
			TeamName: rb.TeamName,
			Amount:   rb.Amount.String(),
			PlacedAt: rb.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return views
}

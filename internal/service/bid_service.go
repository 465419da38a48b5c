package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
	"github.com/hallbid/auctiond/internal/engine"
	"github.com/hallbid/auctiond/internal/events"
)

// Bid submission throttle per team.
const (
	bidRateLimit  = 5
	bidRateWindow = 10 * time.Second
)

// BidService validates and records team bids against the active auction.
type BidService struct {
	engine  *engine.Engine
	bids    domain.BidStore
	teams   domain.TeamStore
	items   domain.ItemStore
	limiter domain.RateLimiter
	pub     *events.Publisher
	logger  *slog.Logger
}

// NewBidService creates a BidService. limiter may be nil to disable
// throttling.
func NewBidService(
	eng *engine.Engine,
	bids domain.BidStore,
	teams domain.TeamStore,
	items domain.ItemStore,
	limiter domain.RateLimiter,
	pub *events.Publisher,
	logger *slog.Logger,
) *BidService {
	return &BidService{
		engine:  eng,
		bids:    bids,
		teams:   teams,
		items:   items,
		limiter: limiter,
		pub:     pub,
		logger:  logger,
	}
}

// Place records a new bid for the team on the active auction. The ledger
// enforces one bid per team; a second Place returns ErrConflict and the
// caller should switch to Update.
func (s *BidService) Place(ctx context.Context, teamID string, amount decimal.Decimal) (domain.Bid, error) {
	auctionID, team, err := s.admit(ctx, teamID, amount)
	if err != nil {
		return domain.Bid{}, err
	}

	bid := domain.Bid{
		ID:        uuid.New().String(),
		TeamID:    teamID,
		AuctionID: auctionID,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}
	if err := s.bids.Place(ctx, bid); err != nil {
		return domain.Bid{}, fmt.Errorf("bid_service: place: %w", err)
	}

	s.logger.InfoContext(ctx, "bid placed",
		slog.String("team", team.Name),
		slog.String("auction_id", auctionID),
		slog.String("amount", amount.String()),
	)
	s.broadcastLeader(ctx, auctionID)
	return bid, nil
}

// Update overwrites the team's existing bid. The write resets the bid's
// timestamp, so at equal amounts the team drops behind earlier bidders.
func (s *BidService) Update(ctx context.Context, teamID string, amount decimal.Decimal) (domain.Bid, error) {
	auctionID, team, err := s.admit(ctx, teamID, amount)
	if err != nil {
		return domain.Bid{}, err
	}

	bid, err := s.bids.Update(ctx, teamID, auctionID, amount, time.Now().UTC())
	if err != nil {
		return domain.Bid{}, fmt.Errorf("bid_service: update: %w", err)
	}

	s.logger.InfoContext(ctx, "bid updated",
		slog.String("team", team.Name),
		slog.String("auction_id", auctionID),
		slog.String("amount", amount.String()),
	)
	s.broadcastLeader(ctx, auctionID)
	return bid, nil
}

// admit runs the shared submission checks: an active biddable auction, a
// live team, a well-formed amount, and the rate limit.
func (s *BidService) admit(ctx context.Context, teamID string, amount decimal.Decimal) (string, domain.Team, error) {
	if teamID == "" {
		return "", domain.Team{}, fmt.Errorf("bid_service: team id required: %w", domain.ErrValidation)
	}

	auctionID, ok := s.engine.ActiveAuctionID()
	if !ok {
		return "", domain.Team{}, fmt.Errorf("bid_service: no active auction: %w", domain.ErrInvalidState)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "bid:"+teamID, bidRateLimit, bidRateWindow)
		if err != nil {
			return "", domain.Team{}, fmt.Errorf("bid_service: rate limiter: %w", err)
		}
		if !allowed {
			return "", domain.Team{}, fmt.Errorf("bid_service: team %s throttled: %w", teamID, domain.ErrRateLimited)
		}
	}

	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return "", domain.Team{}, fmt.Errorf("bid_service: load team %s: %w", teamID, err)
	}
	if team.IsEliminated {
		return "", domain.Team{}, fmt.Errorf("bid_service: team %s is eliminated: %w", team.Name, domain.ErrValidation)
	}

	if err := s.validateAmount(ctx, team, amount); err != nil {
		return "", domain.Team{}, err
	}
	return auctionID, team, nil
}

// validateAmount enforces the bid bounds: positive, at least the item's base
// price, and within the team's balance.
func (s *BidService) validateAmount(ctx context.Context, team domain.Team, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("bid_service: amount must be positive: %w", domain.ErrValidation)
	}
	if amount.GreaterThan(team.Money) {
		return fmt.Errorf("bid_service: amount %s exceeds balance %s: %w", amount, team.Money, domain.ErrValidation)
	}

	item, err := s.activeItem(ctx)
	if err != nil {
		return err
	}
	if amount.LessThan(item.BasePrice) {
		return fmt.Errorf("bid_service: amount %s below base price %s: %w", amount, item.BasePrice, domain.ErrValidation)
	}
	return nil
}

func (s *BidService) activeItem(ctx context.Context) (domain.Item, error) {
	state, ok := s.engine.Status(ctx)
	if !ok {
		return domain.Item{}, fmt.Errorf("bid_service: no active auction: %w", domain.ErrInvalidState)
	}
	item, err := s.items.GetByID(ctx, state.ItemID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("bid_service: load item %s: %w", state.ItemID, err)
	}
	return item, nil
}

// Highest returns the current leading bid on the active auction.
func (s *BidService) Highest(ctx context.Context) (domain.RankedBid, error) {
	auctionID, ok := s.engine.ActiveAuctionID()
	if !ok {
		return domain.RankedBid{}, fmt.Errorf("bid_service: no active auction: %w", domain.ErrNotFound)
	}
	leader, err := s.bids.Highest(ctx, auctionID)
	if err != nil {
		return domain.RankedBid{}, fmt.Errorf("bid_service: highest: %w", err)
	}
	return leader, nil
}

// Mine returns the team's own bid on the active auction.
func (s *BidService) Mine(ctx context.Context, teamID string) (domain.Bid, error) {
	auctionID, ok := s.engine.ActiveAuctionID()
	if !ok {
		return domain.Bid{}, fmt.Errorf("bid_service: no active auction: %w", domain.ErrNotFound)
	}
	bid, err := s.bids.GetByTeam(ctx, teamID, auctionID)
	if err != nil {
		return domain.Bid{}, fmt.Errorf("bid_service: bid for team %s: %w", teamID, err)
	}
	return bid, nil
}

// broadcastLeader pushes the new leading bid onto the bus. Best effort; a
// bid that persisted is a bid that counts, whether or not anybody hears
// about it.
func (s *BidService) broadcastLeader(ctx context.Context, auctionID string) {
	if s.pub == nil {
		return
	}
	leader, err := s.bids.Highest(ctx, auctionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "leader lookup failed",
				slog.String("auction_id", auctionID),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	s.pub.EmitBidUpdate(ctx, leader)
}

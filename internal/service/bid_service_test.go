package service

import (
	"context"
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
	"github.com/hallbid/auctiond/internal/engine"
)

func newBidService(t *testing.T, db *fakeDB, limiter domain.RateLimiter) (*BidService, string) {
	t.Helper()
	eng, auctionID := startedEngine(t, db)
	svc := NewBidService(eng, (*fakeBids)(db), (*fakeTeams)(db), (*fakeItems)(db), limiter, nil, testLogger())
	return svc, auctionID
}

func TestBidService_Place(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	limiter := &fakeLimiter{allow: true}
	svc, auctionID := newBidService(t, db, limiter)

	bid, err := svc.Place(context.Background(), "team-a", decimal.NewFromInt(2000))
	check.Nil(t, err)
	check.Equal(t, "team-a", bid.TeamID)
	check.Equal(t, auctionID, bid.AuctionID)
	check.Equal(t, "2000", bid.Amount.String())

	stored, err := svc.Mine(context.Background(), "team-a")
	check.Nil(t, err)
	check.Equal(t, bid.ID, stored.ID)

	// Throttling is keyed per team.
	check.Equal(t, []string{"bid:team-a"}, limiter.keys)
}

func TestBidService_PlaceTwiceConflictsThenUpdateWins(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	svc, _ := newBidService(t, db, &fakeLimiter{allow: true})

	first, err := svc.Place(context.Background(), "team-a", decimal.NewFromInt(1000))
	check.Nil(t, err)

	_, err = svc.Place(context.Background(), "team-a", decimal.NewFromInt(1500))
	check.True(t, errors.Is(err, domain.ErrConflict))

	updated, err := svc.Update(context.Background(), "team-a", decimal.NewFromInt(1500))
	check.Nil(t, err)
	check.Equal(t, "1500", updated.Amount.String())
	// An update rewrites the timestamp, dropping tie-break priority.
	check.True(t, updated.Timestamp.After(first.Timestamp))
}

func TestBidService_UpdateWithoutExistingBid(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	svc, _ := newBidService(t, db, &fakeLimiter{allow: true})

	_, err := svc.Update(context.Background(), "team-a", decimal.NewFromInt(1500))
	check.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBidService_NoActiveAuction(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	eng := engine.New(engine.Config{}, db.stores(), nopSink{}, nil, testLogger())
	svc := NewBidService(eng, (*fakeBids)(db), (*fakeTeams)(db), (*fakeItems)(db), nil, nil, testLogger())

	_, err := svc.Place(context.Background(), "team-a", decimal.NewFromInt(2000))
	check.True(t, errors.Is(err, domain.ErrInvalidState))

	_, err = svc.Highest(context.Background())
	check.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.Mine(context.Background(), "team-a")
	check.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBidService_ValidationFailures(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	db.addTeam("team-out", "Out", 5000, true)
	svc, _ := newBidService(t, db, &fakeLimiter{allow: true})
	ctx := context.Background()

	cases := []struct {
		name   string
		teamID string
		amount decimal.Decimal
		want   error
	}{
		{"missing team id", "", decimal.NewFromInt(500), domain.ErrValidation},
		{"unknown team", "team-x", decimal.NewFromInt(500), domain.ErrNotFound},
		{"eliminated team", "team-out", decimal.NewFromInt(500), domain.ErrValidation},
		{"zero amount", "team-a", decimal.Zero, domain.ErrValidation},
		{"negative amount", "team-a", decimal.NewFromInt(-5), domain.ErrValidation},
		{"below base price", "team-a", decimal.NewFromInt(99), domain.ErrValidation},
		{"over balance", "team-a", decimal.NewFromInt(5001), domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Place(ctx, tc.teamID, tc.amount)
			check.True(t, errors.Is(err, tc.want))
		})
	}

	// Boundary values are accepted: exactly the base price, then exactly
	// the full balance.
	_, err := svc.Place(ctx, "team-a", decimal.NewFromInt(100))
	check.Nil(t, err)
	_, err = svc.Update(ctx, "team-a", decimal.NewFromInt(5000))
	check.Nil(t, err)
}

func TestBidService_PhaseRevalidatedAtLedgerWrite(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	db.addTeam("team-b", "Bravo", 8000, false)
	svc, auctionID := newBidService(t, db, &fakeLimiter{allow: true})
	ctx := context.Background()
	auctions := (*fakeAuctions)(db)

	_, err := svc.Place(ctx, "team-a", decimal.NewFromInt(2000))
	check.Nil(t, err)

	// The auction row moves to REVEAL under an in-flight request: the
	// ledger write must fail even though admission already passed.
	check.Nil(t, auctions.SetPhase(ctx, auctionID, domain.PhaseReveal))

	_, err = svc.Place(ctx, "team-b", decimal.NewFromInt(3000))
	check.True(t, errors.Is(err, domain.ErrInvalidState))
	_, err = svc.Update(ctx, "team-a", decimal.NewFromInt(2500))
	check.True(t, errors.Is(err, domain.ErrInvalidState))

	// FINAL is biddable again.
	check.Nil(t, auctions.SetPhase(ctx, auctionID, domain.PhaseFinal))
	_, err = svc.Place(ctx, "team-b", decimal.NewFromInt(3000))
	check.Nil(t, err)
	_, err = svc.Update(ctx, "team-a", decimal.NewFromInt(2500))
	check.Nil(t, err)

	// After CLOSED nothing gets through.
	check.Nil(t, auctions.SetPhase(ctx, auctionID, domain.PhaseClosed))
	_, err = svc.Update(ctx, "team-b", decimal.NewFromInt(4000))
	check.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestBidService_RateLimited(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	svc, _ := newBidService(t, db, &fakeLimiter{allow: false})

	_, err := svc.Place(context.Background(), "team-a", decimal.NewFromInt(2000))
	check.True(t, errors.Is(err, domain.ErrRateLimited))
}

func TestBidService_NilLimiterDisablesThrottle(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	svc, _ := newBidService(t, db, nil)

	_, err := svc.Place(context.Background(), "team-a", decimal.NewFromInt(2000))
	check.Nil(t, err)
}

func TestBidService_Highest(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	db.addTeam("team-b", "Bravo", 8000, false)
	svc, _ := newBidService(t, db, &fakeLimiter{allow: true})
	ctx := context.Background()

	_, err := svc.Highest(ctx)
	check.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.Place(ctx, "team-a", decimal.NewFromInt(2000))
	check.Nil(t, err)
	_, err = svc.Place(ctx, "team-b", decimal.NewFromInt(3000))
	check.Nil(t, err)

	leader, err := svc.Highest(ctx)
	check.Nil(t, err)
	check.Equal(t, "team-b", leader.TeamID)
	check.Equal(t, "Bravo", leader.TeamName)
	check.Equal(t, "3000", leader.Amount.String())
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
)

func newAuctionService(t *testing.T, db *fakeDB) (*AuctionService, string) {
	t.Helper()
	eng, auctionID := startedEngine(t, db)
	svc := NewAuctionService(eng, (*fakeAuctions)(db), (*fakeBids)(db), (*fakeItems)(db), testLogger())
	return svc, auctionID
}

func TestAuctionService_StartRequiresItemID(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	svc, _ := newAuctionService(t, db)

	_, err := svc.Start(context.Background(), "")
	check.True(t, errors.Is(err, domain.ErrValidation))
}

func TestAuctionService_StatusAndTimer(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	svc, auctionID := newAuctionService(t, db)
	ctx := context.Background()

	state, err := svc.Status(ctx)
	check.Nil(t, err)
	check.Equal(t, auctionID, state.AuctionID)
	check.Equal(t, domain.PhaseOpen, state.Phase)

	timer, err := svc.Timer(ctx)
	check.Nil(t, err)
	check.Equal(t, auctionID, timer.AuctionID)
	check.Equal(t, 180, timer.RemainingSeconds)
	check.Equal(t, false, timer.Paused)

	check.Nil(t, svc.Stop(ctx))

	_, err = svc.Status(ctx)
	check.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = svc.Timer(ctx)
	check.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAuctionService_LiveRanksLedger(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	db.addTeam("team-b", "Bravo", 8000, false)
	svc, auctionID := newAuctionService(t, db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bids := (*fakeBids)(db)
	check.Nil(t, bids.Place(ctx, domain.Bid{ID: "b1", TeamID: "team-a", AuctionID: auctionID, Amount: decimal.NewFromInt(2000), Timestamp: base}))
	check.Nil(t, bids.Place(ctx, domain.Bid{ID: "b2", TeamID: "team-b", AuctionID: auctionID, Amount: decimal.NewFromInt(3000), Timestamp: base.Add(time.Second)}))

	live, err := svc.Live(ctx)
	check.Nil(t, err)
	check.Equal(t, auctionID, live.State.AuctionID)
	check.Equal(t, "item-1", live.Item.ID)
	check.Equal(t, 2, len(live.Bids))
	check.Equal(t, "Bravo", live.Bids[0].TeamName)
	check.Equal(t, "3000", live.Bids[0].Amount)
	check.Equal(t, "2026-03-01T12:00:01.000Z", live.Bids[0].PlacedAt)
	check.Equal(t, "Alpha", live.Bids[1].TeamName)
}

func TestAuctionService_ResultMidFlight(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	db.addTeam("team-b", "Bravo", 8000, false)
	svc, auctionID := newAuctionService(t, db)
	ctx := context.Background()

	_, err := svc.Result(ctx, "missing")
	check.True(t, errors.Is(err, domain.ErrNotFound))

	// A running auction with no bids has a nil provisional winner.
	view, err := svc.Result(ctx, auctionID)
	check.Nil(t, err)
	check.Equal(t, false, view.Settled)
	check.Nil(t, view.Winner)
	check.Equal(t, 0, len(view.Bids))

	base := time.Now().UTC()
	bids := (*fakeBids)(db)
	check.Nil(t, bids.Place(ctx, domain.Bid{ID: "b1", TeamID: "team-a", AuctionID: auctionID, Amount: decimal.NewFromInt(2000), Timestamp: base}))
	check.Nil(t, bids.Place(ctx, domain.Bid{ID: "b2", TeamID: "team-b", AuctionID: auctionID, Amount: decimal.NewFromInt(3000), Timestamp: base.Add(time.Second)}))

	// Mid-flight the winner is the current leader, with no penalties.
	view, err = svc.Result(ctx, auctionID)
	check.Nil(t, err)
	check.Equal(t, false, view.Settled)
	check.Equal(t, "team-b", view.Winner.TeamID)
	check.Equal(t, 0, len(view.Losers))
	check.Equal(t, 2, len(view.Bids))
}

func TestAuctionService_ResultAfterSettlement(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	db.addTeam("team-b", "Bravo", 8000, false)
	svc, auctionID := newAuctionService(t, db)
	ctx := context.Background()

	bids := (*fakeBids)(db)
	check.Nil(t, bids.Place(ctx, domain.Bid{ID: "b1", TeamID: "team-a", AuctionID: auctionID, Amount: decimal.NewFromInt(2000), Timestamp: time.Now().UTC()}))

	check.Nil(t, svc.Stop(ctx))

	// Force-stopped: closed without settlement, so the view stays
	// provisional over the frozen ledger.
	view, err := svc.Result(ctx, auctionID)
	check.Nil(t, err)
	check.Equal(t, domain.PhaseClosed, view.Phase)
	check.Equal(t, false, view.Settled)
	check.Equal(t, "team-a", view.Winner.TeamID)

	settled := domain.AuctionResult{
		AuctionID: auctionID,
		ItemID:    "item-1",
		Winner:    &domain.WinnerResult{TeamID: "team-b", TeamName: "Bravo", Amount: decimal.NewFromInt(3000)},
		Losers: []domain.LoserPenalty{
			{TeamID: "team-a", TeamName: "Alpha", Penalty: decimal.NewFromInt(500)},
		},
	}
	check.Nil(t, (*fakeAuctions)(db).SetResult(ctx, auctionID, settled))

	view, err = svc.Result(ctx, auctionID)
	check.Nil(t, err)
	check.True(t, view.Settled)
	check.Equal(t, "team-b", view.Winner.TeamID)
	check.Equal(t, "3000", view.Winner.Amount.String())
	check.Equal(t, 1, len(view.Losers))
	check.Equal(t, "500", view.Losers[0].Penalty.String())
}

func TestAuctionService_RestartKeepsHistory(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	svc, oldID := newAuctionService(t, db)
	ctx := context.Background()

	bids := (*fakeBids)(db)
	check.Nil(t, bids.Place(ctx, domain.Bid{ID: "b1", TeamID: "team-a", AuctionID: oldID, Amount: decimal.NewFromInt(2000), Timestamp: time.Now().UTC()}))

	fresh, err := svc.Restart(ctx, "item-1")
	check.Nil(t, err)
	check.NotEqual(t, oldID, fresh.AuctionID)
	check.Equal(t, domain.PhaseOpen, fresh.Phase)
	check.Equal(t, "item-1", fresh.ItemID)

	// The aborted run is closed and its ledger survives as history.
	old, err := (*fakeAuctions)(db).GetByID(ctx, oldID)
	check.Nil(t, err)
	check.Equal(t, domain.PhaseClosed, old.Phase)

	history, err := svc.History(ctx, oldID)
	check.Nil(t, err)
	check.Equal(t, 1, len(history))
	check.Equal(t, "Alpha", history[0].TeamName)

	// The fresh run starts with an empty ledger.
	history, err = svc.History(ctx, fresh.AuctionID)
	check.Nil(t, err)
	check.Equal(t, 0, len(history))
}

func TestAuctionService_RestartSoldItemWithoutActiveAuction(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	svc, _ := newAuctionService(t, db)
	ctx := context.Background()

	check.Nil(t, svc.Stop(ctx))
	items := (*fakeItems)(db)
	check.Nil(t, items.SetStatus(ctx, "item-1", domain.ItemStatusSold))

	// A sold item can be rerun: it is reset to PENDING and a fresh
	// auction starts, with no active auction required beforehand.
	fresh, err := svc.Restart(ctx, "item-1")
	check.Nil(t, err)
	check.Equal(t, domain.PhaseOpen, fresh.Phase)
	check.Equal(t, "item-1", fresh.ItemID)

	item, err := items.GetByID(ctx, "item-1")
	check.Nil(t, err)
	check.Equal(t, domain.ItemStatusActive, item.Status)
}

func TestAuctionService_RestartValidatesItem(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	svc, _ := newAuctionService(t, db)
	ctx := context.Background()

	_, err := svc.Restart(ctx, "")
	check.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.Restart(ctx, "missing")
	check.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAuctionService_HistoryUnknownAuction(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	svc, _ := newAuctionService(t, db)

	_, err := svc.History(context.Background(), "missing")
	check.True(t, errors.Is(err, domain.ErrNotFound))
}

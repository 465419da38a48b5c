package service

import (
	"context"
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
)

func newTeamService(db *fakeDB, bids *BidService) *TeamService {
	return NewTeamService((*fakeTeams)(db), bids, testLogger())
}

func TestTeamService_CreateDefaultsBalance(t *testing.T) {
	db := newFakeDB()
	svc := newTeamService(db, nil)

	team, err := svc.Create(context.Background(), "  Alpha  ", decimal.Zero)
	check.Nil(t, err)
	check.Equal(t, "Alpha", team.Name)
	check.Equal(t, "10000", team.Money.String())
	check.Equal(t, false, team.IsEliminated)
}

func TestTeamService_CreateValidation(t *testing.T) {
	db := newFakeDB()
	svc := newTeamService(db, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "   ", decimal.Zero)
	check.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.Create(ctx, "Alpha", decimal.NewFromInt(-1))
	check.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.Create(ctx, "Alpha", decimal.NewFromInt(500))
	check.Nil(t, err)

	// Duplicate name.
	_, err = svc.Create(ctx, "Alpha", decimal.NewFromInt(500))
	check.True(t, errors.Is(err, domain.ErrConflict))
}

func TestTeamService_SetMoney(t *testing.T) {
	db := newFakeDB()
	db.addTeam("team-a", "Alpha", 5000, false)
	svc := newTeamService(db, nil)
	ctx := context.Background()

	team, err := svc.SetMoney(ctx, "team-a", decimal.NewFromInt(7500))
	check.Nil(t, err)
	check.Equal(t, "7500", team.Money.String())

	_, err = svc.SetMoney(ctx, "team-a", decimal.NewFromInt(-1))
	check.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.SetMoney(ctx, "missing", decimal.NewFromInt(100))
	check.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestTeamService_SetEliminated(t *testing.T) {
	db := newFakeDB()
	db.addTeam("team-a", "Alpha", 5000, false)
	svc := newTeamService(db, nil)
	ctx := context.Background()

	team, err := svc.SetEliminated(ctx, "team-a", true)
	check.Nil(t, err)
	check.True(t, team.IsEliminated)

	team, err = svc.SetEliminated(ctx, "team-a", false)
	check.Nil(t, err)
	check.Equal(t, false, team.IsEliminated)
}

func TestTeamService_Delete(t *testing.T) {
	db := newFakeDB()
	db.addTeam("team-a", "Alpha", 5000, false)
	svc := newTeamService(db, nil)
	ctx := context.Background()

	check.Nil(t, svc.Delete(ctx, "team-a"))

	_, err := svc.Get(ctx, "team-a")
	check.True(t, errors.Is(err, domain.ErrNotFound))

	err = svc.Delete(ctx, "team-a")
	check.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestTeamService_PlaceBidForFallsBackToUpdate(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	bids, _ := newBidService(t, db, &fakeLimiter{allow: true})
	svc := newTeamService(db, bids)
	ctx := context.Background()

	bid, err := svc.PlaceBidFor(ctx, "team-a", decimal.NewFromInt(1000))
	check.Nil(t, err)
	check.Equal(t, "1000", bid.Amount.String())

	// Second submission hits the one-bid-per-team constraint and is
	// routed through Update instead.
	bid, err = svc.PlaceBidFor(ctx, "team-a", decimal.NewFromInt(1800))
	check.Nil(t, err)
	check.Equal(t, "1800", bid.Amount.String())

	stored, err := bids.Mine(ctx, "team-a")
	check.Nil(t, err)
	check.Equal(t, "1800", stored.Amount.String())
}

func TestTeamService_PlaceBidForWithoutBidService(t *testing.T) {
	db := newFakeDB()
	svc := newTeamService(db, nil)

	_, err := svc.PlaceBidFor(context.Background(), "team-a", decimal.NewFromInt(1000))
	check.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestTeamService_PlaceBidForKeepsValidationErrors(t *testing.T) {
	db := newFakeDB()
	db.addItem("item-1", 100)
	db.addTeam("team-a", "Alpha", 5000, false)
	bids, _ := newBidService(t, db, &fakeLimiter{allow: true})
	svc := newTeamService(db, bids)

	_, err := svc.PlaceBidFor(context.Background(), "team-a", decimal.NewFromInt(50))
	check.True(t, errors.Is(err, domain.ErrValidation))
}

package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
	"github.com/hallbid/auctiond/internal/engine"
)

// In-memory store fakes. Everything locks one mutex because the engine's
// countdown goroutine may touch the stores while a test is asserting.

type fakeDB struct {
	mu       sync.Mutex
	auctions map[string]domain.Auction
	results  map[string]domain.AuctionResult
	teams    map[string]domain.Team
	items    map[string]domain.Item
	bids     []domain.Bid
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		auctions: make(map[string]domain.Auction),
		results:  make(map[string]domain.AuctionResult),
		teams:    make(map[string]domain.Team),
		items:    make(map[string]domain.Item),
	}
}

func (db *fakeDB) stores() engine.Stores {
	return engine.Stores{
		Auctions: (*fakeAuctions)(db),
		Bids:     (*fakeBids)(db),
		Teams:    (*fakeTeams)(db),
		Items:    (*fakeItems)(db),
	}
}

func (db *fakeDB) addTeam(id, name string, money int64, eliminated bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.teams[id] = domain.Team{
		ID:           id,
		Name:         name,
		Money:        decimal.NewFromInt(money),
		IsEliminated: eliminated,
	}
}

func (db *fakeDB) addItem(id string, basePrice int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.items[id] = domain.Item{
		ID:        id,
		Title:     id,
		BasePrice: decimal.NewFromInt(basePrice),
		Status:    domain.ItemStatusPending,
	}
}

type fakeAuctions fakeDB

func (db *fakeAuctions) Create(_ context.Context, a domain.Auction) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.auctions[a.ID] = a
	return nil
}

func (db *fakeAuctions) GetByID(_ context.Context, id string) (domain.Auction, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.auctions[id]
	if !ok {
		return domain.Auction{}, domain.ErrNotFound
	}
	return a, nil
}

func (db *fakeAuctions) FindActive(_ context.Context) (domain.Auction, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, a := range db.auctions {
		if a.Phase.Active() {
			return a, nil
		}
	}
	return domain.Auction{}, domain.ErrNotFound
}

func (db *fakeAuctions) SetPhase(_ context.Context, id string, phase domain.Phase) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.auctions[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Phase = phase
	db.auctions[id] = a
	return nil
}

func (db *fakeAuctions) SetFinalEnd(_ context.Context, id string, end time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.auctions[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.FinalEndTime = &end
	db.auctions[id] = a
	return nil
}

func (db *fakeAuctions) SetResult(_ context.Context, id string, result domain.AuctionResult) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.results[id] = result
	return nil
}

func (db *fakeAuctions) GetResult(_ context.Context, id string) (domain.AuctionResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.results[id]
	if !ok {
		return domain.AuctionResult{}, domain.ErrNotFound
	}
	return r, nil
}

type fakeBids fakeDB

// biddableLocked mirrors the store-level phase revalidation: the ledger
// rejects writes once the auction row leaves OPEN or FINAL, whatever the
// engine believed when the request was admitted. Caller holds db.mu.
func (db *fakeBids) biddableLocked(auctionID string) error {
	a, ok := db.auctions[auctionID]
	if !ok {
		return domain.ErrNotFound
	}
	if !a.Phase.Biddable() {
		return domain.ErrInvalidState
	}
	return nil
}

func (db *fakeBids) Place(_ context.Context, b domain.Bid) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.biddableLocked(b.AuctionID); err != nil {
		return err
	}
	for _, existing := range db.bids {
		if existing.TeamID == b.TeamID && existing.AuctionID == b.AuctionID {
			return domain.ErrConflict
		}
	}
	db.bids = append(db.bids, b)
	return nil
}

func (db *fakeBids) Update(_ context.Context, teamID, auctionID string, amount decimal.Decimal, ts time.Time) (domain.Bid, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.biddableLocked(auctionID); err != nil {
		return domain.Bid{}, err
	}
	for i, b := range db.bids {
		if b.TeamID == teamID && b.AuctionID == auctionID {
			b.Amount = amount
			b.Timestamp = ts
			db.bids[i] = b
			return b, nil
		}
	}
	return domain.Bid{}, domain.ErrNotFound
}

func (db *fakeBids) GetByTeam(_ context.Context, teamID, auctionID string) (domain.Bid, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, b := range db.bids {
		if b.TeamID == teamID && b.AuctionID == auctionID {
			return b, nil
		}
	}
	return domain.Bid{}, domain.ErrNotFound
}

func (db *fakeBids) ListRanked(_ context.Context, auctionID string) ([]domain.RankedBid, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var ranked []domain.RankedBid
	for _, b := range db.bids {
		if b.AuctionID != auctionID {
			continue
		}
		team := db.teams[b.TeamID]
		ranked = append(ranked, domain.RankedBid{Bid: b, TeamName: team.Name, TeamMoney: team.Money})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if c := ranked[i].Amount.Cmp(ranked[j].Amount); c != 0 {
			return c > 0
		}
		return ranked[i].Timestamp.Before(ranked[j].Timestamp)
	})
	return ranked, nil
}

func (db *fakeBids) Highest(ctx context.Context, auctionID string) (domain.RankedBid, error) {
	ranked, err := db.ListRanked(ctx, auctionID)
	if err != nil {
		return domain.RankedBid{}, err
	}
	if len(ranked) == 0 {
		return domain.RankedBid{}, domain.ErrNotFound
	}
	return ranked[0], nil
}

type fakeTeams fakeDB

func (db *fakeTeams) Create(_ context.Context, t domain.Team) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, existing := range db.teams {
		if existing.Name == t.Name {
			return domain.ErrConflict
		}
	}
	db.teams[t.ID] = t
	return nil
}

func (db *fakeTeams) GetByID(_ context.Context, id string) (domain.Team, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.teams[id]
	if !ok {
		return domain.Team{}, domain.ErrNotFound
	}
	return t, nil
}

func (db *fakeTeams) List(_ context.Context) ([]domain.Team, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	teams := make([]domain.Team, 0, len(db.teams))
	for _, t := range db.teams {
		teams = append(teams, t)
	}
	return teams, nil
}

func (db *fakeTeams) SetMoney(_ context.Context, id string, money decimal.Decimal) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.teams[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Money = money
	db.teams[id] = t
	return nil
}

func (db *fakeTeams) Debit(_ context.Context, id string, amount decimal.Decimal) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.teams[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Money = t.Money.Sub(amount)
	db.teams[id] = t
	return nil
}

func (db *fakeTeams) SetEliminated(_ context.Context, id string, eliminated bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.teams[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.IsEliminated = eliminated
	db.teams[id] = t
	return nil
}

func (db *fakeTeams) Delete(_ context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.teams[id]; !ok {
		return domain.ErrNotFound
	}
	delete(db.teams, id)
	return nil
}

type fakeItems fakeDB

func (db *fakeItems) Create(_ context.Context, it domain.Item) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.items[it.ID] = it
	return nil
}

func (db *fakeItems) GetByID(_ context.Context, id string) (domain.Item, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	it, ok := db.items[id]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	return it, nil
}

func (db *fakeItems) List(_ context.Context) ([]domain.Item, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	items := make([]domain.Item, 0, len(db.items))
	for _, it := range db.items {
		items = append(items, it)
	}
	return items, nil
}

func (db *fakeItems) Update(_ context.Context, it domain.Item) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.items[it.ID]; !ok {
		return domain.ErrNotFound
	}
	db.items[it.ID] = it
	return nil
}

func (db *fakeItems) SetStatus(_ context.Context, id string, status domain.ItemStatus) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	it, ok := db.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	it.Status = status
	db.items[id] = it
	return nil
}

func (db *fakeItems) Delete(_ context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(db.items, id)
	return nil
}

// fakeLimiter allows or denies every call and records the keys it saw.
type fakeLimiter struct {
	mu    sync.Mutex
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

type nopSink struct{}

func (nopSink) EmitTick(context.Context, domain.AuctionState)        {}
func (nopSink) EmitPhaseChange(context.Context, domain.AuctionState) {}
func (nopSink) EmitResult(context.Context, domain.AuctionResult)     {}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startedEngine returns an engine with an auction running in OPEN for
// item-1. The tick interval is long enough that no phase moves during a
// test.
func startedEngine(t *testing.T, db *fakeDB) (*engine.Engine, string) {
	t.Helper()
	eng := engine.New(
		engine.Config{OpenSeconds: 180, FinalSeconds: 60, TickInterval: time.Hour},
		db.stores(),
		nopSink{},
		nil,
		testLogger(),
	)
	state, err := eng.Start(context.Background(), "item-1")
	if err != nil {
		t.Fatalf("start auction: %v", err)
	}
	return eng, state.AuctionID
}

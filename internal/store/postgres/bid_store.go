package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
)

// BidStore implements domain.BidStore using PostgreSQL. Writes run inside a
// transaction that re-reads the auction phase with FOR SHARE, so a bid can
// never land after the phase has moved past FINAL.
type BidStore struct {
	pool *pgxpool.Pool
}

// NewBidStore creates a BidStore backed by the given pool.
func NewBidStore(pool *pgxpool.Pool) *BidStore {
	return &BidStore{pool: pool}
}

func scanBid(scanner interface{ Scan(dest ...any) error }) (domain.Bid, error) {
	var b domain.Bid
	var amount string
	err := scanner.Scan(&b.ID, &b.TeamID, &b.AuctionID, &amount, &b.Timestamp)
	if err != nil {
		return domain.Bid{}, err
	}
	b.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.Bid{}, fmt.Errorf("parse amount: %w", err)
	}
	return b, nil
}

// lockBiddablePhase re-reads the auction's phase inside tx. FOR SHARE blocks
// a concurrent phase UPDATE from committing underneath the bid write.
func lockBiddablePhase(ctx context.Context, tx pgx.Tx, auctionID string) error {
	var phase string
	err := tx.QueryRow(ctx,
		`SELECT phase FROM auctions WHERE id = $1 FOR SHARE`, auctionID).Scan(&phase)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if !domain.Phase(phase).Biddable() {
		return domain.ErrInvalidState
	}
	return nil
}

// Place inserts a new bid for the team.
func (s *BidStore) Place(ctx context.Context, b domain.Bid) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin place bid: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockBiddablePhase(ctx, tx, b.AuctionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidState) {
			return err
		}
		return fmt.Errorf("postgres: place bid phase check: %w", err)
	}

	const query = `
		INSERT INTO bids (id, team_id, auction_id, amount, placed_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = tx.Exec(ctx, query, b.ID, b.TeamID, b.AuctionID, b.Amount.String(), b.Timestamp)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("postgres: place bid for team %s: %w", b.TeamID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit place bid: %w", err)
	}
	return nil
}

// Update overwrites the team's existing bid amount and timestamp.
func (s *BidStore) Update(ctx context.Context, teamID, auctionID string, amount decimal.Decimal, ts time.Time) (domain.Bid, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Bid{}, fmt.Errorf("postgres: begin update bid: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockBiddablePhase(ctx, tx, auctionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidState) {
			return domain.Bid{}, err
		}
		return domain.Bid{}, fmt.Errorf("postgres: update bid phase check: %w", err)
	}

	const query = `
		UPDATE bids SET amount = $1, placed_at = $2
		WHERE team_id = $3 AND auction_id = $4
		RETURNING id, team_id, auction_id, amount::text, placed_at`

	row := tx.QueryRow(ctx, query, amount.String(), ts, teamID, auctionID)
	b, err := scanBid(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bid{}, domain.ErrNotFound
		}
		return domain.Bid{}, fmt.Errorf("postgres: update bid for team %s: %w", teamID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Bid{}, fmt.Errorf("postgres: commit update bid: %w", err)
	}
	return b, nil
}

// GetByTeam returns the team's bid for an auction.
func (s *BidStore) GetByTeam(ctx context.Context, teamID, auctionID string) (domain.Bid, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, team_id, auction_id, amount::text, placed_at
		 FROM bids WHERE team_id = $1 AND auction_id = $2`, teamID, auctionID)

	b, err := scanBid(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bid{}, domain.ErrNotFound
		}
		return domain.Bid{}, fmt.Errorf("postgres: get bid for team %s: %w", teamID, err)
	}
	return b, nil
}

const rankedBidQuery = `
	SELECT b.id, b.team_id, b.auction_id, b.amount::text, b.placed_at,
	       t.name, t.money::text
	FROM bids b
	JOIN teams t ON t.id = b.team_id
	WHERE b.auction_id = $1
	ORDER BY b.amount DESC, b.placed_at ASC`

func scanRankedBid(scanner interface{ Scan(dest ...any) error }) (domain.RankedBid, error) {
	var rb domain.RankedBid
	var amount, money string
	err := scanner.Scan(
		&rb.ID, &rb.TeamID, &rb.AuctionID, &amount, &rb.Timestamp,
		&rb.TeamName, &money,
	)
	if err != nil {
		return domain.RankedBid{}, err
	}
	if rb.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.RankedBid{}, fmt.Errorf("parse amount: %w", err)
	}
	if rb.TeamMoney, err = decimal.NewFromString(money); err != nil {
		return domain.RankedBid{}, fmt.Errorf("parse money: %w", err)
	}
	return rb, nil
}

// ListRanked returns every bid for the auction joined with its team, in
// resolution order.
func (s *BidStore) ListRanked(ctx context.Context, auctionID string) ([]domain.RankedBid, error) {
	rows, err := s.pool.Query(ctx, rankedBidQuery, auctionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ranked bids for %s: %w", auctionID, err)
	}
	defer rows.Close()

	bids := make([]domain.RankedBid, 0)
	for rows.Next() {
		rb, err := scanRankedBid(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan ranked bid: %w", err)
		}
		bids = append(bids, rb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate ranked bids: %w", err)
	}
	return bids, nil
}

// Highest returns the current leading bid.
func (s *BidStore) Highest(ctx context.Context, auctionID string) (domain.RankedBid, error) {
	row := s.pool.QueryRow(ctx, rankedBidQuery+` LIMIT 1`, auctionID)

	rb, err := scanRankedBid(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RankedBid{}, domain.ErrNotFound
		}
		return domain.RankedBid{}, fmt.Errorf("postgres: highest bid for %s: %w", auctionID, err)
	}
	return rb, nil
}

var _ domain.BidStore = (*BidStore)(nil)

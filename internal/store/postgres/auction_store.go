package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hallbid/auctiond/internal/domain"
)

// AuctionStore implements domain.AuctionStore using PostgreSQL.
type AuctionStore struct {
	pool *pgxpool.Pool
}

// NewAuctionStore creates an AuctionStore backed by the given pool.
func NewAuctionStore(pool *pgxpool.Pool) *AuctionStore {
	return &AuctionStore{pool: pool}
}

const auctionSelectCols = `id, item_id, phase, start_time, end_time, final_end_time, created_at`

func scanAuction(scanner interface{ Scan(dest ...any) error }) (domain.Auction, error) {
	var a domain.Auction
	var phase string
	err := scanner.Scan(
		&a.ID, &a.ItemID, &phase,
		&a.StartTime, &a.EndTime, &a.FinalEndTime, &a.CreatedAt,
	)
	if err != nil {
		return domain.Auction{}, err
	}
	a.Phase = domain.Phase(phase)
	return a, nil
}

// Create inserts a new auction row.
func (s *AuctionStore) Create(ctx context.Context, a domain.Auction) error {
	const query = `
		INSERT INTO auctions (id, item_id, phase, start_time, end_time, final_end_time)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.ItemID, string(a.Phase), a.StartTime, a.EndTime, a.FinalEndTime,
	)
	if err != nil {
		return fmt.Errorf("postgres: create auction %s: %w", a.ID, err)
	}
	return nil
}

// GetByID retrieves a single auction.
func (s *AuctionStore) GetByID(ctx context.Context, id string) (domain.Auction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+auctionSelectCols+` FROM auctions WHERE id = $1`, id)

	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Auction{}, domain.ErrNotFound
		}
		return domain.Auction{}, fmt.Errorf("postgres: get auction %s: %w", id, err)
	}
	return a, nil
}

// FindActive returns the single non-CLOSED auction, or ErrNotFound.
func (s *AuctionStore) FindActive(ctx context.Context) (domain.Auction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+auctionSelectCols+` FROM auctions
		 WHERE phase IN ('OPEN', 'REVEAL', 'FINAL')
		 ORDER BY start_time DESC
		 LIMIT 1`)

	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Auction{}, domain.ErrNotFound
		}
		return domain.Auction{}, fmt.Errorf("postgres: find active auction: %w", err)
	}
	return a, nil
}

// SetPhase updates the auction's phase.
func (s *AuctionStore) SetPhase(ctx context.Context, id string, phase domain.Phase) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE auctions SET phase = $1 WHERE id = $2`, string(phase), id)
	if err != nil {
		return fmt.Errorf("postgres: set auction %s phase %s: %w", id, phase, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetFinalEnd records the FINAL countdown's wall-clock end time.
func (s *AuctionStore) SetFinalEnd(ctx context.Context, id string, end time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE auctions SET final_end_time = $1 WHERE id = $2`, end, id)
	if err != nil {
		return fmt.Errorf("postgres: set auction %s final end: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetResult persists the settlement outcome as JSONB.
func (s *AuctionStore) SetResult(ctx context.Context, id string, result domain.AuctionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("postgres: marshal result for auction %s: %w", id, err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE auctions SET result = $1 WHERE id = $2`, data, id)
	if err != nil {
		return fmt.Errorf("postgres: set auction %s result: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetResult returns the persisted settlement outcome. An auction that exists
// but was never settled also reports ErrNotFound.
func (s *AuctionStore) GetResult(ctx context.Context, id string) (domain.AuctionResult, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM auctions WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AuctionResult{}, domain.ErrNotFound
		}
		return domain.AuctionResult{}, fmt.Errorf("postgres: get auction %s result: %w", id, err)
	}
	if len(data) == 0 {
		return domain.AuctionResult{}, domain.ErrNotFound
	}

	var result domain.AuctionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.AuctionResult{}, fmt.Errorf("postgres: unmarshal auction %s result: %w", id, err)
	}
	return result, nil
}

// Compile-time interface check.
var _ domain.AuctionStore = (*AuctionStore)(nil)

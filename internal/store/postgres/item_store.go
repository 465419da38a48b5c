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

// ItemStore implements domain.ItemStore using PostgreSQL.
type ItemStore struct {
	pool *pgxpool.Pool
}

// NewItemStore creates an ItemStore backed by the given pool.
func NewItemStore(pool *pgxpool.Pool) *ItemStore {
	return &ItemStore{pool: pool}
}

const itemSelectCols = `id, title, description, base_price::text, status, created_at, updated_at`

func scanItem(scanner interface{ Scan(dest ...any) error }) (domain.Item, error) {
	var it domain.Item
	var price, status string
	err := scanner.Scan(
		&it.ID, &it.Title, &it.Description, &price, &status,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return domain.Item{}, err
	}
	it.BasePrice, err = decimal.NewFromString(price)
	if err != nil {
		return domain.Item{}, fmt.Errorf("parse base price: %w", err)
	}
	it.Status = domain.ItemStatus(status)
	return it, nil
}

// Create inserts a new item.
func (s *ItemStore) Create(ctx context.Context, it domain.Item) error {
	const query = `
		INSERT INTO items (id, title, description, base_price, status)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		it.ID, it.Title, it.Description, it.BasePrice.String(), string(it.Status))
	if err != nil {
		return fmt.Errorf("postgres: create item %s: %w", it.ID, err)
	}
	return nil
}

// GetByID retrieves a single item.
func (s *ItemStore) GetByID(ctx context.Context, id string) (domain.Item, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+itemSelectCols+` FROM items WHERE id = $1`, id)

	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, domain.ErrNotFound
		}
		return domain.Item{}, fmt.Errorf("postgres: get item %s: %w", id, err)
	}
	return it, nil
}

// List returns all items ordered by creation time.
func (s *ItemStore) List(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+itemSelectCols+` FROM items ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate items: %w", err)
	}
	return items, nil
}

// Update overwrites the item's mutable fields.
func (s *ItemStore) Update(ctx context.Context, it domain.Item) error {
	const query = `
		UPDATE items
		SET title = $1, description = $2, base_price = $3, status = $4, updated_at = $5
		WHERE id = $6`

	tag, err := s.pool.Exec(ctx, query,
		it.Title, it.Description, it.BasePrice.String(), string(it.Status),
		time.Now().UTC(), it.ID)
	if err != nil {
		return fmt.Errorf("postgres: update item %s: %w", it.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetStatus updates only the item's lifecycle status.
func (s *ItemStore) SetStatus(ctx context.Context, id string, status domain.ItemStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE items SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: set item %s status %s: %w", id, status, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the item.
func (s *ItemStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete item %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.ItemStore = (*ItemStore)(nil)

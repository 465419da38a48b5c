package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
)

// TeamStore implements domain.TeamStore using PostgreSQL.
type TeamStore struct {
	pool *pgxpool.Pool
}

// NewTeamStore creates a TeamStore backed by the given pool.
func NewTeamStore(pool *pgxpool.Pool) *TeamStore {
	return &TeamStore{pool: pool}
}

const teamSelectCols = `id, name, money::text, is_eliminated, created_at`

func scanTeam(scanner interface{ Scan(dest ...any) error }) (domain.Team, error) {
	var t domain.Team
	var money string
	err := scanner.Scan(&t.ID, &t.Name, &money, &t.IsEliminated, &t.CreatedAt)
	if err != nil {
		return domain.Team{}, err
	}
	t.Money, err = decimal.NewFromString(money)
	if err != nil {
		return domain.Team{}, fmt.Errorf("parse money: %w", err)
	}
	return t, nil
}

// Create inserts a new team. Names are unique.
func (s *TeamStore) Create(ctx context.Context, t domain.Team) error {
	const query = `
		INSERT INTO teams (id, name, money, is_eliminated)
		VALUES ($1, $2, $3, $4)`

	_, err := s.pool.Exec(ctx, query, t.ID, t.Name, t.Money.String(), t.IsEliminated)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("postgres: create team %s: %w", t.Name, err)
	}
	return nil
}

// GetByID retrieves a single team.
func (s *TeamStore) GetByID(ctx context.Context, id string) (domain.Team, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+teamSelectCols+` FROM teams WHERE id = $1`, id)

	t, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Team{}, domain.ErrNotFound
		}
		return domain.Team{}, fmt.Errorf("postgres: get team %s: %w", id, err)
	}
	return t, nil
}

// List returns all teams ordered by creation time.
func (s *TeamStore) List(ctx context.Context) ([]domain.Team, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+teamSelectCols+` FROM teams ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate teams: %w", err)
	}
	return teams, nil
}

// SetMoney overwrites the team's balance.
func (s *TeamStore) SetMoney(ctx context.Context, id string, money decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE teams SET money = $1 WHERE id = $2`, money.String(), id)
	if err != nil {
		return fmt.Errorf("postgres: set team %s money: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Debit atomically decrements the team's balance.
func (s *TeamStore) Debit(ctx context.Context, id string, amount decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE teams SET money = money - $1 WHERE id = $2`, amount.String(), id)
	if err != nil {
		return fmt.Errorf("postgres: debit team %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetEliminated flips the team's elimination flag.
func (s *TeamStore) SetEliminated(ctx context.Context, id string, eliminated bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE teams SET is_eliminated = $1 WHERE id = $2`, eliminated, id)
	if err != nil {
		return fmt.Errorf("postgres: set team %s eliminated: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the team. Its bids cascade.
func (s *TeamStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete team %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.TeamStore = (*TeamStore)(nil)

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
)

// DefaultTeamMoney is the starting balance for a new team when none is given.
var DefaultTeamMoney = decimal.NewFromInt(10000)

// TeamService manages the team roster and balances. All of its mutating
// operations are administrative.
type TeamService struct {
	teams  domain.TeamStore
	bids   *BidService
	logger *slog.Logger
}

// NewTeamService creates a TeamService. bids may be nil when the bid-on-
// behalf operation is not needed.
func NewTeamService(teams domain.TeamStore, bids *BidService, logger *slog.Logger) *TeamService {
	return &TeamService{teams: teams, bids: bids, logger: logger}
}

// Create registers a new team. A zero money value gets the default starting
// balance.
func (s *TeamService) Create(ctx context.Context, name string, money decimal.Decimal) (domain.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Team{}, fmt.Errorf("team_service: name required: %w", domain.ErrValidation)
	}
	if money.IsNegative() {
		return domain.Team{}, fmt.Errorf("team_service: negative balance: %w", domain.ErrValidation)
	}
	if money.IsZero() {
		money = DefaultTeamMoney
	}

	team := domain.Team{
		ID:        uuid.New().String(),
		Name:      name,
		Money:     money,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return domain.Team{}, fmt.Errorf("team_service: create %q: %w", name, err)
	}

	s.logger.InfoContext(ctx, "team created",
		slog.String("team_id", team.ID),
		slog.String("name", name),
		slog.String("money", money.String()),
	)
	return team, nil
}

// Get returns a single team.
func (s *TeamService) Get(ctx context.Context, id string) (domain.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return domain.Team{}, fmt.Errorf("team_service: get %s: %w", id, err)
	}
	return team, nil
}

// List returns all teams.
func (s *TeamService) List(ctx context.Context) ([]domain.Team, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("team_service: list: %w", err)
	}
	return teams, nil
}

// SetMoney overwrites a team's balance.
func (s *TeamService) SetMoney(ctx context.Context, id string, money decimal.Decimal) (domain.Team, error) {
	if money.IsNegative() {
		return domain.Team{}, fmt.Errorf("team_service: negative balance: %w", domain.ErrValidation)
	}
	if err := s.teams.SetMoney(ctx, id, money); err != nil {
		return domain.Team{}, fmt.Errorf("team_service: set money %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "team balance set",
		slog.String("team_id", id),
		slog.String("money", money.String()),
	)
	return s.Get(ctx, id)
}

// SetEliminated flips a team's elimination flag. Used to pull a team out of
// play or to reinstate one after a manual correction.
func (s *TeamService) SetEliminated(ctx context.Context, id string, eliminated bool) (domain.Team, error) {
	if err := s.teams.SetEliminated(ctx, id, eliminated); err != nil {
		return domain.Team{}, fmt.Errorf("team_service: set eliminated %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "team elimination changed",
		slog.String("team_id", id),
		slog.Bool("eliminated", eliminated),
	)
	return s.Get(ctx, id)
}

// Delete removes a team and, via cascade, its bids.
func (s *TeamService) Delete(ctx context.Context, id string) error {
	if err := s.teams.Delete(ctx, id); err != nil {
		return fmt.Errorf("team_service: delete %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "team deleted", slog.String("team_id", id))
	return nil
}

// PlaceBidFor submits or overwrites a bid on a team's behalf. The bid runs
// through the normal submission checks, rate limit included.
func (s *TeamService) PlaceBidFor(ctx context.Context, teamID string, amount decimal.Decimal) (domain.Bid, error) {
	if s.bids == nil {
		return domain.Bid{}, fmt.Errorf("team_service: bidding not wired: %w", domain.ErrInvalidState)
	}

	bid, err := s.bids.Place(ctx, teamID, amount)
	if err == nil {
		return bid, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return domain.Bid{}, err
	}
	return s.bids.Update(ctx, teamID, amount)
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
)

// TeamService defines the methods the team handler requires from the service
// layer.
type TeamService interface {
	Create(ctx context.Context, name string, money decimal.Decimal) (domain.Team, error)
	Get(ctx context.Context, id string) (domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
	SetMoney(ctx context.Context, id string, money decimal.Decimal) (domain.Team, error)
	SetEliminated(ctx context.Context, id string, eliminated bool) (domain.Team, error)
	Delete(ctx context.Context, id string) error
	PlaceBidFor(ctx context.Context, teamID string, amount decimal.Decimal) (domain.Bid, error)
}

// TeamHandler serves the team administration endpoints.
type TeamHandler struct {
	teams  TeamService
	logger *slog.Logger
}

// NewTeamHandler creates a TeamHandler.
func NewTeamHandler(teams TeamService, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{teams: teams, logger: logger}
}

type createTeamRequest struct {
	Name  string          `json:"name"`
	Money decimal.Decimal `json:"money"`
}

// Create registers a new team.
// POST /api/teams
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	team, err := h.teams.Create(r.Context(), req.Name, req.Money)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to create team")
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

// List returns all teams.
// GET /api/teams
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.List(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to list teams")
		return
	}
	if teams == nil {
		teams = []domain.Team{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

// Get returns a single team.
// GET /api/teams/{id}
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	team, err := h.teams.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to read team")
		return
	}
	writeJSON(w, http.StatusOK, team)
}

type setMoneyRequest struct {
	Money decimal.Decimal `json:"money"`
}

// SetMoney overwrites a team's balance.
// PUT /api/teams/{id}/money
func (h *TeamHandler) SetMoney(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req setMoneyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	team, err := h.teams.SetMoney(r.Context(), id, req.Money)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to set team balance")
		return
	}
	writeJSON(w, http.StatusOK, team)
}

type setEliminatedRequest struct {
	Eliminated bool `json:"eliminated"`
}

// SetEliminated flips a team's elimination flag.
// PUT /api/teams/{id}/eliminate
func (h *TeamHandler) SetEliminated(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req setEliminatedRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	team, err := h.teams.SetEliminated(r.Context(), id, req.Eliminated)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to set team elimination")
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// Delete removes a team.
// DELETE /api/teams/{id}
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := h.teams.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, h.logger, err, "failed to delete team")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "team_id": id})
}

type bidForRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PlaceBidFor submits or overwrites a bid on a team's behalf.
// POST /api/teams/{id}/bid
func (h *TeamHandler) PlaceBidFor(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req bidForRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	bid, err := h.teams.PlaceBidFor(r.Context(), id, req.Amount)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to place bid for team")
		return
	}
	writeJSON(w, http.StatusCreated, toBidResponse(bid))
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
)

// BidService defines the methods the bid handler requires from the service
// layer.
type BidService interface {
	Place(ctx context.Context, teamID string, amount decimal.Decimal) (domain.Bid, error)
	Update(ctx context.Context, teamID string, amount decimal.Decimal) (domain.Bid, error)
	Highest(ctx context.Context) (domain.RankedBid, error)
	Mine(ctx context.Context, teamID string) (domain.Bid, error)
}

// BidHandler serves bid submission and query endpoints.
type BidHandler struct {
	bids   BidService
	logger *slog.Logger
}

// NewBidHandler creates a BidHandler.
func NewBidHandler(bids BidService, logger *slog.Logger) *BidHandler {
	return &BidHandler{bids: bids, logger: logger}
}

type bidRequest struct {
	TeamID string          `json:"team_id"`
	Amount decimal.Decimal `json:"amount"`
}

type bidResponse struct {
	ID        string `json:"id"`
	TeamID    string `json:"team_id"`
	AuctionID string `json:"auction_id"`
	Amount    string `json:"amount"`
	PlacedAt  string `json:"placed_at"`
}

func toBidResponse(b domain.Bid) bidResponse {
	return bidResponse{
		ID:        b.ID,
		TeamID:    b.TeamID,
		AuctionID: b.AuctionID,
		Amount:    b.Amount.String(),
		PlacedAt:  b.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// Place records a new bid on the active auction.
// POST /api/bids
func (h *BidHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	bid, err := h.bids.Place(r.Context(), req.TeamID, req.Amount)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to place bid")
		return
	}
	writeJSON(w, http.StatusCreated, toBidResponse(bid))
}

// Update overwrites the team's existing bid.
// PUT /api/bids
func (h *BidHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	bid, err := h.bids.Update(r.Context(), req.TeamID, req.Amount)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to update bid")
		return
	}
	writeJSON(w, http.StatusOK, toBidResponse(bid))
}

// Highest returns the current leading bid. Administrative; bids are sealed
// from teams during OPEN.
// GET /api/bids/highest
func (h *BidHandler) Highest(w http.ResponseWriter, r *http.Request) {
	leader, err := h.bids.Highest(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to read highest bid")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"team_id":   leader.TeamID,
		"team_name": leader.TeamName,
		"amount":    leader.Amount.String(),
	})
}

// Mine returns the calling team's own bid on the active auction.
// GET /api/bids/mine?team_id=...
func (h *BidHandler) Mine(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "team_id query parameter required")
		return
	}

	bid, err := h.bids.Mine(r.Context(), teamID)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to read bid")
		return
	}
	writeJSON(w, http.StatusOK, toBidResponse(bid))
}

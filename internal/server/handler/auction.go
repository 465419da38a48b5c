package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hallbid/auctiond/internal/domain"
	"github.com/hallbid/auctiond/internal/service"
)

// AuctionService defines the methods the auction handler requires from the
// service layer.
type AuctionService interface {
	Start(ctx context.Context, itemID string) (domain.AuctionState, error)
	Stop(ctx context.Context) error
	Pause(ctx context.Context) (domain.AuctionState, error)
	Resume(ctx context.Context) (domain.AuctionState, error)
	AdvanceToFinal(ctx context.Context) (domain.AuctionState, error)
	Restart(ctx context.Context, itemID string) (domain.AuctionState, error)
	Status(ctx context.Context) (domain.AuctionState, error)
	Timer(ctx context.Context) (service.TimerView, error)
	Live(ctx context.Context) (service.LiveView, error)
	Result(ctx context.Context, auctionID string) (service.ResultView, error)
	History(ctx context.Context, auctionID string) ([]service.BidView, error)
}

// AuctionHandler serves the auction lifecycle and read endpoints.
type AuctionHandler struct {
	auctions AuctionService
	logger   *slog.Logger
}

// NewAuctionHandler creates an AuctionHandler.
func NewAuctionHandler(auctions AuctionService, logger *slog.Logger) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, logger: logger}
}

type startAuctionRequest struct {
	ItemID string `json:"item_id"`
}

// Start begins an auction for an item.
// POST /api/auction/start
func (h *AuctionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startAuctionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	state, err := h.auctions.Start(r.Context(), req.ItemID)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to start auction")
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// Stop force-stops the active auction without settlement.
// POST /api/auction/stop
func (h *AuctionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.auctions.Stop(r.Context()); err != nil {
		writeDomainError(w, r, h.logger, err, "failed to stop auction")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// Pause freezes the countdown.
// POST /api/auction/pause
func (h *AuctionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	state, err := h.auctions.Pause(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to pause auction")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Resume unfreezes the countdown.
// POST /api/auction/resume
func (h *AuctionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	state, err := h.auctions.Resume(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to resume auction")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Final advances the auction from REVEAL into FINAL.
// POST /api/auction/final
func (h *AuctionHandler) Final(w http.ResponseWriter, r *http.Request) {
	state, err := h.auctions.AdvanceToFinal(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to advance auction")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Restart reruns an auction for an item, resetting it to PENDING first and
// force-stopping any auction still running.
// POST /api/auction/restart
func (h *AuctionHandler) Restart(w http.ResponseWriter, r *http.Request) {
	var req startAuctionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	state, err := h.auctions.Restart(r.Context(), req.ItemID)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to restart auction")
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// Status returns the engine snapshot of the active auction.
// GET /api/auction/status
func (h *AuctionHandler) Status(w http.ResponseWriter, r *http.Request) {
	state, err := h.auctions.Status(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to read auction status")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Timer returns the countdown snapshot.
// GET /api/auction/timer
func (h *AuctionHandler) Timer(w http.ResponseWriter, r *http.Request) {
	timer, err := h.auctions.Timer(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to read auction timer")
		return
	}
	writeJSON(w, http.StatusOK, timer)
}

// Live returns the administrative live view with the full ledger.
// GET /api/auction/live
func (h *AuctionHandler) Live(w http.ResponseWriter, r *http.Request) {
	view, err := h.auctions.Live(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to read live auction")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Result returns the settlement outcome of a closed auction.
// GET /api/auction/result/{id}
func (h *AuctionHandler) Result(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing auction id")
		return
	}

	result, err := h.auctions.Result(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to read auction result")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// History returns the ranked ledger of any auction.
// GET /api/bids/history/{auctionId}
func (h *AuctionHandler) History(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "auctionId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing auction id")
		return
	}

	bids, err := h.auctions.History(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to read bid history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bids": bids})
}

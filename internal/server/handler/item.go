package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
)

// ItemService defines the methods the item handler requires from the service
// layer.
type ItemService interface {
	Create(ctx context.Context, title, description string, basePrice decimal.Decimal) (domain.Item, error)
	Get(ctx context.Context, id string) (domain.Item, error)
	List(ctx context.Context) ([]domain.Item, error)
	Update(ctx context.Context, id, title, description string, basePrice decimal.Decimal) (domain.Item, error)
	Delete(ctx context.Context, id string) error
}

// ItemHandler serves the item catalogue endpoints.
type ItemHandler struct {
	items  ItemService
	logger *slog.Logger
}

// NewItemHandler creates an ItemHandler.
func NewItemHandler(items ItemService, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, logger: logger}
}

type itemRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	BasePrice   decimal.Decimal `json:"base_price"`
}

// Create adds a new item.
// POST /api/items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	item, err := h.items.Create(r.Context(), req.Title, req.Description, req.BasePrice)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to create item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// List returns all items.
// GET /api/items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.List(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to list items")
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Get returns a single item.
// GET /api/items/{id}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	item, err := h.items.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to read item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Update edits an item.
// PUT /api/items/{id}
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req itemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	item, err := h.items.Update(r.Context(), id, req.Title, req.Description, req.BasePrice)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to update item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete removes an item.
// DELETE /api/items/{id}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := h.items.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, h.logger, err, "failed to delete item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "item_id": id})
}

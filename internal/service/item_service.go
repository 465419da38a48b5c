package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
)

// ItemService manages the catalogue of lots.
type ItemService struct {
	items  domain.ItemStore
	logger *slog.Logger
}

// NewItemService creates an ItemService.
func NewItemService(items domain.ItemStore, logger *slog.Logger) *ItemService {
	return &ItemService{items: items, logger: logger}
}

// Create adds a new item in PENDING.
func (s *ItemService) Create(ctx context.Context, title, description string, basePrice decimal.Decimal) (domain.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Item{}, fmt.Errorf("item_service: title required: %w", domain.ErrValidation)
	}
	if basePrice.IsNegative() {
		return domain.Item{}, fmt.Errorf("item_service: negative base price: %w", domain.ErrValidation)
	}

	now := time.Now().UTC()
	item := domain.Item{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		BasePrice:   basePrice,
		Status:      domain.ItemStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return domain.Item{}, fmt.Errorf("item_service: create %q: %w", title, err)
	}

	s.logger.InfoContext(ctx, "item created",
		slog.String("item_id", item.ID),
		slog.String("title", title),
	)
	return item, nil
}

// Get returns a single item.
func (s *ItemService) Get(ctx context.Context, id string) (domain.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item_service: get %s: %w", id, err)
	}
	return item, nil
}

// List returns all items.
func (s *ItemService) List(ctx context.Context) ([]domain.Item, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("item_service: list: %w", err)
	}
	return items, nil
}

// Update edits an item's title, description, and base price. Items under an
// active auction cannot be edited.
func (s *ItemService) Update(ctx context.Context, id, title, description string, basePrice decimal.Decimal) (domain.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Item{}, fmt.Errorf("item_service: title required: %w", domain.ErrValidation)
	}
	if basePrice.IsNegative() {
		return domain.Item{}, fmt.Errorf("item_service: negative base price: %w", domain.ErrValidation)
	}

	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item_service: get %s: %w", id, err)
	}
	if item.Status == domain.ItemStatusActive {
		return domain.Item{}, fmt.Errorf("item_service: item %s is under auction: %w", id, domain.ErrInvalidState)
	}

	item.Title = title
	item.Description = description
	item.BasePrice = basePrice
	if err := s.items.Update(ctx, item); err != nil {
		return domain.Item{}, fmt.Errorf("item_service: update %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Delete removes an item. Items under an active auction cannot be deleted.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("item_service: get %s: %w", id, err)
	}
	if item.Status == domain.ItemStatusActive {
		return fmt.Errorf("item_service: item %s is under auction: %w", id, domain.ErrInvalidState)
	}

	if err := s.items.Delete(ctx, id); err != nil {
		return fmt.Errorf("item_service: delete %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "item deleted", slog.String("item_id", id))
	return nil
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatus tracks an item's auction lifecycle.
type ItemStatus string

const (
	ItemStatusPending ItemStatus = "PENDING"
	ItemStatusActive  ItemStatus = "ACTIVE"
	ItemStatusSold    ItemStatus = "SOLD"
)

// Item is a lot offered for auction. Status moves to ACTIVE when its auction
// starts and to SOLD only when resolution produces a winner.
type Item struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Status      ItemStatus      `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

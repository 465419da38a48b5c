package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Team is a competing bidder with a money balance. IsEliminated becomes true
// once the team wins an item or an administrator removes it from the pool.
type Team struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Money        decimal.Decimal `json:"money"`
	IsEliminated bool            `json:"is_eliminated"`
	CreatedAt    time.Time       `json:"created_at"`
}

package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hallbid/auctiond/internal/domain"
)

// penaltyRate is the fraction of a losing team's balance charged at
// resolution. The penalty is computed per team against its own pre-penalty
// balance, not against its bid amount.
var penaltyRate = decimal.New(1, -1) // 0.1

// Rank orders bids by amount descending, then timestamp ascending, so ties
// at equal amounts go to the earliest submission. The sort is stable and the
// input slice is not modified.
func Rank(bids []domain.RankedBid) []domain.RankedBid {
	ranked := make([]domain.RankedBid, len(bids))
	copy(ranked, bids)
	sort.SliceStable(ranked, func(i, j int) bool {
		if c := ranked[i].Amount.Cmp(ranked[j].Amount); c != 0 {
			return c > 0
		}
		return ranked[i].Timestamp.Before(ranked[j].Timestamp)
	})
	return ranked
}

// Resolve computes the outcome of a closing auction from its bid ledger. It
// is a pure function: the first-ranked bid wins and pays its amount, every
// other bidding team is charged penaltyRate of its current balance, and an
// empty ledger yields a nil winner and no losers. The caller applies the
// monetary effects and must guarantee single invocation per auction.
func Resolve(auctionID, itemID string, bids []domain.RankedBid) domain.AuctionResult {
	result := domain.AuctionResult{
		AuctionID: auctionID,
		ItemID:    itemID,
		Losers:    []domain.LoserPenalty{},
	}

	if len(bids) == 0 {
		return result
	}

	ranked := Rank(bids)

	winner := ranked[0]
	result.Winner = &domain.WinnerResult{
		TeamID:   winner.TeamID,
		TeamName: winner.TeamName,
		Amount:   winner.Amount,
	}

	for _, b := range ranked[1:] {
		result.Losers = append(result.Losers, domain.LoserPenalty{
			TeamID:   b.TeamID,
			TeamName: b.TeamName,
			Penalty:  b.TeamMoney.Mul(penaltyRate),
		})
	}

	return result
}

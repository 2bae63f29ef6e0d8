package core

import (
	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 4 // 4 decimal places for CPM values (0.0001 precision)

// BidMeetsFloor returns true if the score meets or exceeds the floor price.
// Uses decimal arithmetic with monetaryPrecision to avoid floating-point errors.
func BidMeetsFloor(score, floorPrice float64) bool {
	scoreDecimal := decimal.NewFromFloat(score).Round(monetaryPrecision)
	floorDecimal := decimal.NewFromFloat(floorPrice).Round(monetaryPrecision)

	return scoreDecimal.GreaterThanOrEqual(floorDecimal)
}

// EnforceBidFloor splits scored bids into those meeting the seller floor and those rejected.
// A floor of zero or less accepts every bid.
func EnforceBidFloor(bids []ScoredBid, floor float64) (eligible, rejected []ScoredBid) {
	eligible = make([]ScoredBid, 0, len(bids))
	rejected = make([]ScoredBid, 0)

	for _, bid := range bids {
		if floor <= 0 || BidMeetsFloor(bid.Score, floor) {
			eligible = append(eligible, bid)
		} else {
			rejected = append(rejected, bid)
		}
	}

	return eligible, rejected
}

package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ApplyBidAdjustmentFactors scores bid events as bid * adjustment factor of the bid's owner.
// Owners without a positive factor are scored at their raw bid.
func ApplyBidAdjustmentFactors(bids []AuctionEvent, adjustmentFactors map[string]float64) []ScoredBid {
	result := make([]ScoredBid, len(bids))

	for i, bid := range bids {
		result[i] = ScoredBid{
			Event: bid,
			Score: ApplySingleBidAdjustmentFactor(bid.Bid, bid.OwnerOrigin, adjustmentFactors),
		}
	}

	return result
}

// ApplySingleBidAdjustmentFactor returns bidPrice scaled by the owner's adjustment factor.
func ApplySingleBidAdjustmentFactor(bidPrice float64, owner string, adjustmentFactors map[string]float64) float64 {
	adjustmentFactor := 1.0
	if len(adjustmentFactors) > 0 {
		if factor, exists := adjustmentFactors[strings.ToLower(owner)]; exists && factor > 0 {
			adjustmentFactor = factor
		}
	}

	// Use decimal arithmetic for precise calculation
	bidPriceDecimal := decimal.NewFromFloat(bidPrice)
	adjustmentFactorDecimal := decimal.NewFromFloat(adjustmentFactor)

	result, _ := bidPriceDecimal.Mul(adjustmentFactorDecimal).Float64()
	return result
}

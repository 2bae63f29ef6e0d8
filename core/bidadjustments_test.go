package core

import (
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestApplyBidAdjustmentFactors(t *testing.T) {
	bids := []AuctionEvent{
		{Type: EventBid, OwnerOrigin: "https://dsp-a.example", Bid: 20},
		{Type: EventBid, OwnerOrigin: "https://dsp-b.example", Bid: 15},
		{Type: EventBid, OwnerOrigin: "https://dsp-c.example", Bid: 30},
	}

	adjustmentFactors := map[string]float64{
		"https://dsp-a.example": 1.0,
		"https://dsp-b.example": 0.9,
		"https://dsp-c.example": 1.1,
	}

	scored := ApplyBidAdjustmentFactors(bids, adjustmentFactors)

	check.Equal(t, 3, len(scored))
	check.Equal(t, 20.0, scored[0].Score)
	check.Equal(t, 13.5, scored[1].Score) // 15 * 0.9
	check.Equal(t, 33.0, scored[2].Score) // 30 * 1.1

	// Raw bids are preserved on the events
	check.Equal(t, 15.0, scored[1].Event.Bid)
}

func TestApplyBidAdjustmentFactors_CaseInsensitiveOwner(t *testing.T) {
	bids := []AuctionEvent{
		{Type: EventBid, OwnerOrigin: "https://DSP-A.example", Bid: 20},
	}

	scored := ApplyBidAdjustmentFactors(bids, map[string]float64{"https://dsp-a.example": 1.5})

	check.Equal(t, 30.0, scored[0].Score)
}

func TestApplySingleBidAdjustmentFactor_IgnoresNonPositiveFactor(t *testing.T) {
	factors := map[string]float64{
		"https://dsp-a.example": 0,
		"https://dsp-b.example": -2,
	}

	check.Equal(t, 40.0, ApplySingleBidAdjustmentFactor(40, "https://dsp-a.example", factors))
	check.Equal(t, 40.0, ApplySingleBidAdjustmentFactor(40, "https://dsp-b.example", factors))
	check.Equal(t, 40.0, ApplySingleBidAdjustmentFactor(40, "https://dsp-c.example", nil))
}

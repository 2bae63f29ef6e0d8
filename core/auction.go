package core

// ScoreAuction executes a seller's scoring: adjustment → floor enforcement → ranking.
//
// Parameters:
//   - bids: Bid and top-level-bid events available to the seller
//   - adjustmentFactors: Per-owner score multipliers (keys lower-cased)
//   - bidFloor: Minimum score a bid needs to stay eligible
//
// Returns:
//   - AuctionResult containing winner, runner-up, ranked and rejected bids
//
// Processing flow:
//  1. Keep only events that carry a bid
//  2. Score each bid with its owner's adjustment factor
//  3. Enforce the seller floor
//  4. Rank eligible bids ascending; the last is the winner
func ScoreAuction(
	bids []AuctionEvent,
	adjustmentFactors map[string]float64,
	bidFloor float64,
) *AuctionResult {
	// Step 1: Keep only scoreable events
	scoreable := make([]AuctionEvent, 0, len(bids))
	for _, e := range bids {
		if e.IsBid() {
			scoreable = append(scoreable, e)
		}
	}

	// Step 2: Apply bid adjustment factors
	scored := ApplyBidAdjustmentFactors(scoreable, adjustmentFactors)

	// Step 3: Enforce seller floor
	eligible, rejected := EnforceBidFloor(scored, bidFloor)

	// Step 4: Rank and extract winner and runner-up
	ranked := RankScoredBids(eligible)

	var winner, runnerUp *AuctionEvent
	if n := len(ranked); n > 0 {
		w := ranked[n-1].Event
		winner = &w
		if n > 1 {
			r := ranked[n-2].Event
			runnerUp = &r
		}
	}

	return &AuctionResult{
		Winner:        winner,
		RunnerUp:      runnerUp,
		Ranked:        ranked,
		FloorRejected: rejected,
	}
}

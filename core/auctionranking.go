package core

import (
	"sort"
)

// RankScoredBids returns a copy of bids sorted by score ascending.
// The sort is stable, so among equal scores the later bid ranks higher.
func RankScoredBids(bids []ScoredBid) []ScoredBid {
	ranked := make([]ScoredBid, len(bids))
	copy(ranked, bids)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score < ranked[j].Score
	})

	return ranked
}

package validation

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/cloudx-io/auctiontimeline/core"
	"github.com/cloudx-io/auctiontimeline/timeline"
)

// ValidateTimeline checks a synthesized auction tree and verifies:
// - Every seller's events are timestamped and in time order
// - Lifecycle phases appear in causal order
// - Every win matches a bid the seller received
// - Top-level bids never come from the top-level seller itself
// - No-bids and bidders partition the interest group owners
//
// Returns:
//   - TimelineValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., missing tree)
func ValidateTimeline(input *TimelineValidationInput) (*TimelineValidationResult, error) {
	if input == nil || input.Tree == nil {
		return nil, errors.New("timeline validation input has no tree")
	}

	result := &TimelineValidationResult{
		OrderingValid:          true,
		PhaseOrderValid:        true,
		WinnerValid:            true,
		SelfExclusionValid:     true,
		NoBidCompletenessValid: true,
	}

	for _, adUnit := range slices.Sorted(maps.Keys(input.Tree)) {
		buckets := input.Tree[adUnit]
		for _, bucket := range slices.Sorted(maps.Keys(buckets)) {
			for _, topLevelSeller := range slices.Sorted(maps.Keys(buckets[bucket])) {
				sellerEvents := buckets[bucket][topLevelSeller]
				for _, seller := range slices.Sorted(maps.Keys(sellerEvents)) {
					events := sellerEvents[seller]
					label := fmt.Sprintf("%s/%s/%s", adUnit, bucket, seller)

					result.SellersChecked++
					result.EventsChecked += len(events)

					result.OrderingValid = validateOrdering(label, events, result) && result.OrderingValid
					result.PhaseOrderValid = validatePhaseOrder(label, events, result) && result.PhaseOrderValid
					result.WinnerValid = validateWinner(label, events, result) && result.WinnerValid
				}
				result.SelfExclusionValid = validateSelfExclusion(topLevelSeller, input.PublisherSeller, sellerEvents[topLevelSeller], result) &&
					result.SelfExclusionValid
			}
		}

		if len(input.InterestGroups) > 0 {
			result.NoBidCompletenessValid = validateNoBidCompleteness(input.Tree, adUnit, input.InterestGroups, result) &&
				result.NoBidCompletenessValid
		}
	}

	if result.IsValid() {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("All checks passed for %d sellers and %d events", result.SellersChecked, result.EventsChecked))
	}

	return result, nil
}

func validateOrdering(label string, events []core.AuctionEvent, result *TimelineValidationResult) bool {
	valid := true
	phaseTimes := make(map[string]map[int64]bool)

	for i, e := range events {
		if !e.TimestampAssigned {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("%s: event %d (%s) has no timestamp", label, i, e.Type))
			valid = false
		}
		if i > 0 && events[i-1].Time > e.Time {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("%s: event %d (%s) at %d precedes event %d at %d", label, i, e.Type, e.Time, i-1, events[i-1].Time))
			valid = false
		}

		if phaseTimes[e.Phase] == nil {
			phaseTimes[e.Phase] = make(map[int64]bool)
		}
		if phaseTimes[e.Phase][e.Time] {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("%s: phase %q has two events at %d", label, e.Phase, e.Time))
			valid = false
		}
		phaseTimes[e.Phase][e.Time] = true
	}

	return valid
}

func validatePhaseOrder(label string, events []core.AuctionEvent, result *TimelineValidationResult) bool {
	valid := true
	fail := func(format string, args ...any) {
		result.ValidationDetails = append(result.ValidationDetails, label+": "+fmt.Sprintf(format, args...))
		valid = false
	}

	started := -1
	seenBid := false
	wins := 0
	openFetches := make(map[string]int)

	for i, e := range events {
		switch e.Type {
		case core.EventStarted:
			if i != 0 {
				fail("started event at position %d, expected first", i)
			}
			started = i
		case core.EventConfigResolved:
			if started < 0 {
				fail("config-resolved event at position %d before auction start", i)
			}
		case core.EventLoaded:
			if seenBid {
				fail("interest group %s loaded after bidding began", e.Name)
			}
		case core.EventFetchStart:
			openFetches[e.FetchURL]++
		case core.EventFetchFinish:
			if openFetches[e.FetchURL] == 0 {
				fail("fetch of %s finished without starting", e.FetchURL)
				continue
			}
			openFetches[e.FetchURL]--
		case core.EventBid, core.EventTopLevelBid:
			seenBid = true
		case core.EventWin:
			wins++
			if i != len(events)-1 {
				fail("win event at position %d, expected last of %d", i, len(events))
			}
		}
	}

	if wins > 1 {
		fail("%d win events, expected at most one", wins)
	}

	return valid
}

func validateWinner(label string, events []core.AuctionEvent, result *TimelineValidationResult) bool {
	for i, e := range events {
		if e.Type != core.EventWin {
			continue
		}
		for _, candidate := range events[:i] {
			if candidate.IsBid() && candidate.OwnerOrigin == e.OwnerOrigin && candidate.Bid == e.Bid {
				return true
			}
		}
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("%s: win for %s at %.2f matches no received bid", label, e.OwnerOrigin, e.Bid))
		return false
	}
	return true
}

func validateSelfExclusion(topLevelSeller, publisher string, events []core.AuctionEvent, result *TimelineValidationResult) bool {
	valid := true
	for _, e := range events {
		if e.Type != core.EventTopLevelBid {
			continue
		}
		if e.ComponentSellerOrigin == topLevelSeller || (publisher != "" && e.ComponentSellerOrigin == publisher) {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("%s: top-level bid references its own auction (%s)", topLevelSeller, e.ComponentSellerOrigin))
			valid = false
		}
	}
	return valid
}

func validateNoBidCompleteness(tree core.AuctionTree, adUnitCode string, interestGroups []core.InterestGroup, result *TimelineValidationResult) bool {
	adUnit := core.AdUnit{Code: adUnitCode}
	noBids := timeline.NoBids(tree, adUnit, interestGroups)
	if len(noBids) == 0 && len(timeline.ReceivedBids(tree, adUnit)) == 0 {
		return true // branch not populated
	}

	covered := make(map[string]int)
	for _, bid := range timeline.ReceivedBids(tree, adUnit) {
		covered[bid.OwnerOrigin] = 1
	}
	for _, noBid := range noBids {
		covered[noBid.Bidder]++
	}

	valid := true
	for _, ig := range interestGroups {
		if covered[ig.OwnerOrigin] != 1 {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("%s: owner %s counted %d times across bids and no-bids", adUnitCode, ig.OwnerOrigin, covered[ig.OwnerOrigin]))
			valid = false
		}
	}
	return valid
}

package timeline

import (
	"maps"
	"slices"

	"github.com/cloudx-io/auctiontimeline/core"
)

// populatedBranch returns the auctions stored under the ad unit's populated time bucket.
func populatedBranch(tree core.AuctionTree, adUnitCode string) core.SellerAuctions {
	buckets := tree[adUnitCode]
	for _, bucket := range slices.Sorted(maps.Keys(buckets)) {
		if len(buckets[bucket]) > 0 {
			return buckets[bucket]
		}
	}
	return nil
}

// ReceivedBids flattens every bid event in the ad unit's populated branch.
func ReceivedBids(tree core.AuctionTree, adUnit core.AdUnit) []core.ReceivedBid {
	bids := make([]core.ReceivedBid, 0)

	branch := populatedBranch(tree, adUnit.Code)
	for _, topLevelSeller := range slices.Sorted(maps.Keys(branch)) {
		sellerEvents := branch[topLevelSeller]
		for _, seller := range slices.Sorted(maps.Keys(sellerEvents)) {
			for _, e := range sellerEvents[seller] {
				if e.Type != core.EventBid {
					continue
				}
				bids = append(bids, core.ReceivedBid{
					AuctionEvent:       core.CloneEvent(e),
					Seller:             seller,
					AdUnitCode:         adUnit.Code,
					MediaContainerSize: slices.Clone(adUnit.MediaContainerSize),
					MediaType:          adUnit.MediaType,
				})
			}
		}
	}

	return bids
}

// NoBids lists interest group owners that placed no bid in the ad unit's populated branch,
// keyed by a synthetic auction id.
func NoBids(tree core.AuctionTree, adUnit core.AdUnit, interestGroups []core.InterestGroup) map[string]core.NoBid {
	noBids := make(map[string]core.NoBid)
	if populatedBranch(tree, adUnit.Code) == nil {
		return noBids
	}

	bidders := make(map[string]bool)
	for _, bid := range ReceivedBids(tree, adUnit) {
		bidders[bid.OwnerOrigin] = true
	}

	for _, owner := range distinctOwners(interestGroups) {
		if bidders[owner] {
			continue
		}
		auctionID := core.NewAuctionID(adUnit.Code, owner, "no-bid")
		noBids[auctionID] = core.NoBid{
			Bidder:             owner,
			AdUnitCode:         adUnit.Code,
			MediaContainerSize: slices.Clone(adUnit.MediaContainerSize),
			UniqueAuctionID:    auctionID,
		}
	}

	return noBids
}

// AdsAndBiddersSummary summarises the ad unit: its sellers and, once scored, the winning bid
// of the top-level auction.
func AdsAndBiddersSummary(tree core.AuctionTree, adUnit core.AdUnit, sellers []string) *core.AdsAndBidders {
	summary := &core.AdsAndBidders{
		AdUnitCode:         adUnit.Code,
		Bidders:            slices.Clone(sellers),
		MediaContainerSize: slices.Clone(adUnit.MediaContainerSize),
	}

	branch := populatedBranch(tree, adUnit.Code)
	for _, topLevelSeller := range slices.Sorted(maps.Keys(branch)) {
		for _, e := range branch[topLevelSeller][topLevelSeller] {
			if e.Type == core.EventWin {
				summary.WinningBid = e.Bid
				summary.BidCurrency = e.BidCurrency
				summary.WinningBidder = e.OwnerOrigin
				return summary
			}
		}
	}

	return summary
}

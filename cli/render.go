package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/cloudx-io/auctiontimeline/core"
	"github.com/cloudx-io/auctiontimeline/timeline"
)

// writeTimelineText prints each seller's events followed by the derived views.
func writeTimelineText(w io.Writer, sel timeline.Selection, catalog core.Catalog, result *timeline.BuildResult) error {
	fingerprint, err := core.Fingerprint(result.AuctionData)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "AD UNIT: %s\n", sel.AdUnit)
	fmt.Fprintf(w, "TIME BUCKET: %s\n", sel.TimeBucket)
	fmt.Fprintf(w, "FINGERPRINT: %s\n", shortFingerprint(fingerprint))

	branch := result.AuctionData.Branch(sel.AdUnit, sel.TimeBucket, catalog.PublisherSeller)
	for _, seller := range sellerOrder(catalog, branch) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "SELLER: %s\n", seller)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ELAPSED\tTYPE\tDETAIL\tBID")
		for _, e := range branch[seller] {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.FormattedTime, e.Type, eventDetail(e), formatBid(e))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "RECEIVED BIDS: %d\n", len(result.ReceivedBids))
	fmt.Fprintf(w, "NO BIDS: %d\n", len(result.NoBids))
	for _, noBid := range sortedNoBids(result.NoBids) {
		fmt.Fprintf(w, "  %s\n", noBid.Bidder)
	}

	if summary := result.AdsAndBidders; summary != nil && summary.WinningBidder != "" {
		fmt.Fprintf(w, "WINNER: %s (%.2f %s)\n", summary.WinningBidder, summary.WinningBid, summary.BidCurrency)
	} else {
		fmt.Fprintln(w, "WINNER: -")
	}

	return nil
}

// sellerOrder lists the branch's sellers in auction order, component sellers first.
func sellerOrder(catalog core.Catalog, branch core.SellerEvents) []string {
	sellers := make([]string, 0, len(branch))
	for _, seller := range catalog.RotatedSellers() {
		if _, ok := branch[seller]; ok {
			sellers = append(sellers, seller)
		}
	}
	return sellers
}

func eventDetail(e core.AuctionEvent) string {
	switch {
	case e.FetchURL != "":
		return e.FetchURL
	case e.Type == core.EventTopLevelBid:
		return fmt.Sprintf("%s via %s", e.OwnerOrigin, e.ComponentSellerOrigin)
	case e.OwnerOrigin != "":
		return fmt.Sprintf("%s/%s", e.OwnerOrigin, e.Name)
	case e.AuctionConfig != nil:
		return e.AuctionConfig.Seller
	default:
		return "-"
	}
}

func formatBid(e core.AuctionEvent) string {
	if !e.IsBid() && e.Type != core.EventWin {
		return ""
	}
	return fmt.Sprintf("%.2f %s", e.Bid, e.BidCurrency)
}

// sortedNoBids orders no-bids by bidder so output is stable.
func sortedNoBids(noBids map[string]core.NoBid) []core.NoBid {
	sorted := make([]core.NoBid, 0, len(noBids))
	for _, key := range slices.Sorted(maps.Keys(noBids)) {
		sorted = append(sorted, noBids[key])
	}
	slices.SortStableFunc(sorted, func(a, b core.NoBid) int {
		return strings.Compare(a.Bidder, b.Bidder)
	})
	return sorted
}

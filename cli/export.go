package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloudx-io/auctiontimeline/core"
	"github.com/cloudx-io/auctiontimeline/store"
	"github.com/cloudx-io/auctiontimeline/timeline"
)

const (
	viewReceivedBids = "received-bids"
	viewNoBids       = "no-bids"
)

type exportOptions struct {
	selectionFlags
	format string
	view   string
}

func newExportCmd(root *rootOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export received bids or no-bids",
		Long: `Export a derived view of a completed auction in CSV or JSON format.

With --db the latest stored snapshot for the ad unit and time bucket is used;
otherwise the full step script is run first.

Examples:
  auction-timeline export --view received-bids --format csv > bids.csv
  auction-timeline export --view no-bids --format json --db ./timeline.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, root, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "csv", "output format (csv or json)")
	cmd.Flags().StringVar(&opts.view, "view", viewReceivedBids, "view to export (received-bids or no-bids)")

	return cmd
}

func runExport(cmd *cobra.Command, root *rootOptions, opts *exportOptions) error {
	if opts.format != "csv" && opts.format != "json" {
		return fmt.Errorf("invalid format: must be 'csv' or 'json'")
	}
	if opts.view != viewReceivedBids && opts.view != viewNoBids {
		return fmt.Errorf("invalid view: must be '%s' or '%s'", viewReceivedBids, viewNoBids)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession(root, &opts.selectionFlags, root.logger(cmd))
	if err != nil {
		return err
	}

	tree, err := exportTree(ctx, root, s)
	if err != nil {
		return err
	}

	adUnit, _ := s.builder.Catalog().AdUnit(opts.adUnit)
	out := cmd.OutOrStdout()

	switch opts.view {
	case viewNoBids:
		noBids := sortedNoBids(timeline.NoBids(tree, adUnit, s.interestGroups))
		if opts.format == "csv" {
			return exportNoBidsCSV(out, noBids)
		}
		return exportJSON(out, noBids)
	default:
		bids := timeline.ReceivedBids(tree, adUnit)
		if opts.format == "csv" {
			return exportReceivedBidsCSV(out, bids)
		}
		return exportJSON(out, bids)
	}
}

// exportTree loads the latest stored tree, or plays the whole script when no database is set.
func exportTree(ctx context.Context, root *rootOptions, s *session) (core.AuctionTree, error) {
	if root.dbPath == "" {
		for _, step := range s.steps() {
			s.apply(ctx, step)
		}
		return s.tree, nil
	}

	var tree core.AuctionTree
	err := withStore(root.dbPath, func(st *store.SQLiteStore) error {
		record, err := st.LatestSnapshot(ctx, s.flags.adUnit, s.flags.timeBucket)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no snapshots for %s at %s", s.flags.adUnit, s.flags.timeBucket)
			}
			return fmt.Errorf("failed to get snapshot: %w", err)
		}
		tree = record.Snapshot.Tree
		return nil
	})
	return tree, err
}

func exportReceivedBidsCSV(w io.Writer, bids []core.ReceivedBid) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"time", "elapsed", "seller", "bidder", "interest_group", "bid", "currency", "ad_unit", "media_type"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, bid := range bids {
		row := []string{
			strconv.FormatInt(bid.Time, 10),
			bid.FormattedTime,
			bid.Seller,
			bid.OwnerOrigin,
			bid.Name,
			strconv.FormatFloat(bid.Bid, 'f', -1, 64),
			bid.BidCurrency,
			bid.AdUnitCode,
			bid.MediaType,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

func exportNoBidsCSV(w io.Writer, noBids []core.NoBid) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"unique_auction_id", "bidder", "ad_unit"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, noBid := range noBids {
		if err := cw.Write([]string{noBid.UniqueAuctionID, noBid.Bidder, noBid.AdUnitCode}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

func exportJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudx-io/auctiontimeline/store"
	timelineapi "github.com/cloudx-io/auctiontimeline/timelineapi"
)

type historyOptions struct {
	adUnit     string
	timeBucket string
	format     string
	limit      int
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored snapshots for an ad unit and time bucket",
		Long: `List the snapshots saved by 'simulate --db', oldest first.

--format cbor prints the latest snapshot as base64 CBOR, ready for timeline-validator.

Examples:
  auction-timeline history --db ./timeline.db --ad-unit div-200-1 --time-bucket 10:00:00
  auction-timeline history --db ./timeline.db --format cbor > snap.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.adUnit, "ad-unit", "div-200-1", "ad unit code")
	cmd.Flags().StringVar(&opts.timeBucket, "time-bucket", "10:00:00", "time bucket")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format (text, json or cbor)")
	cmd.Flags().IntVar(&opts.limit, "limit", 100, "maximum snapshots to list")

	return cmd
}

type historyEntry struct {
	ID          int64  `json:"id"`
	SessionID   string `json:"session_id"`
	Step        string `json:"step"`
	Description string `json:"description,omitempty"`
	SSP         string `json:"ssp,omitempty"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   string `json:"created_at"`
}

func runHistory(cmd *cobra.Command, root *rootOptions, opts *historyOptions) error {
	if opts.format != "text" && opts.format != "json" && opts.format != "cbor" {
		return fmt.Errorf("invalid format: must be 'text', 'json' or 'cbor'")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	return withStore(root.dbPath, func(s *store.SQLiteStore) error {
		if opts.format == "cbor" {
			record, err := s.LatestSnapshot(ctx, opts.adUnit, opts.timeBucket)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no snapshots for %s at %s", opts.adUnit, opts.timeBucket)
				}
				return fmt.Errorf("failed to get snapshot: %w", err)
			}
			encoded, err := timelineapi.EncodeSnapshot(record.Snapshot)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, encoded.EncodeBase64())
			return nil
		}

		records, err := s.ListSnapshots(ctx, opts.adUnit, opts.timeBucket, opts.limit)
		if err != nil {
			return fmt.Errorf("failed to list snapshots: %w", err)
		}

		entries := make([]historyEntry, 0, len(records))
		for _, record := range records {
			snapshot := record.Snapshot
			entries = append(entries, historyEntry{
				ID:          record.ID,
				SessionID:   snapshot.SessionID,
				Step:        snapshot.Step.Title,
				Description: snapshot.Step.Description,
				SSP:         snapshot.Step.SSP,
				Fingerprint: snapshot.Fingerprint,
				CreatedAt:   snapshot.CreatedAt().UTC().Format(time.RFC3339),
			})
		}

		if opts.format == "json" {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Fprintf(out, "No snapshots for %s at %s.\n", opts.adUnit, opts.timeBucket)
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSESSION\tSTEP\tSSP\tFINGERPRINT\tCREATED")
		for _, e := range entries {
			step := e.Step
			if e.Description != "" {
				step += " (" + e.Description + ")"
			}
			ssp := e.SSP
			if ssp == "" {
				ssp = "-"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.SessionID, step, ssp, shortFingerprint(e.Fingerprint), e.CreatedAt)
		}
		return w.Flush()
	})
}

func shortFingerprint(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}

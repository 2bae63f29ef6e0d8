package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudx-io/auctiontimeline/config"
	"github.com/cloudx-io/auctiontimeline/core"
	"github.com/cloudx-io/auctiontimeline/store"
	"github.com/cloudx-io/auctiontimeline/timeline"
)

// defaultInterestGroups is used when no --interest-groups file is given.
func defaultInterestGroups() []core.InterestGroup {
	return []core.InterestGroup{
		{OwnerOrigin: "https://dsp-a.example", InterestGroupName: "running-shoes"},
		{OwnerOrigin: "https://dsp-a.example", InterestGroupName: "trail-shoes"},
		{OwnerOrigin: "https://dsp-b.example", InterestGroupName: "city-breaks"},
		{OwnerOrigin: "https://dsp-c.example", InterestGroupName: "electric-cars"},
	}
}

// selectionFlags are the auction inputs shared by simulate and export.
type selectionFlags struct {
	adUnit             string
	timeBucket         string
	multiSeller        bool
	interestGroupsPath string
	startTime          int64
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.adUnit, "ad-unit", "div-200-1", "ad unit code")
	cmd.Flags().StringVar(&f.timeBucket, "time-bucket", "10:00:00", "time bucket")
	cmd.Flags().BoolVar(&f.multiSeller, "multi-seller", false, "run a multi-seller auction")
	cmd.Flags().StringVar(&f.interestGroupsPath, "interest-groups", "", "JSON file with [{owner_origin, interest_group_name}] interest groups")
	cmd.Flags().Int64Var(&f.startTime, "start-time", 0, "auction start in unix milliseconds (default now)")
}

func (f *selectionFlags) selection() timeline.Selection {
	return timeline.Selection{AdUnit: f.adUnit, TimeBucket: f.timeBucket}
}

// session bundles the engine and inputs for one scripted run.
type session struct {
	builder        *timeline.Builder
	flags          *selectionFlags
	interestGroups []core.InterestGroup
	advertisers    []string
	tree           core.AuctionTree
	result         *timeline.BuildResult
}

func newSession(opts *rootOptions, flags *selectionFlags, logger *slog.Logger) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}

	if _, ok := catalog.AdUnit(flags.adUnit); !ok {
		return nil, fmt.Errorf("unknown ad unit %q", flags.adUnit)
	}
	if !catalog.HasTimeBucket(flags.timeBucket) {
		return nil, fmt.Errorf("unknown time bucket %q", flags.timeBucket)
	}

	interestGroups, err := loadInterestGroups(flags.interestGroupsPath)
	if err != nil {
		return nil, err
	}

	return &session{
		builder:        timeline.NewBuilder(catalog, cfg.Settings(), logger),
		flags:          flags,
		interestGroups: interestGroups,
		advertisers:    advertisersOf(interestGroups),
	}, nil
}

// steps returns the default driver script for the session's auction shape.
func (s *session) steps() []core.Step {
	return timeline.StepSequence(s.builder.Catalog(), s.flags.multiSeller)
}

// apply runs one step against the session's current tree.
func (s *session) apply(ctx context.Context, step core.Step) *timeline.BuildResult {
	s.result = s.builder.Build(ctx, timeline.BuildInput{
		Selection:      s.flags.selection(),
		InterestGroups: s.interestGroups,
		Advertisers:    s.advertisers,
		IsMultiSeller:  s.flags.multiSeller,
		CurrentStep:    step,
		PreviousTree:   s.tree,
		StartTime:      s.flags.startTime,
	})
	s.tree = s.result.AuctionData
	return s.result
}

func loadInterestGroups(path string) ([]core.InterestGroup, error) {
	if path == "" {
		return defaultInterestGroups(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read interest groups: %w", err)
	}

	var groups []core.InterestGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse interest groups %s: %w", path, err)
	}
	return groups, nil
}

// advertisersOf lists distinct interest group owners in first-seen order.
func advertisersOf(groups []core.InterestGroup) []string {
	seen := make(map[string]bool, len(groups))
	owners := make([]string, 0, len(groups))
	for _, g := range groups {
		if !seen[g.OwnerOrigin] {
			seen[g.OwnerOrigin] = true
			owners = append(owners, g.OwnerOrigin)
		}
	}
	return owners
}

// withStore opens the database, executes the function, and handles cleanup.
func withStore(dbPath string, fn func(*store.SQLiteStore) error) error {
	if dbPath == "" {
		return fmt.Errorf("no database configured (use --db or AUCTION_TIMELINE_DB)")
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// nowMillis stamps saved snapshots; tests replace it.
var nowMillis = func() int64 {
	return time.Now().UnixMilli()
}

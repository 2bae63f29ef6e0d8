package timeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloudx-io/auctiontimeline/core"
)

const tracerName = "github.com/cloudx-io/auctiontimeline/timeline"

// Selection is the ad unit and time bucket chosen by the driver.
type Selection struct {
	AdUnit     string `json:"ad_unit" cbor:"ad_unit"`
	TimeBucket string `json:"time_bucket" cbor:"time_bucket"`
}

// BuildInput carries one driver tick.
type BuildInput struct {
	Selection      Selection
	InterestGroups []core.InterestGroup
	Advertisers    []string
	IsMultiSeller  bool
	CurrentStep    core.Step
	PreviousTree   core.AuctionTree

	// StartTime pins the auction start (ms); zero derives it from the previous tree or the clock.
	StartTime int64
}

// BuildResult is the tree plus its derived views.
// All fields are nil when no known ad unit is selected.
type BuildResult struct {
	AuctionData   core.AuctionTree      `json:"auction_data"`
	ReceivedBids  []core.ReceivedBid    `json:"received_bids"`
	NoBids        map[string]core.NoBid `json:"no_bids"`
	AdsAndBidders *core.AdsAndBidders   `json:"ads_and_bidders"`
}

// Builder owns the auction tree and drives synthesis for the selected branch.
type Builder struct {
	catalog     core.Catalog
	synthesizer *Synthesizer
	composer    *Composer
	clock       func() time.Time
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewBuilder creates a builder for catalog. The catalog is assumed valid.
func NewBuilder(catalog core.Catalog, settings Settings, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	synthesizer := NewSynthesizer(settings, logger)

	return &Builder{
		catalog:     catalog,
		synthesizer: synthesizer,
		composer:    NewComposer(synthesizer, catalog.Sellers, catalog.PublisherSeller, logger),
		clock:       time.Now,
		tracer:      otel.Tracer(tracerName),
		logger:      logger,
	}
}

// Catalog returns the builder's catalog.
func (b *Builder) Catalog() core.Catalog {
	return b.catalog
}

// Synthesizer exposes the synthesizer so callers can register extra steps.
func (b *Builder) Synthesizer() *Synthesizer {
	return b.synthesizer
}

// SetClock replaces the clock used to start fresh auctions.
func (b *Builder) SetClock(clock func() time.Time) {
	b.clock = clock
}

// Build returns the auction tree for the selection after applying the current step.
// Only the selected branch is populated; the other ad-unit slots stay empty.
func (b *Builder) Build(ctx context.Context, in BuildInput) *BuildResult {
	_, span := b.tracer.Start(ctx, "timeline.Build", trace.WithAttributes(
		attribute.String("ad_unit", in.Selection.AdUnit),
		attribute.String("time_bucket", in.Selection.TimeBucket),
		attribute.String("step", in.CurrentStep.Title),
		attribute.Bool("multi_seller", in.IsMultiSeller),
	))
	defer span.End()

	adUnit, ok := b.catalog.AdUnit(in.Selection.AdUnit)
	if !ok {
		b.logger.Debug("No known ad unit selected", slog.String("ad_unit", in.Selection.AdUnit))
		return &BuildResult{}
	}

	tree := b.placeholderTree()
	bucket := in.Selection.TimeBucket
	if !b.catalog.HasTimeBucket(bucket) {
		b.logger.Debug("No known time bucket selected", slog.String("time_bucket", bucket))
		return b.withViews(tree, adUnit, in)
	}

	publisher := b.catalog.PublisherSeller
	previous := in.PreviousTree.Branch(adUnit.Code, bucket, publisher)

	startTime := in.StartTime
	if startTime == 0 {
		startTime = earliestTime(previous, b.clock)
	}

	var branch core.SellerEvents
	if in.IsMultiSeller {
		branch = b.composer.Compose(ComposeInput{
			AdUnit:         adUnit.Code,
			TimeBucket:     bucket,
			InterestGroups: in.InterestGroups,
			Advertisers:    in.Advertisers,
			EventStartTime: startTime,
			CurrentStep:    in.CurrentStep,
			Previous:       previous,
		})
	} else {
		events := b.synthesizer.Synthesize(SynthesisInput{
			AuctionID:             core.NewAuctionID(adUnit.Code, bucket, publisher),
			InterestGroups:        in.InterestGroups,
			Seller:                publisher,
			Advertisers:           in.Advertisers,
			EventStartTime:        startTime,
			CurrentStep:           in.CurrentStep,
			PreviousEvents:        previous[publisher],
			CompleteAuctionEvents: previous,
		})
		branch = core.SellerEvents{publisher: events}
	}

	tree[adUnit.Code] = core.AdUnitAuctions{
		bucket: core.SellerAuctions{publisher: branch},
	}

	span.SetAttributes(attribute.Int("events", countEvents(branch)))

	return b.withViews(tree, adUnit, in)
}

func (b *Builder) withViews(tree core.AuctionTree, adUnit core.AdUnit, in BuildInput) *BuildResult {
	sellers := []string{b.catalog.PublisherSeller}
	if in.IsMultiSeller {
		sellers = b.composer.Sellers()
	}

	return &BuildResult{
		AuctionData:   tree,
		ReceivedBids:  ReceivedBids(tree, adUnit),
		NoBids:        NoBids(tree, adUnit, in.InterestGroups),
		AdsAndBidders: AdsAndBiddersSummary(tree, adUnit, sellers),
	}
}

// placeholderTree returns a tree with every ad-unit slot present and empty.
func (b *Builder) placeholderTree() core.AuctionTree {
	tree := make(core.AuctionTree, len(b.catalog.AdUnits))
	for _, unit := range b.catalog.AdUnits {
		tree[unit.Code] = core.AdUnitAuctions{}
	}
	return tree
}

// earliestTime returns the first assigned event time in the branch, or the clock's now.
func earliestTime(branch core.SellerEvents, clock func() time.Time) int64 {
	var earliest int64
	found := false
	for _, events := range branch {
		for _, e := range events {
			if e.TimestampAssigned && (!found || e.Time < earliest) {
				earliest = e.Time
				found = true
			}
		}
	}
	if !found {
		return clock().UnixMilli()
	}
	return earliest
}

func countEvents(branch core.SellerEvents) int {
	total := 0
	for _, events := range branch {
		total += len(events)
	}
	return total
}

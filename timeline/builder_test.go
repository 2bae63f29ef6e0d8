package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/auctiontimeline/core"
)

func newTestBuilder() *Builder {
	b := NewBuilder(core.DefaultCatalog(), Settings{}, nil)
	b.SetClock(func() time.Time { return time.UnixMilli(testStart) })
	return b
}

func buildInput(adUnit, bucket string, multi bool, step core.Step, previous core.AuctionTree) BuildInput {
	return BuildInput{
		Selection:      Selection{AdUnit: adUnit, TimeBucket: bucket},
		InterestGroups: testInterestGroups(),
		Advertisers:    testAdvertisers(),
		IsMultiSeller:  multi,
		CurrentStep:    step,
		PreviousTree:   previous,
	}
}

// playBuilder drives the builder through every step for the selection.
func playBuilder(b *Builder, adUnit, bucket string, multi bool) *BuildResult {
	var result *BuildResult
	var tree core.AuctionTree
	for _, step := range StepSequence(b.Catalog(), multi) {
		result = b.Build(context.Background(), buildInput(adUnit, bucket, multi, step, tree))
		tree = result.AuctionData
	}
	return result
}

func TestBuild_UnknownAdUnitReturnsNothingSelected(t *testing.T) {
	b := newTestBuilder()

	result := b.Build(context.Background(), buildInput("div-200-4", "10:00:00", false, core.Step{Title: StepRunAdAuction}, nil))

	assert.NotNil(t, result)
	check.Nil(t, result.AuctionData)
	check.Nil(t, result.ReceivedBids)
	check.Nil(t, result.NoBids)
	check.Nil(t, result.AdsAndBidders)
}

func TestBuild_EmptyAdUnitReturnsNothingSelected(t *testing.T) {
	b := newTestBuilder()

	result := b.Build(context.Background(), buildInput("", "", false, core.Step{Title: StepRunAdAuction}, nil))

	check.Nil(t, result.AuctionData)
}

func TestBuild_UnknownTimeBucketReturnsPlaceholders(t *testing.T) {
	b := newTestBuilder()

	result := b.Build(context.Background(), buildInput("div-200-2", "23:59:59", false, core.Step{Title: StepRunAdAuction}, nil))

	check.Equal(t, core.AdUnitSlots, len(result.AuctionData))
	for _, unit := range b.Catalog().AdUnits {
		check.Equal(t, 0, len(result.AuctionData[unit.Code]))
	}
	check.NotNil(t, result.ReceivedBids)
	check.Equal(t, 0, len(result.ReceivedBids))
	check.Equal(t, 0, len(result.NoBids))
	check.Equal(t, "div-200-2", result.AdsAndBidders.AdUnitCode)
	check.Equal(t, 0.0, result.AdsAndBidders.WinningBid)
}

func TestBuild_PopulatesOnlySelectedBranch(t *testing.T) {
	b := newTestBuilder()

	result := b.Build(context.Background(), buildInput("div-200-1", "10:05:00", false, core.Step{Title: StepRunAdAuction}, nil))

	check.Equal(t, core.AdUnitSlots, len(result.AuctionData))
	check.Equal(t, 0, len(result.AuctionData["div-200-2"]))
	check.Equal(t, 0, len(result.AuctionData["div-200-3"]))

	branch := result.AuctionData.Branch("div-200-1", "10:05:00", "https://ssp-top.example")
	check.Equal(t, 1, len(branch))
	events := branch["https://ssp-top.example"]
	check.Equal(t, 2, len(events))
	check.Equal(t, testStart, events[0].Time)
}

func TestBuild_RepeatedBuildIsValueEqual(t *testing.T) {
	b := newTestBuilder()
	step := core.Step{Title: StepGenerateBid}

	first := b.Build(context.Background(), buildInput("div-200-1", "10:00:00", false, core.Step{Title: StepRunAdAuction}, nil))
	second := b.Build(context.Background(), buildInput("div-200-1", "10:00:00", false, step, first.AuctionData))
	third := b.Build(context.Background(), buildInput("div-200-1", "10:00:00", false, step, second.AuctionData))

	check.Equal(t, second, third)

	fp2, err := core.Fingerprint(second.AuctionData)
	assert.NoError(t, err)
	fp3, err := core.Fingerprint(third.AuctionData)
	assert.NoError(t, err)
	check.Equal(t, fp2, fp3)
}

func TestBuild_StartTimeFollowsPreviousTree(t *testing.T) {
	b := newTestBuilder()
	first := b.Build(context.Background(), buildInput("div-200-1", "10:00:00", false, core.Step{Title: StepRunAdAuction}, nil))

	// A later clock must not shift an auction that has already started
	b.SetClock(func() time.Time { return time.UnixMilli(testStart + 60_000) })
	second := b.Build(context.Background(), buildInput("div-200-1", "10:00:00", false, core.Step{Title: StepLoadInterestGroup}, first.AuctionData))

	events := second.AuctionData.Branch("div-200-1", "10:00:00", "https://ssp-top.example")["https://ssp-top.example"]
	check.Equal(t, testStart, events[0].Time)
	check.True(t, events[len(events)-1].Time < testStart+60_000)
}

func TestBuild_SelectionChangeStartsFreshTree(t *testing.T) {
	b := newTestBuilder()
	first := playBuilder(b, "div-200-1", "10:00:00", false)

	result := b.Build(context.Background(), buildInput("div-200-3", "10:10:00", false, core.Step{Title: StepRunAdAuction}, first.AuctionData))

	check.Equal(t, 0, len(result.AuctionData["div-200-1"]))
	events := result.AuctionData.Branch("div-200-3", "10:10:00", "https://ssp-top.example")["https://ssp-top.example"]
	check.Equal(t, 2, len(events))
}

func TestBuild_SingleSellerViews(t *testing.T) {
	result := playBuilder(newTestBuilder(), "div-200-1", "10:00:00", false)

	check.True(t, len(result.ReceivedBids) > 0)
	check.Equal(t, []string{"https://ssp-top.example"}, result.AdsAndBidders.Bidders)
	check.True(t, result.AdsAndBidders.WinningBid >= core.MinBid)
	check.NotEqual(t, "", result.AdsAndBidders.WinningBidder)

	// One owner was excluded from GENERATE_BID
	check.Equal(t, 1, len(result.NoBids))
}

func TestBuild_MultiSeller(t *testing.T) {
	result := playBuilder(newTestBuilder(), "div-200-2", "10:05:00", true)

	branch := result.AuctionData.Branch("div-200-2", "10:05:00", "https://ssp-top.example")
	check.Equal(t, 3, len(branch))
	check.Equal(t, rotatedTestSellers(), result.AdsAndBidders.Bidders)

	topWins := eventsOfType(branch["https://ssp-top.example"], core.EventWin)
	check.Equal(t, 1, len(topWins))
	check.Equal(t, topWins[0].Bid, result.AdsAndBidders.WinningBid)
	check.Equal(t, topWins[0].OwnerOrigin, result.AdsAndBidders.WinningBidder)

	for _, bid := range result.ReceivedBids {
		check.Equal(t, "div-200-2", bid.AdUnitCode)
		check.NotEqual(t, "https://ssp-top.example", bid.Seller)
	}
}

func rotatedTestSellers() []string {
	return []string{"https://ssp-a.example", "https://ssp-b.example", "https://ssp-top.example"}
}

func TestBuild_DoesNotMutatePreviousTree(t *testing.T) {
	b := newTestBuilder()
	first := b.Build(context.Background(), buildInput("div-200-1", "10:00:00", false, core.Step{Title: StepRunAdAuction}, nil))
	before, err := core.Fingerprint(first.AuctionData)
	assert.NoError(t, err)

	_ = b.Build(context.Background(), buildInput("div-200-1", "10:00:00", false, core.Step{Title: StepLoadInterestGroup}, first.AuctionData))

	after, err := core.Fingerprint(first.AuctionData)
	assert.NoError(t, err)
	check.Equal(t, before, after)
}

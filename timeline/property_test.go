//go:build property
// +build property

package timeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cloudx-io/auctiontimeline/core"
)

// generatedInterestGroups spreads groups round-robin across owners.
func generatedInterestGroups(owners, groups int) []core.InterestGroup {
	igs := make([]core.InterestGroup, 0, groups)
	for i := 0; i < groups; i++ {
		igs = append(igs, core.InterestGroup{
			OwnerOrigin:       fmt.Sprintf("https://dsp-%d.example", i%owners),
			InterestGroupName: fmt.Sprintf("group-%d", i),
		})
	}
	return igs
}

func playGenerated(multi bool, adUnit string, igs []core.InterestGroup) *BuildResult {
	b := NewBuilder(core.DefaultCatalog(), Settings{}, nil)
	b.SetClock(func() time.Time { return time.UnixMilli(testStart) })

	var result *BuildResult
	var tree core.AuctionTree
	for _, step := range StepSequence(b.Catalog(), multi) {
		result = b.Build(context.Background(), BuildInput{
			Selection:      Selection{AdUnit: adUnit, TimeBucket: "10:00:00"},
			InterestGroups: igs,
			Advertisers:    distinctOwners(igs),
			IsMultiSeller:  multi,
			CurrentStep:    step,
			PreviousTree:   tree,
		})
		tree = result.AuctionData
	}
	return result
}

func TestAllocateOffsetsSortedAndBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("offsets are sorted and stay in range", prop.ForAll(
		func(seed uint64, count int, low int64, span int64) bool {
			offsets := core.AllocateOffsets(core.NewSeededRandSource(seed), count, low, low+span)
			if len(offsets) != count {
				return false
			}
			for i, offset := range offsets {
				if offset < low || offset > low+span {
					return false
				}
				if i > 0 && offsets[i-1] > offset {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
		gen.IntRange(0, 50),
		gen.Int64Range(0, 10_000),
		gen.Int64Range(0, 500),
	))

	properties.TestingRun(t)
}

func TestSynthesisProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("every seller's events are strictly ordered", prop.ForAll(
		func(owners, groups int, multi bool) bool {
			result := playGenerated(multi, "div-200-1", generatedInterestGroups(owners, groups))
			for _, events := range result.AuctionData.Branch("div-200-1", "10:00:00", "https://ssp-top.example") {
				for i := 1; i < len(events); i++ {
					if events[i-1].Time >= events[i].Time {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 5),
		gen.IntRange(1, 8),
		gen.Bool(),
	))

	properties.Property("no-bids and bidders partition the owners", prop.ForAll(
		func(owners, groups int, multi bool) bool {
			igs := generatedInterestGroups(owners, groups)
			result := playGenerated(multi, "div-200-2", igs)

			seen := make(map[string]int)
			for _, bid := range result.ReceivedBids {
				seen[bid.OwnerOrigin] = 1
			}
			for _, noBid := range result.NoBids {
				seen[noBid.Bidder]++
			}
			expected := distinctOwners(igs)
			if len(seen) != len(expected) {
				return false
			}
			for _, owner := range expected {
				if seen[owner] != 1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 5),
		gen.IntRange(1, 8),
		gen.Bool(),
	))

	properties.Property("top-level bids never reference the publisher", prop.ForAll(
		func(owners, groups int) bool {
			result := playGenerated(true, "div-200-3", generatedInterestGroups(owners, groups))
			branch := result.AuctionData.Branch("div-200-3", "10:00:00", "https://ssp-top.example")
			for _, e := range branch["https://ssp-top.example"] {
				if e.Type == core.EventTopLevelBid && e.ComponentSellerOrigin == "https://ssp-top.example" {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 5),
		gen.IntRange(1, 8),
	))

	properties.Property("replaying the last step is a no-op", prop.ForAll(
		func(owners, groups int, multi bool) bool {
			igs := generatedInterestGroups(owners, groups)
			result := playGenerated(multi, "div-200-1", igs)
			steps := StepSequence(core.DefaultCatalog(), multi)

			b := NewBuilder(core.DefaultCatalog(), Settings{}, nil)
			again := b.Build(context.Background(), BuildInput{
				Selection:      Selection{AdUnit: "div-200-1", TimeBucket: "10:00:00"},
				InterestGroups: igs,
				Advertisers:    distinctOwners(igs),
				IsMultiSeller:  multi,
				CurrentStep:    steps[len(steps)-1],
				PreviousTree:   result.AuctionData,
			})

			before, err := core.Fingerprint(result.AuctionData)
			if err != nil {
				return false
			}
			after, err := core.Fingerprint(again.AuctionData)
			if err != nil {
				return false
			}
			return before == after
		},
		gen.IntRange(1, 5),
		gen.IntRange(1, 8),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

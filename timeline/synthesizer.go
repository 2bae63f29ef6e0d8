package timeline

import (
	"log/slog"
	"slices"
	"sort"
	"strconv"

	"github.com/cloudx-io/auctiontimeline/core"
)

// DefaultPhaseWindowMs bounds the random spread of one phase's timestamps.
const DefaultPhaseWindowMs int64 = 250

// Settings tunes synthesis.
type Settings struct {
	PhaseWindowMs     int64
	BidFloor          float64
	AdjustmentFactors map[string]float64
}

// SynthesisInput is everything one phase transition depends on.
type SynthesisInput struct {
	AuctionID      string
	InterestGroups []core.InterestGroup
	Seller         string
	Advertisers    []string
	EventStartTime int64
	IsTopLevelBid  bool
	IsMultiSeller  bool
	CurrentStep    core.Step

	// PreviousEvents is this seller's history so far.
	PreviousEvents []core.AuctionEvent

	// CompleteAuctionEvents holds every seller's history; only read for top-level aggregation.
	CompleteAuctionEvents core.SellerEvents
}

// PhaseFunc emits the new events a phase implies. previous is the seller's
// history and must not be modified.
type PhaseFunc func(s *Synthesizer, in SynthesisInput, previous []core.AuctionEvent, randSource core.RandSource) []core.AuctionEvent

// Synthesizer turns the current step into new auction events for one seller.
type Synthesizer struct {
	settings      Settings
	phases        map[string]PhaseFunc
	keyValuePhase PhaseFunc
	newRandSource func(seed uint64) core.RandSource
	logger        *slog.Logger
}

// NewSynthesizer creates a synthesizer with the standard transition table.
func NewSynthesizer(settings Settings, logger *slog.Logger) *Synthesizer {
	if settings.PhaseWindowMs <= 0 {
		settings.PhaseWindowMs = DefaultPhaseWindowMs
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Synthesizer{
		settings: settings,
		phases: map[string]PhaseFunc{
			StepRunAdAuction:      runAdAuctionPhase,
			StepLoadInterestGroup: loadInterestGroupPhase,
			StepGenerateBid:       generateBidPhase,
			StepScoreAd:           scoreAdPhase,
		},
		keyValuePhase: keyValuePhase,
		newRandSource: core.NewSeededRandSource,
		logger:        logger,
	}
}

// Register adds or replaces the handler for a step title.
func (s *Synthesizer) Register(title string, phase PhaseFunc) {
	s.phases[title] = phase
}

// SetRandSourceFactory overrides how per-call random sources are created.
func (s *Synthesizer) SetRandSourceFactory(factory func(seed uint64) core.RandSource) {
	s.newRandSource = factory
}

func (s *Synthesizer) lookup(title string) (PhaseFunc, bool) {
	if phase, ok := s.phases[title]; ok {
		return phase, true
	}
	if isKeyValueStep(title) {
		return s.keyValuePhase, true
	}
	return nil, false
}

// Synthesize returns the seller's history extended with the events the current
// step implies, sorted by time. Unknown steps and phases already present in
// the history leave it unchanged. The input slices are never modified.
func (s *Synthesizer) Synthesize(in SynthesisInput) []core.AuctionEvent {
	previous := core.CloneEvents(in.PreviousEvents)
	step := in.CurrentStep

	phase, ok := s.lookup(step.Title)
	if !ok {
		s.logger.Debug("Unknown step, keeping previous events",
			slog.String("step", step.Title), slog.String("seller", in.Seller))
		return previous
	}

	key := phaseKey(step)
	if phaseApplied(previous, key) {
		return previous
	}

	randSource := s.newRandSource(core.ComputeSeed(
		in.AuctionID, in.Seller, step.Title, step.Description, step.SSP, strconv.Itoa(len(previous)),
	))

	fresh := phase(s, in, previous, randSource)
	if len(fresh) == 0 {
		return previous
	}

	for i := range fresh {
		fresh[i].Phase = key
		fresh[i].UniqueAuctionID = in.AuctionID
		fresh[i].TimestampAssigned = false
	}

	events := append(previous, fresh...)
	s.assignTimestamps(events, in.EventStartTime, randSource)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})

	return events
}

func phaseApplied(events []core.AuctionEvent, key string) bool {
	for _, e := range events {
		if e.Phase == key {
			return true
		}
	}
	return false
}

// assignTimestamps places every unassigned event after the last assigned one.
// Pending events get strictly increasing times in slice order.
func (s *Synthesizer) assignTimestamps(events []core.AuctionEvent, start int64, randSource core.RandSource) {
	lastOffset := int64(-1)
	pending := make([]int, 0, len(events))

	for i, e := range events {
		if e.TimestampAssigned {
			if offset := e.Time - start; offset > lastOffset {
				lastOffset = offset
			}
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		return
	}

	low := lastOffset + 1
	offsets := core.AllocateOffsets(randSource, len(pending), low, low+s.settings.PhaseWindowMs)

	// The first event of an auction marks its start.
	if lastOffset < 0 {
		base := offsets[0]
		for i := range offsets {
			offsets[i] -= base
		}
	}

	for n, idx := range pending {
		at := start + offsets[n] + int64(n)
		events[idx].Time = at
		events[idx].FormattedTime = core.FormatElapsed(start, at)
		events[idx].TimestampAssigned = true
	}
}

func runAdAuctionPhase(_ *Synthesizer, in SynthesisInput, _ []core.AuctionEvent, _ core.RandSource) []core.AuctionEvent {
	return []core.AuctionEvent{
		core.NewStartedEvent(in.Seller, in.Advertisers),
		core.NewConfigResolvedEvent(in.Seller, in.Advertisers),
	}
}

// loadInterestGroupPhase is skipped for component sellers so groups load once per multi-seller run.
func loadInterestGroupPhase(_ *Synthesizer, in SynthesisInput, _ []core.AuctionEvent, _ core.RandSource) []core.AuctionEvent {
	if in.IsMultiSeller && !in.IsTopLevelBid {
		return nil
	}

	events := make([]core.AuctionEvent, 0, len(in.InterestGroups))
	for _, ig := range in.InterestGroups {
		events = append(events, core.NewLoadedEvent(ig))
	}
	return events
}

// keyValuePhase emits fetch-start events for every resource, then the matching fetch-finish events.
func keyValuePhase(_ *Synthesizer, in SynthesisInput, _ []core.AuctionEvent, _ core.RandSource) []core.AuctionEvent {
	script := keyValueSubPhase(in.CurrentStep.Description) == subPhaseScript

	var urls []string
	if isBidderSide(in.CurrentStep.Title) {
		owners := distinctOwners(in.InterestGroups)
		if len(owners) == 0 {
			owners = slices.Clone(in.Advertisers)
		}
		for _, owner := range owners {
			if script {
				urls = append(urls, core.BiddingLogicURL(owner))
			} else {
				urls = append(urls, core.TrustedBiddingSignalsURL(owner))
			}
		}
	} else {
		config := core.NewAuctionConfig(in.Seller, in.Advertisers)
		if script {
			urls = append(urls, config.DecisionLogicURL)
		} else {
			urls = append(urls, config.TrustedScoringSignalsURL)
		}
	}

	events := make([]core.AuctionEvent, 0, len(urls)*2)
	for _, url := range urls {
		events = append(events, core.NewFetchStartEvent(in.Seller, in.Advertisers, url))
	}
	for _, url := range urls {
		events = append(events, core.NewFetchFinishEvent(in.Seller, in.Advertisers, url))
	}
	return events
}

func generateBidPhase(s *Synthesizer, in SynthesisInput, _ []core.AuctionEvent, randSource core.RandSource) []core.AuctionEvent {
	if in.IsTopLevelBid {
		return topLevelBids(in.Seller, in.CompleteAuctionEvents)
	}

	// With several bidders one sits this step out, so no-bid participants surface progressively
	excluded := ""
	if owners := distinctOwners(in.InterestGroups); len(owners) > 1 {
		excluded = owners[randSource.Intn(len(owners))]
		s.logger.Debug("Excluding bidder from step",
			slog.String("owner", excluded), slog.String("seller", in.Seller))
	}

	events := make([]core.AuctionEvent, 0, len(in.InterestGroups))
	for _, ig := range in.InterestGroups {
		if ig.OwnerOrigin == excluded {
			continue
		}
		events = append(events, core.NewBidEvent(ig, randSource))
	}
	return events
}

// topLevelBids turns every other seller's win into a top-level bid.
// The top-level seller never bids on its own result.
func topLevelBids(topLevelSeller string, complete core.SellerEvents) []core.AuctionEvent {
	sellers := make([]string, 0, len(complete))
	for seller := range complete {
		if seller != topLevelSeller {
			sellers = append(sellers, seller)
		}
	}
	sort.Strings(sellers)

	events := make([]core.AuctionEvent, 0, len(sellers))
	for _, seller := range sellers {
		for _, e := range complete[seller] {
			if e.Type == core.EventWin {
				events = append(events, core.NewTopLevelBidEvent(e, seller))
				break
			}
		}
	}
	return events
}

func scoreAdPhase(s *Synthesizer, _ SynthesisInput, previous []core.AuctionEvent, _ core.RandSource) []core.AuctionEvent {
	result := core.ScoreAuction(previous, s.settings.AdjustmentFactors, s.settings.BidFloor)
	if result.Winner == nil {
		return nil
	}
	return []core.AuctionEvent{core.NewWinEvent(*result.Winner)}
}

// distinctOwners lists interest group owners in first-seen order.
func distinctOwners(interestGroups []core.InterestGroup) []string {
	owners := make([]string, 0, len(interestGroups))
	seen := make(map[string]bool, len(interestGroups))
	for _, ig := range interestGroups {
		if !seen[ig.OwnerOrigin] {
			seen[ig.OwnerOrigin] = true
			owners = append(owners, ig.OwnerOrigin)
		}
	}
	return owners
}

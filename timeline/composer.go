package timeline

import (
	"log/slog"
	"slices"

	"github.com/cloudx-io/auctiontimeline/core"
)

// Composer runs the synthesizer across a multi-seller auction.
type Composer struct {
	synthesizer *Synthesizer
	sellers     []string // rotated, publisher last
	publisher   string
	logger      *slog.Logger
}

// ComposeInput carries one step of a multi-seller auction.
type ComposeInput struct {
	AdUnit         string
	TimeBucket     string
	InterestGroups []core.InterestGroup
	Advertisers    []string
	EventStartTime int64
	CurrentStep    core.Step

	// Previous holds every seller's history from the last build.
	Previous core.SellerEvents
}

// NewComposer creates a composer over sellers with publisher as the top-level seller.
func NewComposer(synthesizer *Synthesizer, sellers []string, publisher string, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		synthesizer: synthesizer,
		sellers:     core.RotateSellers(sellers, publisher),
		publisher:   publisher,
		logger:      logger,
	}
}

// Sellers returns the rotated seller list.
func (c *Composer) Sellers() []string {
	return slices.Clone(c.sellers)
}

// ActiveSellerIndex locates the seller the step applies to.
// An empty ssp addresses the publisher seller; an unknown one yields -1.
func (c *Composer) ActiveSellerIndex(step core.Step) int {
	if step.SSP == "" {
		return len(c.sellers) - 1
	}
	return slices.Index(c.sellers, step.SSP)
}

// Compose returns every seller's history after applying the current step to the active seller.
// Sellers other than the active one keep their previous events unchanged.
func (c *Composer) Compose(in ComposeInput) core.SellerEvents {
	result := make(core.SellerEvents, len(c.sellers))
	for _, seller := range c.sellers {
		result[seller] = core.CloneEvents(in.Previous[seller])
	}

	active := c.ActiveSellerIndex(in.CurrentStep)
	if active < 0 {
		c.logger.Debug("Step addresses unknown seller, keeping all sellers frozen",
			slog.String("ssp", in.CurrentStep.SSP), slog.String("step", in.CurrentStep.Title))
		return result
	}

	seller := c.sellers[active]
	result[seller] = c.synthesizer.Synthesize(SynthesisInput{
		AuctionID:             core.NewAuctionID(in.AdUnit, in.TimeBucket, seller),
		InterestGroups:        in.InterestGroups,
		Seller:                seller,
		Advertisers:           in.Advertisers,
		EventStartTime:        in.EventStartTime,
		IsTopLevelBid:         seller == c.publisher,
		IsMultiSeller:         true,
		CurrentStep:           in.CurrentStep,
		PreviousEvents:        result[seller],
		CompleteAuctionEvents: result,
	})

	return result
}

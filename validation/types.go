package validation

import (
	"github.com/cloudx-io/auctiontimeline/core"
)

// TimelineValidationInput contains everything needed to check a synthesized auction tree
type TimelineValidationInput struct {
	Tree core.AuctionTree

	// PublisherSeller is the top-level seller; empty disables the self-exclusion check
	PublisherSeller string

	// InterestGroups enables the no-bid completeness check when non-empty
	InterestGroups []core.InterestGroup
}

// TimelineValidationResult contains the outcome of every timeline check
type TimelineValidationResult struct {
	OrderingValid          bool
	PhaseOrderValid        bool
	WinnerValid            bool
	SelfExclusionValid     bool
	NoBidCompletenessValid bool
	SellersChecked         int
	EventsChecked          int
	ValidationDetails      []string
}

// IsValid returns true if all timeline checks passed
func (r *TimelineValidationResult) IsValid() bool {
	return r.OrderingValid && r.PhaseOrderValid && r.WinnerValid && r.SelfExclusionValid && r.NoBidCompletenessValid
}

package timeline

import (
	"strings"

	"github.com/cloudx-io/auctiontimeline/core"
)

// Step titles issued by the driver.
const (
	StepRunAdAuction      = "RUN_AD_AUCTION"
	StepLoadInterestGroup = "LOAD_INTEREST_GROUP"
	StepKeyValueDSPServer = "KEY_VALUE_DSP_SERVER"
	StepKeyValueSSPServer = "KEY_VALUE_SSP_SERVER"
	StepGenerateBid       = "GENERATE_BID"
	StepScoreAd           = "SCORE_AD"
)

// Descriptions distinguishing the two key-value sub-phases.
const (
	DescriptionFetchSignals = "Fetch key-value signals"
	DescriptionFetchScript  = "Fetch worklet script"
)

const (
	subPhaseSignals = "signals"
	subPhaseScript  = "script"
)

// isKeyValueStep matches titles of the form KEY_VALUE_*_SERVER.
func isKeyValueStep(title string) bool {
	return strings.HasPrefix(title, "KEY_VALUE_") && strings.HasSuffix(title, "_SERVER") &&
		len(title) > len("KEY_VALUE_")+len("_SERVER")
}

// isBidderSide reports whether a key-value step fetches bidder resources.
func isBidderSide(title string) bool {
	return strings.Contains(strings.TrimSuffix(strings.TrimPrefix(title, "KEY_VALUE_"), "_SERVER"), "DSP")
}

// keyValueSubPhase decodes the sub-phase from a step description.
func keyValueSubPhase(description string) string {
	lower := strings.ToLower(description)
	if strings.Contains(lower, "script") || strings.Contains(lower, "logic") {
		return subPhaseScript
	}
	return subPhaseSignals
}

// phaseKey names the phase a step produces events for.
func phaseKey(step core.Step) string {
	if isKeyValueStep(step.Title) {
		return step.Title + "/" + keyValueSubPhase(step.Description)
	}
	return step.Title
}

// StepSequence returns the steps a driver issues to play one auction through.
// In multi-seller mode every component seller runs first and the publisher seller last.
func StepSequence(catalog core.Catalog, isMultiSeller bool) []core.Step {
	sellers := []string{catalog.PublisherSeller}
	if isMultiSeller {
		sellers = catalog.RotatedSellers()
	}

	steps := make([]core.Step, 0, len(sellers)*8)
	for _, seller := range sellers {
		ssp := ""
		if isMultiSeller {
			ssp = seller
		}
		steps = append(steps,
			core.Step{Title: StepRunAdAuction, Description: "Start the auction", SSP: ssp},
			core.Step{Title: StepLoadInterestGroup, Description: "Load interest groups", SSP: ssp},
			core.Step{Title: StepKeyValueDSPServer, Description: DescriptionFetchSignals, SSP: ssp},
			core.Step{Title: StepKeyValueDSPServer, Description: DescriptionFetchScript, SSP: ssp},
			core.Step{Title: StepGenerateBid, Description: "Generate bids", SSP: ssp},
			core.Step{Title: StepKeyValueSSPServer, Description: DescriptionFetchSignals, SSP: ssp},
			core.Step{Title: StepKeyValueSSPServer, Description: DescriptionFetchScript, SSP: ssp},
			core.Step{Title: StepScoreAd, Description: "Score ads", SSP: ssp},
		)
	}
	return steps
}

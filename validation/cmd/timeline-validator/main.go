package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cloudx-io/auctiontimeline/core"
	timelineapi "github.com/cloudx-io/auctiontimeline/timelineapi"
	"github.com/cloudx-io/auctiontimeline/timelineapi/parsing"
	"github.com/cloudx-io/auctiontimeline/validation"
)

func main() {
	// Define CLI flags
	var (
		snapshotInput       = flag.String("snapshot", "", "Snapshot (file path or inline; JSON, base64 CBOR or gzipped base64 CBOR)")
		interestGroupsInput = flag.String("interest-groups", "", "Interest groups JSON array (file path or inline JSON)")
		publisherSeller     = flag.String("publisher", "", "Top-level seller URL for the self-exclusion check")
		outputFormat        = flag.String("format", "text", "Output format: text or json")
		help                = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	// Show help
	if *help {
		showUsage()
		os.Exit(0)
	}

	if *snapshotInput == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: --snapshot is required\n")
		os.Exit(1)
	}

	snapshot, err := readSnapshot(readInput(*snapshotInput))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading snapshot: %v\n", err)
		os.Exit(2)
	}

	var interestGroups []core.InterestGroup
	if *interestGroupsInput != "" {
		if err := json.Unmarshal(readInput(*interestGroupsInput), &interestGroups); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading interest groups: %v\n", err)
			os.Exit(2)
		}
	}

	// Validate using library
	result, err := validation.ValidateTimeline(&validation.TimelineValidationInput{
		Tree:            snapshot.Tree,
		PublisherSeller: *publisherSeller,
		InterestGroups:  interestGroups,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	// Output results
	if *outputFormat == "json" {
		outputJSON(snapshot, result)
	} else {
		outputText(snapshot, result)
	}

	// Exit with appropriate code
	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Auction Timeline Validator")
	fmt.Println()
	fmt.Println("Checks a saved auction timeline snapshot for ordering, phase and winner consistency.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  timeline-validator --snapshot <snapshot> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --snapshot <snapshot>             Snapshot JSON, base64 CBOR or gzipped base64 CBOR")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --interest-groups <json>          Interest groups used for the build (enables no-bid check)")
	fmt.Println("  --publisher <url>                 Top-level seller URL")
	fmt.Println("  --format <text|json>              Output format (default: text)")
	fmt.Println("  --help                            Show this help message")
	fmt.Println()
	fmt.Println("Input Format:")
	fmt.Println("  Each flag accepts either a file path or an inline value.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  auction-timeline history --ad-unit div-200-1 --time-bucket 10:00:00 --format cbor > snap.txt")
	fmt.Println("  timeline-validator --snapshot snap.txt --publisher https://ssp-top.example")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Validation passed")
	fmt.Println("  1 - Validation failed")
	fmt.Println("  2 - Invalid input or runtime error")
}

func readInput(input string) []byte {
	// Try reading as file first
	if data, err := os.ReadFile(input); err == nil {
		return bytes.TrimSpace(data)
	}
	// Treat as inline value
	return []byte(input)
}

// readSnapshot accepts a JSON snapshot, a base64 CBOR envelope or a gzipped one.
func readSnapshot(data []byte) (*timelineapi.Snapshot, error) {
	if len(data) > 0 && data[0] == '{' {
		var snapshot timelineapi.Snapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return nil, fmt.Errorf("parse snapshot JSON: %w", err)
		}
		return &snapshot, nil
	}

	if raw, err := timelineapi.SnapshotCBORBase64(data).Decode(); err == nil {
		if snapshot, err := parsing.DecodeSnapshot(raw); err == nil {
			return snapshot, nil
		}
	}

	raw, err := timelineapi.SnapshotCBORGzip(data).Decompress()
	if err != nil {
		return nil, fmt.Errorf("snapshot is neither JSON nor CBOR: %w", err)
	}
	return parsing.DecodeSnapshot(raw)
}

func outputText(snapshot *timelineapi.Snapshot, result *validation.TimelineValidationResult) {
	fmt.Println("Auction Timeline Validator")
	fmt.Println("==========================")
	fmt.Println()

	fmt.Printf("Snapshot: %s %s (step %s)\n", snapshot.AdUnit, snapshot.TimeBucket, snapshot.Step.Title)
	fmt.Printf("Fingerprint: %s\n", snapshot.Fingerprint)

	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Sellers Checked:           %d\n", result.SellersChecked)
	fmt.Printf("  Events Checked:            %d\n", result.EventsChecked)
	fmt.Printf("  Ordering Valid:            %v\n", result.OrderingValid)
	fmt.Printf("  Phase Order Valid:         %v\n", result.PhaseOrderValid)
	fmt.Printf("  Winner Valid:              %v\n", result.WinnerValid)
	fmt.Printf("  Self Exclusion Valid:      %v\n", result.SelfExclusionValid)
	fmt.Printf("  No-Bid Completeness Valid: %v\n", result.NoBidCompletenessValid)

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("==========================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
		fmt.Println("Exit Code: 0")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
		fmt.Println("Exit Code: 1")
	}
}

func outputJSON(snapshot *timelineapi.Snapshot, result *validation.TimelineValidationResult) {
	output := map[string]any{
		"valid":                     result.IsValid(),
		"ad_unit":                   snapshot.AdUnit,
		"time_bucket":               snapshot.TimeBucket,
		"fingerprint":               snapshot.Fingerprint,
		"sellers_checked":           result.SellersChecked,
		"events_checked":            result.EventsChecked,
		"ordering_valid":            result.OrderingValid,
		"phase_order_valid":         result.PhaseOrderValid,
		"winner_valid":              result.WinnerValid,
		"self_exclusion_valid":      result.SelfExclusionValid,
		"no_bid_completeness_valid": result.NoBidCompletenessValid,
		"details":                   result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}

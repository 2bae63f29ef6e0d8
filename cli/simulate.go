package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/cloudx-io/auctiontimeline/core"
	"github.com/cloudx-io/auctiontimeline/store"
	"github.com/cloudx-io/auctiontimeline/telemetry"
	"github.com/cloudx-io/auctiontimeline/timeline"
	timelineapi "github.com/cloudx-io/auctiontimeline/timelineapi"
)

// stepPicker returns the index of the next step to apply, or -1 to stop.
type stepPicker func(steps []core.Step, applied []bool) (int, error)

type simulateOptions struct {
	selectionFlags
	interactive bool
	steps       int
	format      string
	trace       bool
	sessionID   string

	picker stepPicker
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{picker: promptStep}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the auction step script and print the timeline",
		Long: `Run the default driver script (or pick steps interactively) against one
ad unit and time bucket, then print the synthesized timeline.

With --db every step's tree is saved as a snapshot for later export or history.

Examples:
  auction-timeline simulate --ad-unit div-200-2 --time-bucket 10:05:00
  auction-timeline simulate --multi-seller --steps 8 --format json
  auction-timeline simulate --interactive --db ./timeline.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, root, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick each step from a menu")
	cmd.Flags().IntVar(&opts.steps, "steps", 0, "apply only the first N scripted steps (0 applies all)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format (text or json)")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "print OpenTelemetry spans to stderr")
	cmd.Flags().StringVar(&opts.sessionID, "session", "cli", "session id recorded with saved snapshots")

	return cmd
}

func runSimulate(cmd *cobra.Command, root *rootOptions, opts *simulateOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format: must be 'text' or 'json'")
	}
	if opts.steps < 0 {
		return fmt.Errorf("invalid steps: must not be negative")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := root.logger(cmd)

	if opts.trace {
		shutdown, err := telemetry.InitTracerWriter("auction-timeline", cmd.ErrOrStderr(), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("Failed to shut down tracing", "error", err)
			}
		}()
	}

	s, err := newSession(root, &opts.selectionFlags, logger)
	if err != nil {
		return err
	}

	var snapshots *store.SQLiteStore
	if root.dbPath != "" {
		snapshots, err = store.Open(root.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer snapshots.Close()
	}

	applyStep := func(step core.Step) error {
		result := s.apply(ctx, step)
		if snapshots == nil {
			return nil
		}
		snapshot, err := newSnapshot(opts, step, result.AuctionData)
		if err != nil {
			return err
		}
		if _, err := snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			return err
		}
		return nil
	}

	script := s.steps()
	if opts.interactive {
		if err := runInteractive(cmd.ErrOrStderr(), script, opts.picker, applyStep); err != nil {
			return err
		}
	} else {
		if opts.steps > 0 && opts.steps < len(script) {
			script = script[:opts.steps]
		}
		for _, step := range script {
			if err := applyStep(step); err != nil {
				return err
			}
		}
	}

	if s.result == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No steps applied.")
		return nil
	}

	if opts.format == "json" {
		return writeSimulationJSON(cmd.OutOrStdout(), s.result)
	}
	return writeTimelineText(cmd.OutOrStdout(), s.flags.selection(), s.builder.Catalog(), s.result)
}

// runInteractive lets the user pick steps until they stop or every step is applied.
func runInteractive(w io.Writer, script []core.Step, picker stepPicker, applyStep func(core.Step) error) error {
	applied := make([]bool, len(script))
	for {
		idx, err := picker(script, applied)
		if err != nil {
			return err
		}
		if idx < 0 {
			return nil
		}
		if idx >= len(script) {
			return fmt.Errorf("step %d out of range", idx)
		}

		if err := applyStep(script[idx]); err != nil {
			return err
		}
		applied[idx] = true
		fmt.Fprintf(w, "Applied %s\n", stepLabel(script[idx]))

		done := true
		for _, a := range applied {
			done = done && a
		}
		if done {
			return nil
		}
	}
}

func promptStep(steps []core.Step, applied []bool) (int, error) {
	items := make([]string, 0, len(steps)+1)
	for i, step := range steps {
		mark := " "
		if applied[i] {
			mark = "x"
		}
		items = append(items, fmt.Sprintf("[%s] %s", mark, stepLabel(step)))
	}
	items = append(items, "Finish")

	prompt := promptui.Select{
		Label: "Next auction step",
		Items: items,
		Size:  10,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			os.Exit(0)
		}
		return 0, err
	}
	if idx == len(steps) {
		return -1, nil
	}
	return idx, nil
}

func stepLabel(step core.Step) string {
	label := step.Title
	if step.Description != "" {
		label += " (" + step.Description + ")"
	}
	if step.SSP != "" {
		label += " @ " + step.SSP
	}
	return label
}

func newSnapshot(opts *simulateOptions, step core.Step, tree core.AuctionTree) (*timelineapi.Snapshot, error) {
	fingerprint, err := core.Fingerprint(tree)
	if err != nil {
		return nil, err
	}
	return &timelineapi.Snapshot{
		SessionID:     opts.sessionID,
		AdUnit:        opts.adUnit,
		TimeBucket:    opts.timeBucket,
		IsMultiSeller: opts.multiSeller,
		Step:          step,
		Fingerprint:   fingerprint,
		Tree:          tree,
		CreatedAtMs:   nowMillis(),
	}, nil
}

type simulationJSON struct {
	Fingerprint string `json:"fingerprint"`
	*timeline.BuildResult
}

func writeSimulationJSON(w io.Writer, result *timeline.BuildResult) error {
	fingerprint, err := core.Fingerprint(result.AuctionData)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(simulationJSON{Fingerprint: fingerprint, BuildResult: result})
}

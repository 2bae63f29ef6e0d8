package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "auction-timeline",
		Short: "Step through synthesized Protected Audience auctions",
		Long: `auction-timeline synthesizes the event timeline of an on-device ad auction
one driver step at a time, for single-seller and multi-seller configurations.

Examples:
  auction-timeline simulate --ad-unit div-200-1 --time-bucket 10:00:00
  auction-timeline simulate --multi-seller --interactive
  auction-timeline export --view no-bids --format csv > no-bids.csv`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", getEnvOrDefault("AUCTION_TIMELINE_CONFIG", ""), "config file path")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", getEnvOrDefault("AUCTION_TIMELINE_DB", ""), "snapshot history database path")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine decisions to stderr")

	cmd.AddCommand(newSimulateCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevelFlag string

	// logLevel is the process-wide log level. The watch loop adjusts it
	// when the config file changes.
	logLevel slog.LevelVar

	// RootCmd is the root command for kitwatch
	RootCmd = &cobra.Command{
		Use:   "kitwatch",
		Short: "Resilient filesystem watcher for kit directories",
		Long: `kitwatch watches a kit directory tree (scripts, extensions, agents)
and emits debounced reload events as content files change.

The watcher survives backend failures: the watch loop restarts with
exponential backoff, and kits or content directories created while
watching are picked up automatically. Bursts of events for one file
coalesce into a single reload; event storms (branch switches, bulk
operations) collapse into one full reload.

Emitted events are recorded in a local SQLite journal so reload
activity can be inspected after the fact.

Examples:
  # Watch in the foreground (Ctrl+C to stop)
  kitwatch watch

  # Run as a background daemon
  kitwatch watch --daemon

  # Stop the daemon
  kitwatch watch --stop

  # Check daemon status and recent activity
  kitwatch status

  # List recent reload events
  kitwatch history --limit 50`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevelFlag, os.Stderr)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("kitwatch: resilient filesystem watcher for kit directories")
			fmt.Println()
			fmt.Println("Run 'kitwatch watch' to start watching.")
			fmt.Println("Run 'kitwatch --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level (debug, info, warn, error)")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(historyCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// setupLogging installs the process-wide slog handler writing to w.
func setupLogging(level string, w *os.File) error {
	switch level {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		return fmt.Errorf("invalid log level %q", level)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: &logLevel})
	slog.SetDefault(slog.New(handler))
	return nil
}

package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/kitwatch/internal/config"
	"github.com/blackwell-systems/kitwatch/internal/output"
	"github.com/blackwell-systems/kitwatch/internal/store"
)

var (
	historyLimit     int
	historyPruneDays int

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recent reload events from the journal",
		Example: `  # Last 20 events
  kitwatch history

  # Last 100 events
  kitwatch history --limit 100

  # Drop journal entries older than 30 days
  kitwatch history --prune 30`,
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of events to show")
	historyCmd.Flags().IntVar(&historyPruneDays, "prune", 0, "delete journal entries older than N days")
}

func runHistory(cmd *cobra.Command, args []string) error {
	settings := config.Load()

	if _, err := os.Stat(settings.JournalPath); os.IsNotExist(err) {
		fmt.Println("No reload events recorded.")
		return nil
	}

	st, err := store.New(settings.JournalPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer st.Close()
	if err := st.CreateSchema(); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}

	if historyPruneDays > 0 {
		cutoff := time.Now().Add(-time.Duration(historyPruneDays) * 24 * time.Hour)
		pruned, err := st.PruneBefore(cutoff)
		if err != nil {
			return fmt.Errorf("failed to prune journal: %w", err)
		}
		fmt.Printf("Pruned %d journal entries older than %d days\n", pruned, historyPruneDays)
	}

	records, err := st.RecentReloadEvents(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	fmt.Print(output.RenderHistoryTable(records))
	return nil
}

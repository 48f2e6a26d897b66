package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/kitwatch/internal/config"
	"github.com/blackwell-systems/kitwatch/internal/kit"
	"github.com/blackwell-systems/kitwatch/internal/output"
	"github.com/blackwell-systems/kitwatch/internal/store"
)

var (
	statusPIDFile string

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and recent reload activity",
		Long: `Report whether the watch daemon is running, what the watcher covers,
and a summary of reload events journaled in the last 24 hours.`,
		RunE: runStatus,
	}
)

func init() {
	statusCmd.Flags().StringVar(&statusPIDFile, "pid-file", "", "PID file path (default: ~/.kitwatch/watch.pid)")
}

// statusPIDPath returns the explicit --pid-file value or the default, so
// a daemon started with a custom PID file can still be inspected.
func statusPIDPath() (string, error) {
	if statusPIDFile != "" {
		return statusPIDFile, nil
	}
	return getDefaultPIDFile()
}

func runStatus(cmd *cobra.Command, args []string) error {
	settings := config.Load()

	pidFile, err := statusPIDPath()
	if err != nil {
		return err
	}
	running, err := isDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running {
		fmt.Println("Daemon:   running")
	} else {
		fmt.Println("Daemon:   not running")
	}
	fmt.Printf("Kit root: %s\n", settings.KitRoot)

	ws := kit.Discover(settings.KitRoot)
	fmt.Printf("Kits:     %d (%d scripts directories present)\n", len(ws.Extensions), len(ws.Scripts))

	if _, err := os.Stat(settings.JournalPath); os.IsNotExist(err) {
		fmt.Println("Journal:  empty (no events recorded yet)")
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

	counts, err := st.CountsByKind(time.Now().Add(-24 * time.Hour))
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	fmt.Printf("Last 24h: %s\n", output.RenderKindSummary(counts))

	last, err := st.LastReloadAt()
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	if !last.IsZero() {
		fmt.Printf("Latest:   %s\n", last.Local().Format(time.RFC1123))
	}

	return nil
}

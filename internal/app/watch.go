package app

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/kitwatch/internal/config"
	"github.com/blackwell-systems/kitwatch/internal/kit"
	"github.com/blackwell-systems/kitwatch/internal/store"
	"github.com/blackwell-systems/kitwatch/internal/watcher"
)

// journalFlushInterval batches journal writes to limit I/O.
const journalFlushInterval = 5 * time.Second

var (
	watchRoot        string
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool
	watchNoJournal   bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Watch the kit tree and emit reload events",
		Long: `Start watching the kit directory tree for content changes.

Each kit under the root may contain scripts, extensions, and agents
directories. Relevant file changes (*.ts, *.js, *.md by default) are
debounced and emitted as reload events; bursts collapse per file and
event storms collapse into a single full reload. Events are logged and
recorded in the reload journal.

Watch modes:
  • Foreground (default): run in the current terminal, Ctrl+C to stop
  • Daemon: run as a background process
  • Stop: stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  kitwatch watch

  # Watch a specific kit root
  kitwatch watch --root ~/kits

  # Run as background daemon
  kitwatch watch --daemon

  # Stop running daemon
  kitwatch watch --stop`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().StringVar(&watchRoot, "root", "", "kit root directory (default: from config)")
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.kitwatch/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.kitwatch/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().BoolVar(&watchNoJournal, "no-journal", false, "do not record reload events in the journal")

	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}

	if watchLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = defaultLog
	}

	if watchStop {
		return stopWatchDaemon()
	}

	if watchDaemon {
		return startWatchDaemon()
	}

	settings := config.Load()
	if watchRoot != "" {
		settings.KitRoot = watchRoot
	}

	if watchDaemonChild {
		defer os.Remove(watchPIDFile)
	} else {
		fmt.Printf("Watching %s (press Ctrl+C to stop)\n", settings.KitRoot)
	}

	return runWatchLoop(settings)
}

func stopWatchDaemon() error {
	running, err := isDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	if err := stopDaemon(watchPIDFile); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	fmt.Println("Daemon stopped")

	return nil
}

func startWatchDaemon() error {
	if err := startDaemon(watchPIDFile, watchLogFile); err != nil {
		return err
	}

	fmt.Println("Watch daemon started")
	fmt.Printf("  PID file: %s\n", watchPIDFile)
	fmt.Printf("  Log file: %s\n", watchLogFile)
	fmt.Println()
	fmt.Println("To stop: kitwatch watch --stop")

	return nil
}

// runWatchLoop wires config, journal, policy, and engine together and
// drains reload events until SIGINT/SIGTERM.
func runWatchLoop(settings config.Settings) error {
	var st *store.Store
	if !watchNoJournal {
		if err := ensureParentDir(settings.JournalPath); err != nil {
			return err
		}
		var err error
		st, err = store.New(settings.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer st.Close()
		if err := st.CreateSchema(); err != nil {
			return fmt.Errorf("failed to create journal schema: %w", err)
		}
	}

	engineSettings := watcher.Settings{
		InitialBackoff:      settings.InitialBackoff(),
		MaxBackoff:          settings.MaxBackoff(),
		MaxNotifyErrors:     settings.MaxNotifyErrors,
		HealthCheckInterval: settings.HealthCheckInterval(),
	}

	events := make(chan kit.ReloadEvent, 64)
	policy := kit.NewScriptPolicy(settings.KitRoot, settings.Patterns, settings.Debounce(), settings.StormThreshold)
	engine := watcher.New(events, policy, engineSettings)
	if err := engine.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer engine.Close()

	// A second engine hot-reloads the log level when the config file
	// changes while watching.
	configEvents := make(chan struct{}, 1)
	if path := config.DefaultPath(); path != "" {
		configPolicy := watcher.NewSingleFilePolicy("config", path, settings.Debounce(), struct{}{})
		configEngine := watcher.New(configEvents, configPolicy, engineSettings)
		if err := configEngine.Start(); err == nil {
			defer configEngine.Close()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	var pending []store.ReloadRecord
	flush := func() {
		if st == nil || len(pending) == 0 {
			return
		}
		if err := st.InsertReloadEvents(pending); err != nil {
			slog.Warn("failed to journal reload events", "count", len(pending), "error", err)
			return
		}
		pending = pending[:0]
	}

	ticker := time.NewTicker(journalFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			slog.Info("reload event",
				"watcher", "scripts",
				"kind", ev.Kind.String(),
				"path", ev.Path)
			if st != nil {
				pending = append(pending, store.ReloadRecord{
					Watcher:    "scripts",
					Kind:       ev.Kind.String(),
					Path:       ev.Path,
					RecordedAt: time.Now(),
				})
			}

		case <-configEvents:
			reloadLogLevel()

		case <-ticker.C:
			flush()

		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig.String())
			flush()
			return nil
		}
	}
}

// reloadLogLevel re-reads the config file and applies its log level.
// Structural settings (debounce, backoff, root) apply on the next start.
func reloadLogLevel() {
	level := config.Load().LogLevel
	if level == "" {
		level = logLevelFlag
	}
	slog.Info("config file changed, reloading log level", "level", level)
	if err := setupLogging(level, os.Stderr); err != nil {
		slog.Warn("failed to reload log level", "error", err)
	}
}

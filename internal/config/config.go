// Package config loads kitwatch runtime settings.
//
// Precedence, lowest to highest: built-in defaults, the YAML config file
// (~/.kitwatch/config.yaml by default), then KITWATCH_* environment
// variables. Out-of-range values are clamped rather than rejected so a bad
// config never prevents the watcher from starting.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds all runtime tunables. Durations are expressed in
// milliseconds in the file and environment.
type Settings struct {
	DebounceMS       int      `yaml:"debounce_ms"`
	StormThreshold   int      `yaml:"storm_threshold"`
	InitialBackoffMS int      `yaml:"initial_backoff_ms"`
	MaxBackoffMS     int      `yaml:"max_backoff_ms"`
	MaxNotifyErrors  int      `yaml:"max_notify_errors"`
	HealthCheckMS    int      `yaml:"health_check_interval_ms"`
	KitRoot          string   `yaml:"kit_root"`
	Patterns         []string `yaml:"patterns"`
	JournalPath      string   `yaml:"journal_path"`
	LogLevel         string   `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Settings {
	home, _ := os.UserHomeDir()
	return Settings{
		DebounceMS:       500,
		StormThreshold:   50,
		InitialBackoffMS: 100,
		MaxBackoffMS:     30000,
		MaxNotifyErrors:  5,
		HealthCheckMS:    500,
		KitRoot:          filepath.Join(home, ".scriptkit", "kit"),
		Patterns:         []string{"*.ts", "*.js", "*.md"},
		JournalPath:      filepath.Join(home, ".kitwatch", "kitwatch.db"),
	}
}

// DefaultPath returns the default config file location, or "" when the
// home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kitwatch", "config.yaml")
}

// Load resolves settings from the default config file location.
func Load() Settings {
	return LoadFrom(DefaultPath())
}

// LoadFrom resolves settings using the given config file. A missing file
// is fine; a malformed one is ignored with a warning.
func LoadFrom(path string) Settings {
	s := Default()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &s); err != nil {
				slog.Warn("ignoring malformed config file", "path", path, "error", err)
				s = Default()
			}
		}
	}

	applyEnv(&s)
	s.clamp()
	return s
}

func applyEnv(s *Settings) {
	envInt("KITWATCH_DEBOUNCE_MS", &s.DebounceMS)
	envInt("KITWATCH_STORM_THRESHOLD", &s.StormThreshold)
	envInt("KITWATCH_INITIAL_BACKOFF_MS", &s.InitialBackoffMS)
	envInt("KITWATCH_MAX_BACKOFF_MS", &s.MaxBackoffMS)
	envInt("KITWATCH_MAX_NOTIFY_ERRORS", &s.MaxNotifyErrors)
	envInt("KITWATCH_HEALTH_CHECK_MS", &s.HealthCheckMS)
	if v := os.Getenv("KITWATCH_KIT_ROOT"); v != "" {
		s.KitRoot = v
	}
	if v := os.Getenv("KITWATCH_JOURNAL"); v != "" {
		s.JournalPath = v
	}
	if v := os.Getenv("KITWATCH_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid numeric override", "var", key, "value", v)
		return
	}
	*dst = n
}

// clamp floors every numeric setting into its valid range.
func (s *Settings) clamp() {
	if s.DebounceMS < 1 {
		s.DebounceMS = 1
	}
	if s.StormThreshold < 1 {
		s.StormThreshold = 1
	}
	if s.InitialBackoffMS < 1 {
		s.InitialBackoffMS = 1
	}
	if s.MaxBackoffMS < s.InitialBackoffMS {
		s.MaxBackoffMS = s.InitialBackoffMS
	}
	if s.MaxNotifyErrors < 1 {
		s.MaxNotifyErrors = 1
	}
	if s.HealthCheckMS < 1 {
		s.HealthCheckMS = 1
	}
}

// Debounce returns the debounce window as a duration.
func (s Settings) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// InitialBackoff returns the initial restart backoff as a duration.
func (s Settings) InitialBackoff() time.Duration {
	return time.Duration(s.InitialBackoffMS) * time.Millisecond
}

// MaxBackoff returns the backoff cap as a duration.
func (s Settings) MaxBackoff() time.Duration {
	return time.Duration(s.MaxBackoffMS) * time.Millisecond
}

// HealthCheckInterval returns the control-loop wake interval as a duration.
func (s Settings) HealthCheckInterval() time.Duration {
	return time.Duration(s.HealthCheckMS) * time.Millisecond
}

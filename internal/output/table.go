// Package output provides terminal output utilities for kitwatch.
//
// This package includes:
//   - Table rendering for the reload journal (history, status summaries)
//   - Human-readable relative-time formatting
//
// All rendering uses ASCII characters and ANSI color codes for terminal
// output. Colors are disabled when stdout is not a TTY or NO_COLOR is set.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/kitwatch/internal/store"
)

// ANSI color codes for reload-event kinds.
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderHistoryTable renders journal records, newest first. Records are
// expected pre-sorted by the store query.
func RenderHistoryTable(records []store.ReloadRecord) string {
	if len(records) == 0 {
		return "No reload events recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-16s %-10s %-13s %s\n",
		"When", "Watcher", "Event", "Path"))
	sb.WriteString(strings.Repeat("─", 76))
	sb.WriteString("\n")

	for _, r := range records {
		path := r.Path
		if path == "" {
			path = "—"
		}
		kind := colorize(kindColor(r.Kind), fmt.Sprintf("%-13s", r.Kind))
		sb.WriteString(fmt.Sprintf("%-16s %-10s %s %s\n",
			formatRelativeTime(r.RecordedAt),
			truncate(r.Watcher, 10),
			kind,
			truncate(path, 48)))
	}

	return sb.String()
}

// RenderKindSummary renders per-kind counts as a single line, e.g.
// "changed: 12, created: 3".
func RenderKindSummary(counts []store.KindCount) string {
	if len(counts) == 0 {
		return "no reload events"
	}

	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s: %d", c.Kind, c.Count))
	}
	return strings.Join(parts, ", ")
}

// kindColor returns the ANSI color for a reload-event kind.
func kindColor(kind string) string {
	switch strings.ToLower(kind) {
	case "created":
		return colorGreen
	case "deleted":
		return colorYellow
	case "full-reload":
		return colorRed
	default:
		return colorGray
	}
}

// formatRelativeTime converts a timestamp to a human-readable relative string.
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	default:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	}
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

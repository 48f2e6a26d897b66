package output

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/kitwatch/internal/store"
)

func TestRenderHistoryTableEmpty(t *testing.T) {
	got := RenderHistoryTable(nil)
	if got != "No reload events recorded.\n" {
		t.Errorf("RenderHistoryTable(nil) = %q, want empty message", got)
	}
}

func TestRenderHistoryTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	records := []store.ReloadRecord{
		{Watcher: "scripts", Kind: "changed", Path: "/kit/main/scripts/a.ts", RecordedAt: time.Now().Add(-2 * time.Minute)},
		{Watcher: "scripts", Kind: "full-reload", RecordedAt: time.Now().Add(-time.Hour)},
	}

	got := RenderHistoryTable(records)

	if !strings.Contains(got, "When") || !strings.Contains(got, "Event") {
		t.Errorf("RenderHistoryTable() missing header:\n%s", got)
	}
	if !strings.Contains(got, "/kit/main/scripts/a.ts") {
		t.Errorf("RenderHistoryTable() missing path:\n%s", got)
	}
	if !strings.Contains(got, "full-reload") {
		t.Errorf("RenderHistoryTable() missing kind:\n%s", got)
	}
	// Full reloads have no path.
	if !strings.Contains(got, "—") {
		t.Errorf("RenderHistoryTable() missing placeholder for empty path:\n%s", got)
	}
}

func TestRenderKindSummary(t *testing.T) {
	tests := []struct {
		name   string
		counts []store.KindCount
		want   string
	}{
		{"empty", nil, "no reload events"},
		{"single", []store.KindCount{{Kind: "changed", Count: 3}}, "changed: 3"},
		{
			"multiple",
			[]store.KindCount{{Kind: "changed", Count: 3}, {Kind: "deleted", Count: 1}},
			"changed: 3, deleted: 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderKindSummary(tt.counts); got != tt.want {
				t.Errorf("RenderKindSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"seconds", now.Add(-30 * time.Second), "just now"},
		{"one minute", now.Add(-90 * time.Second), "1 minute ago"},
		{"minutes", now.Add(-5 * time.Minute), "5 minutes ago"},
		{"one hour", now.Add(-90 * time.Minute), "1 hour ago"},
		{"hours", now.Add(-5 * time.Hour), "5 hours ago"},
		{"one day", now.Add(-30 * time.Hour), "1 day ago"},
		{"days", now.Add(-3 * 24 * time.Hour), "3 days ago"},
		{"weeks", now.Add(-15 * 24 * time.Hour), "2 weeks ago"},
		{"months", now.Add(-70 * 24 * time.Hour), "2 months ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelativeTime(tt.t); got != tt.want {
				t.Errorf("formatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"this-is-a-long-string", 10, "this-is..."},
		{"abc", 2, "ab"},
	}

	for _, tt := range tests {
		if got := truncate(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}

func TestIsColorEnabledRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if IsColorEnabled() {
		t.Error("IsColorEnabled() = true with NO_COLOR set")
	}
}

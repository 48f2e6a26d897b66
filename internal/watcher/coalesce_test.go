package watcher

import (
	"fmt"
	"testing"
	"time"
)

type testEvent struct {
	kind string
	path string
}

func newTestCoalescer(t *testing.T, window time.Duration, threshold int) *Coalescer[testEvent] {
	t.Helper()

	return NewCoalescer("test", window, threshold,
		func(path string) testEvent { return testEvent{kind: "changed", path: path} },
		testEvent{kind: "full"})
}

func TestCoalescerTrailingEdge(t *testing.T) {
	c := newTestCoalescer(t, 50*time.Millisecond, 100)
	start := time.Now()

	c.Observe("/a.ts", ClassChanged, testEvent{kind: "changed", path: "/a.ts"}, start)

	// Before the window elapses nothing is due.
	if got := c.Drain(start.Add(20 * time.Millisecond)); len(got) != 0 {
		t.Errorf("Drain before window = %v, want empty", got)
	}

	// A second event resets the window.
	c.Observe("/a.ts", ClassChanged, testEvent{kind: "changed", path: "/a.ts"}, start.Add(30*time.Millisecond))
	if got := c.Drain(start.Add(60 * time.Millisecond)); len(got) != 0 {
		t.Errorf("Drain after reset = %v, want empty", got)
	}

	got := c.Drain(start.Add(90 * time.Millisecond))
	if len(got) != 1 || got[0].path != "/a.ts" {
		t.Errorf("Drain after quiet window = %v, want single /a.ts event", got)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", c.Len())
	}
}

func TestCoalescerAtomicSaveMerge(t *testing.T) {
	tests := []struct {
		name   string
		first  Class
		second Class
		want   string
	}{
		{"remove then create", ClassRemoved, ClassCreated, "changed"},
		{"create then remove", ClassCreated, ClassRemoved, "changed"},
		{"change then remove", ClassChanged, ClassRemoved, "removed"},
		{"change then change", ClassChanged, ClassChanged, "changed"},
		{"create then create", ClassCreated, ClassCreated, "created"},
	}

	names := map[Class]string{
		ClassCreated: "created",
		ClassChanged: "changed",
		ClassRemoved: "removed",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCoalescer(t, 10*time.Millisecond, 100)
			start := time.Now()

			c.Observe("/a.ts", tt.first, testEvent{kind: names[tt.first], path: "/a.ts"}, start)
			c.Observe("/a.ts", tt.second, testEvent{kind: names[tt.second], path: "/a.ts"}, start.Add(time.Millisecond))

			got := c.Drain(start.Add(time.Hour))
			if len(got) != 1 {
				t.Fatalf("Drain() = %v, want exactly one event", got)
			}
			if got[0].kind != tt.want {
				t.Errorf("merged kind = %q, want %q", got[0].kind, tt.want)
			}
		})
	}
}

func TestCoalescerNoMergeAcrossPaths(t *testing.T) {
	c := newTestCoalescer(t, 10*time.Millisecond, 100)
	start := time.Now()

	c.Observe("/a.ts", ClassRemoved, testEvent{kind: "removed", path: "/a.ts"}, start)
	c.Observe("/b.ts", ClassCreated, testEvent{kind: "created", path: "/b.ts"}, start)

	got := c.Drain(start.Add(time.Hour))
	if len(got) != 2 {
		t.Fatalf("Drain() returned %d events, want 2", len(got))
	}
	for _, ev := range got {
		if ev.kind == "changed" {
			t.Errorf("events for distinct paths merged: %v", got)
		}
	}
}

func TestCoalescerStormCollapse(t *testing.T) {
	c := newTestCoalescer(t, 10*time.Millisecond, 20)
	start := time.Now()

	for i := 0; i < 25; i++ {
		path := fmt.Sprintf("/kit/scripts/s%d.ts", i)
		c.Observe(path, ClassCreated, testEvent{kind: "created", path: path}, start)
	}

	if c.Len() != 0 {
		t.Errorf("Len() after storm = %d, want 0 (map cleared)", c.Len())
	}

	got := c.Drain(start.Add(time.Hour))
	if len(got) != 1 || got[0].kind != "full" {
		t.Errorf("Drain() after storm = %v, want single full reload", got)
	}

	// Nothing left behind.
	if got := c.Drain(start.Add(2 * time.Hour)); len(got) != 0 {
		t.Errorf("second Drain() = %v, want empty", got)
	}
}

func TestCoalescerIgnoresObservationsAfterCollapse(t *testing.T) {
	c := newTestCoalescer(t, 10*time.Millisecond, 100)
	start := time.Now()

	c.ForceFullReload(start)
	c.Observe("/a.ts", ClassChanged, testEvent{kind: "changed", path: "/a.ts"}, start.Add(time.Millisecond))
	c.Observe("/b.ts", ClassCreated, testEvent{kind: "created", path: "/b.ts"}, start.Add(2*time.Millisecond))

	if c.Len() != 0 {
		t.Errorf("Len() with full reload scheduled = %d, want 0", c.Len())
	}

	got := c.Drain(start.Add(time.Hour))
	if len(got) != 1 || got[0].kind != "full" {
		t.Errorf("Drain() = %v, want single full reload", got)
	}
	if got := c.Drain(start.Add(2 * time.Hour)); len(got) != 0 {
		t.Errorf("Drain() after full reload = %v, want empty", got)
	}
}

func TestCoalescerFullReloadSupersedesPending(t *testing.T) {
	c := newTestCoalescer(t, 10*time.Millisecond, 100)
	start := time.Now()

	c.Observe("/a.ts", ClassChanged, testEvent{kind: "changed", path: "/a.ts"}, start)
	c.ForceFullReload(start)

	got := c.Drain(start.Add(time.Hour))
	if len(got) != 1 || got[0].kind != "full" {
		t.Errorf("Drain() = %v, want single full reload", got)
	}
}

func TestCoalescerFullReloadWaitsForWindow(t *testing.T) {
	c := newTestCoalescer(t, 50*time.Millisecond, 100)
	start := time.Now()

	c.ForceFullReload(start)

	if got := c.Drain(start.Add(20 * time.Millisecond)); len(got) != 0 {
		t.Errorf("Drain() before window = %v, want empty", got)
	}
	if got := c.Drain(start.Add(60 * time.Millisecond)); len(got) != 1 {
		t.Errorf("Drain() after window = %v, want single full reload", got)
	}
}

func TestCoalescerNextDeadline(t *testing.T) {
	c := newTestCoalescer(t, 50*time.Millisecond, 100)
	start := time.Now()

	if _, ok := c.NextDeadline(); ok {
		t.Error("NextDeadline() with nothing pending reported a deadline")
	}

	c.Observe("/a.ts", ClassChanged, testEvent{kind: "changed", path: "/a.ts"}, start.Add(10*time.Millisecond))
	c.Observe("/b.ts", ClassChanged, testEvent{kind: "changed", path: "/b.ts"}, start)

	deadline, ok := c.NextDeadline()
	if !ok {
		t.Fatal("NextDeadline() reported nothing pending")
	}
	if want := start.Add(50 * time.Millisecond); !deadline.Equal(want) {
		t.Errorf("NextDeadline() = %v, want %v (earliest entry)", deadline, want)
	}

	// The full-reload marker participates in the minimum.
	c.ForceFullReload(start.Add(5 * time.Millisecond))
	deadline, ok = c.NextDeadline()
	if !ok {
		t.Fatal("NextDeadline() reported nothing pending after ForceFullReload")
	}
	if want := start.Add(55 * time.Millisecond); !deadline.Equal(want) {
		t.Errorf("NextDeadline() = %v, want %v (marker deadline)", deadline, want)
	}
}

func TestCoalescerReset(t *testing.T) {
	c := newTestCoalescer(t, 10*time.Millisecond, 100)
	start := time.Now()

	c.Observe("/a.ts", ClassChanged, testEvent{kind: "changed", path: "/a.ts"}, start)
	c.ForceFullReload(start)
	c.Reset()

	if got := c.Drain(start.Add(time.Hour)); len(got) != 0 {
		t.Errorf("Drain() after Reset = %v, want empty", got)
	}
	if _, ok := c.NextDeadline(); ok {
		t.Error("NextDeadline() after Reset reported a deadline")
	}
}

func TestCoalescerManyEventsFewPaths(t *testing.T) {
	c := newTestCoalescer(t, 50*time.Millisecond, 1000)
	start := time.Now()

	// 200 modify events over 5 paths inside the window.
	for i := 0; i < 200; i++ {
		path := fmt.Sprintf("/kit/scripts/s%d.ts", i%5)
		c.Observe(path, ClassChanged, testEvent{kind: "changed", path: path}, start.Add(time.Duration(i)*50*time.Microsecond))
	}

	got := c.Drain(start.Add(time.Hour))
	if len(got) != 5 {
		t.Fatalf("Drain() returned %d events, want 5 (one per path)", len(got))
	}
	seen := make(map[string]bool)
	for _, ev := range got {
		if seen[ev.path] {
			t.Errorf("duplicate event for path %s", ev.path)
		}
		seen[ev.path] = true
	}
}

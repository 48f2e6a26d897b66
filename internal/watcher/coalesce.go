package watcher

import (
	"log/slog"
	"time"
)

// Class describes how a raw event changed a single path. The coalescer
// uses it to merge pending entries for the same path.
type Class int

const (
	ClassCreated Class = iota
	ClassChanged
	ClassRemoved
)

type pendingEntry[E any] struct {
	event      E
	class      Class
	observedAt time.Time
}

// Coalescer folds raw per-path events into a debounced output batch.
//
// Each observed path gets a pending entry whose timestamp resets on every
// new event for that path (trailing-edge debounce). A created/removed pair
// for the same path merges into a single "changed" entry, which is what an
// atomic save (write temp, rename over target) looks like from the
// filesystem's point of view. When the pending map reaches the storm
// threshold, per-path precision is abandoned: the map is cleared and one
// full-reload event is scheduled instead.
//
// The coalescer is not safe for concurrent use; it is owned by a single
// policy and called only from the engine's goroutine.
type Coalescer[E any] struct {
	label     string
	window    time.Duration
	threshold int
	changed   func(path string) E
	full      E

	pending      map[string]pendingEntry[E]
	fullReloadAt time.Time
}

// NewCoalescer builds a coalescer. changed constructs the merged event for
// an atomic-save pair; full is the event emitted for a storm collapse.
func NewCoalescer[E any](label string, window time.Duration, threshold int, changed func(path string) E, full E) *Coalescer[E] {
	if threshold < 1 {
		threshold = 1
	}
	return &Coalescer[E]{
		label:     label,
		window:    window,
		threshold: threshold,
		changed:   changed,
		full:      full,
		pending:   make(map[string]pendingEntry[E]),
	}
}

// Reset drops all pending state. Called when a watch loop restarts.
func (c *Coalescer[E]) Reset() {
	c.pending = make(map[string]pendingEntry[E])
	c.fullReloadAt = time.Time{}
}

// Len reports the number of pending per-path entries.
func (c *Coalescer[E]) Len() int {
	return len(c.pending)
}

// Observe records one classified event for a path at the given time.
// The path's debounce window restarts from now.
func (c *Coalescer[E]) Observe(path string, class Class, event E, now time.Time) {
	// A scheduled full reload supersedes per-path tracking; the marker
	// and a non-empty pending map are never both active.
	if !c.fullReloadAt.IsZero() {
		return
	}
	if existing, ok := c.pending[path]; ok && oppositeClasses(existing.class, class) {
		c.pending[path] = pendingEntry[E]{event: c.changed(path), class: ClassChanged, observedAt: now}
	} else {
		c.pending[path] = pendingEntry[E]{event: event, class: class, observedAt: now}
	}

	if len(c.pending) >= c.threshold {
		slog.Warn("event storm detected, collapsing to full reload",
			"watcher", c.label,
			"pending", len(c.pending),
			"threshold", c.threshold)
		c.ForceFullReload(now)
	}
}

// oppositeClasses reports whether two pending classes form a created/removed
// pair in either order. Changed entries never merge.
func oppositeClasses(a, b Class) bool {
	return (a == ClassCreated && b == ClassRemoved) ||
		(a == ClassRemoved && b == ClassCreated)
}

// ForceFullReload schedules a single full reload and clears the pending
// map: a full reload supersedes every per-path event.
func (c *Coalescer[E]) ForceFullReload(now time.Time) {
	c.fullReloadAt = now
	c.pending = make(map[string]pendingEntry[E])
}

// NextDeadline returns the earliest time a Drain could emit something, or
// false if nothing is pending.
func (c *Coalescer[E]) NextDeadline() (time.Time, bool) {
	var deadline time.Time
	if !c.fullReloadAt.IsZero() {
		deadline = c.fullReloadAt.Add(c.window)
	}
	for _, entry := range c.pending {
		d := entry.observedAt.Add(c.window)
		if deadline.IsZero() || d.Before(deadline) {
			deadline = d
		}
	}
	return deadline, !deadline.IsZero()
}

// Drain emits every pending event whose debounce window has elapsed as of
// now. An expired full-reload marker wins over everything else: all
// pending state is dropped and the single full event returned.
func (c *Coalescer[E]) Drain(now time.Time) []E {
	if !c.fullReloadAt.IsZero() && now.Sub(c.fullReloadAt) >= c.window {
		c.Reset()
		slog.Debug("emitting full reload", "watcher", c.label)
		return []E{c.full}
	}

	var events []E
	for path, entry := range c.pending {
		if now.Sub(entry.observedAt) >= c.window {
			events = append(events, entry.event)
			delete(c.pending, path)
		}
	}
	return events
}

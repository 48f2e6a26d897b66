package store

import "time"

// ReloadRecord is one journaled reload event.
type ReloadRecord struct {
	ID         int64
	Watcher    string
	Kind       string
	Path       string
	RecordedAt time.Time
}

// KindCount aggregates journal rows per event kind.
type KindCount struct {
	Kind  string
	Count int
}

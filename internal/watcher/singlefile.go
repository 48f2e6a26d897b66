package watcher

import (
	"log/slog"
	"path/filepath"
	"time"
)

// SingleFilePolicy watches the parent directory of one file and emits a
// single reload event once the file has been quiet for the debounce
// window. Watching the parent rather than the file itself survives editors
// that replace the file on save.
type SingleFilePolicy[E any] struct {
	label      string
	targetName string
	watchDir   string
	window     time.Duration
	reload     E

	deadline time.Time
}

// NewSingleFilePolicy builds a policy that emits reload after targetPath
// has been quiet for window.
func NewSingleFilePolicy[E any](label, targetPath string, window time.Duration, reload E) *SingleFilePolicy[E] {
	return &SingleFilePolicy[E]{
		label:      label,
		targetName: filepath.Base(targetPath),
		watchDir:   filepath.Dir(targetPath),
		window:     window,
		reload:     reload,
	}
}

func (p *SingleFilePolicy[E]) Label() string {
	return p.label
}

func (p *SingleFilePolicy[E]) Setup(sub Subscription) error {
	p.deadline = time.Time{}
	if err := sub.Watch(p.watchDir, false); err != nil {
		return err
	}
	slog.Info("watching file", "watcher", p.label, "dir", p.watchDir, "file", p.targetName)
	return nil
}

func (p *SingleFilePolicy[E]) NextDeadline() time.Time {
	if p.deadline.IsZero() {
		return time.Now().Add(idleDeadline)
	}
	return p.deadline
}

func (p *SingleFilePolicy[E]) OnTimeout() []E {
	if p.deadline.IsZero() || time.Now().Before(p.deadline) {
		return nil
	}
	p.deadline = time.Time{}
	slog.Debug("file settled, emitting reload", "watcher", p.label, "file", p.targetName)
	return []E{p.reload}
}

func (p *SingleFilePolicy[E]) OnNotify(ev Event) []E {
	if ev.Kind == KindAccess {
		return nil
	}
	for _, path := range ev.Paths {
		if filepath.Base(path) == p.targetName {
			p.deadline = time.Now().Add(p.window)
			break
		}
	}
	return nil
}

func (p *SingleFilePolicy[E]) OnNotifyWatch(ev Event, _ Subscription) []E {
	return p.OnNotify(ev)
}

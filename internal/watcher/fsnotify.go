package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// controlBuffer sizes the control channel between the backend forwarder
// and the control loop.
const controlBuffer = 64

// fsSubscription adapts fsnotify to the Subscription contract. fsnotify
// watches are flat per-directory, so recursive registration walks the tree
// and newly created subdirectories under a recursive root are added as
// they appear.
type fsSubscription struct {
	fw   *fsnotify.Watcher
	done chan struct{}

	mu    sync.Mutex
	roots []string
}

// subscribeFSNotify is the production subscribe function used by New.
func subscribeFSNotify(ctrl chan<- controlMsg) (Subscription, func() error, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	sub := &fsSubscription{fw: fw, done: make(chan struct{})}
	go sub.forward(ctrl)

	closer := func() error {
		close(sub.done)
		return fw.Close()
	}
	return sub, closer, nil
}

// Watch registers a path. Recursive watches record the root and add every
// existing subdirectory.
func (s *fsSubscription) Watch(path string, recursive bool) error {
	if !recursive {
		return s.fw.Add(path)
	}
	s.mu.Lock()
	s.roots = append(s.roots, path)
	s.mu.Unlock()
	return s.addTree(path)
}

// addTree adds root and all subdirectories beneath it. Failures below the
// root are logged and skipped so one unreadable directory does not take
// down the whole watch.
func (s *fsSubscription) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if addErr := s.fw.Add(path); addErr != nil {
			if path == root {
				return addErr
			}
			slog.Warn("failed to watch subdirectory", "path", path, "error", addErr)
		}
		return nil
	})
}

// forward pumps raw fsnotify events and errors into the control channel
// until the subscription is closed.
func (s *fsSubscription) forward(ctrl chan<- controlMsg) {
	for {
		select {
		case ev, ok := <-s.fw.Events:
			if !ok {
				return
			}
			s.extendForCreate(ev)
			s.deliver(ctrl, controlMsg{event: normalizeEvent(ev)})
		case err, ok := <-s.fw.Errors:
			if !ok {
				return
			}
			s.deliver(ctrl, controlMsg{err: err})
		case <-s.done:
			return
		}
	}
}

func (s *fsSubscription) deliver(ctrl chan<- controlMsg, msg controlMsg) {
	select {
	case ctrl <- msg:
	case <-s.done:
	}
}

// extendForCreate keeps recursive roots covered: a directory created under
// one must itself be watched before events inside it can be seen.
func (s *fsSubscription) extendForCreate(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.IsDir() {
		return
	}
	if !s.underRecursiveRoot(ev.Name) {
		return
	}
	if err := s.addTree(ev.Name); err != nil {
		slog.Warn("failed to extend recursive watch", "path", ev.Name, "error", err)
	}
}

func (s *fsSubscription) underRecursiveRoot(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, root := range s.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// normalizeEvent maps fsnotify op bits onto the engine's event kinds.
// Rename names the path that disappeared; the destination arrives as its
// own Create, and the coalescer merges the pair into a change.
func normalizeEvent(ev fsnotify.Event) Event {
	var kind Kind
	switch {
	case ev.Has(fsnotify.Create):
		kind = KindCreate
	case ev.Has(fsnotify.Write):
		kind = KindModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		kind = KindRemove
	case ev.Has(fsnotify.Chmod):
		kind = KindAccess
	default:
		kind = KindOther
	}
	return Event{Kind: kind, Paths: []string{ev.Name}}
}

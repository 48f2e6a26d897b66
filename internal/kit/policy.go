package kit

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/blackwell-systems/kitwatch/internal/watcher"
)

// DefaultPatterns matches the file types kits are made of.
var DefaultPatterns = []string{"*.ts", "*.js", "*.md"}

// idleDeadline is reported when nothing is pending.
const idleDeadline = 24 * time.Hour

// ScriptPolicy is the watch policy for a kit tree. It tracks the content
// directories of every known kit, watches the ones that exist, and keeps
// the rest pending so they are watched the moment they appear. Relevant
// file events flow through a coalescer for debouncing.
type ScriptPolicy struct {
	root     string
	patterns []string
	discover func(root string) WatchSet
	co       *watcher.Coalescer[ReloadEvent]

	// tracked maps content directory -> category. watching is the subset
	// currently registered with the subscription.
	tracked  map[string]string
	watching map[string]struct{}
}

var _ watcher.Policy[ReloadEvent] = (*ScriptPolicy)(nil)

// NewScriptPolicy builds the policy for a kit root. patterns defaults to
// DefaultPatterns when empty.
func NewScriptPolicy(root string, patterns []string, window time.Duration, stormThreshold int) *ScriptPolicy {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return &ScriptPolicy{
		root:     root,
		patterns: patterns,
		discover: Discover,
		tracked:  make(map[string]string),
		watching: make(map[string]struct{}),
		co: watcher.NewCoalescer("scripts", window, stormThreshold,
			func(path string) ReloadEvent { return ReloadEvent{Kind: FileChanged, Path: path} },
			ReloadEvent{Kind: FullReload}),
	}
}

func (p *ScriptPolicy) Label() string {
	return "scripts"
}

// Setup re-runs discovery from scratch so a restarted loop picks up kits
// that appeared while the watcher was down.
func (p *ScriptPolicy) Setup(sub watcher.Subscription) error {
	p.co.Reset()
	p.tracked = make(map[string]string)
	p.watching = make(map[string]struct{})

	ws := p.discover(p.root)
	for _, dir := range ws.Scripts {
		p.trackKit(filepath.Dir(dir))
	}
	for _, dir := range ws.Extensions {
		p.trackKit(filepath.Dir(dir))
	}
	for _, dir := range ws.Agents {
		p.trackKit(filepath.Dir(dir))
	}

	// The root is watched flat so brand-new kit directories are seen.
	if info, err := os.Stat(p.root); err == nil && info.IsDir() {
		if err := sub.Watch(p.root, false); err != nil {
			slog.Warn("failed to watch kit root", "watcher", "scripts", "path", p.root, "error", err)
		}
	}

	p.watchPendingTracked(sub)
	slog.Info("script watcher ready",
		"watcher", "scripts",
		"root", p.root,
		"tracked", len(p.tracked),
		"watching", len(p.watching))
	return nil
}

// trackKit registers all three content directories of a kit as tracked.
func (p *ScriptPolicy) trackKit(kitDir string) {
	p.tracked[filepath.Join(kitDir, CategoryScripts)] = CategoryScripts
	p.tracked[filepath.Join(kitDir, CategoryExtensions)] = CategoryExtensions
	p.tracked[filepath.Join(kitDir, CategoryAgents)] = CategoryAgents
}

// watchPendingTracked watches every tracked directory that exists but is
// not yet registered. Failures are logged and retried on the next call.
func (p *ScriptPolicy) watchPendingTracked(sub watcher.Subscription) {
	for dir, category := range p.tracked {
		if _, ok := p.watching[dir]; ok {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if err := sub.Watch(dir, true); err != nil {
			slog.Warn("failed to watch directory",
				"watcher", "scripts",
				"path", dir,
				"category", category,
				"error", err)
			continue
		}
		p.watching[dir] = struct{}{}
		slog.Info("watching directory", "watcher", "scripts", "path", dir, "category", category)
	}
}

func (p *ScriptPolicy) NextDeadline() time.Time {
	if deadline, ok := p.co.NextDeadline(); ok {
		return deadline
	}
	return time.Now().Add(idleDeadline)
}

func (p *ScriptPolicy) OnTimeout() []ReloadEvent {
	return p.co.Drain(time.Now())
}

func (p *ScriptPolicy) OnNotify(ev watcher.Event) []ReloadEvent {
	p.processEvent(ev)
	return nil
}

// OnNotifyWatch also reacts to structural changes: content directories
// that now exist get watched, and a new kit created under the root gets
// tracked and watched.
func (p *ScriptPolicy) OnNotifyWatch(ev watcher.Event, sub watcher.Subscription) []ReloadEvent {
	p.watchPendingTracked(sub)
	p.handleNewKits(ev, sub)
	p.processEvent(ev)
	return nil
}

// handleNewKits tracks a kit directory created directly under the root.
func (p *ScriptPolicy) handleNewKits(ev watcher.Event, sub watcher.Subscription) {
	if ev.Kind != watcher.KindCreate {
		return
	}
	for _, path := range ev.Paths {
		if filepath.Dir(path) != p.root {
			continue
		}
		if strings.HasPrefix(filepath.Base(path), ".") {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		p.trackKit(path)
		p.watchPendingTracked(sub)
		slog.Info("new kit directory detected", "watcher", "scripts", "kit", path)
	}
}

// processEvent feeds relevant file events into the coalescer. Unknown
// kinds cost us per-path precision, so they schedule a full reload.
func (p *ScriptPolicy) processEvent(ev watcher.Event) {
	now := time.Now()
	if ev.Kind == watcher.KindOther && len(ev.Paths) == 0 {
		p.co.ForceFullReload(now)
		return
	}
	for _, path := range ev.Paths {
		switch ev.Kind {
		case watcher.KindCreate:
			if p.relevant(path) {
				p.co.Observe(path, watcher.ClassCreated, ReloadEvent{Kind: FileCreated, Path: path}, now)
			}
		case watcher.KindModify:
			if p.relevant(path) {
				p.co.Observe(path, watcher.ClassChanged, ReloadEvent{Kind: FileChanged, Path: path}, now)
			}
		case watcher.KindRemove:
			if p.relevant(path) {
				p.co.Observe(path, watcher.ClassRemoved, ReloadEvent{Kind: FileDeleted, Path: path}, now)
			}
		case watcher.KindAccess:
			// Access never signals a content change.
		default:
			slog.Debug("unclassifiable event, scheduling full reload",
				"watcher", "scripts",
				"path", path)
			p.co.ForceFullReload(now)
		}
	}
}

// relevant reports whether path is a kit content file: not hidden and
// matching one of the configured patterns.
func (p *ScriptPolicy) relevant(path string) bool {
	name := filepath.Base(path)
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	for _, pattern := range p.patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

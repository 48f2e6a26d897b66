package watcher

import "time"

// Kind classifies a raw filesystem notification.
type Kind int

const (
	KindCreate Kind = iota
	KindModify
	KindRemove
	KindAccess
	KindOther
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindModify:
		return "modify"
	case KindRemove:
		return "remove"
	case KindAccess:
		return "access"
	default:
		return "other"
	}
}

// Event is a normalized raw filesystem notification as delivered by the
// backend subscription.
type Event struct {
	Kind  Kind
	Paths []string
}

// Subscription registers paths with the live filesystem-event backend.
// Recursive watches cover the whole subtree, including directories created
// after registration.
type Subscription interface {
	Watch(path string, recursive bool) error
}

// Policy supplies the domain half of a watcher: which paths to watch, how
// raw events translate into output events, and when debounced output is due.
//
// The engine calls Setup once per loop attempt with a fresh Subscription,
// then alternates between OnNotifyWatch (a raw event arrived) and OnTimeout
// (the policy's deadline passed) until stop or failure. Policies are only
// ever called from the engine's goroutine; they need no internal locking.
type Policy[E any] interface {
	// Label names the watcher in logs.
	Label() string

	// Setup registers the initial watch targets. It must reset any state
	// carried over from a previous loop attempt.
	Setup(sub Subscription) error

	// NextDeadline returns the next time OnTimeout should run. Policies
	// with nothing pending return a far-future time.
	NextDeadline() time.Time

	// OnTimeout runs when NextDeadline passes and returns any output
	// events that are now due.
	OnTimeout() []E

	// OnNotify processes a raw filesystem event.
	OnNotify(ev Event) []E

	// OnNotifyWatch is OnNotify with the live subscription available, so
	// policies can register new watch targets discovered at runtime.
	// Policies that never do delegate to OnNotify.
	OnNotifyWatch(ev Event, sub Subscription) []E
}

// idleDeadline is the deadline policies report when nothing is pending.
// The control loop still wakes at the health-check interval.
const idleDeadline = 24 * time.Hour

package watcher

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ErrAlreadyStarted is returned by Start when the engine is already running.
var ErrAlreadyStarted = errors.New("watcher: engine already started")

// Settings control the engine's supervisor and control loop. The debounce
// window and storm threshold belong to the policy, not the engine.
type Settings struct {
	// InitialBackoff is the delay before the first restart attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential backoff between restart attempts.
	MaxBackoff time.Duration
	// MaxNotifyErrors is the number of consecutive backend errors
	// tolerated before the loop fails and the supervisor restarts it.
	MaxNotifyErrors int
	// HealthCheckInterval bounds how long the control loop blocks, so a
	// stop request is noticed even with no events and a far deadline.
	HealthCheckInterval time.Duration
}

// DefaultSettings returns the settings used when a field is left zero.
func DefaultSettings() Settings {
	return Settings{
		InitialBackoff:      100 * time.Millisecond,
		MaxBackoff:          30 * time.Second,
		MaxNotifyErrors:     5,
		HealthCheckInterval: 500 * time.Millisecond,
	}
}

func normalizeSettings(s Settings) Settings {
	def := DefaultSettings()
	if s.InitialBackoff <= 0 {
		s.InitialBackoff = def.InitialBackoff
	}
	if s.MaxBackoff <= 0 {
		s.MaxBackoff = def.MaxBackoff
	}
	if s.MaxBackoff < s.InitialBackoff {
		s.MaxBackoff = s.InitialBackoff
	}
	if s.MaxNotifyErrors < 1 {
		s.MaxNotifyErrors = def.MaxNotifyErrors
	}
	if s.HealthCheckInterval <= 0 {
		s.HealthCheckInterval = def.HealthCheckInterval
	}
	return s
}

// controlMsg carries one backend notification or backend error into the
// control loop.
type controlMsg struct {
	event Event
	err   error
}

// subscribeFunc creates a backend subscription whose raw events and errors
// flow into ctrl. The returned closer tears the subscription down. Tests
// swap this out to drive the engine without a real filesystem.
type subscribeFunc func(ctrl chan<- controlMsg) (Subscription, func() error, error)

// Engine owns the subscription lifecycle for one policy: it runs the watch
// loop on a supervisor goroutine and restarts it with exponential backoff
// when the backend or the policy's setup fails.
type Engine[E any] struct {
	out      chan<- E
	policy   Policy[E]
	settings Settings
	label    string

	subscribe subscribeFunc

	started atomic.Bool
	stopped atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// New builds an engine for the given policy. No I/O happens until Start.
func New[E any](out chan<- E, policy Policy[E], settings Settings) *Engine[E] {
	return &Engine[E]{
		out:       out,
		policy:    policy,
		settings:  normalizeSettings(settings),
		label:     policy.Label(),
		subscribe: subscribeFSNotify,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start spawns the supervisor goroutine. A second call returns
// ErrAlreadyStarted without side effects.
func (e *Engine[E]) Start() error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go e.supervise()
	return nil
}

// Close requests a stop, wakes any backoff sleep or control-loop block,
// and waits for the supervisor goroutine to exit. Idempotent. After Close
// returns, no further events are sent on the output channel.
func (e *Engine[E]) Close() error {
	if e.stopped.CompareAndSwap(false, true) {
		close(e.stop)
	}
	if e.started.Load() {
		<-e.done
	}
	return nil
}

func (e *Engine[E]) stopRequested() bool {
	return e.stopped.Load()
}

// supervise runs watch-loop attempts until stop. Every failed attempt
// increments the backoff; the counter never resets because a loop only
// returns success on a graceful stop.
func (e *Engine[E]) supervise() {
	defer close(e.done)

	attempt := 0
	for {
		if e.stopRequested() {
			slog.Info("watcher supervisor stopping", "watcher", e.label)
			return
		}

		err := e.runLoop()
		if err == nil {
			slog.Info("watcher stopped", "watcher", e.label)
			return
		}
		if e.stopRequested() {
			return
		}

		delay := backoffDelay(attempt, e.settings)
		slog.Warn("watcher loop failed, restarting",
			"watcher", e.label,
			"attempt", attempt,
			"backoff", delay,
			"error", err)
		if !e.sleep(delay) {
			return
		}
		attempt++
	}
}

// runLoop is one watch-loop attempt: fresh subscription, fresh policy
// setup, then block on the control channel with a deadline-derived timeout
// until stop or failure. Returns nil only on a graceful stop.
func (e *Engine[E]) runLoop() error {
	ctrl := make(chan controlMsg, controlBuffer)
	sub, closeSub, err := e.subscribe(ctrl)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer closeSub()

	if err := e.policy.Setup(sub); err != nil {
		return fmt.Errorf("failed to set up %s watcher: %w", e.label, err)
	}
	slog.Info("watcher loop started", "watcher", e.label)

	consecutiveErrors := 0
	for {
		if e.stopRequested() {
			return nil
		}

		timer := time.NewTimer(e.blockTimeout())
		select {
		case <-e.stop:
			timer.Stop()
			slog.Info("watcher received stop signal", "watcher", e.label)
			return nil

		case <-timer.C:
			e.emit(e.policy.OnTimeout())

		case msg, ok := <-ctrl:
			timer.Stop()
			if !ok {
				return errors.New("control channel closed")
			}
			if msg.err != nil {
				consecutiveErrors++
				slog.Warn("watch backend error",
					"watcher", e.label,
					"consecutive_errors", consecutiveErrors,
					"error", msg.err)
				if consecutiveErrors >= e.settings.MaxNotifyErrors {
					return fmt.Errorf("%d consecutive backend errors, last: %w",
						consecutiveErrors, msg.err)
				}
				continue
			}
			consecutiveErrors = 0
			e.emit(e.policy.OnNotifyWatch(msg.event, sub))
		}
	}
}

// blockTimeout converts the policy's next deadline into a block duration,
// capped at the health-check interval so stop requests are noticed.
func (e *Engine[E]) blockTimeout() time.Duration {
	timeout := time.Until(e.policy.NextDeadline())
	if timeout < 0 {
		timeout = 0
	}
	if timeout > e.settings.HealthCheckInterval {
		timeout = e.settings.HealthCheckInterval
	}
	return timeout
}

// emit sends output events best-effort. Reload events are idempotent
// signals, so dropping one when the consumer's buffer is full is safe.
func (e *Engine[E]) emit(events []E) {
	for _, ev := range events {
		if e.stopRequested() {
			return
		}
		select {
		case e.out <- ev:
		default:
			slog.Debug("dropping event, output channel full", "watcher", e.label)
		}
	}
}

// sleep blocks for d or until stop is requested. Reports whether the full
// duration elapsed.
func (e *Engine[E]) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-e.stop:
		return false
	}
}

// backoffDelay computes min(initial * 2^attempt, max).
func backoffDelay(attempt int, s Settings) time.Duration {
	delay := s.InitialBackoff
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= s.MaxBackoff {
			return s.MaxBackoff
		}
	}
	if delay > s.MaxBackoff {
		return s.MaxBackoff
	}
	return delay
}

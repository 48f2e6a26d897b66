// Package watcher provides a resilient, policy-driven filesystem watch
// engine.
//
// An Engine owns a native filesystem-event subscription and a supervisor
// goroutine that restarts the watch loop with exponential backoff when the
// backend fails. All domain behavior lives in a Policy: which paths to
// watch, which raw events matter, and when debounced output events are due.
// The Coalescer implements trailing-edge per-path debouncing with storm
// collapse and is reusable by any policy.
//
// Key features:
//   - Supervisor loop with capped exponential backoff between attempts
//   - Interruptible sleeps and a prompt, idempotent Close
//   - Consecutive backend-error ceiling that escalates to a restart
//   - Recursive watching on top of fsnotify (walk + reactive extension)
//   - Best-effort non-blocking emission (reload events are idempotent)
//
// Example usage:
//
//	events := make(chan kit.ReloadEvent, 64)
//	policy := kit.NewScriptPolicy(root, nil, 500*time.Millisecond, 50)
//
//	eng := watcher.New(events, policy, watcher.DefaultSettings())
//	if err := eng.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	for ev := range events {
//		reload(ev)
//	}
package watcher

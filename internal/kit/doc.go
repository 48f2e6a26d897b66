// Package kit implements the watch policy for a kit directory tree.
//
// A kit root contains one directory per kit, each with up to three content
// directories: scripts, extensions, and agents. The ScriptPolicy watches
// those directories (recursively) plus the root itself, so kits and
// content directories created while watching are picked up without a
// restart. Raw filesystem events are filtered for relevance, debounced,
// and emitted as ReloadEvents.
package kit

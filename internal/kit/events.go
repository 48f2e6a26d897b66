package kit

// ReloadKind tells the consumer what kind of change settled.
type ReloadKind int

const (
	// FileChanged covers in-place modification and atomic saves.
	FileChanged ReloadKind = iota
	// FileCreated is a genuinely new file.
	FileCreated
	// FileDeleted is a file that no longer exists.
	FileDeleted
	// FullReload means per-path precision was lost (event storm or an
	// unclassifiable event); the consumer should re-derive everything.
	FullReload
)

// String returns the journal/log name for the kind.
func (k ReloadKind) String() string {
	switch k {
	case FileChanged:
		return "changed"
	case FileCreated:
		return "created"
	case FileDeleted:
		return "deleted"
	case FullReload:
		return "full-reload"
	default:
		return "unknown"
	}
}

// ReloadEvent is the policy's debounced output. Path is empty for a
// FullReload.
type ReloadEvent struct {
	Kind ReloadKind
	Path string
}

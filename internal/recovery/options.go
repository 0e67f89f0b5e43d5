package recovery

import "log/slog"

// Options configures corpus recovery.
type Options struct {
	// VerifyChecksums controls whether the files listed in the manifest
	// are checked against their recorded checksums. Default: true.
	VerifyChecksums bool

	// RemoveOrphans removes files in the corpus directory that the
	// manifest does not list. Default: true.
	RemoveOrphans bool

	// Logger for recovery events. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		VerifyChecksums: true,
		RemoveOrphans:   true,
	}
}

package store

import "errors"

// Error taxonomy the rest of the system branches on. Implementations map
// their native failures onto these; callers use errors.Is.
var (
	// ErrNotFound: the requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrPermissionDenied: the store refused access. Always non-fatal to
	// the scheduling paths: the dedup guard treats it as "assume not yet
	// sent, skip" and the poller moves on.
	ErrPermissionDenied = errors.New("store: permission denied")

	// ErrUnavailable: transient failure (locked, busy, connection). The
	// periodic poll is the retry mechanism; callers skip the tick.
	ErrUnavailable = errors.New("store: unavailable")
)

package hatrack

import "errors"

// Error sentinels, declared package-scope exactly the way the teacher
// declares ErrKeyNotFound/ErrCASFailed/... in cowbtree.go — no error
// wrapping framework, just comparable sentinel values.
var (
	// ErrNotFound names the "key has no live value" outcome. The table's
	// operations do not return it: Get/Replace/Remove report a missing or
	// tombstoned key as found=false with a nil error, since it is a
	// logical outcome, not a failure (spec.md §7).
	ErrNotFound = errors.New("hatrack: key not found")

	// ErrInvalidHash is returned when the caller passes the reserved
	// all-zero hash value.
	ErrInvalidHash = errors.New("hatrack: hash value must not be zero")

	// ErrClosed is returned by any operation attempted after Close.
	ErrClosed = errors.New("hatrack: table is closed")
)

package smr

import "errors"

// ErrThreadsExhausted is the fatal programming error raised when every
// reservation slot is in use and a new participant tries to register.
// Per spec.md §7 this is not a recoverable condition; it is surfaced as a
// panic rather than an error return so the process does not silently keep
// running past a broken invariant.
var ErrThreadsExhausted = errors.New("smr: reservation slots exhausted")

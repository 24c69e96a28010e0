package hatrack

import (
	"sync/atomic"

	"hatrack/pkg/hash128"
)

// bucket is one slot in a store: an atomic hash identity plus an atomic
// pointer to the record currently occupying it. Once hash is non-nil it
// never changes for the lifetime of this store (invariant 1 in spec.md
// §3). The zero value of bucket is "empty" (hash == nil, state == nil).
type bucket struct {
	hash  atomic.Pointer[hash128.Hash]
	state atomic.Pointer[record]
}

// tryAcquire attempts to claim this (empty) bucket for hv by CAS-ing the
// hash from nil. Returns true if this call won the acquisition.
func (b *bucket) tryAcquire(hv hash128.Hash) bool {
	h := hv
	return b.hash.CompareAndSwap(nil, &h)
}

// loadHash returns the bucket's hash, or (zero, false) if still empty.
func (b *bucket) loadHash() (hash128.Hash, bool) {
	h := b.hash.Load()
	if h == nil {
		return hash128.Zero, false
	}
	return *h, true
}

// loadRecord returns the bucket's current record, which may be nil if the
// bucket was acquired but no record has been installed yet.
func (b *bucket) loadRecord() *record {
	return b.state.Load()
}

// casRecord attempts to swing the bucket's record pointer from old to
// next.
func (b *bucket) casRecord(old, next *record) bool {
	return b.state.CompareAndSwap(old, next)
}

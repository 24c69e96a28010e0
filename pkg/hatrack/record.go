package hatrack

import (
	"sync/atomic"
	"unsafe"

	"hatrack/internal/smr"
)

// record is the flat record body described in spec.md §3/§4.3: an
// immutable-after-publish versioned value cell. Flat records carry no
// link to a prior version — overwriting a bucket simply retires the old
// record outright, there is no history chain. The moving/moved flags live
// on the record itself rather than being bit-stolen from a pointer: Go's
// garbage collector cannot safely track a pointer value hidden inside a
// tagged uintptr, so a migration transition republishes a new record value
// carrying the flag instead (spec.md §9's "separate (tag, ptr) cell"
// alternative, rendered as a small struct swapped via atomic.Pointer).
type record struct {
	item unsafe.Pointer // opaque; the core never dereferences this

	createEpoch uint64 // epoch the key's current lineage began at; copied forward on overwrite
	writeEpoch  atomic.Uint64
	retireEpoch uint64 // set once, immediately before handing to smr.Participant.Retire

	deleted bool // tombstone: a live key was removed
	moving  bool // this record's store is being frozen for migration
	moved   bool // this bucket's live content is already installed in next_store

	cleanup func() // optional per-record cleanup hook run at reclaim
}

// newRecord allocates a fresh, uncommitted record carrying item.
func newRecord(item unsafe.Pointer, createEpoch uint64) *record {
	return &record{item: item, createEpoch: createEpoch}
}

// tombstoneRecord returns a deleted marker record that preserves createEpoch for
// bookkeeping, though a subsequent put through a tombstone always starts a
// fresh lineage per spec.md §9's resolved open question.
func tombstoneRecord(createEpoch uint64) *record {
	r := &record{createEpoch: createEpoch, deleted: true}
	r.writeEpoch.Store(1) // tombstones are always considered committed
	return r
}

// withFlags returns a shallow clone of r with moving/moved overridden.
// Used exclusively by the migration engine to publish a frozen view of an
// existing record without mutating the original (records are immutable
// once published, per spec.md §4.3).
func (r *record) withFlags(moving, moved bool) *record {
	clone := &record{
		item:        r.item,
		createEpoch: r.createEpoch,
		retireEpoch: r.retireEpoch,
		deleted:     r.deleted,
		moving:      moving,
		moved:       moved,
		cleanup:     r.cleanup,
	}
	clone.writeEpoch.Store(r.writeEpoch.Load())
	return clone
}

// stripFlags returns a clone with moving/moved cleared, preserving
// write_epoch and create_epoch exactly — used when a record is copied
// across into the next store during migration (spec.md §4.6 phase 3).
func (r *record) stripFlags() *record {
	return r.withFlags(false, false)
}

// isCommitted reports whether write_epoch has been stamped.
func (r *record) isCommitted() bool {
	return r.writeEpoch.Load() != 0
}

// commit stamps write_epoch via a single fetch_add-derived CAS from zero.
// Losing the race is fine: some other reader or writer already committed
// this exact record first (spec.md §4.2).
func (r *record) commit(ctx *smr.Context) uint64 {
	next := ctx.NextEpoch()
	if r.writeEpoch.CompareAndSwap(0, next) {
		return next
	}
	return r.writeEpoch.Load()
}

// helpCommit commits r if nobody has yet, otherwise it's a no-op. Callers
// that must reason about r's epoch before trusting it (snapshot readers in
// particular) call this first, per spec.md §4.1's linearized-read
// contract.
func (r *record) helpCommit(ctx *smr.Context) uint64 {
	if w := r.writeEpoch.Load(); w != 0 {
		return w
	}
	return r.commit(ctx)
}

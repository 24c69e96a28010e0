package hatrack

import "hatrack/internal/smr"

// migrate carries old through spec.md §4.6's four phases. It is
// idempotent and helper-safe: any number of goroutines may call it
// concurrently on the same old, including goroutines that arrive after
// another has already finished some or all phases, and they all converge
// on the same result. Only the goroutine whose casRoot actually swings
// the table's root retires old.
func (t *Table) migrate(p *smr.Participant, old *store) {
	liveCount := t.freezeStore(old)
	next := t.allocateNextStore(old, liveCount)
	t.copyStore(old, next)

	if t.casRoot(old, next) {
		t.stats.MigrationCount.Add(1)
		retireEpoch := t.smr.CurrentEpoch()
		p.Retire(old, retireEpoch, nil)
	}
}

// freezeStore implements phase 1: every bucket's record is swung to a
// frozen copy carrying moving=true, with moved already decided (a bucket
// that held nothing live to copy starts out moved=true too). Every helper
// loops per-bucket until it observes a frozen record. A helper that
// arrives after copyStore has started counts fewer live buckets, because
// copied buckets are already marked moved; its count goes unused, since
// copying only begins once the successor store is published and
// allocateNextStore then returns that store without consulting it.
func (t *Table) freezeStore(old *store) uint64 {
	var liveCount uint64
	for i := range old.buckets {
		b := &old.buckets[i]
		for {
			cur := b.loadRecord()
			if cur != nil && cur.moving {
				if !cur.moved {
					liveCount++
				}
				break
			}

			var frozen *record
			wasLive := false
			if cur == nil {
				frozen = &record{moving: true, moved: true}
			} else {
				wasLive = !cur.deleted
				frozen = cur.withFlags(true, !wasLive)
			}
			if b.casRecord(cur, frozen) {
				if wasLive {
					liveCount++
				}
				break
			}
			// Lost the freeze race; reload and re-check.
		}
	}
	return liveCount
}

// allocateNextStore implements phase 2: race to publish a successor store
// sized per computeNextSize. Losers' candidates are simply dropped —
// nothing else ever observed them, so the garbage collector reclaims them
// without any retire bookkeeping.
func (t *Table) allocateNextStore(old *store, liveCount uint64) *store {
	if next := old.next.Load(); next != nil {
		return next
	}
	size := computeNextSize(old.size(), liveCount, t.cfg.minSize())
	candidate := newStore(size)
	old.next.CompareAndSwap(nil, candidate)
	return old.next.Load()
}

// copyStore implements phase 3: relocate every live record into next,
// then mark the source bucket moved. Both the install and the moved-mark
// are idempotent compare-and-swaps, so concurrent helpers never duplicate
// or corrupt a relocation.
func (t *Table) copyStore(old, next *store) {
	for i := range old.buckets {
		b := &old.buckets[i]
		rec := b.loadRecord() // frozen by freezeStore before copyStore runs
		if rec == nil || rec.moved {
			continue
		}
		hv, ok := b.loadHash()
		if !ok {
			continue
		}

		live := rec.stripFlags()
		res, ok := probeAcquireOrFind(next, hv)
		if !ok {
			// next was sized for at least double the observed live count;
			// running out of room here means concurrent writers grew the
			// live set faster than this migration could track, which the
			// bounded-retry help protocol is meant to prevent upstream.
			panic("hatrack: migration target store exhausted during copy")
		}
		res.b.casRecord(nil, live)

		for {
			cur := b.loadRecord()
			if cur.moved {
				break
			}
			if b.casRecord(cur, cur.withFlags(true, true)) {
				break
			}
		}
	}
}

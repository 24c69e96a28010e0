package hatrack

import "hatrack/pkg/hash128"

// probeResult carries a located/acquired bucket plus whether acquiring it
// pushed usedCount past threshold (the migration trigger in spec.md §4.4).
type probeResult struct {
	b                *bucket
	crossedThreshold bool
}

// probeAcquireOrFind implements spec.md §4.4's linear probe for
// insertion-shaped operations (put/add): starting at hv's home slot, scan
// forward until an empty bucket is acquired for hv or an existing bucket
// with a matching hash is found. Returns ok=false if the whole store was
// scanned without success, which is the caller's signal to trigger
// migration and retry.
func probeAcquireOrFind(s *store, hv hash128.Hash) (probeResult, bool) {
	size := s.size()
	start := hv.BucketIndex(size)

	for i := uint64(0); i < size; i++ {
		idx := (start + i) & s.lastSlot
		b := &s.buckets[idx]

		for {
			h, ok := b.loadHash()
			if !ok {
				if b.tryAcquire(hv) {
					used := s.usedCount.Add(1)
					return probeResult{b: b, crossedThreshold: used > s.threshold}, true
				}
				// Lost the acquire race; reload and see who won.
				continue
			}
			if h.Equal(hv) {
				return probeResult{b: b}, true
			}
			break // not our hash, advance to the next slot
		}
	}
	return probeResult{}, false
}

// probeFind implements the read-only variant used by get/replace/remove:
// it never acquires an empty bucket. Open-addressing semantics mean the
// first empty slot reached ends the search — spec.md §4.4's probe chain
// for a given key can never have a gap, since every key that ever hashed
// there was forced to claim or pass through every slot before it.
func probeFind(s *store, hv hash128.Hash) (*bucket, bool) {
	size := s.size()
	start := hv.BucketIndex(size)

	for i := uint64(0); i < size; i++ {
		idx := (start + i) & s.lastSlot
		b := &s.buckets[idx]
		h, ok := b.loadHash()
		if !ok {
			return nil, false
		}
		if h.Equal(hv) {
			return b, true
		}
	}
	return nil, false
}

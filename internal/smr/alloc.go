package smr

import "sync"

// retiredEntry is one object waiting to be reclaimed.
type retiredEntry struct {
	obj      any
	cleanup  func()
	retireAt uint64
}

// retireBook buckets retired objects by the epoch they were retired at,
// grounded directly on the teacher's EpochManager.retired map in
// epoch.go: a single mutex protects the bucket map, which is only ever
// touched by the reclamation bookkeeping (Retire, TryReclaim, DrainAll,
// PendingCount) — never by a reader, and never by the
// bucket-level compare-and-swap that installs a new record. Readers stay
// lock-free; only the bookkeeping around freeing old versions takes a
// lock, and only briefly.
type retireBook struct {
	mu      sync.Mutex
	buckets map[uint64][]retiredEntry
	count   int
	freq    int
}

func (r *retireBook) init(freq int) {
	r.buckets = make(map[uint64][]retiredEntry)
	if freq < 1 {
		freq = 1
	}
	r.freq = freq
}

func (r *retireBook) retire(obj any, retireAt uint64, cleanup func()) {
	r.mu.Lock()
	r.buckets[retireAt] = append(r.buckets[retireAt], retiredEntry{obj: obj, cleanup: cleanup, retireAt: retireAt})
	r.count++
	r.mu.Unlock()
}

// shouldSweep reports whether enough retirements have accumulated to
// warrant a sweep, per the HATRACK_RETIRE_FREQ_LOG tunable.
func (r *retireBook) shouldSweep() bool {
	r.mu.Lock()
	due := r.count%r.freq == 0
	r.mu.Unlock()
	return due
}

// reclaim frees (drops the last reference to, running cleanup first) every
// entry retired strictly before minEpoch.
func (r *retireBook) reclaim(minEpoch uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	reclaimed := 0
	for epoch, entries := range r.buckets {
		if epoch >= minEpoch {
			continue
		}
		for _, e := range entries {
			if e.cleanup != nil {
				e.cleanup()
			}
		}
		reclaimed += len(entries)
		delete(r.buckets, epoch)
	}
	return reclaimed
}

// PendingCount returns how many retired objects are still waiting to be
// reclaimed.
func (c *Context) PendingCount() int {
	c.retired.mu.Lock()
	defer c.retired.mu.Unlock()
	n := 0
	for _, entries := range c.retired.buckets {
		n += len(entries)
	}
	return n
}

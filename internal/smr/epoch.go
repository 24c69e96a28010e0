package smr

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// sentinelFreeIdx marks "no free slot" in the packed free-stack word.
const sentinelFreeIdx = ^uint32(0)

// reservationSlot announces the oldest epoch a participant might still be
// reading. epoch is meaningless while active is false.
//
// Each slot is padded to a cache line so that two goroutines spinning on
// adjacent slots during Enter/Leave don't false-share, the same concern
// addressed by maypok86/otter's counterStripe padding.
type reservationSlot struct {
	epoch  atomic.Uint64
	active atomic.Bool
	// next links this slot into the lock-free free stack while it is not
	// in use. It is written only by the goroutine releasing the slot,
	// immediately before the free-stack CAS publishes it, and read by
	// popFree after loading the stack head; a read that races a later
	// push is discarded because that push bumped the head's generation,
	// so the popper's CAS fails.
	next uint32
	_    cpu.CacheLinePad
}

// Context is a single epoch-based reclamation domain: one global epoch
// counter, one bounded reservation array, and the retire/sweep bookkeeping
// in alloc.go. A Table owns exactly one Context, mirroring the way the
// teacher's CowBTree owns exactly one *EpochManager.
type Context struct {
	epoch atomic.Uint64 // global epoch counter; starts at 1, 0 means "uncommitted"

	slots      []reservationSlot
	nextUnused atomic.Uint32 // high-water mark of slots ever handed out
	freeTop    atomic.Uint64 // packed (generation:32, index:32) Treiber stack head

	retired retireBook
}

// NewContext creates a reclamation domain sized per cfg.
func NewContext(cfg Config) *Context {
	threadsMax := cfg.ThreadsMax
	if threadsMax < 1 {
		threadsMax = 1
	}
	c := &Context{
		slots: make([]reservationSlot, threadsMax),
	}
	c.epoch.Store(1)
	c.freeTop.Store(uint64(sentinelFreeIdx))
	c.retired.init(cfg.retireFreq())
	return c
}

// CurrentEpoch returns the current global epoch.
func (c *Context) CurrentEpoch() uint64 {
	return c.epoch.Load()
}

// NextEpoch atomically advances the global epoch and returns the new value.
// It is the "fetch_add(E)+1" referenced throughout spec.md §4.2: callers
// use the result to stamp a record's write_epoch.
func (c *Context) NextEpoch() uint64 {
	return c.epoch.Add(1)
}

// Participant is an active reservation: a declaration that this goroutine
// may observe any record live at, or newer than, LinearizationEpoch.
// It is obtained from Context.Enter / Context.EnterLinearized and must be
// released with Leave. Participants are not safe to share between
// goroutines — exactly like the teacher's ReaderGuard.
type Participant struct {
	ctx   *Context
	slot  uint32
	epoch uint64
}

// Enter begins a basic (non-linearizing) operation, recording the current
// epoch as this participant's reservation.
func (c *Context) Enter() *Participant {
	slot := c.acquireSlot()
	e := c.epoch.Load()
	c.slots[slot].epoch.Store(e)
	c.slots[slot].active.Store(true)
	return &Participant{ctx: c, slot: slot, epoch: e}
}

// EnterLinearized begins an operation that additionally needs a
// linearization epoch (used by View/snapshot). It re-reads the global
// epoch after publishing the reservation; if the epoch moved, the later
// read is the true linearization point and any record this participant
// touches whose write_epoch is still zero must be help-committed (see
// record.helpCommit in pkg/hatrack) before it can be trusted.
func (c *Context) EnterLinearized() *Participant {
	slot := c.acquireSlot()
	e := c.epoch.Load()
	c.slots[slot].epoch.Store(e)
	c.slots[slot].active.Store(true)

	e2 := c.epoch.Load()
	if e2 != e {
		e = e2
		c.slots[slot].epoch.Store(e)
	}
	return &Participant{ctx: c, slot: slot, epoch: e}
}

// LinearizationEpoch returns the epoch this participant's view is
// linearized at.
func (p *Participant) LinearizationEpoch() uint64 {
	if p == nil {
		return 0
	}
	return p.epoch
}

// Leave ends the operation, releasing the reservation and returning the
// slot to the free list.
func (p *Participant) Leave() {
	if p == nil {
		return
	}
	p.ctx.slots[p.slot].active.Store(false)
	p.ctx.releaseSlot(p.slot)
	p.ctx = nil
}

// Retire hands obj to the retire list, to be freed (by dropping the last
// reference, so the Go garbage collector can reclaim it — there is no
// manual free in a managed runtime) once every active reservation is
// later than retireEpoch. cleanup, if non-nil, runs immediately before the reference
// is dropped.
func (p *Participant) Retire(obj any, retireEpoch uint64, cleanup func()) {
	p.ctx.retired.retire(obj, retireEpoch, cleanup)
	if p.ctx.retired.shouldSweep() {
		p.ctx.TryReclaim()
	}
}

// TryReclaim scans the reservation array for the minimum active epoch and
// frees every retired object older than it. It returns the number of
// objects reclaimed and is safe to call from any goroutine at any time;
// reclamation is best-effort and has no bound on how far it can lag, only
// on safety (spec.md §4.2).
func (c *Context) TryReclaim() int {
	return c.retired.reclaim(c.minReservedEpoch())
}

// DrainAll forces reclamation of every retired object regardless of
// outstanding reservations. Only safe to call once the caller has already
// established that no concurrent operation can be touching the structure,
// e.g. from Table.Close after waiting out active participants.
func (c *Context) DrainAll() int {
	return c.retired.reclaim(^uint64(0))
}

// ActiveParticipants returns the number of reservations currently held.
func (c *Context) ActiveParticipants() int {
	n := 0
	for i := range c.slots {
		if c.slots[i].active.Load() {
			n++
		}
	}
	return n
}

// minReservedEpoch finds the oldest epoch any active participant might
// still observe, or the current epoch if nobody is active.
func (c *Context) minReservedEpoch() uint64 {
	min := c.epoch.Load()
	for i := range c.slots {
		if !c.slots[i].active.Load() {
			continue
		}
		e := c.slots[i].epoch.Load()
		if e < min {
			min = e
		}
	}
	return min
}

// acquireSlot pops a free slot index, or hands out a fresh one up to
// ThreadsMax. Exhaustion is a fatal programming error per spec.md §7: the
// process must not silently continue.
func (c *Context) acquireSlot() uint32 {
	if idx, ok := c.popFree(); ok {
		return idx
	}
	idx := c.nextUnused.Add(1) - 1
	if int(idx) >= len(c.slots) {
		panic(ErrThreadsExhausted)
	}
	return idx
}

func (c *Context) releaseSlot(idx uint32) {
	for {
		top := c.freeTop.Load()
		gen := top >> 32
		c.slots[idx].next = uint32(top)
		newTop := (gen+1)<<32 | uint64(idx)
		if c.freeTop.CompareAndSwap(top, newTop) {
			return
		}
	}
}

func (c *Context) popFree() (uint32, bool) {
	for {
		top := c.freeTop.Load()
		idx := uint32(top)
		if idx == sentinelFreeIdx {
			return 0, false
		}
		gen := top >> 32
		next := c.slots[idx].next
		newTop := gen<<32 | uint64(next)
		if c.freeTop.CompareAndSwap(top, newTop) {
			return idx, true
		}
	}
}

package hatrack

import (
	"unsafe"

	"hatrack/internal/smr"
	"hatrack/pkg/hash128"
)

// opCtx bundles the retry/help-protocol bookkeeping shared by every
// mutating operation, per spec.md §4.6's wait-free help escalation: a
// writer stuck behind repeated migration assistance announces help_needed
// so that other writers route through migration instead of racing CAS.
type opCtx struct {
	t             *Table
	p             *smr.Participant
	store         *store
	retries       int
	requestedHelp bool
	helped        bool
}

func (t *Table) newOp(p *smr.Participant, s *store) *opCtx {
	return &opCtx{t: t, p: p, store: s}
}

// checkHelpNeeded routes this operation through a forced migration if any
// writer has announced it's stuck, even if this operation hasn't hit
// contention itself. Each operation takes this detour at most once.
func (o *opCtx) checkHelpNeeded() bool {
	if o.helped || o.t.helpNeeded.Load() <= 0 {
		return false
	}
	o.helped = true
	o.store = o.t.forceMigrateAndAdvance(o.p, o.store)
	return true
}

// onStuck is called whenever the current attempt cannot proceed without a
// migration: a full probe found no bucket, or the bucket in hand is
// mid-migration. It helps finish the migration, advances to the new
// store, and escalates to the help protocol once RetryThreshold is
// exceeded.
func (o *opCtx) onStuck() {
	o.store = o.t.forceMigrateAndAdvance(o.p, o.store)
	o.retries++
	if !o.requestedHelp && o.retries > o.t.cfg.RetryThreshold {
		o.t.helpNeeded.Add(1)
		o.t.stats.HelpRequests.Add(1)
		o.requestedHelp = true
	}
}

// finish retracts this operation's help request, if it made one, now that
// it's about to return.
func (o *opCtx) finish() {
	if o.requestedHelp {
		o.t.helpNeeded.Add(-1)
	}
}

// forceMigrateAndAdvance runs (or helps complete) migration of old and
// returns the table's current root afterward.
func (t *Table) forceMigrateAndAdvance(p *smr.Participant, old *store) *store {
	t.migrate(p, old)
	return t.getRoot()
}

// retireRecord hands a superseded record to the reclamation domain,
// stamping retireEpoch at the current global epoch.
func (t *Table) retireRecord(p *smr.Participant, rec *record) {
	rec.retireEpoch = t.smr.CurrentEpoch()
	p.Retire(rec, rec.retireEpoch, rec.cleanup)
}

// Get returns the live item stored under hv. Readers never wait on a
// migration in progress (spec.md §4.5): moving/moved flags don't affect
// the record's content, so a frozen-but-not-yet-copied record is read
// exactly like a settled one.
func (t *Table) Get(hv hash128.Hash) (unsafe.Pointer, bool, error) {
	if t.closed.Load() {
		return nil, false, ErrClosed
	}
	if hv.IsZero() {
		return nil, false, ErrInvalidHash
	}
	t.stats.GetCount.Add(1)

	p := t.smr.Enter()
	defer p.Leave()

	b, found := probeFind(t.getRoot(), hv)
	if !found {
		return nil, false, nil
	}
	rec := b.loadRecord()
	if rec == nil || rec.deleted || !rec.isCommitted() {
		return nil, false, nil
	}
	return rec.item, true, nil
}

// Put installs item under hv, overwriting any existing value. It reports
// the previous item and whether one existed. Per spec.md §4.5 this is a
// single-attempt (wait-free) operation: if the installing CAS loses to a
// concurrent writer, the loser treats its own write as having landed and
// been immediately overwritten, reporting the winner's value rather than
// retrying.
func (t *Table) Put(hv hash128.Hash, item unsafe.Pointer) (unsafe.Pointer, bool, error) {
	if t.closed.Load() {
		return nil, false, ErrClosed
	}
	if hv.IsZero() {
		return nil, false, ErrInvalidHash
	}
	t.stats.PutCount.Add(1)

	p := t.smr.Enter()
	defer p.Leave()

	o := t.newOp(p, t.getRoot())
	defer o.finish()

	for {
		if o.checkHelpNeeded() {
			continue
		}
		res, ok := probeAcquireOrFind(o.store, hv)
		if !ok {
			o.onStuck()
			continue
		}
		b := res.b
		cur := b.loadRecord()
		if cur != nil && cur.moving {
			o.onStuck()
			continue
		}

		createEpoch := t.allocCreateEpoch()
		wasLive := cur != nil && !cur.deleted
		if wasLive {
			createEpoch = cur.createEpoch
		}
		candidate := newRecord(item, createEpoch)
		candidate.commit(t.smr)

		if b.casRecord(cur, candidate) {
			if res.crossedThreshold {
				t.forceMigrateAndAdvance(p, o.store)
			}
			if cur == nil {
				t.itemCount.Add(1)
				return nil, false, nil
			}
			t.retireRecord(p, cur)
			if wasLive {
				return cur.item, true, nil
			}
			t.itemCount.Add(1)
			return nil, false, nil
		}

		// Lost the install race.
		now := b.loadRecord()
		if now != nil && now.moving {
			o.onStuck()
			continue
		}
		if now == nil || now.deleted {
			return nil, false, nil
		}
		return now.item, true, nil
	}
}

// Replace overwrites hv's value only if a live value is already present,
// reporting the previous item. It fails (found=false) if the key is
// absent or tombstoned, without installing anything.
func (t *Table) Replace(hv hash128.Hash, item unsafe.Pointer) (unsafe.Pointer, bool, error) {
	if t.closed.Load() {
		return nil, false, ErrClosed
	}
	if hv.IsZero() {
		return nil, false, ErrInvalidHash
	}
	t.stats.ReplaceCount.Add(1)

	p := t.smr.Enter()
	defer p.Leave()

	o := t.newOp(p, t.getRoot())
	defer o.finish()

	for {
		if o.checkHelpNeeded() {
			continue
		}
		b, found := probeFind(o.store, hv)
		if !found {
			return nil, false, nil
		}
		cur := b.loadRecord()
		if cur == nil {
			return nil, false, nil
		}
		if cur.moving {
			o.onStuck()
			continue
		}
		if cur.deleted {
			return nil, false, nil
		}

		candidate := newRecord(item, cur.createEpoch)
		candidate.commit(t.smr)

		if b.casRecord(cur, candidate) {
			t.retireRecord(p, cur)
			return cur.item, true, nil
		}

		now := b.loadRecord()
		if now != nil && now.moving {
			o.onStuck()
			continue
		}
		if now == nil || now.deleted {
			return nil, false, nil
		}
		return now.item, true, nil
	}
}

// Add installs item under hv only if no live value is already present.
// Unlike Put/Replace it reports only success, with no previous item.
func (t *Table) Add(hv hash128.Hash, item unsafe.Pointer) (bool, error) {
	if t.closed.Load() {
		return false, ErrClosed
	}
	if hv.IsZero() {
		return false, ErrInvalidHash
	}
	t.stats.AddCount.Add(1)

	p := t.smr.Enter()
	defer p.Leave()

	o := t.newOp(p, t.getRoot())
	defer o.finish()

	for {
		if o.checkHelpNeeded() {
			continue
		}
		res, ok := probeAcquireOrFind(o.store, hv)
		if !ok {
			o.onStuck()
			continue
		}
		b := res.b
		cur := b.loadRecord()
		if cur != nil && cur.moving {
			o.onStuck()
			continue
		}
		if cur != nil && !cur.deleted {
			return false, nil
		}

		createEpoch := t.allocCreateEpoch()
		candidate := newRecord(item, createEpoch)
		candidate.commit(t.smr)

		if b.casRecord(cur, candidate) {
			if res.crossedThreshold {
				t.forceMigrateAndAdvance(p, o.store)
			}
			if cur != nil {
				t.retireRecord(p, cur)
			}
			t.itemCount.Add(1)
			return true, nil
		}

		// Lost the race; whatever's there now, we did not win exclusivity.
		now := b.loadRecord()
		if now != nil && now.moving {
			o.onStuck()
			continue
		}
		return false, nil
	}
}

// Remove deletes hv's live value, reporting the removed item. It fails
// (found=false) if the key is absent or already tombstoned.
func (t *Table) Remove(hv hash128.Hash) (unsafe.Pointer, bool, error) {
	if t.closed.Load() {
		return nil, false, ErrClosed
	}
	if hv.IsZero() {
		return nil, false, ErrInvalidHash
	}
	t.stats.RemoveCount.Add(1)

	p := t.smr.Enter()
	defer p.Leave()

	o := t.newOp(p, t.getRoot())
	defer o.finish()

	for {
		if o.checkHelpNeeded() {
			continue
		}
		b, found := probeFind(o.store, hv)
		if !found {
			return nil, false, nil
		}
		cur := b.loadRecord()
		if cur == nil {
			return nil, false, nil
		}
		if cur.moving {
			o.onStuck()
			continue
		}
		if cur.deleted {
			return nil, false, nil
		}

		tomb := tombstoneRecord(cur.createEpoch)
		if b.casRecord(cur, tomb) {
			o.store.delCount.Add(1)
			t.itemCount.Add(-1)
			t.retireRecord(p, cur)
			return cur.item, true, nil
		}

		now := b.loadRecord()
		if now != nil && now.moving {
			o.onStuck()
			continue
		}
		if now == nil || now.deleted {
			return nil, false, nil
		}
		return now.item, true, nil
	}
}

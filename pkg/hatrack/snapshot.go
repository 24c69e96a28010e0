package hatrack

import (
	"unsafe"

	"hatrack/pkg/hash128"
)

// Entry is one row of a View snapshot.
type Entry struct {
	Hash        hash128.Hash
	Item        unsafe.Pointer
	CreateEpoch uint64
}

// View returns a linearizable snapshot of every live key in the table, as
// of the instant View was called (spec.md §4.1/§4.7). When sort is true
// the result is ordered by CreateEpoch, i.e. insertion order of each
// key's current lineage.
//
// The snapshot's linearization point is the epoch read by
// smr.Context.EnterLinearized: any record whose write_epoch is still
// unstamped is help-committed in place so its epoch can be compared, and
// any record that committed strictly after the linearization epoch is
// excluded as having logically happened after this View began.
func (t *Table) View(sort bool) ([]Entry, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}

	p := t.smr.EnterLinearized()
	defer p.Leave()
	lin := p.LinearizationEpoch()

	s := t.getRoot()
	out := make([]Entry, 0, s.liveEstimate())

	for i := range s.buckets {
		b := &s.buckets[i]
		hv, ok := b.loadHash()
		if !ok {
			continue
		}
		rec := b.loadRecord()
		if rec == nil {
			continue
		}
		we := rec.helpCommit(t.smr)
		if rec.deleted {
			continue
		}
		if we > lin {
			continue
		}
		out = append(out, Entry{Hash: hv, Item: rec.item, CreateEpoch: rec.createEpoch})
	}

	if sort {
		sortEntriesByCreateEpoch(out, t.cfg.QSortThreshold)
	}
	return out, nil
}

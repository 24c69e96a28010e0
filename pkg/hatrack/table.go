// Package hatrack implements the linearizable, wait-free hash table kernel
// described in spec.md: migration-aware bucket records manipulated by
// compare-and-swap, per-bucket acquisition by linear probing, resize-by-
// migration with every writer pitching in, ordering by per-record epoch
// timestamps, and a helping protocol bounding worst-case contention.
//
// Table is the "flat record, wait-free writer" representative the spec
// calls out as the one to build first (see SPEC_FULL.md §5); it exposes
// Get, Put, Replace, Add, Remove, Len and View.
package hatrack

import (
	"sync/atomic"

	"hatrack/internal/smr"
)

// Table is an opaque, lock-free (wait-free on point operations) hash
// table. Zero value is not usable; construct with NewTable or
// NewTableWithConfig.
type Table struct {
	root atomic.Pointer[store]

	smr *smr.Context
	cfg Config

	itemCount       atomic.Int64
	nextCreateEpoch atomic.Uint64
	helpNeeded      atomic.Int64

	closed atomic.Bool

	stats Stats
}

// Stats is a read-only snapshot of operation counters, supplementing the
// distilled spec the way the teacher's CowBTreeStats supplements
// cowbtree.go — useful for observing migration/help-protocol activity
// from outside the core without instrumenting it.
type Stats struct {
	GetCount       atomic.Int64
	PutCount       atomic.Int64
	ReplaceCount   atomic.Int64
	AddCount       atomic.Int64
	RemoveCount    atomic.Int64
	MigrationCount atomic.Int64
	HelpRequests   atomic.Int64
}

// StatsSnapshot is a plain-value copy of Stats, safe to read without
// racing further updates.
type StatsSnapshot struct {
	GetCount       int64
	PutCount       int64
	ReplaceCount   int64
	AddCount       int64
	RemoveCount    int64
	MigrationCount int64
	HelpRequests   int64
}

// NewTable creates a table with default configuration.
func NewTable() *Table {
	return NewTableWithConfig(DefaultConfig())
}

// NewTableWithConfig creates a table with custom tunables. An invalid
// config is a fatal programming error (spec.md §7) and panics immediately
// rather than failing deep inside a probe loop later.
func NewTableWithConfig(cfg Config) *Table {
	cfg.validate()

	t := &Table{
		cfg: cfg,
		smr: smr.NewContext(smr.Config{
			ThreadsMax:    cfg.ThreadsMax,
			RetireFreqLog: cfg.RetireFreqLog,
		}),
	}
	t.root.Store(newStore(cfg.minSize()))
	t.nextCreateEpoch.Store(1)
	return t
}

func (t *Table) getRoot() *store {
	return t.root.Load()
}

// casRoot attempts to publish next as the current store, replacing old.
func (t *Table) casRoot(old, next *store) bool {
	return t.root.CompareAndSwap(old, next)
}

// allocCreateEpoch hands out the table's own monotonic lineage counter,
// kept separate from the SMR context's global epoch so that create_epoch
// ordering stays stable even when the global epoch surges from unrelated
// write traffic (spec.md §3 "Table").
func (t *Table) allocCreateEpoch() uint64 {
	return t.nextCreateEpoch.Add(1)
}

// Len returns an approximate item count (spec.md §4.5's len()).
func (t *Table) Len() uint64 {
	n := t.itemCount.Load()
	if n < 0 {
		return 0
	}
	return uint64(n)
}

// Stats returns a point-in-time snapshot of the table's operation
// counters.
func (t *Table) Stats() StatsSnapshot {
	return StatsSnapshot{
		GetCount:       t.stats.GetCount.Load(),
		PutCount:       t.stats.PutCount.Load(),
		ReplaceCount:   t.stats.ReplaceCount.Load(),
		AddCount:       t.stats.AddCount.Load(),
		RemoveCount:    t.stats.RemoveCount.Load(),
		MigrationCount: t.stats.MigrationCount.Load(),
		HelpRequests:   t.stats.HelpRequests.Load(),
	}
}

// Close shuts the table down: new operations fail with ErrClosed, and
// once every in-flight reservation has drained, all retired memory is
// force-reclaimed. Mirrors the teacher's CowBTree.Close.
func (t *Table) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	for t.smr.ActiveParticipants() > 0 {
		t.smr.TryReclaim()
	}
	t.smr.DrainAll()
	return nil
}

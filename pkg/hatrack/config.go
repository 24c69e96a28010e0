package hatrack

// Config holds the compile-time tunables enumerated in spec.md §6,
// rendered as a plain struct with a DefaultConfig constructor the way the
// teacher's node.go renders NodeConfig/DefaultNodeConfig.
type Config struct {
	// MinSizeLog is log2 of the smallest store a table (or a migration
	// that shrinks) will allocate.
	MinSizeLog int

	// ThreadsMax bounds simultaneous SMR reservation slots.
	ThreadsMax int

	// RetireFreqLog is log2 of how many retirements, counted across all
	// of the table's operations rather than per participant, trigger a
	// sweep of the reclamation bookkeeping.
	RetireFreqLog int

	// RetryThreshold is how many CAS retries an operation tolerates
	// before it engages the wait-free help protocol.
	RetryThreshold int

	// QSortThreshold is the snapshot size above which View(sort=true)
	// uses quicksort instead of insertion sort.
	QSortThreshold int
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{
		MinSizeLog:     3,
		ThreadsMax:     8192,
		RetireFreqLog:  5,
		RetryThreshold: 6,
		QSortThreshold: 32,
	}
}

// minSize returns 2^MinSizeLog.
func (c Config) minSize() uint64 {
	log := c.MinSizeLog
	if log < 1 {
		log = 1
	}
	return uint64(1) << uint(log)
}

// validate panics on a configuration that would silently corrupt the
// table's invariants (spec.md §7 treats this as a fatal programming
// error, not a recoverable one).
func (c Config) validate() {
	if c.MinSizeLog < 1 {
		panic("hatrack: Config.MinSizeLog must be >= 1")
	}
	if c.ThreadsMax < 1 {
		panic("hatrack: Config.ThreadsMax must be >= 1")
	}
	if c.RetryThreshold < 1 {
		panic("hatrack: Config.RetryThreshold must be >= 1")
	}
}

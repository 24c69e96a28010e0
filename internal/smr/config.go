// Package smr implements epoch-based safe memory reclamation: a global
// epoch clock, a bounded reservation array that readers and writers use to
// announce the oldest epoch they might still observe, and a retire/sweep
// allocator that defers freeing a retired object until no reservation could
// still see it.
package smr

// Config holds the compile-time tunables enumerated for the SMR subsystem.
// It follows the same shape as the rest of the library's configuration
// structs: a plain struct plus a DefaultConfig constructor.
type Config struct {
	// ThreadsMax bounds the number of simultaneous reservation slots.
	// Exceeding it is a fatal programming error (ErrThreadsExhausted).
	ThreadsMax int

	// RetireFreqLog is log2 of how many retirements accumulate before a
	// sweep of the retire list is triggered. The count is shared by every
	// participant of the Context; it is not kept per participant.
	RetireFreqLog int
}

// DefaultConfig returns the default SMR configuration.
func DefaultConfig() Config {
	return Config{
		ThreadsMax:    8192,
		RetireFreqLog: 5,
	}
}

func (c Config) retireFreq() int {
	if c.RetireFreqLog <= 0 {
		return 1
	}
	return 1 << uint(c.RetireFreqLog)
}

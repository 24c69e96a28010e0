// Package hash128 defines the opaque 128-bit identity value the hash
// table kernel indexes by. It never computes a hash itself — producing one
// from a key is an external collaborator's job (spec.md §1) — it only
// compares, indexes, and recognizes the reserved zero value.
package hash128

// Hash is an opaque 128-bit identity, split into two 64-bit halves. The
// all-zero value is reserved and means "bucket unused"; callers must never
// pass it as a real key hash.
type Hash struct {
	W1 uint64
	W2 uint64
}

// Zero is the reserved "unused" sentinel.
var Zero = Hash{}

// IsZero reports whether h is the reserved sentinel value.
func (h Hash) IsZero() bool {
	return h.W1 == 0 && h.W2 == 0
}

// Equal reports whether h and o carry the same identity.
func (h Hash) Equal(o Hash) bool {
	return h.W1 == o.W1 && h.W2 == o.W2
}

// BucketIndex computes h's bucket slot in a store of the given size, which
// must be a power of two. Indexing uses the high half, masked against
// size-1, per spec.md §3.
func (h Hash) BucketIndex(size uint64) uint64 {
	return h.W1 & (size - 1)
}

// New builds a Hash from its two halves. It exists so call sites that
// already have a 128-bit value in two machine words don't need to build
// the struct literal by hand.
func New(w1, w2 uint64) Hash {
	return Hash{W1: w1, W2: w2}
}

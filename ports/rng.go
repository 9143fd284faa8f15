package ports

import (
	"math/rand"
)

// RNG provides seeded random number generation for deterministic corpus
// construction. Identical seed + identical stream name must yield an
// identical sequence, which is what makes a frozen corpus byte-identical
// across rebuilds.
type RNG interface {
	// Stream creates a deterministic generator for a named operation
	Stream(name string) *rand.Rand
}

// Package rng provides seeded deterministic random streams for corpus
// construction. Each named stream derives its seed from the base seed plus
// the stream name, so adding a stream never perturbs the sequences of the
// existing ones.
package rng

import (
	"encoding/binary"
	"math/rand"

	"feastbench/domain/core"
	"feastbench/ports"
)

// SeededRNG implements ports.RNG over math/rand with sha256-derived
// per-stream seeds.
type SeededRNG struct {
	baseSeed int64
}

// New creates a deterministic RNG rooted at the pre-registered base seed
func New(baseSeed int64) *SeededRNG {
	return &SeededRNG{baseSeed: baseSeed}
}

// Stream creates the deterministic generator for a named operation.
// Identical (baseSeed, name) always yields an identical sequence.
func (r *SeededRNG) Stream(name string) *rand.Rand {
	fp := core.ComputeSeedFingerprint(r.baseSeed, name)
	seed := int64(binary.BigEndian.Uint64([]byte(fp.String())[:8]))
	return rand.New(rand.NewSource(seed))
}

var _ ports.RNG = (*SeededRNG)(nil)

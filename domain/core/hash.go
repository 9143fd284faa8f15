package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Domain-specific hash types
type (
	// CorpusHash content-addresses a frozen corpus manifest.
	CorpusHash Hash
	// FamilyHash identifies a pre-registered hypothesis family for FDR grouping.
	FamilyHash Hash
)

// Constructors
func NewCorpusHash(data []byte) CorpusHash { return CorpusHash(NewHash(data)) }
func NewFamilyHash(data []byte) FamilyHash { return FamilyHash(NewHash(data)) }

// String conversions
func (h CorpusHash) String() string { return Hash(h).String() }
func (h FamilyHash) String() string { return Hash(h).String() }

// ComputeFamilyHash derives the hash of a contrast family from its frozen
// definition. Families are declared before any result is observed, so the
// hash never changes once a run begins.
func ComputeFamilyHash(corpusHash CorpusHash, familyName string, contrasts []string) FamilyHash {
	sorted := make([]string, len(contrasts))
	copy(sorted, contrasts)
	sort.Strings(sorted)

	var data strings.Builder
	data.WriteString(corpusHash.String())
	data.WriteString(familyName)
	for _, c := range sorted {
		data.WriteString(c)
	}
	return NewFamilyHash([]byte(data.String()))
}

// ComputeItemHash derives the content identity of a test item from its frozen
// fields. Prompt conditions are deliberately excluded: the same content keyed
// under every condition.
func ComputeItemHash(fields ...string) Hash {
	var data strings.Builder
	for _, f := range fields {
		data.WriteString(f)
		data.WriteString("\x1f")
	}
	return NewHash([]byte(data.String()))
}

// ShortHash returns a 12-character prefix for log-friendly identifiers.
func ShortHash(h Hash) string {
	s := h.String()
	if len(s) <= 12 {
		return s
	}
	return s[:12]
}

// ComputeSeedFingerprint combines a base seed with a named stream so
// independent deterministic streams never collide.
func ComputeSeedFingerprint(baseSeed int64, stream string) Hash {
	return NewHash([]byte(fmt.Sprintf("%d:%s", baseSeed, stream)))
}

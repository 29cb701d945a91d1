// Package peerset tracks a group of public keys forming a close group and
// its quorum arithmetic, adapted from babble's peers.PeerSet.
package peerset

import (
	"crypto/sha256"
	"sort"

	"github.com/dirvine/data-chain/keys"
)

// Set is a sorted, deduplicated group of public keys.
type Set struct {
	keys []keys.PublicKey
}

// New builds a Set from a slice of public keys, sorting and deduplicating
// them.
func New(group []keys.PublicKey) *Set {
	sorted := make([]keys.PublicKey, len(group))
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Compare(sorted[j]) < 0
	})

	deduped := sorted[:0]
	for i, k := range sorted {
		if i == 0 || k.Compare(sorted[i-1]) != 0 {
			deduped = append(deduped, k)
		}
	}

	return &Set{keys: deduped}
}

// Len returns the number of distinct members.
func (s *Set) Len() int { return len(s.keys) }

// Keys returns the sorted member keys. Callers must not mutate the
// returned slice.
func (s *Set) Keys() []keys.PublicKey { return s.keys }

// Contains reports whether pub is a member of the set.
func (s *Set) Contains(pub keys.PublicKey) bool {
	i := sort.Search(len(s.keys), func(i int) bool {
		return s.keys[i].Compare(pub) >= 0
	})
	return i < len(s.keys) && s.keys[i].Compare(pub) == 0
}

// Hash uniquely identifies the set's membership: SHA-256 of the sorted
// members concatenated in order. This matches identifier.CreateLinkDescriptor
// so a Set's Hash and a link identifier's Hash agree for the same membership.
func (s *Set) Hash() [32]byte {
	h := sha256.New()
	for _, k := range s.keys {
		h.Write(k)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Quorum returns the strict-majority threshold for a group of the given
// size: group_size/2 + 1.
func Quorum(groupSize int) int {
	return groupSize/2 + 1
}

// Intersect returns the number of keys common to both sets.
func Intersect(a, b []keys.PublicKey) int {
	setB := New(b)
	count := 0
	for _, k := range a {
		if setB.Contains(k) {
			count++
		}
	}
	return count
}

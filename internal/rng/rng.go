// Package rng provides the deterministic pseudo-random primitives used for
// stable "random-looking" content ordering. The generator is reproducible
// bit-for-bit for a given seed and call count, which the selection engine
// depends on. It is not suitable for anything security related.
package rng

import "unicode/utf16"

// Hash32 computes a 32-bit FNV-1a hash over the UTF-16 code units of s.
func Hash32(s string) uint32 {
	h := uint32(2166136261)
	for _, u := range utf16.Encode([]rune(s)) {
		h ^= uint32(u)
		h *= 16777619
	}
	return h
}

// New returns a mulberry32 generator seeded with seed. Each call advances the
// state by a fixed constant and returns a float64 in [0, 1).
func New(seed uint32) func() float64 {
	state := seed
	return func() float64 {
		state += 0x6d2b79f5
		t := state
		t = (t ^ (t >> 15)) * (t | 1)
		t ^= t + (t^(t>>7))*(t|61)
		return float64(t^(t>>14)) / 4294967296
	}
}

// Shuffle returns a new slice holding a Fisher-Yates permutation of items,
// driven by New(Hash32(seed)). The input is never modified. A fixed input
// ordering and seed always produce the same permutation.
func Shuffle[T any](items []T, seed string) []T {
	out := make([]T, len(items))
	copy(out, items)

	next := New(Hash32(seed))
	for i := len(out) - 1; i > 0; i-- {
		j := int(next() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

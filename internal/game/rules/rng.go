package rules

import (
	"hash/fnv"
	"math/rand"
)

// Source yields doubles in [0,1). Deck shuffles draw swap indexes from one,
// so two sides seeding the same RNG deal identical decks without ever
// sending card lists over the wire.
type Source interface {
	Float64() float64
}

// RNG is a 32-bit xorshift stream seeded from an FNV-1a hash of a seed
// string. Not cryptographic; it only has to be identical on both peers.
type RNG struct {
	state uint32
}

func NewRNG(seed string) *RNG {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	s := h.Sum32()
	if s == 0 {
		s = 0x9e3779b9 // xorshift must not start at zero
	}
	return &RNG{state: s}
}

func (r *RNG) next() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

func (r *RNG) Float64() float64 {
	return float64(r.next()) / float64(1<<32)
}

// mathSource is the non-deterministic fallback used when no seed is given.
type mathSource struct{}

func (mathSource) Float64() float64 { return rand.Float64() }

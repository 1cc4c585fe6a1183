// Package entropy provides the seedable random source injected into every
// stochastic step of the simulation (ignition, timer jitter, crowd placement).
// A fixed seed reproduces a run exactly; seed 0 draws one from crypto/rand.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Source wraps a deterministic PRNG with the draws the simulation needs.
// It is not safe for concurrent use; one simulation owns one Source.
type Source struct {
	seed int64
	rng  *mrand.Rand
}

// New creates a source. A zero seed is replaced by a cryptographic one.
func New(seed int64) *Source {
	if seed == 0 {
		seed = CryptoSeed()
	}
	return &Source{
		seed: seed,
		rng:  mrand.New(mrand.NewSource(seed)),
	}
}

// Seed returns the effective seed, so a run can be reproduced later.
func (s *Source) Seed() int64 {
	return s.seed
}

// Float returns a uniform value in [0, 1).
func (s *Source) Float() float64 {
	return s.rng.Float64()
}

// Bool returns true with probability p.
func (s *Source) Bool(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.rng.Float64() < p
}

// Range returns a uniform value in [lo, hi). An empty range returns lo.
func (s *Source) Range(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Float64()*(hi-lo)
}

// Jitter returns base scaled uniformly within ±frac.
func (s *Source) Jitter(base, frac float64) float64 {
	return s.Range(base*(1-frac), base*(1+frac))
}

// CryptoSeed returns a non-zero seed from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen; fall back to the global PRNG.
		return mrand.Int63() | 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}

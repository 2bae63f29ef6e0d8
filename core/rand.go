package core

import (
	"fmt"
	"math/rand/v2"
)

// RandSource provides random number generation for synthesis.
// This interface enables dependency injection for deterministic testing.
type RandSource interface {
	// Intn returns a random integer in [0, n). Panics if n <= 0.
	Intn(n int) int
}

// seededRandSource is a PCG generator seeded from synthesis inputs.
type seededRandSource struct {
	rng *rand.Rand
}

// NewSeededRandSource returns a RandSource whose sequence is fully determined by seed.
func NewSeededRandSource(seed uint64) RandSource {
	return &seededRandSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn returns a random integer in [0, n).
// Panics if n <= 0 (programmer error).
func (s *seededRandSource) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("seededRandSource.Intn: n must be positive, got %d", n))
	}
	return s.rng.IntN(n)
}

// RandomIntInRange returns a uniform random integer in [low, high].
// Returns low when high <= low.
func RandomIntInRange(randSource RandSource, low, high int) int {
	if high <= low {
		return low
	}
	return low + randSource.Intn(high-low+1)
}

package engine

import "math/rand"

// RNG is the engine's single source of randomness. Design note (spec.md
// §9): the RNG is process-scoped but must be passed through the engine
// by constructor injection, never a package-global, so that determinism
// is testable and two Engines with the same seed never share state.
// All draws -- PowerOfTwoChoices candidate sampling and its fair-coin
// tiebreak -- consume this single stream in handler-invocation order,
// matching spec.md §5's determinism requirement.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates an RNG seeded deterministically from seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// IntN returns a pseudo-random int in [0, n).
func (g *RNG) IntN(n int) int {
	return g.r.Intn(n)
}

// Float64 returns a pseudo-random float64 in [0, 1).
func (g *RNG) Float64() float64 {
	return g.r.Float64()
}

// Coin returns true or false with equal probability -- used for breaking
// ties between equally-loaded PowerOfTwoChoices candidates.
func (g *RNG) Coin() bool {
	return g.r.Float64() < 0.5
}

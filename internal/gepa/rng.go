package gepa

import "math/rand/v2"

// RNG is the optimizer's single explicit source of randomness. It is
// threaded through every stochastic call (candidate/component selection,
// batch shuffling, merge-pair and merge-triple draws) so that a run is
// fully reproducible given a fixed seed and a deterministic adapter. No
// package-level or global RNG is used anywhere in this module.
type RNG struct {
	r *rand.Rand
}

// NewRNG constructs an RNG from a master seed. Two RNGs built from the same
// seed and driven through the same sequence of calls draw identical values.
func NewRNG(seed uint64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// IntN draws a uniform value in [0, n). Panics if n <= 0.
func (g *RNG) IntN(n int) int {
	return g.r.IntN(n)
}

// Float64 draws a uniform value in [0, 1).
func (g *RNG) Float64() float64 {
	return g.r.Float64()
}

// Shuffle permutes n elements in place using swap, Fisher-Yates.
func (g *RNG) Shuffle(n int, swap func(i, j int)) {
	g.r.Shuffle(n, swap)
}

package game

import "math/rand/v2"

// Rand is the randomness the engines draw from. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

func (globalRand) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

// DefaultRand uses the goroutine-safe top-level generator.
var DefaultRand Rand = globalRand{}

// intBetween returns a uniform integer in [lo, hi].
func intBetween(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

package quiz

import (
	"math/rand/v2"
	"time"
)

// Source is the only randomness the planner consumes. *rand.Rand satisfies it.
type Source interface {
	// IntN returns a uniform int in [0, n). n > 0.
	IntN(n int) int
}

// NewSource returns a deterministic source for a seed.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewTimeSource seeds from the wall clock.
func NewTimeSource() Source {
	return NewSource(uint64(time.Now().UnixNano()))
}

// Shuffle permutes n elements in place with Fisher-Yates.
func Shuffle(n int, src Source, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		if j != i {
			swap(i, j)
		}
	}
}

package opt

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Source supplies uniform samples in [0, 1).
// *rand.Rand satisfies it; a Source must not be shared between goroutines.
type Source interface {
	Float64() float64
}

// NewSource creates a seeded random source for reproducible runs
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// maxInitDraws bounds the redraws RandomInit makes before falling back
const maxInitDraws = 100

// randomDirection draws every component uniformly from [-1, 1] and
// normalizes the result. It reports false when the draw is the zero vector.
func randomDirection(src Source, k int) ([]float64, bool) {
	dir := make([]float64, k)
	for i := range dir {
		dir[i] = 2*src.Float64() - 1
	}
	norm := floats.Norm(dir, 2)
	if !(norm > 0) {
		return nil, false
	}
	floats.Scale(1/norm, dir)
	return dir, true
}

// RandomInit returns a start generator producing random unit vectors of
// length k, for use as MultiStart.Init. A source that keeps yielding the
// zero vector gets basis vector i mod k instead.
func RandomInit(src Source, k int) func(i int) []float64 {
	return func(i int) []float64 {
		for draw := 0; draw < maxInitDraws; draw++ {
			if dir, ok := randomDirection(src, k); ok {
				return dir
			}
		}
		dir := make([]float64, k)
		if k > 0 {
			dir[i%k] = 1
		}
		return dir
	}
}

package opt

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Normalizer maps a raw candidate onto the search domain
type Normalizer func(x []float64) []float64

// Normalize returns a unit-norm copy of v.
// Empty, zero and non-finite vectors are rejected with ErrInvalidArgument.
func Normalize(v []float64) ([]float64, error) {
	if len(v) == 0 {
		return nil, invalidArgument("vector has zero length")
	}
	norm := floats.Norm(v, 2)
	if norm == 0 {
		return nil, invalidArgument("vector has zero norm")
	}
	if math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, invalidArgument("vector norm is not finite")
	}
	return floats.ScaleTo(make([]float64, len(v)), 1/norm, v), nil
}

// BlockNormalizer returns a Normalizer that rescales consecutive blocks of
// size components to unit norm independently. A trailing partial block is
// normalized on its own; all-zero blocks are left as they are.
//
// With size 3 this keeps every Pauli direction of a packed Mermin coefficient
// vector on the unit sphere; with size 4 it keeps every (re α, im α, re β, im β)
// qubit amplitude normalized.
func BlockNormalizer(size int) Normalizer {
	return func(x []float64) []float64 {
		out := make([]float64, len(x))
		copy(out, x)
		block := size
		if block <= 0 {
			block = len(out)
		}
		for start := 0; start < len(out); start += block {
			end := min(start+block, len(out))
			part := out[start:end]
			norm := floats.Norm(part, 2)
			if norm > 0 {
				floats.Scale(1/norm, part)
			}
		}
		return out
	}
}

// isZero reports whether every component of v is zero
func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

package measure

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/quantum"
)

// realsPerQubit is the size of one qubit block of a separable state:
// Re α, Im α, Re β, Im β for α|0⟩ + β|1⟩.
const realsPerQubit = 4

// SeparableNormalizer renormalizes each qubit block of separable coordinates
func SeparableNormalizer() opt.Normalizer {
	return opt.BlockNormalizer(realsPerQubit)
}

// ProductState builds ⊗_q (α_q|0⟩ + β_q|1⟩) from 4 reals per qubit, qubit 0
// being the most significant. Each qubit block is normalized first.
func ProductState(x []float64) (*quantum.Vector, error) {
	if len(x) == 0 || len(x)%realsPerQubit != 0 {
		return nil, fmt.Errorf("coordinate count %d is not a positive multiple of %d", len(x), realsPerQubit)
	}
	n := len(x) / realsPerQubit
	alpha := make([]complex128, n)
	beta := make([]complex128, n)
	for q := 0; q < n; q++ {
		b := x[realsPerQubit*q : realsPerQubit*(q+1)]
		a, bb := complex(b[0], b[1]), complex(b[2], b[3])
		norm := math.Sqrt(real(a)*real(a) + imag(a)*imag(a) + real(bb)*real(bb) + imag(bb)*imag(bb))
		if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			return nil, fmt.Errorf("qubit %d has no usable norm", q)
		}
		alpha[q] = a / complex(norm, 0)
		beta[q] = bb / complex(norm, 0)
	}

	amps := make([]complex128, 1<<n)
	for i := range amps {
		amp := complex(1, 0)
		for q := 0; q < n; q++ {
			if i&(1<<(n-1-q)) != 0 {
				amp *= beta[q]
			} else {
				amp *= alpha[q]
			}
		}
		amps[i] = amp
	}
	return quantum.NewVector(amps), nil
}

// GMEResult is the outcome of a geometric measure computation
type GMEResult struct {
	// Value is 1 − Overlap
	Value float64 `json:"value"`
	// Overlap is the best |⟨φ|ψ⟩|² found over separable φ
	Overlap     float64   `json:"overlap"`
	Separable   []float64 `json:"separable"`
	Evaluations int       `json:"evaluations"`
}

// GeometricMeasure returns 1 − max |⟨φ|ψ⟩|² over separable states φ,
// searched from the all-ones coordinates. Pair m with SeparableNormalizer to
// keep every qubit block normalized.
func GeometricMeasure(psi *quantum.Vector, m opt.Maximizer) (*GMEResult, error) {
	if m == nil {
		return nil, fmt.Errorf("maximizer is nil")
	}
	n, err := quantum.Qubits(psi.Len())
	if err != nil {
		return nil, err
	}

	obj := func(x []float64) float64 {
		phi, err := ProductState(x)
		if err != nil {
			return math.NaN()
		}
		o := cmplx.Abs(phi.Inner(psi))
		return o * o
	}
	res, err := m.Maximize(obj, ones(realsPerQubit*n))
	if err != nil {
		return nil, fmt.Errorf("separable state search failed: %w", err)
	}
	return &GMEResult{
		Value:       1 - res.Score,
		Overlap:     res.Score,
		Separable:   res.Best,
		Evaluations: res.Evaluations,
	}, nil
}

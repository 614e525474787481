package measure

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/quantum"
	"github.com/cwbudde/merminwalk/internal/store"
)

// PackCoefficients flattens per-qubit directions into optimizer coordinates:
// all a directions first, then all a' directions, x/y/z each.
func PackCoefficients(as, aPrimes [][3]float64) []float64 {
	x := make([]float64, 0, 3*(len(as)+len(aPrimes)))
	for _, d := range as {
		x = append(x, d[:]...)
	}
	for _, d := range aPrimes {
		x = append(x, d[:]...)
	}
	return x
}

// UnpackCoefficients is the inverse of PackCoefficients
func UnpackCoefficients(x []float64) (as, aPrimes [][3]float64, err error) {
	if len(x) == 0 || len(x)%store.CoefficientsPerQubit != 0 {
		return nil, nil, fmt.Errorf("coefficient count %d is not a positive multiple of %d", len(x), store.CoefficientsPerQubit)
	}
	triples := make([][3]float64, len(x)/3)
	for i := range triples {
		copy(triples[i][:], x[3*i:3*i+3])
	}
	half := len(triples) / 2
	return triples[:half], triples[half:], nil
}

// FamilyOperator builds the Mermin operator where qubit level k uses its
// own pair of directions, from packed coordinates.
func FamilyOperator(x []float64) (*quantum.Matrix, error) {
	as, aps, err := UnpackCoefficients(x)
	if err != nil {
		return nil, err
	}
	obsA := make([]*quantum.Matrix, len(as))
	obsAP := make([]*quantum.Matrix, len(aps))
	for i := range as {
		if obsA[i], err = quantum.Observable(as[i]); err != nil {
			return nil, fmt.Errorf("a[%d]: %w", i, err)
		}
		if obsAP[i], err = quantum.Observable(aps[i]); err != nil {
			return nil, fmt.Errorf("a'[%d]: %w", i, err)
		}
	}
	return quantum.MerminFamily(obsA, obsAP)
}

// FamilyNormalizer renormalizes each direction of packed family coordinates
func FamilyNormalizer() opt.Normalizer {
	return opt.BlockNormalizer(3)
}

// FamilyOptimum is the outcome of a per-qubit Mermin search
type FamilyOptimum struct {
	Coefficients []float64 `json:"coefficients"`
	Value        float64   `json:"value"`
	Evaluations  int       `json:"evaluations"`
}

func familyOptimize(n int, score func(op *quantum.Matrix) float64, m opt.Maximizer) (*FamilyOptimum, error) {
	if m == nil {
		return nil, fmt.Errorf("maximizer is nil")
	}
	obj := func(x []float64) float64 {
		op, err := FamilyOperator(x)
		if err != nil {
			return math.NaN()
		}
		return score(op)
	}
	res, err := m.Maximize(obj, ones(store.CoefficientsPerQubit*n))
	if err != nil {
		return nil, fmt.Errorf("family optimization failed: %w", err)
	}
	slog.Debug("Mermin family optimum", "qubits", n, "value", res.Score, "evaluations", res.Evaluations)
	return &FamilyOptimum{Coefficients: res.Best, Value: res.Score, Evaluations: res.Evaluations}, nil
}

// OptimizeMerminFamily maximizes |tr(M_n ρ)| over one (a, a') pair per
// qubit, starting from all-ones coordinates. Pair m with FamilyNormalizer
// to keep every direction on the unit sphere.
func OptimizeMerminFamily(rho *quantum.Matrix, n int, m opt.Maximizer) (*FamilyOptimum, error) {
	if n < 1 {
		return nil, fmt.Errorf("need at least one qubit, got %d", n)
	}
	r, c := rho.Dims()
	if r != 1<<n || c != 1<<n {
		return nil, fmt.Errorf("density matrix is %dx%d, expected %d for %d qubits", r, c, 1<<n, n)
	}
	return familyOptimize(n, func(op *quantum.Matrix) float64 {
		return quantum.TraceAgainst(op, rho)
	}, m)
}

// MerminValue is the per-qubit Mermin optimum of a pure state, evaluated as
// |⟨ψ|M_n|ψ⟩| without forming the density matrix.
func MerminValue(psi *quantum.Vector, m opt.Maximizer) (*FamilyOptimum, error) {
	n, err := quantum.Qubits(psi.Len())
	if err != nil {
		return nil, err
	}
	return familyOptimize(n, func(op *quantum.Matrix) float64 {
		return quantum.Expectation(op, psi)
	}, m)
}

package quantum

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Pauli matrices
var (
	PauliX = NewMatrix(2, 2, []complex128{0, 1, 1, 0})
	PauliY = NewMatrix(2, 2, []complex128{0, -1i, 1i, 0})
	PauliZ = NewMatrix(2, 2, []complex128{1, 0, 0, -1})
)

// Observable returns n·σ = nx·X + ny·Y + nz·Z for the unit vector n along dir
func Observable(dir [3]float64) (*Matrix, error) {
	norm := math.Sqrt(dir[0]*dir[0] + dir[1]*dir[1] + dir[2]*dir[2])
	if norm == 0 || math.IsNaN(norm) {
		return nil, fmt.Errorf("observable direction %v has no usable norm", dir)
	}
	x, y, z := dir[0]/norm, dir[1]/norm, dir[2]/norm
	return NewMatrix(2, 2, []complex128{
		complex(z, 0), complex(x, -y),
		complex(x, y), complex(-z, 0),
	}), nil
}

// Mermin returns the n-qubit Mermin operator built from a single pair of
// single-qubit observables a, a' used at every level:
//
//	M_1 = a,  M'_1 = a'
//	M_n = ½ (M_{n-1} ⊗ (a+a') + M'_{n-1} ⊗ (a−a'))
//	M'_n = ½ (M'_{n-1} ⊗ (a+a') + M_{n-1} ⊗ (a'−a))
func Mermin(n int, a, aPrime *Matrix) (*Matrix, error) {
	if n < 1 {
		return nil, fmt.Errorf("mermin operator needs at least one qubit, got %d", n)
	}
	as := make([]*Matrix, n)
	aps := make([]*Matrix, n)
	for i := range as {
		as[i], aps[i] = a, aPrime
	}
	return MerminFamily(as, aps)
}

// MerminFamily returns the Mermin operator where level k uses its own pair
// (as[k-1], aPrimes[k-1]). Both families must have one entry per qubit.
func MerminFamily(as, aPrimes []*Matrix) (*Matrix, error) {
	if len(as) == 0 {
		return nil, fmt.Errorf("mermin operator needs at least one qubit")
	}
	if len(as) != len(aPrimes) {
		return nil, fmt.Errorf("observable families differ in length: %d vs %d", len(as), len(aPrimes))
	}
	m, _ := merminPair(len(as), as, aPrimes)
	return m, nil
}

// merminPair returns (M_n, M'_n). Each level is built once from the two arms
// of the level below.
func merminPair(n int, as, aps []*Matrix) (*Matrix, *Matrix) {
	if n == 1 {
		return as[0], aps[0]
	}
	m, mp := merminPair(n-1, as, aps)
	a, ap := as[n-1], aps[n-1]
	sum := a.Add(ap)
	diff := a.Sub(ap)

	next := m.KronMatrix(sum).Add(mp.KronMatrix(diff)).Scale(0.5)
	nextPrime := mp.KronMatrix(sum).Add(m.KronMatrix(diff.Scale(-1))).Scale(0.5)
	return next, nextPrime
}

// Expectation returns |⟨ψ|op|ψ⟩|
func Expectation(op *Matrix, psi *Vector) float64 {
	return cmplx.Abs(psi.Inner(op.Apply(psi)))
}

// TraceAgainst returns |tr(op·ρ)|
func TraceAgainst(op, rho *Matrix) float64 {
	r, c := op.Dims()
	var sum complex128
	for i := 0; i < r; i++ {
		for k := 0; k < c; k++ {
			sum += op.At(i, k) * rho.At(k, i)
		}
	}
	return cmplx.Abs(sum)
}

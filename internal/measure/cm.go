package measure

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/merminwalk/internal/quantum"
)

// Flattening is the coefficient matrix of a state with respect to a set of
// qubits: row r holds the amplitudes whose selected qubits read r, in
// increasing order of the remaining qubits.
type Flattening struct {
	// Qubits are the selected qubits, 0 being the most significant
	Qubits []int
	Matrix *quantum.Matrix
}

// flatteningQubitSets lists the qubit selections for m = 1..⌊n/2⌋.
// Single-qubit selections cover every qubit; larger ones are drawn from the
// first n−1 qubits.
func flatteningQubitSets(n int) [][][]int {
	var sets [][][]int
	for m := 1; m <= n/2; m++ {
		pool := n - 1
		if m == 1 {
			pool = n
		}
		sets = append(sets, combinations(pool, m))
	}
	return sets
}

// combinations returns the size-k subsets of {0..n-1} in lexicographic order
func combinations(n, k int) [][]int {
	var out [][]int
	cur := make([]int, 0, k)
	var rec func(start int)
	rec = func(start int) {
		if len(cur) == k {
			out = append(out, append([]int(nil), cur...))
			return
		}
		for i := start; i <= n-(k-len(cur)); i++ {
			cur = append(cur, i)
			rec(i + 1)
			cur = cur[:len(cur)-1]
		}
	}
	rec(0)
	return out
}

// flatten builds the coefficient matrix of psi for the selected qubits
func flatten(psi *quantum.Vector, n int, qubits []int) *quantum.Matrix {
	m := len(qubits)
	rows, cols := 1<<m, 1<<(n-m)
	entries := make([]complex128, rows*cols)
	next := make([]int, rows)
	for j := 0; j < psi.Len(); j++ {
		r := 0
		for _, q := range qubits {
			r <<= 1
			if j&(1<<(n-1-q)) != 0 {
				r |= 1
			}
		}
		entries[r*cols+next[r]] = psi.At(j)
		next[r]++
	}
	return quantum.NewMatrix(rows, cols, entries)
}

// Flattenings returns the coefficient matrices of psi grouped by the number
// of selected qubits.
func Flattenings(psi *quantum.Vector) ([][]Flattening, error) {
	n, err := quantum.Qubits(psi.Len())
	if err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, fmt.Errorf("flattenings need at least two qubits, got %d", n)
	}
	var out [][]Flattening
	for _, sets := range flatteningQubitSets(n) {
		group := make([]Flattening, 0, len(sets))
		for _, qs := range sets {
			group = append(group, Flattening{Qubits: qs, Matrix: flatten(psi, n, qs)})
		}
		out = append(out, group)
	}
	return out, nil
}

// columnInvariant returns √(4·|Σ_{i<j} ‖c_i‖²‖c_j‖² − |⟨c_i,c_j⟩|²|) over the
// columns c of m.
func columnInvariant(m *quantum.Matrix) float64 {
	r, c := m.Dims()
	norms := make([]float64, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			a := m.At(i, j)
			norms[j] += real(a)*real(a) + imag(a)*imag(a)
		}
	}
	var sum float64
	for j := 0; j < c; j++ {
		for k := j + 1; k < c; k++ {
			var dot complex128
			for i := 0; i < r; i++ {
				dot += m.At(i, j) * cmplx.Conj(m.At(i, k))
			}
			d := cmplx.Abs(dot)
			sum += norms[j]*norms[k] - d*d
		}
	}
	return math.Sqrt(4 * math.Abs(sum))
}

// CoefficientMatrixInvariant averages the column invariant over every
// flattening of psi. It vanishes on fully separable states and is 1 on GHZ.
func CoefficientMatrixInvariant(psi *quantum.Vector) (float64, error) {
	groups, err := Flattenings(psi)
	if err != nil {
		return 0, err
	}
	var total float64
	var count int
	for _, group := range groups {
		for _, f := range group {
			total += columnInvariant(f.Matrix)
			count++
		}
	}
	return total / float64(count), nil
}

// rankTol is the relative singular value cutoff used for ranks
const rankTol = 1e-10

// Rank returns the rank of a complex matrix, computed from the SVD of its
// real embedding [[Re, −Im], [Im, Re]], whose singular values are those of
// m each taken twice.
func Rank(m *quantum.Matrix) (int, error) {
	r, c := m.Dims()
	embed := mat.NewDense(2*r, 2*c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			a := m.At(i, j)
			embed.Set(i, j, real(a))
			embed.Set(i, j+c, -imag(a))
			embed.Set(i+r, j, imag(a))
			embed.Set(i+r, j+c, real(a))
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(embed, mat.SVDNone); !ok {
		return 0, fmt.Errorf("singular value decomposition failed")
	}
	values := svd.Values(nil)
	if len(values) == 0 || values[0] == 0 {
		return 0, nil
	}
	var count int
	for _, v := range values {
		if v > rankTol*values[0] {
			count++
		}
	}
	return count / 2, nil
}

// FlatteningRanks returns the rank of every flattening, grouped like
// Flattenings.
func FlatteningRanks(psi *quantum.Vector) ([][]int, error) {
	groups, err := Flattenings(psi)
	if err != nil {
		return nil, err
	}
	ranks := make([][]int, len(groups))
	for g, group := range groups {
		ranks[g] = make([]int, len(group))
		for i, f := range group {
			if ranks[g][i], err = Rank(f.Matrix); err != nil {
				return nil, fmt.Errorf("rank of flattening %v: %w", f.Qubits, err)
			}
		}
	}
	return ranks, nil
}

// Package quantum provides the small amount of dense complex linear algebra
// needed to build Mermin operators and the states they are evaluated on.
package quantum

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Kind tags a tensor as a state vector or an operator matrix
type Kind int

const (
	KindVector Kind = iota
	KindMatrix
)

func (k Kind) String() string {
	switch k {
	case KindVector:
		return "vector"
	case KindMatrix:
		return "matrix"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// TensorProductable is implemented by values that support the Kronecker product
type TensorProductable interface {
	// Kron returns the Kronecker product of the receiver with other.
	// The result has the receiver's kind.
	Kron(other Tensor) Tensor
}

// Tensor is either a *Vector or a *Matrix
type Tensor interface {
	TensorProductable
	Kind() Kind
	Dense() *mat.CDense
}

// Vector is a column state vector
type Vector struct {
	data *mat.CDense
}

// Matrix is a square or rectangular complex operator
type Matrix struct {
	data *mat.CDense
}

// NewVector creates a column vector holding a copy of entries
func NewVector(entries []complex128) *Vector {
	data := make([]complex128, len(entries))
	copy(data, entries)
	return &Vector{data: mat.NewCDense(len(data), 1, data)}
}

// RealVector creates a vector with real entries
func RealVector(entries []float64) *Vector {
	data := make([]complex128, len(entries))
	for i, x := range entries {
		data[i] = complex(x, 0)
	}
	return &Vector{data: mat.NewCDense(len(data), 1, data)}
}

// NewMatrix creates an r×c matrix from row-major entries
func NewMatrix(r, c int, entries []complex128) *Matrix {
	data := make([]complex128, len(entries))
	copy(data, entries)
	return &Matrix{data: mat.NewCDense(r, c, data)}
}

// Identity returns the n×n identity
func Identity(n int) *Matrix {
	m := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return &Matrix{data: m}
}

func (v *Vector) Kind() Kind         { return KindVector }
func (v *Vector) Dense() *mat.CDense { return v.data }
func (m *Matrix) Kind() Kind         { return KindMatrix }
func (m *Matrix) Dense() *mat.CDense { return m.data }

// Kron implements TensorProductable for vectors
func (v *Vector) Kron(other Tensor) Tensor {
	return &Vector{data: kron(v.data, other.Dense())}
}

// Kron implements TensorProductable for matrices
func (m *Matrix) Kron(other Tensor) Tensor {
	return &Matrix{data: kron(m.data, other.Dense())}
}

// KronMatrix is Kron with a matrix result, for operator recursions
func (m *Matrix) KronMatrix(other *Matrix) *Matrix {
	return &Matrix{data: kron(m.data, other.data)}
}

func kron(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewCDense(ar*br, ac*bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			aij := a.At(i, j)
			if aij == 0 {
				continue
			}
			for k := 0; k < br; k++ {
				for l := 0; l < bc; l++ {
					out.Set(i*br+k, j*bc+l, aij*b.At(k, l))
				}
			}
		}
	}
	return out
}

// KroneckerPower returns t ⊗ t ⊗ ... ⊗ t (n factors), with t's kind
func KroneckerPower(t Tensor, n int) (Tensor, error) {
	if n < 1 {
		return nil, fmt.Errorf("kronecker power must be at least 1, got %d", n)
	}
	result := t
	for i := 1; i < n; i++ {
		result = result.Kron(t)
	}
	return result, nil
}

// Len returns the number of amplitudes
func (v *Vector) Len() int {
	r, _ := v.data.Dims()
	return r
}

// At returns amplitude i
func (v *Vector) At(i int) complex128 {
	return v.data.At(i, 0)
}

// Entries returns a copy of the amplitudes
func (v *Vector) Entries() []complex128 {
	out := make([]complex128, v.Len())
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}

// Norm returns the Euclidean norm
func (v *Vector) Norm() float64 {
	var sum float64
	for i := 0; i < v.Len(); i++ {
		a := v.At(i)
		sum += real(a)*real(a) + imag(a)*imag(a)
	}
	return math.Sqrt(sum)
}

// Normalized returns a unit-norm copy
func (v *Vector) Normalized() (*Vector, error) {
	n := v.Norm()
	if n == 0 {
		return nil, fmt.Errorf("cannot normalize zero vector")
	}
	return v.Scale(complex(1/n, 0)), nil
}

// Scale returns s·v
func (v *Vector) Scale(s complex128) *Vector {
	out := v.Entries()
	for i := range out {
		out[i] *= s
	}
	return &Vector{data: mat.NewCDense(len(out), 1, out)}
}

// Add returns v + w
func (v *Vector) Add(w *Vector) *Vector {
	out := v.Entries()
	for i := range out {
		out[i] += w.At(i)
	}
	return &Vector{data: mat.NewCDense(len(out), 1, out)}
}

// Inner returns ⟨v|w⟩, conjugating v
func (v *Vector) Inner(w *Vector) complex128 {
	var sum complex128
	for i := 0; i < v.Len(); i++ {
		sum += cmplx.Conj(v.At(i)) * w.At(i)
	}
	return sum
}

// Dims returns the matrix shape
func (m *Matrix) Dims() (int, int) {
	return m.data.Dims()
}

// At returns entry (i, j)
func (m *Matrix) At(i, j int) complex128 {
	return m.data.At(i, j)
}

// Entries returns a row-major copy of the entries
func (m *Matrix) Entries() []complex128 {
	r, c := m.Dims()
	out := make([]complex128, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

func (m *Matrix) combine(o *Matrix, f func(a, b complex128) complex128) *Matrix {
	r, c := m.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, f(m.At(i, j), o.At(i, j)))
		}
	}
	return &Matrix{data: out}
}

// Add returns m + o
func (m *Matrix) Add(o *Matrix) *Matrix {
	return m.combine(o, func(a, b complex128) complex128 { return a + b })
}

// Sub returns m - o
func (m *Matrix) Sub(o *Matrix) *Matrix {
	return m.combine(o, func(a, b complex128) complex128 { return a - b })
}

// Scale returns s·m
func (m *Matrix) Scale(s complex128) *Matrix {
	return m.combine(m, func(a, _ complex128) complex128 { return s * a })
}

// Mul returns the matrix product m·o
func (m *Matrix) Mul(o *Matrix) *Matrix {
	r, inner := m.Dims()
	_, c := o.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for k := 0; k < inner; k++ {
			mik := m.At(i, k)
			if mik == 0 {
				continue
			}
			for j := 0; j < c; j++ {
				out.Set(i, j, out.At(i, j)+mik*o.At(k, j))
			}
		}
	}
	return &Matrix{data: out}
}

// Apply returns m·v
func (m *Matrix) Apply(v *Vector) *Vector {
	r, c := m.Dims()
	out := make([]complex128, r)
	for i := 0; i < r; i++ {
		var sum complex128
		for j := 0; j < c; j++ {
			sum += m.At(i, j) * v.At(j)
		}
		out[i] = sum
	}
	return &Vector{data: mat.NewCDense(r, 1, out)}
}

// Dagger returns the conjugate transpose
func (m *Matrix) Dagger() *Matrix {
	r, c := m.Dims()
	out := mat.NewCDense(c, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(j, i, cmplx.Conj(m.At(i, j)))
		}
	}
	return &Matrix{data: out}
}

// Trace returns the sum of the diagonal
func (m *Matrix) Trace() complex128 {
	r, c := m.Dims()
	var sum complex128
	for i := 0; i < min(r, c); i++ {
		sum += m.At(i, i)
	}
	return sum
}

// IsHermitian reports whether m equals its conjugate transpose within tol
func (m *Matrix) IsHermitian(tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			if cmplx.Abs(m.At(i, j)-cmplx.Conj(m.At(j, i))) > tol {
				return false
			}
		}
	}
	return true
}

// Outer returns the density matrix |v⟩⟨v|
func Outer(v *Vector) *Matrix {
	n := v.Len()
	out := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		vi := v.At(i)
		for j := 0; j < n; j++ {
			out.Set(i, j, vi*cmplx.Conj(v.At(j)))
		}
	}
	return &Matrix{data: out}
}

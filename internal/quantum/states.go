package quantum

import (
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"
	"strconv"
	"strings"
)

// Qubits returns log2(dim) when dim is a power of two
func Qubits(dim int) (int, error) {
	if dim < 2 || dim&(dim-1) != 0 {
		return 0, fmt.Errorf("dimension %d is not a power of two", dim)
	}
	return bits.TrailingZeros(uint(dim)), nil
}

// KetIndex parses a binary ket label such as "0101" into its basis index
func KetIndex(ket string) (int, error) {
	if ket == "" {
		return 0, fmt.Errorf("empty ket")
	}
	if strings.Trim(ket, "01") != "" {
		return 0, fmt.Errorf("ket %q must contain only 0 and 1", ket)
	}
	i, err := strconv.ParseUint(ket, 2, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ket %q: %w", ket, err)
	}
	return int(i), nil
}

// KetString formats basis index i as an n-qubit ket label, most significant qubit first
func KetString(i, n int) string {
	return fmt.Sprintf("%0*b", n, i)
}

// BasisState returns the computational basis vector for a ket label
func BasisState(ket string) (*Vector, error) {
	idx, err := KetIndex(ket)
	if err != nil {
		return nil, err
	}
	out := make([]complex128, 1<<len(ket))
	out[idx] = 1
	return NewVector(out), nil
}

// TargetKet recovers the ket label of a basis vector
func TargetKet(v *Vector) (string, error) {
	n, err := Qubits(v.Len())
	if err != nil {
		return "", err
	}
	found := -1
	for i := 0; i < v.Len(); i++ {
		switch v.At(i) {
		case 0:
		case 1:
			if found >= 0 {
				return "", fmt.Errorf("vector has more than one unit coefficient")
			}
			found = i
		default:
			return "", fmt.Errorf("vector is not a basis state: coefficient %d is %v", i, v.At(i))
		}
	}
	if found < 0 {
		return "", fmt.Errorf("vector has no unit coefficient")
	}
	return KetString(found, n), nil
}

// PlusState returns |+⟩^⊗n
func PlusState(n int) *Vector {
	dim := 1 << n
	out := make([]complex128, dim)
	amp := complex(1/math.Sqrt(float64(dim)), 0)
	for i := range out {
		out[i] = amp
	}
	return NewVector(out)
}

// GroverPhi returns the state the Grover Mermin operator is tuned on:
// normalize(|target⟩ + |+⟩^⊗n)
func GroverPhi(target *Vector) (*Vector, error) {
	n, err := Qubits(target.Len())
	if err != nil {
		return nil, err
	}
	plus := RealVector([]float64{1 / math.Sqrt2, 1 / math.Sqrt2})
	plusN, err := KroneckerPower(plus, n)
	if err != nil {
		return nil, err
	}
	return target.Add(plusN.(*Vector)).Normalized()
}

// GroverIterations returns round(π/4·√N)
func GroverIterations(dim int) int {
	return int(math.Round(math.Pi / 4 * math.Sqrt(float64(dim))))
}

// GroverStates simulates Grover's search directly on the state vector.
// The first state is the uniform superposition; each following one is the
// state after one oracle + diffusion round.
func GroverStates(target *Vector) ([]*Vector, error) {
	dim := target.Len()
	n, err := Qubits(dim)
	if err != nil {
		return nil, err
	}

	v := PlusState(n).Entries()
	states := []*Vector{NewVector(v)}
	for k := 0; k < GroverIterations(dim); k++ {
		// oracle
		for i := range v {
			if target.At(i) != 0 {
				v[i] = -v[i]
			}
		}
		// inversion about the mean
		var mean complex128
		for _, a := range v {
			mean += a
		}
		mean /= complex(float64(dim), 0)
		for i := range v {
			v[i] = 2*mean - v[i]
		}
		states = append(states, NewVector(v))
	}
	return states, nil
}

// PeriodicState returns Σ_k |shift + k·period⟩ / √A over the indices below 2^n
func PeriodicState(shift, period, n int) (*Vector, error) {
	dim := 1 << n
	if period < 1 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	if shift < 0 || shift >= dim {
		return nil, fmt.Errorf("shift %d out of range for %d qubits", shift, n)
	}
	out := make([]complex128, dim)
	for i := shift; i < dim; i += period {
		out[i] = 1
	}
	return NewVector(out).Normalized()
}

// QFTStates applies the textbook quantum Fourier transform gate by gate and
// returns the initial state followed by the state after every layer:
// a Hadamard on each qubit, each controlled phase R_k, then the final swaps.
func QFTStates(psi *Vector) ([]*Vector, error) {
	n, err := Qubits(psi.Len())
	if err != nil {
		return nil, err
	}
	v := psi.Entries()
	states := []*Vector{NewVector(v)}

	for wire := 0; wire < n; wire++ {
		applyHadamard(v, n, wire)
		states = append(states, NewVector(v))
		for k := 2; k <= n-wire; k++ {
			control := wire + k - 1
			applyControlledPhase(v, n, wire, control, 2*math.Pi/math.Exp2(float64(k)))
			states = append(states, NewVector(v))
		}
	}
	for wire := 0; wire < n/2; wire++ {
		applySwap(v, n, wire, n-1-wire)
	}
	states = append(states, NewVector(v))
	return states, nil
}

// wireMask returns the index bit of a wire; wire 0 is the most significant qubit
func wireMask(n, wire int) int {
	return 1 << (n - 1 - wire)
}

func applyHadamard(v []complex128, n, wire int) {
	mask := wireMask(n, wire)
	s := complex(1/math.Sqrt2, 0)
	for i := range v {
		if i&mask != 0 {
			continue
		}
		a, b := v[i], v[i|mask]
		v[i] = s * (a + b)
		v[i|mask] = s * (a - b)
	}
}

func applyControlledPhase(v []complex128, n, target, control int, angle float64) {
	both := wireMask(n, target) | wireMask(n, control)
	phase := cmplx.Exp(complex(0, angle))
	for i := range v {
		if i&both == both {
			v[i] *= phase
		}
	}
}

func applySwap(v []complex128, n, w1, w2 int) {
	m1, m2 := wireMask(n, w1), wireMask(n, w2)
	for i := range v {
		// visit each pair once, from the side where w1 is set and w2 is not
		if i&m1 != 0 && i&m2 == 0 {
			j := i&^m1 | m2
			v[i], v[j] = v[j], v[i]
		}
	}
}

// PhaseEstimationState returns the register state of the quantum phase
// estimation algorithm for phase phi on n qubits in total, of which
// secondRegister (1 or 2) hold the eigenstate.
func PhaseEstimationState(n int, phi float64, secondRegister int) (*Vector, error) {
	dim := 1 << n
	amp := 1 / math.Sqrt(float64(dim))
	out := make([]complex128, 0, dim)
	switch secondRegister {
	case 1:
		for x := 0; x < dim/2; x++ {
			out = append(out,
				complex(amp, 0),
				complex(amp, 0)*cmplx.Exp(complex(0, 2*math.Pi*float64(x)*phi)),
			)
		}
	case 2:
		for x := 0; x < dim/4; x++ {
			sign := 1.0
			if x%2 == 1 {
				sign = -1
			}
			out = append(out,
				complex(amp, 0),
				complex(amp*sign, 0),
				complex(amp, 0)*cmplx.Exp(complex(0, -2*math.Pi*float64(x)*phi)),
				complex(amp, 0)*cmplx.Exp(complex(0, 2*math.Pi*float64(x)*phi)),
			)
		}
	default:
		return nil, fmt.Errorf("second register must hold 1 or 2 qubits, got %d", secondRegister)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%d qubits is too few for a second register of %d", n, secondRegister)
	}
	return NewVector(out), nil
}

// CountingState returns the register state of the quantum counting algorithm
// for angle theta on n qubits in total, of which secondRegister (1 or 2) hold
// the Grover-iterate eigenstate.
func CountingState(n int, theta float64, secondRegister int) (*Vector, error) {
	dim := 1 << n
	amp := complex(1/math.Sqrt(float64(dim)), 0)
	out := make([]complex128, 0, dim)
	phase := func(sign, x float64) complex128 {
		return amp * cmplx.Exp(complex(0, sign*2*math.Pi*theta*x))
	}
	switch secondRegister {
	case 1:
		for x := 0; x < dim/2; x++ {
			fx := float64(x)
			out = append(out, phase(-1, fx+0.5), phase(1, fx-0.5))
		}
	case 2:
		for x := 0; x < dim/4; x++ {
			fx := float64(x)
			zero, one := phase(-1, fx+0.5), phase(1, fx-0.5)
			out = append(out, zero, zero, one, one)
		}
	default:
		return nil, fmt.Errorf("second register must hold 1 or 2 qubits, got %d", secondRegister)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%d qubits is too few for a second register of %d", n, secondRegister)
	}
	return NewVector(out), nil
}

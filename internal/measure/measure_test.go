package measure

import (
	"math"
	"math/cmplx"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/quantum"
	"github.com/cwbudde/merminwalk/internal/store"
)

var (
	dirX = [3]float64{1, 0, 0}
	dirY = [3]float64{0, 1, 0}
)

// ghzPhase is (|000⟩ + i|111⟩)/√2, on which X/Y Mermin reaches 2
func ghzPhase() *quantum.Vector {
	s := 1 / math.Sqrt2
	return quantum.NewVector([]complex128{complex(s, 0), 0, 0, 0, 0, 0, 0, complex(0, s)})
}

func ghz(n int) *quantum.Vector {
	amps := make([]complex128, 1<<n)
	amps[0] = complex(1/math.Sqrt2, 0)
	amps[len(amps)-1] = complex(1/math.Sqrt2, 0)
	return quantum.NewVector(amps)
}

func walk(seed int64, opts ...opt.Option) *opt.RandomWalk {
	return opt.NewRandomWalk(opt.DefaultRandomWalkConfig(), opt.NewSource(seed), opts...)
}

// countingMaximizer records how often the search actually runs
type countingMaximizer struct {
	inner opt.Maximizer
	calls int
}

func (c *countingMaximizer) Maximize(obj opt.Objective, initial []float64) (*opt.Result, error) {
	c.calls++
	return c.inner.Maximize(obj, initial)
}

func TestMerminCoefficients_Operator(t *testing.T) {
	c := MerminCoefficients{A: dirX, APrime: [3]float64{0, 2, 0}}
	op, err := c.Operator(3)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, quantum.Expectation(op, ghzPhase()), 1e-12)

	back, err := UnpackMermin(c.Pack())
	require.NoError(t, err)
	assert.Equal(t, c, back)

	_, err = UnpackMermin([]float64{1, 2, 3})
	assert.Error(t, err)
	_, err = MerminCoefficients{A: dirX}.Operator(2)
	assert.Error(t, err, "zero a' direction")
}

func TestOptimizeMermin_ViolatesLocalBound(t *testing.T) {
	res, err := OptimizeMermin(ghzPhase(), walk(11))
	require.NoError(t, err)

	// local realistic models stay at 1, quantum mechanics reaches 2
	assert.Greater(t, res.Value, 1.5)
	assert.LessOrEqual(t, res.Value, 2+1e-9)
	assert.False(t, res.Cached)
	assert.Positive(t, res.Evaluations)

	op, err := res.Coefficients.Operator(3)
	require.NoError(t, err)
	assert.InDelta(t, res.Value, quantum.Expectation(op, ghzPhase()), 1e-12)
}

func TestOptimizeMermin_NilMaximizer(t *testing.T) {
	_, err := OptimizeMermin(ghzPhase(), nil)
	assert.Error(t, err)
}

func TestMerminOperatorFor_Cache(t *testing.T) {
	cache, err := store.NewFSStore(t.TempDir())
	require.NoError(t, err)
	target, err := quantum.BasisState("101")
	require.NoError(t, err)

	m := &countingMaximizer{inner: walk(5)}
	op1, first, err := MerminOperatorFor(target, cache, m, "run-a")
	require.NoError(t, err)
	assert.Equal(t, 1, m.calls)
	assert.False(t, first.Cached)

	entry, err := cache.Load("101")
	require.NoError(t, err)
	assert.Equal(t, store.KindMermin, entry.Kind)
	assert.Equal(t, 3, entry.Qubits)
	assert.Equal(t, "run-a", entry.RunID)
	assert.Equal(t, first.Value, entry.Score)

	op2, second, err := MerminOperatorFor(target, cache, m, "run-b")
	require.NoError(t, err)
	assert.Equal(t, 1, m.calls, "cached coefficients must not be re-optimized")
	assert.True(t, second.Cached)
	assert.InDelta(t, first.Value, second.Value, 1e-12)
	assert.Equal(t, op1.Entries(), op2.Entries())
}

func TestMerminOperatorFor_CSVCache(t *testing.T) {
	cache, err := store.NewCSVStore(filepath.Join(t.TempDir(), "precomputed.csv"))
	require.NoError(t, err)
	// hand-written legacy row, no score column
	require.NoError(t, cache.Save("11", store.NewEntry("11", store.KindMermin, []float64{1, 0, 0, 0, 1, 0}, 0, 2, "")))

	target, err := quantum.BasisState("11")
	require.NoError(t, err)
	m := &countingMaximizer{inner: walk(1)}
	_, res, err := MerminOperatorFor(target, cache, m, "")
	require.NoError(t, err)

	assert.Zero(t, m.calls)
	assert.True(t, res.Cached)
	phi, err := quantum.GroverPhi(target)
	require.NoError(t, err)
	op, err := MerminCoefficients{A: dirX, APrime: dirY}.Operator(2)
	require.NoError(t, err)
	assert.InDelta(t, quantum.Expectation(op, phi), res.Value, 1e-12)
}

func TestMerminOperatorFor_IncompatibleEntry(t *testing.T) {
	cache, err := store.NewFSStore(t.TempDir())
	require.NoError(t, err)
	family := store.NewEntry("01", store.KindFamily, make([]float64, 12), 0, 2, "")
	family.Coefficients[0] = 1
	require.NoError(t, cache.Save("01", family))

	target, err := quantum.BasisState("01")
	require.NoError(t, err)
	m := &countingMaximizer{inner: walk(2)}
	_, res, err := MerminOperatorFor(target, cache, m, "run-c")
	require.NoError(t, err)
	assert.Equal(t, 1, m.calls)
	assert.False(t, res.Cached)

	entry, err := cache.Load("01")
	require.NoError(t, err)
	assert.Equal(t, store.KindMermin, entry.Kind, "entry replaced by a fresh optimum")
}

func TestMerminOperatorFor_NoCache(t *testing.T) {
	target, err := quantum.BasisState("10")
	require.NoError(t, err)
	op, res, err := MerminOperatorFor(target, nil, walk(3), "")
	require.NoError(t, err)
	r, _ := op.Dims()
	assert.Equal(t, 4, r)
	assert.False(t, res.Cached)

	_, _, err = MerminOperatorFor(quantum.PlusState(2), nil, walk(3), "")
	assert.Error(t, err)
}

func TestFamilyPacking(t *testing.T) {
	x := PackCoefficients([][3]float64{dirX, dirX, dirX}, [][3]float64{dirY, dirY, dirY})
	require.Len(t, x, 18)

	as, aps, err := UnpackCoefficients(x)
	require.NoError(t, err)
	assert.Equal(t, [][3]float64{dirX, dirX, dirX}, as)
	assert.Equal(t, [][3]float64{dirY, dirY, dirY}, aps)

	family, err := FamilyOperator(x)
	require.NoError(t, err)
	uniform, err := MerminCoefficients{A: dirX, APrime: dirY}.Operator(3)
	require.NoError(t, err)
	assert.Equal(t, uniform.Entries(), family.Entries())

	_, _, err = UnpackCoefficients(make([]float64, 7))
	assert.Error(t, err)
	_, _, err = UnpackCoefficients(nil)
	assert.Error(t, err)
}

func TestOptimizeMerminFamily(t *testing.T) {
	rho := quantum.Outer(ghzPhase())
	res, err := OptimizeMerminFamily(rho, 3, walk(8, opt.WithNormalizer(FamilyNormalizer())))
	require.NoError(t, err)

	assert.Greater(t, res.Value, 1.5)
	assert.LessOrEqual(t, res.Value, 2+1e-9)
	require.Len(t, res.Coefficients, 18)
	for q := 0; q < 6; q++ {
		d := res.Coefficients[3*q : 3*q+3]
		assert.InDelta(t, 1.0, math.Sqrt(d[0]*d[0]+d[1]*d[1]+d[2]*d[2]), 1e-9, "direction %d", q)
	}

	_, err = OptimizeMerminFamily(rho, 2, walk(8))
	assert.Error(t, err)
}

func TestMerminValue(t *testing.T) {
	res, err := MerminValue(ghzPhase(), walk(9))
	require.NoError(t, err)
	assert.Greater(t, res.Value, 1.5)
	assert.LessOrEqual(t, res.Value, 2+1e-9)
}

func TestProductState(t *testing.T) {
	// |0⟩ ⊗ |1⟩
	v, err := ProductState([]float64{3, 0, 0, 0, 0, 0, 0, -2})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v.Norm(), 1e-12)
	// β of the second qubit is −2i, normalized to −i
	assert.InDelta(t, 0, cmplx.Abs(v.At(1)-complex(0, -1)), 1e-12)
	assert.Zero(t, v.At(0))
	assert.Zero(t, v.At(2))
	assert.Zero(t, v.At(3))

	_, err = ProductState([]float64{0, 0, 0, 0})
	assert.Error(t, err)
	_, err = ProductState([]float64{1, 0, 0})
	assert.Error(t, err)
}

func TestGeometricMeasure(t *testing.T) {
	s := 1 / math.Sqrt2
	product := quantum.NewVector([]complex128{complex(s, 0), complex(s, 0), 0, 0})

	res, err := GeometricMeasure(product, walk(21, opt.WithNormalizer(SeparableNormalizer())))
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Value, 1e-2)
	assert.InDelta(t, 1-res.Overlap, res.Value, 1e-15)

	res, err = GeometricMeasure(ghz(3), walk(22, opt.WithNormalizer(SeparableNormalizer())))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Value, 1e-2)
	assert.GreaterOrEqual(t, res.Value, 0.5-1e-9, "no separable state overlaps GHZ by more than 1/2")
}

func TestCoefficientMatrixInvariant(t *testing.T) {
	v, err := CoefficientMatrixInvariant(ghz(3))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-12)

	v, err = CoefficientMatrixInvariant(ghz(2))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-12)

	v, err = CoefficientMatrixInvariant(quantum.PlusState(4))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, v, 1e-6)

	_, err = CoefficientMatrixInvariant(quantum.PlusState(1))
	assert.Error(t, err)
}

func TestFlattenings(t *testing.T) {
	groups, err := Flattenings(ghz(4))
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 4)
	assert.Len(t, groups[1], 3)
	assert.Equal(t, []int{0, 1}, groups[1][0].Qubits)

	r, c := groups[1][0].Matrix.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 4, c)
	s := complex(1/math.Sqrt2, 0)
	assert.Equal(t, s, groups[1][0].Matrix.At(0, 0))
	assert.Equal(t, s, groups[1][0].Matrix.At(3, 3))

	ranks, err := FlatteningRanks(ghz(4))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{2, 2, 2, 2}, {2, 2, 2}}, ranks)

	ranks, err = FlatteningRanks(quantum.PlusState(4))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 1, 1, 1}, {1, 1, 1}}, ranks)
}

func TestRank_Complex(t *testing.T) {
	// rows differ by a factor i, so the rank is 1 over the complex numbers
	m := quantum.NewMatrix(2, 2, []complex128{1, 2i, 1i, -2})
	r, err := Rank(m)
	require.NoError(t, err)
	assert.Equal(t, 1, r)

	r, err = Rank(quantum.NewMatrix(2, 2, make([]complex128, 4)))
	require.NoError(t, err)
	assert.Zero(t, r)
}

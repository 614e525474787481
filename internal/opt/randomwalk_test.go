package opt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func testConfig() RandomWalkConfig {
	return RandomWalkConfig{InitialStep: 1, MinStep: 0.01, MaxAttempts: 50}
}

func TestRandomWalk_FirstComponentSquared(t *testing.T) {
	obj := func(v []float64) float64 { return v[0] * v[0] }

	res, err := RandomWalkMaximize(obj, []float64{1, 1}, testConfig(), NewSource(1))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.Score, 1e-2)
	assert.InDelta(t, 1.0, math.Abs(res.Best[0]), 5e-2)
	assert.InDelta(t, 0.0, res.Best[1], 0.2)
	assert.InDelta(t, 1.0, floats.Norm(res.Best, 2), 1e-9)
}

func TestRandomWalk_ClosestToTarget(t *testing.T) {
	target := []float64{0.6, 0.8}
	obj := func(v []float64) float64 {
		return -math.Pow(floats.Distance(v, target, 2), 2)
	}

	res, err := RandomWalkMaximize(obj, []float64{1, 1}, testConfig(), NewSource(7))
	require.NoError(t, err)

	assert.InDelta(t, 0.6, res.Best[0], 5e-2)
	assert.InDelta(t, 0.8, res.Best[1], 5e-2)
	assert.InDelta(t, 0.0, res.Score, 1e-2)
}

func TestRandomWalk_ConstantObjectiveKeepsInitial(t *testing.T) {
	obj := func([]float64) float64 { return 5 }

	res, err := RandomWalkMaximize(obj, []float64{3, 4}, testConfig(), NewSource(3))
	require.NoError(t, err)

	assert.Equal(t, 5.0, res.Score)
	assert.InDelta(t, 0.6, res.Best[0], 1e-12)
	assert.InDelta(t, 0.8, res.Best[1], 1e-12)
	assert.Zero(t, res.Accepted)
}

func TestRandomWalk_ZeroLengthInitial(t *testing.T) {
	obj := func([]float64) float64 { return 0 }

	_, err := RandomWalkMaximize(obj, []float64{}, testConfig(), NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = RandomWalkMaximize(obj, nil, testConfig(), NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRandomWalk_InvalidArguments(t *testing.T) {
	obj := func(v []float64) float64 { return v[0] }

	tests := []struct {
		name    string
		obj     Objective
		initial []float64
		cfg     RandomWalkConfig
		src     Source
	}{
		{"zero vector", obj, []float64{0, 0}, testConfig(), NewSource(1)},
		{"nil objective", nil, []float64{1, 0}, testConfig(), NewSource(1)},
		{"nil source", obj, []float64{1, 0}, testConfig(), nil},
		{"zero initial step", obj, []float64{1, 0}, RandomWalkConfig{InitialStep: 0, MinStep: 0.1, MaxAttempts: 5}, NewSource(1)},
		{"negative min step", obj, []float64{1, 0}, RandomWalkConfig{InitialStep: 1, MinStep: -0.1, MaxAttempts: 5}, NewSource(1)},
		{"no attempts", obj, []float64{1, 0}, RandomWalkConfig{InitialStep: 1, MinStep: 0.1, MaxAttempts: 0}, NewSource(1)},
		{"NaN step", obj, []float64{1, 0}, RandomWalkConfig{InitialStep: math.NaN(), MinStep: 0.1, MaxAttempts: 5}, NewSource(1)},
		{"infinite initial step", obj, []float64{1, 0}, RandomWalkConfig{InitialStep: math.Inf(1), MinStep: 0.01, MaxAttempts: 5}, NewSource(1)},
		{"infinite min step", obj, []float64{1, 0}, RandomWalkConfig{InitialStep: 1, MinStep: math.Inf(1), MaxAttempts: 5}, NewSource(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRandomWalk(tt.cfg, tt.src).Maximize(tt.obj, tt.initial)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestRandomWalk_MinStepAboveInitialStep(t *testing.T) {
	calls := 0
	obj := func(v []float64) float64 {
		calls++
		return v[1]
	}
	cfg := RandomWalkConfig{InitialStep: 0.01, MinStep: 1, MaxAttempts: 50}

	res, err := RandomWalkMaximize(obj, []float64{3, 4}, cfg, NewSource(1))
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, res.Evaluations)
	assert.Zero(t, res.Halvings)
	assert.InDelta(t, 0.6, res.Best[0], 1e-12)
	assert.InDelta(t, 0.8, res.Best[1], 1e-12)
	assert.Equal(t, 0.01, res.FinalStep)
}

func TestRandomWalk_Deterministic(t *testing.T) {
	obj := func(v []float64) float64 { return v[0]*v[1] - v[2]*v[2] }
	initial := []float64{1, 2, 3}

	res1, err := RandomWalkMaximize(obj, initial, testConfig(), NewSource(123))
	require.NoError(t, err)
	res2, err := RandomWalkMaximize(obj, initial, testConfig(), NewSource(123))
	require.NoError(t, err)

	assert.Equal(t, res1.Best, res2.Best)
	assert.Equal(t, res1.Score, res2.Score)
	assert.Equal(t, res1.Evaluations, res2.Evaluations)
}

func TestRandomWalk_AcceptedScoresIncrease(t *testing.T) {
	var steps []Step
	obj := func(v []float64) float64 { return math.Abs(v[0] + 2*v[1] - v[3]) }

	rw := NewRandomWalk(testConfig(), NewSource(99), WithObserver(func(s Step) {
		steps = append(steps, s)
	}))
	res, err := rw.Maximize(obj, []float64{1, 1, 1, 1})
	require.NoError(t, err)

	require.Len(t, steps, res.Accepted+1)
	assert.Equal(t, 0, steps[0].Index)
	for i := 1; i < len(steps); i++ {
		assert.Greater(t, steps[i].Score, steps[i-1].Score, "step %d", i)
		assert.LessOrEqual(t, steps[i].StepSize, steps[i-1].StepSize)
	}
	assert.Equal(t, res.Score, steps[len(steps)-1].Score)
	assert.GreaterOrEqual(t, res.Score, steps[0].Score)
}

func TestRandomWalk_NaNObjectiveTerminates(t *testing.T) {
	cfg := RandomWalkConfig{InitialStep: 1, MinStep: 0.01, MaxAttempts: 10}
	obj := func([]float64) float64 { return math.NaN() }

	res, err := RandomWalkMaximize(obj, []float64{1, 0, 0}, cfg, NewSource(5))
	require.NoError(t, err)

	// 1 -> 2^-7 takes seven halvings, each spending the whole attempt budget
	assert.Equal(t, 7, res.Halvings)
	assert.Equal(t, 1+7*cfg.MaxAttempts, res.Evaluations)
	assert.Equal(t, []float64{1, 0, 0}, res.Best)
}

// constSource always yields the same sample
type constSource float64

func (s constSource) Float64() float64 { return float64(s) }

func TestRandomWalk_ZeroDirectionsSpendAttempts(t *testing.T) {
	// 0.5 maps every component to 0, so no direction is ever usable
	res, err := RandomWalkMaximize(func(v []float64) float64 { return v[0] }, []float64{1, 1}, testConfig(), constSource(0.5))
	require.NoError(t, err)

	assert.Equal(t, 7, res.Halvings)
	assert.Equal(t, 1, res.Evaluations)
	assert.Equal(t, 0, res.Accepted)
	assert.InDelta(t, math.Sqrt(0.5), res.Best[0], 1e-12)
}

func TestRandomInit_ZeroDirectionsFallBackToBasis(t *testing.T) {
	start := RandomInit(constSource(0.5), 3)
	assert.Equal(t, []float64{1, 0, 0}, start(0))
	assert.Equal(t, []float64{0, 0, 1}, start(2))
	assert.Equal(t, []float64{0, 1, 0}, start(4))

	v := RandomInit(NewSource(3), 3)(0)
	assert.InDelta(t, 1.0, floats.Norm(v, 2), 1e-12)
}

func TestRandomWalk_NaNCandidatesNeverAccepted(t *testing.T) {
	obj := func(v []float64) float64 {
		if v[0] < 0 {
			return math.NaN()
		}
		return v[0]
	}

	res, err := RandomWalkMaximize(obj, []float64{0.1, 1}, testConfig(), NewSource(11))
	require.NoError(t, err)

	assert.False(t, math.IsNaN(res.Score))
	assert.Greater(t, res.Score, 0.9)
}

func TestRandomWalk_NormalizedVariant(t *testing.T) {
	// Two independent directions, each pulled toward its own axis.
	obj := func(v []float64) float64 { return v[0] + v[5] }
	cfg := RandomWalkConfig{InitialStep: 1, MinStep: 0.01, MaxAttempts: 100}

	res, err := NormalizedRandomWalkMaximize(obj, BlockNormalizer(3), []float64{1, 1, 1, 1, 1, 1}, cfg, NewSource(2))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, floats.Norm(res.Best[:3], 2), 1e-9)
	assert.InDelta(t, 1.0, floats.Norm(res.Best[3:], 2), 1e-9)
	assert.InDelta(t, 2.0, res.Score, 1e-2)
}

func TestNormalizedRandomWalk_NilNormalizer(t *testing.T) {
	obj := func(v []float64) float64 { return v[0] }
	_, err := NormalizedRandomWalkMaximize(obj, nil, []float64{1}, testConfig(), NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDefaultRandomWalkConfig(t *testing.T) {
	cfg := DefaultRandomWalkConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5.0, cfg.InitialStep)
	assert.Equal(t, 1e-2, cfg.MinStep)
	assert.Equal(t, 100, cfg.MaxAttempts)
}

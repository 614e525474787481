package experiment

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/quantum"
	"github.com/cwbudde/merminwalk/internal/store"
)

// quickWalk keeps the experiment tests fast
var quickWalk = opt.RandomWalkConfig{InitialStep: 1, MinStep: 0.1, MaxAttempts: 20}

func TestGrover_CachesOperator(t *testing.T) {
	dir := t.TempDir()
	cache, err := store.NewFSStore(dir)
	require.NoError(t, err)
	target, err := quantum.BasisState("11")
	require.NoError(t, err)

	o := Options{Walk: opt.DefaultRandomWalkConfig(), Seed: 3, Cache: cache, TraceDir: dir}
	first, err := Grover(context.Background(), target, o)
	require.NoError(t, err)

	assert.Equal(t, "11", first.Target)
	assert.NotEmpty(t, first.Run.ID)
	assert.False(t, first.Optimum.Cached)
	require.Len(t, first.Values, 1+quantum.GroverIterations(4))
	for _, v := range first.Values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, math.Sqrt2+1e-9)
	}

	entry, err := cache.Load("11")
	require.NoError(t, err)
	assert.Equal(t, first.Run.ID, entry.RunID)

	tr, err := store.NewTraceReader(dir, first.Run.ID)
	require.NoError(t, err)
	steps, err := tr.ReadAll()
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	assert.NotEmpty(t, steps)

	o.Seed = 99
	second, err := Grover(context.Background(), target, o)
	require.NoError(t, err)
	assert.True(t, second.Optimum.Cached)
	assert.NotEqual(t, first.Run.ID, second.Run.ID)
	assert.InDeltaSlice(t, first.Values, second.Values, 1e-12)
}

func TestGrover_RejectsNonBasisTarget(t *testing.T) {
	_, err := Grover(context.Background(), quantum.PlusState(2), Options{Walk: quickWalk})
	assert.Error(t, err)
}

func TestGrover_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	target, err := quantum.BasisState("01")
	require.NoError(t, err)

	_, err = Grover(ctx, target, Options{Walk: quickWalk, Seed: 1})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestQFT(t *testing.T) {
	psi, err := quantum.BasisState("01")
	require.NoError(t, err)

	res, err := QFT(context.Background(), psi, Options{Walk: quickWalk, Seed: 4})
	require.NoError(t, err)
	require.Len(t, res.Values, 5)
	require.Len(t, res.Optima, 5)
	for i, v := range res.Values {
		assert.Equal(t, res.Optima[i].Value, v)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, math.Sqrt2+1e-9)
	}

	again, err := QFT(context.Background(), psi, Options{Walk: quickWalk, Seed: 4})
	require.NoError(t, err)
	assert.Equal(t, res.Values, again.Values, "same seed, same series")
}

func TestQFT_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := QFT(ctx, quantum.PlusState(2), Options{Walk: quickWalk})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSeries_WriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Series{Values: []float64{1, 0.5}}.WriteCSV(&buf))
	assert.Equal(t, "iteration,intricationValue\n0,1\n1,0.5\n", buf.String())
}

func testSweepConfig() SweepConfig {
	cfg := DefaultSweepConfig()
	cfg.FirstRegister = 2
	cfg.Max = 1
	cfg.Step = 0.25
	cfg.Walk = quickWalk
	return cfg
}

func TestSweepConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultSweepConfig().Validate())

	tests := []struct {
		name   string
		modify func(*SweepConfig)
	}{
		{"algorithm", func(c *SweepConfig) { c.Algorithm = "X" }},
		{"second register", func(c *SweepConfig) { c.SecondRegister = 3 }},
		{"first register", func(c *SweepConfig) { c.FirstRegister = 0 }},
		{"step", func(c *SweepConfig) { c.Step = 0 }},
		{"range", func(c *SweepConfig) { c.Max = c.Min }},
		{"no invariants", func(c *SweepConfig) { c.Invariants = nil }},
		{"unknown invariant", func(c *SweepConfig) { c.Invariants = []Invariant{"ent"} }},
		{"workers", func(c *SweepConfig) { c.Workers = -1 }},
		{"walk", func(c *SweepConfig) { c.Walk.MaxAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSweepConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cmOnly := DefaultSweepConfig()
	cmOnly.Invariants = []Invariant{InvariantCM}
	cmOnly.Walk = opt.RandomWalkConfig{}
	assert.NoError(t, cmOnly.Validate(), "cm needs no walk")
}

func TestSweepConfig_Angles(t *testing.T) {
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75}, testSweepConfig().Angles())
	assert.Len(t, DefaultSweepConfig().Angles(), 100)
}

func TestSweep_CoefficientMatrix(t *testing.T) {
	cfg := testSweepConfig()
	cfg.Invariants = []Invariant{InvariantCM}

	res, err := Sweep(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, res.Points, 4)
	for i, p := range res.Points {
		assert.Equal(t, cfg.Angles()[i], p.Angle)
	}
	// phi = 0 gives the uniform superposition
	assert.InDelta(t, 0, res.Points[0].Values[InvariantCM], 1e-6)

	var buf bytes.Buffer
	require.NoError(t, res.WriteCSV(&buf))
	assert.Contains(t, buf.String(), "angle,cm\n0,")
}

func TestSweep_DeterministicAcrossWorkers(t *testing.T) {
	cfg := testSweepConfig()
	cfg.Algorithm = Counting
	cfg.Invariants = []Invariant{InvariantMU, InvariantGME}

	cfg.Workers = 1
	serial, err := Sweep(context.Background(), cfg)
	require.NoError(t, err)

	cfg.Workers = 4
	parallel, err := Sweep(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, parallel.Points, len(serial.Points))
	for i := range serial.Points {
		assert.Equal(t, serial.Points[i], parallel.Points[i], "angle %v", serial.Points[i].Angle)
		gme := serial.Points[i].Values[InvariantGME]
		assert.GreaterOrEqual(t, gme, 0.0)
		assert.LessOrEqual(t, gme, 1.0)
	}
}

func TestSweep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sweep(ctx, testSweepConfig())
	assert.True(t, errors.Is(err, context.Canceled))
}

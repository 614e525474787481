package experiment

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/merminwalk/internal/measure"
	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/quantum"
)

// Algorithm selects the family of swept states
type Algorithm string

const (
	// PhaseEstimation sweeps the quantum phase estimation register state
	PhaseEstimation Algorithm = "Z"
	// Counting sweeps the quantum counting register state
	Counting Algorithm = "G"
)

// Invariant names an entanglement measure computed by a sweep
type Invariant string

const (
	InvariantCM  Invariant = "cm"
	InvariantMU  Invariant = "mu"
	InvariantGME Invariant = "gme"
)

// SweepConfig describes an invariant sweep over angles in [Min, Max)
type SweepConfig struct {
	Algorithm      Algorithm   `json:"algorithm" yaml:"algorithm" mapstructure:"algorithm"`
	FirstRegister  int         `json:"firstRegister" yaml:"firstRegister" mapstructure:"firstRegister"`
	SecondRegister int         `json:"secondRegister" yaml:"secondRegister" mapstructure:"secondRegister"`
	Min            float64     `json:"min" yaml:"min" mapstructure:"min"`
	Max            float64     `json:"max" yaml:"max" mapstructure:"max"`
	Step           float64     `json:"step" yaml:"step" mapstructure:"step"`
	Invariants     []Invariant `json:"invariants" yaml:"invariants" mapstructure:"invariants"`
	Seed           int64       `json:"seed" yaml:"seed" mapstructure:"seed"`
	// Workers bounds concurrent evaluations; 0 uses GOMAXPROCS
	Workers int                  `json:"workers" yaml:"workers" mapstructure:"workers"`
	Walk    opt.RandomWalkConfig `json:"walk" yaml:"walk" mapstructure:"walk"`
}

// DefaultSweepConfig sweeps 3+1 qubit phase estimation over [0, 1) by 0.01
// with every invariant.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Algorithm:      PhaseEstimation,
		FirstRegister:  3,
		SecondRegister: 1,
		Min:            0,
		Max:            1,
		Step:           0.01,
		Invariants:     []Invariant{InvariantCM, InvariantMU, InvariantGME},
		Seed:           1,
		Walk:           opt.RandomWalkConfig{InitialStep: 5, MinStep: 1e-5, MaxAttempts: 200},
	}
}

// Validate checks the sweep parameters
func (c SweepConfig) Validate() error {
	switch c.Algorithm {
	case PhaseEstimation, Counting:
	default:
		return fmt.Errorf("unknown algorithm %q (want %q or %q)", c.Algorithm, PhaseEstimation, Counting)
	}
	if c.SecondRegister != 1 && c.SecondRegister != 2 {
		return fmt.Errorf("second register must hold 1 or 2 qubits, got %d", c.SecondRegister)
	}
	if c.FirstRegister < 1 {
		return fmt.Errorf("first register must hold at least one qubit, got %d", c.FirstRegister)
	}
	if !(c.Step > 0) || c.Max <= c.Min {
		return fmt.Errorf("invalid angle range [%g, %g) by %g", c.Min, c.Max, c.Step)
	}
	if len(c.Invariants) == 0 {
		return fmt.Errorf("no invariant selected")
	}
	for _, inv := range c.Invariants {
		switch inv {
		case InvariantCM, InvariantMU, InvariantGME:
		default:
			return fmt.Errorf("unknown invariant %q", inv)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	if c.needsWalk() {
		return c.Walk.Validate()
	}
	return nil
}

func (c SweepConfig) needsWalk() bool {
	for _, inv := range c.Invariants {
		if inv != InvariantCM {
			return true
		}
	}
	return false
}

// Qubits is the total register size
func (c SweepConfig) Qubits() int {
	return c.FirstRegister + c.SecondRegister
}

// Angles returns Min, Min+Step, ... below Max
func (c SweepConfig) Angles() []float64 {
	count := int(math.Ceil((c.Max-c.Min)/c.Step - 1e-9))
	angles := make([]float64, count)
	for i := range angles {
		angles[i] = c.Min + float64(i)*c.Step
	}
	return angles
}

// State returns the swept state at angle
func (c SweepConfig) State(angle float64) (*quantum.Vector, error) {
	if c.Algorithm == Counting {
		return quantum.CountingState(c.Qubits(), angle, c.SecondRegister)
	}
	return quantum.PhaseEstimationState(c.Qubits(), angle, c.SecondRegister)
}

// SweepPoint holds the invariants computed at one angle
type SweepPoint struct {
	Angle  float64               `json:"angle"`
	Values map[Invariant]float64 `json:"values"`
}

// SweepResult is an ordered list of points
type SweepResult struct {
	Run    *Run         `json:"run"`
	Config SweepConfig  `json:"config"`
	Points []SweepPoint `json:"points"`
}

// pointSeed derives a distinct, reproducible seed for the evaluation at index i
func pointSeed(base int64, i int) int64 {
	return base*1_000_003 + int64(i)
}

// Sweep evaluates the selected invariants at every angle. Angles are spread
// over Workers goroutines, each evaluation with its own random source, and
// the points come back in angle order.
func Sweep(ctx context.Context, cfg SweepConfig) (*SweepResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	run := newRun("sweep", cfg.Seed)
	defer run.finish()

	angles := cfg.Angles()
	points := make([]SweepPoint, len(angles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, angle := range angles {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := evaluatePoint(cfg, angle, opt.NewSource(pointSeed(cfg.Seed, i)))
			if err != nil {
				return fmt.Errorf("angle %g: %w", angle, err)
			}
			points[i] = p
			slog.Debug("Sweep point evaluated", "run_id", run.ID, "angle", angle, "values", p.Values)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &SweepResult{Run: run, Config: cfg, Points: points}, nil
}

func evaluatePoint(cfg SweepConfig, angle float64, src opt.Source) (SweepPoint, error) {
	psi, err := cfg.State(angle)
	if err != nil {
		return SweepPoint{}, err
	}
	p := SweepPoint{Angle: angle, Values: make(map[Invariant]float64, len(cfg.Invariants))}
	for _, inv := range cfg.Invariants {
		switch inv {
		case InvariantCM:
			v, err := measure.CoefficientMatrixInvariant(psi)
			if err != nil {
				return p, err
			}
			p.Values[inv] = v
		case InvariantMU:
			m := opt.NewRandomWalk(cfg.Walk, src, opt.WithNormalizer(measure.FamilyNormalizer()))
			res, err := measure.MerminValue(psi, m)
			if err != nil {
				return p, err
			}
			p.Values[inv] = res.Value
		case InvariantGME:
			m := opt.NewRandomWalk(cfg.Walk, src, opt.WithNormalizer(measure.SeparableNormalizer()))
			res, err := measure.GeometricMeasure(psi, m)
			if err != nil {
				return p, err
			}
			p.Values[inv] = res.Value
		}
	}
	return p, nil
}

// WriteCSV writes one row per angle with a column per invariant, in the
// order the invariants were requested.
func (r *SweepResult) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"angle"}
	for _, inv := range r.Config.Invariants {
		header = append(header, string(inv))
	}
	cw.Write(header)
	for _, p := range r.Points {
		row := []string{strconv.FormatFloat(p.Angle, 'g', -1, 64)}
		for _, inv := range r.Config.Invariants {
			row = append(row, strconv.FormatFloat(p.Values[inv], 'g', -1, 64))
		}
		cw.Write(row)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

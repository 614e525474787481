package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwbudde/merminwalk/internal/measure"
	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/quantum"
)

// QFTResult holds the per-qubit Mermin optimum of the state after each gate
// layer of the quantum Fourier transform.
type QFTResult struct {
	Run    *Run                     `json:"run"`
	Optima []*measure.FamilyOptimum `json:"optima"`
	Series
}

// QFT runs the transform on psi and optimizes a Mermin family for every
// intermediate state, the initial state included. The walks share one
// seeded source and run in order.
func QFT(ctx context.Context, psi *quantum.Vector, o Options) (*QFTResult, error) {
	states, err := quantum.QFTStates(psi)
	if err != nil {
		return nil, err
	}

	run := newRun("qft", o.Seed)
	defer run.finish()

	walkOpts, closeTrace, err := o.tracer(run)
	if err != nil {
		return nil, err
	}
	defer closeTrace()

	m := opt.NewRandomWalk(o.Walk, opt.NewSource(o.Seed), walkOpts...)
	result := &QFTResult{Run: run}
	for i, s := range states {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		optimum, err := measure.MerminValue(s, m)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		slog.Info("QFT step evaluated", "run_id", run.ID, "step", i, "of", len(states), "value", optimum.Value)
		result.Optima = append(result.Optima, optimum)
		result.Values = append(result.Values, optimum.Value)
	}

	if err := closeTrace(); err != nil {
		return nil, err
	}
	return result, nil
}

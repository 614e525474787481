package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwbudde/merminwalk/internal/measure"
	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/quantum"
)

// GroverResult holds the Mermin value of the state after each Grover round
type GroverResult struct {
	Run     *Run                   `json:"run"`
	Target  string                 `json:"target"`
	Optimum *measure.MerminOptimum `json:"optimum"`
	Series
}

// Grover simulates the search for target and evaluates every intermediate
// state with one Mermin operator, tuned on GroverPhi(target) or read from
// the cache.
func Grover(ctx context.Context, target *quantum.Vector, o Options) (*GroverResult, error) {
	ket, err := quantum.TargetKet(target)
	if err != nil {
		return nil, fmt.Errorf("target must be a basis state: %w", err)
	}

	run := newRun("grover", o.Seed)
	defer run.finish()

	walkOpts, closeTrace, err := o.tracer(run)
	if err != nil {
		return nil, err
	}
	defer closeTrace()

	m := opt.NewRandomWalk(o.Walk, opt.NewSource(o.Seed), walkOpts...)
	op, optimum, err := measure.MerminOperatorFor(target, o.Cache, m, run.ID)
	if err != nil {
		return nil, err
	}

	states, err := quantum.GroverStates(target)
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(states))
	for i, s := range states {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := quantum.Expectation(op, s)
		slog.Debug("Grover step evaluated", "run_id", run.ID, "step", i, "value", v)
		values = append(values, v)
	}

	if err := closeTrace(); err != nil {
		return nil, err
	}
	return &GroverResult{
		Run:     run,
		Target:  ket,
		Optimum: optimum,
		Series:  Series{Values: values},
	}, nil
}

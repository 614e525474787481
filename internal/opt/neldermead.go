package opt

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// NelderMead polishes a point with gonum's simplex method.
// It is a local method: use it after a random walk rather than instead of one.
type NelderMead struct {
	maxIters int
}

// NewNelderMead creates a Nelder-Mead maximizer limited to maxIters major iterations
func NewNelderMead(maxIters int) *NelderMead {
	return &NelderMead{maxIters: maxIters}
}

// Maximize runs the simplex search on the negated, normalized objective.
// A failed or worse search returns the normalized initial point.
func (nm *NelderMead) Maximize(obj Objective, initial []float64) (*Result, error) {
	if obj == nil {
		return nil, invalidArgument("objective is nil")
	}
	start, err := Normalize(initial)
	if err != nil {
		return nil, err
	}
	startScore := obj(start)
	evaluations := 1

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			evaluations++
			p, err := Normalize(x)
			if err != nil {
				return math.Inf(1)
			}
			v := obj(p)
			if math.IsNaN(v) {
				return math.Inf(1)
			}
			return -v
		},
	}

	settings := &optimize.Settings{
		MajorIterations: nm.maxIters,
	}

	out := &Result{
		Best:        start,
		Score:       startScore,
		Evaluations: evaluations,
	}

	result, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{})
	out.Evaluations = evaluations
	if err != nil {
		slog.Debug("Nelder-Mead did not converge, keeping initial point", "error", err)
		if result == nil {
			return out, nil
		}
	}

	best, err := Normalize(result.X)
	if err != nil {
		return out, nil
	}
	if score := obj(best); improves(score, startScore) {
		out.Best = best
		out.Score = score
		out.Accepted = 1
	}
	out.Evaluations = evaluations + 1

	return out, nil
}

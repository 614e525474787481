package opt

import (
	"log/slog"
)

// MultiStart repeats an inner maximizer from several starting points and
// keeps the best result. The first start uses the caller's initial point,
// later ones come from Init when it is set.
type MultiStart struct {
	Maximizer   Maximizer
	Starts      int
	Convergence ConvergenceConfig
	Init        func(i int) []float64
}

// Maximize runs up to Starts inner maximizations, stopping early when the
// convergence tracker reports that the best score has stagnated.
func (ms *MultiStart) Maximize(obj Objective, initial []float64) (*Result, error) {
	if ms.Maximizer == nil {
		return nil, invalidArgument("inner maximizer is nil")
	}
	starts := ms.Starts
	if starts < 1 {
		starts = 1
	}

	tracker := NewConvergenceTracker(ms.Convergence)
	var best *Result
	evaluations := 0

	for i := 0; i < starts; i++ {
		point := initial
		if i > 0 && ms.Init != nil {
			point = ms.Init(i)
		}

		res, err := ms.Maximizer.Maximize(obj, point)
		if err != nil {
			return nil, err
		}
		evaluations += res.Evaluations

		if best == nil || improves(res.Score, best.Score) {
			best = res
		}
		slog.Debug("Start complete", "start", i, "score", res.Score, "best_score", best.Score)

		if tracker.Update(best.Score) {
			break
		}
	}

	best.Evaluations = evaluations
	return best, nil
}

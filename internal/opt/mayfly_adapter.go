package opt

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Maximizer interface.
// Mayfly minimizes over a box, so the adapter searches [-1, 1]^k and scores
// each point by the negated objective of its normalization.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(maxIters, popSize int, seed int64) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Maximize executes the Mayfly optimization using the external library.
// The result never scores below the normalized initial point.
func (m *MayflyAdapter) Maximize(obj Objective, initial []float64) (*Result, error) {
	if obj == nil {
		return nil, invalidArgument("objective is nil")
	}
	start, err := Normalize(initial)
	if err != nil {
		return nil, err
	}
	startScore := obj(start)
	evaluations := 1

	cost := func(x []float64) float64 {
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
	}

	// Create config for external Mayfly library
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = cost
	config.ProblemSize = len(start)
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = -1
	config.UpperBound = 1

	// Set random seed for reproducibility
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	out := &Result{
		Best:        start,
		Score:       startScore,
		Evaluations: evaluations,
	}

	best, err := Normalize(result.GlobalBest.Position)
	if err != nil {
		slog.Debug("Mayfly returned a degenerate position, keeping initial point", "error", err)
		return out, nil
	}
	if score := -result.GlobalBest.Cost; improves(score, startScore) {
		out.Best = best
		out.Score = score
		out.Accepted = 1
	}

	return out, nil
}

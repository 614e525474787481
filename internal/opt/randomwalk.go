package opt

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
)

// RandomWalkConfig holds the step schedule of the random walk
type RandomWalkConfig struct {
	// InitialStep is the perturbation length of the first greedy run
	InitialStep float64 `json:"initialStep" yaml:"initialStep" mapstructure:"initialStep"`

	// MinStep stops the walk once the step has been halved down to it
	MinStep float64 `json:"minStep" yaml:"minStep" mapstructure:"minStep"`

	// MaxAttempts bounds the unsuccessful samples tried at one step size
	MaxAttempts int `json:"maxAttempts" yaml:"maxAttempts" mapstructure:"maxAttempts"`
}

// DefaultRandomWalkConfig returns the schedule used for Mermin operator searches
func DefaultRandomWalkConfig() RandomWalkConfig {
	return RandomWalkConfig{
		InitialStep: 5,
		MinStep:     1e-2,
		MaxAttempts: 100,
	}
}

// Validate rejects steps that are not positive and finite, and empty
// attempt budgets. MinStep >= InitialStep is accepted and yields a
// zero-iteration run.
func (c RandomWalkConfig) Validate() error {
	if !(c.InitialStep > 0) || math.IsInf(c.InitialStep, 0) {
		return invalidArgument("initial step must be positive and finite, got %v", c.InitialStep)
	}
	if !(c.MinStep > 0) || math.IsInf(c.MinStep, 0) {
		return invalidArgument("min step must be positive and finite, got %v", c.MinStep)
	}
	if c.MaxAttempts < 1 {
		return invalidArgument("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	return nil
}

// Option configures a RandomWalk
type Option func(*RandomWalk)

// WithObserver reports every accepted candidate to o
func WithObserver(o Observer) Option {
	return func(rw *RandomWalk) {
		rw.observer = o
	}
}

// WithNormalizer switches the walk to the normalized-objective variant:
// the initial point and every candidate go through n instead of the global
// unit normalization.
func WithNormalizer(n Normalizer) Option {
	return func(rw *RandomWalk) {
		rw.normalizer = n
	}
}

// RandomWalk is an adaptive random-walk maximizer over the unit sphere.
//
// From the current best point it samples random unit directions scaled by
// the current step. The first candidate that strictly improves the score is
// adopted and the search continues at the same step; after MaxAttempts
// failures the step is halved. The walk ends once the step is no longer
// larger than MinStep.
type RandomWalk struct {
	cfg        RandomWalkConfig
	src        Source
	observer   Observer
	normalizer Normalizer
}

// NewRandomWalk creates a random walk drawing directions from src
func NewRandomWalk(cfg RandomWalkConfig, src Source, opts ...Option) *RandomWalk {
	rw := &RandomWalk{
		cfg: cfg,
		src: src,
	}
	for _, o := range opts {
		o(rw)
	}
	return rw
}

// Config returns the step schedule
func (rw *RandomWalk) Config() RandomWalkConfig {
	return rw.cfg
}

// project maps a raw point onto the search domain
func (rw *RandomWalk) project(x []float64) ([]float64, error) {
	if rw.normalizer == nil {
		return Normalize(x)
	}
	if len(x) == 0 {
		return nil, invalidArgument("vector has zero length")
	}
	return rw.normalizer(x), nil
}

// Maximize runs the walk from initial.
// Only malformed input produces an error; an objective that never improves
// simply leaves the normalized initial point as the result.
func (rw *RandomWalk) Maximize(obj Objective, initial []float64) (*Result, error) {
	if obj == nil {
		return nil, invalidArgument("objective is nil")
	}
	if rw.src == nil {
		return nil, invalidArgument("random source is nil")
	}
	if err := rw.cfg.Validate(); err != nil {
		return nil, err
	}
	if len(initial) == 0 {
		return nil, invalidArgument("initial vector has zero length")
	}
	if isZero(initial) {
		return nil, invalidArgument("initial vector has zero norm")
	}

	best, err := rw.project(initial)
	if err != nil {
		return nil, err
	}
	score := obj(best)

	result := &Result{Evaluations: 1}
	step := rw.cfg.InitialStep
	rw.observe(0, score, step, best)

	slog.Debug("Random walk started",
		"dim", len(best),
		"initial_score", score,
		"initial_step", step,
		"min_step", rw.cfg.MinStep,
	)

	raw := make([]float64, len(best))
	for step > rw.cfg.MinStep {
		improved := false
		for attempt := 0; attempt < rw.cfg.MaxAttempts; attempt++ {
			dir, ok := randomDirection(rw.src, len(best))
			if !ok {
				// the source produced the zero vector
				continue
			}
			floats.AddScaledTo(raw, best, step, dir)

			candidate, err := rw.project(raw)
			if err != nil {
				// best + dir*step landed on the origin
				continue
			}
			value := obj(candidate)
			result.Evaluations++

			if improves(value, score) {
				best, score = candidate, value
				improved = true
				break
			}
		}

		if improved {
			result.Accepted++
			rw.observe(result.Accepted, score, step, best)
			continue
		}
		step /= 2
		result.Halvings++
	}

	result.Best = best
	result.Score = score
	result.FinalStep = step

	slog.Debug("Random walk complete",
		"score", score,
		"evaluations", result.Evaluations,
		"accepted", result.Accepted,
		"halvings", result.Halvings,
	)

	return result, nil
}

func (rw *RandomWalk) observe(index int, score, step float64, v []float64) {
	if rw.observer == nil {
		return
	}
	rw.observer(Step{
		Index:    index,
		Score:    score,
		StepSize: step,
		Vector:   append([]float64(nil), v...),
	})
}

// RandomWalkMaximize runs a single random walk with the given schedule and source
func RandomWalkMaximize(obj Objective, initial []float64, cfg RandomWalkConfig, src Source) (*Result, error) {
	return NewRandomWalk(cfg, src).Maximize(obj, initial)
}

// NormalizedRandomWalkMaximize runs the normalized-objective variant
func NormalizedRandomWalkMaximize(obj Objective, normalizer Normalizer, initial []float64, cfg RandomWalkConfig, src Source) (*Result, error) {
	if normalizer == nil {
		return nil, invalidArgument("normalizer is nil")
	}
	return NewRandomWalk(cfg, src, WithNormalizer(normalizer)).Maximize(obj, initial)
}

package opt

import (
	"log/slog"
	"math"
)

// ConvergenceConfig defines when repeated maximization runs stop paying off
type ConvergenceConfig struct {
	// Enabled controls whether convergence detection is active
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Patience is the number of runs with no significant improvement before stopping
	Patience int `json:"patience" yaml:"patience" mapstructure:"patience"`

	// Threshold is the minimum relative improvement required to count as progress.
	// Relative improvement = (newScore - lastSignificant) / |lastSignificant|
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
}

// DefaultConvergenceConfig returns sensible defaults for convergence detection
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  3,
		Threshold: 0.001, // 0.1% improvement
	}
}

// DisabledConvergenceConfig returns a config with convergence detection disabled
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled: false,
	}
}

// ConvergenceTracker tracks score history and detects when maximization has converged
type ConvergenceTracker struct {
	config          ConvergenceConfig
	scoreHistory    []float64
	bestScore       float64 // Best score ever seen
	lastSignificant float64 // Last score that was a significant improvement
	staleCount      int     // Number of updates without significant improvement
}

// NewConvergenceTracker creates a new convergence tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		scoreHistory:    []float64{},
		bestScore:       math.Inf(-1),
		lastSignificant: math.Inf(-1),
	}
}

// Update records a new score and returns true if convergence is detected
func (c *ConvergenceTracker) Update(score float64) bool {
	c.scoreHistory = append(c.scoreHistory, score)
	if score > c.bestScore {
		c.bestScore = score
	}

	if !c.config.Enabled {
		return false
	}

	if len(c.scoreHistory) == 1 {
		c.lastSignificant = score
		return false
	}

	var relativeImprovement float64
	if c.lastSignificant == 0 {
		relativeImprovement = score
	} else {
		relativeImprovement = (score - c.lastSignificant) / math.Abs(c.lastSignificant)
	}

	if relativeImprovement >= c.config.Threshold {
		c.lastSignificant = score
		c.staleCount = 0
		slog.Debug("Score improvement detected",
			"score", score,
			"relative_improvement", relativeImprovement,
		)
		return false
	}

	c.staleCount++
	slog.Debug("No significant score improvement",
		"score", score,
		"last_significant", c.lastSignificant,
		"relative_improvement", relativeImprovement,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)

	if c.staleCount >= c.config.Patience {
		slog.Info("Convergence detected - stopping early",
			"stale_count", c.staleCount,
			"patience", c.config.Patience,
			"best_score", c.bestScore,
		)
		return true
	}
	return false
}

// BestScore returns the best score seen so far
func (c *ConvergenceTracker) BestScore() float64 {
	return c.bestScore
}

// History returns the full score history
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.scoreHistory...)
}

// StaleCount returns the current number of updates without improvement
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}

// Reset clears the tracker's state
func (c *ConvergenceTracker) Reset() {
	c.scoreHistory = []float64{}
	c.bestScore = math.Inf(-1)
	c.lastSignificant = math.Inf(-1)
	c.staleCount = 0
}

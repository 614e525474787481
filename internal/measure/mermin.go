// Package measure computes entanglement measures of state vectors by
// maximizing over observable directions or separable states with the
// optimizers of package opt.
package measure

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/quantum"
	"github.com/cwbudde/merminwalk/internal/store"
)

// MerminCoefficients holds the directions of the two observables shared by
// every qubit: a = A·σ and a' = APrime·σ.
type MerminCoefficients struct {
	A      [3]float64 `json:"a"`
	APrime [3]float64 `json:"aPrime"`
}

// Pack returns the 6 optimizer coordinates (A then APrime)
func (c MerminCoefficients) Pack() []float64 {
	return []float64{c.A[0], c.A[1], c.A[2], c.APrime[0], c.APrime[1], c.APrime[2]}
}

// UnpackMermin is the inverse of Pack
func UnpackMermin(x []float64) (MerminCoefficients, error) {
	if len(x) != store.CoefficientsPerQubit {
		return MerminCoefficients{}, fmt.Errorf("expected %d coefficients, got %d", store.CoefficientsPerQubit, len(x))
	}
	var c MerminCoefficients
	copy(c.A[:], x[:3])
	copy(c.APrime[:], x[3:])
	return c, nil
}

// Operator builds M_n from the coefficients. Directions are normalized.
func (c MerminCoefficients) Operator(n int) (*quantum.Matrix, error) {
	a, err := quantum.Observable(c.A)
	if err != nil {
		return nil, fmt.Errorf("a: %w", err)
	}
	ap, err := quantum.Observable(c.APrime)
	if err != nil {
		return nil, fmt.Errorf("a': %w", err)
	}
	return quantum.Mermin(n, a, ap)
}

// MerminOptimum is the outcome of a Mermin operator search
type MerminOptimum struct {
	Coefficients MerminCoefficients `json:"coefficients"`
	Value        float64            `json:"value"`
	Evaluations  int                `json:"evaluations"`
	Cached       bool               `json:"cached"`
}

// ones is the conventional starting point of the Mermin searches
func ones(k int) []float64 {
	x := make([]float64, k)
	for i := range x {
		x[i] = 1
	}
	return x
}

// merminObjective scores packed coefficients by |⟨φ|M_n|φ⟩|.
// Degenerate directions score NaN and are never accepted.
func merminObjective(phi *quantum.Vector, n int) opt.Objective {
	return func(x []float64) float64 {
		c, err := UnpackMermin(x)
		if err != nil {
			return math.NaN()
		}
		op, err := c.Operator(n)
		if err != nil {
			return math.NaN()
		}
		return quantum.Expectation(op, phi)
	}
}

// OptimizeMermin maximizes |⟨φ|M_n(a,a')|φ⟩| over the shared directions,
// starting from (1,1,1,1,1,1).
func OptimizeMermin(phi *quantum.Vector, m opt.Maximizer) (*MerminOptimum, error) {
	if m == nil {
		return nil, fmt.Errorf("maximizer is nil")
	}
	n, err := quantum.Qubits(phi.Len())
	if err != nil {
		return nil, err
	}

	res, err := m.Maximize(merminObjective(phi, n), ones(store.CoefficientsPerQubit))
	if err != nil {
		return nil, fmt.Errorf("mermin optimization failed: %w", err)
	}
	c, err := UnpackMermin(res.Best)
	if err != nil {
		return nil, err
	}

	slog.Debug("Mermin optimum", "qubits", n, "value", res.Score, "evaluations", res.Evaluations)
	return &MerminOptimum{Coefficients: c, Value: res.Score, Evaluations: res.Evaluations}, nil
}

// MerminOperatorFor returns the Mermin operator tuned for the Grover search
// of target, i.e. optimized on GroverPhi(target). The coefficients are read
// from cache when present and written back after a fresh optimization.
// cache may be nil. runID is recorded on new cache entries.
func MerminOperatorFor(target *quantum.Vector, cache store.CoefficientStore, m opt.Maximizer, runID string) (*quantum.Matrix, *MerminOptimum, error) {
	key, err := quantum.TargetKet(target)
	if err != nil {
		return nil, nil, fmt.Errorf("target must be a basis state: %w", err)
	}
	n := len(key)
	phi, err := quantum.GroverPhi(target)
	if err != nil {
		return nil, nil, err
	}

	if cache != nil {
		optimum, err := loadCached(cache, key, n, phi)
		switch {
		case err == nil:
			op, err := optimum.Coefficients.Operator(n)
			if err != nil {
				return nil, nil, err
			}
			slog.Info("Using cached Mermin coefficients", "key", key, "value", optimum.Value)
			return op, optimum, nil
		case errors.Is(err, store.ErrNotFound):
		default:
			slog.Warn("Ignoring unusable cache entry", "key", key, "error", err)
		}
	}

	optimum, err := OptimizeMermin(phi, m)
	if err != nil {
		return nil, nil, err
	}
	op, err := optimum.Coefficients.Operator(n)
	if err != nil {
		return nil, nil, err
	}

	if cache != nil {
		entry := store.NewEntry(key, store.KindMermin, optimum.Coefficients.Pack(), optimum.Value, n, runID)
		entry.Evaluations = optimum.Evaluations
		if err := cache.Save(key, entry); err != nil {
			return nil, nil, fmt.Errorf("failed to cache coefficients for %s: %w", key, err)
		}
	}
	slog.Info("Optimized Mermin coefficients", "key", key, "value", optimum.Value, "evaluations", optimum.Evaluations)
	return op, optimum, nil
}

// loadCached reads the entry for key and re-evaluates it on phi, since
// legacy entries carry no score.
func loadCached(cache store.CoefficientStore, key string, n int, phi *quantum.Vector) (*MerminOptimum, error) {
	entry, err := cache.Load(key)
	if err != nil {
		return nil, err
	}
	if err := entry.IsCompatible(store.KindMermin, n); err != nil {
		return nil, err
	}
	c, err := UnpackMermin(entry.Coefficients)
	if err != nil {
		return nil, err
	}
	value := merminObjective(phi, n)(entry.Coefficients)
	if math.IsNaN(value) {
		return nil, fmt.Errorf("cached coefficients for %s are degenerate", key)
	}
	return &MerminOptimum{Coefficients: c, Value: value, Cached: true}, nil
}

package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/store"
)

var (
	objectiveName string
	method        string
	initialPoint  string
	iters         int
	popSize       int
	starts        int
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run a maximizer on a demo objective",
	Long: `Maximizes one of the built-in objectives over unit vectors:
  first-squared  v[0]^2, maximal at (±1, 0, ...)
  target         -|v - (0.6, 0.8)|^2 over 2D vectors
  constant       5 everywhere`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVar(&objectiveName, "objective", "first-squared", "Objective: first-squared, target, constant")
	optimizeCmd.Flags().StringVar(&method, "method", "walk", "Maximizer: walk, mayfly, neldermead, multistart")
	optimizeCmd.Flags().StringVar(&initialPoint, "initial", "1,1", "Comma separated initial vector")
	optimizeCmd.Flags().IntVar(&iters, "iters", 200, "Max iterations (mayfly, neldermead)")
	optimizeCmd.Flags().IntVar(&popSize, "pop", 30, "Population size (mayfly)")
	optimizeCmd.Flags().IntVar(&starts, "starts", 5, "Random restarts (multistart)")
	addWalkFlags(optimizeCmd, 1, 0.01, 50)
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	initial, err := parseVector(initialPoint)
	if err != nil {
		return err
	}
	obj, err := demoObjective(objectiveName, len(initial))
	if err != nil {
		return err
	}

	walk, err := walkFlags(cmd)
	if err != nil {
		return err
	}

	var walkOpts []opt.Option
	if appConfig.TraceDir != "" {
		runID := uuid.New().String()
		tw, err := store.NewTraceWriter(appConfig.TraceDir, runID, false)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer tw.Close()
		walkOpts = append(walkOpts, opt.WithObserver(tw.Observer(appConfig.TraceVectors)))
		slog.Info("Tracing run", "run_id", runID, "path", tw.Path())
	}

	m, err := newMaximizer(method, walk, appConfig.Seed, len(initial), walkOpts...)
	if err != nil {
		return err
	}

	slog.Info("Starting optimization", "objective", objectiveName, "method", method, "dim", len(initial))
	start := time.Now()
	res, err := m.Maximize(obj, initial)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	slog.Info("Optimization complete",
		"elapsed", elapsed,
		"score", res.Score,
		"evaluations", res.Evaluations,
		"accepted", res.Accepted,
		"final_step", res.FinalStep,
	)
	fmt.Printf("best %v score %.6f (%d evaluations)\n", res.Best, res.Score, res.Evaluations)
	return nil
}

// walkFlags reads the walk schedule given on the command line
func walkFlags(cmd *cobra.Command) (opt.RandomWalkConfig, error) {
	var w opt.RandomWalkConfig
	var err error
	if w.InitialStep, err = cmd.Flags().GetFloat64("initial-step"); err != nil {
		return w, err
	}
	if w.MinStep, err = cmd.Flags().GetFloat64("min-step"); err != nil {
		return w, err
	}
	if w.MaxAttempts, err = cmd.Flags().GetInt("max-attempts"); err != nil {
		return w, err
	}
	return w, w.Validate()
}

func parseVector(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	v := make([]float64, 0, len(fields))
	for _, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", f, err)
		}
		v = append(v, x)
	}
	return v, nil
}

func demoObjective(name string, dim int) (opt.Objective, error) {
	switch name {
	case "first-squared":
		return func(v []float64) float64 { return v[0] * v[0] }, nil
	case "target":
		if dim != 2 {
			return nil, fmt.Errorf("target objective needs a 2D initial vector, got %d components", dim)
		}
		return func(v []float64) float64 {
			dx, dy := v[0]-0.6, v[1]-0.8
			return -(dx*dx + dy*dy)
		}, nil
	case "constant":
		return func([]float64) float64 { return 5 }, nil
	default:
		return nil, fmt.Errorf("unknown objective: %s", name)
	}
}

func newMaximizer(method string, walk opt.RandomWalkConfig, seed int64, dim int, walkOpts ...opt.Option) (opt.Maximizer, error) {
	switch method {
	case "walk":
		return opt.NewRandomWalk(walk, opt.NewSource(seed), walkOpts...), nil
	case "mayfly":
		return opt.NewMayfly(iters, popSize, seed), nil
	case "neldermead":
		return opt.NewNelderMead(iters), nil
	case "multistart":
		src := opt.NewSource(seed)
		return &opt.MultiStart{
			Maximizer:   opt.NewRandomWalk(walk, src, walkOpts...),
			Starts:      starts,
			Convergence: opt.DefaultConvergenceConfig(),
			Init:        opt.RandomInit(src, dim),
		}, nil
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}

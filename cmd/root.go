package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/cwbudde/merminwalk/internal/config"
)

var (
	logLevel    string
	configPath  string
	profileMode string
	logger      *slog.Logger

	appConfig    *config.Config
	configLoader *config.Loader
	profiler     interface{ Stop() }
)

var rootCmd = &cobra.Command{
	Use:   "merminwalk",
	Short: "Mermin operator search and entanglement experiments",
	Long: `merminwalk maximizes Mermin operators with an adaptive random walk and
uses them to follow entanglement through Grover's search, the quantum Fourier
transform, phase estimation and quantum counting.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stdout, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)

		if err := startProfile(profileMode); err != nil {
			return err
		}

		configLoader = config.NewLoader()
		if err := bindFlags(cmd, configLoader); err != nil {
			return err
		}
		cfg, err := configLoader.Load(configPath)
		if err != nil {
			return err
		}
		appConfig = cfg
		if used := configLoader.Used(); used != "" {
			slog.Debug("Loaded config", "path", used)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		stopProfile()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HOME/.merminwalk.yaml)")
	rootCmd.PersistentFlags().StringVar(&profileMode, "profile", "", "Write a profile to the working directory (cpu, mem)")

	rootCmd.PersistentFlags().Int64("seed", 1, "Random seed")
	rootCmd.PersistentFlags().String("cache-dir", "./data", "Directory of the JSON coefficient cache")
	rootCmd.PersistentFlags().String("cache-csv", "", "Legacy ket,a,b,c,m,p,q coefficient file (overrides --cache-dir)")
	rootCmd.PersistentFlags().String("trace-dir", "", "Directory for JSONL traces of accepted candidates")
	rootCmd.PersistentFlags().Bool("trace-vectors", false, "Record candidate coordinates in traces")
}

// flagKeys maps flags shared by every command to config keys
var flagKeys = map[string]string{
	"seed":          "seed",
	"cache-dir":     "cache.dir",
	"cache-csv":     "cache.csv",
	"trace-dir":     "traceDir",
	"trace-vectors": "traceVectors",
}

// walkKeys names the walk config section each command tunes
var walkKeys = map[string]string{
	"mermin": "grover",
	"grover": "grover",
	"qft":    "qft",
	"sweep":  "sweep.walk",
}

// sweepKeys maps the sweep command's flags to config keys
var sweepKeys = map[string]string{
	"algorithm":       "sweep.algorithm",
	"first-register":  "sweep.firstRegister",
	"second-register": "sweep.secondRegister",
	"min":             "sweep.min",
	"max":             "sweep.max",
	"step":            "sweep.step",
	"invariants":      "sweep.invariants",
	"workers":         "sweep.workers",
	"seed":            "sweep.seed",
}

// bindFlags hooks the flags of cmd into the config layers
func bindFlags(cmd *cobra.Command, l *config.Loader) error {
	bind := func(flag, key string) error {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return nil
		}
		return l.BindFlag(key, f)
	}

	for flag, key := range flagKeys {
		if err := bind(flag, key); err != nil {
			return err
		}
	}
	if prefix, ok := walkKeys[cmd.Name()]; ok {
		for flag, field := range map[string]string{
			"initial-step": "initialStep",
			"min-step":     "minStep",
			"max-attempts": "maxAttempts",
		} {
			if err := bind(flag, prefix+"."+field); err != nil {
				return err
			}
		}
	}
	if cmd.Name() == "sweep" {
		for flag, key := range sweepKeys {
			if err := bind(flag, key); err != nil {
				return err
			}
		}
	}
	return nil
}

// addWalkFlags registers the random walk schedule flags
func addWalkFlags(cmd *cobra.Command, initialStep, minStep float64, maxAttempts int) {
	cmd.Flags().Float64("initial-step", initialStep, "Initial random walk step")
	cmd.Flags().Float64("min-step", minStep, "Step at which the walk stops")
	cmd.Flags().Int("max-attempts", maxAttempts, "Unsuccessful samples tried per step size")
}

func startProfile(mode string) error {
	switch mode {
	case "":
		return nil
	case "cpu":
		profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		profiler = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		return fmt.Errorf("unknown profile mode: %s", mode)
	}
	slog.Info("Profiling enabled", "mode", mode)
	return nil
}

func stopProfile() {
	if profiler != nil {
		profiler.Stop()
		profiler = nil
	}
}

// Package config loads merminwalk settings from defaults, an optional YAML
// file, MERMINWALK_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cwbudde/merminwalk/internal/experiment"
	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/store"
)

const (
	// EnvPrefix prefixes every environment override, e.g. MERMINWALK_SEED
	EnvPrefix = "MERMINWALK"

	// FileName is the config file looked up in the home directory
	FileName = ".merminwalk"
)

// CacheConfig selects the coefficient cache. CSV wins over Dir when both
// are set; with neither, runs are uncached.
type CacheConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
	CSV string `json:"csv" mapstructure:"csv"`
}

// Config holds every setting of the CLI.
type Config struct {
	Seed         int64       `json:"seed" mapstructure:"seed"`
	Cache        CacheConfig `json:"cache" mapstructure:"cache"`
	TraceDir     string      `json:"traceDir" mapstructure:"traceDir"`
	TraceVectors bool        `json:"traceVectors" mapstructure:"traceVectors"`

	// Grover is the walk used for the cached 6-coefficient operator
	Grover opt.RandomWalkConfig `json:"grover" mapstructure:"grover"`

	// QFT is the walk used for the per-qubit families after every gate
	QFT opt.RandomWalkConfig `json:"qft" mapstructure:"qft"`

	Sweep experiment.SweepConfig `json:"sweep" mapstructure:"sweep"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Seed:   1,
		Cache:  CacheConfig{Dir: "./data"},
		Grover: opt.DefaultRandomWalkConfig(),
		QFT: opt.RandomWalkConfig{
			InitialStep: 5,
			MinStep:     1e-2,
			MaxAttempts: 1000,
		},
		Sweep: experiment.DefaultSweepConfig(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("seed", d.Seed)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.csv", d.Cache.CSV)
	v.SetDefault("traceDir", d.TraceDir)
	v.SetDefault("traceVectors", d.TraceVectors)

	setWalkDefaults(v, "grover", d.Grover)
	setWalkDefaults(v, "qft", d.QFT)

	v.SetDefault("sweep.algorithm", string(d.Sweep.Algorithm))
	v.SetDefault("sweep.firstRegister", d.Sweep.FirstRegister)
	v.SetDefault("sweep.secondRegister", d.Sweep.SecondRegister)
	v.SetDefault("sweep.min", d.Sweep.Min)
	v.SetDefault("sweep.max", d.Sweep.Max)
	v.SetDefault("sweep.step", d.Sweep.Step)
	invariants := make([]string, len(d.Sweep.Invariants))
	for i, inv := range d.Sweep.Invariants {
		invariants[i] = string(inv)
	}
	v.SetDefault("sweep.invariants", invariants)
	v.SetDefault("sweep.seed", d.Sweep.Seed)
	v.SetDefault("sweep.workers", d.Sweep.Workers)
	setWalkDefaults(v, "sweep.walk", d.Sweep.Walk)
}

func setWalkDefaults(v *viper.Viper, prefix string, w opt.RandomWalkConfig) {
	v.SetDefault(prefix+".initialStep", w.InitialStep)
	v.SetDefault(prefix+".minStep", w.MinStep)
	v.SetDefault(prefix+".maxAttempts", w.MaxAttempts)
}

// Loader layers the configuration sources. Flags bound with BindFlag
// override everything else when set on the command line.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a loader with defaults and environment lookup in place.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlag makes flag override the setting at key.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for %q", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads path, or $HOME/.merminwalk.yaml when path is empty, and
// returns the validated configuration. A missing home config is not an
// error; a missing explicit one is.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if home, err := homedir.Dir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.SetConfigName(FileName)
		l.v.SetConfigType("yaml")
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Used returns the config file that was read, if any.
func (l *Loader) Used() string {
	return l.v.ConfigFileUsed()
}

// ValidationError reports an invalid setting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Cache.CSV != "" && filepath.Ext(c.Cache.CSV) != ".csv" {
		return &ValidationError{Field: "cache.csv", Reason: "must name a .csv file"}
	}
	if err := c.Grover.Validate(); err != nil {
		return &ValidationError{Field: "grover", Reason: err.Error()}
	}
	if err := c.QFT.Validate(); err != nil {
		return &ValidationError{Field: "qft", Reason: err.Error()}
	}
	if err := c.Sweep.Validate(); err != nil {
		return &ValidationError{Field: "sweep", Reason: err.Error()}
	}
	return nil
}

// OpenCache opens the configured coefficient cache, or returns nil when
// caching is off.
func (c *Config) OpenCache() (store.CoefficientStore, error) {
	switch {
	case c.Cache.CSV != "":
		s, err := store.NewCSVStore(c.Cache.CSV)
		if err != nil {
			return nil, fmt.Errorf("failed to open csv cache: %w", err)
		}
		return s, nil
	case c.Cache.Dir != "":
		s, err := store.NewFSStore(c.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		return s, nil
	default:
		return nil, nil
	}
}

// Options returns the experiment options for a run with the given walk.
func (c *Config) Options(walk opt.RandomWalkConfig, cache store.CoefficientStore) experiment.Options {
	return experiment.Options{
		Walk:         walk,
		Seed:         c.Seed,
		Cache:        cache,
		TraceDir:     c.TraceDir,
		TraceVectors: c.TraceVectors,
	}
}

// YAML renders the configuration as a config file would hold it.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

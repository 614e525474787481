// Package experiment runs the entanglement experiments: Mermin evaluation
// along Grover's search and the quantum Fourier transform, and invariant
// sweeps over phase estimation and quantum counting states.
package experiment

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/store"
)

// Run identifies one experiment execution. The ID names trace files and is
// recorded on cache entries the run creates.
type Run struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Seed      int64     `json:"seed"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

func newRun(kind string, seed int64) *Run {
	r := &Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Seed:      seed,
		StartTime: time.Now(),
	}
	slog.Info("Run started", "run_id", r.ID, "kind", kind, "seed", seed)
	return r
}

func (r *Run) finish() {
	r.EndTime = time.Now()
	slog.Info("Run complete", "run_id", r.ID, "kind", r.Kind, "elapsed", r.EndTime.Sub(r.StartTime))
}

// Options configure the Grover and QFT experiments
type Options struct {
	// Walk is the random walk schedule used for every optimization
	Walk opt.RandomWalkConfig

	// Seed makes a run reproducible
	Seed int64

	// Cache stores Mermin coefficients across runs (Grover only, may be nil)
	Cache store.CoefficientStore

	// TraceDir, when set, receives a JSONL trace of accepted candidates
	TraceDir string

	// TraceVectors records the coordinates of accepted candidates as well
	TraceVectors bool
}

// tracer opens the run's trace if one is requested. The returned close
// function may be called more than once; only the first call closes.
func (o Options) tracer(run *Run) ([]opt.Option, func() error, error) {
	if o.TraceDir == "" {
		return nil, func() error { return nil }, nil
	}
	tw, err := store.NewTraceWriter(o.TraceDir, run.ID, true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace: %w", err)
	}
	slog.Debug("Tracing accepted candidates", "run_id", run.ID, "path", tw.Path())
	var once sync.Once
	var closeErr error
	closeFn := func() error {
		once.Do(func() { closeErr = tw.Close() })
		return closeErr
	}
	return []opt.Option{opt.WithObserver(tw.Observer(o.TraceVectors))}, closeFn, nil
}

// Series is a sequence of Mermin values, one per algorithm step
type Series struct {
	Values []float64 `json:"values"`
}

// WriteCSV writes the series as iteration,intricationValue rows
func (s Series) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"iteration", "intricationValue"})
	for i, v := range s.Values {
		cw.Write([]string{strconv.Itoa(i), strconv.FormatFloat(v, 'g', -1, 64)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

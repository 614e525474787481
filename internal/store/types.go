package store

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind distinguishes the two coefficient layouts that can be cached.
type Kind string

const (
	// KindMermin is a single (a, a') pair shared by every qubit: 6 coefficients.
	KindMermin Kind = "mermin"

	// KindFamily holds one (a, a') pair per qubit: 6·Qubits coefficients,
	// all a directions first, then all a' directions.
	KindFamily Kind = "family"
)

// CoefficientsPerQubit is the number of packed reals per qubit in a family
const CoefficientsPerQubit = 6

// Entry is a cached optimum.
type Entry struct {
	// Key identifies the state the coefficients were optimized for
	Key string `json:"key"`

	// Kind selects the coefficient layout
	Kind Kind `json:"kind"`

	// Coefficients are the packed observable directions, x/y/z per direction
	Coefficients []float64 `json:"coefficients"`

	// Score is the Mermin value reached with Coefficients
	Score float64 `json:"score"`

	// Qubits is the number of qubits of the optimized state
	Qubits int `json:"qubits"`

	// Evaluations counts objective calls spent on the optimization
	Evaluations int `json:"evaluations,omitempty"`

	// Timestamp records when the entry was created
	Timestamp time.Time `json:"timestamp"`

	// RunID links the entry to the run (and trace) that produced it
	RunID string `json:"runId,omitempty"`
}

// EntryInfo contains entry metadata without the coefficient data.
type EntryInfo struct {
	Key       string    `json:"key"`
	Kind      Kind      `json:"kind"`
	Score     float64   `json:"score"`
	Qubits    int       `json:"qubits"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"runId,omitempty"`
}

// NewEntry creates an entry stamped with the current time.
func NewEntry(key string, kind Kind, coefficients []float64, score float64, qubits int, runID string) *Entry {
	return &Entry{
		Key:          key,
		Kind:         kind,
		Coefficients: coefficients,
		Score:        score,
		Qubits:       qubits,
		Timestamp:    time.Now(),
		RunID:        runID,
	}
}

// ToInfo converts a full Entry to EntryInfo (metadata only).
func (e *Entry) ToInfo() EntryInfo {
	return EntryInfo{
		Key:       e.Key,
		Kind:      e.Kind,
		Score:     e.Score,
		Qubits:    e.Qubits,
		Timestamp: e.Timestamp,
		RunID:     e.RunID,
	}
}

// ExpectedCoefficients returns how many coefficients an entry of this kind
// holds for the given number of qubits.
func (k Kind) ExpectedCoefficients(qubits int) (int, error) {
	switch k {
	case KindMermin:
		return CoefficientsPerQubit, nil
	case KindFamily:
		return CoefficientsPerQubit * qubits, nil
	default:
		return 0, fmt.Errorf("unknown coefficient kind %q", string(k))
	}
}

// Validate checks if the entry has valid data.
func (e *Entry) Validate() error {
	if err := ValidateKey(e.Key); err != nil {
		return err
	}
	if e.Qubits <= 0 {
		return &ValidationError{Field: "Qubits", Reason: "must be positive"}
	}
	want, err := e.Kind.ExpectedCoefficients(e.Qubits)
	if err != nil {
		return &ValidationError{Field: "Kind", Reason: err.Error()}
	}
	if len(e.Coefficients) != want {
		return &ValidationError{
			Field:  "Coefficients",
			Reason: fmt.Sprintf("length mismatch: expected %d for %s on %d qubits, got %d", want, e.Kind, e.Qubits, len(e.Coefficients)),
		}
	}
	for _, c := range e.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return &ValidationError{Field: "Coefficients", Reason: "must be finite"}
		}
	}
	if math.IsNaN(e.Score) || e.Score < 0 {
		return &ValidationError{Field: "Score", Reason: "must be a non-negative number"}
	}
	if e.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidateKey rejects keys that cannot be used as a file name.
func ValidateKey(key string) error {
	if key == "" {
		return &ValidationError{Field: "Key", Reason: "cannot be empty"}
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return &ValidationError{Field: "Key", Reason: "must be a plain name"}
	}
	return nil
}

// ValidationError represents an invalid entry or key.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks that a cached entry can serve a request for the given
// kind and qubit count.
func (e *Entry) IsCompatible(kind Kind, qubits int) error {
	if e.Kind != kind {
		return &CompatibilityError{
			Field:    "Kind",
			Expected: string(kind),
			Actual:   string(e.Kind),
		}
	}
	if e.Qubits != qubits {
		return &CompatibilityError{
			Field:    "Qubits",
			Expected: fmt.Sprintf("%d", qubits),
			Actual:   fmt.Sprintf("%d", e.Qubits),
		}
	}
	return nil
}

// CompatibilityError reports a cached entry that doesn't match the request.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}

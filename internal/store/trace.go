package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cwbudde/merminwalk/internal/opt"
)

// TraceEntry is one accepted candidate of a maximization run.
// Each entry is serialized as a JSON line in <runID>.jsonl.
type TraceEntry struct {
	// Step is the acceptance index; 0 is the normalized starting point
	Step int `json:"step"`

	// Score is the objective value of the accepted candidate
	Score float64 `json:"score"`

	// StepSize is the walk step length in effect when it was accepted
	StepSize float64 `json:"stepSize"`

	// Timestamp records when this trace entry was created
	Timestamp time.Time `json:"timestamp"`

	// Vector holds the accepted coordinates (optional, can be nil to save space)
	Vector []float64 `json:"vector,omitempty"`
}

func tracePath(baseDir, runID string) string {
	return filepath.Join(baseDir, "traces", runID+".jsonl")
}

// TraceWriter writes trace entries to a JSONL file.
// It uses buffered I/O and is safe for concurrent use.
type TraceWriter struct {
	mu          sync.Mutex
	file        *os.File
	writer      *bufio.Writer
	path        string
	withVectors bool
	err         error
}

// NewTraceWriter creates a trace writer for the given run at
// <baseDir>/traces/<runID>.jsonl. If append is true, new entries are
// appended to an existing file.
func NewTraceWriter(baseDir, runID string, append bool) (*TraceWriter, error) {
	if err := ValidateKey(runID); err != nil {
		return nil, err
	}
	path := tracePath(baseDir, runID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}

	var file *os.File
	var err error
	if append {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write appends a trace entry to the file.
// The entry is buffered and will be written on Flush() or Close().
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.write(entry)
}

func (tw *TraceWriter) write(entry TraceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	if err := tw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Observer adapts the writer to an opt.Observer. Vectors are recorded only
// when withVectors is set. The first write failure is kept and reported by
// Err and Close; later steps are dropped.
func (tw *TraceWriter) Observer(withVectors bool) opt.Observer {
	tw.mu.Lock()
	tw.withVectors = withVectors
	tw.mu.Unlock()

	return func(s opt.Step) {
		tw.mu.Lock()
		defer tw.mu.Unlock()
		if tw.err != nil {
			return
		}
		entry := TraceEntry{
			Step:      s.Index,
			Score:     s.Score,
			StepSize:  s.StepSize,
			Timestamp: time.Now(),
		}
		if tw.withVectors {
			entry.Vector = s.Vector
		}
		tw.err = tw.write(entry)
	}
}

// Err returns the first error hit by the Observer, if any.
func (tw *TraceWriter) Err() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.err
}

// Flush writes any buffered data to the file.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace writer: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}
	return nil
}

// Close flushes buffered data and closes the trace file.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return tw.err
}

// Path returns the filesystem path to the trace file.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// TraceReader reads trace entries from a JSONL file.
type TraceReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewTraceReader opens the trace of the given run.
func NewTraceReader(baseDir, runID string) (*TraceReader, error) {
	if err := ValidateKey(runID); err != nil {
		return nil, err
	}
	file, err := os.Open(tracePath(baseDir, runID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Key: runID}
		}
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	// vectors of large families make long lines
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &TraceReader{file: file, scanner: scanner}, nil
}

// Read reads the next trace entry from the file.
// Returns io.EOF when no more entries are available.
func (tr *TraceReader) Read() (*TraceEntry, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan trace line: %w", err)
		}
		return nil, io.EOF
	}

	var entry TraceEntry
	if err := json.Unmarshal(tr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trace entry: %w", err)
	}
	return &entry, nil
}

// ReadAll reads all remaining trace entries.
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	var entries []TraceEntry
	for {
		entry, err := tr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Close closes the trace reader.
func (tr *TraceReader) Close() error {
	if err := tr.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// ListTraces returns the run IDs that have a trace under baseDir.
func ListTraces(baseDir string) ([]string, error) {
	files, err := os.ReadDir(filepath.Join(baseDir, "traces"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read trace directory: %w", err)
	}
	var ids []string
	for _, f := range files {
		if name := f.Name(); !f.IsDir() && filepath.Ext(name) == ".jsonl" {
			ids = append(ids, name[:len(name)-len(".jsonl")])
		}
	}
	return ids, nil
}

// DeleteTrace removes the trace file for the given run.
// Returns nil if the file doesn't exist.
func DeleteTrace(baseDir, runID string) error {
	if err := ValidateKey(runID); err != nil {
		return err
	}
	err := os.Remove(tracePath(baseDir, runID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete trace file: %w", err)
	}
	return nil
}

package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// csvHeader is the column layout of the precomputed coefficient file:
// the ket, then the a direction (a,b,c) and the a' direction (m,p,q).
var csvHeader = []string{"ket", "a", "b", "c", "m", "p", "q"}

// CSVStore implements CoefficientStore on a single CSV file holding
// KindMermin entries, one row per ket. The file has no score or
// provenance columns, so loaded entries carry Score 0 and the file's
// modification time.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

// NewCSVStore creates a store backed by path. The parent directory is
// created if needed; the file itself is created on first Save.
func NewCSVStore(path string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return &CSVStore{path: path}, nil
}

// Path returns the CSV file path.
func (s *CSVStore) Path() string {
	return s.path
}

type csvRow struct {
	key    string
	coeffs []float64
}

func (s *CSVStore) readRows() ([]csvRow, time.Time, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, time.Time{}, nil
	} else if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to open coefficient file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to stat coefficient file: %w", err)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)
	header, err := r.Read()
	if err == io.EOF {
		return nil, info.ModTime(), nil
	} else if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := csvColumns(header)
	if err != nil {
		return nil, time.Time{}, err
	}

	var rows []csvRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to read row: %w", err)
		}
		key := rec[cols[0]]
		row := csvRow{key: key, coeffs: make([]float64, len(csvHeader)-1)}
		for i, col := range cols[1:] {
			v, err := strconv.ParseFloat(rec[col], 64)
			if err != nil {
				return nil, time.Time{}, fmt.Errorf("row %s: column %s: %w", key, csvHeader[i+1], err)
			}
			row.coeffs[i] = v
		}
		rows = append(rows, row)
	}
	return rows, info.ModTime(), nil
}

// csvColumns maps every csvHeader column to its position in header.
// Columns may come in any order; each must appear exactly once.
func csvColumns(header []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := pos[name]; dup {
			return nil, fmt.Errorf("unexpected header %v: duplicate column %q", header, name)
		}
		pos[name] = i
	}
	cols := make([]int, len(csvHeader))
	for i, name := range csvHeader {
		p, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("unexpected header %v: missing column %q", header, name)
		}
		cols[i] = p
	}
	return cols, nil
}

func (s *CSVStore) writeRows(rows []csvRow) error {
	tempPath := s.path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp coefficient file: %w", err)
	}

	w := csv.NewWriter(f)
	w.Write(csvHeader)
	for _, row := range rows {
		rec := make([]string, 0, len(csvHeader))
		rec = append(rec, row.key)
		for _, c := range row.coeffs {
			rec = append(rec, strconv.FormatFloat(c, 'g', -1, 64))
		}
		w.Write(rec)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write coefficient file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close coefficient file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename coefficient file: %w", err)
	}
	return nil
}

func rowEntry(row csvRow, modTime time.Time) *Entry {
	return &Entry{
		Key:          row.key,
		Kind:         KindMermin,
		Coefficients: row.coeffs,
		Qubits:       len(row.key),
		Timestamp:    modTime,
	}
}

// Save inserts or replaces the row for key. Only KindMermin entries fit the
// file layout.
func (s *CSVStore) Save(key string, entry *Entry) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	if entry.Kind != KindMermin {
		return &ValidationError{Field: "Kind", Reason: fmt.Sprintf("csv store only holds %s entries", KindMermin)}
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, _, err := s.readRows()
	if err != nil {
		return err
	}
	coeffs := append([]float64(nil), entry.Coefficients...)
	replaced := false
	for i := range rows {
		if rows[i].key == key {
			rows[i].coeffs = coeffs
			replaced = true
		}
	}
	if !replaced {
		rows = append(rows, csvRow{key: key, coeffs: coeffs})
	}
	if err := s.writeRows(rows); err != nil {
		return err
	}

	slog.Debug("Coefficients saved", "key", key, "path", s.path)
	return nil
}

// Load returns the row for key.
func (s *CSVStore) Load(key string) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, modTime, err := s.readRows()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.key == key {
			return rowEntry(row, modTime), nil
		}
	}
	return nil, &NotFoundError{Key: key}
}

// List returns metadata for every row, ordered by key.
func (s *CSVStore) List() ([]EntryInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, modTime, err := s.readRows()
	if err != nil {
		return nil, err
	}
	infos := make([]EntryInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, rowEntry(row, modTime).ToInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Delete removes the row for key.
func (s *CSVStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, _, err := s.readRows()
	if err != nil {
		return err
	}
	kept := rows[:0]
	for _, row := range rows {
		if row.key != key {
			kept = append(kept, row)
		}
	}
	if len(kept) == len(rows) {
		return &NotFoundError{Key: key}
	}
	if err := s.writeRows(kept); err != nil {
		return err
	}

	slog.Debug("Coefficients deleted", "key", key, "path", s.path)
	return nil
}

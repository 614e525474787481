package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const entryExt = ".json"

// FSStore implements CoefficientStore with one JSON file per key under
// <baseDir>/coefficients/.
//
// Thread-safety: writes go through temp file + rename, so readers never see
// a partial entry and no locks are needed.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a filesystem-backed store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "coefficients"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create coefficient directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

func (fs *FSStore) entryPath(key string) string {
	return filepath.Join(fs.baseDir, "coefficients", key+entryExt)
}

// Save atomically writes the entry for key.
func (fs *FSStore) Save(key string, entry *Entry) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	if entry.Key != key {
		return &ValidationError{Field: "Key", Reason: fmt.Sprintf("entry key %q does not match %q", entry.Key, key)}
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize entry: %w", err)
	}

	finalPath := fs.entryPath(key)
	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp entry file: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename entry file: %w", err)
	}

	slog.Debug("Coefficients saved", "key", key, "path", finalPath)
	return nil
}

// Load retrieves the entry stored under key.
func (fs *FSStore) Load(key string) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	path := fs.entryPath(key)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &NotFoundError{Key: key}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read entry file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to deserialize entry %s: %w", key, err)
	}

	slog.Debug("Coefficients loaded", "key", key, "path", path)
	return &entry, nil
}

// List returns metadata for every readable entry. Corrupted files are skipped.
func (fs *FSStore) List() ([]EntryInfo, error) {
	dir := filepath.Join(fs.baseDir, "coefficients")
	files, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []EntryInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read coefficient directory: %w", err)
	}

	infos := []EntryInfo{}
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, entryExt) {
			continue
		}
		key := strings.TrimSuffix(name, entryExt)
		entry, err := fs.Load(key)
		if err != nil {
			slog.Warn("Failed to load entry for listing", "key", key, "error", err)
			continue
		}
		infos = append(infos, entry.ToInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })

	slog.Debug("Listed coefficient entries", "count", len(infos))
	return infos, nil
}

// Delete removes the entry stored under key.
func (fs *FSStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	path := fs.entryPath(key)
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return &NotFoundError{Key: key}
	} else if err != nil {
		return fmt.Errorf("failed to remove entry file: %w", err)
	}

	slog.Debug("Coefficients deleted", "key", key, "path", path)
	return nil
}

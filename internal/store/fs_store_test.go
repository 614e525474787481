package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return store, tempDir
}

// createTestEntry creates a 3-qubit Mermin entry with test data.
func createTestEntry(key string) *Entry {
	return &Entry{
		Key:          key,
		Kind:         KindMermin,
		Coefficients: []float64{0.7, -0.1, 0.2, 0.05, 0.68, -0.3},
		Score:        1.8743,
		Qubits:       len(key),
		Evaluations:  4210,
		Timestamp:    time.Now(),
		RunID:        "run-1",
	}
}

func TestNewFSStore(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store.BaseDir() != tempDir {
		t.Errorf("Expected base dir %s, got %s", tempDir, store.BaseDir())
	}
	if _, err := os.Stat(filepath.Join(tempDir, "coefficients")); err != nil {
		t.Fatalf("Coefficient directory was not created: %v", err)
	}
}

func TestSave(t *testing.T) {
	store, tempDir := setupTestStore(t)

	key := "101"
	if err := store.Save(key, createTestEntry(key)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "coefficients", key+".json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Entry file was not created at %s", expectedPath)
	}
	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Temp file should not exist after save")
	}
}

func TestSave_InvalidInput(t *testing.T) {
	store, _ := setupTestStore(t)

	tests := []struct {
		name  string
		key   string
		entry *Entry
	}{
		{"empty key", "", createTestEntry("101")},
		{"path key", "../101", createTestEntry("101")},
		{"nil entry", "101", nil},
		{"key mismatch", "110", createTestEntry("101")},
		{"invalid entry", "101", &Entry{Key: "101", Kind: KindMermin, Qubits: 3, Timestamp: time.Now()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Save(tt.key, tt.entry); err == nil {
				t.Fatal("Expected error")
			}
		})
	}
}

func TestSave_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)

	key := "011"
	first := createTestEntry(key)
	first.Score = 1.2
	second := createTestEntry(key)
	second.Score = 1.9

	if err := store.Save(key, first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := store.Save(key, second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.Load(key)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Score != 1.9 {
		t.Errorf("Expected Score=1.9, got %f", loaded.Score)
	}
}

func TestLoad(t *testing.T) {
	store, _ := setupTestStore(t)

	key := "0110"
	original := createTestEntry(key)
	if err := store.Save(key, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(key)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Key != original.Key {
		t.Errorf("Key mismatch: expected %s, got %s", original.Key, loaded.Key)
	}
	if loaded.Kind != original.Kind {
		t.Errorf("Kind mismatch: expected %s, got %s", original.Kind, loaded.Kind)
	}
	if loaded.Score != original.Score {
		t.Errorf("Score mismatch: expected %f, got %f", original.Score, loaded.Score)
	}
	if loaded.Qubits != original.Qubits {
		t.Errorf("Qubits mismatch: expected %d, got %d", original.Qubits, loaded.Qubits)
	}
	if loaded.RunID != original.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", original.RunID, loaded.RunID)
	}
	for i, c := range original.Coefficients {
		if loaded.Coefficients[i] != c {
			t.Errorf("Coefficient %d mismatch: expected %f, got %f", i, c, loaded.Coefficients[i])
		}
	}
}

func TestLoad_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.Load("111")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	var notFound *NotFoundError
	if !errors.As(err, &notFound) || notFound.Key != "111" {
		t.Errorf("Expected NotFoundError for key 111, got %v", err)
	}
}

func TestLoad_Corrupted(t *testing.T) {
	store, tempDir := setupTestStore(t)

	path := filepath.Join(tempDir, "coefficients", "000.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupted file: %v", err)
	}
	if _, err := store.Load("000"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected decode error, got %v", err)
	}
}

func TestList_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected empty list, got %d entries", len(infos))
	}
}

func TestList_SortedAndSkipsInvalid(t *testing.T) {
	store, tempDir := setupTestStore(t)

	for _, key := range []string{"110", "001", "011"} {
		if err := store.Save(key, createTestEntry(key)); err != nil {
			t.Fatalf("Failed to save %s: %v", key, err)
		}
	}
	dir := filepath.Join(tempDir, "coefficients")
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("]"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0755); err != nil {
		t.Fatal(err)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"001", "011", "110"}
	if len(infos) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(infos))
	}
	for i, key := range want {
		if infos[i].Key != key {
			t.Errorf("Entry %d: expected key %s, got %s", i, key, infos[i].Key)
		}
	}
}

func TestDelete(t *testing.T) {
	store, _ := setupTestStore(t)

	key := "1001"
	if err := store.Save(key, createTestEntry(key)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
	if err := store.Delete(""); err == nil {
		t.Error("Expected error for empty key")
	}
}

func TestConcurrentSave(t *testing.T) {
	store, _ := setupTestStore(t)

	const numKeys = 8
	done := make(chan bool, numKeys)
	for i := 0; i < numKeys; i++ {
		go func(idx int) {
			key := fmt.Sprintf("%03b", idx)
			if err := store.Save(key, createTestEntry(key)); err != nil {
				t.Errorf("Concurrent save failed for %s: %v", key, err)
			}
			done <- true
		}(i)
	}
	for i := 0; i < numKeys; i++ {
		<-done
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != numKeys {
		t.Errorf("Expected %d entries, got %d", numKeys, len(infos))
	}
}

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// writeOutput writes a result to path, or to stdout when path is "-"
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	slog.Info("Wrote output", "path", path)
	return nil
}

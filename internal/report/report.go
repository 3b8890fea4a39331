// Package report serializes profile reports to disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/competency-mapper/internal/schemas"
	"github.com/jonathan/competency-mapper/internal/types"
)

// DefaultDir is where reports are written when no output path is given.
const DefaultDir = "responses"

// DefaultPath returns a timestamped report path inside dir.
func DefaultPath(dir string, now time.Time) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, fmt.Sprintf("results_%s.json", now.Format("20060102_150405")))
}

// Marshal encodes a report as indented JSON.
func Marshal(r *types.ProfileReport) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// Validate checks a report against the profile report schema.
func Validate(r *types.ProfileReport) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	return schemas.ValidateReport(data)
}

// WriteFile writes the report atomically: the content goes to a temporary
// file in the target directory which is then renamed over path. Writing the
// same report twice leaves the same file.
func WriteFile(path string, r *types.ProfileReport) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// ReadFile loads a report written by WriteFile.
func ReadFile(path string) (*types.ProfileReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r types.ProfileReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &r, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to flush report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}

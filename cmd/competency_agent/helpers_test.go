package main

import (
	"os"
	"path/filepath"
	"testing"
)

// repoRoot is where the sample catalog lives, relative to this package.
const repoRoot = "../.."

// getBinaryPath returns the path to the competency_agent binary for testing
func getBinaryPath(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath, err := filepath.Abs(filepath.Join(repoRoot, "bin", "competency_agent"))
	if err != nil {
		t.Fatalf("failed to resolve binary path: %v", err)
	}
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'go build -o bin/competency_agent ./cmd/competency_agent'", binaryPath)
	}
	return binaryPath
}

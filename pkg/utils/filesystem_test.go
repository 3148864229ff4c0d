package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureParentDir_CreatesMissingAncestors(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "data", "nested", "research-agent.db")

	if err := EnsureParentDir(target); err != nil {
		t.Fatalf("EnsureParentDir() error = %v", err)
	}

	info, err := os.Stat(filepath.Dir(target))
	if err != nil {
		t.Fatalf("expected parent directory to exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected parent path to be a directory")
	}
}

func TestEnsureParentDir_NoOpForBareFilename(t *testing.T) {
	if err := EnsureParentDir("research-agent.db"); err != nil {
		t.Errorf("EnsureParentDir() error = %v, want nil for a bare filename", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.KDFIterations != 210000 {
		t.Errorf("Expected default iterations, got %d", cfg.KDFIterations)
	}
	if len(cfg.Lockout) != 3 {
		t.Errorf("Expected default lockout table, got %v", cfg.Lockout)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `kdf_iterations: 50000
lockout:
  - attempts: 3
    minutes: 1
  - attempts: 6
    minutes: 10
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.KDFIterations != 50000 {
		t.Errorf("Expected 50000 iterations, got %d", cfg.KDFIterations)
	}

	policy := cfg.Policy()
	if got := policy.LockoutFor(3); got != time.Minute {
		t.Errorf("Expected 1m lockout at 3 failures, got %v", got)
	}
	if got := policy.LockoutFor(6); got != 10*time.Minute {
		t.Errorf("Expected 10m lockout at 6 failures, got %v", got)
	}
}

func TestLoadRejectsInvalidTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `lockout:
  - attempts: 10
    minutes: 5
  - attempts: 5
    minutes: 1
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for non-ascending lockout table")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("lockout: [broken"), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TickInterval.Std() != 5*time.Second {
		t.Fatalf("expected default tick interval of 5s, got %v", cfg.TickInterval.Std())
	}
	if cfg.BreakerFailureThresh != 5 || cfg.BreakerSuccessThresh != 3 {
		t.Fatalf("unexpected breaker defaults: %+v", cfg)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coordinator.toml")
	content := `
tick_interval = "10s"
max_concurrent_sessions = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TickInterval.Std() != 10*time.Second {
		t.Fatalf("expected overridden tick interval of 10s, got %v", cfg.TickInterval.Std())
	}
	if cfg.MaxConcurrentSessions != 4 {
		t.Fatalf("expected overridden max_concurrent_sessions of 4, got %d", cfg.MaxConcurrentSessions)
	}
	// Fields not present in the file keep their compiled-in default.
	if cfg.DefaultDelay.Std() != 10*time.Second {
		t.Fatalf("expected default delay to remain 10s, got %v", cfg.DefaultDelay.Std())
	}
}

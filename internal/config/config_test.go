package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[orchestrator]
addr = ":9000"
db_path = "data/runs.db"
redis_url = "redis://localhost:6379/0"
cache_ttl_seconds = 60

[solver]
memoize = false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Orchestrator.Addr != ":9000" || cfg.Orchestrator.CacheTTLSeconds != 60 {
		t.Fatalf("unexpected orchestrator config: %+v", cfg.Orchestrator)
	}
	if cfg.Solver.MemoizeEnabled() {
		t.Fatalf("expected memoize=false")
	}
	if cfg.Path != path {
		t.Fatalf("path=%s want=%s", cfg.Path, path)
	}
	if _, ok := cfg.Raw["orchestrator"]; !ok {
		t.Fatalf("expected raw config to keep the orchestrator table")
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for a missing explicit config")
	}
}

func TestMemoizeDefaultsOn(t *testing.T) {
	cfg, err := Parse("[orchestrator]\naddr = \":1\"\n", "inline")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.Solver.MemoizeEnabled() {
		t.Fatalf("expected memoize to default to true")
	}
}

func TestParseRejectsBadTOML(t *testing.T) {
	if _, err := Parse("[orchestrator\n", "inline"); err == nil {
		t.Fatalf("expected decode error")
	}
}

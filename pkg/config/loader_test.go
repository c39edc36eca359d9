package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("../../config/search.yaml")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected log_level 'info', got '%s'", cfg.LogLevel)
	}
	if len(cfg.Search.Parameters) != 2 {
		t.Fatalf("Expected 2 parameters, got %d", len(cfg.Search.Parameters))
	}
	if p := cfg.Search.Parameters[1]; p.Name != "other_speed" || p.Min != 8 || p.Max != 100 {
		t.Errorf("Unexpected parameter %+v", p)
	}
	if len(cfg.Search.Seeds) != 1 || cfg.Search.Seeds[0][0] != 16.62885703232409 {
		t.Errorf("Unexpected seeds %v", cfg.Search.Seeds)
	}
	if cfg.Objective.Kind != ObjectiveSimulator {
		t.Errorf("Expected simulator objective, got %s", cfg.Objective.Kind)
	}
	if cfg.Search.Stop == nil || !cfg.Search.Stop.OnFalsification {
		t.Errorf("Expected stop on falsification")
	}
}

func TestLoadSphereConfig(t *testing.T) {
	cfg, err := LoadConfig("../../config/sphere.yaml")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Search.ConcurrentChains != 4 || len(cfg.Search.Seeds) != 4 {
		t.Errorf("Unexpected search settings %+v", cfg.Search)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := `
search:
  parameters: [{name: x, min: 0, max: 10}, {name: y, min: 6, max: 20}]
  seeds: [[16.6, 64.4]]
objective:
  kind: sphere
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("Expected error for seed outside the search space")
	}
}

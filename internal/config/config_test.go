package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Fusion.SemanticWeight != 0.6 || cfg.Fusion.GraphWeight != 0.4 {
		t.Errorf("unexpected default fusion weights: %+v", cfg.Fusion)
	}
	if cfg.Embedding.Dimension != 768 {
		t.Errorf("default dimension = %d, want 768", cfg.Embedding.Dimension)
	}
	if cfg.Cache.TtlSeconds != 300 {
		t.Errorf("default cache TTL = %d, want 300", cfg.Cache.TtlSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Version != DefaultConfig().Version {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Inference.Model = "llama3.1:8b"
	cfg.Fusion.SemanticWeight = 0.7
	cfg.Fusion.GraphWeight = 0.3

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".bskb", "config.json")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Inference.Model != "llama3.1:8b" {
		t.Errorf("inference model = %q", loaded.Inference.Model)
	}
	if loaded.Fusion.SemanticWeight != 0.7 {
		t.Errorf("semantic weight = %v", loaded.Fusion.SemanticWeight)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.Dimension = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero dimension")
	}

	cfg = DefaultConfig()
	cfg.Fusion.GraphWeight = -0.1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative weight")
	}
}

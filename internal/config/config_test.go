package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnvOverrides(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}

	t.Setenv("PODSEG_LOG_LEVEL", "debug")
	t.Setenv("PODSEG_LOG_FORMAT", "json")
	t.Setenv("PODSEG_SEGMENTER", "LEXICAL")
	t.Setenv("PODSEG_THRESHOLD", "0.7")
	t.Setenv("PODSEG_WORKERS", "2")
	t.Setenv("PODSEG_EMBED_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("overrides: %v", err)
	}

	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging overrides failed: %+v", cfg.Logging)
	}
	if cfg.Segmenter.Mode != SegmenterLexical || cfg.Segmenter.SimilarityThreshold != 0.7 {
		t.Fatalf("segmenter overrides failed: %+v", cfg.Segmenter)
	}
	if cfg.Batch.Workers != 2 {
		t.Fatalf("workers override failed: %d", cfg.Batch.Workers)
	}
	if cfg.Embedding.Provider != EmbedProviderOpenAI || cfg.Embedding.APIKey != "sk-test" {
		t.Fatalf("embedding overrides failed: %+v", cfg.Embedding)
	}
}

func TestEnvOverrideRejectsBadNumber(t *testing.T) {
	cfg, _ := Default()
	t.Setenv("PODSEG_THRESHOLD", "high")
	if err := applyEnvOverrides(cfg); err == nil {
		t.Fatalf("expected parse error for PODSEG_THRESHOLD")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Hook.Command = "/bin/echo"
	cfg.Segmenter.SimilarityThreshold = 0.42

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Hook.Command != "/bin/echo" {
		t.Fatalf("expected hook command to persist")
	}
	if loaded.Segmenter.SimilarityThreshold != 0.42 {
		t.Fatalf("threshold = %v", loaded.Segmenter.SimilarityThreshold)
	}
	if loaded.Paths.ConfigPath != path {
		t.Fatalf("config path = %q", loaded.Paths.ConfigPath)
	}
}

func TestLoadWritesTemplateWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if _, err := Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown mode", func(c *Config) { c.Segmenter.Mode = "bert" }, false},
		{"threshold too high", func(c *Config) { c.Segmenter.SimilarityThreshold = 1.5 }, false},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }, false},
		{"zero workers", func(c *Config) { c.Batch.Workers = 0 }, false},
		{"zero pause", func(c *Config) { c.Grouping.PauseThresholdSec = 0 }, false},
		{"negative smoothing", func(c *Config) { c.Lexical.SmoothingWidth = -1 }, false},
	}
	for _, c := range cases {
		cfg, _ := Default()
		c.mutate(cfg)
		err := Validate(cfg)
		if (err == nil) != c.ok {
			t.Fatalf("%s: Validate err=%v, want ok=%v", c.name, err, c.ok)
		}
	}
}

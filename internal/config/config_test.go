package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cluster.K != 8 || cfg.LSA.Rank != 100 || !cfg.Vectorizer.SmoothIDF {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "lsa.yaml")
	data := "cluster:\n  k: 3\n  space: lsa\nvectorizer:\n  min_df: 2\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cluster.K != 3 || cfg.Cluster.Space != "lsa" || cfg.Vectorizer.MinDF != 2 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Cluster.MaxIter != 300 || cfg.Vectorizer.MaxDF != 1 || cfg.Logging.Format != "console" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoad_EnvOverridesLogLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("cluster: [k"), 0o644)
	if _, err := Load(path); err == nil {
		t.Errorf("malformed YAML accepted")
	}
}

func TestLoadDefault_UsesEnvPath(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "custom.yaml")
	cfg := Default()
	cfg.LSA.Rank = 7
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Setenv(EnvConfig, path)
	got, used, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if used != path || got.LSA.Rank != 7 {
		t.Fatalf("LoadDefault = %+v from %s", got.LSA, used)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"max_df", func(c *AppConfig) { c.Vectorizer.MaxDF = 1.5 }, "max_df"},
		{"min_df", func(c *AppConfig) { c.Vectorizer.MinDF = 0 }, "min_df"},
		{"k", func(c *AppConfig) { c.Cluster.K = 0 }, "cluster.k"},
		{"init", func(c *AppConfig) { c.Cluster.Init = "forgy" }, "cluster.init"},
		{"space", func(c *AppConfig) { c.Cluster.Space = "dense" }, "cluster.space"},
		{"rank", func(c *AppConfig) { c.LSA.Rank = 0 }, "lsa.rank"},
		{"max_ncv", func(c *AppConfig) { c.LSA.MaxNCV = -1 }, "lsa.max_ncv"},
		{"tol", func(c *AppConfig) { c.LSA.Tol = -1e-3 }, "lsa.tol"},
		{"format", func(c *AppConfig) { c.Logging.Format = "xml" }, "logging.format"},
		{"stopwords", func(c *AppConfig) { c.Vectorizer.Stopwords = "french" }, "stopwords"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Validate = %v, want error mentioning %q", err, tt.field)
			}
		})
	}
}

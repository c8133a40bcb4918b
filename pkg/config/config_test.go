package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Generation.URL != "http://localhost:11434/api/generate" {
		t.Errorf("unexpected default URL %s", cfg.Generation.URL)
	}
	if cfg.Generation.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.Generation.Timeout)
	}
	if cfg.Generation.ProbeTimeout != 10*time.Second {
		t.Errorf("expected 10s probe timeout, got %v", cfg.Generation.ProbeTimeout)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != 2*time.Second {
		t.Errorf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Batch.TextColumn != "Inscription" || cfg.Batch.IDColumn != "MarkerID" {
		t.Errorf("unexpected column defaults: %+v", cfg.Batch)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_MODEL", "llama3.2:3b")

	content := `
generation:
  url: http://gpu-box:11434/api/generate
  model: ${TEST_MODEL}
  timeout: 45s
retry:
  max_attempts: 5
  base_delay: 500ms
cache:
  backend: sqlite
  db_path: cache.db
batch:
  text_column: Text
`
	path := filepath.Join(t.TempDir(), "markersum.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Generation.Model != "llama3.2:3b" {
		t.Errorf("env var not expanded: got %s", cfg.Generation.Model)
	}
	if cfg.Generation.Timeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", cfg.Generation.Timeout)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.BaseDelay != 500*time.Millisecond {
		t.Errorf("unexpected retry config: %+v", cfg.Retry)
	}
	if cfg.Cache.Backend != CacheSQLite {
		t.Errorf("expected sqlite cache, got %s", cfg.Cache.Backend)
	}
	if cfg.Batch.TextColumn != "Text" {
		t.Errorf("expected Text column, got %s", cfg.Batch.TextColumn)
	}
	// untouched keys keep their defaults
	if cfg.Batch.IDColumn != "MarkerID" {
		t.Errorf("expected default id column, got %s", cfg.Batch.IDColumn)
	}
	if cfg.Generation.ProbeTimeout != 10*time.Second {
		t.Errorf("expected default probe timeout, got %v", cfg.Generation.ProbeTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MARKERSUM_GENERATION_MODEL", "mistral:7b")
	t.Setenv("MARKERSUM_CACHE_DIR", "/tmp/markers")
	t.Setenv("MARKERSUM_RETRY_MAX_ATTEMPTS", "4")

	path := filepath.Join(t.TempDir(), "markersum.yaml")
	if err := os.WriteFile(path, []byte("generation:\n  model: from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generation.Model != "mistral:7b" {
		t.Errorf("env should win over file, got %s", cfg.Generation.Model)
	}
	if cfg.Cache.Dir != "/tmp/markers" {
		t.Errorf("expected env cache dir, got %s", cfg.Cache.Dir)
	}
	if cfg.Retry.MaxAttempts != 4 {
		t.Errorf("expected 4 attempts, got %d", cfg.Retry.MaxAttempts)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadMissingDefaultPath(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(DefaultPath)
	if err != nil {
		t.Fatalf("missing default config should fall back to defaults: %v", err)
	}
	if cfg.Generation.Model != Default().Generation.Model {
		t.Errorf("expected default model, got %s", cfg.Generation.Model)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Generation.Backend = "grpc" }},
		{"empty url", func(c *Config) { c.Generation.URL = "" }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"negative delay", func(c *Config) { c.Retry.BaseDelay = -time.Second }},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "redis" }},
		{"file cache without dir", func(c *Config) { c.Cache.Dir = "" }},
		{"negative rate", func(c *Config) { c.Generation.RequestsPerMinute = -1 }},
		{"openai with native endpoint", func(c *Config) {
			c.Generation.Backend = BackendOpenAI
			c.Generation.URL = "http://ollama.lan:11434/api/generate/"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAuditIncludeFromEnv(t *testing.T) {
	if got := Default().Audit.Include; len(got) != 2 {
		t.Fatalf("expected prompts and responses by default, got %v", got)
	}

	t.Setenv("MARKERSUM_AUDIT_INCLUDE", "prompts")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for explicit missing path")
	}

	t.Chdir(t.TempDir())
	cfg, err = Load(DefaultPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Audit.Include) != 1 || cfg.Audit.Include[0] != "prompts" {
		t.Errorf("expected [prompts], got %v", cfg.Audit.Include)
	}
}

func TestOpenAIBackendDefaultURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markersum.yaml")
	if err := os.WriteFile(path, []byte("generation:\n  backend: openai\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generation.URL != DefaultOpenAIURL {
		t.Errorf("expected %s, got %s", DefaultOpenAIURL, cfg.Generation.URL)
	}

	t.Setenv("MARKERSUM_GENERATION_URL", "http://gpu-box:8080/v1/")
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generation.URL != "http://gpu-box:8080/v1/" {
		t.Errorf("explicit url should be kept, got %s", cfg.Generation.URL)
	}
}

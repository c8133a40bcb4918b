package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "markersum.yaml"

// Backend names for GenerationConfig.Backend.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Default service endpoints of a local Ollama, per backend.
const (
	DefaultOllamaURL = "http://localhost:11434/api/generate"
	DefaultOpenAIURL = "http://localhost:11434/v1/"
)

// Cache backend names for CacheConfig.Backend.
const (
	CacheFile   = "file"
	CacheSQLite = "sqlite"
)

// Config holds all markersum configuration.
type Config struct {
	Generation GenerationConfig `yaml:"generation" envPrefix:"GENERATION_"`
	Retry      RetryConfig      `yaml:"retry"      envPrefix:"RETRY_"`
	Cache      CacheConfig      `yaml:"cache"      envPrefix:"CACHE_"`
	Batch      BatchConfig      `yaml:"batch"      envPrefix:"BATCH_"`
	Tracker    TrackerConfig    `yaml:"tracker"    envPrefix:"TRACKER_"`
	Audit      AuditConfig      `yaml:"audit"      envPrefix:"AUDIT_"`
	Log        LogConfig        `yaml:"log"        envPrefix:"LOG_"`
}

// GenerationConfig describes the text-generation service.
// For the ollama backend URL is the full /api/generate endpoint; for the
// openai backend it is the base URL of an OpenAI-compatible API.
type GenerationConfig struct {
	Backend           string        `yaml:"backend"             env:"BACKEND"`
	URL               string        `yaml:"url"                 env:"URL"`
	Model             string        `yaml:"model"               env:"MODEL"`
	APIKey            string        `yaml:"api_key"             env:"API_KEY"`
	Timeout           time.Duration `yaml:"timeout"             env:"TIMEOUT"`
	ProbeTimeout      time.Duration `yaml:"probe_timeout"       env:"PROBE_TIMEOUT"`
	StripReasoning    bool          `yaml:"strip_reasoning"     env:"STRIP_REASONING"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"REQUESTS_PER_MINUTE"`
}

// RetryConfig controls retries of transport failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	BaseDelay   time.Duration `yaml:"base_delay"   env:"BASE_DELAY"`
}

// CacheConfig selects the summary cache backend.
type CacheConfig struct {
	Backend string `yaml:"backend" env:"BACKEND"`
	Dir     string `yaml:"dir"     env:"DIR"`
	DBPath  string `yaml:"db_path" env:"DB_PATH"`
}

// BatchConfig holds default column names.
type BatchConfig struct {
	TextColumn    string `yaml:"text_column"    env:"TEXT_COLUMN"`
	IDColumn      string `yaml:"id_column"      env:"ID_COLUMN"`
	SummaryColumn string `yaml:"summary_column" env:"SUMMARY_COLUMN"`
}

// TrackerConfig controls the run ledger.
type TrackerConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	DBPath  string `yaml:"db_path" env:"DB_PATH"`
}

// AuditConfig controls the per-generation audit log.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"        env:"ENABLED"`
	DBPath        string `yaml:"db_path"        env:"DB_PATH"`
	RetentionDays int    `yaml:"retention_days" env:"RETENTION_DAYS"`
	MaxBodySize   int    `yaml:"max_body_size"  env:"MAX_BODY_SIZE"`

	// Include lists what is stored besides metadata: "prompts", "responses".
	Include []string `yaml:"include" env:"INCLUDE" envSeparator:","`
}

// LogConfig controls log output.
type LogConfig struct {
	File string `yaml:"file" env:"FILE"`
	JSON bool   `yaml:"json" env:"JSON"`
}

// Default returns a Config with the stock local Ollama setup.
func Default() *Config {
	return &Config{
		Generation: GenerationConfig{
			Backend:        BackendOllama,
			URL:            DefaultOllamaURL,
			Model:          "deepseek-r1:latest",
			Timeout:        30 * time.Second,
			ProbeTimeout:   10 * time.Second,
			StripReasoning: true,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Dir:     "summary_cache",
			DBPath:  "summary_cache.db",
		},
		Batch: BatchConfig{
			TextColumn:    "Inscription",
			IDColumn:      "MarkerID",
			SummaryColumn: "Summary",
		},
		Tracker: TrackerConfig{
			Enabled: true,
			DBPath:  "markersum.db",
		},
		Audit: AuditConfig{
			Enabled:       false,
			DBPath:        "markersum-audit.db",
			RetentionDays: 30,
			MaxBodySize:   8192,
			Include:       []string{"prompts", "responses"},
		},
		Log: LogConfig{
			File: "summaries.log",
		},
	}
}

// Load reads a YAML config file, expands ${VAR} references, then applies
// MARKERSUM_* environment overrides. A missing file at DefaultPath is not
// an error; the defaults are used instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "MARKERSUM_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// choosing the openai backend without a url points it at Ollama's /v1 API
	if cfg.Generation.Backend == BackendOpenAI && cfg.Generation.URL == DefaultOllamaURL {
		cfg.Generation.URL = DefaultOpenAIURL
	}

	return cfg, cfg.Validate()
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Generation.Backend {
	case BackendOllama, BackendOpenAI:
	default:
		return fmt.Errorf("generation.backend: unknown backend %q", c.Generation.Backend)
	}
	if c.Generation.URL == "" {
		return fmt.Errorf("generation.url is required")
	}
	if c.Generation.Backend == BackendOpenAI && strings.HasSuffix(strings.TrimRight(c.Generation.URL, "/"), "/api/generate") {
		return fmt.Errorf("generation.url: %s is the native Ollama endpoint; the openai backend needs the API base URL, e.g. %s",
			c.Generation.URL, DefaultOpenAIURL)
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	if c.Generation.Timeout <= 0 || c.Generation.ProbeTimeout <= 0 {
		return fmt.Errorf("generation timeouts must be positive")
	}
	if c.Generation.RequestsPerMinute < 0 {
		return fmt.Errorf("generation.requests_per_minute must not be negative")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay must not be negative")
	}
	switch c.Cache.Backend {
	case CacheFile:
		if c.Cache.Dir == "" {
			return fmt.Errorf("cache.dir is required for the file backend")
		}
	case CacheSQLite:
		if c.Cache.DBPath == "" {
			return fmt.Errorf("cache.db_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}
	if c.Batch.SummaryColumn == "" {
		return fmt.Errorf("batch.summary_column is required")
	}
	return nil
}

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for the gepa CLI and engine.
type Config struct {
	LLM      LLMConfig      `json:"llm"`
	Database DatabaseConfig `json:"database"`
	Run      RunConfig      `json:"run"`
	Server   ServerConfig   `json:"server"`
	Metrics  MetricsConfig  `json:"metrics"`
	Tracing  TracingConfig  `json:"tracing"`
}

// LLMConfig holds the OpenAI-compatible completion endpoint the default
// reflective proposer drives.
type LLMConfig struct {
	URL         string  `json:"url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// DatabaseConfig holds the optional Postgres run-store connection. Runs
// always persist to RunConfig.RunDir as msgpack files; `gepa run
// --store=postgres` additionally mirrors the finished run here.
type DatabaseConfig struct {
	PostgresURL string `json:"postgres_url"`
}

// RunConfig holds the default optimization-run parameters a `gepa run`
// invocation falls back to when not overridden by flags.
type RunConfig struct {
	RunDir                  string  `json:"run_dir"`
	MaxMetricCalls          int     `json:"max_metric_calls"`
	ReflectionMinibatchSize int     `json:"reflection_minibatch_size"`
	PerfectScore            float64 `json:"perfect_score"`
	SkipPerfectScore        bool    `json:"skip_perfect_score"`
	UseMerge                bool    `json:"use_merge"`
	MaxMergeInvocations     int     `json:"max_merge_invocations"`
	MergeValOverlapFloor    int     `json:"merge_val_overlap_floor"`
	MergeSubsampleSize      int     `json:"merge_subsample_size"`
	PersistEveryN           int     `json:"persist_every_n"`
	Seed                    uint64  `json:"seed"`
}

// ServerConfig holds the optional HTTP surface for watching runs (progress
// SSE/WebSocket, run listing).
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// MetricsConfig toggles the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// TracingConfig toggles OpenTelemetry tracing export.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"service_name"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".gepa")

	return &Config{
		LLM: LLMConfig{
			URL:         "http://localhost:8000/v1",
			APIKey:      "",
			Model:       "Qwen/Qwen3-8B-AWQ",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Database: DatabaseConfig{
			PostgresURL: "",
		},
		Run: RunConfig{
			RunDir:                  filepath.Join(dataDir, "runs", "default"),
			MaxMetricCalls:          1000,
			ReflectionMinibatchSize: 5,
			PerfectScore:            1.0,
			SkipPerfectScore:        true,
			UseMerge:                true,
			MaxMergeInvocations:     10,
			MergeValOverlapFloor:    5,
			MergeSubsampleSize:      10,
			PersistEveryN:           5,
			Seed:                    0,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8070,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "gepa",
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// envBool loads a boolean environment variable into the target pointer if set and valid
func envBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// envUint64 loads a uint64 environment variable into the target pointer if set and valid
func envUint64(key string, target *uint64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*target = n
		}
	}
}

// Load loads configuration from a config file (if present) then applies
// environment overrides, the same two-step precedence the rest of this
// codebase uses.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	envString("GEPA_LLM_URL", &cfg.LLM.URL)
	envString("GEPA_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("GEPA_LLM_MODEL", &cfg.LLM.Model)
	envInt("GEPA_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	envFloat("GEPA_LLM_TEMPERATURE", &cfg.LLM.Temperature)

	envString("GEPA_POSTGRES_URL", &cfg.Database.PostgresURL)

	envString("GEPA_RUN_DIR", &cfg.Run.RunDir)
	envInt("GEPA_MAX_METRIC_CALLS", &cfg.Run.MaxMetricCalls)
	envInt("GEPA_REFLECTION_MINIBATCH_SIZE", &cfg.Run.ReflectionMinibatchSize)
	envFloat("GEPA_PERFECT_SCORE", &cfg.Run.PerfectScore)
	envBool("GEPA_SKIP_PERFECT_SCORE", &cfg.Run.SkipPerfectScore)
	envBool("GEPA_USE_MERGE", &cfg.Run.UseMerge)
	envInt("GEPA_MAX_MERGE_INVOCATIONS", &cfg.Run.MaxMergeInvocations)
	envInt("GEPA_MERGE_VAL_OVERLAP_FLOOR", &cfg.Run.MergeValOverlapFloor)
	envInt("GEPA_MERGE_SUBSAMPLE_SIZE", &cfg.Run.MergeSubsampleSize)
	envInt("GEPA_PERSIST_EVERY_N", &cfg.Run.PersistEveryN)
	envUint64("GEPA_SEED", &cfg.Run.Seed)

	envString("GEPA_SERVER_HOST", &cfg.Server.Host)
	envInt("GEPA_SERVER_PORT", &cfg.Server.Port)

	envBool("GEPA_METRICS_ENABLED", &cfg.Metrics.Enabled)
	envString("GEPA_METRICS_ADDR", &cfg.Metrics.Addr)

	envBool("GEPA_TRACING_ENABLED", &cfg.Tracing.Enabled)
	envString("GEPA_TRACING_SERVICE_NAME", &cfg.Tracing.ServiceName)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsPostgresConfigured returns true if a Postgres run-store is configured.
func (c *Config) IsPostgresConfigured() bool {
	return c.Database.PostgresURL != ""
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	var errs []string

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "LLM temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "LLM max_tokens must be positive")
	}
	if c.LLM.URL == "" {
		errs = append(errs, "LLM URL is required")
	} else if !isValidURL(c.LLM.URL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}

	if c.Database.PostgresURL != "" && !isValidURL(c.Database.PostgresURL) {
		errs = append(errs, "PostgreSQL URL must be a valid URL")
	}

	if c.Run.MaxMetricCalls < 1 {
		errs = append(errs, "run max_metric_calls must be positive")
	}
	if c.Run.ReflectionMinibatchSize < 1 {
		errs = append(errs, "run reflection_minibatch_size must be positive")
	}
	if c.Run.UseMerge && c.Run.MaxMergeInvocations < 1 {
		errs = append(errs, "run max_merge_invocations must be positive when use_merge is enabled")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file.
func getConfigPath() string {
	if path := os.Getenv("GEPA_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	configDir := filepath.Join(homeDir, ".config", "gepa")
	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	altPath := filepath.Join(homeDir, ".gepa", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}

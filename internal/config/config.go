// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ViewsEnabledEnv is the switch named in the error returned when a view is
// read while materialization is disabled.
const ViewsEnabledEnv = "VIEWS_ENABLED"

// Defaults.
const (
	DefaultExpirationMinutes = 24 * 60
	DefaultCacheSize         = 1000
	DefaultCacheTTL          = 15 * time.Minute
	DefaultJobWaitTimeout    = 3 * time.Minute
)

// Config holds the warehouse connection and materialization settings.
type Config struct {
	ProjectID       string `yaml:"project"`
	Location        string `yaml:"location"`
	CredentialsFile string `yaml:"credentials_file"`

	// Where temporary and materialized tables are created. When empty the
	// destination's own project and dataset are used.
	MaterializationProject string `yaml:"materialization_project"`
	MaterializationDataset string `yaml:"materialization_dataset"`

	ViewsEnabled                     bool          `yaml:"views_enabled"`
	MaterializationExpirationMinutes int           `yaml:"materialization_expiration_minutes"`
	CacheSize                        int           `yaml:"cache_size"`
	CacheTTL                         time.Duration `yaml:"cache_ttl"`
	JobWaitTimeout                   time.Duration `yaml:"job_wait_timeout"`
	JobSubmitRPS                     float64       `yaml:"job_submit_rps"` // 0 = unlimited

	LogLevel string `yaml:"log_level"` // debug, info, warn, error (default "info")

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string `yaml:"-"`
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

// LoadFile reads a YAML config file and overlays environment variables on
// top of it. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.ProjectID, "GOOGLE_CLOUD_PROJECT")
	setString(&cfg.ProjectID, "BQ_PROJECT")
	setString(&cfg.Location, "BQ_LOCATION")
	setString(&cfg.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&cfg.CredentialsFile, "BQ_CREDENTIALS_FILE")
	setString(&cfg.MaterializationProject, "MATERIALIZATION_PROJECT")
	setString(&cfg.MaterializationDataset, "MATERIALIZATION_DATASET")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	cfg.ViewsEnabled = parseBoolEnvDefault(ViewsEnabledEnv, cfg.ViewsEnabled)

	if v := os.Getenv("MATERIALIZATION_EXPIRATION_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaterializationExpirationMinutes = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid MATERIALIZATION_EXPIRATION_MINUTES %q", v))
		}
	}
	if v := os.Getenv("MATERIALIZATION_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheSize = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid MATERIALIZATION_CACHE_SIZE %q", v))
		}
	}
	setDuration(cfg, &cfg.CacheTTL, "MATERIALIZATION_CACHE_TTL")
	setDuration(cfg, &cfg.JobWaitTimeout, "JOB_WAIT_TIMEOUT")
	if v := os.Getenv("JOB_SUBMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.JobSubmitRPS = f
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid JOB_SUBMIT_RPS %q", v))
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.MaterializationExpirationMinutes == 0 {
		cfg.MaterializationExpirationMinutes = DefaultExpirationMinutes
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.JobWaitTimeout == 0 {
		cfg.JobWaitTimeout = DefaultJobWaitTimeout
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ProjectID == "" {
		cfg.Warnings = append(cfg.Warnings, "BQ_PROJECT not set; project will be detected from credentials")
	}
	if cfg.ViewsEnabled && cfg.MaterializationDataset == "" {
		cfg.Warnings = append(cfg.Warnings, "VIEWS_ENABLED is set without MATERIALIZATION_DATASET; query reads will fail, views materialize next to themselves")
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.CacheSize < 0 {
		return fmt.Errorf("MATERIALIZATION_CACHE_SIZE must not be negative, got %d", c.CacheSize)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("MATERIALIZATION_CACHE_TTL must not be negative, got %s", c.CacheTTL)
	}
	if c.JobWaitTimeout < 0 {
		return fmt.Errorf("JOB_WAIT_TIMEOUT must not be negative, got %s", c.JobWaitTimeout)
	}
	if c.JobSubmitRPS < 0 {
		return fmt.Errorf("JOB_SUBMIT_RPS must not be negative, got %g", c.JobSubmitRPS)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(cfg *Config, dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid %s %q", key, v))
		return
	}
	*dst = d
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

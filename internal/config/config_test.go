package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"GOOGLE_CLOUD_PROJECT", "BQ_PROJECT", "BQ_LOCATION",
	"GOOGLE_APPLICATION_CREDENTIALS", "BQ_CREDENTIALS_FILE",
	"MATERIALIZATION_PROJECT", "MATERIALIZATION_DATASET", ViewsEnabledEnv,
	"MATERIALIZATION_EXPIRATION_MINUTES", "MATERIALIZATION_CACHE_SIZE",
	"MATERIALIZATION_CACHE_TTL", "JOB_WAIT_TIMEOUT", "JOB_SUBMIT_RPS", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Empty(t, cfg.ProjectID)
	assert.False(t, cfg.ViewsEnabled)
	assert.Equal(t, 1440, cfg.MaterializationExpirationMinutes)
	assert.Equal(t, 1000, cfg.CacheSize)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 3*time.Minute, cfg.JobWaitTimeout)
	assert.Zero(t, cfg.JobSubmitRPS)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.Warnings, "missing project should warn")
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("BQ_PROJECT", "proj")
	t.Setenv("BQ_LOCATION", "EU")
	t.Setenv("BQ_CREDENTIALS_FILE", "/tmp/sa.json")
	t.Setenv("MATERIALIZATION_PROJECT", "scratch")
	t.Setenv("MATERIALIZATION_DATASET", "tmp")
	t.Setenv("VIEWS_ENABLED", "yes")
	t.Setenv("MATERIALIZATION_EXPIRATION_MINUTES", "60")
	t.Setenv("MATERIALIZATION_CACHE_SIZE", "10")
	t.Setenv("MATERIALIZATION_CACHE_TTL", "1m")
	t.Setenv("JOB_WAIT_TIMEOUT", "30s")
	t.Setenv("JOB_SUBMIT_RPS", "2.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "proj", cfg.ProjectID)
	assert.Equal(t, "EU", cfg.Location)
	assert.Equal(t, "/tmp/sa.json", cfg.CredentialsFile)
	assert.Equal(t, "scratch", cfg.MaterializationProject)
	assert.Equal(t, "tmp", cfg.MaterializationDataset)
	assert.True(t, cfg.ViewsEnabled)
	assert.Equal(t, 60, cfg.MaterializationExpirationMinutes)
	assert.Equal(t, 10, cfg.CacheSize)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.JobWaitTimeout)
	assert.InDelta(t, 2.5, cfg.JobSubmitRPS, 1e-9)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_ProjectPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_CLOUD_PROJECT", "from-gcloud")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "from-gcloud", cfg.ProjectID)

	t.Setenv("BQ_PROJECT", "explicit")
	cfg, err = LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.ProjectID)
}

func TestLoadFromEnv_InvalidValuesWarn(t *testing.T) {
	clearEnv(t)
	t.Setenv("BQ_PROJECT", "proj")
	t.Setenv("MATERIALIZATION_CACHE_SIZE", "lots")
	t.Setenv("MATERIALIZATION_CACHE_TTL", "soon")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Len(t, cfg.Warnings, 2)
}

func TestLoadFromEnv_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"negative cache size", map[string]string{"MATERIALIZATION_CACHE_SIZE": "-1"}},
		{"negative ttl", map[string]string{"MATERIALIZATION_CACHE_TTL": "-1m"}},
		{"negative rps", map[string]string{"JOB_SUBMIT_RPS": "-3"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bqbridge.yaml")
	content := `project: file-project
location: US
materialization_dataset: tmp
views_enabled: true
cache_ttl: 5m
cache_size: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("BQ_LOCATION", "EU")
	t.Setenv(ViewsEnabledEnv, "false")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "file-project", cfg.ProjectID)
	assert.Equal(t, "EU", cfg.Location)
	assert.Equal(t, "tmp", cfg.MaterializationDataset)
	assert.False(t, cfg.ViewsEnabled)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 50, cfg.CacheSize)
}

func TestLoadFile_Missing(t *testing.T) {
	clearEnv(t)
	t.Setenv("BQ_PROJECT", "p")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "p", cfg.ProjectID)
}

func TestLoadFile_Malformed(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project: [unterminated"), 0o600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			c := &Config{LogLevel: tc.in}
			assert.Equal(t, tc.want, c.SlogLevel())
		})
	}
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	assert.NoError(t, LoadDotEnv("/nonexistent/.env"))
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	t.Setenv("TEST_KEY", "")
	t.Setenv("TEST_QUOTED", "")
	t.Setenv("TEST_EXPORTED", "")
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\nTEST_KEY=test_value\nTEST_QUOTED=\"with spaces\"\nexport TEST_EXPORTED=1\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	require.NoError(t, LoadDotEnv(envFile))

	assert.Equal(t, "test_value", os.Getenv("TEST_KEY"))
	assert.Equal(t, "with spaces", os.Getenv("TEST_QUOTED"))
	assert.Equal(t, "1", os.Getenv("TEST_EXPORTED"))
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("TEST_PRECEDENCE_KEY", "from_env")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TEST_PRECEDENCE_KEY=from_file\n"), 0o600))

	require.NoError(t, LoadDotEnv(envFile))

	assert.Equal(t, "from_env", os.Getenv("TEST_PRECEDENCE_KEY"))
}

func TestLoadFromEnv_ProjectWithoutDataset(t *testing.T) {
	clearEnv(t)
	t.Setenv("BQ_PROJECT", "proj")
	t.Setenv("MATERIALIZATION_PROJECT", "scratch")
	t.Setenv(ViewsEnabledEnv, "true")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "scratch", cfg.MaterializationProject)
	assert.Empty(t, cfg.MaterializationDataset)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "query reads will fail")
}

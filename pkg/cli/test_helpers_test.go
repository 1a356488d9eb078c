package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"bq-bridge/internal/app"
	"bq-bridge/internal/config"
	"bq-bridge/internal/testutil"
)

var isolatedEnv = []string{
	"GOOGLE_CLOUD_PROJECT", "BQ_PROJECT", "BQ_LOCATION",
	"GOOGLE_APPLICATION_CREDENTIALS", "BQ_CREDENTIALS_FILE",
	"MATERIALIZATION_PROJECT", "MATERIALIZATION_DATASET", config.ViewsEnabledEnv,
	"MATERIALIZATION_EXPIRATION_MINUTES", "MATERIALIZATION_CACHE_SIZE",
	"MATERIALIZATION_CACHE_TTL", "JOB_WAIT_TIMEOUT", "JOB_SUBMIT_RPS", "LOG_LEVEL",
	"BQBRIDGE_OUTPUT",
}

// runCLI executes a fresh root command against mock with config and .env
// isolated in a temp dir, and returns what the command wrote to stdout.
func runCLI(t *testing.T, mock *testutil.MockWarehouse, args ...string) (string, error) {
	t.Helper()
	for _, k := range isolatedEnv {
		t.Setenv(k, "")
	}
	dir := t.TempDir()

	opener := func(_ context.Context, cfg *config.Config, logger *slog.Logger) (*app.App, error) {
		return app.NewWithService(cfg, mock, logger), nil
	}
	cmd := newRootCmd(opener)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--env-file", filepath.Join(dir, ".env"),
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

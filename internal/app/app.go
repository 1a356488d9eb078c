// Package app wires configuration, the BigQuery adapter, the materialization
// cache and the warehouse client together.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	bq "cloud.google.com/go/bigquery"

	"bq-bridge/internal/bigquery"
	"bq-bridge/internal/cache"
	"bq-bridge/internal/config"
	"bq-bridge/internal/domain"
	"bq-bridge/internal/warehouse"
)

// App holds the fully-wired client and the resources it owns.
type App struct {
	Config    *config.Config
	Cache     *cache.Cache
	Warehouse *warehouse.Client

	closer io.Closer
}

// New connects to BigQuery and wires a client from cfg. When no project is
// configured it is detected from the credentials.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	project := cfg.ProjectID
	if project == "" {
		project = bq.DetectProjectID
	}
	svc, err := bigquery.New(ctx, bigquery.Config{
		ProjectID:       project,
		Location:        cfg.Location,
		CredentialsFile: cfg.CredentialsFile,
		SubmitRPS:       cfg.JobSubmitRPS,
	}, logger.With("component", "bigquery"))
	if err != nil {
		return nil, fmt.Errorf("connect to bigquery: %w", err)
	}
	a := NewWithService(cfg, svc, logger)
	a.closer = svc
	return a, nil
}

// NewWithService wires a client over an existing WarehouseService.
func NewWithService(cfg *config.Config, svc domain.WarehouseService, logger *slog.Logger) *App {
	c := cache.New(cache.Config{MaxEntries: cfg.CacheSize, TTL: cfg.CacheTTL})
	client := warehouse.New(svc, c, warehouse.Config{
		MaterializationProject: cfg.MaterializationProject,
		MaterializationDataset: cfg.MaterializationDataset,
		WaitTimeout:            cfg.JobWaitTimeout,
	}, logger.With("component", "warehouse"))
	return &App{Config: cfg, Cache: c, Warehouse: client}
}

// ReadOptions builds a read request for either a table or an ad-hoc query
// using the configured view policy.
func (a *App) ReadOptions(table domain.TableID, query string) domain.ReadTableOptions {
	return domain.ReadTableOptions{
		TableID:               table,
		Query:                 query,
		ViewsEnabled:          a.Config.ViewsEnabled,
		ViewsEnabledParamName: config.ViewsEnabledEnv,
		ExpirationMinutes:     a.Config.MaterializationExpirationMinutes,
	}
}

// Close releases the warehouse connection.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Package warehouse coordinates reads and writes against a remote warehouse
// table service. It materializes views and ad-hoc queries into temporary
// tables, deduplicates concurrent materializations through a shared cache,
// and overwrites destination tables atomically with a server-side MERGE.
package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"bq-bridge/internal/cache"
	"bq-bridge/internal/domain"
	"bq-bridge/internal/jobwait"
	"bq-bridge/internal/sqlgen"
)

const listConcurrency = 8

// Config holds the client's placement and wait settings.
type Config struct {
	// MaterializationProject and MaterializationDataset locate materialized
	// and temporary tables. Empty values fall back to the location of the
	// table being read or written.
	MaterializationProject string
	MaterializationDataset string
	// WaitTimeout caps the strict wait used by WaitForJob. Zero keeps the
	// 3 minute default.
	WaitTimeout time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Client is the entry point used by query-engine adapters.
type Client struct {
	svc    domain.WarehouseService
	cache  *cache.Cache
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Client. A nil cache gets a private cache with default bounds;
// pass a shared one to deduplicate materializations across clients.
func New(svc domain.WarehouseService, c *cache.Cache, cfg Config, logger *slog.Logger) *Client {
	if c == nil {
		c = cache.New(cache.Config{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{svc: svc, cache: c, cfg: cfg, now: now, logger: logger}
}

// FullyQualifiedName renders project.dataset.table, or dataset.table without a project.
func FullyQualifiedName(id domain.TableID) string { return id.FullyQualifiedName() }

// StoragePath renders the projects/P/datasets/D/tables/T path handed to the
// streaming read and write APIs.
func StoragePath(id domain.TableID) string { return id.StoragePath() }

// ProjectID returns the warehouse connection's active project.
func (c *Client) ProjectID() string { return c.svc.ProjectID() }

// GetTable returns the table descriptor, or nil when the table does not exist.
func (c *Client) GetTable(ctx context.Context, id domain.TableID) (*domain.TableInfo, error) {
	info, err := c.svc.GetTable(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get table %s: %w", id, err)
	}
	return info, nil
}

// TableExists reports whether the table exists.
func (c *Client) TableExists(ctx context.Context, id domain.TableID) (bool, error) {
	info, err := c.GetTable(ctx, id)
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

// Query runs sql synchronously and returns its rows.
func (c *Client) Query(ctx context.Context, sql string) (*domain.QueryResult, error) {
	res, err := c.svc.RunQuery(ctx, sql)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &domain.InterruptedError{Err: err}
		}
		return nil, fmt.Errorf("failed to run the query [%s]: %w", sql, err)
	}
	return res, nil
}

// WaitForJob blocks until job finishes, using the strict policy: 1 second
// initial backoff and a 3 minute ceiling unless Config.WaitTimeout says
// otherwise.
func (c *Client) WaitForJob(ctx context.Context, job domain.Job) (*domain.JobStatus, error) {
	policy := jobwait.Strict()
	if c.cfg.WaitTimeout > 0 {
		policy = jobwait.WithTimeout(policy, c.cfg.WaitTimeout)
	}
	return c.wait(ctx, job, policy)
}

func (c *Client) wait(ctx context.Context, job domain.Job, policy domain.RetryPolicy) (*domain.JobStatus, error) {
	status, err := c.svc.WaitForJob(ctx, job, policy)
	return jobwait.Check(job, status, err)
}

// CreateAndWaitFor submits a job and waits for it without a timeout.
func (c *Client) CreateAndWaitFor(ctx context.Context, spec domain.JobSpec) (domain.Job, error) {
	job, err := c.svc.SubmitJob(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("submit job: %w", err)
	}
	c.logger.Info("submitted job", "job_id", job.ID(), "query", spec.Query)

	if _, err := c.wait(ctx, job, jobwait.Unbounded()); err != nil {
		return job, err
	}
	return job, nil
}

// SelectSQL builds a projection over table; see sqlgen.Select.
func (c *Client) SelectSQL(table domain.TableID, columns []string, filters []string) string {
	return sqlgen.Select(table, columns, filters)
}

// SelectExprSQL builds a query with a preformatted projection; see sqlgen.SelectExpr.
func (c *Client) SelectExprSQL(table domain.TableID, expr string, filters []string) string {
	return sqlgen.SelectExpr(table, expr, filters)
}

// ListDatasets lists the datasets of project.
func (c *Client) ListDatasets(ctx context.Context, project string) ([]domain.DatasetID, error) {
	ds, err := c.svc.ListDatasets(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("list datasets of %q: %w", project, err)
	}
	return ds, nil
}

// ListTables lists the tables of dataset whose kind is one of kinds. With no
// kinds every table is returned.
func (c *Client) ListTables(ctx context.Context, dataset domain.DatasetID, kinds ...domain.TableKind) ([]*domain.TableInfo, error) {
	all, err := c.svc.ListTables(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("list tables of %s: %w", dataset, err)
	}
	if len(kinds) == 0 {
		return all, nil
	}
	allowed := make(map[domain.TableKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	out := make([]*domain.TableInfo, 0, len(all))
	for _, t := range all {
		if allowed[t.Kind] {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListAllTables lists matching tables across every dataset of project,
// querying datasets concurrently. Results keep dataset order.
func (c *Client) ListAllTables(ctx context.Context, project string, kinds ...domain.TableKind) ([]*domain.TableInfo, error) {
	datasets, err := c.ListDatasets(ctx, project)
	if err != nil {
		return nil, err
	}

	perDataset := make([][]*domain.TableInfo, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)

	for i := range datasets {
		ds := datasets[i]
		g.Go(func() error {
			tables, err := c.ListTables(gctx, ds, kinds...)
			if err != nil {
				return err
			}
			perDataset[i] = tables
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*domain.TableInfo
	for _, tables := range perDataset {
		out = append(out, tables...)
	}
	return out, nil
}

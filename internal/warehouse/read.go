package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bq-bridge/internal/domain"
	"bq-bridge/internal/jobwait"
)

// materializationLabel tags the query jobs that materialize views and queries.
const materializationLabel = "bqbridge-materialization"

// GetReadTable resolves a read request to a readable table descriptor.
//
//  1. A query is materialized into a table (views must be enabled).
//  2. A missing table returns nil without error.
//  3. Tables and external tables are returned as-is.
//  4. Views and materialized views are returned as-is once views are known
//     to be enabled; the reader materializes them lazily.
//  5. Anything else is unsupported.
func (c *Client) GetReadTable(ctx context.Context, opts domain.ReadTableOptions) (*domain.TableInfo, error) {
	if opts.HasQuery() {
		if !opts.ViewsEnabled {
			return nil, domain.ErrViewsDisabled(opts.ViewsEnabledParamName)
		}
		return c.MaterializeQueryToTable(ctx, opts.Query, opts.ExpirationMinutes)
	}

	table, err := c.GetTable(ctx, opts.TableID)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, nil
	}

	switch {
	case table.Kind.IsDirectlyReadable():
		return table, nil
	case table.Kind.IsView():
		if !opts.ViewsEnabled {
			return nil, domain.ErrViewsDisabled(opts.ViewsEnabledParamName)
		}
		return table, nil
	default:
		return nil, domain.ErrUnsupportedKind(table.Kind, table.ID)
	}
}

// MaterializeQueryToTable runs sql into a new table in the materialization
// location and returns the table, which expires expirationMinutes after it
// was created. A non-positive expirationMinutes leaves the dataset's default
// expiration in place. Concurrent calls with identical sql share one job.
func (c *Client) MaterializeQueryToTable(ctx context.Context, sql string, expirationMinutes int) (*domain.TableInfo, error) {
	return c.materialize(ctx, sql, domain.DatasetID{}, expirationMinutes)
}

// MaterializeViewToTable is MaterializeQueryToTable for a view's query: when
// no materialization location is configured, the table lands next to the view.
func (c *Client) MaterializeViewToTable(ctx context.Context, sql string, viewID domain.TableID, expirationMinutes int) (*domain.TableInfo, error) {
	return c.materialize(ctx, sql, viewID.DatasetID(), expirationMinutes)
}

// destinationTable returns a fresh random table in the materialization
// location, falling back to ref.
func (c *Client) destinationTable(ref domain.DatasetID) (domain.TableID, error) {
	project := c.cfg.MaterializationProject
	if project == "" {
		project = ref.Project
	}
	dataset := c.cfg.MaterializationDataset
	if dataset == "" {
		dataset = ref.Dataset
	}
	if dataset == "" {
		return domain.TableID{}, domain.ErrValidation("materialization dataset is not configured")
	}
	return domain.TableID{Project: project, Dataset: dataset, Table: domain.NewDestinationTableName()}, nil
}

func (c *Client) materialize(ctx context.Context, sql string, ref domain.DatasetID, expirationMinutes int) (*domain.TableInfo, error) {
	info, err := c.cache.GetOrCompute(ctx, sql, func(ctx context.Context) (*domain.TableInfo, error) {
		dest, err := c.destinationTable(ref)
		if err != nil {
			return nil, err
		}
		return c.createTableFromQuery(ctx, sql, dest, expirationMinutes)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			var ie *domain.InterruptedError
			if !errors.As(err, &ie) {
				err = &domain.InterruptedError{Err: err}
			}
		}
		return nil, &domain.MaterializationError{SQL: sql, Err: err}
	}
	return info, nil
}

func (c *Client) createTableFromQuery(ctx context.Context, sql string, dest domain.TableID, expirationMinutes int) (*domain.TableInfo, error) {
	c.logger.Debug("materializing query", "destination", dest.FullyQualifiedName())

	job, err := c.svc.SubmitJob(ctx, domain.JobSpec{
		Query:       sql,
		Destination: &dest,
		Labels:      map[string]string{materializationLabel: "true"},
	})
	if err != nil {
		return nil, fmt.Errorf("submit materialization job: %w", err)
	}
	if _, err := c.wait(ctx, job, jobwait.Unbounded()); err != nil {
		return nil, err
	}
	c.logger.Debug("materialization job finished", "job_id", job.ID(), "destination", dest.FullyQualifiedName())

	created, err := c.svc.GetTable(ctx, dest)
	if err != nil {
		return nil, fmt.Errorf("get materialized table %s: %w", dest, err)
	}
	if created == nil {
		return nil, &domain.RemoteJobError{
			JobID: job.ID(),
			Err:   fmt.Errorf("job finished but destination table %s does not exist", dest),
		}
	}

	if expirationMinutes <= 0 {
		return created, nil
	}
	withExpiry := created.Clone()
	withExpiry.ExpirationTime = created.CreationTime.Add(time.Duration(expirationMinutes) * time.Minute)
	updated, err := c.svc.UpdateTable(ctx, withExpiry)
	if err != nil {
		return nil, fmt.Errorf("set expiration on %s: %w", dest, err)
	}
	return updated, nil
}

package warehouse

import (
	"context"
	"fmt"
	"time"

	"bq-bridge/internal/domain"
	"bq-bridge/internal/sqlgen"
)

// TempTableTTL is how long temporary overwrite tables live before the
// warehouse deletes them.
const TempTableTTL = 24 * time.Hour

// CreateTable creates an empty plain table. Creating an existing table fails
// with the service's conflict error.
func (c *Client) CreateTable(ctx context.Context, id domain.TableID, schema domain.Schema) (*domain.TableInfo, error) {
	created, err := c.svc.CreateTable(ctx, &domain.TableInfo{
		ID:     id,
		Kind:   domain.TableKindTable,
		Schema: schema,
	})
	if err != nil {
		return nil, fmt.Errorf("create table %s: %w", id, err)
	}
	return created, nil
}

// TempTableID returns the identity a temporary table for destination gets:
// the materialization location (or the destination's own), named after the
// destination with a strictly increasing nanosecond suffix.
func (c *Client) TempTableID(destination domain.TableID) domain.TableID {
	project := c.cfg.MaterializationProject
	if project == "" {
		project = destination.Project
	}
	dataset := c.cfg.MaterializationDataset
	if dataset == "" {
		dataset = destination.Dataset
	}
	return domain.TableID{
		Project: project,
		Dataset: dataset,
		Table:   domain.TempTableName(destination.Table),
	}
}

// CreateTempTable creates a table that holds data bound for destination and
// expires one day from now. Temporary tables are never deleted explicitly;
// the warehouse drops them when they expire.
func (c *Client) CreateTempTable(ctx context.Context, destination domain.TableID, schema domain.Schema) (*domain.TableInfo, error) {
	id := c.TempTableID(destination)
	created, err := c.svc.CreateTable(ctx, &domain.TableInfo{
		ID:             id,
		Kind:           domain.TableKindTable,
		Schema:         schema,
		ExpirationTime: c.now().Add(TempTableTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("create temporary table %s: %w", id, err)
	}
	c.logger.Debug("created temporary table", "table", id.FullyQualifiedName(), "destination", destination.FullyQualifiedName())
	return created, nil
}

// DeleteTable deletes the table. It returns false, without error, when the
// table was already gone.
func (c *Client) DeleteTable(ctx context.Context, id domain.TableID) (bool, error) {
	deleted, err := c.svc.DeleteTable(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete table %s: %w", id, err)
	}
	return deleted, nil
}

// Update pushes the full descriptor back to the warehouse. The last write wins.
func (c *Client) Update(ctx context.Context, info *domain.TableInfo) (*domain.TableInfo, error) {
	updated, err := c.svc.UpdateTable(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("update table %s: %w", info.ID, err)
	}
	return updated, nil
}

// OverwriteDestinationWithTemporary submits the MERGE that replaces every row
// of destination with the rows of temporary, and returns the pending job.
// The caller waits on it with WaitForJob.
func (c *Client) OverwriteDestinationWithTemporary(ctx context.Context, temporary, destination domain.TableID) (domain.Job, error) {
	sql := sqlgen.OverwriteMerge(destination, temporary)
	job, err := c.svc.SubmitJob(ctx, domain.JobSpec{Query: sql})
	if err != nil {
		return nil, fmt.Errorf("submit overwrite of %s from %s: %w", destination, temporary, err)
	}
	c.logger.Info("submitted overwrite", "job_id", job.ID(), "destination", destination.FullyQualifiedName(), "temporary", temporary.FullyQualifiedName())
	return job, nil
}

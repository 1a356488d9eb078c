// Package bigquery implements domain.WarehouseService on top of the BigQuery
// API client.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"golang.org/x/time/rate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"bq-bridge/internal/domain"
	"bq-bridge/internal/jobwait"
)

var _ domain.WarehouseService = (*Service)(nil)

// Config configures the BigQuery connection.
type Config struct {
	ProjectID       string
	Location        string
	CredentialsFile string
	// SubmitRPS throttles job submissions per second. Zero disables throttling.
	SubmitRPS float64
}

// Service talks to BigQuery.
type Service struct {
	client  *bigquery.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New opens a BigQuery client for cfg.ProjectID.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Service, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, cfg.CredentialsFile))
	}
	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	if cfg.Location != "" {
		client.Location = cfg.Location
	}
	return NewFromClient(client, cfg.SubmitRPS, logger), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *bigquery.Client, submitRPS float64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{client: client, logger: logger}
	if submitRPS > 0 {
		burst := int(submitRPS)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(submitRPS), burst)
	}
	return s
}

// Close releases the underlying client.
func (s *Service) Close() error { return s.client.Close() }

// ProjectID returns the client's project.
func (s *Service) ProjectID() string { return s.client.Project() }

func (s *Service) table(id domain.TableID) *bigquery.Table {
	if id.Project == "" {
		return s.client.Dataset(id.Dataset).Table(id.Table)
	}
	return s.client.DatasetInProject(id.Project, id.Dataset).Table(id.Table)
}

// GetTable fetches table metadata.
func (s *Service) GetTable(ctx context.Context, id domain.TableID) (*domain.TableInfo, error) {
	md, err := s.table(id).Metadata(ctx)
	if err != nil {
		return nil, mapError(err, "table %s", id)
	}
	return toTableInfo(id.WithProject(s.client.Project()), md), nil
}

// CreateTable creates the table and returns its server-side metadata.
func (s *Service) CreateTable(ctx context.Context, info *domain.TableInfo) (*domain.TableInfo, error) {
	md := &bigquery.TableMetadata{
		Schema:         toBigQuerySchema(info.Schema),
		ExpirationTime: info.ExpirationTime,
		Labels:         info.Labels,
		ViewQuery:      info.ViewQuery,
	}
	if err := s.table(info.ID).Create(ctx, md); err != nil {
		return nil, mapError(err, "table %s", info.ID)
	}
	return s.GetTable(ctx, info.ID)
}

// DeleteTable deletes the table; false means it did not exist.
func (s *Service) DeleteTable(ctx context.Context, id domain.TableID) (bool, error) {
	if err := s.table(id).Delete(ctx); err != nil {
		err = mapError(err, "table %s", id)
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UpdateTable writes expiration and labels without an etag precondition.
func (s *Service) UpdateTable(ctx context.Context, info *domain.TableInfo) (*domain.TableInfo, error) {
	md, err := s.table(info.ID).Update(ctx, toMetadataUpdate(info), "")
	if err != nil {
		return nil, mapError(err, "table %s", info.ID)
	}
	return toTableInfo(info.ID.WithProject(s.client.Project()), md), nil
}

// SubmitJob starts a query job.
func (s *Service) SubmitJob(ctx context.Context, spec domain.JobSpec) (domain.Job, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	q := s.client.Query(spec.Query)
	q.UseLegacySQL = spec.UseLegacySQL
	q.Labels = spec.Labels
	if spec.Destination != nil {
		q.Dst = s.table(*spec.Destination)
	}
	job, err := q.Run(ctx)
	if err != nil {
		return nil, mapError(err, "query job")
	}
	s.logger.Debug("job submitted", "job_id", job.ID(), "location", job.Location())
	return &queryJob{job: job}, nil
}

// WaitForJob polls the job until it is done.
func (s *Service) WaitForJob(ctx context.Context, job domain.Job, policy domain.RetryPolicy) (*domain.JobStatus, error) {
	return jobwait.Poll(ctx, job, policy)
}

// RunQuery runs sql and reads every row.
func (s *Service) RunQuery(ctx context.Context, sql string) (*domain.QueryResult, error) {
	it, err := s.client.Query(sql).Read(ctx)
	if err != nil {
		return nil, mapError(err, "query")
	}
	res := &domain.QueryResult{}
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, mapError(err, "read query results")
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}
		res.Rows = append(res.Rows, values)
	}
	for _, f := range it.Schema {
		res.Columns = append(res.Columns, f.Name)
	}
	return res, nil
}

// ListDatasets lists datasets of project, or of the client's project when empty.
func (s *Service) ListDatasets(ctx context.Context, project string) ([]domain.DatasetID, error) {
	it := s.client.Datasets(ctx)
	if project != "" {
		it.ProjectID = project
	}
	var out []domain.DatasetID
	for {
		ds, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, mapError(err, "datasets of %q", project)
		}
		out = append(out, domain.DatasetID{Project: ds.ProjectID, Dataset: ds.DatasetID})
	}
}

// ListTables lists tables of dataset with their metadata. Listing does not
// report the table kind, so each table's metadata is fetched.
func (s *Service) ListTables(ctx context.Context, dataset domain.DatasetID) ([]*domain.TableInfo, error) {
	ds := s.client.Dataset(dataset.Dataset)
	if dataset.Project != "" {
		ds = s.client.DatasetInProject(dataset.Project, dataset.Dataset)
	}
	it := ds.Tables(ctx)
	var out []*domain.TableInfo
	for {
		t, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, mapError(err, "tables of %s", dataset)
		}
		md, err := t.Metadata(ctx)
		if err != nil {
			if domain.IsNotFound(mapError(err, "table")) {
				continue // dropped while listing
			}
			return nil, mapError(err, "table %s.%s", t.DatasetID, t.TableID)
		}
		out = append(out, toTableInfo(domain.NewTableID(t.ProjectID, t.DatasetID, t.TableID), md))
	}
}

// queryJob adapts *bigquery.Job to domain.Job.
type queryJob struct {
	job *bigquery.Job
}

func (j *queryJob) ID() string { return j.job.ID() }

func (j *queryJob) Status(ctx context.Context) (*domain.JobStatus, error) {
	st, err := j.job.Status(ctx)
	if err != nil {
		return nil, mapError(err, "job %s", j.job.ID())
	}
	return toJobStatus(st), nil
}

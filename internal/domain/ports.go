package domain

import "context"

// WarehouseService is the remote table service the client orchestrates.
// Implemented by bigquery.Service.
type WarehouseService interface {
	// ProjectID returns the active project.
	ProjectID() string

	// GetTable returns the table descriptor, or a *NotFoundError.
	GetTable(ctx context.Context, id TableID) (*TableInfo, error)
	CreateTable(ctx context.Context, info *TableInfo) (*TableInfo, error)
	// DeleteTable returns false when the table did not exist.
	DeleteTable(ctx context.Context, id TableID) (bool, error)
	UpdateTable(ctx context.Context, info *TableInfo) (*TableInfo, error)

	SubmitJob(ctx context.Context, spec JobSpec) (Job, error)
	WaitForJob(ctx context.Context, job Job, policy RetryPolicy) (*JobStatus, error)
	RunQuery(ctx context.Context, sql string) (*QueryResult, error)

	ListDatasets(ctx context.Context, project string) ([]DatasetID, error)
	ListTables(ctx context.Context, dataset DatasetID) ([]*TableInfo, error)
}

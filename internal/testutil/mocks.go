// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"sync"

	"bq-bridge/internal/domain"
)

// === Job Mock ===

// MockJob implements domain.Job. Status returns Statuses in order and keeps
// returning the last one once they run out.
type MockJob struct {
	JobID    string
	Statuses []*domain.JobStatus
	StatusFn func(ctx context.Context) (*domain.JobStatus, error)

	mu    sync.Mutex
	polls int
}

// ID implements the interface method for testing.
func (m *MockJob) ID() string { return m.JobID }

// Status implements the interface method for testing.
func (m *MockJob) Status(ctx context.Context) (*domain.JobStatus, error) {
	m.mu.Lock()
	m.polls++
	idx := m.polls - 1
	m.mu.Unlock()

	if m.StatusFn != nil {
		return m.StatusFn(ctx)
	}
	if len(m.Statuses) == 0 {
		return &domain.JobStatus{State: domain.JobStateDone}, nil
	}
	if idx >= len(m.Statuses) {
		idx = len(m.Statuses) - 1
	}
	return m.Statuses[idx], nil
}

// Polls returns how many times Status was called.
func (m *MockJob) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

// DoneJob returns a MockJob that reports success on the first poll.
func DoneJob(id string) *MockJob {
	return &MockJob{JobID: id, Statuses: []*domain.JobStatus{{State: domain.JobStateDone}}}
}

// === Warehouse Mock ===

// MockWarehouse implements domain.WarehouseService for testing. Methods
// without a configured Fn panic, so a test fails loudly on any remote call
// it did not expect.
type MockWarehouse struct {
	Project string

	GetTableFn     func(ctx context.Context, id domain.TableID) (*domain.TableInfo, error)
	CreateTableFn  func(ctx context.Context, info *domain.TableInfo) (*domain.TableInfo, error)
	DeleteTableFn  func(ctx context.Context, id domain.TableID) (bool, error)
	UpdateTableFn  func(ctx context.Context, info *domain.TableInfo) (*domain.TableInfo, error)
	SubmitJobFn    func(ctx context.Context, spec domain.JobSpec) (domain.Job, error)
	WaitForJobFn   func(ctx context.Context, job domain.Job, policy domain.RetryPolicy) (*domain.JobStatus, error)
	RunQueryFn     func(ctx context.Context, sql string) (*domain.QueryResult, error)
	ListDatasetsFn func(ctx context.Context, project string) ([]domain.DatasetID, error)
	ListTablesFn   func(ctx context.Context, dataset domain.DatasetID) ([]*domain.TableInfo, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockWarehouse) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

// Calls returns the names of the methods invoked so far, in order.
func (m *MockWarehouse) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many times the named method was invoked.
func (m *MockWarehouse) CallCount(name string) int {
	n := 0
	for _, c := range m.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

// ProjectID implements the interface method for testing.
func (m *MockWarehouse) ProjectID() string { return m.Project }

// GetTable implements the interface method for testing.
func (m *MockWarehouse) GetTable(ctx context.Context, id domain.TableID) (*domain.TableInfo, error) {
	m.record("GetTable")
	if m.GetTableFn != nil {
		return m.GetTableFn(ctx, id)
	}
	panic("unexpected call to MockWarehouse.GetTable")
}

// CreateTable implements the interface method for testing.
func (m *MockWarehouse) CreateTable(ctx context.Context, info *domain.TableInfo) (*domain.TableInfo, error) {
	m.record("CreateTable")
	if m.CreateTableFn != nil {
		return m.CreateTableFn(ctx, info)
	}
	panic("unexpected call to MockWarehouse.CreateTable")
}

// DeleteTable implements the interface method for testing.
func (m *MockWarehouse) DeleteTable(ctx context.Context, id domain.TableID) (bool, error) {
	m.record("DeleteTable")
	if m.DeleteTableFn != nil {
		return m.DeleteTableFn(ctx, id)
	}
	panic("unexpected call to MockWarehouse.DeleteTable")
}

// UpdateTable implements the interface method for testing.
func (m *MockWarehouse) UpdateTable(ctx context.Context, info *domain.TableInfo) (*domain.TableInfo, error) {
	m.record("UpdateTable")
	if m.UpdateTableFn != nil {
		return m.UpdateTableFn(ctx, info)
	}
	panic("unexpected call to MockWarehouse.UpdateTable")
}

// SubmitJob implements the interface method for testing.
func (m *MockWarehouse) SubmitJob(ctx context.Context, spec domain.JobSpec) (domain.Job, error) {
	m.record("SubmitJob")
	if m.SubmitJobFn != nil {
		return m.SubmitJobFn(ctx, spec)
	}
	panic("unexpected call to MockWarehouse.SubmitJob")
}

// WaitForJob implements the interface method for testing. Without a
// configured Fn it reads the job's status once.
func (m *MockWarehouse) WaitForJob(ctx context.Context, job domain.Job, policy domain.RetryPolicy) (*domain.JobStatus, error) {
	m.record("WaitForJob")
	if m.WaitForJobFn != nil {
		return m.WaitForJobFn(ctx, job, policy)
	}
	return job.Status(ctx)
}

// RunQuery implements the interface method for testing.
func (m *MockWarehouse) RunQuery(ctx context.Context, sql string) (*domain.QueryResult, error) {
	m.record("RunQuery")
	if m.RunQueryFn != nil {
		return m.RunQueryFn(ctx, sql)
	}
	panic("unexpected call to MockWarehouse.RunQuery")
}

// ListDatasets implements the interface method for testing.
func (m *MockWarehouse) ListDatasets(ctx context.Context, project string) ([]domain.DatasetID, error) {
	m.record("ListDatasets")
	if m.ListDatasetsFn != nil {
		return m.ListDatasetsFn(ctx, project)
	}
	panic("unexpected call to MockWarehouse.ListDatasets")
}

// ListTables implements the interface method for testing.
func (m *MockWarehouse) ListTables(ctx context.Context, dataset domain.DatasetID) ([]*domain.TableInfo, error) {
	m.record("ListTables")
	if m.ListTablesFn != nil {
		return m.ListTablesFn(ctx, dataset)
	}
	panic("unexpected call to MockWarehouse.ListTables")
}

var _ domain.WarehouseService = (*MockWarehouse)(nil)
var _ domain.Job = (*MockJob)(nil)

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bq-bridge/internal/domain"
	"bq-bridge/internal/testutil"
)

var created = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func ordersTable() *domain.TableInfo {
	return &domain.TableInfo{
		ID:           domain.NewTableID("proj", "analytics", "orders"),
		Kind:         domain.TableKindTable,
		NumRows:      42,
		CreationTime: created,
		Location:     "EU",
		Schema: domain.Schema{
			{Name: "id", Type: "INTEGER", Required: true},
			{Name: "customer", Type: "RECORD", Fields: domain.Schema{{Name: "email", Type: "STRING"}}},
		},
	}
}

func TestDescribe(t *testing.T) {
	mock := &testutil.MockWarehouse{
		Project: "proj",
		GetTableFn: func(_ context.Context, id domain.TableID) (*domain.TableInfo, error) {
			assert.Equal(t, "analytics.orders", id.FullyQualifiedName())
			return ordersTable(), nil
		},
	}

	t.Run("table", func(t *testing.T) {
		out, err := runCLI(t, mock, "describe", "analytics.orders")
		require.NoError(t, err)
		assert.Contains(t, out, "proj.analytics.orders")
		assert.Contains(t, out, "TABLE")
		assert.Contains(t, out, "customer.email")
		assert.Contains(t, out, "REQUIRED")
	})

	t.Run("json", func(t *testing.T) {
		out, err := runCLI(t, mock, "describe", "analytics.orders", "-o", "json")
		require.NoError(t, err)
		var view tableView
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, "TABLE", view.Kind)
		assert.Equal(t, uint64(42), view.NumRows)
		assert.Equal(t, "2026-02-01T12:00:00Z", view.Created)
		assert.Equal(t, "projects/proj/datasets/analytics/tables/orders", view.StorageAPI)
		require.Len(t, view.Columns, 3)
		assert.Equal(t, "NULLABLE", view.Columns[2].Mode)
	})
}

func TestDescribe_NotFound(t *testing.T) {
	mock := &testutil.MockWarehouse{
		GetTableFn: func(_ context.Context, id domain.TableID) (*domain.TableInfo, error) {
			return nil, domain.ErrNotFound("table %s not found", id)
		},
	}
	_, err := runCLI(t, mock, "describe", "analytics.missing")
	assert.True(t, domain.IsNotFound(err))
}

func TestDescribe_InvalidReference(t *testing.T) {
	_, err := runCLI(t, &testutil.MockWarehouse{}, "describe", "just-a-name")
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestSize(t *testing.T) {
	t.Run("row count from metadata", func(t *testing.T) {
		mock := &testutil.MockWarehouse{
			GetTableFn: func(context.Context, domain.TableID) (*domain.TableInfo, error) { return ordersTable(), nil },
		}
		out, err := runCLI(t, mock, "size", "analytics.orders")
		require.NoError(t, err)
		assert.Equal(t, "42\n", out)
		assert.Zero(t, mock.CallCount("RunQuery"))
	})

	t.Run("filtered count", func(t *testing.T) {
		mock := &testutil.MockWarehouse{
			GetTableFn: func(context.Context, domain.TableID) (*domain.TableInfo, error) { return ordersTable(), nil },
			RunQueryFn: func(_ context.Context, sql string) (*domain.QueryResult, error) {
				assert.Equal(t, "SELECT COUNT(*) FROM `proj.analytics.orders` WHERE id > 10", sql)
				return &domain.QueryResult{Columns: []string{"f0_"}, Rows: [][]any{{int64(7)}}}, nil
			},
		}
		out, err := runCLI(t, mock, "size", "analytics.orders", "--filter", "id > 10", "-o", "json")
		require.NoError(t, err)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.InDelta(t, 7, got["rows"], 0)
		assert.Equal(t, "id > 10", got["filter"])
	})
}

func TestMaterialize_ViewsDisabled(t *testing.T) {
	mock := &testutil.MockWarehouse{
		GetTableFn: func(_ context.Context, id domain.TableID) (*domain.TableInfo, error) {
			return &domain.TableInfo{ID: id.WithProject("proj"), Kind: domain.TableKindView}, nil
		},
	}
	_, err := runCLI(t, mock, "materialize", "analytics.orders_view")

	var unsupported *domain.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "VIEWS_ENABLED", unsupported.Param)
	assert.Zero(t, mock.CallCount("SubmitJob"))
}

func TestMaterialize_View(t *testing.T) {
	view := domain.NewTableID("proj", "analytics", "orders_view")
	var submitted domain.JobSpec
	mock := &testutil.MockWarehouse{
		Project: "proj",
		GetTableFn: func(_ context.Context, id domain.TableID) (*domain.TableInfo, error) {
			if id.Table == "orders_view" {
				return &domain.TableInfo{ID: view, Kind: domain.TableKindView}, nil
			}
			return &domain.TableInfo{ID: id, Kind: domain.TableKindTable, CreationTime: created}, nil
		},
		SubmitJobFn: func(_ context.Context, spec domain.JobSpec) (domain.Job, error) {
			submitted = spec
			return testutil.DoneJob("job-1"), nil
		},
		UpdateTableFn: func(_ context.Context, info *domain.TableInfo) (*domain.TableInfo, error) {
			return info, nil
		},
	}

	out, err := runCLI(t, mock, "materialize", "analytics.orders_view",
		"--views-enabled", "--materialization-dataset", "scratch", "--expiration-minutes", "30", "-o", "json")
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM `proj.analytics.orders_view`", submitted.Query)
	require.NotNil(t, submitted.Destination)
	assert.Equal(t, "scratch", submitted.Destination.Dataset)
	assert.True(t, strings.HasPrefix(submitted.Destination.Table, domain.DestinationTablePrefix))

	var got struct {
		Materialized bool      `json:"materialized"`
		Table        tableView `json:"table"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Materialized)
	assert.Equal(t, "2026-02-01T12:30:00Z", got.Table.Expires)
}

func TestMaterialize_PlainTableIsReturnedAsIs(t *testing.T) {
	mock := &testutil.MockWarehouse{
		GetTableFn: func(context.Context, domain.TableID) (*domain.TableInfo, error) { return ordersTable(), nil },
	}
	out, err := runCLI(t, mock, "materialize", "analytics.orders")
	require.NoError(t, err)
	assert.Equal(t, "proj.analytics.orders\n", out)
	assert.Zero(t, mock.CallCount("SubmitJob"))
}

func TestMaterialize_ArgumentValidation(t *testing.T) {
	for _, args := range [][]string{
		{"materialize"},
		{"materialize", "analytics.orders", "--query", "SELECT 1"},
	} {
		_, err := runCLI(t, &testutil.MockWarehouse{}, args...)
		var validation *domain.ValidationError
		assert.ErrorAs(t, err, &validation, "args %v", args)
	}
}

func TestOverwrite(t *testing.T) {
	var mergeSQL string
	mock := &testutil.MockWarehouse{
		SubmitJobFn: func(_ context.Context, spec domain.JobSpec) (domain.Job, error) {
			mergeSQL = spec.Query
			return testutil.DoneJob("merge-1"), nil
		},
		DeleteTableFn: func(_ context.Context, id domain.TableID) (bool, error) {
			assert.Equal(t, "tmp.orders_1", id.FullyQualifiedName())
			return true, nil
		},
	}

	out, err := runCLI(t, mock, "overwrite", "tmp.orders_1", "analytics.orders", "--wait", "--drop-temp", "-o", "json")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(mergeSQL, "MERGE `analytics.orders`\nUSING (SELECT * FROM `tmp.orders_1`)"))
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "merge-1", got["job_id"])
	assert.Equal(t, "DONE", got["state"])
	assert.Equal(t, true, got["temporary_dropped"])
	assert.Equal(t, []string{"SubmitJob", "WaitForJob", "DeleteTable"}, mock.Calls())
}

func TestOverwrite_NoWaitReturnsPendingHandle(t *testing.T) {
	mock := &testutil.MockWarehouse{
		SubmitJobFn: func(context.Context, domain.JobSpec) (domain.Job, error) {
			return testutil.DoneJob("merge-2"), nil
		},
	}
	out, err := runCLI(t, mock, "overwrite", "tmp.a", "analytics.b")
	require.NoError(t, err)
	assert.Contains(t, out, "merge-2")
	assert.Equal(t, []string{"SubmitJob"}, mock.Calls())
}

func TestOverwrite_JobFailure(t *testing.T) {
	mock := &testutil.MockWarehouse{
		SubmitJobFn: func(context.Context, domain.JobSpec) (domain.Job, error) {
			return &testutil.MockJob{JobID: "merge-3", Statuses: []*domain.JobStatus{{
				State: domain.JobStateDone,
				Err:   &domain.JobError{Reason: "invalidQuery", Message: "schema mismatch"},
			}}}, nil
		},
	}
	_, err := runCLI(t, mock, "overwrite", "tmp.a", "analytics.b", "--wait", "--drop-temp")

	var remote *domain.RemoteJobError
	require.ErrorAs(t, err, &remote)
	assert.Zero(t, mock.CallCount("DeleteTable"))
}

func TestOverwrite_DropTempRequiresWait(t *testing.T) {
	_, err := runCLI(t, &testutil.MockWarehouse{}, "overwrite", "tmp.a", "analytics.b", "--drop-temp")
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestDrop(t *testing.T) {
	mock := &testutil.MockWarehouse{
		DeleteTableFn: func(context.Context, domain.TableID) (bool, error) { return false, nil },
	}
	out, err := runCLI(t, mock, "drop", "tmp.gone")
	require.NoError(t, err)
	assert.Equal(t, "tmp.gone did not exist\n", out)
}

func TestDatasets(t *testing.T) {
	mock := &testutil.MockWarehouse{
		ListDatasetsFn: func(_ context.Context, project string) ([]domain.DatasetID, error) {
			assert.Equal(t, "other", project)
			return []domain.DatasetID{{Project: "other", Dataset: "a"}, {Project: "other", Dataset: "b"}}, nil
		},
	}
	out, err := runCLI(t, mock, "datasets", "other")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "DATASET")
	assert.Contains(t, lines[2], "b")
}

func TestTables(t *testing.T) {
	listed := func(_ context.Context, ds domain.DatasetID) ([]*domain.TableInfo, error) {
		return []*domain.TableInfo{
			{ID: domain.NewTableID("proj", ds.Dataset, "t"), Kind: domain.TableKindTable, NumRows: 3},
			{ID: domain.NewTableID("proj", ds.Dataset, "v"), Kind: domain.TableKindView},
		}, nil
	}

	t.Run("one dataset filtered by kind", func(t *testing.T) {
		mock := &testutil.MockWarehouse{ListTablesFn: listed}
		out, err := runCLI(t, mock, "tables", "proj.analytics", "--kind", "view")
		require.NoError(t, err)
		assert.Contains(t, out, "proj.analytics.v")
		assert.NotContains(t, out, "proj.analytics.t ")
	})

	t.Run("every dataset", func(t *testing.T) {
		mock := &testutil.MockWarehouse{
			ListDatasetsFn: func(context.Context, string) ([]domain.DatasetID, error) {
				return []domain.DatasetID{{Project: "proj", Dataset: "a"}, {Project: "proj", Dataset: "b"}}, nil
			},
			ListTablesFn: listed,
		}
		out, err := runCLI(t, mock, "tables", "-o", "json")
		require.NoError(t, err)
		var views []tableView
		require.NoError(t, json.Unmarshal([]byte(out), &views))
		require.Len(t, views, 4)
		assert.Equal(t, "proj.a.t", views[0].Table)
		assert.Equal(t, "proj.b.v", views[3].Table)
	})
}

func TestParseDatasetID(t *testing.T) {
	ds, err := parseDatasetID("analytics")
	require.NoError(t, err)
	assert.Equal(t, domain.DatasetID{Dataset: "analytics"}, ds)

	ds, err = parseDatasetID("p.analytics")
	require.NoError(t, err)
	assert.Equal(t, domain.DatasetID{Project: "p", Dataset: "analytics"}, ds)

	for _, bad := range []string{"", "p.", "a.b.c"} {
		_, err := parseDatasetID(bad)
		assert.Error(t, err, bad)
	}
}

func TestVersionAndConfig(t *testing.T) {
	out, err := runCLI(t, &testutil.MockWarehouse{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "bqbridge version dev")

	out, err = runCLI(t, &testutil.MockWarehouse{}, "--project", "flag-project", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "project: flag-project")
	assert.Contains(t, out, "cache_ttl: 15m0s")
}

func TestUnsupportedOutputFormat(t *testing.T) {
	_, err := runCLI(t, &testutil.MockWarehouse{}, "version", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestErrorObject(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"not found", domain.ErrNotFound("missing"), "NOT_FOUND"},
		{"validation", domain.ErrValidation("bad"), "INVALID_ARGUMENT"},
		{"views disabled", domain.ErrViewsDisabled("VIEWS_ENABLED"), "UNSUPPORTED"},
		{"interrupted", &domain.InterruptedError{JobID: "j", Err: context.Canceled}, "INTERRUPTED"},
		{"remote", &domain.MaterializationError{SQL: "q", Err: &domain.RemoteJobError{JobID: "j", Err: errors.New("x")}}, "JOB_FAILED"},
		{"plain", errors.New("boom"), ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obj := errorObject(tc.err)
			assert.Equal(t, tc.err.Error(), obj["error"])
			if tc.code == "" {
				assert.NotContains(t, obj, "code")
				return
			}
			assert.Equal(t, tc.code, obj["code"])
		})
	}
}

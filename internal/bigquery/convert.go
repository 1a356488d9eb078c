package bigquery

import (
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"bq-bridge/internal/domain"
)

func toTableKind(t bigquery.TableType) domain.TableKind {
	switch t {
	case bigquery.RegularTable:
		return domain.TableKindTable
	case bigquery.ExternalTable:
		return domain.TableKindExternal
	case bigquery.ViewTable:
		return domain.TableKindView
	case bigquery.MaterializedView:
		return domain.TableKindMaterializedView
	default:
		return domain.TableKind(t)
	}
}

func toTableInfo(id domain.TableID, md *bigquery.TableMetadata) *domain.TableInfo {
	return &domain.TableInfo{
		ID:             id,
		Kind:           toTableKind(md.Type),
		NumRows:        md.NumRows,
		CreationTime:   md.CreationTime,
		ExpirationTime: md.ExpirationTime,
		Schema:         toDomainSchema(md.Schema),
		Location:       md.Location,
		ViewQuery:      md.ViewQuery,
		Labels:         md.Labels,
		ETag:           md.ETag,
	}
}

func toDomainSchema(s bigquery.Schema) domain.Schema {
	if s == nil {
		return nil
	}
	out := make(domain.Schema, len(s))
	for i, f := range s {
		out[i] = &domain.Field{
			Name:        f.Name,
			Type:        string(f.Type),
			Repeated:    f.Repeated,
			Required:    f.Required,
			Description: f.Description,
			Fields:      toDomainSchema(f.Schema),
		}
	}
	return out
}

func toBigQuerySchema(s domain.Schema) bigquery.Schema {
	if s == nil {
		return nil
	}
	out := make(bigquery.Schema, len(s))
	for i, f := range s {
		out[i] = &bigquery.FieldSchema{
			Name:        f.Name,
			Type:        bigquery.FieldType(f.Type),
			Repeated:    f.Repeated,
			Required:    f.Required,
			Description: f.Description,
			Schema:      toBigQuerySchema(f.Fields),
		}
	}
	return out
}

func toMetadataUpdate(info *domain.TableInfo) bigquery.TableMetadataToUpdate {
	var u bigquery.TableMetadataToUpdate
	if !info.ExpirationTime.IsZero() {
		u.ExpirationTime = info.ExpirationTime
	}
	for k, v := range info.Labels {
		u.SetLabel(k, v)
	}
	return u
}

func toJobStatus(st *bigquery.JobStatus) *domain.JobStatus {
	if st == nil {
		return nil
	}
	out := &domain.JobStatus{State: toJobState(st.State)}
	if st.Statistics != nil {
		out.StartTime = st.Statistics.StartTime
		out.EndTime = st.Statistics.EndTime
	}
	if err := st.Err(); err != nil {
		out.Err = toJobError(err)
	}
	return out
}

func toJobState(s bigquery.State) domain.JobState {
	switch s {
	case bigquery.Done:
		return domain.JobStateDone
	case bigquery.Running:
		return domain.JobStateRunning
	default:
		return domain.JobStatePending
	}
}

func toJobError(err error) error {
	var bqErr *bigquery.Error
	if errors.As(err, &bqErr) {
		return &domain.JobError{Reason: bqErr.Reason, Location: bqErr.Location, Message: bqErr.Message}
	}
	return err
}

// mapError turns API errors into domain errors; what describes the object.
func mapError(err error, what string, args ...any) error {
	subject := fmt.Sprintf(what, args...)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return domain.ErrNotFound("%s not found: %s", subject, apiErr.Message)
		case http.StatusConflict:
			return domain.ErrConflict("%s already exists: %s", subject, apiErr.Message)
		case http.StatusBadRequest:
			return &domain.ValidationError{Message: fmt.Sprintf("%s: %s", subject, apiErr.Message)}
		}
	}
	return fmt.Errorf("%s: %w", subject, err)
}

package cli

import (
	"strconv"
	"time"

	"bq-bridge/internal/domain"
)

type tableView struct {
	Table      string            `json:"table"`
	Kind       string            `json:"kind"`
	NumRows    uint64            `json:"num_rows"`
	Location   string            `json:"location,omitempty"`
	Created    string            `json:"created,omitempty"`
	Expires    string            `json:"expires,omitempty"`
	ViewQuery  string            `json:"view_query,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
	Columns    []columnView      `json:"columns,omitempty"`
	StorageAPI string            `json:"storage_path"`
}

type columnView struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Mode        string `json:"mode"`
	Description string `json:"description,omitempty"`
}

func newTableView(t *domain.TableInfo) tableView {
	return tableView{
		Table:      t.ID.FullyQualifiedName(),
		Kind:       string(t.Kind),
		NumRows:    t.NumRows,
		Location:   t.Location,
		Created:    formatTime(t.CreationTime),
		Expires:    formatTime(t.ExpirationTime),
		ViewQuery:  t.ViewQuery,
		Labels:     t.Labels,
		Columns:    flattenSchema("", t.Schema),
		StorageAPI: t.ID.StoragePath(),
	}
}

// flattenSchema lists nested record fields with dotted names.
func flattenSchema(prefix string, schema domain.Schema) []columnView {
	var out []columnView
	for _, f := range schema {
		name := prefix + f.Name
		out = append(out, columnView{Name: name, Type: f.Type, Mode: mode(f), Description: f.Description})
		if len(f.Fields) > 0 {
			out = append(out, flattenSchema(name+".", f.Fields)...)
		}
	}
	return out
}

func mode(f *domain.Field) string {
	switch {
	case f.Repeated:
		return "REPEATED"
	case f.Required:
		return "REQUIRED"
	default:
		return "NULLABLE"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (v tableView) detail() map[string]interface{} {
	d := map[string]interface{}{
		"table":    v.Table,
		"kind":     v.Kind,
		"num_rows": strconv.FormatUint(v.NumRows, 10),
		"location": v.Location,
		"created":  v.Created,
		"expires":  v.Expires,
	}
	if v.ViewQuery != "" {
		d["view_query"] = v.ViewQuery
	}
	if len(v.Labels) > 0 {
		d["labels"] = v.Labels
	}
	return d
}

func (v tableView) columnRows() [][]string {
	rows := make([][]string, len(v.Columns))
	for i, c := range v.Columns {
		rows[i] = []string{c.Name, c.Type, c.Mode, c.Description}
	}
	return rows
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// TableID identifies a table. An empty Project means the active project of
// the warehouse connection.
type TableID struct {
	Project string `json:"project,omitempty" yaml:"project,omitempty"`
	Dataset string `json:"dataset" yaml:"dataset"`
	Table   string `json:"table" yaml:"table"`
}

// NewTableID returns a TableID in the given project.
func NewTableID(project, dataset, table string) TableID {
	return TableID{Project: project, Dataset: dataset, Table: table}
}

// FullyQualifiedName renders project.dataset.table, or dataset.table when no
// project is set. Names are not escaped.
func (t TableID) FullyQualifiedName() string {
	if t.Project == "" {
		return t.Dataset + "." + t.Table
	}
	return t.Project + "." + t.Dataset + "." + t.Table
}

// String implements fmt.Stringer.
func (t TableID) String() string { return t.FullyQualifiedName() }

// StoragePath renders the projects/P/datasets/D/tables/T form used by the
// storage read and write streaming APIs.
func (t TableID) StoragePath() string {
	return fmt.Sprintf("projects/%s/datasets/%s/tables/%s", t.Project, t.Dataset, t.Table)
}

// DatasetID returns the dataset containing the table.
func (t TableID) DatasetID() DatasetID {
	return DatasetID{Project: t.Project, Dataset: t.Dataset}
}

// WithProject returns a copy with Project set when it is empty.
func (t TableID) WithProject(project string) TableID {
	if t.Project == "" {
		t.Project = project
	}
	return t
}

// ParseTableID parses "dataset.table" or "project.dataset.table".
func ParseTableID(s string) (TableID, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	for _, p := range parts {
		if p == "" {
			return TableID{}, ErrValidation("invalid table reference %q", s)
		}
	}
	switch len(parts) {
	case 2:
		return TableID{Dataset: parts[0], Table: parts[1]}, nil
	case 3:
		return TableID{Project: parts[0], Dataset: parts[1], Table: parts[2]}, nil
	default:
		return TableID{}, ErrValidation("invalid table reference %q: expected dataset.table or project.dataset.table", s)
	}
}

// DatasetID identifies a dataset.
type DatasetID struct {
	Project string `json:"project,omitempty"`
	Dataset string `json:"dataset"`
}

func (d DatasetID) String() string {
	if d.Project == "" {
		return d.Dataset
	}
	return d.Project + "." + d.Dataset
}

// TableKind is the definition kind reported by the warehouse.
type TableKind string

// Known table kinds. Any other value is carried verbatim and is unsupported.
const (
	TableKindTable            TableKind = "TABLE"
	TableKindExternal         TableKind = "EXTERNAL"
	TableKindView             TableKind = "VIEW"
	TableKindMaterializedView TableKind = "MATERIALIZED_VIEW"
)

// IsDirectlyReadable reports whether rows can be streamed without materialization.
func (k TableKind) IsDirectlyReadable() bool {
	switch k {
	case TableKindTable, TableKindExternal:
		return true
	default:
		return false
	}
}

// IsView reports whether the kind must be materialized before it can be read.
func (k TableKind) IsView() bool {
	switch k {
	case TableKindView, TableKindMaterializedView:
		return true
	default:
		return false
	}
}

// Field is one column of a table schema.
type Field struct {
	Name        string
	Type        string
	Repeated    bool
	Required    bool
	Description string
	Fields      Schema
}

// Schema is an ordered list of fields.
type Schema []*Field

// TableInfo is a metadata snapshot of a remote table.
type TableInfo struct {
	ID             TableID
	Kind           TableKind
	NumRows        uint64
	CreationTime   time.Time
	ExpirationTime time.Time
	Schema         Schema
	Location       string
	ViewQuery      string
	Labels         map[string]string
	ETag           string
}

// Clone returns a shallow copy safe for modifying top-level fields.
func (t *TableInfo) Clone() *TableInfo {
	if t == nil {
		return nil
	}
	c := *t
	if t.Labels != nil {
		c.Labels = make(map[string]string, len(t.Labels))
		for k, v := range t.Labels {
			c.Labels[k] = v
		}
	}
	return &c
}

// ReadTableOptions is a resolved read request: either a table or an ad-hoc
// query, plus the policy for materializing views.
type ReadTableOptions struct {
	TableID               TableID
	Query                 string
	ViewsEnabled          bool
	ViewsEnabledParamName string
	ExpirationMinutes     int
}

// HasQuery reports whether the request carries a query instead of a table.
func (o ReadTableOptions) HasQuery() bool {
	return strings.TrimSpace(o.Query) != ""
}

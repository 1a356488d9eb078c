package sqlgen

import (
	"fmt"
	"strings"

	"bq-bridge/internal/domain"
)

const overwriteMergeFormat = "MERGE %s\n" +
	"USING (SELECT * FROM %s)\n" +
	"ON FALSE\n" +
	"WHEN NOT MATCHED THEN INSERT ROW\n" +
	"WHEN NOT MATCHED BY SOURCE THEN DELETE"

// WhereClause joins filters as (f1) AND (f2) AND ..., keeping their order.
// It returns "" when there are no filters.
func WhereClause(filters []string) string {
	if len(filters) == 0 {
		return ""
	}
	return "(" + strings.Join(filters, ") AND (") + ")"
}

// Select returns SELECT <columns> FROM <table> [WHERE ...]. An empty column
// list selects every column.
func Select(table domain.TableID, columns []string, filters []string) string {
	projection := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = QuoteIdentifier(c)
		}
		projection = strings.Join(quoted, ",")
	}
	return SelectExpr(table, projection, filters)
}

// SelectExpr is Select with a preformatted projection such as COUNT(*) or SUM(x).
func SelectExpr(table domain.TableID, expr string, filters []string) string {
	stmt := fmt.Sprintf("SELECT %s FROM %s", expr, TableRef(table))
	if where := WhereClause(filters); where != "" {
		stmt += " WHERE " + where
	}
	return stmt
}

// Count returns SELECT COUNT(*) FROM <table> [WHERE filter].
func Count(table domain.TableID, filter string) string {
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s", TableRef(table))
	if strings.TrimSpace(filter) != "" {
		stmt += " WHERE " + filter
	}
	return stmt
}

// OverwriteMerge returns a single MERGE statement that replaces every row of
// destination with the rows of source. The join predicate is always false, so
// every source row is inserted and every destination row is deleted in one
// server-side transaction.
func OverwriteMerge(destination, source domain.TableID) string {
	return fmt.Sprintf(overwriteMergeFormat, TableRef(destination), TableRef(source))
}

// Package sqlgen builds the GoogleSQL statements the warehouse client submits:
// projections, row counts, and the MERGE used for transactional overwrites.
package sqlgen

import (
	"strings"

	"bq-bridge/internal/domain"
)

// QuoteIdentifier wraps a column name in backticks, escaping embedded
// backticks and backslashes.
func QuoteIdentifier(name string) string {
	name = strings.ReplaceAll(name, `\`, `\\`)
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

// TableRef renders a table as a single backtick-quoted path.
func TableRef(id domain.TableID) string {
	return "`" + id.FullyQualifiedName() + "`"
}

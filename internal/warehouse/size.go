package warehouse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"bq-bridge/internal/domain"
	"bq-bridge/internal/sqlgen"
)

// CalculateTableSize returns the number of rows in the table, restricted by
// filter when it is non-empty.
func (c *Client) CalculateTableSize(ctx context.Context, id domain.TableID, filter string) (int64, error) {
	info, err := c.GetTable(ctx, id)
	if err != nil {
		return 0, err
	}
	if info == nil {
		return 0, domain.ErrNotFound("table %s not found", id)
	}
	return c.CalculateTableSizeOf(ctx, info, filter)
}

// CalculateTableSizeOf is CalculateTableSize for a descriptor already in
// hand. Unfiltered plain tables use the descriptor's row count; views and
// filtered tables run a COUNT(*) query.
func (c *Client) CalculateTableSizeOf(ctx context.Context, info *domain.TableInfo, filter string) (int64, error) {
	if info == nil {
		return 0, domain.ErrNotFound("cannot size a missing table")
	}
	filter = strings.TrimSpace(filter)
	switch {
	case info.Kind == domain.TableKindTable && filter == "":
		return int64(info.NumRows), nil
	case info.Kind == domain.TableKindTable, info.Kind.IsView():
		res, err := c.Query(ctx, sqlgen.Count(info.ID, filter))
		if err != nil {
			return 0, err
		}
		return scalarInt64(res)
	default:
		return 0, domain.ErrValidation("Unsupported table type %s for table %s", info.Kind, info.ID.FullyQualifiedName())
	}
}

func scalarInt64(res *domain.QueryResult) (int64, error) {
	if res == nil || len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return 0, fmt.Errorf("count query returned no rows")
	}
	switch v := res.Rows[0][0].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse count %q: %w", v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected count value of type %T", v)
	}
}

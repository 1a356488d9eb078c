package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bq-bridge/internal/domain"
)

func newDescribeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <[project.]dataset.table>",
		Short: "Show a table's kind, size, expiration and schema",
		Example: `  bqbridge describe analytics.orders
  bqbridge describe my-project.analytics.orders_view --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTableID(args[0])
			if err != nil {
				return err
			}
			a, err := s.App(cmd.Context())
			if err != nil {
				return err
			}
			table, err := a.Warehouse.GetTable(cmd.Context(), id)
			if err != nil {
				return err
			}
			if table == nil {
				return domain.ErrNotFound("table %s not found", id)
			}

			view := newTableView(table)
			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(out, view)
			}
			PrintDetail(out, view.detail())
			if len(view.Columns) > 0 {
				_, _ = fmt.Fprintln(out)
				PrintTable(out, []string{"column", "type", "mode", "description"}, view.columnRows())
			}
			return nil
		},
	}
}

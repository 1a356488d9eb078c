package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bq-bridge/internal/domain"
)

func newMaterializeCmd(s *session) *cobra.Command {
	var (
		query      string
		expiration int
	)
	cmd := &cobra.Command{
		Use:   "materialize [<[project.]dataset.table>] [--query SQL]",
		Short: "Resolve a read target, materializing views and queries into temporary tables",
		Example: `  bqbridge materialize analytics.orders_view --views-enabled
  bqbridge materialize --query "SELECT id FROM analytics.orders" --views-enabled`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (query != "") {
				return domain.ErrValidation("specify exactly one of a table or --query")
			}
			var id domain.TableID
			if len(args) == 1 {
				var err error
				if id, err = domain.ParseTableID(args[0]); err != nil {
					return err
				}
			}

			a, err := s.App(cmd.Context())
			if err != nil {
				return err
			}
			opts := a.ReadOptions(id, query)
			if cmd.Flags().Changed("expiration-minutes") {
				opts.ExpirationMinutes = expiration
			}

			table, err := a.Warehouse.GetReadTable(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if table == nil {
				return domain.ErrNotFound("table %s not found", id)
			}
			materialized := opts.HasQuery()
			if table.Kind.IsView() {
				sql := a.Warehouse.SelectSQL(table.ID, nil, nil)
				if table, err = a.Warehouse.MaterializeViewToTable(cmd.Context(), sql, table.ID, opts.ExpirationMinutes); err != nil {
					return err
				}
				materialized = true
			}

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(out, map[string]interface{}{
					"materialized": materialized,
					"table":        newTableView(table),
				})
			}
			_, _ = fmt.Fprintln(out, table.ID.FullyQualifiedName())
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "Materialize this query instead of a table")
	cmd.Flags().IntVar(&expiration, "expiration-minutes", 0, "Minutes until the materialized table expires (overrides MATERIALIZATION_EXPIRATION_MINUTES)")
	return cmd
}

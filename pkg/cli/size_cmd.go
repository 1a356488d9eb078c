package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bq-bridge/internal/domain"
)

func newSizeCmd(s *session) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "size <[project.]dataset.table>",
		Short: "Estimate a table's row count",
		Long: `Plain tables report their stored row count. Views, materialized views and
filtered reads run a COUNT(*) query.`,
		Example: `  bqbridge size analytics.orders
  bqbridge size analytics.orders --filter "status = 'open'"`,
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
			n, err := a.Warehouse.CalculateTableSize(cmd.Context(), id, filter)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]interface{}{
					"table":  id.FullyQualifiedName(),
					"filter": filter,
					"rows":   n,
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Row filter (SQL boolean expression)")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bq-bridge/internal/domain"
)

func newDropCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <[project.]dataset.table>",
		Short: "Delete a table; succeeds when it is already gone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTableID(args[0])
			if err != nil {
				return err
			}
			a, err := s.App(cmd.Context())
			if err != nil {
				return err
			}
			deleted, err := a.Warehouse.DeleteTable(cmd.Context(), id)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]interface{}{"table": id.FullyQualifiedName(), "deleted": deleted})
			}
			if deleted {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s did not exist\n", id)
			}
			return nil
		},
	}
}

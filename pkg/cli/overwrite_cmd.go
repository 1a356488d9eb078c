package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bq-bridge/internal/domain"
)

func newOverwriteCmd(s *session) *cobra.Command {
	var (
		wait     bool
		dropTemp bool
	)
	cmd := &cobra.Command{
		Use:   "overwrite <temporary> <destination>",
		Short: "Replace the destination's rows with the temporary table's in one MERGE",
		Example: `  bqbridge overwrite tmp.orders_1712 analytics.orders --wait --drop-temp`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			temp, err := domain.ParseTableID(args[0])
			if err != nil {
				return err
			}
			dest, err := domain.ParseTableID(args[1])
			if err != nil {
				return err
			}
			if dropTemp && !wait {
				return domain.ErrValidation("--drop-temp requires --wait")
			}

			a, err := s.App(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			job, err := a.Warehouse.OverwriteDestinationWithTemporary(ctx, temp, dest)
			if err != nil {
				return err
			}
			result := map[string]interface{}{"job_id": job.ID(), "state": string(domain.JobStatePending)}
			if wait {
				status, err := a.Warehouse.WaitForJob(ctx, job)
				if err != nil {
					return err
				}
				result["state"] = string(status.State)
				if dropTemp {
					deleted, err := a.Warehouse.DeleteTable(ctx, temp)
					if err != nil {
						return fmt.Errorf("drop temporary table %s: %w", temp, err)
					}
					result["temporary_dropped"] = deleted
				}
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), result)
			}
			PrintDetail(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the MERGE job to finish")
	cmd.Flags().BoolVar(&dropTemp, "drop-temp", false, "Delete the temporary table after a successful MERGE")
	return cmd
}

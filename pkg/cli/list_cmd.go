package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bq-bridge/internal/domain"
)

func newDatasetsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets [project]",
		Short: "List datasets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App(cmd.Context())
			if err != nil {
				return err
			}
			project := ""
			if len(args) == 1 {
				project = args[0]
			}
			datasets, err := a.Warehouse.ListDatasets(cmd.Context(), project)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), datasets)
			}
			rows := make([][]string, len(datasets))
			for i, ds := range datasets {
				rows[i] = []string{ds.Project, ds.Dataset}
			}
			PrintTable(cmd.OutOrStdout(), []string{"project", "dataset"}, rows)
			return nil
		},
	}
}

func newTablesCmd(s *session) *cobra.Command {
	var kinds []string
	cmd := &cobra.Command{
		Use:   "tables [[project.]dataset]",
		Short: "List tables of a dataset, or of every dataset in the project",
		Example: `  bqbridge tables analytics
  bqbridge tables --kind VIEW --kind MATERIALIZED_VIEW`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make([]domain.TableKind, len(kinds))
			for i, k := range kinds {
				filter[i] = domain.TableKind(strings.ToUpper(strings.TrimSpace(k)))
			}

			a, err := s.App(cmd.Context())
			if err != nil {
				return err
			}
			var tables []*domain.TableInfo
			if len(args) == 0 {
				tables, err = a.Warehouse.ListAllTables(cmd.Context(), a.Config.ProjectID, filter...)
			} else {
				var ds domain.DatasetID
				if ds, err = parseDatasetID(args[0]); err != nil {
					return err
				}
				tables, err = a.Warehouse.ListTables(cmd.Context(), ds, filter...)
			}
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				views := make([]tableView, len(tables))
				for i, t := range tables {
					views[i] = newTableView(t)
				}
				return PrintJSON(cmd.OutOrStdout(), views)
			}
			rows := make([][]string, len(tables))
			for i, t := range tables {
				rows[i] = []string{t.ID.FullyQualifiedName(), string(t.Kind), strconv.FormatUint(t.NumRows, 10)}
			}
			PrintTable(cmd.OutOrStdout(), []string{"table", "kind", "rows"}, rows)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Only list tables of these kinds (TABLE, EXTERNAL, VIEW, MATERIALIZED_VIEW)")
	return cmd
}

func parseDatasetID(s string) (domain.DatasetID, error) {
	parts := strings.Split(s, ".")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return domain.DatasetID{Dataset: parts[0]}, nil
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return domain.DatasetID{Project: parts[0], Dataset: parts[1]}, nil
	default:
		return domain.DatasetID{}, domain.ErrValidation("invalid dataset reference %q: expected dataset or project.dataset", s)
	}
}

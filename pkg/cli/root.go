package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bq-bridge/internal/app"
	"bq-bridge/internal/config"
	"bq-bridge/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Opener builds the application from the resolved configuration.
type Opener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app.App, error)

// Execute runs the CLI.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd(app.New)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = PrintJSON(os.Stdout, errorObject(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func errorObject(err error) map[string]interface{} {
	obj := map[string]interface{}{"error": err.Error()}
	var (
		notFound    *domain.NotFoundError
		validation  *domain.ValidationError
		unsupported *domain.UnsupportedError
		remote      *domain.RemoteJobError
		interrupted *domain.InterruptedError
	)
	switch {
	case errors.As(err, &notFound):
		obj["code"] = "NOT_FOUND"
	case errors.As(err, &validation):
		obj["code"] = "INVALID_ARGUMENT"
	case errors.As(err, &unsupported):
		obj["code"] = "UNSUPPORTED"
		if unsupported.Param != "" {
			obj["param"] = unsupported.Param
		}
	case errors.As(err, &interrupted):
		obj["code"] = "INTERRUPTED"
		obj["job_id"] = interrupted.JobID
	case errors.As(err, &remote):
		obj["code"] = "JOB_FAILED"
		obj["job_id"] = remote.JobID
	}
	return obj
}

// session resolves configuration once per invocation and opens the
// application lazily, so commands that never touch the warehouse stay offline.
type session struct {
	open   Opener
	cfg    *config.Config
	logger *slog.Logger
	app    *app.App
}

func (s *session) App(ctx context.Context) (*app.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	a, err := s.open(ctx, s.cfg, s.logger)
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}

func (s *session) close() {
	if s.app == nil {
		return
	}
	if err := s.app.Close(); err != nil {
		s.logger.Warn("close warehouse client", "error", err)
	}
	s.app = nil
}

func newRootCmd(open Opener) *cobra.Command {
	var (
		configPath   string
		envFile      string
		output       string
		project      string
		location     string
		matDataset   string
		viewsEnabled bool
		logLevel     string
	)
	s := &session{open: open}

	rootCmd := &cobra.Command{
		Use:           "bqbridge",
		Short:         "BigQuery read/write coordination CLI",
		Long:          "Inspect, size, materialize, and overwrite BigQuery tables the way the connector does.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("BQBRIDGE_OUTPUT"); v != "" {
					output = v
				} else {
					output = defaultOutputFormat(cmd.OutOrStdout())
				}
			}
			if err := validateOutputFormat(output); err != nil {
				return err
			}

			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}

			// Flags win over env and file.
			if cmd.Flags().Changed("project") {
				cfg.ProjectID = project
			}
			if cmd.Flags().Changed("location") {
				cfg.Location = location
			}
			if cmd.Flags().Changed("materialization-dataset") {
				cfg.MaterializationDataset = matDataset
			}
			if cmd.Flags().Changed("views-enabled") {
				cfg.ViewsEnabled = viewsEnabled
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			s.cfg = cfg
			s.logger = newLogger(cmd.ErrOrStderr(), cfg.SlogLevel())
			for _, w := range cfg.Warnings {
				s.logger.Debug("config warning", "warning", w)
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			s.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", ConfigPath(), "Path to the YAML config file")
	flags.StringVar(&envFile, "env-file", ".env", "Path to a .env file to load")
	flags.StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	flags.StringVar(&project, "project", "", "Default project (overrides BQ_PROJECT)")
	flags.StringVar(&location, "location", "", "Job location (overrides BQ_LOCATION)")
	flags.StringVar(&matDataset, "materialization-dataset", "", "Dataset for materialized tables (overrides MATERIALIZATION_DATASET)")
	flags.BoolVar(&viewsEnabled, "views-enabled", false, "Allow reading views and queries (overrides VIEWS_ENABLED)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newDescribeCmd(s))
	rootCmd.AddCommand(newSizeCmd(s))
	rootCmd.AddCommand(newMaterializeCmd(s))
	rootCmd.AddCommand(newOverwriteCmd(s))
	rootCmd.AddCommand(newDropCmd(s))
	rootCmd.AddCommand(newDatasetsCmd(s))
	rootCmd.AddCommand(newTablesCmd(s))
	rootCmd.AddCommand(newConfigCmd(s))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}

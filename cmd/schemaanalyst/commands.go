package main

import (
	"fmt"
	"io"
	"strings"

	"schemaanalyst/internal/config"
	"schemaanalyst/internal/runner"
	"schemaanalyst/internal/schema"
	"schemaanalyst/internal/search"
	"schemaanalyst/internal/util"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type generateFlags struct {
	seed           int64
	algorithm      string
	maxEvaluations int
	reportDir      string
	dialect        string
	dsn            string
	verbose        bool
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:   "schemaanalyst",
		Short: "Generate test data that covers the integrity constraints of a relational schema",
		Long: `schemaanalyst searches for INSERT statements that satisfy every constraint
of a schema, then for rows that violate each constraint in turn.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	root.AddCommand(newGenerateCmd(&configPath), newSchemaCmd(), newVersionCmd())
	return root
}

func newGenerateCmd(configPath *string) *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "generate [SCHEMA.sql]",
		Short: "Run constraint coverage for a schema",
		Long: `Runs one search per coverage goal and prints the generated statements.

Examples:
  schemaanalyst generate shop.sql
  schemaanalyst generate shop.sql --algorithm random --max-evaluations 5000
  schemaanalyst generate -c nightly.yaml --dialect sqlite`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.SchemaFile = args[0]
			}
			applyFlags(cmd, &cfg, flags)
			closer, err := util.SetupLogging(cfg.Logging.LogFile, cfg.Logging.Verbose)
			if err != nil {
				return err
			}
			defer util.CloseWithErr(closer, "log file")
			if out, err := yaml.Marshal(&cfg); err == nil {
				util.Debugf("config:\n%s", out)
			}

			r, err := runner.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			res, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), res.Report.String())
			return err
		},
	}
	f := cmd.Flags()
	f.Int64Var(&flags.seed, "seed", 0, "random seed, 0 picks one from the clock")
	f.StringVar(&flags.algorithm, "algorithm", "", "search algorithm: "+strings.Join(search.Names(), ", "))
	f.IntVar(&flags.maxEvaluations, "max-evaluations", 0, "objective evaluations allowed per goal")
	f.StringVar(&flags.reportDir, "report-dir", "", "directory for run reports")
	f.StringVar(&flags.dialect, "dialect", "", "verify generated rows against sqlite or mysql")
	f.StringVar(&flags.dsn, "dsn", "", "data source name for --dialect")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "log every goal")
	return cmd
}

// applyFlags lets explicitly set flags override the config file.
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags generateFlags) {
	changed := cmd.Flags().Changed
	if changed("seed") {
		cfg.Seed = flags.seed
	}
	if changed("algorithm") {
		cfg.Search.Algorithm = strings.ToLower(flags.algorithm)
	}
	if changed("max-evaluations") && flags.maxEvaluations > 0 {
		cfg.Search.MaxEvaluations = flags.maxEvaluations
	}
	if changed("report-dir") {
		cfg.Report.Dir = flags.reportDir
	}
	if changed("dialect") {
		cfg.Database.Dialect = strings.ToLower(flags.dialect)
		if cfg.Database.Dialect == config.DialectSQLite && !changed("dsn") {
			cfg.Database.DSN = ":memory:"
		}
	}
	if changed("dsn") {
		cfg.Database.DSN = flags.dsn
	}
	if changed("verbose") {
		cfg.Logging.Verbose = flags.verbose
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema SCHEMA.sql",
		Short: "Parse a schema and list its constraints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.LoadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, s.SQL())
			fmt.Fprintf(out, "\n-- %d constraints, %d coverage goals\n", len(s.Constraints()), 2*len(s.Constraints()))
			for _, c := range s.Constraints() {
				fmt.Fprintf(out, "-- %s\n", c)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "schemaanalyst %s\n", version)
		},
	}
}

package main

import (
	"context"

	"github.com/koustreak/sqlconform/internal/filestore/minio"
	"github.com/koustreak/sqlconform/internal/harness"
	"github.com/koustreak/sqlconform/internal/logger"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sqlconform",
	Short: "Conformance checks for SQL database drivers",
	Long: `sqlconform runs cursor, LOB, row id, array, statement and SQLSTATE
conformance suites against a live PostgreSQL or MySQL database.

The DSN comes from the config file or the SQLCONFORM_DSN environment variable.

Examples:
  SQLCONFORM_DSN=postgres://conform@localhost/conform sqlconform run
  sqlconform run --config sqlconform.yaml --suite cursor --suite lob
  sqlconform serve --addr :8080
  sqlconform sqlstate 08003 23505`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sqlstateCmd)
}

// setup loads the config and builds a runner wired to the configured
// database and, when an endpoint is set, the MinIO object store. The
// returned cleanup releases the object store.
func setup(ctx context.Context, suites []string) (*harness.Config, *harness.Runner, *logger.Logger, func(), error) {
	cfg, err := harness.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if len(suites) > 0 {
		cfg.Suites = suites
	}

	log := logger.New(&cfg.Log)
	cleanup := func() {}

	var opts []harness.Option
	if cfg.FileStore.Enabled() {
		fs, err := minio.New(ctx, &cfg.FileStore)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		opts = append(opts, harness.WithFileStore(fs))
		cleanup = func() { _ = fs.Close() }
	}

	runner := harness.NewRunner(cfg, harness.DriverOpener(&cfg.Database), log, opts...)
	return cfg, runner, log, cleanup, nil
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/sqlconform/internal/harness"
	"github.com/koustreak/sqlconform/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	serveLimit int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve conformance runs over HTTP",
	Long: `Start an HTTP server that runs the suites on POST /runs and keeps the
most recent reports in memory.

Examples:
  sqlconform serve
  sqlconform serve --addr 127.0.0.1:9090 --keep 10`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().IntVar(&serveLimit, "keep", harness.DefaultReportLimit, "Number of reports to keep")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, runner, log, cleanup, err := setup(ctx, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	srv := server.New(runner, harness.NewReportStore(serveLimit), log)
	return srv.ListenAndServe(ctx, addr)
}

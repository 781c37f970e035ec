package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/koustreak/sqlconform/internal/harness"
	"github.com/spf13/cobra"
)

var (
	runJSON   bool
	runSuites []string
)

var errCasesFailed = errors.New("conformance cases failed")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the conformance suites once",
	Long: `Run the selected conformance suites against the configured database and
print one line per case. The exit status is non-zero when any case fails.

Examples:
  sqlconform run
  sqlconform run --suite sqlstate --json`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the report as JSON")
	runCmd.Flags().StringSliceVarP(&runSuites, "suite", "s", nil, "Suites to run (default all)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	_, runner, _, cleanup, err := setup(ctx, runSuites)
	if err != nil {
		return err
	}
	defer cleanup()

	rep, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printReport(out, rep)
	}

	if rep.Failed() {
		return errCasesFailed
	}
	return nil
}

var (
	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	skipLabel = color.New(color.FgYellow).SprintFunc()
)

func printReport(w io.Writer, rep *harness.Report) {
	fmt.Fprintf(w, "run %s against %s (started %s)\n\n", rep.ID, rep.Backend, humanize.Time(rep.StartedAt))

	for _, r := range rep.Results {
		switch r.Status {
		case harness.StatusPass:
			fmt.Fprintf(w, "%s  %s (%s)\n", passLabel("PASS"), r.Name(), r.Duration.Round(time.Microsecond))
		case harness.StatusSkip:
			fmt.Fprintf(w, "%s  %s: %s\n", skipLabel("SKIP"), r.Name(), r.Error)
		default:
			fmt.Fprintf(w, "%s  %s: %s\n", failLabel("FAIL"), r.Name(), r.Error)
		}
	}

	fmt.Fprintf(w, "\n%s passed, %s failed, %s skipped in %s\n",
		humanize.Comma(int64(rep.Count(harness.StatusPass))),
		humanize.Comma(int64(rep.Count(harness.StatusFail))),
		humanize.Comma(int64(rep.Count(harness.StatusSkip))),
		rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))
}

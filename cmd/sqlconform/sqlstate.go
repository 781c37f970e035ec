package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/spf13/cobra"
)

var sqlstateCmd = &cobra.Command{
	Use:   "sqlstate CODE...",
	Short: "Classify SQLSTATE codes",
	Long: `Print the category, error kind and transience of each SQLSTATE code.

Examples:
  sqlconform sqlstate 08001 08003 23505 42S02`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printStates(cmd.OutOrStdout(), args)
	},
}

func printStates(w io.Writer, states []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE\tCATEGORY\tKIND\tTRANSIENT")
	for _, s := range states {
		c := errs.Classify(s)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", s, c, c.Kind(), errs.IsTransient(errs.FromSQLState(s, "", nil)))
	}
	return tw.Flush()
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/oncoqa/validata/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect validation run history",
	Long:  "Commands for listing and viewing validation runs recorded with --save.",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded validation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: store.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

var runsViolationsCmd = &cobra.Command{
	Use:   "violations <run-id>",
	Short: "List the violations recorded for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rows, err := st.ListViolations(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs violations")
		}

		if len(rows) == 0 {
			fmt.Fprintln(os.Stderr, "No violations recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEVERITY\tSTANDARD\tLOCATOR\tFIELDS\tMESSAGE")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Severity, r.Standard, r.Locator, r.Fields, r.Message)
		}
		return w.Flush()
	},
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDATASETS\tSTATUS\tERRORS\tWARNINGS\tCREATED")
	for _, r := range runs {
		errs, warns := "-", "-"
		if r.Summary != nil {
			errs = fmt.Sprintf("%d", r.Summary.Errors)
			warns = fmt.Sprintf("%d", r.Summary.Warnings)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			strings.Join(r.Datasets, ","),
			r.Status,
			errs,
			warns,
			r.CreatedAt.Format(time.RFC3339),
		)
	}
	_ = w.Flush()
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, completed, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsViolationsCmd)
	rootCmd.AddCommand(runsCmd)
}

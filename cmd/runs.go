package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/rankgrid/internal/model"
	"github.com/sells-group/rankgrid/internal/store"
)

var (
	runsStatus  string
	runsKeyword string
	runsLimit   int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored grid runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		summaries, err := st.ListRuns(ctx, store.RunFilter{
			Status:  model.RunStatus(runsStatus),
			Keyword: runsKeyword,
			Limit:   runsLimit,
		})
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKEYWORD\tSTATUS\tGRID\tDONE\tCREATED")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%d/%d\t%s\n",
				s.ID, s.Keyword, s.Status, s.GridSize, s.GridSize,
				s.Done, s.Total, s.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a stored run with all its cells as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		j, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(j)
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a stored run and its cells",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteRun(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "deleted run %s\n", args[0])
		return nil
	},
}

func init() {
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (running, complete, failed)")
	runsListCmd.Flags().StringVar(&runsKeyword, "keyword", "", "filter by keyword substring")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 50, "maximum runs to list")
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rankgrid/internal/export"
	"github.com/sells-group/rankgrid/internal/job"
	"github.com/sells-group/rankgrid/internal/rank"
)

var (
	topLimit int
	topCSV   string
)

var topCmd = &cobra.Command{
	Use:   "top <task-id>",
	Short: "Show the top competitor listings for one grid cell",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		taskID := args[0]

		api, err := initProvider()
		if err != nil {
			return err
		}

		res, err := api.GetTask(ctx, taskID)
		if err != nil {
			return eris.Wrapf(err, "fetch task %s", taskID)
		}
		records := job.Records(res.Items)

		// When the task belongs to a stored run, a deeper record list may
		// reveal a rank the original poll missed.
		if st, err := initStore(ctx); err == nil {
			defer st.Close() //nolint:errcheck
			if j, err := st.GetRunByTask(ctx, taskID); err == nil && j.Task(taskID) != nil {
				task := j.Task(taskID)
				if corrected, changed := rank.Correct(task.Rank, records, j.Target); changed {
					task.Rank = corrected
					if err := st.UpdateTask(ctx, *task); err != nil {
						zap.L().Warn("persist corrected rank failed", zap.Error(err))
					} else {
						fmt.Fprintf(os.Stderr, "corrected stored rank for %s to %d\n", taskID, *corrected)
					}
				}
			}
		}

		items := export.FromRecords(records, topLimit)
		if topCSV != "" {
			if err := export.WriteCSVFile(topCSV, items); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %d competitors to %s\n", len(items), topCSV)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tNAME\tADDRESS\tRATING\tWEBSITE")
		for _, it := range items {
			rankStr := "—"
			if it.Rank != nil {
				rankStr = fmt.Sprintf("%d", *it.Rank)
			}
			ratingStr := ""
			if it.RatingCount > 0 {
				ratingStr = fmt.Sprintf("%.1f (%d)", it.Rating, it.RatingCount)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rankStr, it.Name, it.Address, ratingStr, it.Website)
		}
		return w.Flush()
	},
}

func init() {
	topCmd.Flags().IntVar(&topLimit, "limit", 20, "maximum competitors to show")
	topCmd.Flags().StringVar(&topCSV, "csv", "", "write competitors to a CSV file instead of stdout")
	rootCmd.AddCommand(topCmd)
}

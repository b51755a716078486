package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"ocflprobe/pkg/meta"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded probe runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := meta.Open(ctx, historyDSN())
		if err != nil {
			return err
		}
		defer db.Close()
		repo := meta.NewRepository(db)

		runs, err := repo.ListRuns(ctx, historyLimit, historyFailed)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded yet.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintf(tw, "WHEN\tRESULT\tOBJECT\tBUCKET\tSIZE\tWRITE\tREAD\n")
		for _, r := range runs {
			result := "pass"
			if !r.Passed {
				result = "FAIL (" + r.ErrorKind + ")"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				humanize.Time(r.CreatedAt),
				result,
				r.ObjectID,
				r.Bucket,
				humanize.IBytes(uint64(r.Size)),
				time.Duration(r.WriteMs)*time.Millisecond,
				time.Duration(r.ReadMs)*time.Millisecond,
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		total, passed, err := repo.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d runs, %d passed\n", total, passed)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only show failed runs")
	rootCmd.AddCommand(historyCmd)
}

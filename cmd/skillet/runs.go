package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillet-ai/skillet/pkg/presenter"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recent skill runs, or show one run in detail",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		skill, _ := cmd.Flags().GetString("skill")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openRunLog(ctx)
		if err != nil {
			presenter.Error(err, "failed to open run log")
			os.Exit(1)
		}
		if store == nil {
			presenter.Info("Run log is disabled.")
			return
		}
		defer store.Close()

		if len(args) == 1 {
			record, err := store.GetRun(ctx, args[0])
			if err != nil {
				presenter.Error(err, "failed to load run")
				os.Exit(1)
			}
			data, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				presenter.Error(err, "failed to encode run")
				os.Exit(1)
			}
			fmt.Println(string(data))
			return
		}

		records, err := store.ListRuns(ctx, skill, limit)
		if err != nil {
			presenter.Error(err, "failed to list runs")
			os.Exit(1)
		}
		if len(records) == 0 {
			presenter.Info("No runs recorded yet.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tSKILL\tSTARTED\tDURATION\tSTATUS")
		for _, r := range records {
			status := "ok"
			if r.Aborted {
				status = "aborted at " + r.FailedStep
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.RunID, r.Skill,
				r.StartedAt.Local().Format(time.RFC3339),
				(time.Duration(r.DurationMS) * time.Millisecond).String(),
				status)
		}
		w.Flush()
	},
}

func init() {
	runsCmd.Flags().String("skill", "", "Only show runs of this skill")
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs to list")
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/wielermanager/internal/scheduler/jobs"
)

// resultsCmd represents the results command
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Pull race results and score the latest plan",
	Long: `Fetches finish classifications for the races of the stored snapshot,
marks finished races completed and scores the latest MILP plan against
the actual points.

Example:
  go run ./cmd/planner results`,
	RunE: runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	job := jobs.NewResultsJob(a.collector, a.snapshots, a.plans, a.reportSink(), a.log)
	if err := job.Run(ctx); err != nil {
		return fmt.Errorf("❌ results: %w", err)
	}

	snap, err := a.snapshots.Latest(ctx)
	if err != nil {
		return err
	}
	completed := 0
	for _, r := range snap.Races {
		if r.Completed {
			completed++
		}
	}
	fmt.Printf("✅ %d of %d races completed\n", completed, len(snap.Races))
	return nil
}

package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/snapshot"
)

// solveCmd represents the solve command
var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Plan the season from a snapshot",
	Long: `Plans the team over every race of a snapshot.

Without --input the latest stored snapshot is used.

Strategies:
  milp  - optimal owned/selected/transfer plan within budget
  rank  - top ranked riders per race, ignores budget and transfers

Example:
  go run ./cmd/planner solve --input data/pcs_data_v3.json
  go run ./cmd/planner solve --strategy rank --output plan.json`,
	RunE: runSolve,
}

var (
	solveInput    string
	solveStrategy string
	solveOutput   string
)

func init() {
	rootCmd.AddCommand(solveCmd)

	solveCmd.Flags().StringVar(&solveInput, "input", "", "snapshot JSON file (default latest stored snapshot)")
	solveCmd.Flags().StringVar(&solveStrategy, "strategy", string(contracts.StrategyMILP), "milp or rank")
	solveCmd.Flags().StringVar(&solveOutput, "output", "", "write the plan as JSON")
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := loadSnapshot(ctx, a, solveInput)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := a.plans.Plan(ctx, contracts.Strategy(solveStrategy), snap.Request(a.rules.Rules()))
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}

	PrintPlan(res.Plan, snap.Riders)
	fmt.Printf("✅ Solved in %.2fs", time.Since(start).Seconds())
	if res.Cached {
		fmt.Print(" (cached)")
	}
	fmt.Println()

	if solveOutput != "" {
		if err := writeJSON(solveOutput, res.Plan); err != nil {
			return fmt.Errorf("write plan: %w", err)
		}
		fmt.Printf("📄 Plan written to %s\n", solveOutput)
	}
	return nil
}

// loadSnapshot reads a snapshot file, or the stored snapshot when path is empty
func loadSnapshot(ctx context.Context, a *app, path string) (*contracts.Snapshot, error) {
	if path == "" {
		return a.snapshots.Latest(ctx)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return snapshot.Decode(data)
}

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/wielermanager/internal/collector"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Scrape start lists and prices into a snapshot",
	Long: `Scrapes start lists and top competitors from ProCyclingStats for every
race in the rules file, prices the riders from the Sporza game and stores
the snapshot.

Example:
  go run ./cmd/planner collect
  go run ./cmd/planner collect --output data/snapshot.json --workers 4`,
	RunE: runCollect,
}

var (
	collectOutput       string
	collectWorkers      int
	collectKeepUnpriced bool
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectOutput, "output", "", "also write the snapshot to this file")
	collectCmd.Flags().IntVar(&collectWorkers, "workers", collector.DefaultConfig().Workers, "concurrent race fetches")
	collectCmd.Flags().BoolVar(&collectKeepUnpriced, "keep-unpriced", false, "keep riders missing from the price list")
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	PrintDoubleSeparator()
	fmt.Printf("  Collecting %s (%d races)\n", a.rules.Meta.GameID, len(a.rules.Races))
	PrintDoubleSeparator()

	start := time.Now()
	snap, err := a.collector.Collect(ctx, collector.Config{
		Workers:      collectWorkers,
		KeepUnpriced: collectKeepUnpriced,
	})
	if err != nil {
		return fmt.Errorf("❌ collect: %w", err)
	}

	if err := a.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("❌ save snapshot: %w", err)
	}
	if collectOutput != "" {
		if err := writeJSON(collectOutput, snap); err != nil {
			return fmt.Errorf("❌ write snapshot: %w", err)
		}
	}

	fmt.Printf("✅ %d riders over %d races in %.1fs\n", len(snap.Riders), len(snap.Races), time.Since(start).Seconds())
	for i, r := range snap.Riders {
		if i == 10 {
			break
		}
		fmt.Printf("   %2d. %-28s %6.1f pts  %5.1f  ROI %.2f\n", i+1, r.Name, r.GlobalScore, r.Cost, r.ROI)
	}
	return nil
}

package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wonny/wielermanager/internal/contracts"
)

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintPlan prints a season plan race by race
func PrintPlan(p *contracts.Plan, riders []contracts.Candidate) {
	names := make(map[string]string, len(riders))
	for _, r := range riders {
		names[r.ID] = r.Name
	}
	name := func(ids []string) string {
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = id
			if n := names[id]; n != "" {
				out[i] = n
			}
		}
		return strings.Join(out, ", ")
	}

	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Plan %s (%s, %s)\n", p.ID, p.Strategy, p.Status)
	fmt.Printf("  Expected points : %.1f\n", p.Objective)
	fmt.Printf("  Transfers       : %d\n", p.TotalTransfers())
	PrintDoubleSeparator()

	for _, pp := range p.Periods {
		fmt.Printf("\n🏁 %s\n", pp.PeriodID)
		fmt.Printf("   Budget used : %.2f  fee %.2f  left %.2f\n", pp.Cost, pp.Fee, pp.RemainingBudget)
		if len(pp.Acquired) > 0 {
			fmt.Printf("   In          : %s\n", name(pp.Acquired))
			fmt.Printf("   Out         : %s\n", name(pp.Released))
		}
		fmt.Printf("   Selected    : %s\n", name(pp.Selected))
	}
	fmt.Println()
}

// writeJSON writes v as indented JSON, creating the parent directory
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	rulesFile string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Wielermanager transfer planner",
	Long: `Wielermanager Unified CLI

Plans a fantasy cycling team over a season of races: which riders to own,
which to field per race and when to transfer, within budget.

Usage:
  go run ./cmd/planner [command]

Examples:
  go run ./cmd/planner collect --output data/snapshot.json
  go run ./cmd/planner solve --input data/snapshot.json
  go run ./cmd/planner api
  go run ./cmd/planner test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "game rules YAML (default RULES_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

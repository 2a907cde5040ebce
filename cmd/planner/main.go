package main

import (
	"os"
	_ "time/tzdata" // scheduler runs on Europe/Brussels time

	"github.com/wonny/wielermanager/cmd/planner/commands"
)

// main is the entry point for the planner CLI
// ⭐ Unified CLI entry point: go run ./cmd/planner [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

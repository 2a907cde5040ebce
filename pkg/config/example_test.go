package config_test

import (
	"fmt"

	"github.com/wonny/wielermanager/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	// Access configuration values
	fmt.Printf("Server running on port: %s\n", cfg.Port)
	fmt.Printf("Solver backend: %s (limit %s)\n", cfg.Solver.Backend, cfg.Solver.TimeLimit)
	fmt.Printf("Persistence enabled: %v\n", cfg.Database.Enabled())
}

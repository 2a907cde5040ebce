package database_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wonny/wielermanager/pkg/config"
	"github.com/wonny/wielermanager/pkg/database"
)

// Example demonstrates how to connect and bring the schema up to date
func Example() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	status, err := db.HealthCheck(ctx)
	if err != nil {
		log.Fatalf("Health check failed: %v", err)
	}

	fmt.Printf("Applied %d migrations\n", len(applied))
	fmt.Printf("Database is healthy: %v\n", status.Healthy)
}

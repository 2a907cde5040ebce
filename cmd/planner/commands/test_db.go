package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/wielermanager/pkg/config"
	"github.com/wonny/wielermanager/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Test the PostgreSQL connection and apply migrations",
	Long: `Tests the database connection, applies the schema migrations and shows
pool statistics.

Example:
  go run ./cmd/planner test-db
  go run ./cmd/planner test-db --skip-migrate`,
	RunE: runTestDB,
}

var skipMigrate bool

func init() {
	rootCmd.AddCommand(testDBCmd)

	testDBCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "only test the connection")
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Wielermanager Database Connection Test ===")

	fmt.Println("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("Connecting to database...")
	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	fmt.Println("✅ Database connection established")

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}
	fmt.Println("✅ Health Check Results:")
	fmt.Printf("   Healthy: %v\n", status.Healthy)
	fmt.Printf("   Response Time: %v\n\n", status.ResponseTime)

	if !skipMigrate {
		fmt.Println("Applying migrations...")
		applied, err := db.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("❌ Migration failed: %w", err)
		}
		for _, name := range applied {
			fmt.Printf("   ✔ %s\n", name)
		}
		fmt.Println()
	}

	fmt.Println("📊 Connection Pool Statistics:")
	fmt.Printf("   Max Connections: %d\n", status.Stats.MaxConns)
	fmt.Printf("   Total Connections: %d\n", status.Stats.TotalConns)
	fmt.Printf("   Idle Connections: %d\n", status.Stats.IdleConns)

	fmt.Println("\n✅ All tests passed!")
	return nil
}

// maskPassword hides the password of a postgres URL
func maskPassword(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 {
		return url
	}
	colon := strings.Index(url[scheme+3:at], ":")
	if colon < 0 {
		return url
	}
	return url[:scheme+3+colon+1] + "***" + url[at:]
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the planner
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional, empty URL disables persistence)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Optimizer
	Solver SolverConfig

	// Game rules file (YAML)
	RulesFile string

	// Snapshot file used when no database is configured
	SnapshotFile string

	// External sources
	PCS    PCSConfig
	Sporza SporzaConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// SolverConfig selects and tunes the MILP backend
type SolverConfig struct {
	Backend         string        // auto, branchbound, cbc
	TimeLimit       time.Duration // advisory wall-clock budget per solve
	AcceptIncumbent bool          // surface time-limited feasible incumbents as "feasible"
	CBCPath         string        // cbc executable
}

// PCSConfig holds ProCyclingStats scraping configuration
type PCSConfig struct {
	BaseURL   string
	RateLimit float64 // requests per second
	Season    int
}

// SporzaConfig holds Sporza Wielermanager API configuration
type SporzaConfig struct {
	BaseURL string
	Game    string // e.g. vrjr-m-26
}

// Solver backends
const (
	BackendAuto        = "auto" // cbc when installed, branchbound otherwise
	BackendBranchBound = "branchbound"
	BackendCBC         = "cbc"
)

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Optimizer
		Solver: SolverConfig{
			Backend:         getEnv("SOLVER_BACKEND", BackendAuto),
			TimeLimit:       getEnvAsDuration("SOLVER_TIME_LIMIT", "60s"),
			AcceptIncumbent: getEnvAsBool("SOLVER_ACCEPT_INCUMBENT", false),
			CBCPath:         getEnv("CBC_PATH", "cbc"),
		},

		RulesFile:    getEnv("RULES_FILE", "config/rules/spring_classics_2026.yaml"),
		SnapshotFile: getEnv("SNAPSHOT_FILE", "data/pcs_data_v3.json"),

		// External sources
		PCS: PCSConfig{
			BaseURL:   getEnv("PCS_BASE_URL", "https://www.procyclingstats.com"),
			RateLimit: getEnvAsFloat("PCS_RATE_LIMIT", 2),
			Season:    getEnvAsInt("PCS_SEASON", 2026),
		},
		Sporza: SporzaConfig{
			BaseURL: getEnv("SPORZA_BASE_URL", "https://wielermanager.sporza.be"),
			Game:    getEnv("SPORZA_GAME", "vrjr-m-26"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Solver.Backend {
	case BackendAuto, BackendBranchBound, BackendCBC:
	default:
		return fmt.Errorf("SOLVER_BACKEND must be one of: %s, %s, %s", BackendAuto, BackendBranchBound, BackendCBC)
	}

	if c.Solver.TimeLimit <= 0 {
		return fmt.Errorf("SOLVER_TIME_LIMIT must be positive")
	}

	if c.PCS.RateLimit <= 0 {
		return fmt.Errorf("PCS_RATE_LIMIT must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/wielermanager/internal/audit"
	"github.com/wonny/wielermanager/internal/collector"
	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/external/pcs"
	"github.com/wonny/wielermanager/internal/external/sporza"
	"github.com/wonny/wielermanager/internal/heuristic"
	"github.com/wonny/wielermanager/internal/metrics"
	"github.com/wonny/wielermanager/internal/optimizer"
	"github.com/wonny/wielermanager/internal/plan"
	"github.com/wonny/wielermanager/internal/rulesconfig"
	"github.com/wonny/wielermanager/internal/snapshot"
	"github.com/wonny/wielermanager/pkg/config"
	"github.com/wonny/wielermanager/pkg/database"
	"github.com/wonny/wielermanager/pkg/logger"
	"github.com/wonny/wielermanager/pkg/redis"
)

const cachePrefix = "wielermanager"

// app holds the wired dependencies shared by the commands
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	rules   *rulesconfig.Config
	metrics *metrics.Metrics

	db    *database.DB // nil without DATABASE_URL
	redis *redis.Client
	cache *redis.Cache

	snapshots *snapshot.Cached
	plans     *plan.Service
	reports   *audit.Repository // nil without a database
	collector *collector.Collector
}

// newApp loads configuration and connects the optional stores.
// Postgres and Redis are skipped when not configured.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if rulesFile != "" {
		cfg.RulesFile = rulesFile
	}

	log := logger.New(cfg)

	rules, err := rulesconfig.LoadOrDefault(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		rules:   rules,
		metrics: metrics.New(),
	}

	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Info("DATABASE_URL not set, using file snapshots and in-memory plans")
	case err != nil:
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		a.db = db
		if _, err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc
	a.cache = redis.NewCache(rc, cachePrefix)

	var snapStore snapshot.Store = snapshot.NewFileStore(cfg.SnapshotFile)
	var planStore plan.Store = plan.NewMemoryStore()
	if a.db != nil {
		snapStore = snapshot.NewRepository(a.db.Pool)
		planStore = plan.NewRepository(a.db.Pool)
		a.reports = audit.NewRepository(a.db.Pool)
	}
	a.snapshots = snapshot.NewCached(snapStore, a.cache, log)

	solver, err := optimizer.NewSolver(cfg.Solver, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	opt := optimizer.New(solver, optimizer.Config{
		TimeLimit:       cfg.Solver.TimeLimit,
		AcceptIncumbent: cfg.Solver.AcceptIncumbent,
	}, log).WithObserver(a.metrics)

	a.plans = plan.NewService(planStore, a.cache, log).
		Register(contracts.StrategyMILP, opt).
		Register(contracts.StrategyRank, heuristic.NewRankPlanner(log)).
		WithObserver(a.metrics)

	pcsCfg := cfg.PCS
	if pcsCfg.Season == 0 {
		pcsCfg.Season = rules.Meta.Season
	}
	races := pcs.NewClient(pcsCfg, log).WithCache(a.cache).WithObserver(a.metrics)
	if rc.Enabled() {
		races.WithSharedLimit(a.limiter(), pcsCfg.RateLimit)
	}
	prices := sporza.NewClient(cfg.Sporza, log).WithCache(a.cache).WithObserver(a.metrics)
	a.collector = collector.New(races, prices, rules, log)

	return a, nil
}

// Close releases the store connections
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

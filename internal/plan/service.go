package plan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/milp"
	"github.com/wonny/wielermanager/pkg/logger"
	"github.com/wonny/wielermanager/pkg/redis"
)

// Observer counts produced plans and cache lookups
type Observer interface {
	ObservePlan(strategy, status string)
	ObserveCache(hit bool)
}

type nopObserver struct{}

func (nopObserver) ObservePlan(string, string) {}
func (nopObserver) ObserveCache(bool)          {}

// Service runs a planner per strategy, caches results by request
// fingerprint and keeps every produced plan in a Store
// ⭐ SSOT: plan ids and fingerprints are assigned here only
type Service struct {
	planners map[contracts.Strategy]contracts.Planner
	store    Store
	cache    *redis.Cache
	observer Observer
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a Service. A nil cache disables caching.
func NewService(store Store, cache *redis.Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		planners: make(map[contracts.Strategy]contracts.Planner),
		store:    store,
		cache:    cache,
		observer: nopObserver{},
		logger:   log.Component("plan"),
		now:      time.Now,
	}
}

// Register binds a planner to a strategy
func (s *Service) Register(strategy contracts.Strategy, planner contracts.Planner) *Service {
	s.planners[strategy] = planner
	return s
}

// WithObserver sets the metrics observer
func (s *Service) WithObserver(obs Observer) *Service {
	s.observer = obs
	return s
}

// Result is a produced or cached plan
type Result struct {
	Plan   *contracts.Plan
	Cached bool
}

// Plan returns the plan for req, from cache when the same request was
// planned before
func (s *Service) Plan(ctx context.Context, strategy contracts.Strategy, req *contracts.PlanRequest) (*Result, error) {
	planner, ok := s.planners[strategy]
	if !ok {
		return nil, contracts.NewValidationError("strategy", "unknown strategy %q", strategy)
	}
	if req == nil {
		return nil, contracts.NewValidationError("request", "missing")
	}

	fingerprint, err := Fingerprint(strategy, settingsOf(planner), req)
	if err != nil {
		return nil, err
	}
	log := s.logger.WithFields(map[string]interface{}{
		"strategy":    string(strategy),
		"fingerprint": fingerprint[:12],
	})

	if cached, ok := s.lookup(ctx, strategy, fingerprint); ok {
		log.WithField("plan_id", cached.ID).Debug("Plan cache hit")
		return &Result{Plan: cached, Cached: true}, nil
	}

	plan, err := planner.Plan(ctx, req)
	if err != nil {
		s.observer.ObservePlan(string(strategy), failureStatus(err))
		return nil, err
	}

	plan.ID = uuid.NewString()
	plan.Fingerprint = fingerprint
	plan.CreatedAt = s.now().UTC()
	s.observer.ObservePlan(string(strategy), string(plan.Status))

	if s.store != nil {
		if err := s.store.Save(ctx, plan, req); err != nil {
			return nil, fmt.Errorf("store plan: %w", err)
		}
	}
	s.remember(ctx, strategy, plan)

	log.WithFields(map[string]interface{}{
		"plan_id":   plan.ID,
		"status":    string(plan.Status),
		"objective": plan.Objective,
	}).Info("Plan produced")

	return &Result{Plan: plan}, nil
}

// Get returns a stored plan
func (s *Service) Get(ctx context.Context, id string) (*contracts.Plan, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	return s.store.Get(ctx, id)
}

// Latest returns the newest stored plan of a strategy
func (s *Service) Latest(ctx context.Context, strategy contracts.Strategy) (*contracts.Plan, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: no %s plan", ErrPlanNotFound, strategy)
	}
	return s.store.Latest(ctx, strategy)
}

func (s *Service) lookup(ctx context.Context, strategy contracts.Strategy, fingerprint string) (*contracts.Plan, bool) {
	if s.cache == nil {
		return nil, false
	}

	var plan contracts.Plan
	found, err := s.cache.Get(ctx, redis.PlanKey(string(strategy), fingerprint), &plan)
	if err != nil {
		s.logger.WithError(err).Warn("Plan cache read failed")
		return nil, false
	}
	s.observer.ObserveCache(found)
	return &plan, found
}

func (s *Service) remember(ctx context.Context, strategy contracts.Strategy, plan *contracts.Plan) {
	if s.cache == nil {
		return
	}

	ttl := redis.TTLLong
	if plan.Status == contracts.PlanFeasible {
		ttl = redis.TTLShort // not proven optimal
	}
	if err := s.cache.Set(ctx, redis.PlanKey(string(strategy), plan.Fingerprint), plan, ttl); err != nil {
		s.logger.WithError(err).Warn("Plan cache write failed")
	}
}

func failureStatus(err error) string {
	var verr *contracts.ValidationError
	if errors.As(err, &verr) {
		return "invalid"
	}
	if errors.Is(err, milp.ErrModelTooLarge) {
		return "too_large"
	}
	return "failed"
}

package plan

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/pkg/config"
	"github.com/wonny/wielermanager/pkg/redis"
)

type fakePlanner struct {
	calls int
	err   error
}

func (f *fakePlanner) Plan(_ context.Context, req *contracts.PlanRequest) (*contracts.Plan, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &contracts.Plan{
		Strategy:  contracts.StrategyMILP,
		Status:    contracts.PlanOptimal,
		Objective: 42,
		Rules:     req.Rules,
	}, nil
}

type recordingObserver struct {
	plans  map[string]int
	hits   int
	misses int
}

func (o *recordingObserver) ObservePlan(strategy, status string) {
	if o.plans == nil {
		o.plans = map[string]int{}
	}
	o.plans[strategy+"/"+status]++
}

func (o *recordingObserver) ObserveCache(hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func testRequest() *contracts.PlanRequest {
	return &contracts.PlanRequest{
		Candidates: []contracts.Candidate{
			{ID: "a", Cost: 2, ExpectedValues: map[string]float64{"r1": 5, "r2": 1}},
			{ID: "b", Cost: 3, ExpectedValues: map[string]float64{"r2": 7}},
		},
		Periods: []contracts.Period{{ID: "r1"}, {ID: "r2"}},
		Rules:   contracts.Rules{TeamSize: 1, RaceSquadSize: 1, Budget: 5, MaxTransfers: 1, FreeAllowance: 1},
	}
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(contracts.StrategyMILP, "", testRequest())
	require.NoError(t, err)
	b, err := Fingerprint(contracts.StrategyMILP, "", testRequest())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	rank, err := Fingerprint(contracts.StrategyRank, "", testRequest())
	require.NoError(t, err)
	assert.NotEqual(t, a, rank)

	req := testRequest()
	req.Rules.Budget = 6
	changed, err := Fingerprint(contracts.StrategyMILP, "", req)
	require.NoError(t, err)
	assert.NotEqual(t, a, changed)

	cbc, err := Fingerprint(contracts.StrategyMILP, "backend=cbc accept_incumbent=false", testRequest())
	require.NoError(t, err)
	accepting, err := Fingerprint(contracts.StrategyMILP, "backend=cbc accept_incumbent=true", testRequest())
	require.NoError(t, err)
	assert.NotEqual(t, a, cbc)
	assert.NotEqual(t, cbc, accepting)
}

type keyedPlanner struct {
	fakePlanner
	key string
}

func (k *keyedPlanner) CacheKey() string { return k.key }

func TestService_FingerprintFollowsPlannerSettings(t *testing.T) {
	strict := &keyedPlanner{key: "backend=branchbound accept_incumbent=false"}
	lenient := &keyedPlanner{key: "backend=branchbound accept_incumbent=true"}

	first, err := NewService(NewMemoryStore(), nil, nil).
		Register(contracts.StrategyMILP, strict).
		Plan(context.Background(), contracts.StrategyMILP, testRequest())
	require.NoError(t, err)
	second, err := NewService(NewMemoryStore(), nil, nil).
		Register(contracts.StrategyMILP, lenient).
		Plan(context.Background(), contracts.StrategyMILP, testRequest())
	require.NoError(t, err)

	want, err := Fingerprint(contracts.StrategyMILP, strict.key, testRequest())
	require.NoError(t, err)
	assert.Equal(t, want, first.Plan.Fingerprint)
	assert.NotEqual(t, first.Plan.Fingerprint, second.Plan.Fingerprint)
}

func TestService_Plan(t *testing.T) {
	planner := &fakePlanner{}
	obs := &recordingObserver{}
	store := NewMemoryStore()
	svc := NewService(store, redis.NewCache(redis.Disabled(), "test"), nil).
		Register(contracts.StrategyMILP, planner).
		WithObserver(obs)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }

	res, err := svc.Plan(context.Background(), contracts.StrategyMILP, testRequest())
	require.NoError(t, err)
	assert.False(t, res.Cached)

	plan := res.Plan
	_, err = uuid.Parse(plan.ID)
	assert.NoError(t, err)
	assert.Len(t, plan.Fingerprint, 64)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), plan.CreatedAt)

	stored, err := svc.Get(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan, stored)

	latest, err := svc.Latest(context.Background(), contracts.StrategyMILP)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, latest.ID)

	// disabled cache always misses
	_, err = svc.Plan(context.Background(), contracts.StrategyMILP, testRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, planner.calls)
	assert.Equal(t, 2, obs.misses)
	assert.Equal(t, 2, obs.plans["milp/optimal"])
}

func TestService_Errors(t *testing.T) {
	obs := &recordingObserver{}
	svc := NewService(NewMemoryStore(), nil, nil).WithObserver(obs)

	_, err := svc.Plan(context.Background(), contracts.StrategyRank, testRequest())
	var verr *contracts.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "strategy", verr.Field)

	svc.Register(contracts.StrategyMILP, &fakePlanner{err: contracts.NewValidationError("rules.budget", "must be positive")})
	_, err = svc.Plan(context.Background(), contracts.StrategyMILP, testRequest())
	assert.True(t, errors.As(err, &verr))

	svc.Register(contracts.StrategyMILP, &fakePlanner{err: errors.New("solver crashed")})
	_, err = svc.Plan(context.Background(), contracts.StrategyMILP, testRequest())
	assert.Error(t, err)

	assert.Equal(t, map[string]int{"milp/invalid": 1, "milp/failed": 1}, obs.plans)

	_, err = svc.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrPlanNotFound))
}

func TestService_NoStore(t *testing.T) {
	svc := NewService(nil, nil, nil).Register(contracts.StrategyMILP, &fakePlanner{})

	res, err := svc.Plan(context.Background(), contracts.StrategyMILP, testRequest())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), res.Plan.ID)
	assert.True(t, errors.Is(err, ErrPlanNotFound))
}

func TestMemoryStore_Latest(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, &contracts.Plan{ID: "old", Strategy: contracts.StrategyMILP, CreatedAt: base}, nil))
	require.NoError(t, store.Save(ctx, &contracts.Plan{ID: "new", Strategy: contracts.StrategyMILP, CreatedAt: base.Add(time.Hour)}, nil))
	require.NoError(t, store.Save(ctx, &contracts.Plan{ID: "rank", Strategy: contracts.StrategyRank, CreatedAt: base.Add(2 * time.Hour)}, nil))
	assert.Error(t, store.Save(ctx, &contracts.Plan{}, nil))

	latest, err := store.Latest(ctx, contracts.StrategyMILP)
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)

	_, err = NewMemoryStore().Latest(ctx, contracts.StrategyRank)
	assert.True(t, errors.Is(err, ErrPlanNotFound))
}

func TestService_CacheHit_Live(t *testing.T) {
	if os.Getenv("REDIS_HOST") == "" {
		t.Skip("REDIS_HOST not set")
	}
	client, err := redis.New(context.Background(), &config.Config{Redis: config.RedisConfig{
		Host: os.Getenv("REDIS_HOST"), Port: "6379", Enabled: true,
	}})
	require.NoError(t, err)
	defer client.Close()

	planner := &fakePlanner{}
	svc := NewService(NewMemoryStore(), redis.NewCache(client, "wielermanager-test-"+uuid.NewString()), nil).
		Register(contracts.StrategyMILP, planner)

	first, err := svc.Plan(context.Background(), contracts.StrategyMILP, testRequest())
	require.NoError(t, err)
	second, err := svc.Plan(context.Background(), contracts.StrategyMILP, testRequest())
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Plan.ID, second.Plan.ID)
	assert.Equal(t, 1, planner.calls)
}

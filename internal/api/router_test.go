package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/wielermanager/internal/api/handlers"
	"github.com/wonny/wielermanager/internal/collector"
	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/metrics"
	"github.com/wonny/wielermanager/internal/milp"
	"github.com/wonny/wielermanager/internal/optimizer"
	"github.com/wonny/wielermanager/internal/plan"
	"github.com/wonny/wielermanager/internal/snapshot"
	"github.com/wonny/wielermanager/pkg/config"
	"github.com/wonny/wielermanager/pkg/logger"
	"github.com/wonny/wielermanager/pkg/redis"
)

type stubPlanner struct {
	err  error
	last *contracts.PlanRequest
}

func (p *stubPlanner) Plan(_ context.Context, req *contracts.PlanRequest) (*contracts.Plan, error) {
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &contracts.Plan{
		Strategy:  contracts.StrategyMILP,
		Status:    contracts.PlanOptimal,
		Objective: 80,
		Rules:     req.Rules,
	}, nil
}

type stubCollector struct {
	snap    *contracts.Snapshot
	err     error
	updated int
}

func (c *stubCollector) Collect(context.Context, collector.Config) (*contracts.Snapshot, error) {
	return c.snap, c.err
}

func (c *stubCollector) RefreshResults(_ context.Context, snap *contracts.Snapshot) (int, error) {
	if c.updated > 0 {
		snap.Races[0].Completed = true
	}
	return c.updated, c.err
}

func testSnapshot() *contracts.Snapshot {
	return &contracts.Snapshot{
		GameID:      "vrjr-m-26",
		Season:      2026,
		CollectedAt: time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC),
		Riders: []contracts.Candidate{
			{ID: "wout-van-aert", Name: "Wout van Aert", Cost: 12,
				ExpectedValues: map[string]float64{"e3-harelbeke": 80},
				Starts:         []string{"e3-harelbeke"}, GlobalScore: 80},
		},
		Races: []contracts.Period{{ID: "e3-harelbeke", Name: "E3 Saxo Classic", Date: "2026-03-27"}},
	}
}

type testServer struct {
	handler http.Handler
	store   *snapshot.FileStore
	planner *stubPlanner
	collect *stubCollector
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.NewNop()
	store := snapshot.NewFileStore(filepath.Join(t.TempDir(), "snapshot.json"))
	planner := &stubPlanner{}
	coll := &stubCollector{snap: testSnapshot()}
	m := metrics.New()

	plans := plan.NewService(plan.NewMemoryStore(), nil, log).
		Register(contracts.StrategyMILP, planner).
		Register(contracts.StrategyRank, planner)

	h := Handlers{
		Game:    handlers.NewGameHandler(store, log),
		Solve:   handlers.NewSolveHandler(plans, store, contracts.DefaultRules(), log),
		Collect: handlers.NewCollectHandler(coll, store, collector.DefaultConfig(), log),
	}
	return &testServer{
		handler: NewRouter(h, Options{Metrics: m}, log),
		store:   store,
		planner: planner,
		collect: coll,
		metrics: m,
	}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRiders_EmptyBeforeCollection(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/riders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/races", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCollectThenList(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/collect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary handlers.CollectResponse
	decode(t, rec, &summary)
	assert.Equal(t, 1, summary.Riders)
	assert.Equal(t, 1, summary.Races)

	rec = s.do(http.MethodGet, "/api/riders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var riders []contracts.Candidate
	decode(t, rec, &riders)
	require.Len(t, riders, 1)
	assert.Equal(t, "wout-van-aert", riders[0].ID)
}

func TestCollect_Failure(t *testing.T) {
	s := newTestServer(t)
	s.collect.err = errors.New("every race fetch failed")

	rec := s.do(http.MethodPost, "/api/collect", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRefreshResults(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/results", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, s.store.Save(context.Background(), testSnapshot()))
	s.collect.updated = 1
	rec = s.do(http.MethodPost, "/api/results", "")
	require.Equal(t, http.StatusOK, rec.Code)

	snap, err := s.store.Latest(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Races[0].Completed)
}

func TestSolve_FromSnapshot(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.Save(context.Background(), testSnapshot()))

	rec := s.do(http.MethodPost, "/api/solve", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "miss", rec.Header().Get("X-Plan-Cache"))

	var p contracts.Plan
	decode(t, rec, &p)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 80.0, p.Objective)
	assert.Equal(t, contracts.DefaultRules(), s.planner.last.Rules)
	assert.Len(t, s.planner.last.Candidates, 1)

	rec = s.do(http.MethodGet, "/api/plans/"+p.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stored contracts.Plan
	decode(t, rec, &stored)
	assert.Equal(t, p.ID, stored.ID)

	rec = s.do(http.MethodGet, "/api/plans/"+p.ID+"/realized", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accuracy"`)
}

func TestSolve_RulesOverride(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.Save(context.Background(), testSnapshot()))

	rec := s.do(http.MethodPost, "/api/solve/rank",
		`{"rules":{"team_size":2,"race_squad_size":1,"budget":30,"max_transfers":0,"free_allowance":0}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, s.planner.last.Rules.TeamSize)
	assert.Equal(t, 30.0, s.planner.last.Rules.Budget)
}

func TestSolve_Errors(t *testing.T) {
	s := newTestServer(t)

	// nothing collected yet
	rec := s.do(http.MethodPost, "/api/solve", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/solve", `{"riders": [`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "body", body["field"])

	require.NoError(t, s.store.Save(context.Background(), testSnapshot()))

	s.planner.err = contracts.NewValidationError("rules.team_size", "must be positive")
	rec = s.do(http.MethodPost, "/api/solve", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, "rules.team_size", body["field"])

	s.planner.err = &optimizer.SolveError{Status: milp.StatusInfeasible}
	rec = s.do(http.MethodPost, "/api/solve", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, "Infeasible", body["status"])

	s.planner.err = fmt.Errorf("solve with branchbound: %w", milp.ErrModelTooLarge)
	rec = s.do(http.MethodPost, "/api/solve", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body = nil
	decode(t, rec, &body)
	assert.Equal(t, "Not Solved", body["status"])
	assert.Contains(t, body["error"], "too large")
	assert.Contains(t, body["hint"], "cbc")

	s.planner.err = errors.New("boom")
	rec = s.do(http.MethodPost, "/api/solve", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSolve_RateLimitHeaders(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.Save(context.Background(), testSnapshot()))

	log := logger.NewNop()
	plans := plan.NewService(plan.NewMemoryStore(), nil, log).Register(contracts.StrategyMILP, s.planner)
	h := Handlers{
		Game:  handlers.NewGameHandler(s.store, log),
		Solve: handlers.NewSolveHandler(plans, s.store, contracts.DefaultRules(), log),
	}
	limited := NewRouter(h, Options{Limiter: redis.NewRateLimiter(redis.Disabled(), "test")}, log)

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/solve", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Remaining"))

	// collection routes are not mounted without a collect handler
	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/collect", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPlan_NotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/plans/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/api/riders", "")

	rec := s.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/riders"`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodOptions, "/api/solve", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_WriteTimeout(t *testing.T) {
	assert.Equal(t, 90*time.Second, writeTimeout(time.Minute))
	assert.Equal(t, 2*time.Minute, writeTimeout(0))

	srv := New(&config.Config{Port: "0"}, logger.NewNop(), http.NotFoundHandler())
	assert.NotNil(t, srv.Handler())
}

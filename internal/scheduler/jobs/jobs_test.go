package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/wielermanager/internal/audit"
	"github.com/wonny/wielermanager/internal/collector"
	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/plan"
	"github.com/wonny/wielermanager/pkg/logger"
)

type memSnapshots struct {
	snap  *contracts.Snapshot
	saves int
}

func (m *memSnapshots) Latest(context.Context) (*contracts.Snapshot, error) {
	if m.snap == nil {
		return nil, contracts.ErrNoSnapshot
	}
	return m.snap, nil
}

func (m *memSnapshots) Save(_ context.Context, snap *contracts.Snapshot) error {
	m.snap = snap
	m.saves++
	return nil
}

type fakeCollector struct{ err error }

func (f fakeCollector) Collect(context.Context, collector.Config) (*contracts.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return testSnapshot(), nil
}

type fakeRefresher struct{ updated int }

func (f fakeRefresher) RefreshResults(_ context.Context, snap *contracts.Snapshot) (int, error) {
	if f.updated > 0 {
		snap.Races[0].Completed = true
		snap.Races[0].Results = map[string]contracts.RaceResult{"a": {Rank: 1, Points: 50}}
	}
	return f.updated, nil
}

type fakePlans struct {
	plan *contracts.Plan
	reqs []*contracts.PlanRequest
}

func (f *fakePlans) Latest(context.Context, contracts.Strategy) (*contracts.Plan, error) {
	if f.plan == nil {
		return nil, plan.ErrPlanNotFound
	}
	return f.plan, nil
}

func (f *fakePlans) Plan(_ context.Context, _ contracts.Strategy, req *contracts.PlanRequest) (*plan.Result, error) {
	f.reqs = append(f.reqs, req)
	return &plan.Result{Plan: &contracts.Plan{ID: "p1"}}, nil
}

type fakeReports struct{ saved []*audit.RealizedReport }

func (f *fakeReports) SaveRealized(_ context.Context, r *audit.RealizedReport) error {
	f.saved = append(f.saved, r)
	return nil
}

func testSnapshot() *contracts.Snapshot {
	return &contracts.Snapshot{
		Riders: []contracts.Candidate{{ID: "a", Cost: 1, ExpectedValues: map[string]float64{"r1": 10, "r2": 5}}},
		Races:  []contracts.Period{{ID: "r1"}, {ID: "r2"}},
	}
}

func TestCollectJob(t *testing.T) {
	store := &memSnapshots{}
	job := NewCollectJob(fakeCollector{}, store, collector.DefaultConfig(), logger.NewNop())

	assert.Equal(t, "collect", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, store.saves)

	failing := NewCollectJob(fakeCollector{err: errors.New("pcs down")}, store, collector.DefaultConfig(), logger.NewNop())
	assert.Error(t, failing.Run(context.Background()))
}

func TestResultsJob_ScoresLatestPlan(t *testing.T) {
	store := &memSnapshots{snap: testSnapshot()}
	plans := &fakePlans{plan: &contracts.Plan{
		ID:      "p1",
		Periods: []contracts.PeriodPlan{{PeriodID: "r1", Selected: []string{"a"}}, {PeriodID: "r2", Selected: []string{"a"}}},
	}}
	reports := &fakeReports{}

	job := NewResultsJob(fakeRefresher{updated: 1}, store, plans, reports, logger.NewNop())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 1, store.saves)
	require.Len(t, reports.saved, 1)
	assert.Equal(t, "p1", reports.saved[0].PlanID)
	assert.Equal(t, 50.0, reports.saved[0].TotalActual)
}

func TestResultsJob_NothingNew(t *testing.T) {
	store := &memSnapshots{snap: testSnapshot()}
	reports := &fakeReports{}

	job := NewResultsJob(fakeRefresher{}, store, &fakePlans{}, reports, logger.NewNop())
	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, store.saves)
	assert.Empty(t, reports.saved)

	// no plan yet is not an error
	job = NewResultsJob(fakeRefresher{updated: 1}, store, &fakePlans{}, reports, logger.NewNop())
	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, reports.saved)

	job = NewResultsJob(fakeRefresher{}, &memSnapshots{}, nil, nil, logger.NewNop())
	assert.ErrorIs(t, job.Run(context.Background()), contracts.ErrNoSnapshot)
}

func TestReplanJob_SkipsCompletedRaces(t *testing.T) {
	snap := testSnapshot()
	snap.Races[0].Completed = true
	plans := &fakePlans{}

	job := NewReplanJob(&memSnapshots{snap: snap}, plans, contracts.DefaultRules(), logger.NewNop())
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, plans.reqs, 1)
	require.Len(t, plans.reqs[0].Periods, 1)
	assert.Equal(t, "r2", plans.reqs[0].Periods[0].ID)
	assert.Equal(t, contracts.DefaultRules(), plans.reqs[0].Rules)

	snap.Races[1].Completed = true
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, plans.reqs, 1)
}

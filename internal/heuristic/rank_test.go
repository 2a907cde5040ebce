package heuristic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/wielermanager/internal/contracts"
)

func rankRequest() *contracts.PlanRequest {
	return &contracts.PlanRequest{
		Candidates: []contracts.Candidate{
			{ID: "van-aert", Cost: 12, Starts: []string{"omloop", "e3"}, Ranks: map[string]int{"omloop": 2, "e3": 1},
				ExpectedValues: map[string]float64{"omloop": 80, "e3": 100}},
			{ID: "van-der-poel", Cost: 14, Starts: []string{"e3"}, Ranks: map[string]int{"e3": 2},
				ExpectedValues: map[string]float64{"e3": 80}},
			{ID: "pedersen", Cost: 10, Starts: []string{"omloop", "e3"}, Ranks: map[string]int{"omloop": 1},
				ExpectedValues: map[string]float64{"omloop": 100, "e3": 1}},
			{ID: "wout-helper", Cost: 2, Starts: []string{"omloop"}},
		},
		Periods: []contracts.Period{{ID: "omloop"}, {ID: "e3"}},
		Rules:   contracts.Rules{TeamSize: 20, RaceSquadSize: 2, Budget: 40},
	}
}

func TestRankPlanner_Plan(t *testing.T) {
	plan, err := NewRankPlanner(nil).Plan(context.Background(), rankRequest())
	require.NoError(t, err)

	assert.Equal(t, contracts.StrategyRank, plan.Strategy)
	assert.Equal(t, contracts.PlanHeuristic, plan.Status)
	require.Len(t, plan.Periods, 2)

	assert.Equal(t, []string{"pedersen", "van-aert"}, plan.Periods[0].Selected)
	assert.Equal(t, []string{"van-aert", "van-der-poel"}, plan.Periods[1].Selected)
	assert.InDelta(t, 100+80+100+80, plan.Objective, 1e-9)

	// whole pool owned, no budget applied
	assert.Len(t, plan.Periods[0].Owned, 4)
	assert.InDelta(t, 38.0, plan.Periods[0].Cost, 1e-9)
	assert.InDelta(t, 2.0, plan.Periods[0].RemainingBudget, 1e-9)
	assert.Empty(t, plan.Periods[1].Acquired)
	assert.Equal(t, 0, plan.TotalTransfers())
}

func TestSelect_UnrankedStartersFillSquad(t *testing.T) {
	req := rankRequest()
	req.Rules.RaceSquadSize = 12

	got := Select(req.Candidates, req.Periods[0], 12)

	ids := make([]string, len(got))
	for i, c := range got {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"pedersen", "van-aert", "wout-helper"}, ids)
}

func TestSelect_StartersFromRace(t *testing.T) {
	candidates := []contracts.Candidate{
		{ID: "a", Ranks: map[string]int{"r": 3}},
		{ID: "b", Ranks: map[string]int{"r": 1}},
		{ID: "c"},
	}
	race := contracts.Period{ID: "r", Starters: []string{"a", "c"}}

	got := Select(candidates, race, 5)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestSelect_NoStartInformation(t *testing.T) {
	candidates := []contracts.Candidate{
		{ID: "a", ExpectedValues: map[string]float64{"r": 5}},
		{ID: "b", Ranks: map[string]int{"r": 4}},
		{ID: "c", ExpectedValues: map[string]float64{"other": 5}},
	}

	got := Select(candidates, contracts.Period{ID: "r"}, 5)

	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestRankPlanner_Validation(t *testing.T) {
	req := rankRequest()
	req.Rules.RaceSquadSize = 0

	_, err := NewRankPlanner(nil).Plan(context.Background(), req)
	var verr *contracts.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = NewRankPlanner(nil).Plan(context.Background(), &contracts.PlanRequest{})
	assert.True(t, errors.As(err, &verr))
}

// Package heuristic holds the rank strategy: a per-race top-N pick by
// top-competitor rank that ignores budget, continuity and transfers.
package heuristic

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/pkg/logger"
)

// UnrankedRank sorts riders without a top-competitor rank last
const UnrankedRank = 999

// RankPlanner selects, for each race independently, the best ranked starters
type RankPlanner struct {
	logger *logger.Logger
}

// NewRankPlanner creates a rank strategy planner
func NewRankPlanner(log *logger.Logger) *RankPlanner {
	if log == nil {
		log = logger.NewNop()
	}
	return &RankPlanner{logger: log.Component("rank")}
}

// Plan implements contracts.Planner.
// The whole pool is reported as owned; budget and transfer rules are not applied.
func (r *RankPlanner) Plan(ctx context.Context, req *contracts.PlanRequest) (*contracts.Plan, error) {
	if req == nil || len(req.Periods) == 0 {
		return nil, contracts.NewValidationError("races", "at least one race is required")
	}
	if req.Rules.RaceSquadSize <= 0 {
		return nil, contracts.NewValidationError("rules.race_squad_size", "must be positive, got %d", req.Rules.RaceSquadSize)
	}

	pool := make([]string, len(req.Candidates))
	poolCost := 0.0
	for i, c := range req.Candidates {
		pool[i] = c.ID
		poolCost += c.Cost
	}

	plan := &contracts.Plan{
		Strategy:  contracts.StrategyRank,
		Status:    contracts.PlanHeuristic,
		Rules:     req.Rules,
		Periods:   make([]contracts.PeriodPlan, 0, len(req.Periods)),
		CreatedAt: time.Now(),
	}

	for _, period := range req.Periods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		selected := Select(req.Candidates, period, req.Rules.RaceSquadSize)
		pp := contracts.PeriodPlan{
			PeriodID:        period.ID,
			Owned:           pool,
			Selected:        make([]string, 0, len(selected)),
			Acquired:        []string{},
			Released:        []string{},
			Cost:            poolCost,
			RemainingBudget: req.Rules.Budget - poolCost,
		}
		for _, c := range selected {
			pp.Selected = append(pp.Selected, c.ID)
			plan.Objective += c.ExpectedValue(period.ID)
		}
		plan.Periods = append(plan.Periods, pp)
	}

	r.logger.WithFields(map[string]interface{}{
		"riders":       len(req.Candidates),
		"races":        len(req.Periods),
		"total_points": plan.Objective,
	}).Info("Rank plan ready")

	return plan, nil
}

// Select returns up to n starters of the race, best rank first.
// Ties keep input order.
func Select(candidates []contracts.Candidate, period contracts.Period, n int) []*contracts.Candidate {
	starters := make(map[string]bool, len(period.Starters))
	for _, id := range period.Starters {
		starters[id] = true
	}

	eligible := make([]*contracts.Candidate, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if starts(c, period, starters) {
			eligible = append(eligible, c)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return rankIn(eligible[i], period.ID) < rankIn(eligible[j], period.ID)
	})

	if len(eligible) > n {
		eligible = eligible[:n]
	}
	return eligible
}

// starts uses start lists when known and falls back to rank or value entries
func starts(c *contracts.Candidate, period contracts.Period, starters map[string]bool) bool {
	if starters[c.ID] || c.StartsIn(period.ID) {
		return true
	}
	if len(c.Starts) > 0 || len(starters) > 0 {
		return false
	}
	if _, ok := c.Ranks[period.ID]; ok {
		return true
	}
	_, ok := c.ExpectedValues[period.ID]
	return ok
}

func rankIn(c *contracts.Candidate, periodID string) int {
	if r, ok := c.Ranks[periodID]; ok {
		return r
	}
	return UnrankedRank
}

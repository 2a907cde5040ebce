// Package audit re-verifies season plans and scores them against actual results.
package audit

import (
	"fmt"
	"math"

	"github.com/wonny/wielermanager/internal/contracts"
)

// DefaultTolerance absorbs solver round-off in budget and point sums
const DefaultTolerance = 1e-6

// Violation is one broken plan invariant
type Violation struct {
	PeriodID string `json:"race_id,omitempty"`
	Rule     string `json:"rule"`
	Detail   string `json:"detail"`
}

func (v Violation) String() string {
	if v.PeriodID == "" {
		return fmt.Sprintf("%s: %s", v.Rule, v.Detail)
	}
	return fmt.Sprintf("%s [%s]: %s", v.Rule, v.PeriodID, v.Detail)
}

// Check verifies every roster, transfer, fee and budget invariant of an
// optimized plan against the request it was produced from.
// An empty result means the plan is consistent.
func Check(req *contracts.PlanRequest, plan *contracts.Plan, tol float64) []Violation {
	var out []Violation
	add := func(period, rule, format string, args ...interface{}) {
		out = append(out, Violation{PeriodID: period, Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}

	if len(plan.Periods) != len(req.Periods) {
		add("", "races", "plan has %d races, request has %d", len(plan.Periods), len(req.Periods))
		return out
	}

	rules := req.Rules
	cands := req.CandidateIndex()
	var prev map[string]bool
	cumulative := 0
	objective := 0.0

	for p, pp := range plan.Periods {
		race := req.Periods[p].ID
		if pp.PeriodID != race {
			add(race, "order", "expected race %q at position %d, got %q", race, p, pp.PeriodID)
			continue
		}

		owned := toSet(pp.Owned)
		if len(owned) != len(pp.Owned) {
			add(race, "team_size", "team lists a rider twice")
		}
		if len(pp.Owned) != rules.TeamSize {
			add(race, "team_size", "owns %d riders, want %d", len(pp.Owned), rules.TeamSize)
		}
		if len(pp.Selected) != rules.RaceSquadSize {
			add(race, "squad_size", "fields %d riders, want %d", len(pp.Selected), rules.RaceSquadSize)
		}

		cost := 0.0
		for _, id := range pp.Owned {
			c, ok := cands[id]
			if !ok {
				add(race, "unknown_rider", "rider %q is not a candidate", id)
				continue
			}
			cost += req.Candidates[c].Cost
		}
		for _, id := range pp.Selected {
			if !owned[id] {
				add(race, "must_own", "rider %q is fielded but not owned", id)
			}
			if c, ok := cands[id]; ok {
				objective += req.Candidates[c].ExpectedValue(race)
			}
		}

		if p == 0 {
			if len(pp.Acquired) > 0 || len(pp.Released) > 0 {
				add(race, "initial_transfers", "first race lists transfers")
			}
		} else {
			if len(pp.Acquired) != len(pp.Released) {
				add(race, "transfer_balance", "%d in, %d out", len(pp.Acquired), len(pp.Released))
			}
			next := make(map[string]bool, len(prev))
			for id := range prev {
				next[id] = true
			}
			for _, id := range pp.Acquired {
				if prev[id] {
					add(race, "max_in", "rider %q acquired while already owned", id)
				}
				next[id] = true
			}
			for _, id := range pp.Released {
				if !prev[id] {
					add(race, "max_out", "rider %q released while not owned", id)
				}
				delete(next, id)
			}
			if !sameSet(next, owned) {
				add(race, "evolution", "team differs from previous team plus transfers")
			}
		}

		cumulative += len(pp.Acquired)
		wantFee := math.Max(0, float64(cumulative-rules.FreeAllowance))
		if math.Abs(pp.Fee-wantFee) > tol {
			add(race, "fee", "fee %v, want %v after %d transfers", pp.Fee, wantFee, cumulative)
		}
		if math.Abs(pp.Cost-cost) > tol {
			add(race, "budget_used", "reported %v, riders cost %v", pp.Cost, cost)
		}
		if cost+pp.Fee > rules.Budget+tol {
			add(race, "budget", "cost %v + fee %v exceeds budget %v", cost, pp.Fee, rules.Budget)
		}
		if math.Abs(pp.RemainingBudget-(rules.Budget-pp.Cost-pp.Fee)) > tol {
			add(race, "remaining_budget", "reported %v, want %v", pp.RemainingBudget, rules.Budget-pp.Cost-pp.Fee)
		}

		prev = owned
	}

	if cumulative > rules.MaxTransfers {
		add("", "max_global_transfers", "%d transfers, cap %d", cumulative, rules.MaxTransfers)
	}
	if math.Abs(objective-plan.Objective) > tol*math.Max(1, math.Abs(objective)) {
		add("", "objective", "reported %v, fielded riders sum to %v", plan.Objective, objective)
	}

	return out
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

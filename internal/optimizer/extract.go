package optimizer

import (
	"time"

	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/milp"
)

// extract reads the per-race roster decisions from a solved model.
// Binaries are read at a 0.5 threshold; the fee is reported at its tight
// value, which never exceeds the solver's and so keeps the budget row valid.
func extract(f *formulation, sol *milp.Solution, policy FeePolicy) *contracts.Plan {
	on := func(col int) bool {
		return col != noColumn && sol.Value(col) > 0.5
	}

	plan := &contracts.Plan{
		Strategy:  contracts.StrategyMILP,
		Rules:     f.rules,
		Periods:   make([]contracts.PeriodPlan, 0, len(f.periods)),
		CreatedAt: time.Now(),
	}

	cumulative := 0
	for p, period := range f.periods {
		pp := contracts.PeriodPlan{
			PeriodID: period.ID,
			Owned:    []string{},
			Selected: []string{},
			Acquired: []string{},
			Released: []string{},
		}
		for c := range f.candidates {
			cand := &f.candidates[c]
			if on(f.owned[c][p]) {
				pp.Owned = append(pp.Owned, cand.ID)
				pp.Cost += cand.Cost
			}
			if on(f.selected[c][p]) {
				pp.Selected = append(pp.Selected, cand.ID)
				plan.Objective += cand.ExpectedValue(period.ID)
			}
			if on(f.acquired[c][p]) {
				pp.Acquired = append(pp.Acquired, cand.ID)
			}
			if on(f.released[c][p]) {
				pp.Released = append(pp.Released, cand.ID)
			}
		}
		cumulative += len(pp.Acquired)
		pp.Fee = policy.Fee(cumulative)
		pp.RemainingBudget = f.rules.Budget - pp.Cost - pp.Fee
		plan.Periods = append(plan.Periods, pp)
	}

	return plan
}

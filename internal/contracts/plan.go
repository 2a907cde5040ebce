package contracts

import (
	"slices"
	"time"
)

// PlanStatus is the overall outcome of a planning request
type PlanStatus string

const (
	PlanOptimal   PlanStatus = "optimal"   // proven optimal by the solver
	PlanFeasible  PlanStatus = "feasible"  // time-limited incumbent, not proven optimal
	PlanHeuristic PlanStatus = "heuristic" // rank strategy, ignores budget and transfers
)

// Strategy names the producer of a plan
type Strategy string

const (
	StrategyMILP Strategy = "milp"
	StrategyRank Strategy = "rank"
)

// Plan is the season plan passed to API consumers and storage
// ⭐ Contract: JSON field names are shared with the web app
type Plan struct {
	ID          string       `json:"id,omitempty"`
	Fingerprint string       `json:"fingerprint,omitempty"`
	Strategy    Strategy     `json:"strategy"`
	Status      PlanStatus   `json:"status"`
	Objective   float64      `json:"total_points"`
	Rules       Rules        `json:"rules"`
	Periods     []PeriodPlan `json:"races"`
	SolverInfo  *SolverInfo  `json:"solver,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// SolverInfo describes how a MILP plan was obtained
type SolverInfo struct {
	Backend   string        `json:"backend"`
	RawStatus string        `json:"raw_status"`
	Nodes     int           `json:"nodes,omitempty"`
	Duration  time.Duration `json:"duration"`
	Variables int           `json:"variables"`
	Rows      int           `json:"constraints"`
}

// PeriodPlan is the roster decision for one race
type PeriodPlan struct {
	PeriodID        string   `json:"race_id"`
	Owned           []string `json:"team"`
	Selected        []string `json:"selected"`
	Acquired        []string `json:"transfers_in"`
	Released        []string `json:"transfers_out"`
	Cost            float64  `json:"budget_used"`
	Fee             float64  `json:"fees_paid"`
	RemainingBudget float64  `json:"remaining_budget"`
}

// IsOwned reports whether the candidate is on the roster for this race
func (pp *PeriodPlan) IsOwned(id string) bool {
	return slices.Contains(pp.Owned, id)
}

// IsSelected reports whether the candidate is fielded in this race
func (pp *PeriodPlan) IsSelected(id string) bool {
	return slices.Contains(pp.Selected, id)
}

// TotalTransfers returns the number of acquisitions over the whole plan
func (p *Plan) TotalTransfers() int {
	total := 0
	for _, pp := range p.Periods {
		total += len(pp.Acquired)
	}
	return total
}

// Period finds the plan entry for a race
func (p *Plan) Period(id string) (*PeriodPlan, bool) {
	for i := range p.Periods {
		if p.Periods[i].PeriodID == id {
			return &p.Periods[i], true
		}
	}
	return nil, false
}

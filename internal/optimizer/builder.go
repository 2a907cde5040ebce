package optimizer

import (
	"fmt"

	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/milp"
)

// noColumn marks the missing transfer columns of period 0
const noColumn = -1

// formulation maps domain indices to model columns.
// Candidate index c and period index p follow the request order.
type formulation struct {
	model      *milp.Model
	candidates []contracts.Candidate
	periods    []contracts.Period
	rules      contracts.Rules

	owned    [][]int // [c][p]
	selected [][]int // [c][p]
	acquired [][]int // [c][p], noColumn at p = 0
	released [][]int // [c][p], noColumn at p = 0
	fee      []int   // [p]
}

// buildModel creates columns and rows for a validated request
func buildModel(req *contracts.PlanRequest, policy FeePolicy) *formulation {
	f := &formulation{
		model:      milp.NewModel("wielermanager", true),
		candidates: req.Candidates,
		periods:    req.Periods,
		rules:      req.Rules,
	}
	f.addColumns()
	policy.addFees(f)
	f.addRosterRows()
	f.addTransferRows()
	f.addBudgetRows()
	return f
}

func (f *formulation) addColumns() {
	m := f.model
	nc, np := len(f.candidates), len(f.periods)
	f.owned = make([][]int, nc)
	f.selected = make([][]int, nc)
	f.acquired = make([][]int, nc)
	f.released = make([][]int, nc)

	for c, cand := range f.candidates {
		f.owned[c] = make([]int, np)
		f.selected[c] = make([]int, np)
		f.acquired[c] = make([]int, np)
		f.released[c] = make([]int, np)
		for p, period := range f.periods {
			f.owned[c][p] = m.AddBinary(fmt.Sprintf("owned_%s_%s", cand.ID, period.ID))
			f.selected[c][p] = m.AddBinary(fmt.Sprintf("selected_%s_%s", cand.ID, period.ID))
			if p == 0 {
				f.acquired[c][p] = noColumn
				f.released[c][p] = noColumn
				continue
			}
			f.acquired[c][p] = m.AddBinary(fmt.Sprintf("acquired_%s_%s", cand.ID, period.ID))
			f.released[c][p] = m.AddBinary(fmt.Sprintf("released_%s_%s", cand.ID, period.ID))
		}
	}
}

// addRosterRows fixes roster and squad sizes and keeps selection inside ownership
func (f *formulation) addRosterRows() {
	m := f.model
	for p, period := range f.periods {
		var team, squad milp.Expr
		for c, cand := range f.candidates {
			team = team.Add(f.owned[c][p], 1)
			squad = squad.Add(f.selected[c][p], 1)

			// selected[c][p] <= owned[c][p]
			m.AddConstraint(fmt.Sprintf("must_own_%s_%s", cand.ID, period.ID),
				milp.Expr{}.Add(f.selected[c][p], 1).Add(f.owned[c][p], -1), milp.LE, 0)
		}
		m.AddConstraint(fmt.Sprintf("team_size_%s", period.ID), team, milp.EQ, float64(f.rules.TeamSize))
		m.AddConstraint(fmt.Sprintf("squad_size_%s", period.ID), squad, milp.EQ, float64(f.rules.RaceSquadSize))
	}
}

// addTransferRows chains ownership between consecutive periods
func (f *formulation) addTransferRows() {
	m := f.model
	var total milp.Expr

	for p := 1; p < len(f.periods); p++ {
		period := f.periods[p]
		var balance milp.Expr
		for c, cand := range f.candidates {
			in, out := f.acquired[c][p], f.released[c][p]
			prev, cur := f.owned[c][p-1], f.owned[c][p]

			// owned[p] - owned[p-1] - acquired[p] + released[p] = 0
			m.AddConstraint(fmt.Sprintf("evolution_%s_%s", cand.ID, period.ID),
				milp.Expr{}.Add(cur, 1).Add(prev, -1).Add(in, -1).Add(out, 1), milp.EQ, 0)
			// acquired[p] <= 1 - owned[p-1]
			m.AddConstraint(fmt.Sprintf("max_in_%s_%s", cand.ID, period.ID),
				milp.Expr{}.Add(in, 1).Add(prev, 1), milp.LE, 1)
			// released[p] <= owned[p-1]
			m.AddConstraint(fmt.Sprintf("max_out_%s_%s", cand.ID, period.ID),
				milp.Expr{}.Add(out, 1).Add(prev, -1), milp.LE, 0)

			balance = balance.Add(in, 1).Add(out, -1)
			total = total.Add(in, 1)
		}
		m.AddConstraint(fmt.Sprintf("transfer_balance_%s", period.ID), balance, milp.EQ, 0)
	}

	if len(f.periods) > 1 {
		m.AddConstraint("max_global_transfers", total, milp.LE, float64(f.rules.MaxTransfers))
	}
}

// addBudgetRows keeps the owned cost plus the fee within budget
func (f *formulation) addBudgetRows() {
	m := f.model
	for p, period := range f.periods {
		expr := milp.Expr{}.Add(f.fee[p], 1)
		for c, cand := range f.candidates {
			if cand.Cost != 0 {
				expr = expr.Add(f.owned[c][p], cand.Cost)
			}
		}
		m.AddConstraint(fmt.Sprintf("budget_%s", period.ID), expr, milp.LE, f.rules.Budget)
	}
}

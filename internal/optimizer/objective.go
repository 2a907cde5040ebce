package optimizer

import "github.com/wonny/wielermanager/internal/milp"

// setObjective maximizes the expected points of fielded riders.
// Zero-value pairs are left out of the sum but stay selectable.
func (f *formulation) setObjective() {
	var obj milp.Expr
	for c := range f.candidates {
		cand := &f.candidates[c]
		for p, period := range f.periods {
			if v := cand.ExpectedValue(period.ID); v != 0 {
				obj = obj.Add(f.selected[c][p], v)
			}
		}
	}
	f.model.SetObjective(obj)
}

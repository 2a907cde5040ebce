package optimizer

import (
	"fmt"
	"math"

	"github.com/wonny/wielermanager/internal/milp"
)

// FeePolicy charges one budget unit per transfer beyond the free allowance.
//
// fee(p) >= cumulative acquisitions(1..p) - allowance, with fee(p) >= 0 as a
// bound. Fee has no objective weight and only consumes budget, so any optimum
// remains optimal at the tight value max(0, cumulative - allowance); no
// indicator variable is needed for the max.
type FeePolicy struct {
	FreeAllowance int
}

// Fee returns the fee owed after the given number of cumulative transfers
func (fp FeePolicy) Fee(cumulative int) float64 {
	return math.Max(0, float64(cumulative-fp.FreeAllowance))
}

// addFees creates one fee column per period and its lower-bound rows.
// Period 0 precedes every transfer, so its fee is fixed at 0.
func (fp FeePolicy) addFees(f *formulation) {
	m := f.model
	f.fee = make([]int, len(f.periods))

	for p, period := range f.periods {
		if p == 0 {
			f.fee[p] = m.AddContinuous(fmt.Sprintf("fee_%s", period.ID), 0, 0)
			continue
		}
		f.fee[p] = m.AddContinuous(fmt.Sprintf("fee_%s", period.ID), 0, math.Inf(1))

		// fee[p] - sum_{q<=p} acquired[c][q] >= -allowance
		expr := milp.Expr{}.Add(f.fee[p], 1)
		for q := 1; q <= p; q++ {
			for c := range f.candidates {
				expr = expr.Add(f.acquired[c][q], -1)
			}
		}
		m.AddConstraint(fmt.Sprintf("fee_formula_%s", period.ID), expr, milp.GE, -float64(fp.FreeAllowance))
	}
}

package milp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Dense two-phase tableau simplex used for the LP relaxations of branch-and-bound.
//
// Every node rebuilds its tableau from the sparse rows with the node's bounds:
// fixed columns are substituted out, the remaining columns are shifted to a
// zero lower bound, finite upper bounds become explicit <= rows. Phase 1
// minimizes the sum of artificials; artificials left basic at zero are pivoted
// out or their redundant rows dropped before phase 2. Pricing is Dantzig until
// a run of degenerate pivots, then Bland's rule, which cannot cycle.

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
	lpStopped
	lpIterLimit
)

const (
	pivotEps     = 1e-9
	feasEps      = 1e-7
	fixedEps     = 1e-12
	blandAfter   = 50 // consecutive degenerate pivots before switching to Bland
	stopCheckMod = 128
)

type lpResult struct {
	status lpStatus
	x      []float64 // full column vector in model space
	value  float64   // cost·x (maximization sense of the supplied cost)
}

// tableau rows are [coefficients..., rhs]
type tableau struct {
	rows  [][]float64
	basis []int
	ncols int
	iters int
	stop  func() bool
}

func (t *tableau) pivot(r, c int, z []float64) {
	pr := t.rows[r]
	floats.Scale(1/pr[c], pr)
	pr[c] = 1
	for i, row := range t.rows {
		if i == r {
			continue
		}
		if f := row[c]; f != 0 {
			floats.AddScaled(row, -f, pr)
			row[c] = 0
			if rhs := row[t.ncols]; rhs < 0 && rhs > -pivotEps {
				row[t.ncols] = 0
			}
		}
	}
	if f := z[c]; f != 0 {
		floats.AddScaled(z, -f, pr)
		z[c] = 0
	}
	t.basis[r] = c
}

// reducedCosts prices cost against the current basis.
// z[j] is the reduced cost of column j, z[ncols] is -objective.
func (t *tableau) reducedCosts(cost []float64) []float64 {
	z := make([]float64, t.ncols+1)
	copy(z, cost)
	for i, row := range t.rows {
		if cb := cost[t.basis[i]]; cb != 0 {
			floats.AddScaled(z, -cb, row)
		}
	}
	return z
}

// maximize runs primal simplex on cost from the current feasible basis
func (t *tableau) maximize(cost []float64) (lpStatus, []float64) {
	z := t.reducedCosts(cost)
	maxIter := 50 * (len(t.rows) + t.ncols + 10)
	degenerate := 0

	for iter := 0; iter < maxIter; iter++ {
		t.iters++
		if t.stop != nil && t.iters%stopCheckMod == 0 && t.stop() {
			return lpStopped, z
		}

		bland := degenerate > blandAfter
		enter := -1
		best := pivotEps
		for j := 0; j < t.ncols; j++ {
			if z[j] <= pivotEps {
				continue
			}
			if bland {
				enter = j
				break
			}
			if z[j] > best {
				best = z[j]
				enter = j
			}
		}
		if enter < 0 {
			return lpOptimal, z
		}

		leave := -1
		minRatio := math.Inf(1)
		for i, row := range t.rows {
			a := row[enter]
			if a <= pivotEps {
				continue
			}
			ratio := row[t.ncols] / a
			switch {
			case ratio < minRatio-pivotEps:
				minRatio, leave = ratio, i
			case ratio <= minRatio+pivotEps && t.basis[i] < t.basis[leave]:
				minRatio, leave = ratio, i
			}
		}
		if leave < 0 {
			return lpUnbounded, z
		}

		if minRatio <= pivotEps {
			degenerate++
		} else {
			degenerate = 0
		}
		t.pivot(leave, enter, z)
	}
	return lpIterLimit, z
}

type lpRow struct {
	coef  []float64
	sense Sense
	rhs   float64
}

// solveLP maximizes cost·x over the model rows with the given column bounds.
// cost is indexed by model column.
func solveLP(m *Model, lower, upper, cost []float64, stop func() bool) lpResult {
	n := len(m.Vars)

	// column map: free columns get a tableau index, fixed ones are substituted
	col := make([]int, n)
	nfree := 0
	for j := 0; j < n; j++ {
		if upper[j] < lower[j]-fixedEps {
			return lpResult{status: lpInfeasible}
		}
		if upper[j]-lower[j] <= fixedEps {
			col[j] = -1
			continue
		}
		col[j] = nfree
		nfree++
	}

	rows := make([]lpRow, 0, len(m.Constraints)+nfree)
	for _, c := range m.Constraints {
		coef := make([]float64, nfree)
		rhs := c.RHS
		nonzero := false
		for _, term := range c.Expr {
			rhs -= term.Coef * lower[term.Var]
			if k := col[term.Var]; k >= 0 && term.Coef != 0 {
				coef[k] += term.Coef
				nonzero = true
			}
		}
		if !nonzero {
			if !constantRowHolds(c.Sense, rhs) {
				return lpResult{status: lpInfeasible}
			}
			continue
		}
		rows = append(rows, lpRow{coef: coef, sense: c.Sense, rhs: rhs})
	}
	for j := 0; j < n; j++ {
		k := col[j]
		if k < 0 || math.IsInf(upper[j], 1) {
			continue
		}
		coef := make([]float64, nfree)
		coef[k] = 1
		rows = append(rows, lpRow{coef: coef, sense: LE, rhs: upper[j] - lower[j]})
	}

	// rhs >= 0
	nslack, nart := 0, 0
	for i := range rows {
		r := &rows[i]
		if r.rhs < 0 {
			floats.Scale(-1, r.coef)
			r.rhs = -r.rhs
			switch r.sense {
			case LE:
				r.sense = GE
			case GE:
				r.sense = LE
			}
		}
		switch r.sense {
		case LE:
			nslack++
		case GE:
			nslack++
			nart++
		case EQ:
			nart++
		}
	}

	ncols := nfree + nslack + nart
	t := &tableau{
		rows:  make([][]float64, len(rows)),
		basis: make([]int, len(rows)),
		ncols: ncols,
		stop:  stop,
	}
	slack, art := nfree, nfree+nslack
	for i, r := range rows {
		row := make([]float64, ncols+1)
		copy(row, r.coef)
		row[ncols] = r.rhs
		switch r.sense {
		case LE:
			row[slack] = 1
			t.basis[i] = slack
			slack++
		case GE:
			row[slack] = -1
			slack++
			row[art] = 1
			t.basis[i] = art
			art++
		case EQ:
			row[art] = 1
			t.basis[i] = art
			art++
		}
		t.rows[i] = row
	}

	firstArt := nfree + nslack
	if nart > 0 {
		phase1 := make([]float64, ncols)
		for j := firstArt; j < ncols; j++ {
			phase1[j] = -1
		}
		status, z := t.maximize(phase1)
		switch status {
		case lpStopped, lpIterLimit:
			return lpResult{status: status}
		}
		if -z[ncols] < -feasEps {
			return lpResult{status: lpInfeasible}
		}
		t.dropArtificials(firstArt, z)
	}

	phase2 := make([]float64, t.ncols)
	for j := 0; j < n; j++ {
		if k := col[j]; k >= 0 {
			phase2[k] = cost[j]
		}
	}
	status, _ := t.maximize(phase2)
	if status != lpOptimal {
		return lpResult{status: status}
	}

	y := make([]float64, nfree)
	for i, b := range t.basis {
		if b < nfree {
			y[b] = t.rows[i][t.ncols]
		}
	}
	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = lower[j]
		if k := col[j]; k >= 0 {
			x[j] += y[k]
		}
	}
	return lpResult{status: lpOptimal, x: x, value: floats.Dot(cost, x)}
}

// dropArtificials pivots zero-level artificials out of the basis, removes
// rows that turned out redundant, then truncates the artificial columns.
func (t *tableau) dropArtificials(firstArt int, z []float64) {
	for i := 0; i < len(t.rows); i++ {
		if t.basis[i] < firstArt {
			continue
		}
		enter := -1
		largest := pivotEps
		for j := 0; j < firstArt; j++ {
			if a := math.Abs(t.rows[i][j]); a > largest {
				enter, largest = j, a
			}
		}
		if enter >= 0 {
			// the artificial sits at (numerically) zero
			t.rows[i][t.ncols] = 0
			t.pivot(i, enter, z)
			continue
		}
		t.rows = append(t.rows[:i], t.rows[i+1:]...)
		t.basis = append(t.basis[:i], t.basis[i+1:]...)
		i--
	}

	for i, row := range t.rows {
		trimmed := make([]float64, firstArt+1)
		copy(trimmed, row[:firstArt])
		trimmed[firstArt] = row[t.ncols]
		t.rows[i] = trimmed
	}
	t.ncols = firstArt
}

func constantRowHolds(sense Sense, rhs float64) bool {
	switch sense {
	case LE:
		return rhs >= -feasEps
	case GE:
		return rhs <= feasEps
	default:
		return math.Abs(rhs) <= feasEps
	}
}

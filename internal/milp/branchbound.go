package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrModelTooLarge is returned when the dense relaxation would not fit the cell budget
var ErrModelTooLarge = errors.New("milp: model too large for the branch-and-bound backend")

// BranchAndBound is a pure-Go MILP backend: depth-first branch-and-bound over
// binary columns with dense simplex relaxations. It suits small and medium
// models; large seasons should use the CBC backend.
//
// The solver value holds configuration only. Every Solve builds its own
// engine, so one BranchAndBound may serve concurrent callers.
type BranchAndBound struct {
	// IntTol is the integrality tolerance for binary columns.
	IntTol float64
	// MaxCells caps rows*columns of the dense tableau.
	MaxCells int
	// MaxNodes stops the search after that many relaxations; 0 is unlimited.
	MaxNodes int
}

// NewBranchAndBound returns a solver with default tolerances
func NewBranchAndBound() *BranchAndBound {
	return &BranchAndBound{
		IntTol:   1e-6,
		MaxCells: 40_000_000,
	}
}

// Name returns the backend name
func (b *BranchAndBound) Name() string { return "branchbound" }

// bbNode holds the column bounds of one subproblem
type bbNode struct {
	lower []float64
	upper []float64
}

// bbEngine holds all search data of one solve
type bbEngine struct {
	model  *Model
	cost   []float64 // objective in maximization sense, dense by column
	intTol float64

	ctx         context.Context
	useDeadline bool
	deadline    time.Time
	stopped     bool

	nodes    int
	maxNodes int
	// incomplete is set when a subtree was dropped without being explored
	incomplete bool
	// rejected counts integral relaxations no repair made feasible
	rejected int

	best     []float64
	bestCost float64
	foundAny bool
}

func (e *bbEngine) stop() bool {
	if e.stopped {
		return true
	}
	if e.ctx.Err() != nil || (e.useDeadline && time.Now().After(e.deadline)) {
		e.stopped = true
	}
	return e.stopped
}

// Solve runs branch-and-bound until optimality is proven, the problem is shown
// infeasible, or the time limit / context stops the search.
func (b *BranchAndBound) Solve(ctx context.Context, m *Model, opts Options) (*Solution, error) {
	start := time.Now()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	if cells := b.estimateCells(m); b.MaxCells > 0 && cells > b.MaxCells {
		return nil, fmt.Errorf("%w: %d cells (limit %d)", ErrModelTooLarge, cells, b.MaxCells)
	}

	e := &bbEngine{
		model:    m,
		cost:     make([]float64, m.NumVars()),
		intTol:   b.IntTol,
		maxNodes: b.MaxNodes,
		ctx:      ctx,
		bestCost: math.Inf(-1),
	}
	if e.intTol <= 0 {
		e.intTol = 1e-6
	}
	if opts.TimeLimit > 0 {
		e.useDeadline = true
		e.deadline = start.Add(opts.TimeLimit)
	}
	sign := 1.0
	if !m.Maximize {
		sign = -1
	}
	for _, t := range m.Objective {
		e.cost[t.Var] += sign * t.Coef
	}

	root := bbNode{
		lower: make([]float64, m.NumVars()),
		upper: make([]float64, m.NumVars()),
	}
	for j, v := range m.Vars {
		root.lower[j], root.upper[j] = v.Lower, v.Upper
	}

	status, err := e.search(root)
	if err != nil {
		return nil, err
	}

	sol := &Solution{
		Status:   status,
		Nodes:    e.nodes,
		Rejected: e.rejected,
		Duration: time.Since(start),
	}
	if e.foundAny {
		sol.Values = e.best
		sol.Objective = m.Objective.Value(e.best)
	}
	return sol, nil
}

// search explores nodes depth-first, preferring the branch nearest the relaxation
func (e *bbEngine) search(root bbNode) (Status, error) {
	stack := []bbNode{root}

	for len(stack) > 0 {
		if e.stop() || (e.maxNodes > 0 && e.nodes >= e.maxNodes) {
			return StatusNotSolved, nil
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e.nodes++

		res := solveLP(e.model, node.lower, node.upper, e.cost, e.stop)
		switch res.status {
		case lpInfeasible:
			continue
		case lpStopped:
			return StatusNotSolved, nil
		case lpUnbounded:
			if e.nodes == 1 {
				return StatusUnbounded, nil
			}
			continue
		case lpIterLimit:
			// the subtree is abandoned; the incumbent can no longer be proven
			e.incomplete = true
			continue
		}

		// bound: the relaxation cannot beat the incumbent
		if e.foundAny && res.value <= e.bestCost+1e-9 {
			continue
		}

		branch := e.pickBranch(res.x)
		if branch < 0 {
			e.acceptIntegral(node, res.x)
			continue
		}

		down := bbNode{lower: clone(node.lower), upper: clone(node.upper)}
		down.upper[branch] = 0
		up := bbNode{lower: clone(node.lower), upper: clone(node.upper)}
		up.lower[branch] = 1

		// the preferred child is pushed last so it is explored first
		if res.x[branch] >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	switch {
	case e.incomplete:
		return StatusNotSolved, nil
	case !e.foundAny:
		return StatusInfeasible, nil
	}
	return StatusOptimal, nil
}

// pickBranch returns the most fractional binary column, or -1 when integral
func (e *bbEngine) pickBranch(x []float64) int {
	branch := -1
	bestDist := 1.0
	for j, v := range e.model.Vars {
		if v.Kind != Binary {
			continue
		}
		frac := x[j] - math.Floor(x[j])
		if frac <= e.intTol || frac >= 1-e.intTol {
			continue
		}
		if dist := math.Abs(frac - 0.5); dist < bestDist {
			bestDist = dist
			branch = j
		}
	}
	return branch
}

// acceptIntegral rounds binaries and keeps the point when it improves the
// incumbent. A rounded point that breaks a row is repaired by re-solving the
// node with every binary fixed at its rounded value.
func (e *bbEngine) acceptIntegral(node bbNode, x []float64) {
	point := e.round(x)
	if !e.model.Feasible(point, 1e-6) {
		fixed := bbNode{lower: clone(node.lower), upper: clone(node.upper)}
		for j, v := range e.model.Vars {
			if v.Kind == Binary {
				fixed.lower[j], fixed.upper[j] = point[j], point[j]
			}
		}
		res := solveLP(e.model, fixed.lower, fixed.upper, e.cost, e.stop)
		if res.status != lpOptimal {
			e.rejected++
			return
		}
		point = e.round(res.x)
		if !e.model.Feasible(point, 1e-6) {
			e.rejected++
			return
		}
	}
	value := 0.0
	for j, c := range e.cost {
		value += c * point[j]
	}
	if !e.foundAny || value > e.bestCost+1e-9 {
		e.best = point
		e.bestCost = value
		e.foundAny = true
	}
}

func (e *bbEngine) round(x []float64) []float64 {
	point := clone(x)
	for j, v := range e.model.Vars {
		if v.Kind == Binary {
			point[j] = math.Round(point[j])
		}
	}
	return point
}

// estimateCells approximates the dense tableau size of the root relaxation
func (b *BranchAndBound) estimateCells(m *Model) int {
	rows := m.NumConstraints()
	for _, v := range m.Vars {
		if !math.IsInf(v.Upper, 1) {
			rows++
		}
	}
	// structural + one slack or surplus + at most one artificial per row
	cols := m.NumVars() + 2*rows
	return rows * cols
}

func clone(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	return out
}

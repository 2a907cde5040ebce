package milp

import (
	"context"
	"time"
)

// Status is the termination state reported by a solver backend.
// String values follow the PuLP/CBC vocabulary so raw statuses stay recognizable.
type Status string

const (
	StatusOptimal    Status = "Optimal"
	StatusInfeasible Status = "Infeasible"
	StatusNotSolved  Status = "Not Solved" // stopped before proving optimality
	StatusUnbounded  Status = "Unbounded"
	StatusUndefined  Status = "Undefined"
)

// Options bound a single solve
type Options struct {
	// TimeLimit is advisory: backends check it between search steps.
	TimeLimit time.Duration
}

// Solution is the outcome of a solve.
// Values is nil unless Status is Optimal or a NotSolved run kept an incumbent.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Nodes     int
	// Rejected counts integral relaxations dropped as infeasible after rounding
	Rejected int
	Duration time.Duration
}

// HasIncumbent reports whether the solution carries a feasible assignment
func (s *Solution) HasIncumbent() bool {
	return s != nil && s.Values != nil
}

// Value returns the assignment of column v
func (s *Solution) Value(v int) float64 {
	return s.Values[v]
}

// Solver is the injected mixed-integer capability.
// ⭐ SSOT: submit variables + rows + objective + time limit, receive status + assignment
type Solver interface {
	Name() string
	Solve(ctx context.Context, m *Model, opts Options) (*Solution, error)
}

package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solve(t *testing.T, m *Model) *Solution {
	t.Helper()
	sol, err := NewBranchAndBound().Solve(context.Background(), m, Options{})
	require.NoError(t, err)
	return sol
}

func TestBranchAndBound_ContinuousLP(t *testing.T) {
	// max 3x + 2y  s.t.  x + y <= 4, x + 3y <= 6, x <= 3
	m := NewModel("lp", true)
	x := m.AddContinuous("x", 0, 3)
	y := m.AddContinuous("y", 0, math.Inf(1))
	m.AddConstraint("c1", Expr{}.Add(x, 1).Add(y, 1), LE, 4)
	m.AddConstraint("c2", Expr{}.Add(x, 1).Add(y, 3), LE, 6)
	m.SetObjective(Expr{}.Add(x, 3).Add(y, 2))

	sol := solve(t, m)

	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 11.0, sol.Objective, 1e-6)
	assert.InDelta(t, 3.0, sol.Value(x), 1e-6)
	assert.InDelta(t, 1.0, sol.Value(y), 1e-6)
	assert.Equal(t, 1, sol.Nodes)
}

func TestBranchAndBound_Minimize(t *testing.T) {
	m := NewModel("min", false)
	x := m.AddContinuous("x", 0, math.Inf(1))
	y := m.AddContinuous("y", 0, math.Inf(1))
	m.AddConstraint("cover", Expr{}.Add(x, 1).Add(y, 1), GE, 1.5)
	m.SetObjective(Expr{}.Add(x, 1).Add(y, 2))

	sol := solve(t, m)

	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 1.5, sol.Objective, 1e-6)
	assert.InDelta(t, 1.5, sol.Value(x), 1e-6)
}

func TestBranchAndBound_Knapsack(t *testing.T) {
	values := []float64{10, 13, 7}
	weights := []float64{3, 4, 2}

	m := NewModel("knapsack", true)
	var capacity, objective Expr
	for i := range values {
		v := m.AddBinary("item")
		capacity = capacity.Add(v, weights[i])
		objective = objective.Add(v, values[i])
	}
	m.AddConstraint("capacity", capacity, LE, 5)
	m.SetObjective(objective)

	sol := solve(t, m)

	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 17.0, sol.Objective, 1e-6)
	assert.Equal(t, []float64{1, 0, 1}, sol.Values)
	assert.True(t, m.Feasible(sol.Values, 1e-9))
}

func TestBranchAndBound_RedundantEqualities(t *testing.T) {
	m := NewModel("redundant", true)
	x := m.AddBinary("x")
	y := m.AddBinary("y")
	m.AddConstraint("one", Expr{}.Add(x, 1).Add(y, 1), EQ, 1)
	m.AddConstraint("two", Expr{}.Add(x, 2).Add(y, 2), EQ, 2)
	m.SetObjective(Expr{}.Add(x, 1))

	sol := solve(t, m)

	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 1.0, sol.Objective, 1e-6)
	assert.InDelta(t, 0.0, sol.Value(y), 1e-9)
}

func TestBranchAndBound_FixedColumns(t *testing.T) {
	m := NewModel("fixed", true)
	x := m.AddBinary("x")
	y := m.AddBinary("y")
	f := m.AddContinuous("fee", 0, 0)
	m.AddConstraint("pick", Expr{}.Add(x, 1).Add(y, 1).Add(f, 1), EQ, 1)
	m.SetObjective(Expr{}.Add(x, 2).Add(y, 3))

	sol := solve(t, m)

	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 3.0, sol.Objective, 1e-6)
	assert.InDelta(t, 0.0, sol.Value(f), 1e-9)
}

func TestBranchAndBound_Infeasible(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Model
	}{
		{
			name: "binary sum too large",
			build: func() *Model {
				m := NewModel("infeasible", true)
				x := m.AddBinary("x")
				y := m.AddBinary("y")
				m.AddConstraint("need", Expr{}.Add(x, 1).Add(y, 1), GE, 3)
				return m
			},
		},
		{
			name: "integral gap",
			build: func() *Model {
				// LP relaxation is feasible at x = y = 0.5
				m := NewModel("parity", true)
				x := m.AddBinary("x")
				y := m.AddBinary("y")
				m.AddConstraint("half", Expr{}.Add(x, 2).Add(y, 2), EQ, 2)
				m.AddConstraint("diff", Expr{}.Add(x, 1).Add(y, -1), EQ, 0)
				return m
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol := solve(t, tt.build())
			assert.Equal(t, StatusInfeasible, sol.Status)
			assert.False(t, sol.HasIncumbent())
		})
	}
}

func TestBranchAndBound_Unbounded(t *testing.T) {
	m := NewModel("unbounded", true)
	x := m.AddContinuous("x", 0, math.Inf(1))
	m.SetObjective(Expr{}.Add(x, 1))

	sol := solve(t, m)

	assert.Equal(t, StatusUnbounded, sol.Status)
}

func TestBranchAndBound_CancelledContext(t *testing.T) {
	m := NewModel("cancelled", true)
	x := m.AddBinary("x")
	m.SetObjective(Expr{}.Add(x, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, err := NewBranchAndBound().Solve(ctx, m, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusNotSolved, sol.Status)
	assert.False(t, sol.HasIncumbent())
}

func TestBranchAndBound_ModelTooLarge(t *testing.T) {
	m := NewModel("big", true)
	x := m.AddBinary("x")
	m.AddConstraint("c", Expr{}.Add(x, 1), LE, 1)

	solver := NewBranchAndBound()
	solver.MaxCells = 1

	_, err := solver.Solve(context.Background(), m, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelTooLarge))
}

func TestBranchAndBound_InvalidModel(t *testing.T) {
	m := NewModel("invalid", true)
	m.AddBinary("x")
	m.SetObjective(Expr{}.Add(5, 1))

	_, err := NewBranchAndBound().Solve(context.Background(), m, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestBranchAndBound_NodeLimitKeepsIncumbent(t *testing.T) {
	// max sum x  s.t.  2·sum x <= 15: every relaxation scores 7.5 against the
	// integral 7, so the dive finds an incumbent long before it can be proven
	m := NewModel("parity", true)
	row := Expr{}
	obj := Expr{}
	for i := 0; i < 15; i++ {
		x := m.AddBinary(fmt.Sprintf("x%d", i))
		row = row.Add(x, 2)
		obj = obj.Add(x, 1)
	}
	m.AddConstraint("cap", row, LE, 15)
	m.SetObjective(obj)

	solver := NewBranchAndBound()
	solver.MaxNodes = 200

	sol, err := solver.Solve(context.Background(), m, Options{})
	require.NoError(t, err)

	assert.Equal(t, StatusNotSolved, sol.Status)
	require.True(t, sol.HasIncumbent())
	assert.InDelta(t, 7.0, sol.Objective, 1e-6)
	assert.True(t, m.Feasible(sol.Values, 1e-6))
	assert.Equal(t, 200, sol.Nodes)
}

func TestBranchAndBound_AbandonedSubtreeIsNotOptimal(t *testing.T) {
	m := NewModel("knapsack", true)
	a := m.AddBinary("a")
	b := m.AddBinary("b")
	m.AddConstraint("cap", Expr{}.Add(a, 3).Add(b, 2), LE, 4)
	m.SetObjective(Expr{}.Add(a, 5).Add(b, 4))

	e := &bbEngine{
		model:    m,
		cost:     []float64{5, 4},
		intTol:   1e-6,
		ctx:      context.Background(),
		bestCost: math.Inf(-1),
	}
	e.acceptIntegral(bbNode{lower: []float64{0, 0}, upper: []float64{1, 1}}, []float64{0, 1})
	e.incomplete = true

	status, err := e.search(bbNode{lower: []float64{0, 0}, upper: []float64{1, 1}})
	require.NoError(t, err)
	assert.Equal(t, StatusNotSolved, status)
	assert.True(t, e.foundAny)
	assert.InDelta(t, 5.0, e.bestCost, 1e-9)
}

func TestBranchAndBound_RepairsRoundedPoint(t *testing.T) {
	// y >= 5x with x a hair below one: rounding x breaks the row by more
	// than the tolerance, fixing x and re-solving lifts y back onto it
	m := NewModel("repair", false)
	x := m.AddBinary("x")
	y := m.AddContinuous("y", 0, 10)
	m.AddConstraint("link", Expr{}.Add(y, 1).Add(x, -5), GE, 0)
	m.SetObjective(Expr{}.Add(y, 1))

	e := &bbEngine{
		model:    m,
		cost:     []float64{0, -1},
		intTol:   1e-6,
		ctx:      context.Background(),
		bestCost: math.Inf(-1),
	}
	node := bbNode{lower: []float64{0, 0}, upper: []float64{1, 10}}
	e.acceptIntegral(node, []float64{1 - 5e-7, 5 - 2.5e-6})

	require.True(t, e.foundAny)
	assert.Equal(t, 0, e.rejected)
	assert.InDelta(t, 1.0, e.best[x], 1e-12)
	assert.InDelta(t, 5.0, e.best[y], 1e-6)
}

func TestBranchAndBound_CountsUnrepairablePoint(t *testing.T) {
	m := NewModel("reject", false)
	x := m.AddBinary("x")
	y := m.AddContinuous("y", 0, 5-2.4e-6)
	m.AddConstraint("link", Expr{}.Add(y, 1).Add(x, -5), GE, 0)
	m.SetObjective(Expr{}.Add(y, 1))

	e := &bbEngine{
		model:    m,
		cost:     []float64{0, -1},
		intTol:   1e-6,
		ctx:      context.Background(),
		bestCost: math.Inf(-1),
	}
	node := bbNode{lower: []float64{0, 0}, upper: []float64{1, 5 - 2.4e-6}}
	e.acceptIntegral(node, []float64{1 - 5e-7, 5 - 2.5e-6})

	assert.False(t, e.foundAny)
	assert.Equal(t, 1, e.rejected)
}

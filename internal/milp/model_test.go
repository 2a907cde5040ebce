package milp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModel_Feasible(t *testing.T) {
	m := NewModel("check", true)
	x := m.AddBinary("x")
	y := m.AddBinary("y")
	f := m.AddContinuous("f", 0, math.Inf(1))
	m.AddConstraint("sum", Expr{}.Add(x, 1).Add(y, 1), EQ, 1)
	m.AddConstraint("fee", Expr{}.Add(f, 1).Add(x, -1), GE, 0)

	tests := []struct {
		name string
		x    []float64
		want bool
	}{
		{"valid", []float64{1, 0, 1}, true},
		{"row violated", []float64{1, 1, 1}, false},
		{"fractional binary", []float64{0.5, 0.5, 1}, false},
		{"below bound", []float64{1, 0, -1}, false},
		{"ge violated", []float64{1, 0, 0}, false},
		{"wrong length", []float64{1, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Feasible(tt.x, 1e-9))
		})
	}
}

func TestModel_Validate(t *testing.T) {
	m := NewModel("ok", true)
	x := m.AddBinary("x")
	m.AddConstraint("c", Expr{}.Add(x, 1), LE, 1)
	assert.NoError(t, m.Validate())

	m.AddConstraint("nan", Expr{}.Add(x, 1), LE, math.NaN())
	assert.Error(t, m.Validate())

	bad := NewModel("bounds", true)
	bad.AddContinuous("free", math.Inf(-1), 0)
	assert.Error(t, bad.Validate())
}

func TestExpr_Value(t *testing.T) {
	e := Expr{}.Add(0, 2).Add(1, -1).Add(0, 1)
	assert.InDelta(t, 5.0, e.Value([]float64{2, 1}), 1e-12)
}

func TestSense_String(t *testing.T) {
	assert.Equal(t, "<=", LE.String())
	assert.Equal(t, ">=", GE.String())
	assert.Equal(t, "=", EQ.String())
	assert.Equal(t, "binary", Binary.String())
}

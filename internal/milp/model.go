package milp

import (
	"fmt"
	"math"
)

// VarKind distinguishes integral from continuous columns
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

func (k VarKind) String() string {
	if k == Binary {
		return "binary"
	}
	return "continuous"
}

// Sense is the relation of a linear constraint
type Sense int

const (
	LE Sense = iota // a·x <= b
	GE              // a·x >= b
	EQ              // a·x == b
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "="
	}
}

// Var is one column of the model
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64 // math.Inf(1) when unbounded
}

// Term is coef * x[Var]
type Term struct {
	Var  int
	Coef float64
}

// Expr is a linear expression without constant
type Expr []Term

// Add appends coef * x[v] and returns the expression
func (e Expr) Add(v int, coef float64) Expr {
	return append(e, Term{Var: v, Coef: coef})
}

// Value evaluates the expression at x
func (e Expr) Value(x []float64) float64 {
	total := 0.0
	for _, t := range e {
		total += t.Coef * x[t.Var]
	}
	return total
}

// Constraint is a named row: Expr (sense) RHS
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// Model is a mixed-integer linear program over binary and continuous columns.
// A Model is built once per request and never shared between solves.
type Model struct {
	Name        string
	Maximize    bool
	Vars        []Var
	Constraints []Constraint
	Objective   Expr
}

// NewModel creates an empty model
func NewModel(name string, maximize bool) *Model {
	return &Model{Name: name, Maximize: maximize}
}

// AddBinary adds a 0/1 column and returns its index
func (m *Model) AddBinary(name string) int {
	m.Vars = append(m.Vars, Var{Name: name, Kind: Binary, Lower: 0, Upper: 1})
	return len(m.Vars) - 1
}

// AddContinuous adds a bounded continuous column and returns its index
func (m *Model) AddContinuous(name string, lower, upper float64) int {
	m.Vars = append(m.Vars, Var{Name: name, Kind: Continuous, Lower: lower, Upper: upper})
	return len(m.Vars) - 1
}

// AddConstraint appends a row
func (m *Model) AddConstraint(name string, expr Expr, sense Sense, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Expr: expr, Sense: sense, RHS: rhs})
}

// SetObjective replaces the objective expression
func (m *Model) SetObjective(expr Expr) {
	m.Objective = expr
}

// NumVars returns the column count
func (m *Model) NumVars() int { return len(m.Vars) }

// NumConstraints returns the row count
func (m *Model) NumConstraints() int { return len(m.Constraints) }

// Validate checks structural consistency before a solve
func (m *Model) Validate() error {
	for i, v := range m.Vars {
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) || math.IsInf(v.Lower, 0) {
			return fmt.Errorf("variable %d (%s): invalid bounds [%v, %v]", i, v.Name, v.Lower, v.Upper)
		}
	}
	check := func(where string, e Expr) error {
		for _, t := range e {
			if t.Var < 0 || t.Var >= len(m.Vars) {
				return fmt.Errorf("%s: variable index %d out of range", where, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("%s: invalid coefficient %v", where, t.Coef)
			}
		}
		return nil
	}
	if err := check("objective", m.Objective); err != nil {
		return err
	}
	for _, c := range m.Constraints {
		if err := check("constraint "+c.Name, c.Expr); err != nil {
			return err
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("constraint %s: invalid rhs %v", c.Name, c.RHS)
		}
	}
	return nil
}

// Feasible reports whether x satisfies bounds, integrality and every row within tol
func (m *Model) Feasible(x []float64, tol float64) bool {
	if len(x) != len(m.Vars) {
		return false
	}
	for i, v := range m.Vars {
		if x[i] < v.Lower-tol || x[i] > v.Upper+tol {
			return false
		}
		if v.Kind == Binary && math.Abs(x[i]-math.Round(x[i])) > tol {
			return false
		}
	}
	for _, c := range m.Constraints {
		lhs := c.Expr.Value(x)
		switch c.Sense {
		case LE:
			if lhs > c.RHS+tol {
				return false
			}
		case GE:
			if lhs < c.RHS-tol {
				return false
			}
		case EQ:
			if math.Abs(lhs-c.RHS) > tol {
				return false
			}
		}
	}
	return true
}

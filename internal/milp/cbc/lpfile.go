package cbc

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/wonny/wielermanager/internal/milp"
)

// Columns and rows are written under positional names (x<j>, r<i>) so model
// names never need escaping for the LP reader.

func colName(j int) string { return "x" + strconv.Itoa(j) }

// WriteLP writes the model in CPLEX LP format
func WriteLP(w io.Writer, m *milp.Model) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "\\* %s *\\\n", m.Name)
	if m.Maximize {
		bw.WriteString("Maximize\n")
	} else {
		bw.WriteString("Minimize\n")
	}
	bw.WriteString(" obj:")
	if len(m.Objective) == 0 && m.NumVars() > 0 {
		bw.WriteString(" 0 " + colName(0))
	}
	writeExpr(bw, m.Objective)
	bw.WriteString("\n")

	bw.WriteString("Subject To\n")
	for i, c := range m.Constraints {
		fmt.Fprintf(bw, " r%d:", i)
		if len(c.Expr) == 0 {
			bw.WriteString(" 0 " + colName(0))
		}
		writeExpr(bw, c.Expr)
		fmt.Fprintf(bw, " %s %s\n", c.Sense, formatNum(c.RHS))
	}

	bw.WriteString("Bounds\n")
	for j, v := range m.Vars {
		if v.Kind == milp.Binary {
			continue
		}
		if math.IsInf(v.Upper, 1) {
			fmt.Fprintf(bw, " %s >= %s\n", colName(j), formatNum(v.Lower))
			continue
		}
		fmt.Fprintf(bw, " %s <= %s <= %s\n", formatNum(v.Lower), colName(j), formatNum(v.Upper))
	}

	binaries := false
	for j, v := range m.Vars {
		if v.Kind != milp.Binary {
			continue
		}
		if !binaries {
			bw.WriteString("Binaries\n")
			binaries = true
		}
		fmt.Fprintf(bw, " %s\n", colName(j))
	}

	bw.WriteString("End\n")
	return bw.Flush()
}

func writeExpr(bw *bufio.Writer, e milp.Expr) {
	for _, t := range e {
		sign := "+"
		coef := t.Coef
		if coef < 0 {
			sign = "-"
			coef = -coef
		}
		fmt.Fprintf(bw, " %s %s %s", sign, formatNum(coef), colName(t.Var))
	}
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

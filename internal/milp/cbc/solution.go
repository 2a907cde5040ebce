package cbc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wonny/wielermanager/internal/milp"
)

// solution is the parsed content of a CBC "solu" file
type solution struct {
	status milp.Status
	header string
	values []float64
}

// parseSolution reads a CBC solution file for a model with n columns.
//
// The first line carries the termination state, e.g.
//
//	Optimal - objective value 11.00000000
//	Stopped on time - objective value 9.00000000
//
// followed by one "index name value reduced-cost" line per nonzero column.
// Lines prefixed with "**" flag infeasible values and are read the same way.
func parseSolution(r io.Reader, n int) (*solution, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read solution header: %w", err)
		}
		return nil, fmt.Errorf("empty solution file")
	}
	header := strings.TrimSpace(sc.Text())
	sol := &solution{
		status: statusFromHeader(header),
		header: header,
		values: make([]float64, n),
	}

	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 && fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) < 3 {
			continue
		}
		name := fields[1]
		if !strings.HasPrefix(name, "x") {
			continue
		}
		j, err := strconv.Atoi(name[1:])
		if err != nil || j < 0 || j >= n {
			return nil, fmt.Errorf("unknown column %q in solution", name)
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: invalid value %q: %w", name, fields[2], err)
		}
		sol.values[j] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read solution: %w", err)
	}
	return sol, nil
}

func statusFromHeader(header string) milp.Status {
	lower := strings.ToLower(header)
	switch {
	case strings.HasPrefix(lower, "optimal"):
		return milp.StatusOptimal
	case strings.HasPrefix(lower, "infeasible"),
		strings.HasPrefix(lower, "integer infeasible"):
		return milp.StatusInfeasible
	case strings.HasPrefix(lower, "unbounded"):
		return milp.StatusUnbounded
	case strings.HasPrefix(lower, "stopped"):
		return milp.StatusNotSolved
	default:
		return milp.StatusUndefined
	}
}

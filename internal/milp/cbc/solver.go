// Package cbc runs models through the COIN-OR CBC command line solver.
package cbc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/wonny/wielermanager/internal/milp"
	"github.com/wonny/wielermanager/pkg/logger"
)

// ErrNotInstalled is returned when the cbc executable cannot be found
var ErrNotInstalled = errors.New("cbc: executable not found")

// runFunc executes the solver binary; replaced in tests
type runFunc func(ctx context.Context, path string, args ...string) ([]byte, error)

func execRun(ctx context.Context, path string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Solver writes the model to a temporary LP file, runs cbc with the time
// limit and reads back its solution file.
type Solver struct {
	path   string
	logger *logger.Logger
	run    runFunc
}

// New creates a CBC solver using the executable at path (looked up in PATH when bare)
func New(path string, log *logger.Logger) *Solver {
	if path == "" {
		path = "cbc"
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Solver{
		path:   path,
		logger: log,
		run:    execRun,
	}
}

// Name returns the backend name
func (s *Solver) Name() string { return "cbc" }

// Available reports whether the executable can be resolved
func (s *Solver) Available() bool {
	_, err := exec.LookPath(s.path)
	return err == nil
}

// Solve runs cbc on the model
func (s *Solver) Solve(ctx context.Context, m *milp.Model, opts milp.Options) (*milp.Solution, error) {
	start := time.Now()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}

	dir, err := os.MkdirTemp("", "wielermanager-cbc-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")

	f, err := os.Create(lpPath)
	if err != nil {
		return nil, fmt.Errorf("create lp file: %w", err)
	}
	if err := WriteLP(f, m); err != nil {
		f.Close()
		return nil, fmt.Errorf("write lp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close lp file: %w", err)
	}

	args := []string{lpPath}
	if opts.TimeLimit > 0 {
		secs := int(math.Ceil(opts.TimeLimit.Seconds()))
		args = append(args, "sec", strconv.Itoa(secs))
	}
	args = append(args, "solve", "solu", solPath)

	s.logger.WithFields(map[string]interface{}{
		"variables":   m.NumVars(),
		"constraints": m.NumConstraints(),
		"time_limit":  opts.TimeLimit.String(),
	}).Debug("Running cbc")

	out, err := s.run(ctx, s.path, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotInstalled, s.path)
		}
		if ctx.Err() != nil {
			return &milp.Solution{Status: milp.StatusNotSolved, Duration: time.Since(start)}, nil
		}
		return nil, fmt.Errorf("run cbc: %w: %s", err, tail(out, 512))
	}

	sf, err := os.Open(solPath)
	if err != nil {
		return nil, fmt.Errorf("open solution file: %w: %s", err, tail(out, 512))
	}
	defer sf.Close()

	parsed, err := parseSolution(sf, m.NumVars())
	if err != nil {
		return nil, err
	}

	sol := &milp.Solution{
		Status:   parsed.status,
		Duration: time.Since(start),
	}
	// stopped runs write a solution file with or without an incumbent
	if parsed.status == milp.StatusOptimal || m.Feasible(parsed.values, 1e-6) {
		sol.Values = parsed.values
		sol.Objective = m.Objective.Value(parsed.values)
	}

	s.logger.WithFields(map[string]interface{}{
		"status":   parsed.header,
		"duration": sol.Duration.String(),
	}).Debug("cbc finished")

	return sol, nil
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(bytes.TrimSpace(b))
}

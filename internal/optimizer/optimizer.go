package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/wielermanager/internal/audit"
	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/milp"
	"github.com/wonny/wielermanager/pkg/logger"
)

// ErrNotOptimal matches every SolveError
var ErrNotOptimal = errors.New("could not find optimal solution")

// SolveError reports a solve that ended without a usable plan.
// Status carries the backend's raw termination state.
type SolveError struct {
	Status milp.Status
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("%s (status: %s)", ErrNotOptimal.Error(), e.Status)
}

// Is makes errors.Is(err, ErrNotOptimal) hold for any SolveError
func (e *SolveError) Is(target error) bool {
	return target == ErrNotOptimal
}

// SolveObserver receives one observation per finished solve
type SolveObserver interface {
	ObserveSolve(backend string, status milp.Status, d time.Duration)
}

// Config tunes the solve driver
type Config struct {
	TimeLimit       time.Duration
	AcceptIncumbent bool // return time-limited incumbents as PlanFeasible
}

// DefaultConfig matches the reference game setup
func DefaultConfig() Config {
	return Config{
		TimeLimit: 60 * time.Second,
	}
}

// Optimizer builds the season model, solves it and extracts the plan.
// ⭐ SSOT: the MILP formulation lives here and nowhere else
type Optimizer struct {
	solver   milp.Solver
	config   Config
	logger   *logger.Logger
	observer SolveObserver
}

// New creates an optimizer on top of a solver backend
func New(solver milp.Solver, config Config, log *logger.Logger) *Optimizer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Optimizer{
		solver: solver,
		config: config,
		logger: log.Component("optimizer"),
	}
}

// WithObserver attaches a solve observer (metrics)
func (o *Optimizer) WithObserver(obs SolveObserver) *Optimizer {
	o.observer = obs
	return o
}

// CacheKey names the settings that change what a request yields.
// Plan caches key on it next to the request.
func (o *Optimizer) CacheKey() string {
	return fmt.Sprintf("backend=%s accept_incumbent=%t time_limit=%s",
		o.solver.Name(), o.config.AcceptIncumbent, o.config.TimeLimit)
}

// Plan implements contracts.Planner: Optimize plus an invariant audit of the result
func (o *Optimizer) Plan(ctx context.Context, req *contracts.PlanRequest) (*contracts.Plan, error) {
	plan, err := o.Optimize(ctx, req)
	if err != nil {
		return nil, err
	}

	if violations := audit.Check(req, plan, audit.DefaultTolerance); len(violations) > 0 {
		for _, v := range violations {
			o.logger.WithField("violation", v.String()).Error("Plan failed audit")
		}
		return nil, fmt.Errorf("plan failed audit: %s", violations[0])
	}

	return plan, nil
}

// Optimize runs validate → build → objective → solve → extract.
// Only an optimal solve yields a plan unless AcceptIncumbent is set.
func (o *Optimizer) Optimize(ctx context.Context, req *contracts.PlanRequest) (*contracts.Plan, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	policy := FeePolicy{FreeAllowance: req.Rules.FreeAllowance}
	f := buildModel(req, policy)
	f.setObjective()

	log := o.logger.WithFields(map[string]interface{}{
		"backend":     o.solver.Name(),
		"riders":      len(req.Candidates),
		"races":       len(req.Periods),
		"variables":   f.model.NumVars(),
		"constraints": f.model.NumConstraints(),
	})
	log.Info("Solving season model")

	sol, err := o.solver.Solve(ctx, f.model, milp.Options{TimeLimit: o.config.TimeLimit})
	if err != nil {
		return nil, fmt.Errorf("solve with %s: %w", o.solver.Name(), err)
	}
	if o.observer != nil {
		o.observer.ObserveSolve(o.solver.Name(), sol.Status, sol.Duration)
	}

	log = log.WithFields(map[string]interface{}{
		"status":   string(sol.Status),
		"nodes":    sol.Nodes,
		"rejected": sol.Rejected,
		"duration": sol.Duration.String(),
	})

	var status contracts.PlanStatus
	switch {
	case sol.Status == milp.StatusOptimal && sol.HasIncumbent():
		status = contracts.PlanOptimal
	case sol.Status == milp.StatusNotSolved && sol.HasIncumbent() && o.config.AcceptIncumbent:
		status = contracts.PlanFeasible
		log.Warn("Time limit reached, returning unproven incumbent")
	default:
		log.Warn("Solve ended without an optimal plan")
		return nil, &SolveError{Status: sol.Status}
	}

	plan := extract(f, sol, policy)
	plan.Status = status
	plan.SolverInfo = &contracts.SolverInfo{
		Backend:   o.solver.Name(),
		RawStatus: string(sol.Status),
		Nodes:     sol.Nodes,
		Duration:  sol.Duration,
		Variables: f.model.NumVars(),
		Rows:      f.model.NumConstraints(),
	}

	log.WithField("total_points", plan.Objective).Info("Season plan ready")
	return plan, nil
}

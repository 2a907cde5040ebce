package optimizer

import (
	"fmt"

	"github.com/wonny/wielermanager/internal/milp"
	"github.com/wonny/wielermanager/internal/milp/cbc"
	"github.com/wonny/wielermanager/pkg/config"
	"github.com/wonny/wielermanager/pkg/logger"
)

// NewSolver picks the MILP backend named by cfg.Backend.
// Auto prefers cbc and falls back to the pure-Go engine when the executable
// is missing; that engine refuses full-season models with milp.ErrModelTooLarge.
func NewSolver(cfg config.SolverConfig, log *logger.Logger) (milp.Solver, error) {
	if log == nil {
		log = logger.NewNop()
	}

	switch cfg.Backend {
	case config.BackendCBC:
		s := cbc.New(cfg.CBCPath, log)
		if !s.Available() {
			return nil, fmt.Errorf("cbc executable %q not found", cfg.CBCPath)
		}
		return s, nil
	case config.BackendBranchBound:
		return milp.NewBranchAndBound(), nil
	default:
		s := cbc.New(cfg.CBCPath, log)
		if s.Available() {
			return s, nil
		}
		log.WithField("cbc_path", cfg.CBCPath).
			Warn("cbc not found, using branchbound; full-season models need cbc")
		return milp.NewBranchAndBound(), nil
	}
}

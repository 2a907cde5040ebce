package optimizer

import (
	"math"

	"github.com/wonny/wielermanager/internal/contracts"
)

// Validate rejects malformed requests before any model is built.
// An infeasible but well-formed request (team larger than the pool, budget too
// low) passes and surfaces as a solve status instead.
func Validate(req *contracts.PlanRequest) error {
	if req == nil {
		return contracts.NewValidationError("request", "is required")
	}

	r := req.Rules
	switch {
	case !finite(r.Budget) || r.Budget <= 0:
		return contracts.NewValidationError("rules.budget", "must be positive, got %v", r.Budget)
	case r.TeamSize <= 0:
		return contracts.NewValidationError("rules.team_size", "must be positive, got %d", r.TeamSize)
	case r.RaceSquadSize <= 0:
		return contracts.NewValidationError("rules.race_squad_size", "must be positive, got %d", r.RaceSquadSize)
	case r.RaceSquadSize > r.TeamSize:
		return contracts.NewValidationError("rules.race_squad_size",
			"must not exceed team_size (%d > %d)", r.RaceSquadSize, r.TeamSize)
	case r.MaxTransfers < 0:
		return contracts.NewValidationError("rules.max_transfers", "must not be negative, got %d", r.MaxTransfers)
	case r.FreeAllowance < 0:
		return contracts.NewValidationError("rules.free_allowance", "must not be negative, got %d", r.FreeAllowance)
	}

	if len(req.Periods) == 0 {
		return contracts.NewValidationError("races", "at least one race is required")
	}
	periods := make(map[string]struct{}, len(req.Periods))
	for i, p := range req.Periods {
		if p.ID == "" {
			return contracts.NewValidationError("races", "race %d has an empty id", i)
		}
		if _, dup := periods[p.ID]; dup {
			return contracts.NewValidationError("races", "duplicate race id %q", p.ID)
		}
		periods[p.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(req.Candidates))
	for i, c := range req.Candidates {
		if c.ID == "" {
			return contracts.NewValidationError("riders", "rider %d has an empty id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return contracts.NewValidationError("riders", "duplicate rider id %q", c.ID)
		}
		seen[c.ID] = struct{}{}

		if !finite(c.Cost) || c.Cost < 0 {
			return contracts.NewValidationError("riders", "rider %q has invalid price %v", c.ID, c.Cost)
		}
		for periodID, v := range c.ExpectedValues {
			if !finite(v) || v < 0 {
				return contracts.NewValidationError("riders",
					"rider %q has invalid expected points %v for %q", c.ID, v, periodID)
			}
		}
	}

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/plan"
	"github.com/wonny/wielermanager/pkg/logger"
)

// Planner produces plans through the plan service
type Planner interface {
	Plan(ctx context.Context, strategy contracts.Strategy, req *contracts.PlanRequest) (*plan.Result, error)
}

// ReplanJob re-optimizes the remaining races from the latest snapshot
type ReplanJob struct {
	source  contracts.SnapshotSource
	planner Planner
	rules   contracts.Rules
	logger  *logger.Logger
}

// NewReplanJob creates a new replan job
func NewReplanJob(source contracts.SnapshotSource, planner Planner, rules contracts.Rules, log *logger.Logger) *ReplanJob {
	return &ReplanJob{
		source:  source,
		planner: planner,
		rules:   rules,
		logger:  log,
	}
}

// Name returns the job name
func (j *ReplanJob) Name() string {
	return "replan"
}

// Schedule returns the cron schedule (every day at 07:00, after collection)
func (j *ReplanJob) Schedule() string {
	return "0 0 7 * * *"
}

// Run solves the MILP over the races that are still to come
func (j *ReplanJob) Run(ctx context.Context) error {
	snap, err := j.source.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	req := UpcomingRequest(snap, j.rules)
	if len(req.Periods) == 0 {
		j.logger.Info("Season finished, nothing to plan")
		return nil
	}

	res, err := j.planner.Plan(ctx, contracts.StrategyMILP, req)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"plan_id":   res.Plan.ID,
		"races":     len(req.Periods),
		"objective": res.Plan.Objective,
		"cached":    res.Cached,
	}).Info("Season replanned")
	return nil
}

// UpcomingRequest keeps only the races without results
func UpcomingRequest(snap *contracts.Snapshot, rules contracts.Rules) *contracts.PlanRequest {
	req := snap.Request(rules)
	upcoming := make([]contracts.Period, 0, len(req.Periods))
	for _, p := range req.Periods {
		if !p.Completed {
			upcoming = append(upcoming, p)
		}
	}
	req.Periods = upcoming
	return req
}

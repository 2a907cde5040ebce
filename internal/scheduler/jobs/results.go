package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/wielermanager/internal/audit"
	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/plan"
	"github.com/wonny/wielermanager/pkg/logger"
)

// ResultRefresher fills race results into a snapshot
type ResultRefresher interface {
	RefreshResults(ctx context.Context, snap *contracts.Snapshot) (int, error)
}

// SnapshotStore reads and writes snapshots
type SnapshotStore interface {
	contracts.SnapshotSource
	contracts.SnapshotSink
}

// PlanLookup finds the plan to score
type PlanLookup interface {
	Latest(ctx context.Context, strategy contracts.Strategy) (*contracts.Plan, error)
}

// ReportSink stores realized reports
type ReportSink interface {
	SaveRealized(ctx context.Context, report *audit.RealizedReport) error
}

// ResultsJob records race results and scores the latest plan against them
type ResultsJob struct {
	refresher ResultRefresher
	snapshots SnapshotStore
	plans     PlanLookup
	reports   ReportSink
	logger    *logger.Logger
}

// NewResultsJob creates a new results job; plans and reports may be nil
func NewResultsJob(r ResultRefresher, snapshots SnapshotStore, plans PlanLookup, reports ReportSink, log *logger.Logger) *ResultsJob {
	return &ResultsJob{
		refresher: r,
		snapshots: snapshots,
		plans:     plans,
		reports:   reports,
		logger:    log,
	}
}

// Name returns the job name
func (j *ResultsJob) Name() string {
	return "results"
}

// Schedule returns the cron schedule (every day at 22:30, after the finish)
func (j *ResultsJob) Schedule() string {
	return "0 30 22 * * *"
}

// Run fetches results and updates the realized report
func (j *ResultsJob) Run(ctx context.Context) error {
	snap, err := j.snapshots.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	updated, err := j.refresher.RefreshResults(ctx, snap)
	if err != nil {
		return fmt.Errorf("refresh results: %w", err)
	}
	if updated == 0 {
		j.logger.Info("No new race results")
		return nil
	}

	if err := j.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if j.plans == nil {
		return nil
	}
	latest, err := j.plans.Latest(ctx, contracts.StrategyMILP)
	if errors.Is(err, plan.ErrPlanNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}

	report := audit.Realized(latest, snap.Races, snap.Riders)
	j.logger.WithFields(map[string]interface{}{
		"plan_id":   report.PlanID,
		"completed": report.Completed,
		"expected":  report.TotalExpected,
		"actual":    report.TotalActual,
	}).Info("Plan scored against results")

	if j.reports != nil {
		if err := j.reports.SaveRealized(ctx, report); err != nil {
			return fmt.Errorf("save realized report: %w", err)
		}
	}
	return nil
}

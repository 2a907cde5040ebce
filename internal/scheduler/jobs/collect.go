package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/wielermanager/internal/collector"
	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/pkg/logger"
)

// Collector builds a fresh snapshot
type Collector interface {
	Collect(ctx context.Context, cfg collector.Config) (*contracts.Snapshot, error)
}

// CollectJob scrapes start lists and prices and stores a new snapshot
// ⭐ SSOT: the collection schedule is defined in this job only
type CollectJob struct {
	collector Collector
	sink      contracts.SnapshotSink
	config    collector.Config
	logger    *logger.Logger
}

// NewCollectJob creates a new collection job
func NewCollectJob(c Collector, sink contracts.SnapshotSink, cfg collector.Config, log *logger.Logger) *CollectJob {
	return &CollectJob{
		collector: c,
		sink:      sink,
		config:    cfg,
		logger:    log,
	}
}

// Name returns the job name
func (j *CollectJob) Name() string {
	return "collect"
}

// Schedule returns the cron schedule (every day at 06:00)
func (j *CollectJob) Schedule() string {
	return "0 0 6 * * *"
}

// Run executes the collection
func (j *CollectJob) Run(ctx context.Context) error {
	snap, err := j.collector.Collect(ctx, j.config)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	if err := j.sink.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"riders": len(snap.Riders),
		"races":  len(snap.Races),
	}).Info("Snapshot collected")
	return nil
}

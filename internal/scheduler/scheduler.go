package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/wielermanager/pkg/logger"
)

// Options tunes job execution
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration // per attempt
	Location   *time.Location
}

// DefaultOptions retries twice and runs jobs on Brussels time
func DefaultOptions() Options {
	loc, err := time.LoadLocation("Europe/Brussels")
	if err != nil {
		loc = time.UTC
	}
	return Options{
		MaxRetries: 2,
		RetryDelay: time.Minute,
		Timeout:    15 * time.Minute,
		Location:   loc,
	}
}

// Scheduler runs jobs on cron schedules
// ⭐ SSOT: schedules are managed by this scheduler only
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	opts    Options
	jobs    map[string]Job
	entries map[string]cron.EntryID
	history map[string]*JobHistory
	mu      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new scheduler
func New(log *logger.Logger, opts Options) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	log = log.Component("scheduler")
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(opts.Location),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{log})),
		),
		logger:  log,
		opts:    opts,
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
		history: make(map[string]*JobHistory),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() { s.runJob(job) })
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.entries[name] = id
	s.history[name] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")

	return nil
}

// RemoveJob unschedules a job
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.entries[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(id)
	delete(s.jobs, name)
	delete(s.entries, name)
	s.logger.WithField("job", name).Info("Job removed from scheduler")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	stopped := s.cron.Stop()
	s.cancel()
	<-stopped.Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// RunJob runs a job immediately and waits for the result
func (s *Scheduler) RunJob(name string) (JobResult, error) {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return JobResult{}, fmt.Errorf("job %s not found", name)
	}

	return s.runJob(job), nil
}

// runJob executes a job with retries and records the result
func (s *Scheduler) runJob(job Job) JobResult {
	s.wg.Add(1)
	defer s.wg.Done()

	name := job.Name()
	result := JobResult{JobName: name, StartTime: time.Now()}
	s.logger.WithField("job", name).Info("Job started")

	var lastErr error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		result.Attempts = attempt + 1
		lastErr = s.attempt(job)
		if lastErr == nil || s.ctx.Err() != nil {
			break
		}

		s.logger.WithFields(map[string]interface{}{
			"job":     name,
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		}).Warn("Job execution failed, retrying")

		if attempt < s.opts.MaxRetries {
			select {
			case <-s.ctx.Done():
			case <-time.After(s.opts.RetryDelay):
			}
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Success = lastErr == nil
	if lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if history, exists := s.history[name]; exists {
		history.AddResult(result)
	}
	s.mu.Unlock()

	fields := map[string]interface{}{
		"job":      name,
		"duration": result.Duration,
		"attempts": result.Attempts,
	}
	if result.Success {
		s.logger.WithFields(fields).Info("Job completed successfully")
	} else {
		s.logger.WithFields(fields).WithError(lastErr).Error("Job failed after all retries")
	}
	return result
}

func (s *Scheduler) attempt(job Job) error {
	ctx := s.ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	return job.Run(ctx)
}

// GetJobHistory returns the history for a specific job
func (s *Scheduler) GetJobHistory(name string) ([]JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.history[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return append([]JobResult(nil), history.Results...), nil
}

// GetAllJobs returns the registered job names, sorted
func (s *Scheduler) GetAllJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetJobStats returns statistics for all jobs
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.jobs))
	for name, job := range s.jobs {
		history := s.history[name]
		st := JobStats{
			JobName:     name,
			Schedule:    job.Schedule(),
			TotalRuns:   len(history.Results),
			SuccessRate: history.SuccessRate(),
		}
		for _, r := range history.Results {
			if !r.Success {
				st.FailureCount++
			}
		}
		st.SuccessCount = st.TotalRuns - st.FailureCount
		if last, ok := history.Latest(); ok {
			st.LastRun = &last.StartTime
			st.LastSuccess = last.Success
		}
		if next := s.cron.Entry(s.entries[name]).Next; !next.IsZero() {
			st.NextRun = &next
		}
		stats[name] = st
	}

	return stats
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  bool       `json:"last_success"`
	NextRun      *time.Time `json:"next_run,omitempty"`
}

// cronLogger adapts the zerolog wrapper to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kvFields(keysAndValues)).WithError(err).Error(msg)
}

func kvFields(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}

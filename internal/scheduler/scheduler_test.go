package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name     string
	schedule string
	failures int
	calls    int
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	j.calls++
	if j.calls <= j.failures {
		return errors.New("upstream unavailable")
	}
	return nil
}

func testOptions() Options {
	return Options{MaxRetries: 2, RetryDelay: time.Millisecond, Timeout: time.Second}
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(nil, testOptions())

	require.NoError(t, s.AddJob(&stubJob{name: "collect", schedule: "0 0 6 * * *"}))
	assert.Error(t, s.AddJob(&stubJob{name: "collect", schedule: "0 0 6 * * *"}), "duplicate")
	assert.Error(t, s.AddJob(&stubJob{name: "broken", schedule: "not a cron"}))

	require.NoError(t, s.AddJob(&stubJob{name: "replan", schedule: "@every 1h"}))
	assert.Equal(t, []string{"collect", "replan"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("replan"))
	assert.Error(t, s.RemoveJob("replan"))
	assert.Equal(t, []string{"collect"}, s.GetAllJobs())
}

func TestScheduler_RunJobRetries(t *testing.T) {
	s := New(nil, testOptions())
	job := &stubJob{name: "results", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("results")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)

	_, err = s.RunJob("missing")
	assert.Error(t, err)
}

func TestScheduler_RunJobGivesUp(t *testing.T) {
	s := New(nil, testOptions())
	require.NoError(t, s.AddJob(&stubJob{name: "collect", schedule: "@daily", failures: 10}))

	result, err := s.RunJob("collect")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "upstream unavailable", result.Error)

	history, err := s.GetJobHistory("collect")
	require.NoError(t, err)
	require.Len(t, history, 1)

	stats := s.GetJobStats()["collect"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.0, stats.SuccessRate)
	assert.False(t, stats.LastSuccess)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(nil, testOptions())
	require.NoError(t, s.AddJob(&stubJob{name: "collect", schedule: "@daily"}))

	s.Start()
	stats := s.GetJobStats()["collect"]
	require.NotNil(t, stats.NextRun)
	assert.True(t, stats.NextRun.After(time.Now()))
	s.Stop()
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	_, ok := h.Latest()
	assert.False(t, ok)

	for i := 0; i < historyLimit+5; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historyLimit)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
}

package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

type fakeLock struct {
	held bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.held = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type countingMetrics struct {
	success, failure map[string]int
}

func (c *countingMetrics) ObserveDuration(string, time.Duration) {}
func (c *countingMetrics) IncSuccess(job string)                 { c.success[job]++ }
func (c *countingMetrics) IncFailure(job string)                 { c.failure[job]++ }

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: errors.New("boom")}
	m := &countingMetrics{success: map[string]int{}, failure: map[string]int{}}
	reg, err := NewRegistry(ok, failing)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: reg,
		Lock:     &fakeLock{},
		Metrics:  m,
	})
	require.NoError(t, err)

	err = svc.runCycle(context.Background())
	require.Error(t, err)
	assert.EqualError(t, err, "failing: boom")
	assert.Len(t, multierr.Errors(err), 1)
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, m.success["ok"])
	assert.Equal(t, 1, m.failure["failing"])
	assert.Equal(t, defaultInterval, svc.interval)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "ok"}
	reg, err := NewRegistry(job)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: reg,
		Lock:     &fakeLock{held: true},
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Zero(t, job.runs)
}

func TestNewServiceNeedsJobs(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop(), Registry: reg, Lock: &fakeLock{}})
	assert.Error(t, err)
}

type failingLock struct{}

func (failingLock) Acquire(context.Context) (bool, error) { return false, errors.New("redis down") }
func (failingLock) Release(context.Context) error         { return nil }

func TestRunCycleSurfacesLockError(t *testing.T) {
	job := &testJob{name: "ok"}
	reg, err := NewRegistry(job)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: reg, Lock: failingLock{}})
	require.NoError(t, err)

	assert.ErrorContains(t, svc.runCycle(context.Background()), "lock acquire")
	assert.Zero(t, job.runs)
}

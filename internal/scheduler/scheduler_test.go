package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestExecuteScheduledJobsAtConfiguredHour(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(func() error {
		runs.Add(1)
		return nil
	}, 2, logrus.New())

	at := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)
	s.executeScheduledJobs(at)
	assert.Equal(t, int32(1), runs.Load())

	// Same day, same hour: must not run again.
	s.executeScheduledJobs(at.Add(time.Minute))
	assert.Equal(t, int32(1), runs.Load())

	// Next day runs again.
	s.executeScheduledJobs(at.Add(24 * time.Hour))
	assert.Equal(t, int32(2), runs.Load())
}

func TestExecuteScheduledJobsSkipsOtherHours(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(func() error {
		runs.Add(1)
		return nil
	}, 2, logrus.New())

	s.executeScheduledJobs(time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC))
	assert.Equal(t, int32(0), runs.Load())
}

func TestFailedRetrainRetriesNextTick(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(func() error {
		runs.Add(1)
		return errors.New("store unreachable")
	}, 2, logrus.New())

	at := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)
	s.executeScheduledJobs(at)
	s.executeScheduledJobs(at.Add(time.Minute))
	assert.Equal(t, int32(2), runs.Load())
}

func TestRunNow(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(func() error {
		runs.Add(1)
		return nil
	}, 2, logrus.New())

	assert.NoError(t, s.RunNow())
	assert.Equal(t, int32(1), runs.Load())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(func() error { return nil }, 2, logrus.New())
	s.Start()
	s.Stop()
}

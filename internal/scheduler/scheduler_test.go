package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/tgharvest/internal/logger"
	"github.com/ibeckermayer/tgharvest/internal/scheduler"
)

func noop(context.Context) error { return nil }

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.New("UTC", logger.NewNop())
	require.NoError(t, err)
	return s
}

func TestNew_InvalidTimezone(t *testing.T) {
	_, err := scheduler.New("Mars/Olympus_Mons", logger.NewNop())
	assert.Error(t, err)
}

func TestNew_Timezone(t *testing.T) {
	s, err := scheduler.New("Africa/Addis_Ababa", logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Africa/Addis_Ababa", s.Location().String())
}

func TestAddJob_ListAndRemove(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.AddPipelineJob("0 */6 * * *", noop))
	require.NoError(t, s.AddJob("cleanup", "30 2 * * *", noop))

	jobs := s.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "cleanup", jobs[0].Name)
	assert.Equal(t, scheduler.PipelineJobName, jobs[1].Name)

	s.RemoveJob("cleanup")
	s.RemoveJob("missing")

	jobs = s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, scheduler.PipelineJobName, jobs[0].Name)
}

func TestAddJob_ReplacesSameName(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.AddPipelineJob("0 */6 * * *", noop))
	require.NoError(t, s.AddPipelineJob("0 * * * *", noop))

	assert.Len(t, s.ListJobs(), 1)
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := newScheduler(t)

	err := s.AddPipelineJob("every six hours", noop)
	assert.Error(t, err)
	assert.Empty(t, s.ListJobs())
}

func TestRunNow(t *testing.T) {
	s := newScheduler(t)
	boom := errors.New("boom")

	err := s.RunNow(context.Background(), "manual", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestStart_RunsJob(t *testing.T) {
	s := newScheduler(t)
	ran := make(chan struct{}, 1)

	require.NoError(t, s.AddJob("tick", "@every 1s", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))

	s.Start()
	defer func() { <-s.Stop().Done() }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

package timer

import (
	"context"
	"testing"
	"time"

	"github.com/2beens/gymhustle/internal/telemetry/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, now time.Time) (*Service, *repoMock) {
	t.Helper()
	repo := NewRepoMock()
	service := NewService(repo, metrics.NewTestManager())
	service.NowFunc = func() time.Time { return now }
	return service, repo
}

func runningCount(repo *repoMock) int {
	count := 0
	for _, workoutTime := range repo.Timers {
		if workoutTime.IsRunning() {
			count++
		}
	}
	return count
}

func TestService_StartStop(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	service, repo := newTestService(t, t0)

	started, err := service.Start(ctx, 1, 5, "push")
	require.NoError(t, err)
	require.NotNil(t, started)
	assert.True(t, started.IsRunning())
	assert.Equal(t, t0, started.StartedAt)
	assert.Equal(t, 1, runningCount(repo))

	service.NowFunc = func() time.Time { return t0.Add(15 * time.Minute) }
	stopped, err := service.Stop(ctx, 1, 5, "push")
	require.NoError(t, err)
	require.NotNil(t, stopped)
	assert.Equal(t, started.ID, stopped.ID)
	require.NotNil(t, stopped.DurationSeconds)
	assert.Equal(t, 900, *stopped.DurationSeconds)
	assert.Equal(t, 0, runningCount(repo))
}

func TestService_StopWithNothingRunning(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	stopped, err := service.Stop(ctx, 1, 5, "push")
	require.NoError(t, err)
	assert.Nil(t, stopped)
}

func TestService_StartForcesCloseOfRunning(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	service, repo := newTestService(t, t0)

	first, err := service.Start(ctx, 1, 5, "push")
	require.NoError(t, err)

	// second start 10 minutes in: first one gets stopped with the
	// elapsed duration, only the new one keeps running
	service.NowFunc = func() time.Time { return t0.Add(600 * time.Second) }
	second, err := service.Start(ctx, 1, 5, "push")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, runningCount(repo))

	closedFirst := repo.Timers[first.ID]
	require.NotNil(t, closedFirst.DurationSeconds)
	assert.Equal(t, 600, *closedFirst.DurationSeconds)

	service.NowFunc = func() time.Time { return t0.Add(900 * time.Second) }
	stopped, err := service.Stop(ctx, 1, 5, "push")
	require.NoError(t, err)
	require.NotNil(t, stopped)
	assert.Equal(t, second.ID, stopped.ID)
	assert.Equal(t, 300, *stopped.DurationSeconds)
}

func TestService_SeparateTimersPerDayAndWorkout(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	service, repo := newTestService(t, t0)

	_, err := service.Start(ctx, 1, 5, "push")
	require.NoError(t, err)
	_, err = service.Start(ctx, 1, 5, "pull")
	require.NoError(t, err)
	_, err = service.Start(ctx, 1, 6, "push")
	require.NoError(t, err)
	_, err = service.Start(ctx, 2, 5, "push")
	require.NoError(t, err)

	// different keys, no force-closing across them
	assert.Equal(t, 4, runningCount(repo))
}

func TestService_DurationFloorsSubsecondRemainder(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	service, _ := newTestService(t, t0)

	_, err := service.Start(ctx, 1, 5, "push")
	require.NoError(t, err)

	service.NowFunc = func() time.Time { return t0.Add(90*time.Second + 999*time.Millisecond) }
	stopped, err := service.Stop(ctx, 1, 5, "push")
	require.NoError(t, err)
	require.NotNil(t, stopped)
	assert.Equal(t, 90, *stopped.DurationSeconds)
}

func TestService_GetLast(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	service, _ := newTestService(t, t0)

	_, err := service.GetLast(ctx, 1, 5, "push", nil)
	assert.ErrorIs(t, err, ErrTimerNotFound)

	first, err := service.Start(ctx, 1, 5, "push")
	require.NoError(t, err)
	_, err = service.Stop(ctx, 1, 5, "push")
	require.NoError(t, err)

	// next day, another session
	t1 := t0.AddDate(0, 0, 1)
	service.NowFunc = func() time.Time { return t1 }
	second, err := service.Start(ctx, 1, 5, "push")
	require.NoError(t, err)

	last, err := service.GetLast(ctx, 1, 5, "push", nil)
	require.NoError(t, err)
	assert.Equal(t, second.ID, last.ID)

	// exact date filter picks the older one
	firstDate := first.Date
	last, err = service.GetLast(ctx, 1, 5, "push", &firstDate)
	require.NoError(t, err)
	assert.Equal(t, first.ID, last.ID)
}

func TestService_UpdateDuration(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	service, repo := newTestService(t, t0)

	started, err := service.Start(ctx, 1, 5, "push")
	require.NoError(t, err)
	service.NowFunc = func() time.Time { return t0.Add(10 * time.Minute) }
	_, err = service.Stop(ctx, 1, 5, "push")
	require.NoError(t, err)

	updated, err := service.UpdateDuration(ctx, 1, started.ID, 480, nil)
	require.NoError(t, err)
	require.NotNil(t, updated.DurationSeconds)
	assert.Equal(t, 480, *updated.DurationSeconds)

	// someone else's timer stays untouched
	_, err = service.UpdateDuration(ctx, 2, started.ID, 1, nil)
	assert.ErrorIs(t, err, ErrTimerNotFound)
	assert.Equal(t, 480, *repo.Timers[started.ID].DurationSeconds)

	_, err = service.UpdateDuration(ctx, 1, 999, 1, nil)
	assert.ErrorIs(t, err, ErrTimerNotFound)
}

func TestService_UpdateDuration_RunningTimerRejected(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	service, repo := newTestService(t, t0)

	started, err := service.Start(ctx, 1, 5, "push")
	require.NoError(t, err)

	// only stopped sessions can be corrected
	_, err = service.UpdateDuration(ctx, 1, started.ID, 480, nil)
	assert.ErrorIs(t, err, ErrTimerNotFound)

	stored := repo.Timers[started.ID]
	assert.True(t, stored.IsRunning())
	assert.Nil(t, stored.DurationSeconds)
}

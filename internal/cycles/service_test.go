package cycles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, now time.Time) (*Service, *repoMock) {
	t.Helper()
	repo := NewRepoMock()
	service := NewService(repo)
	service.NowFunc = func() time.Time { return now }
	return service, repo
}

func TestService_AddCycle(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, date(2024, 6, 1))

	cycle, err := service.AddCycle(ctx, 1, CycleTypeBulking, date(2024, 6, 1))
	require.NoError(t, err)
	require.NotNil(t, cycle)
	assert.Equal(t, CycleTypeBulking, cycle.Type)
	assert.True(t, cycle.IsActive())

	// second active cycle for the same user is denied
	_, err = service.AddCycle(ctx, 1, CycleTypeCutting, date(2024, 6, 2))
	assert.ErrorIs(t, err, ErrActiveCycleExists)

	// other users are unaffected
	_, err = service.AddCycle(ctx, 2, CycleTypeCutting, date(2024, 6, 2))
	require.NoError(t, err)

	// after closing, a new cycle may start
	require.NoError(t, service.CloseCycle(ctx, 1, cycle.ID, date(2024, 8, 1)))
	_, err = service.AddCycle(ctx, 1, CycleTypeCutting, date(2024, 8, 2))
	require.NoError(t, err)
}

func TestService_CreateFortnight_FirstIsAlwaysAllowed(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, date(2024, 6, 1))

	cycle, err := service.AddCycle(ctx, 1, CycleTypeBulking, date(2024, 6, 1))
	require.NoError(t, err)

	result, err := service.CreateFortnight(ctx, 1, cycle.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, result.Fortnight)
	assert.Equal(t, 1, result.Fortnight.WeekNumber)
	assert.Equal(t, date(2024, 6, 1), result.Fortnight.StartDate)
}

func TestService_CreateFortnight_CooldownGate(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, date(2024, 6, 1))

	cycle, err := service.AddCycle(ctx, 1, CycleTypeBulking, date(2024, 6, 1))
	require.NoError(t, err)

	result, err := service.CreateFortnight(ctx, 1, cycle.ID)
	require.NoError(t, err)
	require.True(t, result.Success)

	// 12 days later: denied, nothing stored
	service.NowFunc = func() time.Time { return date(2024, 6, 13) }
	result, err = service.CreateFortnight(ctx, 1, cycle.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "You can only create a new fortnight after 13 days (2 weeks).", result.Error)
	assert.Nil(t, result.Fortnight)

	fortnights, err := service.ListFortnights(ctx, 1, cycle.ID)
	require.NoError(t, err)
	require.Len(t, fortnights, 1)

	// exactly 13 days later: allowed, week number incremented
	service.NowFunc = func() time.Time { return date(2024, 6, 14) }
	result, err = service.CreateFortnight(ctx, 1, cycle.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 2, result.Fortnight.WeekNumber)
	assert.Equal(t, date(2024, 6, 14), result.Fortnight.StartDate)
}

func TestService_CreateFortnight_CalendarDays(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, date(2024, 6, 1))

	cycle, err := service.AddCycle(ctx, 1, CycleTypeCutting, date(2024, 6, 1))
	require.NoError(t, err)

	// first fortnight started late in the evening on June 1st
	service.NowFunc = func() time.Time {
		return time.Date(2024, 6, 1, 23, 50, 0, 0, time.UTC)
	}
	result, err := service.CreateFortnight(ctx, 1, cycle.ID)
	require.NoError(t, err)
	require.True(t, result.Success)

	// June 10th is only 9 calendar days later, regardless of clock time
	service.NowFunc = func() time.Time {
		return time.Date(2024, 6, 10, 0, 5, 0, 0, time.UTC)
	}
	result, err = service.CreateFortnight(ctx, 1, cycle.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)

	// June 14th crosses the 13 whole day mark
	service.NowFunc = func() time.Time {
		return time.Date(2024, 6, 14, 0, 5, 0, 0, time.UTC)
	}
	result, err = service.CreateFortnight(ctx, 1, cycle.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 2, result.Fortnight.WeekNumber)
}

func TestService_CreateFortnight_OwnershipChecked(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, date(2024, 6, 1))

	cycle, err := service.AddCycle(ctx, 1, CycleTypeBulking, date(2024, 6, 1))
	require.NoError(t, err)

	_, err = service.CreateFortnight(ctx, 2, cycle.ID)
	assert.ErrorIs(t, err, ErrCycleNotFound)

	_, err = service.ListFortnights(ctx, 2, cycle.ID)
	assert.ErrorIs(t, err, ErrCycleNotFound)
}

func TestDaysBetween(t *testing.T) {
	testCases := []struct {
		from     time.Time
		to       time.Time
		expected int
	}{
		{date(2024, 6, 1), date(2024, 6, 1), 0},
		{date(2024, 6, 1), date(2024, 6, 14), 13},
		{time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC), time.Date(2024, 6, 2, 0, 1, 0, 0, time.UTC), 1},
		{date(2024, 2, 27), date(2024, 3, 1), 3}, // leap year
		{date(2024, 6, 14), date(2024, 6, 1), -13},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, DaysBetween(tc.from, tc.to))
	}
}

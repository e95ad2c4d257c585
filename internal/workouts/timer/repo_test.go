//go:build integration_test || all_tests

package timer

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/2beens/gymhustle/internal/db"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postgres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "gymhustle",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	return NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func addTestUserAndWorkout(ctx context.Context, t *testing.T, repo *Repo) (userID, workoutID int) {
	t.Helper()

	err := repo.db.QueryRow(
		ctx,
		`INSERT INTO gym_user (email, password_hash, created_at)
			VALUES ($1, $2, NOW())
		RETURNING id;`,
		gofakeit.Email(), gofakeit.Password(true, true, true, false, false, 20),
	).Scan(&userID)
	require.NoError(t, err)

	err = repo.db.QueryRow(
		ctx,
		`INSERT INTO workout (user_id, name, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
		RETURNING id;`,
		userID, gofakeit.HipsterWord(),
	).Scan(&workoutID)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, err := repo.db.Exec(ctx, `DELETE FROM workout_time WHERE user_id = $1`, userID)
		assert.NoError(t, err)
		_, err = repo.db.Exec(ctx, `DELETE FROM workout WHERE id = $1`, workoutID)
		assert.NoError(t, err)
		_, err = repo.db.Exec(ctx, `DELETE FROM gym_user WHERE id = $1`, userID)
		assert.NoError(t, err)
	})

	return userID, workoutID
}

func TestRepo_TimerLifecycle(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	userID, workoutID := addTestUserAndWorkout(ctx, t, repo)

	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	startedAt := today.Add(10 * time.Hour)

	_, err := repo.GetRunning(ctx, userID, workoutID, "push", today)
	assert.ErrorIs(t, err, ErrTimerNotFound)

	added, err := repo.Add(ctx, WorkoutTime{
		UserID:    userID,
		WorkoutID: workoutID,
		DayName:   "push",
		Date:      today,
		StartedAt: startedAt,
	})
	require.NoError(t, err)
	require.NotNil(t, added)
	assert.True(t, added.IsRunning())

	running, err := repo.GetRunning(ctx, userID, workoutID, "push", today)
	require.NoError(t, err)
	assert.Equal(t, added.ID, running.ID)

	// other day name is a separate key
	_, err = repo.GetRunning(ctx, userID, workoutID, "pull", today)
	assert.ErrorIs(t, err, ErrTimerNotFound)

	endedAt := startedAt.Add(15 * time.Minute)
	require.NoError(t, repo.Close(ctx, added.ID, endedAt, 900))

	_, err = repo.GetRunning(ctx, userID, workoutID, "push", today)
	assert.ErrorIs(t, err, ErrTimerNotFound)

	closed, err := repo.Get(ctx, userID, added.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.DurationSeconds)
	assert.Equal(t, 900, *closed.DurationSeconds)
	assert.False(t, closed.IsRunning())
}

func TestRepo_GetLastAndUpdateDuration(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	userID, workoutID := addTestUserAndWorkout(ctx, t, repo)

	day1 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	first, err := repo.Add(ctx, WorkoutTime{
		UserID:    userID,
		WorkoutID: workoutID,
		DayName:   "push",
		Date:      day1,
		StartedAt: day1.Add(10 * time.Hour),
	})
	require.NoError(t, err)
	second, err := repo.Add(ctx, WorkoutTime{
		UserID:    userID,
		WorkoutID: workoutID,
		DayName:   "push",
		Date:      day2,
		StartedAt: day2.Add(10 * time.Hour),
	})
	require.NoError(t, err)

	last, err := repo.GetLast(ctx, userID, workoutID, "push", nil)
	require.NoError(t, err)
	assert.Equal(t, second.ID, last.ID)

	last, err = repo.GetLast(ctx, userID, workoutID, "push", &day1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, last.ID)

	require.NoError(t, repo.Close(ctx, first.ID, day1.Add(10*time.Hour+15*time.Minute), 900))
	require.NoError(t, repo.UpdateDuration(ctx, userID, first.ID, 480, nil))
	updated, err := repo.Get(ctx, userID, first.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.DurationSeconds)
	assert.Equal(t, 480, *updated.DurationSeconds)

	// a running session cannot be corrected
	assert.ErrorIs(t, repo.UpdateDuration(ctx, userID, second.ID, 1, nil), ErrTimerNotFound)
	stillRunning, err := repo.Get(ctx, userID, second.ID)
	require.NoError(t, err)
	assert.True(t, stillRunning.IsRunning())
	assert.Nil(t, stillRunning.DurationSeconds)

	// scoped to the owner
	otherUserID, _ := addTestUserAndWorkout(ctx, t, repo)
	assert.ErrorIs(t, repo.UpdateDuration(ctx, otherUserID, first.ID, 1, nil), ErrTimerNotFound)
}

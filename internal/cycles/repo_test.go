//go:build integration_test || all_tests

package cycles

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

func addTestUser(ctx context.Context, t *testing.T, repo *Repo) int {
	t.Helper()

	var userID int
	err := repo.db.QueryRow(
		ctx,
		`INSERT INTO gym_user (email, password_hash, created_at)
			VALUES ($1, $2, NOW())
		RETURNING id;`,
		gofakeit.Email(), gofakeit.Password(true, true, true, false, false, 20),
	).Scan(&userID)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, err := repo.db.Exec(ctx, `DELETE FROM gym_user WHERE id = $1`, userID)
		assert.NoError(t, err)
	})

	return userID
}

func TestRepo_CyclesCRUD(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	userID := addTestUser(ctx, t, repo)

	cyclesList, err := repo.List(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, cyclesList)

	_, err = repo.GetActive(ctx, userID)
	assert.ErrorIs(t, err, ErrCycleNotFound)

	startDate := DateOnly(time.Now())
	added, err := repo.Add(ctx, Cycle{
		UserID:    userID,
		Type:      CycleTypeBulking,
		StartDate: startDate,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NotNil(t, added)
	assert.Greater(t, added.ID, 0)

	t.Cleanup(func() {
		_, err := repo.db.Exec(ctx, `DELETE FROM cycle WHERE id = $1`, added.ID)
		assert.NoError(t, err)
	})

	retrieved, err := repo.Get(ctx, userID, added.ID)
	require.NoError(t, err)
	assert.Equal(t, CycleTypeBulking, retrieved.Type)
	assert.True(t, retrieved.StartDate.Equal(startDate))
	assert.True(t, retrieved.IsActive())

	active, err := repo.GetActive(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, added.ID, active.ID)

	// other users cannot see it
	otherUserID := addTestUser(ctx, t, repo)
	_, err = repo.Get(ctx, otherUserID, added.ID)
	assert.ErrorIs(t, err, ErrCycleNotFound)
	assert.ErrorIs(t, repo.Close(ctx, otherUserID, added.ID, time.Now()), ErrCycleNotFound)

	require.NoError(t, repo.Close(ctx, userID, added.ID, DateOnly(time.Now())))
	_, err = repo.GetActive(ctx, userID)
	assert.ErrorIs(t, err, ErrCycleNotFound)

	cyclesList, err = repo.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cyclesList, 1)
	assert.False(t, cyclesList[0].IsActive())
}

func TestRepo_Fortnights(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	userID := addTestUser(ctx, t, repo)

	cycle, err := repo.Add(ctx, Cycle{
		UserID:    userID,
		Type:      CycleTypeCutting,
		StartDate: DateOnly(time.Now()),
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_, err := repo.db.Exec(ctx, `DELETE FROM fortnight WHERE cycle_id = $1`, cycle.ID)
		assert.NoError(t, err)
		_, err = repo.db.Exec(ctx, `DELETE FROM cycle WHERE id = $1`, cycle.ID)
		assert.NoError(t, err)
	})

	_, err = repo.LatestFortnight(ctx, cycle.ID)
	assert.ErrorIs(t, err, ErrNoFortnights)

	fortnight1, err := repo.AddFortnight(ctx, Fortnight{
		CycleID:    cycle.ID,
		WeekNumber: 1,
		StartDate:  DateOnly(time.Now().AddDate(0, 0, -14)),
	})
	require.NoError(t, err)
	fortnight2, err := repo.AddFortnight(ctx, Fortnight{
		CycleID:    cycle.ID,
		WeekNumber: 2,
		StartDate:  DateOnly(time.Now()),
	})
	require.NoError(t, err)

	latest, err := repo.LatestFortnight(ctx, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, fortnight2.ID, latest.ID)
	assert.Equal(t, 2, latest.WeekNumber)

	fortnights, err := repo.ListFortnights(ctx, cycle.ID)
	require.NoError(t, err)
	require.Len(t, fortnights, 2)
	assert.Equal(t, fortnight1.ID, fortnights[0].ID)
	assert.Equal(t, fortnight2.ID, fortnights[1].ID)
}

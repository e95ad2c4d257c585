//go:build integration_test || all_tests

package macros

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

// creates a user and an open cycle for it, cleans both up afterwards
func addTestUserAndCycle(ctx context.Context, t *testing.T, repo *Repo) (userID, cycleID int) {
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
		`INSERT INTO cycle (user_id, type, start_date, created_at)
			VALUES ($1, 'bulking', NOW(), NOW())
		RETURNING id;`,
		userID,
	).Scan(&cycleID)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, err := repo.db.Exec(ctx, `DELETE FROM macro_goal WHERE user_id = $1`, userID)
		assert.NoError(t, err)
		_, err = repo.db.Exec(ctx, `DELETE FROM food_idea WHERE user_id = $1`, userID)
		assert.NoError(t, err)
		_, err = repo.db.Exec(ctx, `DELETE FROM cycle WHERE id = $1`, cycleID)
		assert.NoError(t, err)
		_, err = repo.db.Exec(ctx, `DELETE FROM gym_user WHERE id = $1`, userID)
		assert.NoError(t, err)
	})

	return userID, cycleID
}

func TestRepo_MacroGoalUpsert(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	userID, cycleID := addTestUserAndCycle(ctx, t, repo)

	goals, err := repo.GetMacroGoals(ctx, userID, cycleID, 1)
	require.NoError(t, err)
	require.Empty(t, goals)

	added, err := repo.UpsertMacroGoal(ctx, MacroGoal{
		UserID:  userID,
		CycleID: cycleID,
		Week:    1,
		Meal:    MealMorning,
		Carbos:  80,
		Fat:     20,
		Protein: 40,
	})
	require.NoError(t, err)
	require.NotNil(t, added)

	// upsert with the same key overwrites, keeps the row count at one
	updated, err := repo.UpsertMacroGoal(ctx, MacroGoal{
		UserID:  userID,
		CycleID: cycleID,
		Week:    1,
		Meal:    MealMorning,
		Carbos:  100,
		Fat:     25,
		Protein: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, added.ID, updated.ID)

	goals, err = repo.GetMacroGoals(ctx, userID, cycleID, 1)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, 100, goals[0].Carbos)
	assert.Equal(t, 25, goals[0].Fat)
	assert.Equal(t, 45, goals[0].Protein)

	// a different week is a separate row
	_, err = repo.UpsertMacroGoal(ctx, MacroGoal{
		UserID:  userID,
		CycleID: cycleID,
		Week:    2,
		Meal:    MealMorning,
		Carbos:  90,
		Fat:     22,
		Protein: 42,
	})
	require.NoError(t, err)

	goals, err = repo.GetMacroGoals(ctx, userID, cycleID, 2)
	require.NoError(t, err)
	assert.Len(t, goals, 1)

	// a cycle owned by somebody else is off limits
	otherUserID, _ := addTestUserAndCycle(ctx, t, repo)
	_, err = repo.UpsertMacroGoal(ctx, MacroGoal{
		UserID:  otherUserID,
		CycleID: cycleID,
		Week:    1,
		Meal:    MealMorning,
		Carbos:  999,
	})
	assert.ErrorIs(t, err, ErrCycleNotFound)

	goals, err = repo.GetMacroGoals(ctx, userID, cycleID, 1)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, 100, goals[0].Carbos)

	_, err = repo.AddFoodIdea(ctx, FoodIdea{
		UserID:    otherUserID,
		CycleID:   cycleID,
		Week:      1,
		Meal:      MealDinner,
		Text:      "nope",
		CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, ErrCycleNotFound)
}

func TestRepo_FoodIdeasCRUD(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	userID, cycleID := addTestUserAndCycle(ctx, t, repo)

	idea, err := repo.AddFoodIdea(ctx, FoodIdea{
		UserID:    userID,
		CycleID:   cycleID,
		Week:      1,
		Meal:      MealDinner,
		Text:      gofakeit.Dinner(),
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NotNil(t, idea)

	ideas, err := repo.ListFoodIdeas(ctx, userID, cycleID, 1)
	require.NoError(t, err)
	require.Len(t, ideas, 1)

	require.NoError(t, repo.UpdateFoodIdea(ctx, userID, idea.ID, "grilled salmon"))
	ideas, err = repo.ListFoodIdeas(ctx, userID, cycleID, 1)
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, "grilled salmon", ideas[0].Text)

	// scoped to the owner
	otherUserID, _ := addTestUserAndCycle(ctx, t, repo)
	assert.ErrorIs(t, repo.UpdateFoodIdea(ctx, otherUserID, idea.ID, "nope"), ErrFoodIdeaNotFound)
	assert.ErrorIs(t, repo.DeleteFoodIdea(ctx, otherUserID, idea.ID), ErrFoodIdeaNotFound)

	require.NoError(t, repo.DeleteFoodIdea(ctx, userID, idea.ID))
	assert.ErrorIs(t, repo.DeleteFoodIdea(ctx, userID, idea.ID), ErrFoodIdeaNotFound)

	ideas, err = repo.ListFoodIdeas(ctx, userID, cycleID, 1)
	require.NoError(t, err)
	assert.Empty(t, ideas)
}

package macros

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/gymhustle/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrFoodIdeaNotFound = errors.New("food idea not found")
	ErrCycleNotFound    = errors.New("cycle not found")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) GetMacroGoals(ctx context.Context, userID, cycleID, week int) (_ []MacroGoal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.macros.getGoals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("cycle.id", cycleID))
	span.SetAttributes(attribute.Int("week", week))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, cycle_id, week, meal, carbos, fat, protein
			FROM macro_goal
			WHERE user_id = $1 AND cycle_id = $2 AND week = $3;`,
		userID, cycleID, week,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	goals := make([]MacroGoal, 0)
	for rows.Next() {
		var goal MacroGoal
		if err := rows.Scan(
			&goal.ID, &goal.UserID, &goal.CycleID, &goal.Week, &goal.Meal,
			&goal.Carbos, &goal.Fat, &goal.Protein,
		); err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}

	return goals, nil
}

// cycleOwned returns ErrCycleNotFound unless the cycle belongs to the user.
func (r *Repo) cycleOwned(ctx context.Context, userID, cycleID int) error {
	var id int
	err := r.db.QueryRow(
		ctx,
		`SELECT id FROM cycle WHERE id = $1 AND user_id = $2;`,
		cycleID, userID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCycleNotFound
	}
	return err
}

// UpsertMacroGoal inserts or overwrites the goal for (cycle, week, meal).
// The cycle must belong to goal.UserID.
func (r *Repo) UpsertMacroGoal(ctx context.Context, goal MacroGoal) (_ *MacroGoal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.macros.upsertGoal")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := r.cycleOwned(ctx, goal.UserID, goal.CycleID); err != nil {
		return nil, err
	}

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO macro_goal (user_id, cycle_id, week, meal, carbos, fat, protein)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cycle_id, week, meal) DO UPDATE
			SET carbos = EXCLUDED.carbos,
				fat = EXCLUDED.fat,
				protein = EXCLUDED.protein
			WHERE macro_goal.user_id = EXCLUDED.user_id
		RETURNING id;`,
		goal.UserID, goal.CycleID, goal.Week, goal.Meal, goal.Carbos, goal.Fat, goal.Protein,
	).Scan(&goal.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// conflict row held by another user, nothing was written
		return nil, ErrCycleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("upsert macro goal: %w", err)
	}

	span.SetAttributes(attribute.Int("macro-goal.id", goal.ID))
	return &goal, nil
}

func (r *Repo) ListFoodIdeas(ctx context.Context, userID, cycleID, week int) (_ []FoodIdea, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.macros.listIdeas")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("cycle.id", cycleID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, cycle_id, week, meal, text, created_at
			FROM food_idea
			WHERE user_id = $1 AND cycle_id = $2 AND week = $3
			ORDER BY created_at ASC;`,
		userID, cycleID, week,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	ideas := make([]FoodIdea, 0)
	for rows.Next() {
		var idea FoodIdea
		if err := rows.Scan(
			&idea.ID, &idea.UserID, &idea.CycleID, &idea.Week, &idea.Meal,
			&idea.Text, &idea.CreatedAt,
		); err != nil {
			return nil, err
		}
		ideas = append(ideas, idea)
	}

	return ideas, nil
}

func (r *Repo) AddFoodIdea(ctx context.Context, idea FoodIdea) (_ *FoodIdea, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.macros.addIdea")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := r.cycleOwned(ctx, idea.UserID, idea.CycleID); err != nil {
		return nil, err
	}

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO food_idea (user_id, cycle_id, week, meal, text, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;`,
		idea.UserID, idea.CycleID, idea.Week, idea.Meal, idea.Text, idea.CreatedAt,
	).Scan(&idea.ID)
	if err != nil {
		return nil, fmt.Errorf("add food idea: %w", err)
	}

	span.SetAttributes(attribute.Int("food-idea.id", idea.ID))
	return &idea, nil
}

func (r *Repo) UpdateFoodIdea(ctx context.Context, userID, ideaID int, text string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.macros.updateIdea")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("food-idea.id", ideaID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE food_idea SET text = $1 WHERE id = $2 AND user_id = $3;`,
		text, ideaID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFoodIdeaNotFound
	}
	return nil
}

func (r *Repo) DeleteFoodIdea(ctx context.Context, userID, ideaID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.macros.deleteIdea")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("food-idea.id", ideaID))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM food_idea WHERE id = $1 AND user_id = $2;`,
		ideaID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFoodIdeaNotFound
	}
	return nil
}

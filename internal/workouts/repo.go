package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/gymhustle/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrWorkoutNotFound    = errors.New("workout not found")
	ErrDayNotFound        = errors.New("workout day not found")
	ErrExerciseNotFound   = errors.New("exercise not found")
	ErrNoWorkoutSelected  = errors.New("no workout selected")
	ErrReorderIDsMismatch = errors.New("reorder ids do not match day exercises")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()
	return fn(tx)
}

func (r *Repo) AddWorkout(ctx context.Context, userID int, name string, now time.Time) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workout := Workout{
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Days:      []WorkoutDay{},
	}
	err = r.db.QueryRow(
		ctx,
		`INSERT INTO workout (user_id, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
		RETURNING id;`,
		userID, name, now, now,
	).Scan(&workout.ID)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("workout.id", workout.ID))
	return &workout, nil
}

func (r *Repo) RenameWorkout(ctx context.Context, userID, workoutID int, name string, now time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.rename")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout SET name = $1, updated_at = $2 WHERE id = $3 AND user_id = $4;`,
		name, now, workoutID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

// DeleteWorkout removes the workout with all its days, exercises and
// sets (cascaded in the schema).
func (r *Repo) DeleteWorkout(ctx context.Context, userID, workoutID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout WHERE id = $1 AND user_id = $2;`,
		workoutID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *Repo) GetWorkout(ctx context.Context, userID, workoutID int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	var workout Workout
	err = r.db.QueryRow(
		ctx,
		`SELECT id, user_id, name, created_at, updated_at
			FROM workout
			WHERE id = $1 AND user_id = $2;`,
		workoutID, userID,
	).Scan(&workout.ID, &workout.UserID, &workout.Name, &workout.CreatedAt, &workout.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workout: %w", err)
	}

	if err := r.fillDays(ctx, &workout); err != nil {
		return nil, err
	}
	return &workout, nil
}

// ListWorkouts returns the user's workouts with days, exercises and
// sets nested. Exercises come ascending by ord, archived ones excluded.
func (r *Repo) ListWorkouts(ctx context.Context, userID int) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, name, created_at, updated_at
			FROM workout
			WHERE user_id = $1
			ORDER BY created_at ASC;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	workoutsList := make([]Workout, 0)
	for rows.Next() {
		var workout Workout
		if err := rows.Scan(
			&workout.ID, &workout.UserID, &workout.Name, &workout.CreatedAt, &workout.UpdatedAt,
		); err != nil {
			return nil, err
		}
		workoutsList = append(workoutsList, workout)
	}
	rows.Close()

	for i := range workoutsList {
		if err := r.fillDays(ctx, &workoutsList[i]); err != nil {
			return nil, err
		}
	}
	return workoutsList, nil
}

func (r *Repo) fillDays(ctx context.Context, workout *Workout) error {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, workout_id, name
			FROM workout_day
			WHERE workout_id = $1
			ORDER BY id ASC;`,
		workout.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return err
	}

	workout.Days = make([]WorkoutDay, 0)
	for rows.Next() {
		var day WorkoutDay
		if err := rows.Scan(&day.ID, &day.WorkoutID, &day.Name); err != nil {
			return err
		}
		workout.Days = append(workout.Days, day)
	}
	rows.Close()

	for i := range workout.Days {
		if err := r.fillExercises(ctx, &workout.Days[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) fillExercises(ctx context.Context, day *WorkoutDay) error {
	rows, err := r.db.Query(
		ctx,
		`SELECT e.id, e.workout_day_id, e.name, e.ord, e.archived,
				s.id, s.exercise_id, s.set_number, s.reps, s.weight
			FROM exercise e
			LEFT JOIN exercise_set s ON s.exercise_id = e.id
			WHERE e.workout_day_id = $1 AND e.archived = FALSE
			ORDER BY e.ord ASC, s.set_number ASC;`,
		day.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return err
	}

	day.Exercises = make([]Exercise, 0)
	for rows.Next() {
		var exercise Exercise
		var setID, setExerciseID, setNumber *int
		var reps *string
		var weight *float64
		if err := rows.Scan(
			&exercise.ID, &exercise.WorkoutDayID, &exercise.Name, &exercise.Ord, &exercise.Archived,
			&setID, &setExerciseID, &setNumber, &reps, &weight,
		); err != nil {
			return err
		}

		if len(day.Exercises) == 0 || day.Exercises[len(day.Exercises)-1].ID != exercise.ID {
			exercise.Sets = make([]ExerciseSet, 0)
			day.Exercises = append(day.Exercises, exercise)
		}

		// left join: exercises without sets produce NULL set columns
		if setID != nil {
			last := &day.Exercises[len(day.Exercises)-1]
			last.Sets = append(last.Sets, ExerciseSet{
				ID:         *setID,
				ExerciseID: *setExerciseID,
				SetNumber:  *setNumber,
				Reps:       *reps,
				Weight:     weight,
			})
		}
	}

	return nil
}

// SelectWorkout marks the workout as the one the user currently trains
// by. The workout must belong to the user.
func (r *Repo) SelectWorkout(ctx context.Context, userID, workoutID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.select")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	var id int
	err = r.db.QueryRow(
		ctx,
		`SELECT id FROM workout WHERE id = $1 AND user_id = $2;`,
		workoutID, userID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrWorkoutNotFound
	}
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO user_profile (user_id, selected_workout_id)
			VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
			SET selected_workout_id = EXCLUDED.selected_workout_id;`,
		userID, workoutID,
	)
	return err
}

func (r *Repo) GetSelectedWorkout(ctx context.Context, userID int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.getSelected")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var selectedID *int
	err = r.db.QueryRow(
		ctx,
		`SELECT selected_workout_id FROM user_profile WHERE user_id = $1;`,
		userID,
	).Scan(&selectedID)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && selectedID == nil) {
		return nil, ErrNoWorkoutSelected
	}
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}

	return r.GetWorkout(ctx, userID, *selectedID)
}

// AddDay fails with a unique violation when the day name is already
// taken within the workout.
func (r *Repo) AddDay(ctx context.Context, userID, workoutID int, name string) (_ *WorkoutDay, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.addDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	if _, err := r.GetWorkout(ctx, userID, workoutID); err != nil {
		return nil, err
	}

	day := WorkoutDay{
		WorkoutID: workoutID,
		Name:      name,
		Exercises: []Exercise{},
	}
	err = r.db.QueryRow(
		ctx,
		`INSERT INTO workout_day (workout_id, user_id, name)
			VALUES ($1, $2, $3)
		RETURNING id;`,
		workoutID, userID, name,
	).Scan(&day.ID)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func (r *Repo) RenameDay(ctx context.Context, userID, dayID int, name string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.renameDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout-day.id", dayID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_day SET name = $1 WHERE id = $2 AND user_id = $3;`,
		name, dayID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDayNotFound
	}
	return nil
}

func (r *Repo) DeleteDay(ctx context.Context, userID, dayID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.deleteDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout-day.id", dayID))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout_day WHERE id = $1 AND user_id = $2;`,
		dayID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDayNotFound
	}
	return nil
}

// AddExercise appends the exercise at the end of the day (max ord + 1)
// and stores its sets, numbered in the given order.
func (r *Repo) AddExercise(ctx context.Context, userID, dayID int, name string, sets []ExerciseSet) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.addExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout-day.id", dayID))

	var exercise *Exercise
	err = r.withTx(ctx, func(tx pgx.Tx) error {
		var ownedDayID int
		err := tx.QueryRow(
			ctx,
			`SELECT id FROM workout_day WHERE id = $1 AND user_id = $2;`,
			dayID, userID,
		).Scan(&ownedDayID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDayNotFound
		}
		if err != nil {
			return err
		}

		added := Exercise{
			WorkoutDayID: dayID,
			Name:         name,
			Sets:         make([]ExerciseSet, 0, len(sets)),
		}
		err = tx.QueryRow(
			ctx,
			`INSERT INTO exercise (workout_day_id, name, ord, archived)
				VALUES (
					$1, $2,
					(SELECT COALESCE(MAX(ord), -1) + 1 FROM exercise WHERE workout_day_id = $1),
					FALSE
				)
			RETURNING id, ord;`,
			dayID, name,
		).Scan(&added.ID, &added.Ord)
		if err != nil {
			return err
		}

		for i, set := range sets {
			newSet := ExerciseSet{
				ExerciseID: added.ID,
				SetNumber:  i + 1,
				Reps:       set.Reps,
				Weight:     set.Weight,
			}
			err = tx.QueryRow(
				ctx,
				`INSERT INTO exercise_set (exercise_id, set_number, reps, weight)
					VALUES ($1, $2, $3, $4)
				RETURNING id;`,
				newSet.ExerciseID, newSet.SetNumber, newSet.Reps, newSet.Weight,
			).Scan(&newSet.ID)
			if err != nil {
				return err
			}
			added.Sets = append(added.Sets, newSet)
		}

		exercise = &added
		return nil
	})
	if err != nil {
		return nil, err
	}
	return exercise, nil
}

func (r *Repo) RenameExercise(ctx context.Context, userID, exerciseID int, name string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.renameExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercise SET name = $1
			WHERE id = $2
				AND workout_day_id IN (SELECT id FROM workout_day WHERE user_id = $3);`,
		name, exerciseID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func (r *Repo) DeleteExercise(ctx context.Context, userID, exerciseID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.deleteExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM exercise
			WHERE id = $1
				AND workout_day_id IN (SELECT id FROM workout_day WHERE user_id = $2);`,
		exerciseID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func (r *Repo) SetExerciseArchived(ctx context.Context, userID, exerciseID int, archived bool) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.setExerciseArchived")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))
	span.SetAttributes(attribute.Bool("exercise.archived", archived))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercise SET archived = $1
			WHERE id = $2
				AND workout_day_id IN (SELECT id FROM workout_day WHERE user_id = $3);`,
		archived, exerciseID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func (r *Repo) ListArchivedExercises(ctx context.Context, userID, workoutID int) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listArchived")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	rows, err := r.db.Query(
		ctx,
		`SELECT e.id, e.workout_day_id, e.name, e.ord, e.archived
			FROM exercise e
			JOIN workout_day wd ON wd.id = e.workout_day_id
			JOIN workout w ON w.id = wd.workout_id
			WHERE w.id = $1 AND w.user_id = $2 AND e.archived = TRUE
			ORDER BY e.id ASC;`,
		workoutID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	exercises := make([]Exercise, 0)
	for rows.Next() {
		var exercise Exercise
		if err := rows.Scan(
			&exercise.ID, &exercise.WorkoutDayID, &exercise.Name, &exercise.Ord, &exercise.Archived,
		); err != nil {
			return nil, err
		}
		exercise.Sets = []ExerciseSet{}
		exercises = append(exercises, exercise)
	}

	return exercises, nil
}

// ReorderExercises rewrites the ord of every listed exercise to its
// position in orderedIDs. The ids must exactly cover the day's
// exercises, otherwise nothing is written.
func (r *Repo) ReorderExercises(ctx context.Context, userID, dayID int, orderedIDs []int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.reorderExercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout-day.id", dayID))

	return r.withTx(ctx, func(tx pgx.Tx) error {
		var ownedDayID int
		err := tx.QueryRow(
			ctx,
			`SELECT id FROM workout_day WHERE id = $1 AND user_id = $2;`,
			dayID, userID,
		).Scan(&ownedDayID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDayNotFound
		}
		if err != nil {
			return err
		}

		var count int
		if err := tx.QueryRow(
			ctx,
			`SELECT COUNT(*) FROM exercise WHERE workout_day_id = $1;`,
			dayID,
		).Scan(&count); err != nil {
			return err
		}
		if count != len(orderedIDs) {
			return ErrReorderIDsMismatch
		}

		for ord, exerciseID := range orderedIDs {
			tag, err := tx.Exec(
				ctx,
				`UPDATE exercise SET ord = $1 WHERE id = $2 AND workout_day_id = $3;`,
				ord, exerciseID, dayID,
			)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrReorderIDsMismatch
			}
		}
		return nil
	})
}

// ReplaceExerciseSets swaps the sets of the exercise for the given
// list, renumbered from 1 in the given order.
func (r *Repo) ReplaceExerciseSets(ctx context.Context, userID, exerciseID int, sets []ExerciseSet) (_ []ExerciseSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.replaceSets")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	newSets := make([]ExerciseSet, 0, len(sets))
	err = r.withTx(ctx, func(tx pgx.Tx) error {
		var ownedExerciseID int
		err := tx.QueryRow(
			ctx,
			`SELECT e.id FROM exercise e
				JOIN workout_day wd ON wd.id = e.workout_day_id
				WHERE e.id = $1 AND wd.user_id = $2;`,
			exerciseID, userID,
		).Scan(&ownedExerciseID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExerciseNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(
			ctx,
			`DELETE FROM exercise_set WHERE exercise_id = $1;`,
			exerciseID,
		); err != nil {
			return err
		}

		for i, set := range sets {
			newSet := ExerciseSet{
				ExerciseID: exerciseID,
				SetNumber:  i + 1,
				Reps:       set.Reps,
				Weight:     set.Weight,
			}
			err = tx.QueryRow(
				ctx,
				`INSERT INTO exercise_set (exercise_id, set_number, reps, weight)
					VALUES ($1, $2, $3, $4)
				RETURNING id;`,
				newSet.ExerciseID, newSet.SetNumber, newSet.Reps, newSet.Weight,
			).Scan(&newSet.ID)
			if err != nil {
				return err
			}
			newSets = append(newSets, newSet)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newSets, nil
}

package timer

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

var ErrTimerNotFound = errors.New("workout timer not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, workoutTime WorkoutTime) (_ *WorkoutTime, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.timer.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutTime.WorkoutID))

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO workout_time (user_id, workout_id, day_name, date, started_at, ended_at, duration_seconds)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;`,
		workoutTime.UserID, workoutTime.WorkoutID, workoutTime.DayName, workoutTime.Date,
		workoutTime.StartedAt, workoutTime.EndedAt, workoutTime.DurationSeconds,
	).Scan(&workoutTime.ID)
	if err != nil {
		return nil, fmt.Errorf("add workout time: %w", err)
	}

	span.SetAttributes(attribute.Int("workout-time.id", workoutTime.ID))
	return &workoutTime, nil
}

// GetRunning returns the open session for (user, workout, day, date),
// or ErrTimerNotFound.
func (r *Repo) GetRunning(ctx context.Context, userID, workoutID int, dayName string, date time.Time) (_ *WorkoutTime, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.timer.getRunning")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	var workoutTime WorkoutTime
	err = r.db.QueryRow(
		ctx,
		`SELECT id, user_id, workout_id, day_name, date, started_at, ended_at, duration_seconds
			FROM workout_time
			WHERE user_id = $1 AND workout_id = $2 AND day_name = $3 AND date = $4
				AND ended_at IS NULL
			ORDER BY started_at DESC
			LIMIT 1;`,
		userID, workoutID, dayName, date,
	).Scan(
		&workoutTime.ID, &workoutTime.UserID, &workoutTime.WorkoutID, &workoutTime.DayName,
		&workoutTime.Date, &workoutTime.StartedAt, &workoutTime.EndedAt, &workoutTime.DurationSeconds,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTimerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get running workout time: %w", err)
	}
	return &workoutTime, nil
}

// Close stops the session: sets ended_at and the elapsed duration.
func (r *Repo) Close(ctx context.Context, timerID int, endedAt time.Time, durationSeconds int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.timer.close")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout-time.id", timerID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_time SET ended_at = $1, duration_seconds = $2 WHERE id = $3;`,
		endedAt, durationSeconds, timerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTimerNotFound
	}
	return nil
}

// GetLast returns the most recent session for (user, workout, day),
// optionally restricted to an exact date.
func (r *Repo) GetLast(ctx context.Context, userID, workoutID int, dayName string, date *time.Time) (_ *WorkoutTime, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.timer.getLast")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	query := `SELECT id, user_id, workout_id, day_name, date, started_at, ended_at, duration_seconds
		FROM workout_time
		WHERE user_id = $1 AND workout_id = $2 AND day_name = $3`
	args := []interface{}{userID, workoutID, dayName}
	if date != nil {
		query += ` AND date = $4`
		args = append(args, *date)
	}
	query += ` ORDER BY date DESC, started_at DESC LIMIT 1;`

	var workoutTime WorkoutTime
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&workoutTime.ID, &workoutTime.UserID, &workoutTime.WorkoutID, &workoutTime.DayName,
		&workoutTime.Date, &workoutTime.StartedAt, &workoutTime.EndedAt, &workoutTime.DurationSeconds,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTimerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get last workout time: %w", err)
	}
	return &workoutTime, nil
}

// UpdateDuration overwrites the stored duration (and optionally the end
// timestamp) of the caller's own, already stopped session. Running
// sessions keep their NULL duration until closed.
func (r *Repo) UpdateDuration(ctx context.Context, userID, timerID, durationSeconds int, endedAt *time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.timer.updateDuration")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout-time.id", timerID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_time
			SET duration_seconds = $1, ended_at = COALESCE($2, ended_at)
			WHERE id = $3 AND user_id = $4 AND ended_at IS NOT NULL;`,
		durationSeconds, endedAt, timerID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTimerNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, userID, timerID int) (_ *WorkoutTime, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.timer.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout-time.id", timerID))

	var workoutTime WorkoutTime
	err = r.db.QueryRow(
		ctx,
		`SELECT id, user_id, workout_id, day_name, date, started_at, ended_at, duration_seconds
			FROM workout_time
			WHERE id = $1 AND user_id = $2;`,
		timerID, userID,
	).Scan(
		&workoutTime.ID, &workoutTime.UserID, &workoutTime.WorkoutID, &workoutTime.DayName,
		&workoutTime.Date, &workoutTime.StartedAt, &workoutTime.EndedAt, &workoutTime.DurationSeconds,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTimerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workout time: %w", err)
	}
	return &workoutTime, nil
}

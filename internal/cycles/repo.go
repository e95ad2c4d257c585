package cycles

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
	ErrCycleNotFound = errors.New("cycle not found")
	ErrNoFortnights  = errors.New("no fortnights for cycle")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, cycle Cycle) (_ *Cycle, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.cycles.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO cycle (user_id, type, start_date, created_at)
			VALUES ($1, $2, $3, $4)
		RETURNING id;`,
		cycle.UserID, cycle.Type, cycle.StartDate, cycle.CreatedAt,
	).Scan(&cycle.ID)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("cycle.id", cycle.ID))
	return &cycle, nil
}

func (r *Repo) Get(ctx context.Context, userID, cycleID int) (_ *Cycle, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.cycles.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("cycle.id", cycleID))

	var cycle Cycle
	err = r.db.QueryRow(
		ctx,
		`SELECT id, user_id, type, start_date, end_date, created_at
			FROM cycle
			WHERE id = $1 AND user_id = $2;`,
		cycleID, userID,
	).Scan(&cycle.ID, &cycle.UserID, &cycle.Type, &cycle.StartDate, &cycle.EndDate, &cycle.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCycleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cycle: %w", err)
	}
	return &cycle, nil
}

func (r *Repo) GetActive(ctx context.Context, userID int) (_ *Cycle, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.cycles.getActive")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var cycle Cycle
	err = r.db.QueryRow(
		ctx,
		`SELECT id, user_id, type, start_date, end_date, created_at
			FROM cycle
			WHERE user_id = $1 AND end_date IS NULL;`,
		userID,
	).Scan(&cycle.ID, &cycle.UserID, &cycle.Type, &cycle.StartDate, &cycle.EndDate, &cycle.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCycleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active cycle: %w", err)
	}
	return &cycle, nil
}

func (r *Repo) List(ctx context.Context, userID int) (_ []Cycle, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.cycles.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, type, start_date, end_date, created_at
			FROM cycle
			WHERE user_id = $1
			ORDER BY start_date DESC;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	cyclesList := make([]Cycle, 0)
	for rows.Next() {
		var cycle Cycle
		if err := rows.Scan(
			&cycle.ID, &cycle.UserID, &cycle.Type, &cycle.StartDate, &cycle.EndDate, &cycle.CreatedAt,
		); err != nil {
			return nil, err
		}
		cyclesList = append(cyclesList, cycle)
	}

	return cyclesList, nil
}

func (r *Repo) Close(ctx context.Context, userID, cycleID int, endDate time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.cycles.close")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("cycle.id", cycleID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE cycle SET end_date = $1 WHERE id = $2 AND user_id = $3;`,
		endDate, cycleID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCycleNotFound
	}
	return nil
}

// LatestFortnight returns the fortnight with the highest week number for
// the cycle, or ErrNoFortnights.
func (r *Repo) LatestFortnight(ctx context.Context, cycleID int) (_ *Fortnight, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.cycles.latestFortnight")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("cycle.id", cycleID))

	var fortnight Fortnight
	err = r.db.QueryRow(
		ctx,
		`SELECT id, cycle_id, week_number, start_date
			FROM fortnight
			WHERE cycle_id = $1
			ORDER BY week_number DESC
			LIMIT 1;`,
		cycleID,
	).Scan(&fortnight.ID, &fortnight.CycleID, &fortnight.WeekNumber, &fortnight.StartDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoFortnights
	}
	if err != nil {
		return nil, fmt.Errorf("get latest fortnight: %w", err)
	}
	return &fortnight, nil
}

func (r *Repo) AddFortnight(ctx context.Context, fortnight Fortnight) (_ *Fortnight, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.cycles.addFortnight")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("cycle.id", fortnight.CycleID))
	span.SetAttributes(attribute.Int("fortnight.week", fortnight.WeekNumber))

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO fortnight (cycle_id, week_number, start_date)
			VALUES ($1, $2, $3)
		RETURNING id;`,
		fortnight.CycleID, fortnight.WeekNumber, fortnight.StartDate,
	).Scan(&fortnight.ID)
	if err != nil {
		return nil, err
	}
	return &fortnight, nil
}

func (r *Repo) ListFortnights(ctx context.Context, cycleID int) (_ []Fortnight, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.cycles.listFortnights")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("cycle.id", cycleID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, cycle_id, week_number, start_date
			FROM fortnight
			WHERE cycle_id = $1
			ORDER BY week_number ASC;`,
		cycleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	fortnights := make([]Fortnight, 0)
	for rows.Next() {
		var fortnight Fortnight
		if err := rows.Scan(
			&fortnight.ID, &fortnight.CycleID, &fortnight.WeekNumber, &fortnight.StartDate,
		); err != nil {
			return nil, err
		}
		fortnights = append(fortnights, fortnight)
	}

	return fortnights, nil
}

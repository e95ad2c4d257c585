package timer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/gymhustle/internal/telemetry/metrics"
	"github.com/2beens/gymhustle/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type timerRepo interface {
	Add(ctx context.Context, workoutTime WorkoutTime) (*WorkoutTime, error)
	GetRunning(ctx context.Context, userID, workoutID int, dayName string, date time.Time) (*WorkoutTime, error)
	Close(ctx context.Context, timerID int, endedAt time.Time, durationSeconds int) error
	GetLast(ctx context.Context, userID, workoutID int, dayName string, date *time.Time) (*WorkoutTime, error)
	UpdateDuration(ctx context.Context, userID, timerID, durationSeconds int, endedAt *time.Time) error
	Get(ctx context.Context, userID, timerID int) (*WorkoutTime, error)
}

type Service struct {
	repo           timerRepo
	metricsManager *metrics.Manager
	// injectable clock for tests
	NowFunc func() time.Time
}

func NewService(repo timerRepo, metricsManager *metrics.Manager) *Service {
	return &Service{
		repo:           repo,
		metricsManager: metricsManager,
		NowFunc:        time.Now,
	}
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Start opens a new running session for (user, workout, day, today).
// A session already running for that key is stopped first, its duration
// set to the elapsed whole seconds. There is no locking around the
// check-then-insert, so two simultaneous starts can both insert; the
// next start cleans up whichever row it finds running.
func (s *Service) Start(ctx context.Context, userID, workoutID int, dayName string) (_ *WorkoutTime, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.timer.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	now := s.NowFunc()
	today := dateOnly(now)

	running, err := s.repo.GetRunning(ctx, userID, workoutID, dayName, today)
	if err != nil && !errors.Is(err, ErrTimerNotFound) {
		return nil, fmt.Errorf("check running timer: %w", err)
	}
	if running != nil {
		elapsed := DurationSecondsBetween(running.StartedAt, now)
		if err := s.repo.Close(ctx, running.ID, now, elapsed); err != nil {
			return nil, fmt.Errorf("close running timer %d: %w", running.ID, err)
		}
	}

	workoutTime, err := s.repo.Add(ctx, WorkoutTime{
		UserID:    userID,
		WorkoutID: workoutID,
		DayName:   dayName,
		Date:      today,
		StartedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("add workout time: %w", err)
	}

	s.metricsManager.CounterTimersStarted.Inc()
	return workoutTime, nil
}

// Stop closes today's running session and returns it with the duration
// filled in. With nothing running it returns nil and no error, stopping
// an already stopped timer is not worth complaining about.
func (s *Service) Stop(ctx context.Context, userID, workoutID int, dayName string) (_ *WorkoutTime, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.timer.stop")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	now := s.NowFunc()
	today := dateOnly(now)

	running, err := s.repo.GetRunning(ctx, userID, workoutID, dayName, today)
	if errors.Is(err, ErrTimerNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get running timer: %w", err)
	}

	elapsed := DurationSecondsBetween(running.StartedAt, now)
	if err := s.repo.Close(ctx, running.ID, now, elapsed); err != nil {
		return nil, fmt.Errorf("close timer %d: %w", running.ID, err)
	}

	running.EndedAt = &now
	running.DurationSeconds = &elapsed

	s.metricsManager.CounterTimersStopped.Inc()
	return running, nil
}

func (s *Service) GetLast(ctx context.Context, userID, workoutID int, dayName string, date *time.Time) (*WorkoutTime, error) {
	if date != nil {
		normalized := dateOnly(*date)
		date = &normalized
	}
	return s.repo.GetLast(ctx, userID, workoutID, dayName, date)
}

// UpdateDuration lets the user correct a stored session duration. Only
// the caller's own row is touched.
func (s *Service) UpdateDuration(ctx context.Context, userID, timerID, durationSeconds int, endedAt *time.Time) (_ *WorkoutTime, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.timer.updateDuration")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout-time.id", timerID))

	if err := s.repo.UpdateDuration(ctx, userID, timerID, durationSeconds, endedAt); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID, timerID)
}

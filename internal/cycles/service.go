package cycles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/gymhustle/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// FortnightCooldownDays is the number of calendar days that must elapse
// since the latest fortnight's start date before a new one may begin.
const FortnightCooldownDays = 13

const fortnightCooldownMessage = "You can only create a new fortnight after 13 days (2 weeks)."

var ErrActiveCycleExists = errors.New("an active cycle already exists")

type cyclesRepo interface {
	Add(ctx context.Context, cycle Cycle) (*Cycle, error)
	Get(ctx context.Context, userID, cycleID int) (*Cycle, error)
	GetActive(ctx context.Context, userID int) (*Cycle, error)
	List(ctx context.Context, userID int) ([]Cycle, error)
	Close(ctx context.Context, userID, cycleID int, endDate time.Time) error
	LatestFortnight(ctx context.Context, cycleID int) (*Fortnight, error)
	AddFortnight(ctx context.Context, fortnight Fortnight) (*Fortnight, error)
	ListFortnights(ctx context.Context, cycleID int) ([]Fortnight, error)
}

// CreateFortnightResult carries the outcome of a fortnight creation
// attempt. A cooldown denial is a regular result, not an error: storage
// stays untouched and Error holds the human-readable reason.
type CreateFortnightResult struct {
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
	Fortnight *Fortnight `json:"fortnight,omitempty"`
}

type Service struct {
	repo cyclesRepo
	// injectable clock for tests
	NowFunc func() time.Time
}

func NewService(repo cyclesRepo) *Service {
	return &Service{
		repo:    repo,
		NowFunc: time.Now,
	}
}

func (s *Service) ListCycles(ctx context.Context, userID int) ([]Cycle, error) {
	return s.repo.List(ctx, userID)
}

// AddCycle starts a new bulking or cutting phase. Denied while another
// cycle is still open.
func (s *Service) AddCycle(ctx context.Context, userID int, cycleType CycleType, startDate time.Time) (_ *Cycle, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.cycles.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = s.repo.GetActive(ctx, userID)
	if err == nil {
		return nil, ErrActiveCycleExists
	}
	if !errors.Is(err, ErrCycleNotFound) {
		return nil, fmt.Errorf("check active cycle: %w", err)
	}

	cycle, err := s.repo.Add(ctx, Cycle{
		UserID:    userID,
		Type:      cycleType,
		StartDate: DateOnly(startDate),
		CreatedAt: s.NowFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("add cycle: %w", err)
	}
	return cycle, nil
}

func (s *Service) CloseCycle(ctx context.Context, userID, cycleID int, endDate time.Time) error {
	return s.repo.Close(ctx, userID, cycleID, DateOnly(endDate))
}

// CreateFortnight applies the cooldown gate: the first fortnight of a
// cycle is always allowed (week 1); afterwards a new one may only start
// once at least FortnightCooldownDays whole calendar days have passed
// since the latest fortnight's start date.
func (s *Service) CreateFortnight(ctx context.Context, userID, cycleID int) (_ *CreateFortnightResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.cycles.createFortnight")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("cycle.id", cycleID))

	// ownership check: the cycle must belong to the caller
	if _, err := s.repo.Get(ctx, userID, cycleID); err != nil {
		return nil, err
	}

	today := DateOnly(s.NowFunc())
	newWeekNumber := 1

	lastFortnight, err := s.repo.LatestFortnight(ctx, cycleID)
	if err != nil && !errors.Is(err, ErrNoFortnights) {
		return nil, fmt.Errorf("get latest fortnight: %w", err)
	}

	if lastFortnight != nil {
		diffDays := DaysBetween(lastFortnight.StartDate, today)
		span.SetAttributes(attribute.Int("fortnight.diff-days", diffDays))
		if diffDays < FortnightCooldownDays {
			return &CreateFortnightResult{
				Success: false,
				Error:   fortnightCooldownMessage,
			}, nil
		}
		newWeekNumber = lastFortnight.WeekNumber + 1
	}

	fortnight, err := s.repo.AddFortnight(ctx, Fortnight{
		CycleID:    cycleID,
		WeekNumber: newWeekNumber,
		StartDate:  today,
	})
	if err != nil {
		return nil, fmt.Errorf("add fortnight: %w", err)
	}

	return &CreateFortnightResult{
		Success:   true,
		Fortnight: fortnight,
	}, nil
}

func (s *Service) ListFortnights(ctx context.Context, userID, cycleID int) ([]Fortnight, error) {
	if _, err := s.repo.Get(ctx, userID, cycleID); err != nil {
		return nil, err
	}
	return s.repo.ListFortnights(ctx, cycleID)
}

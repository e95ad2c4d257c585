package cycles

import (
	"time"
)

type CycleType string

const (
	CycleTypeBulking CycleType = "bulking"
	CycleTypeCutting CycleType = "cutting"
)

func (ct CycleType) IsValid() bool {
	return ct == CycleTypeBulking || ct == CycleTypeCutting
}

// Cycle is a bulking or cutting phase. At most one cycle per user is
// active, i.e. has no end date yet.
type Cycle struct {
	ID        int        `json:"id"`
	UserID    int        `json:"-"`
	Type      CycleType  `json:"type"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (c *Cycle) IsActive() bool {
	return c.EndDate == nil
}

// Fortnight is a 14-day tracking period within a cycle, numbered
// sequentially via WeekNumber, starting from 1.
type Fortnight struct {
	ID         int       `json:"id"`
	CycleID    int       `json:"cycleId"`
	WeekNumber int       `json:"weekNumber"`
	StartDate  time.Time `json:"startDate"`
}

// DateOnly normalizes t to a UTC calendar date (midnight UTC). Fortnight
// cooldown arithmetic works on calendar days, never wall-clock instants,
// to dodge timezone boundary surprises.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from one date to
// another.
func DaysBetween(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}

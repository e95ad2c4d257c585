package timer

import (
	"time"
)

// WorkoutTime is one timed workout session: a row per (user, workout,
// day, date) attempt. A running session has no EndedAt yet; stopping it
// fills EndedAt and DurationSeconds (whole seconds, rounded down).
type WorkoutTime struct {
	ID              int        `json:"id"`
	UserID          int        `json:"-"`
	WorkoutID       int        `json:"workoutId"`
	DayName         string     `json:"dayName"`
	Date            time.Time  `json:"date"`
	StartedAt       time.Time  `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationSeconds *int       `json:"durationSeconds,omitempty"`
}

func (wt *WorkoutTime) IsRunning() bool {
	return wt.EndedAt == nil
}

// DurationSecondsBetween returns whole elapsed seconds, rounded down.
func DurationSecondsBetween(from, to time.Time) int {
	return int(to.Sub(from).Seconds())
}

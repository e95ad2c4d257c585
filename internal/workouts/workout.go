package workouts

import (
	"time"
)

// Workout is a named training plan: a set of days, each holding an
// ordered list of exercises.
type Workout struct {
	ID        int          `json:"id"`
	UserID    int          `json:"-"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Days      []WorkoutDay `json:"days"`
}

// WorkoutDay names are unique within their workout.
type WorkoutDay struct {
	ID        int        `json:"id"`
	WorkoutID int        `json:"workoutId"`
	Name      string     `json:"name"`
	Exercises []Exercise `json:"exercises"`
}

// Exercise position within its day is Ord; listing always returns
// exercises ascending by it. Archived exercises are kept around but
// excluded from the regular nested reads.
type Exercise struct {
	ID           int           `json:"id"`
	WorkoutDayID int           `json:"workoutDayId"`
	Name         string        `json:"name"`
	Ord          int           `json:"ord"`
	Archived     bool          `json:"archived"`
	Sets         []ExerciseSet `json:"sets"`
}

type ExerciseSet struct {
	ID         int      `json:"id"`
	ExerciseID int      `json:"exerciseId"`
	SetNumber  int      `json:"setNumber"`
	Reps       string   `json:"reps"`
	Weight     *float64 `json:"weight,omitempty"`
}

// UserProfile currently only tracks which workout the user trains by.
type UserProfile struct {
	UserID            int  `json:"userId"`
	SelectedWorkoutID *int `json:"selectedWorkoutId,omitempty"`
}

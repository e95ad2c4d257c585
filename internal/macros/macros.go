package macros

import (
	"time"
)

// Meal slots a macro goal or a food idea belongs to.
type Meal string

const (
	MealMorning   Meal = "morning"
	MealLunch     Meal = "lunch"
	MealAfternoon Meal = "afternoon"
	MealDinner    Meal = "dinner"
)

func (m Meal) IsValid() bool {
	switch m {
	case MealMorning, MealLunch, MealAfternoon, MealDinner:
		return true
	}
	return false
}

// MacroGoal holds the macro targets for one meal of one week of a
// cycle. One row per (cycle, week, meal), upserted on save.
type MacroGoal struct {
	ID      int  `json:"id"`
	UserID  int  `json:"-"`
	CycleID int  `json:"cycleId"`
	Week    int  `json:"week"`
	Meal    Meal `json:"meal"`
	Carbos  int  `json:"carbos"`
	Fat     int  `json:"fat"`
	Protein int  `json:"protein"`
}

type FoodIdea struct {
	ID        int       `json:"id"`
	UserID    int       `json:"-"`
	CycleID   int       `json:"cycleId"`
	Week      int       `json:"week"`
	Meal      Meal      `json:"meal"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

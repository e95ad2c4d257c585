package macros

import (
	"context"
	"sort"
	"sync"
)

var _ macrosRepo = (*repoMock)(nil)

type repoMock struct {
	Goals map[int]MacroGoal
	Ideas map[int]FoodIdea
	// cycle id -> owning user id
	CycleOwners map[int]int
	mutex       sync.Mutex
}

func NewRepoMock() *repoMock {
	return &repoMock{
		Goals:       map[int]MacroGoal{},
		Ideas:       map[int]FoodIdea{},
		CycleOwners: map[int]int{},
	}
}

func (r *repoMock) cycleOwnedLocked(userID, cycleID int) error {
	owner, ok := r.CycleOwners[cycleID]
	if !ok || owner != userID {
		return ErrCycleNotFound
	}
	return nil
}

func (r *repoMock) GetMacroGoals(_ context.Context, userID, cycleID, week int) ([]MacroGoal, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	goals := make([]MacroGoal, 0)
	for _, goal := range r.Goals {
		if goal.UserID == userID && goal.CycleID == cycleID && goal.Week == week {
			goals = append(goals, goal)
		}
	}
	sort.Slice(goals, func(i, j int) bool {
		return goals[i].ID < goals[j].ID
	})
	return goals, nil
}

func (r *repoMock) UpsertMacroGoal(_ context.Context, goal MacroGoal) (*MacroGoal, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.cycleOwnedLocked(goal.UserID, goal.CycleID); err != nil {
		return nil, err
	}

	for id, existing := range r.Goals {
		if existing.CycleID == goal.CycleID && existing.Week == goal.Week && existing.Meal == goal.Meal {
			goal.ID = id
			r.Goals[id] = goal
			return &goal, nil
		}
	}

	goal.ID = len(r.Goals) + 1
	r.Goals[goal.ID] = goal
	return &goal, nil
}

func (r *repoMock) ListFoodIdeas(_ context.Context, userID, cycleID, week int) ([]FoodIdea, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ideas := make([]FoodIdea, 0)
	for _, idea := range r.Ideas {
		if idea.UserID == userID && idea.CycleID == cycleID && idea.Week == week {
			ideas = append(ideas, idea)
		}
	}
	sort.Slice(ideas, func(i, j int) bool {
		return ideas[i].CreatedAt.Before(ideas[j].CreatedAt)
	})
	return ideas, nil
}

func (r *repoMock) AddFoodIdea(_ context.Context, idea FoodIdea) (*FoodIdea, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.cycleOwnedLocked(idea.UserID, idea.CycleID); err != nil {
		return nil, err
	}

	idea.ID = len(r.Ideas) + 1
	r.Ideas[idea.ID] = idea
	return &idea, nil
}

func (r *repoMock) UpdateFoodIdea(_ context.Context, userID, ideaID int, text string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	idea, ok := r.Ideas[ideaID]
	if !ok || idea.UserID != userID {
		return ErrFoodIdeaNotFound
	}
	idea.Text = text
	r.Ideas[ideaID] = idea
	return nil
}

func (r *repoMock) DeleteFoodIdea(_ context.Context, userID, ideaID int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	idea, ok := r.Ideas[ideaID]
	if !ok || idea.UserID != userID {
		return ErrFoodIdeaNotFound
	}
	delete(r.Ideas, ideaID)
	return nil
}

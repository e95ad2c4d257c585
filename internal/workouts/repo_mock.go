package workouts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ workoutsRepo = (*repoMock)(nil)

type repoMock struct {
	Workouts  map[int]Workout
	Days      map[int]WorkoutDay
	Exercises map[int]Exercise
	Sets      map[int]ExerciseSet
	Profiles  map[int]UserProfile

	nextID int
	mutex  sync.Mutex
}

func NewRepoMock() *repoMock {
	return &repoMock{
		Workouts:  map[int]Workout{},
		Days:      map[int]WorkoutDay{},
		Exercises: map[int]Exercise{},
		Sets:      map[int]ExerciseSet{},
		Profiles:  map[int]UserProfile{},
	}
}

func (r *repoMock) nextIDLocked() int {
	r.nextID++
	return r.nextID
}

func (r *repoMock) AddWorkout(_ context.Context, userID int, name string, now time.Time) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workout := Workout{
		ID:        r.nextIDLocked(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Days:      []WorkoutDay{},
	}
	r.Workouts[workout.ID] = workout
	return &workout, nil
}

func (r *repoMock) RenameWorkout(_ context.Context, userID, workoutID int, name string, now time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workout, ok := r.Workouts[workoutID]
	if !ok || workout.UserID != userID {
		return ErrWorkoutNotFound
	}
	workout.Name = name
	workout.UpdatedAt = now
	r.Workouts[workoutID] = workout
	return nil
}

func (r *repoMock) DeleteWorkout(_ context.Context, userID, workoutID int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workout, ok := r.Workouts[workoutID]
	if !ok || workout.UserID != userID {
		return ErrWorkoutNotFound
	}
	for dayID, day := range r.Days {
		if day.WorkoutID != workoutID {
			continue
		}
		r.deleteDayLocked(dayID)
	}
	delete(r.Workouts, workoutID)
	return nil
}

func (r *repoMock) deleteDayLocked(dayID int) {
	for exerciseID, exercise := range r.Exercises {
		if exercise.WorkoutDayID != dayID {
			continue
		}
		for setID, set := range r.Sets {
			if set.ExerciseID == exerciseID {
				delete(r.Sets, setID)
			}
		}
		delete(r.Exercises, exerciseID)
	}
	delete(r.Days, dayID)
}

func (r *repoMock) GetWorkout(_ context.Context, userID, workoutID int) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.getWorkoutLocked(userID, workoutID)
}

func (r *repoMock) getWorkoutLocked(userID, workoutID int) (*Workout, error) {
	workout, ok := r.Workouts[workoutID]
	if !ok || workout.UserID != userID {
		return nil, ErrWorkoutNotFound
	}

	workout.Days = []WorkoutDay{}
	for _, day := range r.Days {
		if day.WorkoutID != workoutID {
			continue
		}
		day.Exercises = []Exercise{}
		for _, exercise := range r.Exercises {
			if exercise.WorkoutDayID != day.ID || exercise.Archived {
				continue
			}
			exercise.Sets = []ExerciseSet{}
			for _, set := range r.Sets {
				if set.ExerciseID == exercise.ID {
					exercise.Sets = append(exercise.Sets, set)
				}
			}
			sort.Slice(exercise.Sets, func(i, j int) bool {
				return exercise.Sets[i].SetNumber < exercise.Sets[j].SetNumber
			})
			day.Exercises = append(day.Exercises, exercise)
		}
		sort.Slice(day.Exercises, func(i, j int) bool {
			return day.Exercises[i].Ord < day.Exercises[j].Ord
		})
		workout.Days = append(workout.Days, day)
	}
	sort.Slice(workout.Days, func(i, j int) bool {
		return workout.Days[i].ID < workout.Days[j].ID
	})

	return &workout, nil
}

func (r *repoMock) ListWorkouts(_ context.Context, userID int) ([]Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workoutsList := make([]Workout, 0)
	for id, workout := range r.Workouts {
		if workout.UserID != userID {
			continue
		}
		full, err := r.getWorkoutLocked(userID, id)
		if err != nil {
			return nil, err
		}
		workoutsList = append(workoutsList, *full)
	}
	sort.Slice(workoutsList, func(i, j int) bool {
		return workoutsList[i].ID < workoutsList[j].ID
	})
	return workoutsList, nil
}

func (r *repoMock) SelectWorkout(_ context.Context, userID, workoutID int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workout, ok := r.Workouts[workoutID]
	if !ok || workout.UserID != userID {
		return ErrWorkoutNotFound
	}
	r.Profiles[userID] = UserProfile{
		UserID:            userID,
		SelectedWorkoutID: &workoutID,
	}
	return nil
}

func (r *repoMock) GetSelectedWorkout(_ context.Context, userID int) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	profile, ok := r.Profiles[userID]
	if !ok || profile.SelectedWorkoutID == nil {
		return nil, ErrNoWorkoutSelected
	}
	return r.getWorkoutLocked(userID, *profile.SelectedWorkoutID)
}

func (r *repoMock) AddDay(_ context.Context, userID, workoutID int, name string) (*WorkoutDay, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workout, ok := r.Workouts[workoutID]
	if !ok || workout.UserID != userID {
		return nil, ErrWorkoutNotFound
	}
	for _, day := range r.Days {
		if day.WorkoutID == workoutID && day.Name == name {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}

	day := WorkoutDay{
		ID:        r.nextIDLocked(),
		WorkoutID: workoutID,
		Name:      name,
		Exercises: []Exercise{},
	}
	r.Days[day.ID] = day
	return &day, nil
}

func (r *repoMock) dayOwnedLocked(userID, dayID int) (*WorkoutDay, bool) {
	day, ok := r.Days[dayID]
	if !ok {
		return nil, false
	}
	workout, ok := r.Workouts[day.WorkoutID]
	if !ok || workout.UserID != userID {
		return nil, false
	}
	return &day, true
}

func (r *repoMock) RenameDay(_ context.Context, userID, dayID int, name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	day, ok := r.dayOwnedLocked(userID, dayID)
	if !ok {
		return ErrDayNotFound
	}
	day.Name = name
	r.Days[dayID] = *day
	return nil
}

func (r *repoMock) DeleteDay(_ context.Context, userID, dayID int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.dayOwnedLocked(userID, dayID); !ok {
		return ErrDayNotFound
	}
	r.deleteDayLocked(dayID)
	return nil
}

func (r *repoMock) AddExercise(_ context.Context, userID, dayID int, name string, sets []ExerciseSet) (*Exercise, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.dayOwnedLocked(userID, dayID); !ok {
		return nil, ErrDayNotFound
	}

	maxOrd := -1
	for _, exercise := range r.Exercises {
		if exercise.WorkoutDayID == dayID && exercise.Ord > maxOrd {
			maxOrd = exercise.Ord
		}
	}

	exercise := Exercise{
		ID:           r.nextIDLocked(),
		WorkoutDayID: dayID,
		Name:         name,
		Ord:          maxOrd + 1,
		Sets:         make([]ExerciseSet, 0, len(sets)),
	}
	for i, set := range sets {
		newSet := ExerciseSet{
			ID:         r.nextIDLocked(),
			ExerciseID: exercise.ID,
			SetNumber:  i + 1,
			Reps:       set.Reps,
			Weight:     set.Weight,
		}
		r.Sets[newSet.ID] = newSet
		exercise.Sets = append(exercise.Sets, newSet)
	}
	r.Exercises[exercise.ID] = exercise
	return &exercise, nil
}

func (r *repoMock) exerciseOwnedLocked(userID, exerciseID int) (*Exercise, bool) {
	exercise, ok := r.Exercises[exerciseID]
	if !ok {
		return nil, false
	}
	if _, ok := r.dayOwnedLocked(userID, exercise.WorkoutDayID); !ok {
		return nil, false
	}
	return &exercise, true
}

func (r *repoMock) RenameExercise(_ context.Context, userID, exerciseID int, name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	exercise, ok := r.exerciseOwnedLocked(userID, exerciseID)
	if !ok {
		return ErrExerciseNotFound
	}
	exercise.Name = name
	r.Exercises[exerciseID] = *exercise
	return nil
}

func (r *repoMock) DeleteExercise(_ context.Context, userID, exerciseID int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.exerciseOwnedLocked(userID, exerciseID); !ok {
		return ErrExerciseNotFound
	}
	for setID, set := range r.Sets {
		if set.ExerciseID == exerciseID {
			delete(r.Sets, setID)
		}
	}
	delete(r.Exercises, exerciseID)
	return nil
}

func (r *repoMock) SetExerciseArchived(_ context.Context, userID, exerciseID int, archived bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	exercise, ok := r.exerciseOwnedLocked(userID, exerciseID)
	if !ok {
		return ErrExerciseNotFound
	}
	exercise.Archived = archived
	r.Exercises[exerciseID] = *exercise
	return nil
}

func (r *repoMock) ListArchivedExercises(_ context.Context, userID, workoutID int) ([]Exercise, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	exercises := make([]Exercise, 0)
	for _, exercise := range r.Exercises {
		if !exercise.Archived {
			continue
		}
		day, ok := r.Days[exercise.WorkoutDayID]
		if !ok || day.WorkoutID != workoutID {
			continue
		}
		workout, ok := r.Workouts[day.WorkoutID]
		if !ok || workout.UserID != userID {
			continue
		}
		exercise.Sets = []ExerciseSet{}
		exercises = append(exercises, exercise)
	}
	sort.Slice(exercises, func(i, j int) bool {
		return exercises[i].ID < exercises[j].ID
	})
	return exercises, nil
}

func (r *repoMock) ReorderExercises(_ context.Context, userID, dayID int, orderedIDs []int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.dayOwnedLocked(userID, dayID); !ok {
		return ErrDayNotFound
	}

	dayExercises := map[int]Exercise{}
	for id, exercise := range r.Exercises {
		if exercise.WorkoutDayID == dayID {
			dayExercises[id] = exercise
		}
	}
	if len(dayExercises) != len(orderedIDs) {
		return ErrReorderIDsMismatch
	}

	for ord, exerciseID := range orderedIDs {
		exercise, ok := dayExercises[exerciseID]
		if !ok {
			return ErrReorderIDsMismatch
		}
		exercise.Ord = ord
		r.Exercises[exerciseID] = exercise
	}
	return nil
}

func (r *repoMock) ReplaceExerciseSets(_ context.Context, userID, exerciseID int, sets []ExerciseSet) ([]ExerciseSet, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.exerciseOwnedLocked(userID, exerciseID); !ok {
		return nil, ErrExerciseNotFound
	}

	for setID, set := range r.Sets {
		if set.ExerciseID == exerciseID {
			delete(r.Sets, setID)
		}
	}

	newSets := make([]ExerciseSet, 0, len(sets))
	for i, set := range sets {
		newSet := ExerciseSet{
			ID:         r.nextIDLocked(),
			ExerciseID: exerciseID,
			SetNumber:  i + 1,
			Reps:       set.Reps,
			Weight:     set.Weight,
		}
		r.Sets[newSet.ID] = newSet
		newSets = append(newSets, newSet)
	}
	return newSets, nil
}

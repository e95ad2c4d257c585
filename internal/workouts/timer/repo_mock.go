package timer

import (
	"context"
	"sync"
	"time"
)

var _ timerRepo = (*repoMock)(nil)

type repoMock struct {
	Timers map[int]WorkoutTime
	mutex  sync.Mutex
}

func NewRepoMock() *repoMock {
	return &repoMock{
		Timers: map[int]WorkoutTime{},
	}
}

func (r *repoMock) Add(_ context.Context, workoutTime WorkoutTime) (*WorkoutTime, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workoutTime.ID = len(r.Timers) + 1
	r.Timers[workoutTime.ID] = workoutTime
	return &workoutTime, nil
}

func (r *repoMock) GetRunning(_ context.Context, userID, workoutID int, dayName string, date time.Time) (*WorkoutTime, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var latest *WorkoutTime
	for id := range r.Timers {
		workoutTime := r.Timers[id]
		if workoutTime.UserID != userID ||
			workoutTime.WorkoutID != workoutID ||
			workoutTime.DayName != dayName ||
			!workoutTime.Date.Equal(date) ||
			!workoutTime.IsRunning() {
			continue
		}
		if latest == nil || workoutTime.StartedAt.After(latest.StartedAt) {
			latest = &workoutTime
		}
	}
	if latest == nil {
		return nil, ErrTimerNotFound
	}
	return latest, nil
}

func (r *repoMock) Close(_ context.Context, timerID int, endedAt time.Time, durationSeconds int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workoutTime, ok := r.Timers[timerID]
	if !ok {
		return ErrTimerNotFound
	}
	workoutTime.EndedAt = &endedAt
	workoutTime.DurationSeconds = &durationSeconds
	r.Timers[timerID] = workoutTime
	return nil
}

func (r *repoMock) GetLast(_ context.Context, userID, workoutID int, dayName string, date *time.Time) (*WorkoutTime, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var last *WorkoutTime
	for id := range r.Timers {
		workoutTime := r.Timers[id]
		if workoutTime.UserID != userID ||
			workoutTime.WorkoutID != workoutID ||
			workoutTime.DayName != dayName {
			continue
		}
		if date != nil && !workoutTime.Date.Equal(*date) {
			continue
		}
		if last == nil ||
			workoutTime.Date.After(last.Date) ||
			(workoutTime.Date.Equal(last.Date) && workoutTime.StartedAt.After(last.StartedAt)) {
			last = &workoutTime
		}
	}
	if last == nil {
		return nil, ErrTimerNotFound
	}
	return last, nil
}

func (r *repoMock) UpdateDuration(_ context.Context, userID, timerID, durationSeconds int, endedAt *time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workoutTime, ok := r.Timers[timerID]
	if !ok || workoutTime.UserID != userID || workoutTime.IsRunning() {
		return ErrTimerNotFound
	}
	workoutTime.DurationSeconds = &durationSeconds
	if endedAt != nil {
		workoutTime.EndedAt = endedAt
	}
	r.Timers[timerID] = workoutTime
	return nil
}

func (r *repoMock) Get(_ context.Context, userID, timerID int) (*WorkoutTime, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workoutTime, ok := r.Timers[timerID]
	if !ok || workoutTime.UserID != userID {
		return nil, ErrTimerNotFound
	}
	return &workoutTime, nil
}

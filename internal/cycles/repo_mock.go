package cycles

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ cyclesRepo = (*repoMock)(nil)

type repoMock struct {
	// cycle ID to Cycle
	Cycles map[int]Cycle
	// fortnight ID to Fortnight
	Fortnights map[int]Fortnight
	mutex      sync.Mutex
}

func NewRepoMock() *repoMock {
	return &repoMock{
		Cycles:     map[int]Cycle{},
		Fortnights: map[int]Fortnight{},
	}
}

func (r *repoMock) Add(_ context.Context, cycle Cycle) (*Cycle, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cycle.ID = len(r.Cycles) + 1
	r.Cycles[cycle.ID] = cycle
	return &cycle, nil
}

func (r *repoMock) Get(_ context.Context, userID, cycleID int) (*Cycle, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cycle, ok := r.Cycles[cycleID]
	if !ok || cycle.UserID != userID {
		return nil, ErrCycleNotFound
	}
	return &cycle, nil
}

func (r *repoMock) GetActive(_ context.Context, userID int) (*Cycle, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, cycle := range r.Cycles {
		if cycle.UserID == userID && cycle.EndDate == nil {
			return &cycle, nil
		}
	}
	return nil, ErrCycleNotFound
}

func (r *repoMock) List(_ context.Context, userID int) ([]Cycle, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cyclesList := make([]Cycle, 0)
	for _, cycle := range r.Cycles {
		if cycle.UserID == userID {
			cyclesList = append(cyclesList, cycle)
		}
	}
	sort.Slice(cyclesList, func(i, j int) bool {
		return cyclesList[i].StartDate.After(cyclesList[j].StartDate)
	})
	return cyclesList, nil
}

func (r *repoMock) Close(_ context.Context, userID, cycleID int, endDate time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cycle, ok := r.Cycles[cycleID]
	if !ok || cycle.UserID != userID {
		return ErrCycleNotFound
	}
	cycle.EndDate = &endDate
	r.Cycles[cycleID] = cycle
	return nil
}

func (r *repoMock) LatestFortnight(_ context.Context, cycleID int) (*Fortnight, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var latest *Fortnight
	for id := range r.Fortnights {
		fortnight := r.Fortnights[id]
		if fortnight.CycleID != cycleID {
			continue
		}
		if latest == nil || fortnight.WeekNumber > latest.WeekNumber {
			latest = &fortnight
		}
	}
	if latest == nil {
		return nil, ErrNoFortnights
	}
	return latest, nil
}

func (r *repoMock) AddFortnight(_ context.Context, fortnight Fortnight) (*Fortnight, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	fortnight.ID = len(r.Fortnights) + 1
	r.Fortnights[fortnight.ID] = fortnight
	return &fortnight, nil
}

func (r *repoMock) ListFortnights(_ context.Context, cycleID int) ([]Fortnight, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	fortnights := make([]Fortnight, 0)
	for _, fortnight := range r.Fortnights {
		if fortnight.CycleID == cycleID {
			fortnights = append(fortnights, fortnight)
		}
	}
	sort.Slice(fortnights, func(i, j int) bool {
		return fortnights[i].WeekNumber < fortnights[j].WeekNumber
	})
	return fortnights, nil
}

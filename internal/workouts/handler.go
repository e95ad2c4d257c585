package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/gymhustle/internal/auth"
	"github.com/2beens/gymhustle/internal/telemetry/tracing"
	"github.com/2beens/gymhustle/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type workoutsRepo interface {
	AddWorkout(ctx context.Context, userID int, name string, now time.Time) (*Workout, error)
	RenameWorkout(ctx context.Context, userID, workoutID int, name string, now time.Time) error
	DeleteWorkout(ctx context.Context, userID, workoutID int) error
	GetWorkout(ctx context.Context, userID, workoutID int) (*Workout, error)
	ListWorkouts(ctx context.Context, userID int) ([]Workout, error)
	SelectWorkout(ctx context.Context, userID, workoutID int) error
	GetSelectedWorkout(ctx context.Context, userID int) (*Workout, error)
	AddDay(ctx context.Context, userID, workoutID int, name string) (*WorkoutDay, error)
	RenameDay(ctx context.Context, userID, dayID int, name string) error
	DeleteDay(ctx context.Context, userID, dayID int) error
	AddExercise(ctx context.Context, userID, dayID int, name string, sets []ExerciseSet) (*Exercise, error)
	RenameExercise(ctx context.Context, userID, exerciseID int, name string) error
	DeleteExercise(ctx context.Context, userID, exerciseID int) error
	SetExerciseArchived(ctx context.Context, userID, exerciseID int, archived bool) error
	ListArchivedExercises(ctx context.Context, userID, workoutID int) ([]Exercise, error)
	ReorderExercises(ctx context.Context, userID, dayID int, orderedIDs []int) error
	ReplaceExerciseSets(ctx context.Context, userID, exerciseID int, sets []ExerciseSet) ([]ExerciseSet, error)
}

type workoutsCache interface {
	Get(key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, tags ...string) error
	Invalidate(ctx context.Context, tags ...string)
}

type Handler struct {
	repo  workoutsRepo
	cache workoutsCache
	// injectable clock for tests
	NowFunc func() time.Time
}

func NewHandler(repo workoutsRepo, cache workoutsCache) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		NowFunc: time.Now,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	// fixed paths before the variable ones
	r.HandleFunc("/workouts/selected", h.HandleGetSelected).Methods("GET", "OPTIONS").Name("get-selected-workout")
	r.HandleFunc("/workouts", h.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	r.HandleFunc("/workouts", h.HandleAdd).Methods("POST", "OPTIONS").Name("new-workout")
	r.HandleFunc("/workouts/days/{dayId}", h.HandleRenameDay).Methods("PUT", "OPTIONS").Name("rename-workout-day")
	r.HandleFunc("/workouts/days/{dayId}", h.HandleDeleteDay).Methods("DELETE", "OPTIONS").Name("delete-workout-day")
	r.HandleFunc("/workouts/days/{dayId}/exercises", h.HandleAddExercise).Methods("POST", "OPTIONS").Name("new-exercise")
	r.HandleFunc("/workouts/days/{dayId}/reorder", h.HandleReorder).Methods("PUT", "OPTIONS").Name("reorder-exercises")
	r.HandleFunc("/workouts/exercises/{id}", h.HandleRenameExercise).Methods("PUT", "OPTIONS").Name("rename-exercise")
	r.HandleFunc("/workouts/exercises/{id}", h.HandleDeleteExercise).Methods("DELETE", "OPTIONS").Name("delete-exercise")
	r.HandleFunc("/workouts/exercises/{id}/archive", h.HandleArchiveExercise).Methods("PUT", "OPTIONS").Name("archive-exercise")
	r.HandleFunc("/workouts/exercises/{id}/unarchive", h.HandleUnarchiveExercise).Methods("PUT", "OPTIONS").Name("unarchive-exercise")
	r.HandleFunc("/workouts/exercises/{id}/sets", h.HandleReplaceSets).Methods("PUT", "OPTIONS").Name("replace-exercise-sets")
	r.HandleFunc("/workouts/{id}", h.HandleGet).Methods("GET", "OPTIONS").Name("get-workout")
	r.HandleFunc("/workouts/{id}", h.HandleRename).Methods("PUT", "OPTIONS").Name("rename-workout")
	r.HandleFunc("/workouts/{id}", h.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")
	r.HandleFunc("/workouts/{id}/select", h.HandleSelect).Methods("PUT", "OPTIONS").Name("select-workout")
	r.HandleFunc("/workouts/{id}/days", h.HandleAddDay).Methods("POST", "OPTIONS").Name("new-workout-day")
	r.HandleFunc("/workouts/{id}/archived", h.HandleListArchived).Methods("GET", "OPTIONS").Name("list-archived-exercises")
}

type NameRequest struct {
	Name string `json:"name"`
}

type SetParams struct {
	Reps   string   `json:"reps"`
	Weight *float64 `json:"weight,omitempty"`
}

type AddExerciseRequest struct {
	Name string      `json:"name"`
	Sets []SetParams `json:"sets"`
}

type ReorderRequest struct {
	ExerciseIDs []int `json:"exerciseIds"`
}

type ReplaceSetsRequest struct {
	Sets []SetParams `json:"sets"`
}

func workoutsTag(userID int) string {
	return fmt.Sprintf("workouts-%d", userID)
}

func workoutsListCacheKey(userID int) string {
	return fmt.Sprintf("workouts-list-%d", userID)
}

func (h *Handler) userAndPathID(w http.ResponseWriter, r *http.Request, varName string) (userID, pathID int, ok bool) {
	userID, ok = auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return 0, 0, false
	}
	pathID, err := strconv.Atoi(mux.Vars(r)[varName])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return 0, 0, false
	}
	return userID, pathID, true
}

func (h *Handler) writeRepoErr(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrWorkoutNotFound):
		http.Error(w, "workout not found", http.StatusNotFound)
	case errors.Is(err, ErrDayNotFound):
		http.Error(w, "workout day not found", http.StatusNotFound)
	case errors.Is(err, ErrExerciseNotFound):
		http.Error(w, "exercise not found", http.StatusNotFound)
	case errors.Is(err, ErrReorderIDsMismatch):
		http.Error(w, "exercise ids do not match", http.StatusBadRequest)
	case pkg.IsUniqueViolationError(err):
		http.Error(w, "name already taken", http.StatusConflict)
	default:
		log.Errorf("%s: %s", logMsg, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}, statusCode int) {
	respJson, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, statusCode)
}

func setsFromParams(params []SetParams) []ExerciseSet {
	sets := make([]ExerciseSet, 0, len(params))
	for _, p := range params {
		sets = append(sets, ExerciseSet{
			Reps:   p.Reps,
			Weight: p.Weight,
		})
	}
	return sets
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	cacheKey := workoutsListCacheKey(userID)
	if cached, found := h.cache.Get(cacheKey); found {
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
		return
	}

	workoutsList, err := h.repo.ListWorkouts(ctx, userID)
	if err != nil {
		log.Errorf("list workouts for user %d: %s", userID, err)
		http.Error(w, "failed to get workouts", http.StatusInternalServerError)
		return
	}

	workoutsJson, err := json.Marshal(workoutsList)
	if err != nil {
		log.Errorf("marshal workouts: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.cache.Set(ctx, cacheKey, workoutsJson, workoutsTag(userID)); err != nil {
		log.Errorf("cache workouts [%s]: %s", cacheKey, err)
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, workoutsJson, http.StatusOK)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()
	r = r.WithContext(ctx)

	userID, workoutID, ok := h.userAndPathID(w, r, "id")
	if !ok {
		return
	}

	workout, err := h.repo.GetWorkout(ctx, userID, workoutID)
	if err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("get workout %d", workoutID))
		return
	}

	h.writeJSON(w, workout, http.StatusOK)
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.new")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var addReq NameRequest
	if err := json.NewDecoder(r.Body).Decode(&addReq); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}
	if addReq.Name == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}

	workout, err := h.repo.AddWorkout(ctx, userID, addReq.Name, h.NowFunc())
	if err != nil {
		log.Errorf("add workout for user %d: %s", userID, err)
		http.Error(w, "error, failed to add workout", http.StatusInternalServerError)
		return
	}

	h.cache.Invalidate(ctx, workoutsTag(userID))
	h.writeJSON(w, workout, http.StatusCreated)
}

func (h *Handler) HandleRename(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.rename")
	defer span.End()
	r = r.WithContext(ctx)

	userID, workoutID, ok := h.userAndPathID(w, r, "id")
	if !ok {
		return
	}

	var renameReq NameRequest
	if err := json.NewDecoder(r.Body).Decode(&renameReq); err != nil {
		http.Error(w, "rename workout failed", http.StatusBadRequest)
		return
	}
	if renameReq.Name == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}

	if err := h.repo.RenameWorkout(ctx, userID, workoutID, renameReq.Name, h.NowFunc()); err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("rename workout %d", workoutID))
		return
	}

	h.cache.Invalidate(ctx, workoutsTag(userID))
	pkg.WriteJSONResponseOK(w, `{"updated":true}`)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()
	r = r.WithContext(ctx)

	userID, workoutID, ok := h.userAndPathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.DeleteWorkout(ctx, userID, workoutID); err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("delete workout %d", workoutID))
		return
	}

	h.cache.Invalidate(ctx, workoutsTag(userID))
	pkg.WriteJSONResponseOK(w, `{"deleted":true}`)
}

func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.select")
	defer span.End()
	r = r.WithContext(ctx)

	userID, workoutID, ok := h.userAndPathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.SelectWorkout(ctx, userID, workoutID); err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("select workout %d", workoutID))
		return
	}

	pkg.WriteJSONResponseOK(w, `{"selected":true}`)
}

func (h *Handler) HandleGetSelected(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.getSelected")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	workout, err := h.repo.GetSelectedWorkout(ctx, userID)
	if errors.Is(err, ErrNoWorkoutSelected) {
		pkg.WriteJSONResponseOK(w, `null`)
		return
	}
	if err != nil {
		log.Errorf("get selected workout for user %d: %s", userID, err)
		http.Error(w, "failed to get selected workout", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, workout, http.StatusOK)
}

func (h *Handler) HandleAddDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.newDay")
	defer span.End()
	r = r.WithContext(ctx)

	userID, workoutID, ok := h.userAndPathID(w, r, "id")
	if !ok {
		return
	}

	var addReq NameRequest
	if err := json.NewDecoder(r.Body).Decode(&addReq); err != nil {
		http.Error(w, "add workout day failed", http.StatusBadRequest)
		return
	}
	if addReq.Name == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}

	day, err := h.repo.AddDay(ctx, userID, workoutID, addReq.Name)
	if err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("add day to workout %d", workoutID))
		return
	}

	h.cache.Invalidate(ctx, workoutsTag(userID))
	h.writeJSON(w, day, http.StatusCreated)
}

func (h *Handler) HandleRenameDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.renameDay")
	defer span.End()
	r = r.WithContext(ctx)

	userID, dayID, ok := h.userAndPathID(w, r, "dayId")
	if !ok {
		return
	}

	var renameReq NameRequest
	if err := json.NewDecoder(r.Body).Decode(&renameReq); err != nil {
		http.Error(w, "rename workout day failed", http.StatusBadRequest)
		return
	}
	if renameReq.Name == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}

	if err := h.repo.RenameDay(ctx, userID, dayID, renameReq.Name); err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("rename workout day %d", dayID))
		return
	}

	h.cache.Invalidate(ctx, workoutsTag(userID))
	pkg.WriteJSONResponseOK(w, `{"updated":true}`)
}

func (h *Handler) HandleDeleteDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.deleteDay")
	defer span.End()
	r = r.WithContext(ctx)

	userID, dayID, ok := h.userAndPathID(w, r, "dayId")
	if !ok {
		return
	}

	if err := h.repo.DeleteDay(ctx, userID, dayID); err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("delete workout day %d", dayID))
		return
	}

	h.cache.Invalidate(ctx, workoutsTag(userID))
	pkg.WriteJSONResponseOK(w, `{"deleted":true}`)
}

func (h *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.newExercise")
	defer span.End()
	r = r.WithContext(ctx)

	userID, dayID, ok := h.userAndPathID(w, r, "dayId")
	if !ok {
		return
	}

	var addReq AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&addReq); err != nil {
		log.Tracef("new exercise, unmarshal json params: %s", err)
		http.Error(w, "add exercise failed", http.StatusBadRequest)
		return
	}
	if addReq.Name == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}

	exercise, err := h.repo.AddExercise(ctx, userID, dayID, addReq.Name, setsFromParams(addReq.Sets))
	if err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("add exercise to day %d", dayID))
		return
	}

	h.cache.Invalidate(ctx, workoutsTag(userID))
	h.writeJSON(w, exercise, http.StatusCreated)
}

func (h *Handler) HandleRenameExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.renameExercise")
	defer span.End()
	r = r.WithContext(ctx)

	userID, exerciseID, ok := h.userAndPathID(w, r, "id")
	if !ok {
		return
	}

	var renameReq NameRequest
	if err := json.NewDecoder(r.Body).Decode(&renameReq); err != nil {
		http.Error(w, "rename exercise failed", http.StatusBadRequest)
		return
	}
	if renameReq.Name == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}

	if err := h.repo.RenameExercise(ctx, userID, exerciseID, renameReq.Name); err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("rename exercise %d", exerciseID))
		return
	}

	h.cache.Invalidate(ctx, workoutsTag(userID))
	pkg.WriteJSONResponseOK(w, `{"updated":true}`)
}

func (h *Handler) HandleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.deleteExercise")
	defer span.End()
	r = r.WithContext(ctx)

	userID, exerciseID, ok := h.userAndPathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.DeleteExercise(ctx, userID, exerciseID); err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("delete exercise %d", exerciseID))
		return
	}

	h.cache.Invalidate(ctx, workoutsTag(userID))
	pkg.WriteJSONResponseOK(w, `{"deleted":true}`)
}

func (h *Handler) HandleArchiveExercise(w http.ResponseWriter, r *http.Request) {
	h.setExerciseArchived(w, r, true)
}

func (h *Handler) HandleUnarchiveExercise(w http.ResponseWriter, r *http.Request) {
	h.setExerciseArchived(w, r, false)
}

func (h *Handler) setExerciseArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.setExerciseArchived")
	defer span.End()
	r = r.WithContext(ctx)

	userID, exerciseID, ok := h.userAndPathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.SetExerciseArchived(ctx, userID, exerciseID, archived); err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("set exercise %d archived to %t", exerciseID, archived))
		return
	}

	h.cache.Invalidate(ctx, workoutsTag(userID))
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"archived":%t}`, archived))
}

func (h *Handler) HandleListArchived(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.listArchived")
	defer span.End()
	r = r.WithContext(ctx)

	userID, workoutID, ok := h.userAndPathID(w, r, "id")
	if !ok {
		return
	}

	exercises, err := h.repo.ListArchivedExercises(ctx, userID, workoutID)
	if err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("list archived exercises of workout %d", workoutID))
		return
	}

	h.writeJSON(w, exercises, http.StatusOK)
}

func (h *Handler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.reorder")
	defer span.End()
	r = r.WithContext(ctx)

	userID, dayID, ok := h.userAndPathID(w, r, "dayId")
	if !ok {
		return
	}

	var reorderReq ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&reorderReq); err != nil {
		http.Error(w, "reorder exercises failed", http.StatusBadRequest)
		return
	}

	if err := h.repo.ReorderExercises(ctx, userID, dayID, reorderReq.ExerciseIDs); err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("reorder exercises of day %d", dayID))
		return
	}

	h.cache.Invalidate(ctx, workoutsTag(userID))
	pkg.WriteJSONResponseOK(w, `{"reordered":true}`)
}

func (h *Handler) HandleReplaceSets(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.replaceSets")
	defer span.End()
	r = r.WithContext(ctx)

	userID, exerciseID, ok := h.userAndPathID(w, r, "id")
	if !ok {
		return
	}

	var replaceReq ReplaceSetsRequest
	if err := json.NewDecoder(r.Body).Decode(&replaceReq); err != nil {
		http.Error(w, "replace sets failed", http.StatusBadRequest)
		return
	}

	sets, err := h.repo.ReplaceExerciseSets(ctx, userID, exerciseID, setsFromParams(replaceReq.Sets))
	if err != nil {
		h.writeRepoErr(w, err, fmt.Sprintf("replace sets of exercise %d", exerciseID))
		return
	}

	h.cache.Invalidate(ctx, workoutsTag(userID))
	h.writeJSON(w, sets, http.StatusOK)
}

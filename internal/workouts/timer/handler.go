package timer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/gymhustle/internal/auth"
	"github.com/2beens/gymhustle/internal/telemetry/tracing"
	"github.com/2beens/gymhustle/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/workouts/timer/start", h.HandleStart).Methods("POST", "OPTIONS").Name("start-workout-timer")
	r.HandleFunc("/workouts/timer/stop", h.HandleStop).Methods("POST", "OPTIONS").Name("stop-workout-timer")
	r.HandleFunc("/workouts/timer/last", h.HandleGetLast).Methods("GET", "OPTIONS").Name("last-workout-timer")
	r.HandleFunc("/workouts/timer/{id}/duration", h.HandleUpdateDuration).Methods("PUT", "OPTIONS").Name("update-workout-timer-duration")
}

type TimerRequest struct {
	WorkoutID int    `json:"workoutId"`
	DayName   string `json:"dayName"`
}

type UpdateDurationRequest struct {
	DurationSeconds int        `json:"durationSeconds"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}, statusCode int) {
	respJson, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal timer response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, statusCode)
}

func decodeTimerRequest(w http.ResponseWriter, r *http.Request) (*TimerRequest, bool) {
	var timerReq TimerRequest
	if err := json.NewDecoder(r.Body).Decode(&timerReq); err != nil {
		log.Tracef("timer request, unmarshal json params: %s", err)
		http.Error(w, "invalid timer params", http.StatusBadRequest)
		return nil, false
	}
	if timerReq.WorkoutID <= 0 || timerReq.DayName == "" {
		http.Error(w, "error, workoutId and dayName required", http.StatusBadRequest)
		return nil, false
	}
	return &timerReq, true
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.timer.start")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	timerReq, ok := decodeTimerRequest(w, r)
	if !ok {
		return
	}

	workoutTime, err := h.service.Start(ctx, userID, timerReq.WorkoutID, timerReq.DayName)
	if err != nil {
		log.Errorf("start timer for user %d, workout %d: %s", userID, timerReq.WorkoutID, err)
		http.Error(w, "error, failed to start timer", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, workoutTime, http.StatusCreated)
}

func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.timer.stop")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	timerReq, ok := decodeTimerRequest(w, r)
	if !ok {
		return
	}

	workoutTime, err := h.service.Stop(ctx, userID, timerReq.WorkoutID, timerReq.DayName)
	if err != nil {
		log.Errorf("stop timer for user %d, workout %d: %s", userID, timerReq.WorkoutID, err)
		http.Error(w, "error, failed to stop timer", http.StatusInternalServerError)
		return
	}

	// nothing was running
	if workoutTime == nil {
		pkg.WriteJSONResponseOK(w, `null`)
		return
	}

	h.writeJSON(w, workoutTime, http.StatusOK)
}

func (h *Handler) HandleGetLast(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.timer.getLast")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	workoutID, err := strconv.Atoi(r.URL.Query().Get("workoutId"))
	if err != nil {
		http.Error(w, "error, invalid workoutId", http.StatusBadRequest)
		return
	}
	dayName := r.URL.Query().Get("dayName")
	if dayName == "" {
		http.Error(w, "error, dayName required", http.StatusBadRequest)
		return
	}

	var date *time.Time
	if dateParam := r.URL.Query().Get("date"); dateParam != "" {
		parsed, err := time.Parse(dateLayout, dateParam)
		if err != nil {
			http.Error(w, "error, invalid date", http.StatusBadRequest)
			return
		}
		date = &parsed
	}

	workoutTime, err := h.service.GetLast(ctx, userID, workoutID, dayName, date)
	if errors.Is(err, ErrTimerNotFound) {
		pkg.WriteJSONResponseOK(w, `null`)
		return
	}
	if err != nil {
		log.Errorf("get last timer for user %d, workout %d: %s", userID, workoutID, err)
		http.Error(w, "error, failed to get last timer", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, workoutTime, http.StatusOK)
}

func (h *Handler) HandleUpdateDuration(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.timer.updateDuration")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	timerID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	var updateReq UpdateDurationRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		http.Error(w, "invalid duration params", http.StatusBadRequest)
		return
	}
	if updateReq.DurationSeconds < 0 {
		http.Error(w, "error, negative duration", http.StatusBadRequest)
		return
	}

	workoutTime, err := h.service.UpdateDuration(ctx, userID, timerID, updateReq.DurationSeconds, updateReq.EndedAt)
	if errors.Is(err, ErrTimerNotFound) {
		http.Error(w, "timer not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("update duration of timer %d: %s", timerID, err)
		http.Error(w, "error, failed to update duration", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, workoutTime, http.StatusOK)
}

package cycles

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/gymhustle/internal/auth"
	"github.com/2beens/gymhustle/internal/telemetry/metrics"
	"github.com/2beens/gymhustle/internal/telemetry/tracing"
	"github.com/2beens/gymhustle/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service        *Service
	metricsManager *metrics.Manager
}

func NewHandler(service *Service, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		service:        service,
		metricsManager: metricsManager,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/cycles", h.HandleList).Methods("GET", "OPTIONS").Name("list-cycles")
	r.HandleFunc("/cycles", h.HandleAdd).Methods("POST", "OPTIONS").Name("new-cycle")
	r.HandleFunc("/cycles/{id}/close", h.HandleClose).Methods("PUT", "OPTIONS").Name("close-cycle")
	r.HandleFunc("/cycles/{id}/fortnights", h.HandleListFortnights).Methods("GET", "OPTIONS").Name("list-fortnights")
	r.HandleFunc("/cycles/{id}/fortnights", h.HandleCreateFortnight).Methods("POST", "OPTIONS").Name("new-fortnight")
}

type AddCycleRequest struct {
	Type      CycleType `json:"type"`
	StartDate string    `json:"startDate"`
}

type CloseCycleRequest struct {
	EndDate string `json:"endDate"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.cycles.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	cyclesList, err := h.service.ListCycles(ctx, userID)
	if err != nil {
		log.Errorf("list cycles for user %d: %s", userID, err)
		http.Error(w, "failed to get cycles", http.StatusInternalServerError)
		return
	}

	cyclesJson, err := json.Marshal(cyclesList)
	if err != nil {
		log.Errorf("marshal cycles: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cyclesJson, http.StatusOK)
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.cycles.new")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var addReq AddCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&addReq); err != nil {
		log.Tracef("new cycle, unmarshal json params: %s", err)
		http.Error(w, "add cycle failed", http.StatusBadRequest)
		return
	}

	if !addReq.Type.IsValid() {
		http.Error(w, "error, invalid cycle type", http.StatusBadRequest)
		return
	}

	startDate, err := time.Parse(dateLayout, addReq.StartDate)
	if err != nil {
		http.Error(w, "error, invalid start date", http.StatusBadRequest)
		return
	}

	cycle, err := h.service.AddCycle(ctx, userID, addReq.Type, startDate)
	if errors.Is(err, ErrActiveCycleExists) {
		http.Error(w, "an active cycle already exists", http.StatusConflict)
		return
	}
	if err != nil {
		log.Errorf("failed to add new cycle [%s] for user %d: %s", addReq.Type, userID, err)
		http.Error(w, "error, failed to add new cycle", http.StatusInternalServerError)
		return
	}

	cycleJson, err := json.Marshal(cycle)
	if err != nil {
		log.Errorf("failed to marshal new cycle: %s", err)
		http.Error(w, "error, failed to add new cycle", http.StatusInternalServerError)
		return
	}

	log.Debugf("new cycle added: %s", cycleJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cycleJson, http.StatusCreated)
}

func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.cycles.close")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	cycleID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	var closeReq CloseCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&closeReq); err != nil {
		log.Tracef("close cycle, unmarshal json params: %s", err)
		http.Error(w, "close cycle failed", http.StatusBadRequest)
		return
	}

	endDate, err := time.Parse(dateLayout, closeReq.EndDate)
	if err != nil {
		http.Error(w, "error, invalid end date", http.StatusBadRequest)
		return
	}

	if err := h.service.CloseCycle(ctx, userID, cycleID, endDate); err != nil {
		if errors.Is(err, ErrCycleNotFound) {
			http.Error(w, "cycle not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to close cycle %d: %s", cycleID, err)
		http.Error(w, "error, failed to close cycle", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"closed":true}`)
}

func (h *Handler) HandleListFortnights(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.cycles.listFortnights")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	cycleID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	fortnights, err := h.service.ListFortnights(ctx, userID, cycleID)
	if errors.Is(err, ErrCycleNotFound) {
		http.Error(w, "cycle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("list fortnights for cycle %d: %s", cycleID, err)
		http.Error(w, "failed to get fortnights", http.StatusInternalServerError)
		return
	}

	fortnightsJson, err := json.Marshal(fortnights)
	if err != nil {
		log.Errorf("marshal fortnights: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, fortnightsJson, http.StatusOK)
}

func (h *Handler) HandleCreateFortnight(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.cycles.newFortnight")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	cycleID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	result, err := h.service.CreateFortnight(ctx, userID, cycleID)
	if errors.Is(err, ErrCycleNotFound) {
		http.Error(w, "cycle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("failed to create fortnight for cycle %d: %s", cycleID, err)
		http.Error(w, "error, failed to create fortnight", http.StatusInternalServerError)
		return
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to marshal create fortnight result: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// a cooldown denial is a regular, non-error outcome
	if !result.Success {
		h.metricsManager.CounterFortnightsDenied.Inc()
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resultJson, http.StatusOK)
		return
	}

	h.metricsManager.CounterFortnightsCreated.Inc()
	log.Debugf("new fortnight created: cycle %d, week %d", cycleID, result.Fortnight.WeekNumber)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resultJson, http.StatusCreated)
}

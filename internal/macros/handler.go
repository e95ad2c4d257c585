package macros

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

type macrosRepo interface {
	GetMacroGoals(ctx context.Context, userID, cycleID, week int) ([]MacroGoal, error)
	UpsertMacroGoal(ctx context.Context, goal MacroGoal) (*MacroGoal, error)
	ListFoodIdeas(ctx context.Context, userID, cycleID, week int) ([]FoodIdea, error)
	AddFoodIdea(ctx context.Context, idea FoodIdea) (*FoodIdea, error)
	UpdateFoodIdea(ctx context.Context, userID, ideaID int, text string) error
	DeleteFoodIdea(ctx context.Context, userID, ideaID int) error
}

type ideasCache interface {
	Get(key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, tags ...string) error
	Invalidate(ctx context.Context, tags ...string)
}

type Handler struct {
	repo  macrosRepo
	cache ideasCache
	// injectable clock for tests
	NowFunc func() time.Time
}

func NewHandler(repo macrosRepo, cache ideasCache) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		NowFunc: time.Now,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/macros", h.HandleGetGoals).Methods("GET", "OPTIONS").Name("get-macro-goals")
	r.HandleFunc("/macros", h.HandleUpsertGoal).Methods("POST", "OPTIONS").Name("upsert-macro-goal")
	r.HandleFunc("/ideas", h.HandleListIdeas).Methods("GET", "OPTIONS").Name("list-food-ideas")
	r.HandleFunc("/ideas", h.HandleAddIdea).Methods("POST", "OPTIONS").Name("new-food-idea")
	r.HandleFunc("/ideas/{id}", h.HandleUpdateIdea).Methods("PUT", "OPTIONS").Name("update-food-idea")
	r.HandleFunc("/ideas/{id}", h.HandleDeleteIdea).Methods("DELETE", "OPTIONS").Name("delete-food-idea")
}

type UpsertGoalRequest struct {
	CycleID int  `json:"cycleId"`
	Week    int  `json:"week"`
	Meal    Meal `json:"meal"`
	Carbos  int  `json:"carbos"`
	Fat     int  `json:"fat"`
	Protein int  `json:"protein"`
}

type AddIdeaRequest struct {
	CycleID int    `json:"cycleId"`
	Week    int    `json:"week"`
	Meal    Meal   `json:"meal"`
	Text    string `json:"text"`
}

type UpdateIdeaRequest struct {
	Text string `json:"text"`
}

func foodIdeasTag(userID int) string {
	return fmt.Sprintf("food-ideas-%d", userID)
}

func foodIdeasCacheKey(userID, cycleID, week int) string {
	return fmt.Sprintf("food-ideas-%d-c%d-w%d", userID, cycleID, week)
}

// cycleWeekParams reads the cycleId and week query params shared by the
// goal and idea listing endpoints.
func cycleWeekParams(r *http.Request) (cycleID int, week int, err error) {
	cycleID, err = strconv.Atoi(r.URL.Query().Get("cycleId"))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cycleId: %w", err)
	}
	week, err = strconv.Atoi(r.URL.Query().Get("week"))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid week: %w", err)
	}
	return cycleID, week, nil
}

func (h *Handler) HandleGetGoals(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.macros.getGoals")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	cycleID, week, err := cycleWeekParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	goals, err := h.repo.GetMacroGoals(ctx, userID, cycleID, week)
	if err != nil {
		log.Errorf("get macro goals for user %d: %s", userID, err)
		http.Error(w, "failed to get macro goals", http.StatusInternalServerError)
		return
	}

	goalsJson, err := json.Marshal(goals)
	if err != nil {
		log.Errorf("marshal macro goals: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, goalsJson, http.StatusOK)
}

func (h *Handler) HandleUpsertGoal(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.macros.upsertGoal")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var upsertReq UpsertGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&upsertReq); err != nil {
		log.Tracef("upsert macro goal, unmarshal json params: %s", err)
		http.Error(w, "upsert macro goal failed", http.StatusBadRequest)
		return
	}

	if !upsertReq.Meal.IsValid() {
		http.Error(w, "error, invalid meal", http.StatusBadRequest)
		return
	}

	goal, err := h.repo.UpsertMacroGoal(ctx, MacroGoal{
		UserID:  userID,
		CycleID: upsertReq.CycleID,
		Week:    upsertReq.Week,
		Meal:    upsertReq.Meal,
		Carbos:  upsertReq.Carbos,
		Fat:     upsertReq.Fat,
		Protein: upsertReq.Protein,
	})
	if errors.Is(err, ErrCycleNotFound) {
		http.Error(w, "cycle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("upsert macro goal for user %d: %s", userID, err)
		http.Error(w, "error, failed to save macro goal", http.StatusInternalServerError)
		return
	}

	goalJson, err := json.Marshal(goal)
	if err != nil {
		log.Errorf("marshal macro goal: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, goalJson, http.StatusOK)
}

func (h *Handler) HandleListIdeas(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.macros.listIdeas")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	cycleID, week, err := cycleWeekParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cacheKey := foodIdeasCacheKey(userID, cycleID, week)
	if cached, found := h.cache.Get(cacheKey); found {
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
		return
	}

	ideas, err := h.repo.ListFoodIdeas(ctx, userID, cycleID, week)
	if err != nil {
		log.Errorf("list food ideas for user %d: %s", userID, err)
		http.Error(w, "failed to get food ideas", http.StatusInternalServerError)
		return
	}

	ideasJson, err := json.Marshal(ideas)
	if err != nil {
		log.Errorf("marshal food ideas: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.cache.Set(ctx, cacheKey, ideasJson, foodIdeasTag(userID)); err != nil {
		log.Errorf("cache food ideas [%s]: %s", cacheKey, err)
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, ideasJson, http.StatusOK)
}

func (h *Handler) HandleAddIdea(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.macros.addIdea")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var addReq AddIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&addReq); err != nil {
		log.Tracef("new food idea, unmarshal json params: %s", err)
		http.Error(w, "add food idea failed", http.StatusBadRequest)
		return
	}

	if !addReq.Meal.IsValid() {
		http.Error(w, "error, invalid meal", http.StatusBadRequest)
		return
	}
	if addReq.Text == "" {
		http.Error(w, "error, text empty", http.StatusBadRequest)
		return
	}

	idea, err := h.repo.AddFoodIdea(ctx, FoodIdea{
		UserID:    userID,
		CycleID:   addReq.CycleID,
		Week:      addReq.Week,
		Meal:      addReq.Meal,
		Text:      addReq.Text,
		CreatedAt: h.NowFunc(),
	})
	if errors.Is(err, ErrCycleNotFound) {
		http.Error(w, "cycle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("add food idea for user %d: %s", userID, err)
		http.Error(w, "error, failed to add food idea", http.StatusInternalServerError)
		return
	}

	h.cache.Invalidate(ctx, foodIdeasTag(userID))

	ideaJson, err := json.Marshal(idea)
	if err != nil {
		log.Errorf("marshal food idea: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, ideaJson, http.StatusCreated)
}

func (h *Handler) HandleUpdateIdea(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.macros.updateIdea")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	ideaID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	var updateReq UpdateIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		log.Tracef("update food idea, unmarshal json params: %s", err)
		http.Error(w, "update food idea failed", http.StatusBadRequest)
		return
	}
	if updateReq.Text == "" {
		http.Error(w, "error, text empty", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateFoodIdea(ctx, userID, ideaID, updateReq.Text); err != nil {
		if errors.Is(err, ErrFoodIdeaNotFound) {
			http.Error(w, "food idea not found", http.StatusNotFound)
			return
		}
		log.Errorf("update food idea %d: %s", ideaID, err)
		http.Error(w, "error, failed to update food idea", http.StatusInternalServerError)
		return
	}

	h.cache.Invalidate(ctx, foodIdeasTag(userID))

	pkg.WriteJSONResponseOK(w, `{"updated":true}`)
}

func (h *Handler) HandleDeleteIdea(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.macros.deleteIdea")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	ideaID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteFoodIdea(ctx, userID, ideaID); err != nil {
		if errors.Is(err, ErrFoodIdeaNotFound) {
			http.Error(w, "food idea not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete food idea %d: %s", ideaID, err)
		http.Error(w, "error, failed to delete food idea", http.StatusInternalServerError)
		return
	}

	h.cache.Invalidate(ctx, foodIdeasTag(userID))

	pkg.WriteJSONResponseOK(w, `{"deleted":true}`)
}

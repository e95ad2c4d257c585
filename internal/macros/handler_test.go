package macros

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/2beens/gymhustle/internal/auth"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ideasCache = (*cacheMock)(nil)

type cacheMock struct {
	entries map[string][]byte
	tags    map[string][]string
	mutex   sync.Mutex
}

func newCacheMock() *cacheMock {
	return &cacheMock{
		entries: map[string][]byte{},
		tags:    map[string][]string{},
	}
}

func (c *cacheMock) Get(key string) ([]byte, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	val, ok := c.entries[key]
	return val, ok
}

func (c *cacheMock) Set(_ context.Context, key string, value []byte, tags ...string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = value
	for _, tag := range tags {
		c.tags[tag] = append(c.tags[tag], key)
	}
	return nil
}

func (c *cacheMock) Invalidate(_ context.Context, tags ...string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, tag := range tags {
		for _, key := range c.tags[tag] {
			delete(c.entries, key)
		}
		delete(c.tags, tag)
	}
}

type handlerTestSuite struct {
	router *mux.Router
	repo   *repoMock
	cache  *cacheMock
}

func newHandlerTestSuite(t *testing.T) *handlerTestSuite {
	t.Helper()

	repo := NewRepoMock()
	repo.CycleOwners[1] = 1
	cacheM := newCacheMock()
	handler := NewHandler(repo, cacheM)
	handler.NowFunc = func() time.Time {
		return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	}

	router := mux.NewRouter()
	handler.SetupRoutes(router)

	return &handlerTestSuite{
		router: router,
		repo:   repo,
		cache:  cacheM,
	}
}

func (s *handlerTestSuite) request(t *testing.T, userID int, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req = req.WithContext(auth.ContextWithUserID(context.Background(), userID))
	}

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestHandler_MacroGoals_Upsert(t *testing.T) {
	s := newHandlerTestSuite(t)

	rr := s.request(t, 1, "POST", "/macros", `{"cycleId":1,"week":1,"meal":"morning","carbos":80,"fat":20,"protein":40}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var goal MacroGoal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &goal))
	assert.Equal(t, 80, goal.Carbos)

	// same (cycle, week, meal) overwrites instead of adding a row
	rr = s.request(t, 1, "POST", "/macros", `{"cycleId":1,"week":1,"meal":"morning","carbos":100,"fat":25,"protein":45}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.request(t, 1, "GET", "/macros?cycleId=1&week=1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var goals []MacroGoal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &goals))
	require.Len(t, goals, 1)
	assert.Equal(t, 100, goals[0].Carbos)
	assert.Equal(t, 25, goals[0].Fat)
	assert.Equal(t, 45, goals[0].Protein)

	// a different meal is a separate row
	rr = s.request(t, 1, "POST", "/macros", `{"cycleId":1,"week":1,"meal":"lunch","carbos":90,"fat":30,"protein":50}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.request(t, 1, "GET", "/macros?cycleId=1&week=1", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &goals))
	assert.Len(t, goals, 2)

	rr = s.request(t, 1, "POST", "/macros", `{"cycleId":1,"week":1,"meal":"brunch","carbos":1,"fat":1,"protein":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_MacroGoals_CycleOwnership(t *testing.T) {
	s := newHandlerTestSuite(t)
	s.repo.CycleOwners[2] = 2

	rr := s.request(t, 1, "POST", "/macros", `{"cycleId":1,"week":1,"meal":"morning","carbos":100,"fat":20,"protein":40}`)
	require.Equal(t, http.StatusOK, rr.Code)

	// another user posting the owner's cycle id must not touch the row
	rr = s.request(t, 2, "POST", "/macros", `{"cycleId":1,"week":1,"meal":"morning","carbos":999,"fat":1,"protein":1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.request(t, 1, "GET", "/macros?cycleId=1&week=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var goals []MacroGoal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &goals))
	require.Len(t, goals, 1)
	assert.Equal(t, 100, goals[0].Carbos)

	// same guard on food ideas
	rr = s.request(t, 2, "POST", "/ideas", `{"cycleId":1,"week":1,"meal":"dinner","text":"sneaky"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = s.request(t, 2, "POST", "/ideas", `{"cycleId":2,"week":1,"meal":"dinner","text":"own cycle is fine"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestHandler_FoodIdeas_CRUD(t *testing.T) {
	s := newHandlerTestSuite(t)

	rr := s.request(t, 1, "POST", "/ideas", `{"cycleId":1,"week":1,"meal":"dinner","text":"salmon and rice"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var idea FoodIdea
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &idea))
	assert.Equal(t, "salmon and rice", idea.Text)

	rr = s.request(t, 1, "GET", "/ideas?cycleId=1&week=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var ideas []FoodIdea
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ideas))
	require.Len(t, ideas, 1)

	rr = s.request(t, 1, "PUT", fmt.Sprintf("/ideas/%d", idea.ID), `{"text":"tuna and rice"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.request(t, 1, "GET", "/ideas?cycleId=1&week=1", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ideas))
	require.Len(t, ideas, 1)
	assert.Equal(t, "tuna and rice", ideas[0].Text)

	// other users cannot touch it
	rr = s.request(t, 2, "PUT", fmt.Sprintf("/ideas/%d", idea.ID), `{"text":"stolen"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = s.request(t, 2, "DELETE", fmt.Sprintf("/ideas/%d", idea.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.request(t, 1, "DELETE", fmt.Sprintf("/ideas/%d", idea.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.request(t, 1, "GET", "/ideas?cycleId=1&week=1", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ideas))
	assert.Empty(t, ideas)
}

func TestHandler_FoodIdeas_CacheInvalidation(t *testing.T) {
	s := newHandlerTestSuite(t)

	rr := s.request(t, 1, "POST", "/ideas", `{"cycleId":1,"week":1,"meal":"morning","text":"oats"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	// first read populates the cache
	rr = s.request(t, 1, "GET", "/ideas?cycleId=1&week=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	_, cached := s.cache.Get(foodIdeasCacheKey(1, 1, 1))
	require.True(t, cached)

	// a write drops the whole tag
	rr = s.request(t, 1, "POST", "/ideas", `{"cycleId":1,"week":1,"meal":"lunch","text":"chicken wrap"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	_, cached = s.cache.Get(foodIdeasCacheKey(1, 1, 1))
	assert.False(t, cached)

	// and the next read sees the new idea
	rr = s.request(t, 1, "GET", "/ideas?cycleId=1&week=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var ideas []FoodIdea
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ideas))
	assert.Len(t, ideas, 2)
}

func TestHandler_Macros_Unauthenticated(t *testing.T) {
	s := newHandlerTestSuite(t)

	rr := s.request(t, 0, "GET", "/macros?cycleId=1&week=1", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = s.request(t, 0, "POST", "/ideas", `{"cycleId":1,"week":1,"meal":"dinner","text":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidylist/api/internal/domain"
	"github.com/tidylist/api/internal/repository"
	"github.com/tidylist/api/internal/service/auth"
	"github.com/tidylist/api/internal/service/todo"
	"github.com/tidylist/api/internal/token"
)

type memoryStore struct {
	users     map[int64]*domain.User
	todos     map[int64]domain.Todo
	nextUser  int64
	nextTodo  int64
	usersByEm map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:     make(map[int64]*domain.User),
		todos:     make(map[int64]domain.Todo),
		usersByEm: make(map[string]int64),
	}
}

func (m *memoryStore) CreateUser(ctx context.Context, user *domain.User) error {
	if _, ok := m.usersByEm[user.Email]; ok {
		return repository.ErrDuplicate
	}
	m.nextUser++
	user.ID = m.nextUser
	copied := *user
	m.users[user.ID] = &copied
	m.usersByEm[user.Email] = user.ID
	return nil
}

func (m *memoryStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if id, ok := m.usersByEm[email]; ok {
		copied := *m.users[id]
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) CreateTodo(ctx context.Context, t *domain.Todo) error {
	m.nextTodo++
	t.ID = m.nextTodo
	m.todos[t.ID] = *t
	return nil
}

func (m *memoryStore) GetTodoByID(ctx context.Context, id int64) (*domain.Todo, error) {
	if t, ok := m.todos[id]; ok {
		copied := t
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) UpdateTodo(ctx context.Context, t *domain.Todo) error {
	if _, ok := m.todos[t.ID]; !ok {
		return repository.ErrNotFound
	}
	m.todos[t.ID] = *t
	return nil
}

func (m *memoryStore) DeleteTodo(ctx context.Context, id int64) error {
	if _, ok := m.todos[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.todos, id)
	return nil
}

func (m *memoryStore) ListTodosByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Todo, error) {
	owned := make([]domain.Todo, 0)
	for _, t := range m.todos {
		if t.UserID == userID {
			owned = append(owned, t)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })
	if offset >= len(owned) {
		return []domain.Todo{}, nil
	}
	owned = owned[offset:]
	if limit < len(owned) {
		owned = owned[:limit]
	}
	return owned, nil
}

func (m *memoryStore) CountTodosByUser(ctx context.Context, userID int64) (int, error) {
	count := 0
	for _, t := range m.todos {
		if t.UserID == userID {
			count++
		}
	}
	return count, nil
}

func newTestRouter(t *testing.T) (*Router, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := token.NewManager("router-test-secret", 30*time.Minute)
	authSvc := auth.New(store, tokens, log)
	todoSvc := todo.New(store, log)
	return NewRouter(log, authSvc, todoSvc, nil), store
}

func doJSON(t *testing.T, router *Router, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func registerAndLogin(t *testing.T, router *Router, name, email string) string {
	t.Helper()
	rr := doJSON(t, router, http.MethodPost, "/register", "", map[string]string{
		"name": name, "email": email, "password": "long enough pw",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, router, http.MethodPost, "/login", "", map[string]string{
		"email": email, "password": "long enough pw",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
	require.NotEmpty(t, payload.Token)
	return payload.Token
}

func TestRegisterResponseShape(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(t, router, http.MethodPost, "/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "long enough pw",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
	assert.Equal(t, float64(1), payload["id"])
	assert.Equal(t, "Ada", payload["name"])
	assert.Equal(t, "ada@example.com", payload["email"])
	assert.NotContains(t, payload, "password")
	assert.NotContains(t, payload, "password_hash")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router, _ := newTestRouter(t)
	body := map[string]string{"name": "Ada", "email": "ada@example.com", "password": "long enough pw"}

	rr := doJSON(t, router, http.MethodPost, "/register", "", body)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/register", "", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "already registered")
}

func TestLoginFailuresAreUniform(t *testing.T) {
	router, _ := newTestRouter(t)
	registerAndLogin(t, router, "Ada", "ada@example.com")

	wrongPassword := doJSON(t, router, http.MethodPost, "/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong password",
	})
	unknownEmail := doJSON(t, router, http.MethodPost, "/login", "", map[string]string{
		"email": "nobody@example.com", "password": "wrong password",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestProtectedRoutesRejectBadAuthHeaders(t *testing.T) {
	router, _ := newTestRouter(t)

	cases := []struct {
		name, header string
	}{
		{"missing header", ""},
		{"no scheme", "sometoken"},
		{"wrong scheme", "Basic sometoken"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
		{"extra parts", "Bearer a b"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.name)
	}
}

func TestTodoLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)
	aliceTok := registerAndLogin(t, router, "Alice", "alice@example.com")
	bobTok := registerAndLogin(t, router, "Bob", "bob@example.com")

	// Create.
	rr := doJSON(t, router, http.MethodPost, "/todos", aliceTok, map[string]string{
		"title": "buy milk", "description": "two liters",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created todoPayload
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.Equal(t, "buy milk", created.Title)
	require.NotZero(t, created.ID)

	// Alice sees it; Bob does not.
	rr = doJSON(t, router, http.MethodGet, "/todos?page=1&limit=10", aliceTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed struct {
		Data  []todoPayload `json:"data"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, 1, listed.Total)

	rr = doJSON(t, router, http.MethodGet, "/todos", bobTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&listed))
	assert.Empty(t, listed.Data)
	assert.Equal(t, 0, listed.Total)

	// Bob cannot touch Alice's todo: existence is revealed as 403.
	path := fmt.Sprintf("/todos/%d", created.ID)
	rr = doJSON(t, router, http.MethodPut, path, bobTok, map[string]string{"title": "hijack", "description": ""})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = doJSON(t, router, http.MethodDelete, path, bobTok, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Alice updates.
	rr = doJSON(t, router, http.MethodPut, path, aliceTok, map[string]string{
		"title": "buy oat milk", "description": "one liter",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var updated todoPayload
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "buy oat milk", updated.Title)

	// Alice deletes; a second delete is a 404.
	rr = doJSON(t, router, http.MethodDelete, path, aliceTok, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	rr = doJSON(t, router, http.MethodDelete, path, aliceTok, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateTodoWithEmptyTitle(t *testing.T) {
	router, _ := newTestRouter(t)
	tok := registerAndLogin(t, router, "Ada", "ada@example.com")

	rr := doJSON(t, router, http.MethodPost, "/todos", tok, map[string]string{
		"description": "title omitted",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created todoPayload
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.Equal(t, "", created.Title)
	assert.Equal(t, "title omitted", created.Description)
}

func TestTodoMutationsOnMissingID(t *testing.T) {
	router, _ := newTestRouter(t)
	tok := registerAndLogin(t, router, "Ada", "ada@example.com")

	rr := doJSON(t, router, http.MethodPut, "/todos/999", tok, map[string]string{"title": "x", "description": ""})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, "/todos/999", tok, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, router, http.MethodPut, "/todos/not-a-number", tok, map[string]string{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListPaginationThroughAPI(t *testing.T) {
	router, _ := newTestRouter(t)
	tok := registerAndLogin(t, router, "Ada", "ada@example.com")

	for i := 0; i < 25; i++ {
		rr := doJSON(t, router, http.MethodPost, "/todos", tok, map[string]string{
			"title": fmt.Sprintf("task %d", i), "description": "",
		})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	cases := []struct {
		page, wantLen int
	}{
		{1, 10}, {2, 10}, {3, 5}, {4, 0},
	}
	for _, tc := range cases {
		rr := doJSON(t, router, http.MethodGet, fmt.Sprintf("/todos?page=%d&limit=10", tc.page), tok, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var listed struct {
			Data  []todoPayload `json:"data"`
			Page  int           `json:"page"`
			Limit int           `json:"limit"`
			Total int           `json:"total"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&listed))
		assert.Len(t, listed.Data, tc.wantLen, "page %d", tc.page)
		assert.Equal(t, 25, listed.Total, "page %d", tc.page)
		assert.Equal(t, tc.page, listed.Page)
		assert.Equal(t, 10, listed.Limit)
	}

	// Defaults when query params are absent or junk.
	rr := doJSON(t, router, http.MethodGet, "/todos?page=junk&limit=-5", tok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&listed))
	assert.Equal(t, 1, listed.Page)
	assert.Equal(t, todo.DefaultLimit, listed.Limit)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var payload map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
	assert.Equal(t, "ok", payload["status"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	store := newMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := token.NewManager("router-test-secret", 30*time.Minute)
	down := func(context.Context) error { return fmt.Errorf("connection refused") }
	router := NewRouter(log, auth.New(store, tokens, log), todo.New(store, log), down)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "degraded")
}

func TestRequestIDEchoed(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "fixed-id-123")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "fixed-id-123", rr.Header().Get("X-Request-ID"))
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/register", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	req = httptest.NewRequest(http.MethodDelete, "/login", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatusRecorderPassthroughs(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: rr}

	rec.Flush()
	assert.True(t, rr.Flushed)

	// httptest.ResponseRecorder implements neither Hijacker nor Pusher,
	// so the recorder must fall back to errors instead of panicking.
	_, _, err := rec.Hijack()
	require.Error(t, err)

	err = rec.Push("/todos", nil)
	assert.ErrorIs(t, err, http.ErrNotSupported)
}

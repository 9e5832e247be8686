package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shared-planner/internal/auth"
	"shared-planner/internal/model"
	"shared-planner/internal/push"
	"shared-planner/internal/repository"
	"shared-planner/internal/service"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	tokens *auth.Tokens
	svc    *service.Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "api.db"), io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	calendar := service.NewCalendar(func() time.Time { return now }, time.UTC, service.DefaultHorizonDays)
	svc := service.New(db, push.NopNotifier{}, calendar, nil)
	tokens := auth.NewTokens("test-secret", time.Hour)
	return &testServer{t: t, router: NewRouter(svc, tokens, nil), tokens: tokens, svc: svc}
}

func (s *testServer) user(name string) *model.User {
	s.t.Helper()
	u := &model.User{FirstName: name}
	require.NoError(s.t, s.svc.Users.Create(context.Background(), u))
	return u
}

func (s *testServer) do(method, path string, userID uint, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, _, err := s.tokens.Issue(userID)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", 0, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/metrics", 0, nil).Code)
}

func TestUnauthenticatedIsRejected(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/generate/user", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate/user", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid token", decode[map[string]string](t, w)["error"])
}

func TestTemplateLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.user("Alice")

	w := s.do(http.MethodPost, "/api/v1/templates", alice.ID, map[string]any{
		"title": "stretch",
		"rule":  map[string]any{"kind": "weekly", "weekdays": []int{2, 4}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tpl := decode[templateResponse](t, w)
	assert.Equal(t, "2024-03-01", tpl.StartDate.String())

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/generate/templates/%d", tpl.ID), alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[generateResponse](t, w).TasksCreated)

	w = s.do(http.MethodGet, "/api/v1/calendar?from=2024-03-01&to=2024-03-31", alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[struct {
		Entries []service.Entry `json:"entries"`
	}](t, w)
	require.NotEmpty(t, view.Entries)
	first := view.Entries[0]
	assert.Equal(t, "2024-03-05", first.Date.String())
	require.NotNil(t, first.TaskID)
	assert.True(t, view.Entries[len(view.Entries)-1].Virtual)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/complete", *first.TaskID), alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StateCompleted, decode[taskResponse](t, w).State)

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/templates/%d?mode=future&from=2024-03-01", tpl.ID), alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	alice := s.user("Alice")
	bob := s.user("Bob")

	w := s.do(http.MethodPost, "/api/v1/templates", alice.ID, map[string]any{
		"title": "rent",
		"rule":  map[string]any{"kind": "monthly_day", "monthlyDay": 25},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tpl := decode[templateResponse](t, w)

	tests := []struct {
		name   string
		method string
		path   string
		caller uint
		body   any
		status int
	}{
		{"foreign template", http.MethodPost, fmt.Sprintf("/api/v1/generate/templates/%d", tpl.ID), bob.ID, nil, http.StatusForbidden},
		{"unknown template", http.MethodPost, "/api/v1/generate/templates/999", alice.ID, nil, http.StatusNotFound},
		{"bad id", http.MethodPost, "/api/v1/generate/templates/abc", alice.ID, nil, http.StatusBadRequest},
		{"unknown group", http.MethodPost, "/api/v1/generate/groups/5", alice.ID, nil, http.StatusNotFound},
		{"bad rule", http.MethodPost, "/api/v1/templates", alice.ID, map[string]any{"title": "x", "rule": map[string]any{"kind": "yearly"}}, http.StatusBadRequest},
		{"bad window", http.MethodGet, "/api/v1/calendar?from=2024-03-10&to=2024-03-01", alice.ID, nil, http.StatusBadRequest},
		{"bad delete mode", http.MethodDelete, fmt.Sprintf("/api/v1/templates/%d?mode=some", tpl.ID), alice.ID, nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.caller, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, w)["error"])
		})
	}
}

func TestGroupRoutes(t *testing.T) {
	s := newTestServer(t)
	alice := s.user("Alice")
	bob := s.user("Bob")

	w := s.do(http.MethodPost, "/api/v1/groups", alice.ID, map[string]string{"name": "home"})
	require.Equal(t, http.StatusCreated, w.Code)
	groupID := uint(decode[map[string]any](t, w)["id"].(float64))

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/members", groupID), alice.ID, map[string]any{"userId": bob.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/templates", alice.ID, map[string]any{
		"title":   "trash",
		"groupId": groupID,
		"rule":    map[string]any{"kind": "interval", "interval": 2},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/generate/groups/%d", groupID), bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[generateResponse](t, w).TasksCreated)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/groups/%d/members", groupID), bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/groups/%d/members/%d", groupID, bob.ID), bob.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/generate/groups/%d", groupID), bob.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

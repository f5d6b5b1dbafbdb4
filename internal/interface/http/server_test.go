package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
)

type stubHealthChecker struct {
	results map[string]error
}

func (c *stubHealthChecker) Check(_ context.Context) map[string]error {
	return c.results
}

func newTestServer(t *testing.T, deps Dependencies) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	return NewServer(cfg, deps)
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ─────────────────────────────────────────────────────────────────────────────
// Health & Routing
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_HealthReportsComponents(t *testing.T) {
	s := newTestServer(t, Dependencies{
		HealthChecker: &stubHealthChecker{results: map[string]error{
			"postgres": nil,
			"redis":    nil,
		}},
	})

	rec := doRequest(s, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestServer_HealthUnhealthyComponentReturns503(t *testing.T) {
	s := newTestServer(t, Dependencies{
		HealthChecker: &stubHealthChecker{results: map[string]error{
			"postgres": nil,
			"redis":    errors.New("connection refused"),
		}},
	})

	rec := doRequest(s, http.MethodGet, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
}

func TestServer_LiveAlwaysOK(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	rec := doRequest(s, http.MethodGet, "/live")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_UnknownPathReturns404(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	rec := doRequest(s, http.MethodGet, "/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestServer_ActivityFeedDisabledReturns404(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	rec := doRequest(s, http.MethodGet, "/api/v1/users/u-1/activity")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RegenerateDisabledReturns404(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	rec := doRequest(s, http.MethodPost, "/api/v1/users/u-1/lessons/l-1/regenerate")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Rate Limiting
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_RateLimitRejectsExcessRequests(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2
	s := NewServer(cfg, Dependencies{})

	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/live").Code)
	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/live").Code)

	rec := doRequest(s, http.MethodGet, "/live")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Error Mapping
// ─────────────────────────────────────────────────────────────────────────────

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"user not found", shared.ErrUserNotFound, http.StatusNotFound, "not_found"},
		{"lesson not found", shared.ErrLessonNotFound, http.StatusNotFound, "not_found"},
		{"invalid credentials", shared.ErrInvalidCredential, http.StatusUnauthorized, "unauthorized"},
		{"lesson not owned", shared.ErrLessonNotOwned, http.StatusForbidden, "forbidden"},
		{"duplicate user", shared.ErrUserAlreadyExists, http.StatusConflict, "already_exists"},
		{"prerequisites unmet", shared.ErrPrerequisiteUnmet, http.StatusConflict, "prerequisite_unmet"},
		{"lesson not ready", shared.ErrLessonNotReady, http.StatusConflict, "invalid_state"},
		{"generation conflict", shared.ErrGenerationConflict, http.StatusConflict, "invalid_state"},
		{"optimistic lock", shared.ErrOptimisticLock, http.StatusConflict, "conflict"},
		{"invalid email", shared.ErrInvalidEmail, http.StatusBadRequest, "validation_failed"},
		{"empty value", shared.NewDomainError("task", "List", shared.ErrEmptyValue, "user_id is required"), http.StatusBadRequest, "validation_failed"},
		{"judge down", shared.ErrJudgeUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"rate limited", shared.ErrRateLimited, http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classifyError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestWriteDomainError_HidesInternalDetails(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/u-1/progress", nil)
	rec := httptest.NewRecorder()
	s.writeDomainError(rec, req, errors.New("pq: connection reset by peer"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.NotContains(t, resp.Error.Message, "connection reset")
}

func TestWriteDomainError_SurfacesDomainMessage(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/u-1/progress", nil)
	rec := httptest.NewRecorder()
	s.writeDomainError(rec, req, shared.ErrLessonNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "lesson not found", resp.Error.Message)
}

// ─────────────────────────────────────────────────────────────────────────────
// Body Decoding
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_MalformedBodyReturns400(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	rec := httptest.NewRecorder()

	var dst loginRequest
	ok := s.decodeBody(rec, req, &dst)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/application/command"
	"github.com/lingoquest/lingoquest-backend/internal/application/query"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot returns basic service information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "The requested resource was not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "lingoquest-backend",
		"status":  "running",
		"uptime":  s.Uptime().String(),
	})
}

// handleHealth returns the health of the service and its dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, 5*time.Second)
	defer cancel()

	components := map[string]string{}
	healthy := true

	if s.deps.HealthChecker != nil {
		for name, err := range s.deps.HealthChecker.Check(ctx) {
			if err != nil {
				components[name] = "unhealthy: " + err.Error()
				healthy = false
			} else {
				components[name] = "ok"
			}
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}

	writeJSON(w, status, map[string]interface{}{
		"status":     state,
		"components": components,
		"uptime":     s.Uptime().String(),
	})
}

// handleReady reports readiness. Same checks as health; orchestrators use
// this to gate traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.handleHealth(w, r)
}

// handleLive reports liveness. Always OK while the process serves requests.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	DisplayName    string `json:"display_name"`
	NativeLanguage string `json:"native_language"`
}

// handleRegister creates a new learner account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.RegisterUser.Handle(r.Context(), command.RegisterUserCommand{
		Email:          req.Email,
		Password:       req.Password,
		DisplayName:    req.DisplayName,
		NativeLanguage: req.NativeLanguage,
		CorrelationID:  getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user_id":      result.UserID,
		"email":        result.Email,
		"display_name": result.DisplayName,
		"level":        result.Level,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin verifies credentials and records the daily login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.Authenticate.Handle(r.Context(), command.AuthenticateCommand{
		Email:         req.Email,
		Password:      req.Password,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      result.UserID,
		"email":        result.Email,
		"display_name": result.DisplayName,
		"total_points": result.TotalPoints,
		"level":        result.Level,
		"streak":       result.Streak,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type generateLessonRequest struct {
	Request  string `json:"request"`
	Language string `json:"language"`
}

// handleGenerateLesson creates a lesson shell and queues AI generation.
// Returns 202; clients poll the lesson until the generating status resolves.
func (s *Server) handleGenerateLesson(w http.ResponseWriter, r *http.Request) {
	var req generateLessonRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.GenerateLesson.Handle(r.Context(), command.GenerateLessonCommand{
		UserID:        r.PathValue("userID"),
		Request:       req.Request,
		Language:      req.Language,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"lesson_id":         result.LessonID,
		"generating_status": result.GeneratingStatus,
	})
}

// handleRegenerateLesson retries generation for a failed lesson.
func (s *Server) handleRegenerateLesson(w http.ResponseWriter, r *http.Request) {
	if s.deps.RegenerateLesson == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "Lesson regeneration is not enabled")
		return
	}

	result, err := s.deps.RegenerateLesson.Handle(r.Context(), command.RegenerateLessonCommand{
		UserID:        r.PathValue("userID"),
		LessonID:      r.PathValue("lessonID"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"lesson_id":         result.LessonID,
		"generating_status": result.GeneratingStatus,
	})
}

// handleListLessons returns the user's lessons, most recently accessed first.
func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := s.deps.Lessons.ListByUser(r.Context(), r.PathValue("userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, lessons, &ResponseMeta{TotalCount: len(lessons)})
}

// handleGetLesson returns one owned lesson with its units.
func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Lessons.Get(r.Context(), query.GetLessonQuery{
		UserID:   r.PathValue("userID"),
		LessonID: r.PathValue("lessonID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

type interactRequest struct {
	Message  string `json:"message"`
	Language string `json:"language,omitempty"`
}

// handleInteract sends one learner message to the AI tutor and returns the
// reply together with the state transitions it caused.
func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	var req interactRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.Interact.Handle(r.Context(), command.InteractCommand{
		UserID:        r.PathValue("userID"),
		LessonID:      r.PathValue("lessonID"),
		Message:       req.Message,
		Language:      shared.LanguageCode(req.Language),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"response_text":    result.ResponseText,
		"judged":           result.Judged,
		"completion_score": result.CompletionScore,
		"content_id":       result.ContentID,
		"sequence_number":  result.SequenceNumber,
		"unit_completed":   result.UnitCompleted,
		"lesson_completed": result.LessonCompleted,
	})
}

// handleChatHistory returns the conversation for one content unit in
// chronological order.
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	turns, err := s.deps.ChatHistory.Handle(r.Context(), query.ChatHistoryQuery{
		UserID:    r.PathValue("userID"),
		LessonID:  r.PathValue("lessonID"),
		ContentID: r.PathValue("contentID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, turns, &ResponseMeta{TotalCount: len(turns)})
}

// ══════════════════════════════════════════════════════════════════════════════
// TASK & PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleAvailableTasks returns the tasks the user can currently work toward.
func (s *Server) handleAvailableTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.deps.Tasks.Available(r.Context(), query.ListTasksQuery{
		UserID: r.PathValue("userID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, tasks, &ResponseMeta{TotalCount: len(tasks)})
}

// handleCompletedTasks returns the tasks the user has finished.
func (s *Server) handleCompletedTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.deps.Tasks.Completed(r.Context(), query.ListTasksQuery{
		UserID: r.PathValue("userID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, tasks, &ResponseMeta{TotalCount: len(tasks)})
}

// handleTaskProgress returns the aggregated gamification report.
func (s *Server) handleTaskProgress(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Progress.Handle(r.Context(), query.TaskProgressQuery{
		UserID: r.PathValue("userID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleActivityFeed returns the most recent feed entries for a user.
func (s *Server) handleActivityFeed(w http.ResponseWriter, r *http.Request) {
	if s.deps.Activity == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "Activity feed is not enabled")
		return
	}

	limit := getQueryParamInt(r, "limit", 20)
	entries, err := s.deps.Activity.Recent(r.Context(), r.PathValue("userID"), int64(limit))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, entries, &ResponseMeta{TotalCount: len(entries)})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST & ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body into dst. Writes the error response
// and returns false when the body is missing or malformed.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	maxBytes := s.config.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 64 << 10
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body is required")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}

// writeDomainError maps a domain error to an HTTP status and error code.
// Internal errors are logged but never leaked to the client.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		writeJSONError(w, status, code, "An unexpected error occurred")
		return
	}

	message := err.Error()
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}
	writeJSONError(w, status, code, message)
}

// classifyError maps the domain error taxonomy to HTTP semantics.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, "already_exists"
	case shared.IsPrerequisiteUnmet(err):
		return http.StatusConflict, "prerequisite_unmet"
	case errors.Is(err, shared.ErrInvalidState), errors.Is(err, shared.ErrStateTransition):
		return http.StatusConflict, "invalid_state"
	case shared.IsConflict(err):
		return http.StatusConflict, "conflict"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limit_exceeded"
	case shared.IsExternalService(err):
		return http.StatusServiceUnavailable, "service_unavailable"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}

// contextWithTimeout derives a bounded context for dependency checks.
func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

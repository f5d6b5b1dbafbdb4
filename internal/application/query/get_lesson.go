package query

import (
	"context"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LESSON QUERIES
// Read side for polling generation status and browsing lessons.
// ══════════════════════════════════════════════════════════════════════════════

// GetLessonQuery requests one lesson with its units.
type GetLessonQuery struct {
	UserID   string
	LessonID string
}

// Validate validates the query.
func (q GetLessonQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("lesson", "Get", shared.ErrEmptyValue, "user_id is required")
	}
	if q.LessonID == "" {
		return shared.NewDomainError("lesson", "Get", shared.ErrEmptyValue, "lesson_id is required")
	}
	return nil
}

// UnitView is one content unit as presented to the learner.
type UnitView struct {
	ID               string                  `json:"id"`
	SequenceNumber   int                     `json:"sequence_number"`
	Title            string                  `json:"title"`
	Body             string                  `json:"body"`
	CompletionStatus lesson.CompletionStatus `json:"completion_status"`
	CurrentProgress  int                     `json:"current_progress"`
}

// LessonView is one lesson as presented to the learner. ActiveContentID
// names the unit the next interaction will target, empty while the lesson
// has no units.
type LessonView struct {
	ID               string                  `json:"id"`
	Title            string                  `json:"title"`
	Request          string                  `json:"request"`
	Language         string                  `json:"language"`
	Status           lesson.Status           `json:"status"`
	GeneratingStatus lesson.GeneratingStatus `json:"generating_status"`
	ActiveContentID  string                  `json:"active_content_id,omitempty"`
	Units            []UnitView              `json:"units"`
	LastAccessedAt   time.Time               `json:"last_accessed_at"`
	CreatedAt        time.Time               `json:"created_at"`
}

// LessonHandler serves the lesson read side.
type LessonHandler struct {
	lessons lesson.Repository
	log     *logger.Logger
}

// NewLessonHandler creates a new LessonHandler.
func NewLessonHandler(lessons lesson.Repository, log *logger.Logger) *LessonHandler {
	if log == nil {
		log = logger.Default()
	}
	return &LessonHandler{
		lessons: lessons,
		log:     log.With(logger.Component("lesson_query")),
	}
}

// Get returns one owned lesson. Callers poll this while the generating
// status is in progress.
func (h *LessonHandler) Get(ctx context.Context, q GetLessonQuery) (*LessonView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	les, err := h.lessons.GetByID(ctx, q.LessonID)
	if err != nil {
		return nil, err
	}
	if les.UserID != q.UserID {
		return nil, shared.ErrLessonNotOwned
	}
	return toLessonView(les), nil
}

// ListByUser returns the user's lessons, most recently accessed first.
func (h *LessonHandler) ListByUser(ctx context.Context, userID string) ([]*LessonView, error) {
	if userID == "" {
		return nil, shared.NewDomainError("lesson", "List", shared.ErrEmptyValue, "user_id is required")
	}

	lessons, err := h.lessons.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]*LessonView, 0, len(lessons))
	for _, l := range lessons {
		views = append(views, toLessonView(l))
	}
	return views, nil
}

func toLessonView(l *lesson.Lesson) *LessonView {
	view := &LessonView{
		ID:               l.ID,
		Title:            l.Title,
		Request:          l.Request,
		Language:         l.Language.String(),
		Status:           l.Status,
		GeneratingStatus: l.GeneratingStatus,
		Units:            make([]UnitView, 0, len(l.Units)),
		LastAccessedAt:   l.LastAccessedAt,
		CreatedAt:        l.CreatedAt,
	}
	if active := l.ActiveUnit(); active != nil {
		view.ActiveContentID = active.ID
	}
	for _, u := range l.Units {
		view.Units = append(view.Units, UnitView{
			ID:               u.ID,
			SequenceNumber:   u.SequenceNumber,
			Title:            u.Title,
			Body:             u.Body,
			CompletionStatus: u.CompletionStatus,
			CurrentProgress:  u.CurrentProgress,
		})
	}
	return view
}

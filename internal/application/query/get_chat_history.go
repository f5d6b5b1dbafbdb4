package query

import (
	"context"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHAT HISTORY QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ChatHistoryQuery requests the conversation for one content unit.
type ChatHistoryQuery struct {
	UserID    string
	LessonID  string
	ContentID string
}

// Validate validates the query.
func (q ChatHistoryQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("lesson", "GetHistory", shared.ErrEmptyValue, "user_id is required")
	}
	if q.LessonID == "" {
		return shared.NewDomainError("lesson", "GetHistory", shared.ErrEmptyValue, "lesson_id is required")
	}
	if q.ContentID == "" {
		return shared.NewDomainError("lesson", "GetHistory", shared.ErrEmptyValue, "content_id is required")
	}
	return nil
}

// ChatTurnView is one turn as presented to the learner.
type ChatTurnView struct {
	ID        string       `json:"id"`
	Agent     lesson.Agent `json:"agent"`
	Text      string       `json:"text"`
	CreatedAt time.Time    `json:"created_at"`
}

// ChatHistoryHandler handles the ChatHistoryQuery.
type ChatHistoryHandler struct {
	lessons lesson.Repository
	chats   lesson.ChatRepository
	log     *logger.Logger
}

// NewChatHistoryHandler creates a new ChatHistoryHandler.
func NewChatHistoryHandler(lessons lesson.Repository, chats lesson.ChatRepository, log *logger.Logger) *ChatHistoryHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ChatHistoryHandler{
		lessons: lessons,
		chats:   chats,
		log:     log.With(logger.Component("chat_history")),
	}
}

// Handle returns the full conversation for (user, unit) in chronological
// order, after verifying ownership and that the unit belongs to the lesson.
func (h *ChatHistoryHandler) Handle(ctx context.Context, q ChatHistoryQuery) ([]ChatTurnView, error) {
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
	if _, err := les.UnitByID(q.ContentID); err != nil {
		return nil, err
	}

	turns, err := h.chats.History(ctx, q.UserID, q.ContentID)
	if err != nil {
		return nil, err
	}

	views := make([]ChatTurnView, 0, len(turns))
	for _, t := range turns {
		views = append(views, ChatTurnView{
			ID:        t.ID,
			Agent:     t.Agent,
			Text:      t.Text,
			CreatedAt: t.CreatedAt,
		})
	}
	return views, nil
}

package command

import (
	"context"
	"strings"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE LESSON COMMAND
// Creates the lesson shell and hands it to the background generation job.
// The caller gets the lesson ID back immediately; generation progress is
// observable through the persisted generating status.
// ══════════════════════════════════════════════════════════════════════════════

// maxRequestLength bounds the learner's free-text generation request.
const maxRequestLength = 2000

// GenerationDispatcher enqueues a lesson for background content generation.
// Implementations live in infrastructure/jobs.
type GenerationDispatcher interface {
	// Dispatch schedules generation for the lesson. Must not block on the
	// generation itself.
	Dispatch(lessonID string) error
}

// GenerateLessonCommand contains one lesson-generation request.
type GenerateLessonCommand struct {
	UserID string

	// Request is the learner's free-text description of what to learn.
	Request string

	// Language is the target language. Empty means the default.
	Language string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c GenerateLessonCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("lesson", "Generate", shared.ErrEmptyValue, "user_id is required")
	}
	if strings.TrimSpace(c.Request) == "" {
		return shared.NewDomainError("lesson", "Generate", shared.ErrEmptyValue, "request is required")
	}
	if len(c.Request) > maxRequestLength {
		return shared.NewDomainError("lesson", "Generate", shared.ErrValueOutOfRange, "request is too long")
	}
	return nil
}

// GenerateLessonResult is the immediate acknowledgement.
type GenerateLessonResult struct {
	LessonID         string
	GeneratingStatus lesson.GeneratingStatus
}

// GenerateLessonHandler handles the GenerateLessonCommand.
type GenerateLessonHandler struct {
	users      user.Repository
	lessons    lesson.Repository
	dispatcher GenerationDispatcher
	log        *logger.Logger
}

// NewGenerateLessonHandler creates a new GenerateLessonHandler.
func NewGenerateLessonHandler(
	users user.Repository,
	lessons lesson.Repository,
	dispatcher GenerationDispatcher,
	log *logger.Logger,
) *GenerateLessonHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GenerateLessonHandler{
		users:      users,
		lessons:    lessons,
		dispatcher: dispatcher,
		log:        log.With(logger.Component("generate_lesson")),
	}
}

// Handle persists the shell with generation already marked in progress,
// then dispatches the job. A dispatch failure is recorded on the lesson as
// a failed generation so the learner never polls a shell that nobody is
// working on.
func (h *GenerateLessonHandler) Handle(ctx context.Context, cmd GenerateLessonCommand) (*GenerateLessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if _, err := h.users.GetByID(ctx, cmd.UserID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	les := lesson.New(cmd.UserID, strings.TrimSpace(cmd.Request), shared.LanguageCode(cmd.Language))
	if err := les.BeginGeneration(now); err != nil {
		return nil, err
	}

	if err := h.lessons.Create(ctx, les); err != nil {
		return nil, err
	}

	if err := h.dispatcher.Dispatch(les.ID); err != nil {
		h.log.Error("failed to dispatch generation job", logger.Err(err), logger.LessonID(les.ID))
		les.MarkGenerationFailed(time.Now().UTC())
		if updateErr := h.lessons.Update(ctx, les); updateErr != nil {
			h.log.Error("failed to record generation failure", logger.Err(updateErr), logger.LessonID(les.ID))
		}
		return nil, shared.WrapError("lesson", "Generate", shared.ErrServiceUnavailable,
			"generation job could not be scheduled", err)
	}

	h.log.Info("lesson generation dispatched", logger.UserID(cmd.UserID), logger.LessonID(les.ID))

	return &GenerateLessonResult{
		LessonID:         les.ID,
		GeneratingStatus: les.GeneratingStatus,
	}, nil
}

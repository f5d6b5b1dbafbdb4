package command

import (
	"context"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGENERATE LESSON COMMAND
// Re-runs content generation for a lesson whose previous attempt failed.
// The original request text and language are reused.
// ══════════════════════════════════════════════════════════════════════════════

// RegenerateLessonCommand retries generation for one failed lesson.
type RegenerateLessonCommand struct {
	UserID   string
	LessonID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RegenerateLessonCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("lesson", "Regenerate", shared.ErrEmptyValue, "user_id is required")
	}
	if c.LessonID == "" {
		return shared.NewDomainError("lesson", "Regenerate", shared.ErrEmptyValue, "lesson_id is required")
	}
	return nil
}

// RegenerateLessonResult is the immediate acknowledgement.
type RegenerateLessonResult struct {
	LessonID         string
	GeneratingStatus lesson.GeneratingStatus
}

// RegenerateLessonHandler handles the RegenerateLessonCommand.
type RegenerateLessonHandler struct {
	lessons    lesson.Repository
	dispatcher GenerationDispatcher
	log        *logger.Logger
}

// NewRegenerateLessonHandler creates a new RegenerateLessonHandler.
func NewRegenerateLessonHandler(
	lessons lesson.Repository,
	dispatcher GenerationDispatcher,
	log *logger.Logger,
) *RegenerateLessonHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RegenerateLessonHandler{
		lessons:    lessons,
		dispatcher: dispatcher,
		log:        log.With(logger.Component("regenerate_lesson")),
	}
}

// Handle flips a failed lesson back to generating and re-dispatches the job.
// Lessons that already have content, or whose generation is still running,
// are rejected: regeneration exists to recover from failures, not to replace
// content the learner may have started working through.
func (h *RegenerateLessonHandler) Handle(ctx context.Context, cmd RegenerateLessonCommand) (*RegenerateLessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	les, err := h.lessons.GetByID(ctx, cmd.LessonID)
	if err != nil {
		return nil, err
	}
	if les.UserID != cmd.UserID {
		return nil, shared.ErrLessonNotOwned
	}
	if les.GeneratingStatus != lesson.GeneratingFailed {
		return nil, shared.NewDomainError("lesson", "Regenerate", shared.ErrInvalidState,
			"only failed generations can be retried")
	}

	if err := les.BeginGeneration(time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := h.lessons.Update(ctx, les); err != nil {
		return nil, err
	}

	if err := h.dispatcher.Dispatch(les.ID); err != nil {
		h.log.Error("failed to dispatch regeneration job", logger.Err(err), logger.LessonID(les.ID))
		les.MarkGenerationFailed(time.Now().UTC())
		if updateErr := h.lessons.Update(ctx, les); updateErr != nil {
			h.log.Error("failed to record regeneration failure", logger.Err(updateErr), logger.LessonID(les.ID))
		}
		return nil, shared.WrapError("lesson", "Regenerate", shared.ErrServiceUnavailable,
			"generation job could not be scheduled", err)
	}

	h.log.Info("lesson regeneration dispatched", logger.UserID(cmd.UserID), logger.LessonID(les.ID))

	return &RegenerateLessonResult{
		LessonID:         les.ID,
		GeneratingStatus: les.GeneratingStatus,
	}, nil
}

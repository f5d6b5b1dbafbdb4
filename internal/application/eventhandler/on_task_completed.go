// Package eventhandler contains the domain event subscribers.
package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON TASK COMPLETED HANDLER
// Projects each award into the user's activity feed so the client can show
// a "recent achievements" timeline without touching the write model.
// ══════════════════════════════════════════════════════════════════════════════

// ActivityEntry is one row of a user's activity feed.
type ActivityEntry struct {
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	Points     int       `json:"points,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ActivityRecorder appends feed entries. Implementations live in
// infrastructure/cache.
type ActivityRecorder interface {
	Record(ctx context.Context, userID string, entry ActivityEntry) error
}

// TaskCompletedConfig configures the handler.
type TaskCompletedConfig struct {
	// RecordActivity controls whether awards land in the feed.
	RecordActivity bool
}

// DefaultTaskCompletedConfig returns the default configuration.
func DefaultTaskCompletedConfig() TaskCompletedConfig {
	return TaskCompletedConfig{RecordActivity: true}
}

// OnTaskCompletedHandler handles shared.TaskCompletedEvent.
type OnTaskCompletedHandler struct {
	feed   ActivityRecorder
	log    *logger.Logger
	config TaskCompletedConfig
}

// NewOnTaskCompletedHandler creates a new OnTaskCompletedHandler.
func NewOnTaskCompletedHandler(feed ActivityRecorder, log *logger.Logger, config TaskCompletedConfig) *OnTaskCompletedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnTaskCompletedHandler{
		feed:   feed,
		log:    log.With(logger.Component("on_task_completed")),
		config: config,
	}
}

// Handle implements shared.EventHandler.
func (h *OnTaskCompletedHandler) Handle(event shared.Event) error {
	taskEvent, ok := event.(shared.TaskCompletedEvent)
	if !ok {
		h.log.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	h.log.Info("task completed",
		logger.UserID(taskEvent.AggregateID()),
		logger.TaskID(taskEvent.TaskID),
		logger.Category(taskEvent.Category),
		logger.Points(taskEvent.PointsAwarded))

	if h.feed == nil || !h.config.RecordActivity {
		return nil
	}

	entry := ActivityEntry{
		Kind:       "task_completed",
		Message:    fmt.Sprintf("Completed %s (+%d points)", taskEvent.TaskID, taskEvent.PointsAwarded),
		Points:     taskEvent.PointsAwarded,
		OccurredAt: taskEvent.OccurredAt(),
	}
	if err := h.feed.Record(context.Background(), taskEvent.AggregateID(), entry); err != nil {
		// Feed projection is best-effort; the award itself is durable.
		h.log.Warn("failed to record activity", logger.Err(err), logger.UserID(taskEvent.AggregateID()))
	}
	return nil
}

// EventType returns the event type this handler subscribes to.
func (h *OnTaskCompletedHandler) EventType() shared.EventType {
	return shared.EventTaskCompleted
}

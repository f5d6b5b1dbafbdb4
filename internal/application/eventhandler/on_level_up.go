package eventhandler

import (
	"context"
	"fmt"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// OnLevelUpHandler handles shared.LevelUpEvent, projecting level changes
// into the activity feed.
type OnLevelUpHandler struct {
	feed ActivityRecorder
	log  *logger.Logger
}

// NewOnLevelUpHandler creates a new OnLevelUpHandler.
func NewOnLevelUpHandler(feed ActivityRecorder, log *logger.Logger) *OnLevelUpHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnLevelUpHandler{
		feed: feed,
		log:  log.With(logger.Component("on_level_up")),
	}
}

// Handle implements shared.EventHandler.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	levelEvent, ok := event.(shared.LevelUpEvent)
	if !ok {
		h.log.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	h.log.Info("level up",
		logger.UserID(levelEvent.AggregateID()),
		logger.Int("old_level", levelEvent.OldLevel),
		logger.Int("new_level", levelEvent.NewLevel),
		logger.Points(levelEvent.TotalPoints))

	if h.feed == nil {
		return nil
	}

	entry := ActivityEntry{
		Kind:       "level_up",
		Message:    fmt.Sprintf("Reached level %d", levelEvent.NewLevel),
		OccurredAt: levelEvent.OccurredAt(),
	}
	if err := h.feed.Record(context.Background(), levelEvent.AggregateID(), entry); err != nil {
		h.log.Warn("failed to record activity", logger.Err(err), logger.UserID(levelEvent.AggregateID()))
	}
	return nil
}

// EventType returns the event type this handler subscribes to.
func (h *OnLevelUpHandler) EventType() shared.EventType {
	return shared.EventLevelUp
}

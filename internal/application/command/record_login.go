package command

import (
	"context"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD LOGIN COMMAND
// Applies the streak rules for one login and feeds qualifying days into the
// STREAK task category.
// ══════════════════════════════════════════════════════════════════════════════

// RecordLoginCommand marks one login occurrence for a user.
type RecordLoginCommand struct {
	UserID string

	// At is the login instant. Zero means time.Now().
	At time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordLoginCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("user", "RecordLogin", shared.ErrEmptyValue, "user_id is required")
	}
	return nil
}

// RecordLoginResult contains the streak state after the login.
type RecordLoginResult struct {
	UserID string
	Streak int

	Started  bool
	Extended bool
	Broken   bool
}

// RecordLoginHandler handles the RecordLoginCommand.
type RecordLoginHandler struct {
	users     user.Repository
	increment *IncrementProgressHandler
	events    shared.EventPublisher
	log       *logger.Logger
}

// NewRecordLoginHandler creates a new RecordLoginHandler.
func NewRecordLoginHandler(
	users user.Repository,
	increment *IncrementProgressHandler,
	events shared.EventPublisher,
	log *logger.Logger,
) *RecordLoginHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RecordLoginHandler{
		users:     users,
		increment: increment,
		events:    events,
		log:       log.With(logger.Component("record_login")),
	}
}

// Handle applies the login to the streak under the same optimistic loop as
// every other user-aggregate write. Same-calendar-day logins advance
// LastLoginAt without touching the streak or the STREAK tasks.
func (h *RecordLoginHandler) Handle(ctx context.Context, cmd RecordLoginCommand) (*RecordLoginResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	at := cmd.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var change user.StreakChange
	var lastErr error
	saved := false
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		u, err := h.users.GetByID(ctx, cmd.UserID)
		if err != nil {
			return nil, err
		}

		change = u.RecordLogin(at)

		if err := h.users.Update(ctx, u); err != nil {
			if shared.IsConflict(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		saved = true
		break
	}
	if !saved {
		return nil, shared.WrapError("user", "RecordLogin", shared.ErrConcurrentModification,
			"user aggregate contention not resolved after retries", lastErr)
	}

	h.publishStreak(cmd.UserID, change)

	// Every qualifying day counts once toward the STREAK tasks. A break
	// still qualifies: the login that broke the streak also restarted it.
	if h.increment != nil && (change.Started || change.Extended || change.Broken) {
		if _, err := h.increment.Handle(ctx, IncrementProgressCommand{
			UserID:        cmd.UserID,
			Category:      task.CategoryStreak,
			CorrelationID: cmd.CorrelationID,
		}); err != nil {
			h.log.Error("failed to increment streak progress", logger.Err(err), logger.UserID(cmd.UserID))
		}
	}

	return &RecordLoginResult{
		UserID:   cmd.UserID,
		Streak:   change.Streak,
		Started:  change.Started,
		Extended: change.Extended,
		Broken:   change.Broken,
	}, nil
}

// publishStreak emits streak transition events, best-effort.
func (h *RecordLoginHandler) publishStreak(userID string, change user.StreakChange) {
	if h.events == nil {
		return
	}
	if change.Broken {
		if err := h.events.Publish(shared.NewStreakBrokenEvent(userID, change.Previous)); err != nil {
			h.log.Warn("failed to publish streak broken event", logger.Err(err), logger.UserID(userID))
		}
	}
	if change.Started || change.Extended {
		if err := h.events.Publish(shared.NewStreakExtendedEvent(userID, change.Streak)); err != nil {
			h.log.Warn("failed to publish streak extended event", logger.Err(err), logger.UserID(userID))
		}
	}
}

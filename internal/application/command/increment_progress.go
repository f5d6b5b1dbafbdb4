// Package command contains write operations (CQRS - Commands).
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
// INCREMENT PROGRESS COMMAND
// Advances every currently-available task of a category for one user,
// awarding points exactly once per task at the threshold-crossing edge.
// ══════════════════════════════════════════════════════════════════════════════

// maxConflictRetries bounds the optimistic-concurrency retry loop on the
// user aggregate.
const maxConflictRetries = 5

// IncrementProgressCommand contains the data for one increment.
type IncrementProgressCommand struct {
	// UserID is the internal ID of the user.
	UserID string

	// Category is the task category this engine event belongs to.
	Category task.Category

	// Amount is the increment size. Zero means the default of 1.
	Amount int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c IncrementProgressCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("task", "IncrementProgress", shared.ErrEmptyValue, "user_id is required")
	}
	if !c.Category.IsValid() {
		return shared.ErrInvalidCategory
	}
	if c.Amount < 0 {
		return shared.ErrInvalidAmount
	}
	return nil
}

// IncrementProgressResult contains the outcome of one increment.
type IncrementProgressResult struct {
	UserID   string
	Category task.Category

	// Updates holds one entry per task definition that was incremented.
	Updates []user.ProgressUpdate

	// NewlyCompleted lists task IDs that crossed the completion edge in
	// this call.
	NewlyCompleted []string

	// PointsAwarded is the sum of points granted in this call.
	PointsAwarded int

	TotalPoints int
	Level       int
	LeveledUp   bool
}

// ProgressCacheInvalidator drops a user's cached task-progress report
// after an award changes it.
type ProgressCacheInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// IncrementProgressHandler handles the IncrementProgressCommand.
type IncrementProgressHandler struct {
	users  user.Repository
	tasks  task.Repository
	events shared.EventPublisher
	cache  ProgressCacheInvalidator
	log    *logger.Logger
}

// NewIncrementProgressHandler creates a new IncrementProgressHandler.
// cache may be nil when no report cache is configured.
func NewIncrementProgressHandler(
	users user.Repository,
	tasks task.Repository,
	events shared.EventPublisher,
	cache ProgressCacheInvalidator,
	log *logger.Logger,
) *IncrementProgressHandler {
	if log == nil {
		log = logger.Default()
	}
	return &IncrementProgressHandler{
		users:  users,
		tasks:  tasks,
		events: events,
		cache:  cache,
		log:    log.With(logger.Component("increment_progress")),
	}
}

// Handle executes the increment. The whole read-modify-write cycle runs
// under an optimistic-concurrency loop: when another writer bumps the user
// aggregate between our load and our save, the repository reports
// shared.ErrOptimisticLock and the cycle restarts from a fresh load. The
// edge check therefore never observes a stale count.
func (h *IncrementProgressHandler) Handle(ctx context.Context, cmd IncrementProgressCommand) (*IncrementProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	amount := cmd.Amount
	if amount == 0 {
		amount = 1
	}

	defs, err := h.tasks.GetByCategory(ctx, cmd.Category)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		u, err := h.users.GetByID(ctx, cmd.UserID)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		available := task.FilterAvailable(u.CompletedTaskIDs(), defs)

		result := &IncrementProgressResult{
			UserID:   cmd.UserID,
			Category: cmd.Category,
		}
		oldLevel := u.Level

		for _, def := range available {
			upd, err := u.ApplyProgress(def, amount, now)
			if err != nil {
				return nil, err
			}
			result.Updates = append(result.Updates, upd)
			if upd.NewlyCompleted {
				result.NewlyCompleted = append(result.NewlyCompleted, def.ID)
				result.PointsAwarded += upd.PointsAwarded
			}
		}

		if err := h.users.Update(ctx, u); err != nil {
			if shared.IsConflict(err) {
				lastErr = err
				continue
			}
			return nil, err
		}

		result.TotalPoints = u.TotalPoints
		result.Level = u.Level
		result.LeveledUp = u.Level > oldLevel

		h.publishOutcome(ctx, u, cmd, result, oldLevel)
		return result, nil
	}

	return nil, shared.WrapError("task", "IncrementProgress", shared.ErrConcurrentModification,
		"user aggregate contention not resolved after retries", lastErr)
}

// publishOutcome emits domain events and drops stale cache entries.
// Both are best-effort: the award itself is already durable.
func (h *IncrementProgressHandler) publishOutcome(
	ctx context.Context,
	u *user.User,
	cmd IncrementProgressCommand,
	result *IncrementProgressResult,
	oldLevel int,
) {
	if len(result.NewlyCompleted) == 0 {
		return
	}

	if h.events != nil {
		for _, upd := range result.Updates {
			if !upd.NewlyCompleted {
				continue
			}
			event := shared.NewTaskCompletedEvent(u.ID, upd.TaskID, cmd.Category.String(), upd.PointsAwarded, u.TotalPoints)
			if err := h.events.Publish(event); err != nil {
				h.log.Warn("failed to publish task completed event", logger.Err(err), logger.TaskID(upd.TaskID))
			}
		}
		if result.LeveledUp {
			if err := h.events.Publish(shared.NewLevelUpEvent(u.ID, oldLevel, u.Level, u.TotalPoints)); err != nil {
				h.log.Warn("failed to publish level up event", logger.Err(err), logger.UserID(u.ID))
			}
		}
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, u.ID); err != nil {
			h.log.Warn("failed to invalidate progress cache", logger.Err(err), logger.UserID(u.ID))
		}
	}
}

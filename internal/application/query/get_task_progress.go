// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK PROGRESS REPORT QUERY
// ══════════════════════════════════════════════════════════════════════════════

// TaskProgressQuery requests the per-category progress report for a user.
type TaskProgressQuery struct {
	UserID string
}

// Validate validates the query.
func (q TaskProgressQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("task", "GetProgress", shared.ErrEmptyValue, "user_id is required")
	}
	return nil
}

// CategoryProgress summarizes one task category for a user.
type CategoryProgress struct {
	// Completed is how many tasks of the category the user has finished.
	Completed int `json:"completed"`

	// Required is the total number of tasks in the category at the user's
	// current level.
	Required int `json:"required"`

	// RemainingCount is the sum of qualifying events still needed across
	// the category's unfinished tasks.
	RemainingCount int `json:"remaining_count"`

	// PotentialPoints is the sum of points still earnable in the category.
	PotentialPoints int `json:"potential_points"`
}

// TaskProgressReport is the full gamification snapshot for a user.
type TaskProgressReport struct {
	UserID string `json:"user_id"`

	TotalPoints     int `json:"total_points"`
	Level           int `json:"level"`
	NextLevelPoints int `json:"next_level_points"`
	LoginStreak     int `json:"login_streak"`

	Lesson  CategoryProgress `json:"lesson"`
	Content CategoryProgress `json:"content"`
	Streak  CategoryProgress `json:"streak"`
}

// ProgressReportCache caches assembled reports. A nil report with a nil
// error is a miss. Implementations live in infrastructure/cache.
type ProgressReportCache interface {
	Get(ctx context.Context, userID string) (*TaskProgressReport, error)
	Set(ctx context.Context, userID string, report *TaskProgressReport) error
}

// TaskProgressHandler handles the TaskProgressQuery.
type TaskProgressHandler struct {
	users user.Repository
	tasks task.Repository
	cache ProgressReportCache
	log   *logger.Logger
}

// NewTaskProgressHandler creates a new TaskProgressHandler.
// cache may be nil.
func NewTaskProgressHandler(users user.Repository, tasks task.Repository, cache ProgressReportCache, log *logger.Logger) *TaskProgressHandler {
	if log == nil {
		log = logger.Default()
	}
	return &TaskProgressHandler{
		users: users,
		tasks: tasks,
		cache: cache,
		log:   log.With(logger.Component("task_progress")),
	}
}

// Handle assembles the report, cache-aside. Cache failures degrade to a
// direct read; they are never surfaced.
func (h *TaskProgressHandler) Handle(ctx context.Context, q TaskProgressQuery) (*TaskProgressReport, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		report, err := h.cache.Get(ctx, q.UserID)
		if err != nil {
			h.log.Warn("progress cache read failed", logger.Err(err), logger.UserID(q.UserID))
		} else if report != nil {
			return report, nil
		}
	}

	u, err := h.users.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	defs, err := h.tasks.GetByLevel(ctx, u.Level)
	if err != nil {
		return nil, err
	}

	report := buildReport(u, defs)

	if h.cache != nil {
		if err := h.cache.Set(ctx, q.UserID, report); err != nil {
			h.log.Warn("progress cache write failed", logger.Err(err), logger.UserID(q.UserID))
		}
	}
	return report, nil
}

// buildReport aggregates defs, which the caller has already scoped to the
// user's current level, into per-category buckets.
func buildReport(u *user.User, defs []task.Definition) *TaskProgressReport {
	report := &TaskProgressReport{
		UserID:          u.ID,
		TotalPoints:     u.TotalPoints,
		Level:           u.Level,
		NextLevelPoints: user.NextLevelPoints(u.TotalPoints),
		LoginStreak:     u.LoginStreak,
	}

	for _, def := range defs {
		var bucket *CategoryProgress
		switch def.Category {
		case task.CategoryLesson:
			bucket = &report.Lesson
		case task.CategoryContent:
			bucket = &report.Content
		case task.CategoryStreak:
			bucket = &report.Streak
		default:
			continue
		}

		bucket.Required++

		entry := u.Progress[def.ID]
		if entry != nil && entry.Completed() {
			bucket.Completed++
			continue
		}

		remaining := def.RequiredCount
		if entry != nil {
			remaining = entry.Remaining()
		}
		bucket.RemainingCount += remaining
		bucket.PotentialPoints += def.Points
	}

	return report
}

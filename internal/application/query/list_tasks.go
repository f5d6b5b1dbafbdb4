package query

import (
	"context"
	"sort"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK LISTING QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ListTasksQuery requests a user's task listing.
type ListTasksQuery struct {
	UserID string
}

// Validate validates the query.
func (q ListTasksQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("task", "List", shared.ErrEmptyValue, "user_id is required")
	}
	return nil
}

// TaskView is one task as presented to the learner, with the user's own
// counter folded in.
type TaskView struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Category      task.Category `json:"category"`
	Level         int           `json:"level"`
	Points        int           `json:"points"`
	RequiredCount int           `json:"required_count"`

	Count       int        `json:"count"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListTasksHandler serves both the available and completed task listings.
type ListTasksHandler struct {
	users user.Repository
	tasks task.Repository
	log   *logger.Logger
}

// NewListTasksHandler creates a new ListTasksHandler.
func NewListTasksHandler(users user.Repository, tasks task.Repository, log *logger.Logger) *ListTasksHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ListTasksHandler{
		users: users,
		tasks: tasks,
		log:   log.With(logger.Component("list_tasks")),
	}
}

// Available returns the tasks the user can currently work toward: gated at
// the user's current level exactly, prerequisites completed, not yet
// completed. Sorted by order. Prerequisites may live at any level; only
// the listing itself is level-scoped.
func (h *ListTasksHandler) Available(ctx context.Context, q ListTasksQuery) ([]TaskView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	u, err := h.users.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	defs, err := h.tasks.GetByLevel(ctx, u.Level)
	if err != nil {
		return nil, err
	}

	completed := u.CompletedTaskIDs()
	views := make([]TaskView, 0, len(defs))
	for _, def := range defs {
		if completed.Contains(def.ID) {
			continue
		}
		if !task.IsAvailable(completed, def) {
			continue
		}
		views = append(views, toView(def, u.Progress[def.ID]))
	}
	return views, nil
}

// Completed returns the tasks the user has finished, most points first.
func (h *ListTasksHandler) Completed(ctx context.Context, q ListTasksQuery) ([]TaskView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	u, defs, err := h.load(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	completed := u.CompletedTaskIDs()
	views := make([]TaskView, 0, len(completed))
	for _, def := range defs {
		if !completed.Contains(def.ID) {
			continue
		}
		views = append(views, toView(def, u.Progress[def.ID]))
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].Points > views[j].Points })
	return views, nil
}

func (h *ListTasksHandler) load(ctx context.Context, userID string) (*user.User, []task.Definition, error) {
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	defs, err := h.tasks.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	return u, defs, nil
}

func toView(def task.Definition, entry *user.TaskProgress) TaskView {
	view := TaskView{
		ID:            def.ID,
		Title:         def.Title,
		Description:   def.Description,
		Category:      def.Category,
		Level:         def.Level,
		Points:        def.Points,
		RequiredCount: def.RequiredCount,
	}
	if entry != nil {
		view.Count = entry.Count
		view.Completed = entry.Completed()
		view.CompletedAt = entry.CompletedAt
	}
	return view
}

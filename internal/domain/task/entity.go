// Package task contains the gamification task catalog: immutable task
// definitions with categories, reward points, required counts, and a
// prerequisite graph. The catalog is read-only to the engine; per-user
// progress against it lives on the user aggregate.
package task

import (
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
)

// Category classifies which engine events increment a task.
type Category string

const (
	// CategoryLesson tasks advance when a lesson is completed.
	CategoryLesson Category = "LESSON"

	// CategoryContent tasks advance on every judged interaction with a
	// content unit.
	CategoryContent Category = "CONTENT"

	// CategoryStreak tasks advance on every successful login.
	CategoryStreak Category = "STREAK"
)

// IsValid checks that the category is one of the known values.
func (c Category) IsValid() bool {
	switch c {
	case CategoryLesson, CategoryContent, CategoryStreak:
		return true
	}
	return false
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// Definition describes a single gamification task. Definitions are
// immutable after creation except by administrative edit.
type Definition struct {
	// ID uniquely identifies the task (stable slug, e.g. "content-novice").
	ID string

	// Title is the human-readable task name.
	Title string

	// Description explains what the learner has to do.
	Description string

	// Category determines which engine events increment this task.
	Category Category

	// Level is the gating tier: the task appears in availability listings
	// only for users at this level.
	Level int

	// Order is the tie-break for display within a level.
	Order int

	// Points is the reward granted exactly once, when Count first reaches
	// RequiredCount.
	Points int

	// RequiredCount is the number of qualifying events needed (>= 1).
	RequiredCount int

	// Prerequisites lists task IDs that must be completed before this task
	// becomes available. Empty means always available.
	Prerequisites []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the definition's internal consistency.
func (d Definition) Validate() error {
	if d.ID == "" {
		return shared.NewDomainError("task", "Validate", shared.ErrEmptyValue, "task ID is required")
	}
	if !d.Category.IsValid() {
		return shared.ErrInvalidCategory
	}
	if d.Points < 0 {
		return shared.NewDomainError("task", "Validate", shared.ErrNegativeValue, "points cannot be negative")
	}
	if d.RequiredCount < 1 {
		return shared.NewDomainError("task", "Validate", shared.ErrValueOutOfRange, "required count must be at least 1")
	}
	if d.Level < 1 {
		return shared.NewDomainError("task", "Validate", shared.ErrValueOutOfRange, "level must be at least 1")
	}
	for _, p := range d.Prerequisites {
		if p == d.ID {
			return shared.NewDomainError("task", "Validate", shared.ErrInvalidEntity, "task cannot be its own prerequisite")
		}
	}
	return nil
}

package task

import (
	"context"
)

// Repository defines storage operations for the task catalog.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Upsert inserts the definition or updates it in place if the ID exists.
	// Used by idempotent startup seeding.
	Upsert(ctx context.Context, def Definition) error

	// GetByID returns a task definition by ID.
	// Returns shared.ErrTaskNotFound if absent.
	GetByID(ctx context.Context, id string) (Definition, error)

	// GetAll returns every definition ordered by (level, order).
	GetAll(ctx context.Context) ([]Definition, error)

	// GetByCategory returns definitions of one category ordered by (level, order).
	GetByCategory(ctx context.Context, category Category) ([]Definition, error)

	// GetByLevel returns definitions gated at the given level ordered by order.
	GetByLevel(ctx context.Context, level int) ([]Definition, error)
}

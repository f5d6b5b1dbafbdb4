package user

import (
	"context"
)

// Repository defines storage operations for the user aggregate.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create persists a new user.
	// Returns shared.ErrUserAlreadyExists if the email is taken.
	Create(ctx context.Context, u *User) error

	// GetByID loads the full aggregate, including task progress.
	// Returns shared.ErrUserNotFound if absent.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail loads the full aggregate by normalized email.
	// Returns shared.ErrUserNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update persists the aggregate as one atomic unit guarded by the
	// Version field. Returns shared.ErrOptimisticLock when another writer
	// got there first; callers retry the whole read-modify-write cycle.
	Update(ctx context.Context, u *User) error
}

package lesson

import (
	"context"
)

// Repository defines storage operations for lessons and their units.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create persists a new lesson shell (no units yet).
	Create(ctx context.Context, l *Lesson) error

	// GetByID loads a lesson with all its units in sequence order.
	// Returns shared.ErrLessonNotFound if absent.
	GetByID(ctx context.Context, id string) (*Lesson, error)

	// GetByUser lists a user's lessons ordered by last access, newest first.
	GetByUser(ctx context.Context, userID string) ([]*Lesson, error)

	// Update persists lesson-level fields and all unit states.
	Update(ctx context.Context, l *Lesson) error

	// SaveExchange atomically persists the outcome of one judged
	// interaction: lesson fields, the graded unit, and the paired chat
	// turns (user turn strictly before AI turn). All or nothing - a failed
	// exchange leaves no partial rows behind.
	SaveExchange(ctx context.Context, l *Lesson, unit *ContentUnit, userTurn, aiTurn *ChatTurn) error
}

// ChatRepository defines storage operations for conversation turns.
type ChatRepository interface {
	// CountTurns returns how many turns exist for (user, unit). Zero means
	// the unit has never been engaged and the bootstrap message applies.
	CountTurns(ctx context.Context, userID, contentID string) (int, error)

	// RecentTurns returns up to limit turns for (user, unit), most recent
	// first.
	RecentTurns(ctx context.Context, userID, contentID string, limit int) ([]*ChatTurn, error)

	// History returns the full conversation for (user, unit) in
	// chronological order.
	History(ctx context.Context, userID, contentID string) ([]*ChatTurn, error)
}

// Chronological reverses a most-recent-first slice into chronological
// order for presentation to the judge.
func Chronological(turns []*ChatTurn) []*ChatTurn {
	out := make([]*ChatTurn, len(turns))
	for i, t := range turns {
		out[len(turns)-1-i] = t
	}
	return out
}

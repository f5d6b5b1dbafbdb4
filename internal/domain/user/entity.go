// Package user contains the learner aggregate: identity, accumulated
// points, derived level, login streak, and per-task progress counters.
// The aggregate is always loaded and saved as one unit so the
// count-increment/point-award edge check can never race with itself.
package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
)

// PointsPerLevel is the single authoritative conversion rate from points to
// levels. Every PointsPerLevel points is one level above the first.
const PointsPerLevel = 100

// MaxLoginGapHours is the streak gap tolerance: a login more than this many
// hours after the previous one resets the streak to 1.
const MaxLoginGapHours = 36.0

// User is the learner aggregate root.
type User struct {
	// ID is the internal UUID.
	ID string

	// Email is the unique login identifier.
	Email shared.Email

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// DisplayName is shown in bootstrap messages and judge context.
	DisplayName string

	// NativeLanguage is the learner's own language, passed to the AI tutor.
	NativeLanguage shared.LanguageCode

	// TotalPoints is the accumulated gamification points (never negative).
	TotalPoints int

	// Level is derived from TotalPoints via ComputeLevel. Stored for query
	// convenience; recomputed on every award.
	Level int

	// LoginStreak counts consecutive qualifying login days (never negative).
	LoginStreak int

	// LastLoginAt is the timestamp of the most recent login, nil before the
	// first one.
	LastLoginAt *time.Time

	// Progress maps task ID to the user's counter against that task.
	Progress map[string]*TaskProgress

	// Version supports optimistic concurrency control. Incremented by the
	// repository on every successful update.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a user with zeroed progress state.
func New(email shared.Email, passwordHash, displayName string, nativeLanguage shared.LanguageCode) (*User, error) {
	email = email.Normalize()
	if !email.IsValid() {
		return nil, shared.ErrInvalidEmail
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, shared.NewDomainError("user", "Create", shared.ErrEmptyValue, "display name is required")
	}
	if passwordHash == "" {
		return nil, shared.NewDomainError("user", "Create", shared.ErrEmptyValue, "password hash is required")
	}

	now := time.Now().UTC()
	return &User{
		ID:             uuid.NewString(),
		Email:          email,
		PasswordHash:   passwordHash,
		DisplayName:    strings.TrimSpace(displayName),
		NativeLanguage: nativeLanguage.OrDefault(),
		TotalPoints:    0,
		Level:          ComputeLevel(0),
		LoginStreak:    0,
		Progress:       make(map[string]*TaskProgress),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ComputeLevel derives the level from accumulated points. Pure and
// monotonically non-decreasing in totalPoints; level 1 is the floor.
func ComputeLevel(totalPoints int) int {
	if totalPoints < 0 {
		return 1
	}
	return totalPoints/PointsPerLevel + 1
}

// NextLevelPoints returns the total points needed to reach the next level.
func NextLevelPoints(totalPoints int) int {
	return ComputeLevel(totalPoints) * PointsPerLevel
}

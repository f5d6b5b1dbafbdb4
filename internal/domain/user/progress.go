package user

import (
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
	"github.com/lingoquest/lingoquest-backend/pkg/timeutil"
)

// TaskProgress is the user's counter against one task definition.
// RequiredCount and Points are cached from the definition at creation time
// so progress rows stay meaningful even if the catalog is edited later.
type TaskProgress struct {
	TaskID        string
	Count         int
	RequiredCount int
	Points        int

	// CompletedAt is stamped exactly once, when Count first reaches
	// RequiredCount. Never cleared.
	CompletedAt *time.Time
}

// Completed reports whether the counter has reached the required count.
func (p *TaskProgress) Completed() bool {
	return p.Count >= p.RequiredCount
}

// Remaining returns how many qualifying events are still needed.
func (p *TaskProgress) Remaining() int {
	if p.Completed() {
		return 0
	}
	return p.RequiredCount - p.Count
}

// ProgressUpdate describes the outcome of one ApplyProgress call.
type ProgressUpdate struct {
	TaskID         string
	Count          int
	NewlyCompleted bool
	PointsAwarded  int
	OldLevel       int
	NewLevel       int
}

// LeveledUp reports whether this update pushed the user to a higher level.
func (u ProgressUpdate) LeveledUp() bool {
	return u.NewLevel > u.OldLevel
}

// ApplyProgress increments the user's counter for the given task definition,
// creating the progress entry on first touch. The award is edge-triggered:
// points are granted exactly once, at the increment where the count first
// crosses the required count. Re-incrementing an already-completed task
// keeps the count rising but never re-awards.
func (u *User) ApplyProgress(def task.Definition, amount int, now time.Time) (ProgressUpdate, error) {
	if amount <= 0 {
		return ProgressUpdate{}, shared.ErrInvalidAmount
	}

	entry, ok := u.Progress[def.ID]
	if !ok {
		entry = &TaskProgress{
			TaskID:        def.ID,
			RequiredCount: def.RequiredCount,
			Points:        def.Points,
		}
		if u.Progress == nil {
			u.Progress = make(map[string]*TaskProgress)
		}
		u.Progress[def.ID] = entry
	}

	oldCount := entry.Count
	entry.Count += amount

	update := ProgressUpdate{
		TaskID:   def.ID,
		Count:    entry.Count,
		OldLevel: u.Level,
		NewLevel: u.Level,
	}

	if oldCount < entry.RequiredCount && entry.Count >= entry.RequiredCount {
		update.NewlyCompleted = true
		update.PointsAwarded = entry.Points

		completedAt := now
		entry.CompletedAt = &completedAt

		u.TotalPoints += entry.Points
		u.Level = ComputeLevel(u.TotalPoints)
		update.NewLevel = u.Level
	}

	u.UpdatedAt = now
	return update, nil
}

// CompletedTaskIDs returns the set of fully completed task IDs, the input
// for prerequisite resolution.
func (u *User) CompletedTaskIDs() task.CompletedSet {
	set := make(task.CompletedSet, len(u.Progress))
	for id, p := range u.Progress {
		if p.Completed() {
			set[id] = true
		}
	}
	return set
}

// StreakChange describes how a login affected the streak.
type StreakChange struct {
	// Started is true on the very first login.
	Started bool

	// Extended is true when the login landed on a new calendar day within
	// the gap tolerance.
	Extended bool

	// Broken is true when the gap exceeded MaxLoginGapHours.
	Broken bool

	// Previous holds the streak value before a break.
	Previous int

	// Streak is the value after the login.
	Streak int
}

// RecordLogin updates the login streak for a login occurring at now.
// Rules, in order: first-ever login starts the streak at 1; a gap longer
// than MaxLoginGapHours resets to 1; a login on a different calendar day
// within the gap extends by 1; another login on the same day is a no-op
// for the streak. LastLoginAt always advances to now.
func (u *User) RecordLogin(now time.Time) StreakChange {
	change := StreakChange{}

	switch {
	case u.LastLoginAt == nil:
		u.LoginStreak = 1
		change.Started = true

	case timeutil.HoursBetween(*u.LastLoginAt, now) > MaxLoginGapHours:
		change.Broken = true
		change.Previous = u.LoginStreak
		u.LoginStreak = 1

	case !timeutil.SameCalendarDay(*u.LastLoginAt, now):
		u.LoginStreak++
		change.Extended = true
	}

	loginAt := now
	u.LastLoginAt = &loginAt
	u.UpdatedAt = now

	change.Streak = u.LoginStreak
	return change
}

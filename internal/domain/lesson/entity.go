// Package lesson contains the lesson aggregate: an owned, ordered sequence
// of gradable content units plus the append-only conversation attached to
// each unit. Unit completion only ever moves forward; nothing in this
// package regresses a completed unit.
package lesson

import (
	"time"

	"github.com/google/uuid"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
)

// Status is the lesson lifecycle state.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// GeneratingStatus tracks the asynchronous content-generation job.
type GeneratingStatus string

const (
	GeneratingNotStarted GeneratingStatus = "not_started"
	GeneratingInProgress GeneratingStatus = "in_progress"
	GeneratingCompleted  GeneratingStatus = "completed"
	GeneratingFailed     GeneratingStatus = "failed"
)

// CompletionStatus is the per-unit progression state. It only advances
// forward: not_started -> in_progress -> completed.
type CompletionStatus string

const (
	UnitNotStarted CompletionStatus = "not_started"
	UnitInProgress CompletionStatus = "in_progress"
	UnitCompleted  CompletionStatus = "completed"
)

// Lesson is the aggregate root.
type Lesson struct {
	ID     string
	UserID string

	// Title is the generated lesson title, used in bootstrap messages.
	Title string

	// Request is the learner's original generation request, kept for
	// regeneration and judge context.
	Request string

	// Language is the target language of the lesson.
	Language shared.LanguageCode

	Status           Status
	GeneratingStatus GeneratingStatus

	// Units is the ordered content sequence. Sequence numbers are unique
	// and contiguous starting at 1.
	Units []*ContentUnit

	LastAccessedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ContentUnit is one sequenced, gradable segment of a lesson.
type ContentUnit struct {
	ID       string
	LessonID string

	// SequenceNumber is 1-based and contiguous within the lesson.
	SequenceNumber int

	Title string
	Body  string

	CompletionStatus CompletionStatus

	// CurrentProgress is the last completion score reported by the judge
	// (0-100). Pinned at 100 once the unit completes.
	CurrentProgress int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a lesson shell awaiting background generation.
func New(userID, request string, language shared.LanguageCode) *Lesson {
	now := time.Now().UTC()
	return &Lesson{
		ID:               uuid.NewString(),
		UserID:           userID,
		Request:          request,
		Language:         language.OrDefault(),
		Status:           StatusNotStarted,
		GeneratingStatus: GeneratingNotStarted,
		Units:            nil,
		LastAccessedAt:   now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// BeginGeneration marks the background job as running. Returns
// shared.ErrGenerationConflict when a job is already in flight.
func (l *Lesson) BeginGeneration(now time.Time) error {
	if l.GeneratingStatus == GeneratingInProgress {
		return shared.ErrGenerationConflict
	}
	l.GeneratingStatus = GeneratingInProgress
	l.UpdatedAt = now
	return nil
}

// AttachGeneratedContent fills the lesson with generated units and marks
// generation complete. Units receive contiguous 1-based sequence numbers
// in input order.
func (l *Lesson) AttachGeneratedContent(title string, units []GeneratedUnit, now time.Time) {
	l.Title = title
	l.Units = make([]*ContentUnit, 0, len(units))
	for i, gu := range units {
		l.Units = append(l.Units, &ContentUnit{
			ID:               uuid.NewString(),
			LessonID:         l.ID,
			SequenceNumber:   i + 1,
			Title:            gu.Title,
			Body:             gu.Body,
			CompletionStatus: UnitNotStarted,
			CurrentProgress:  0,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	l.GeneratingStatus = GeneratingCompleted
	l.UpdatedAt = now
}

// MarkGenerationFailed records terminal failure of the background job.
// Observable via polling; the lesson stays otherwise untouched.
func (l *Lesson) MarkGenerationFailed(now time.Time) {
	l.GeneratingStatus = GeneratingFailed
	l.UpdatedAt = now
}

// GeneratedUnit is the generator's output for one unit, before it is given
// an identity inside the lesson.
type GeneratedUnit struct {
	Title string
	Body  string
}

// ActiveUnit selects the unit the learner is currently working on: the
// first unit in sequence order whose status is not completed. When every
// unit is completed the last unit is returned, so re-entering a finished
// lesson is idempotent. Returns nil for a lesson without units.
func (l *Lesson) ActiveUnit() *ContentUnit {
	if len(l.Units) == 0 {
		return nil
	}
	for _, u := range l.Units {
		if u.CompletionStatus != UnitCompleted {
			return u
		}
	}
	return l.Units[len(l.Units)-1]
}

// UnitByID finds a unit by its ID.
// Returns shared.ErrContentNotFound if absent.
func (l *Lesson) UnitByID(contentID string) (*ContentUnit, error) {
	for _, u := range l.Units {
		if u.ID == contentID {
			return u, nil
		}
	}
	return nil, shared.ErrContentNotFound
}

// AllUnitsCompleted reports whether every unit has been completed.
func (l *Lesson) AllUnitsCompleted() bool {
	if len(l.Units) == 0 {
		return false
	}
	for _, u := range l.Units {
		if u.CompletionStatus != UnitCompleted {
			return false
		}
	}
	return true
}

// Touch records learner access.
func (l *Lesson) Touch(now time.Time) {
	l.LastAccessedAt = now
	l.UpdatedAt = now
}

// Start flips the lesson into in_progress on first-ever engagement.
// A no-op for lessons already past not_started.
func (l *Lesson) Start(now time.Time) bool {
	if l.Status != StatusNotStarted {
		return false
	}
	l.Status = StatusInProgress
	l.UpdatedAt = now
	return true
}

// CompleteIfFinished flips the lesson to completed once every unit is
// done. Returns true only on the transition, never on re-checks.
func (l *Lesson) CompleteIfFinished(now time.Time) bool {
	if l.Status == StatusCompleted || !l.AllUnitsCompleted() {
		return false
	}
	l.Status = StatusCompleted
	l.UpdatedAt = now
	return true
}

// Ready reports whether the lesson can accept interactions.
func (l *Lesson) Ready() bool {
	return l.GeneratingStatus == GeneratingCompleted && len(l.Units) > 0
}

// ValidateSequence checks that unit sequence numbers are unique and
// contiguous starting at 1.
func (l *Lesson) ValidateSequence() error {
	for i, u := range l.Units {
		if u.SequenceNumber != i+1 {
			return shared.ErrBrokenSequence
		}
	}
	return nil
}

// ApplyScore applies a judge completion score to the unit. A score of 100
// completes the unit; anything lower marks it in progress at that score.
// Completed units never regress, whatever score arrives afterwards.
func (u *ContentUnit) ApplyScore(score int, now time.Time) (completed bool, err error) {
	if score < 0 || score > 100 {
		return false, shared.ErrInvalidScore
	}
	if u.CompletionStatus == UnitCompleted {
		return false, nil
	}

	if score == 100 {
		u.CompletionStatus = UnitCompleted
		u.CurrentProgress = 100
		u.UpdatedAt = now
		return true, nil
	}

	u.CompletionStatus = UnitInProgress
	u.CurrentProgress = score
	u.UpdatedAt = now
	return false, nil
}

package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
)

func failedLesson(t *testing.T, userID string) *lesson.Lesson {
	t.Helper()
	les := lesson.New(userID, "irregular verbs", "de")
	require.NoError(t, les.BeginGeneration(time.Now().UTC()))
	les.MarkGenerationFailed(time.Now().UTC())
	return les
}

func TestRegenerateLesson_RetriesFailedGeneration(t *testing.T) {
	u := testUser(t)
	les := failedLesson(t, u.ID)
	store := newFakeLessonStore(les)
	dispatcher := &fakeDispatcher{}

	h := NewRegenerateLessonHandler(store, dispatcher, nil)

	res, err := h.Handle(context.Background(), RegenerateLessonCommand{
		UserID:   u.ID,
		LessonID: les.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, lesson.GeneratingInProgress, res.GeneratingStatus)
	assert.Equal(t, []string{les.ID}, dispatcher.ids)
	assert.Equal(t, lesson.GeneratingInProgress, store.storedLesson(les.ID).GeneratingStatus)
}

func TestRegenerateLesson_RejectsNonFailedLesson(t *testing.T) {
	u := testUser(t)

	inProgress := lesson.New(u.ID, "colors", "fr")
	require.NoError(t, inProgress.BeginGeneration(time.Now().UTC()))

	completed := lesson.New(u.ID, "numbers", "fr")
	require.NoError(t, completed.BeginGeneration(time.Now().UTC()))
	completed.AttachGeneratedContent("Numbers", []lesson.GeneratedUnit{{Title: "1-10", Body: "un, deux"}}, time.Now().UTC())

	store := newFakeLessonStore(inProgress, completed)
	h := NewRegenerateLessonHandler(store, &fakeDispatcher{}, nil)

	_, err := h.Handle(context.Background(), RegenerateLessonCommand{UserID: u.ID, LessonID: inProgress.ID})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = h.Handle(context.Background(), RegenerateLessonCommand{UserID: u.ID, LessonID: completed.ID})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestRegenerateLesson_OwnershipEnforced(t *testing.T) {
	les := failedLesson(t, "owner-1")
	store := newFakeLessonStore(les)

	h := NewRegenerateLessonHandler(store, &fakeDispatcher{}, nil)

	_, err := h.Handle(context.Background(), RegenerateLessonCommand{UserID: "intruder", LessonID: les.ID})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestRegenerateLesson_DispatchFailureIsRecorded(t *testing.T) {
	u := testUser(t)
	les := failedLesson(t, u.ID)
	store := newFakeLessonStore(les)

	h := NewRegenerateLessonHandler(store, &fakeDispatcher{err: errors.New("queue full")}, nil)

	_, err := h.Handle(context.Background(), RegenerateLessonCommand{UserID: u.ID, LessonID: les.ID})
	require.Error(t, err)
	assert.True(t, shared.IsExternalService(err))
	assert.Equal(t, lesson.GeneratingFailed, store.storedLesson(les.ID).GeneratingStatus)
}

func TestRegenerateLesson_Validation(t *testing.T) {
	h := NewRegenerateLessonHandler(nil, nil, nil)

	_, err := h.Handle(context.Background(), RegenerateLessonCommand{LessonID: "l1"})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), RegenerateLessonCommand{UserID: "u1"})
	assert.True(t, shared.IsValidation(err))
}

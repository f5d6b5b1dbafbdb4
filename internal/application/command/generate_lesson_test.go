package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
)

func TestGenerateLesson_DispatchesAndAcksImmediately(t *testing.T) {
	u := testUser(t)
	users := newFakeUserRepo(u)
	store := newFakeLessonStore()
	dispatcher := &fakeDispatcher{}

	h := NewGenerateLessonHandler(users, store, dispatcher, nil)

	res, err := h.Handle(context.Background(), GenerateLessonCommand{
		UserID:   u.ID,
		Request:  "  teach me ordering food in Spanish  ",
		Language: "es",
	})
	require.NoError(t, err)
	assert.Equal(t, lesson.GeneratingInProgress, res.GeneratingStatus)
	assert.Equal(t, []string{res.LessonID}, dispatcher.ids)

	stored := store.storedLesson(res.LessonID)
	assert.Equal(t, lesson.GeneratingInProgress, stored.GeneratingStatus, "status survives a restartable poll")
	assert.Equal(t, "teach me ordering food in Spanish", stored.Request)
	assert.Empty(t, stored.Units, "content arrives later from the background job")
	assert.False(t, stored.Ready())
}

func TestGenerateLesson_DispatchFailureIsRecorded(t *testing.T) {
	u := testUser(t)
	users := newFakeUserRepo(u)
	store := newFakeLessonStore()
	dispatcher := &fakeDispatcher{err: errors.New("queue full")}

	h := NewGenerateLessonHandler(users, store, dispatcher, nil)

	_, err := h.Handle(context.Background(), GenerateLessonCommand{UserID: u.ID, Request: "anything"})
	require.Error(t, err)
	assert.True(t, shared.IsExternalService(err))

	lessons, listErr := store.GetByUser(context.Background(), u.ID)
	require.NoError(t, listErr)
	require.Len(t, lessons, 1)
	assert.Equal(t, lesson.GeneratingFailed, lessons[0].GeneratingStatus)
}

func TestGenerateLesson_Validation(t *testing.T) {
	h := NewGenerateLessonHandler(nil, nil, nil, nil)

	_, err := h.Handle(context.Background(), GenerateLessonCommand{Request: "x"})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), GenerateLessonCommand{UserID: "u1", Request: "   "})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), GenerateLessonCommand{UserID: "u1", Request: strings.Repeat("a", maxRequestLength+1)})
	assert.True(t, shared.IsValidation(err))
}

func TestGenerateLesson_UnknownUser(t *testing.T) {
	h := NewGenerateLessonHandler(newFakeUserRepo(), newFakeLessonStore(), &fakeDispatcher{}, nil)

	_, err := h.Handle(context.Background(), GenerateLessonCommand{UserID: "nobody", Request: "hi"})
	assert.True(t, shared.IsNotFound(err))
}

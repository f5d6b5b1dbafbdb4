package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
)

type fakeStaleFinder struct {
	stale   []*lesson.Lesson
	findErr error
	updated []*lesson.Lesson
}

func (f *fakeStaleFinder) FindStaleGenerating(_ context.Context, _ time.Time) ([]*lesson.Lesson, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.stale, nil
}

func (f *fakeStaleFinder) Update(_ context.Context, l *lesson.Lesson) error {
	f.updated = append(f.updated, l)
	return nil
}

type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func stuckLesson(t *testing.T) *lesson.Lesson {
	t.Helper()
	les := lesson.New("user-1", "past tense verbs", "fr")
	require.NoError(t, les.BeginGeneration(time.Now().UTC().Add(-time.Hour)))
	return les
}

func TestReapStaleGenerations_MarksStaleLessonsFailed(t *testing.T) {
	les := stuckLesson(t)
	finder := &fakeStaleFinder{stale: []*lesson.Lesson{les}}
	events := &capturingPublisher{}

	job := NewReapStaleGenerationsJob(finder, events, 10*time.Minute, nil)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, finder.updated, 1)
	assert.Equal(t, lesson.GeneratingFailed, finder.updated[0].GeneratingStatus)

	require.Len(t, events.events, 1)
	assert.Equal(t, shared.EventLessonGenerationFailed, events.events[0].EventType())
	assert.Equal(t, les.ID, events.events[0].AggregateID())
}

func TestReapStaleGenerations_NothingStaleIsANoop(t *testing.T) {
	finder := &fakeStaleFinder{}
	events := &capturingPublisher{}

	job := NewReapStaleGenerationsJob(finder, events, 10*time.Minute, nil)
	require.NoError(t, job.Run(context.Background()))

	assert.Empty(t, finder.updated)
	assert.Empty(t, events.events)
}

func TestReapStaleGenerations_PropagatesFindErrors(t *testing.T) {
	finder := &fakeStaleFinder{findErr: shared.ErrServiceUnavailable}

	job := NewReapStaleGenerationsJob(finder, nil, 10*time.Minute, nil)
	assert.Error(t, job.Run(context.Background()))
}

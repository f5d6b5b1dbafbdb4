package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
	"github.com/lingoquest/lingoquest-backend/internal/infrastructure/external/ai"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeLessonRepo struct {
	mu      sync.Mutex
	lessons map[string]*lesson.Lesson
	updated chan string
}

func newFakeLessonRepo() *fakeLessonRepo {
	return &fakeLessonRepo{
		lessons: make(map[string]*lesson.Lesson),
		updated: make(chan string, 16),
	}
}

func (r *fakeLessonRepo) Create(_ context.Context, l *lesson.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lessons[l.ID] = l
	return nil
}

func (r *fakeLessonRepo) GetByID(_ context.Context, id string) (*lesson.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lessons[id]
	if !ok {
		return nil, shared.ErrLessonNotFound
	}
	copied := *l
	return &copied, nil
}

func (r *fakeLessonRepo) GetByUser(_ context.Context, userID string) ([]*lesson.Lesson, error) {
	return nil, nil
}

func (r *fakeLessonRepo) Update(_ context.Context, l *lesson.Lesson) error {
	r.mu.Lock()
	r.lessons[l.ID] = l
	r.mu.Unlock()
	r.updated <- l.ID
	return nil
}

func (r *fakeLessonRepo) SaveExchange(_ context.Context, _ *lesson.Lesson, _ *lesson.ContentUnit, _, _ *lesson.ChatTurn) error {
	return errors.New("not used in generation")
}

func (r *fakeLessonRepo) stored(id string) *lesson.Lesson {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lessons[id]
}

type fakeUserRepo struct {
	users map[string]*user.User
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error { return nil }
func (r *fakeUserRepo) Update(_ context.Context, u *user.User) error { return nil }

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return nil, shared.ErrUserNotFound
}

type fakeGenerator struct {
	mu     sync.Mutex
	result *ai.GeneratedLesson
	err    error
	calls  int
}

func (g *fakeGenerator) Generate(_ context.Context, _ ai.GenerateInput) (*ai.GeneratedLesson, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) ofType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

func pendingLesson(t *testing.T, users *fakeUserRepo) *lesson.Lesson {
	t.Helper()
	u, err := user.New("dana@example.com", "$2a$10$fakehash", "Dana", "en")
	require.NoError(t, err)
	users.users = map[string]*user.User{u.ID: u}

	les := lesson.New(u.ID, "greetings and introductions", "es")
	require.NoError(t, les.BeginGeneration(time.Now().UTC()))
	return les
}

func generatedContent() *ai.GeneratedLesson {
	return &ai.GeneratedLesson{
		Title: "Spanish Greetings",
		Units: []ai.GeneratedUnit{
			{Title: "Saying Hello", Body: "Hola means hello."},
			{Title: "Introducing Yourself", Body: "Me llamo means my name is."},
		},
	}
}

func waitForUpdate(t *testing.T, repo *fakeLessonRepo) {
	t.Helper()
	select {
	case <-repo.updated:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for lesson update")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestGenerationWorker_AttachesGeneratedContent(t *testing.T) {
	users := &fakeUserRepo{}
	lessons := newFakeLessonRepo()
	les := pendingLesson(t, users)
	require.NoError(t, lessons.Create(context.Background(), les))

	gen := &fakeGenerator{result: generatedContent()}
	events := &capturingPublisher{}

	w := NewGenerationWorker(lessons, users, gen, events, DefaultGenerationWorkerConfig())
	w.process(context.Background(), les.ID)

	stored := lessons.stored(les.ID)
	assert.Equal(t, lesson.GeneratingCompleted, stored.GeneratingStatus)
	assert.Equal(t, "Spanish Greetings", stored.Title)
	require.Len(t, stored.Units, 2)
	assert.Equal(t, 1, stored.Units[0].SequenceNumber)
	assert.Equal(t, 2, stored.Units[1].SequenceNumber)
	assert.True(t, stored.Ready())

	require.Len(t, events.ofType(shared.EventLessonGenerated), 1)
}

func TestGenerationWorker_FailureIsTerminalAndObservable(t *testing.T) {
	users := &fakeUserRepo{}
	lessons := newFakeLessonRepo()
	les := pendingLesson(t, users)
	require.NoError(t, lessons.Create(context.Background(), les))

	gen := &fakeGenerator{err: shared.ErrServiceUnavailable}
	events := &capturingPublisher{}

	w := NewGenerationWorker(lessons, users, gen, events, DefaultGenerationWorkerConfig())
	w.process(context.Background(), les.ID)

	stored := lessons.stored(les.ID)
	assert.Equal(t, lesson.GeneratingFailed, stored.GeneratingStatus)
	assert.Empty(t, stored.Units)
	assert.False(t, stored.Ready())

	require.Len(t, events.ofType(shared.EventLessonGenerationFailed), 1)
}

func TestGenerationWorker_SkipsAlreadyResolvedLesson(t *testing.T) {
	users := &fakeUserRepo{}
	lessons := newFakeLessonRepo()
	les := pendingLesson(t, users)
	les.AttachGeneratedContent("Done", []lesson.GeneratedUnit{{Title: "a", Body: "b"}}, time.Now().UTC())
	require.NoError(t, lessons.Create(context.Background(), les))

	gen := &fakeGenerator{result: generatedContent()}

	w := NewGenerationWorker(lessons, users, gen, &capturingPublisher{}, DefaultGenerationWorkerConfig())
	w.process(context.Background(), les.ID)

	assert.Equal(t, 0, gen.callCount())
	assert.Equal(t, "Done", lessons.stored(les.ID).Title)
}

func TestGenerationWorker_DispatchAndProcessEndToEnd(t *testing.T) {
	users := &fakeUserRepo{}
	lessons := newFakeLessonRepo()
	les := pendingLesson(t, users)
	require.NoError(t, lessons.Create(context.Background(), les))

	gen := &fakeGenerator{result: generatedContent()}
	events := &capturingPublisher{}

	w := NewGenerationWorker(lessons, users, gen, events, GenerationWorkerConfig{
		QueueSize:  4,
		Workers:    1,
		JobTimeout: 10 * time.Second,
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, w.Dispatch(les.ID))
	waitForUpdate(t, lessons)

	assert.Equal(t, lesson.GeneratingCompleted, lessons.stored(les.ID).GeneratingStatus)
}

func TestGenerationWorker_QueueFullIsReported(t *testing.T) {
	users := &fakeUserRepo{}
	lessons := newFakeLessonRepo()

	// Not started: nothing drains the queue.
	w := NewGenerationWorker(lessons, users, &fakeGenerator{}, nil, GenerationWorkerConfig{
		QueueSize: 1,
		Workers:   1,
	})

	require.NoError(t, w.Dispatch("lesson-1"))
	assert.ErrorIs(t, w.Dispatch("lesson-2"), ErrQueueFull)
	assert.Equal(t, 1, w.QueueDepth())
}

func TestGenerationWorker_DispatchAfterStopFails(t *testing.T) {
	users := &fakeUserRepo{}
	lessons := newFakeLessonRepo()

	w := NewGenerationWorker(lessons, users, &fakeGenerator{}, nil, DefaultGenerationWorkerConfig())
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())

	assert.ErrorIs(t, w.Dispatch("lesson-1"), ErrWorkerStopped)
}

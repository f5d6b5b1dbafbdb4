package command

import (
	"context"
	"sync"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
	"github.com/lingoquest/lingoquest-backend/internal/infrastructure/external/ai"
)

// ══════════════════════════════════════════════════════════════════════════════
// In-memory fakes shared by the command handler tests. The user fake
// enforces the same optimistic versioning contract as the Postgres
// repository so conflict paths are exercised for real.
// ══════════════════════════════════════════════════════════════════════════════

func cloneUser(u *user.User) *user.User {
	c := *u
	c.Progress = make(map[string]*user.TaskProgress, len(u.Progress))
	for id, p := range u.Progress {
		pc := *p
		if p.CompletedAt != nil {
			t := *p.CompletedAt
			pc.CompletedAt = &t
		}
		c.Progress[id] = &pc
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*user.User

	// failUpdates injects this many ErrOptimisticLock failures before
	// updates start succeeding.
	failUpdates int

	updateCalls int
}

func newFakeUserRepo(seed ...*user.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*user.User)}
	for _, u := range seed {
		r.users[u.ID] = cloneUser(u)
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return shared.ErrUserAlreadyExists
		}
	}
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email.String() == email {
			return cloneUser(u), nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.failUpdates > 0 {
		r.failUpdates--
		return shared.ErrOptimisticLock
	}
	stored, ok := r.users[u.ID]
	if !ok {
		return shared.ErrUserNotFound
	}
	if stored.Version != u.Version {
		return shared.ErrOptimisticLock
	}
	saved := cloneUser(u)
	saved.Version++
	r.users[u.ID] = saved
	return nil
}

// stored returns the persisted state of a user for assertions.
func (r *fakeUserRepo) stored(id string) *user.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id])
}

type fakeTaskRepo struct {
	defs []task.Definition
}

func (r *fakeTaskRepo) Upsert(_ context.Context, def task.Definition) error {
	for i, d := range r.defs {
		if d.ID == def.ID {
			r.defs[i] = def
			return nil
		}
	}
	r.defs = append(r.defs, def)
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (task.Definition, error) {
	for _, d := range r.defs {
		if d.ID == id {
			return d, nil
		}
	}
	return task.Definition{}, shared.ErrTaskNotFound
}

func (r *fakeTaskRepo) GetAll(_ context.Context) ([]task.Definition, error) {
	return append([]task.Definition(nil), r.defs...), nil
}

func (r *fakeTaskRepo) GetByCategory(_ context.Context, category task.Category) ([]task.Definition, error) {
	var out []task.Definition
	for _, d := range r.defs {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) GetByLevel(_ context.Context, level int) ([]task.Definition, error) {
	var out []task.Definition
	for _, d := range r.defs {
		if d.Level == level {
			out = append(out, d)
		}
	}
	return out, nil
}

func cloneLesson(l *lesson.Lesson) *lesson.Lesson {
	c := *l
	c.Units = make([]*lesson.ContentUnit, len(l.Units))
	for i, u := range l.Units {
		uc := *u
		c.Units[i] = &uc
	}
	return &c
}

// fakeLessonStore backs both lesson.Repository and lesson.ChatRepository.
type fakeLessonStore struct {
	mu      sync.Mutex
	lessons map[string]*lesson.Lesson
	turns   []*lesson.ChatTurn

	saveExchangeErr error
}

func newFakeLessonStore(seed ...*lesson.Lesson) *fakeLessonStore {
	s := &fakeLessonStore{lessons: make(map[string]*lesson.Lesson)}
	for _, l := range seed {
		s.lessons[l.ID] = cloneLesson(l)
	}
	return s
}

func (s *fakeLessonStore) Create(_ context.Context, l *lesson.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons[l.ID] = cloneLesson(l)
	return nil
}

func (s *fakeLessonStore) GetByID(_ context.Context, id string) (*lesson.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[id]
	if !ok {
		return nil, shared.ErrLessonNotFound
	}
	return cloneLesson(l), nil
}

func (s *fakeLessonStore) GetByUser(_ context.Context, userID string) ([]*lesson.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*lesson.Lesson
	for _, l := range s.lessons {
		if l.UserID == userID {
			out = append(out, cloneLesson(l))
		}
	}
	return out, nil
}

func (s *fakeLessonStore) Update(_ context.Context, l *lesson.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lessons[l.ID]; !ok {
		return shared.ErrLessonNotFound
	}
	s.lessons[l.ID] = cloneLesson(l)
	return nil
}

func (s *fakeLessonStore) SaveExchange(_ context.Context, l *lesson.Lesson, _ *lesson.ContentUnit, userTurn, aiTurn *lesson.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveExchangeErr != nil {
		return s.saveExchangeErr
	}
	s.lessons[l.ID] = cloneLesson(l)
	s.turns = append(s.turns, userTurn, aiTurn)
	return nil
}

func (s *fakeLessonStore) CountTurns(_ context.Context, userID, contentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.turns {
		if t.UserID == userID && t.ContentID == contentID {
			n++
		}
	}
	return n, nil
}

func (s *fakeLessonStore) RecentTurns(_ context.Context, userID, contentID string, limit int) ([]*lesson.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var chronological []*lesson.ChatTurn
	for _, t := range s.turns {
		if t.UserID == userID && t.ContentID == contentID {
			chronological = append(chronological, t)
		}
	}
	var out []*lesson.ChatTurn
	for i := len(chronological) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, chronological[i])
	}
	return out, nil
}

func (s *fakeLessonStore) History(_ context.Context, userID, contentID string) ([]*lesson.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*lesson.ChatTurn
	for _, t := range s.turns {
		if t.UserID == userID && t.ContentID == contentID {
			out = append(out, t)
		}
	}
	return out, nil
}

// storedLesson returns the persisted state of a lesson for assertions.
func (s *fakeLessonStore) storedLesson(id string) *lesson.Lesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLesson(s.lessons[id])
}

func (s *fakeLessonStore) turnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

type fakeJudge struct {
	mu       sync.Mutex
	judgment *ai.Judgment
	err      error
	inputs   []ai.JudgeInput
}

func (j *fakeJudge) Judge(_ context.Context, in ai.JudgeInput) (*ai.Judgment, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inputs = append(j.inputs, in)
	if j.err != nil {
		return nil, j.err
	}
	return j.judgment, nil
}

func (j *fakeJudge) lastInput() ai.JudgeInput {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inputs[len(j.inputs)-1]
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

type fakeCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *fakeCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userID)
	return nil
}

type fakeDispatcher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (d *fakeDispatcher) Dispatch(lessonID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.ids = append(d.ids, lessonID)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// Shared test fixtures
// ══════════════════════════════════════════════════════════════════════════════

func testUser(t interface{ Fatal(args ...any) }) *user.User {
	u, err := user.New("dana@example.com", "$2a$10$fakehash", "Dana", "en")
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func readyLesson(userID string, unitCount int) *lesson.Lesson {
	l := lesson.New(userID, "teach me greetings", "es")
	units := make([]lesson.GeneratedUnit, 0, unitCount)
	for i := 0; i < unitCount; i++ {
		units = append(units, lesson.GeneratedUnit{
			Title: "Unit",
			Body:  "Body",
		})
	}
	l.AttachGeneratedContent("Spanish Greetings", units, time.Now().UTC())
	return l
}

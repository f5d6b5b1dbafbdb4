package query

import (
	"context"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
)

// Read-only fakes for the query handler tests.

type fakeUserRepo struct {
	users map[string]*user.User
}

func (r *fakeUserRepo) Create(context.Context, *user.User) error { return nil }
func (r *fakeUserRepo) Update(context.Context, *user.User) error { return nil }

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range r.users {
		if u.Email.String() == email {
			return u, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

type fakeTaskRepo struct {
	defs []task.Definition
}

func (r *fakeTaskRepo) Upsert(context.Context, task.Definition) error { return nil }

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (task.Definition, error) {
	for _, d := range r.defs {
		if d.ID == id {
			return d, nil
		}
	}
	return task.Definition{}, shared.ErrTaskNotFound
}

func (r *fakeTaskRepo) GetAll(context.Context) ([]task.Definition, error) {
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

type fakeLessonStore struct {
	lessons map[string]*lesson.Lesson
	turns   []*lesson.ChatTurn
}

func (s *fakeLessonStore) Create(context.Context, *lesson.Lesson) error { return nil }
func (s *fakeLessonStore) Update(context.Context, *lesson.Lesson) error { return nil }
func (s *fakeLessonStore) SaveExchange(context.Context, *lesson.Lesson, *lesson.ContentUnit, *lesson.ChatTurn, *lesson.ChatTurn) error {
	return nil
}

func (s *fakeLessonStore) GetByID(_ context.Context, id string) (*lesson.Lesson, error) {
	l, ok := s.lessons[id]
	if !ok {
		return nil, shared.ErrLessonNotFound
	}
	return l, nil
}

func (s *fakeLessonStore) GetByUser(_ context.Context, userID string) ([]*lesson.Lesson, error) {
	var out []*lesson.Lesson
	for _, l := range s.lessons {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeLessonStore) CountTurns(_ context.Context, userID, contentID string) (int, error) {
	n := 0
	for _, t := range s.turns {
		if t.UserID == userID && t.ContentID == contentID {
			n++
		}
	}
	return n, nil
}

func (s *fakeLessonStore) RecentTurns(_ context.Context, userID, contentID string, limit int) ([]*lesson.ChatTurn, error) {
	history, _ := s.History(context.Background(), userID, contentID)
	var out []*lesson.ChatTurn
	for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, history[i])
	}
	return out, nil
}

func (s *fakeLessonStore) History(_ context.Context, userID, contentID string) ([]*lesson.ChatTurn, error) {
	var out []*lesson.ChatTurn
	for _, t := range s.turns {
		if t.UserID == userID && t.ContentID == contentID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeReportCache struct {
	reports  map[string]*TaskProgressReport
	getErr   error
	setCalls int
}

func (c *fakeReportCache) Get(_ context.Context, userID string) (*TaskProgressReport, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.reports[userID], nil
}

func (c *fakeReportCache) Set(_ context.Context, userID string, report *TaskProgressReport) error {
	c.setCalls++
	if c.reports == nil {
		c.reports = make(map[string]*TaskProgressReport)
	}
	c.reports[userID] = report
	return nil
}

// progressUser builds a user with the given task counters applied.
func progressUser(defs []task.Definition, counts map[string]int) *user.User {
	u, err := user.New("dana@example.com", "$2a$10$fakehash", "Dana", "en")
	if err != nil {
		panic(err)
	}
	now := time.Now().UTC()
	for _, def := range defs {
		if n := counts[def.ID]; n > 0 {
			if _, err := u.ApplyProgress(def, n, now); err != nil {
				panic(err)
			}
		}
	}
	return u
}

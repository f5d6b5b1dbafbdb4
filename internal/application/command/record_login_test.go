package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
)

func streakDef(id string, required, points int) task.Definition {
	return task.Definition{
		ID:            id,
		Title:         id,
		Category:      task.CategoryStreak,
		Level:         1,
		Points:        points,
		RequiredCount: required,
	}
}

func TestRecordLogin_FirstLoginStartsStreak(t *testing.T) {
	u := testUser(t)
	users := newFakeUserRepo(u)
	tasks := &fakeTaskRepo{defs: []task.Definition{streakDef("streak-first", 1, 5)}}
	events := &capturingPublisher{}
	increment := NewIncrementProgressHandler(users, tasks, events, nil, nil)

	h := NewRecordLoginHandler(users, increment, events, nil)

	res, err := h.Handle(context.Background(), RecordLoginCommand{UserID: u.ID})
	require.NoError(t, err)
	assert.True(t, res.Started)
	assert.Equal(t, 1, res.Streak)

	stored := users.stored(u.ID)
	assert.Equal(t, 1, stored.LoginStreak)
	require.NotNil(t, stored.LastLoginAt)
	assert.Equal(t, 1, stored.Progress["streak-first"].Count)
	assert.Equal(t, 5, stored.TotalPoints)
	assert.Len(t, events.ofType(shared.EventStreakExtended), 1)
}

func TestRecordLogin_SameDayIsStreakNoop(t *testing.T) {
	u := testUser(t)
	users := newFakeUserRepo(u)
	tasks := &fakeTaskRepo{defs: []task.Definition{streakDef("streak-week", 7, 50)}}
	increment := NewIncrementProgressHandler(users, tasks, nil, nil, nil)

	h := NewRecordLoginHandler(users, increment, nil, nil)

	noon := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	_, err := h.Handle(context.Background(), RecordLoginCommand{UserID: u.ID, At: noon})
	require.NoError(t, err)

	res, err := h.Handle(context.Background(), RecordLoginCommand{UserID: u.ID, At: noon.Add(5 * time.Hour)})
	require.NoError(t, err)
	assert.False(t, res.Started)
	assert.False(t, res.Extended)
	assert.Equal(t, 1, res.Streak)

	stored := users.stored(u.ID)
	assert.Equal(t, 1, stored.Progress["streak-week"].Count, "same-day login does not feed STREAK tasks")
	assert.Equal(t, noon.Add(5*time.Hour), stored.LastLoginAt.UTC(), "last login still advances")
}

func TestRecordLogin_NextDayExtends(t *testing.T) {
	u := testUser(t)
	users := newFakeUserRepo(u)
	h := NewRecordLoginHandler(users, nil, nil, nil)

	evening := time.Date(2026, 8, 28, 22, 0, 0, 0, time.UTC)
	_, err := h.Handle(context.Background(), RecordLoginCommand{UserID: u.ID, At: evening})
	require.NoError(t, err)

	// 11 hours later: new calendar day, comfortably inside the 36h gap.
	res, err := h.Handle(context.Background(), RecordLoginCommand{UserID: u.ID, At: evening.Add(11 * time.Hour)})
	require.NoError(t, err)
	assert.True(t, res.Extended)
	assert.Equal(t, 2, res.Streak)
}

func TestRecordLogin_LongGapResets(t *testing.T) {
	u := testUser(t)
	users := newFakeUserRepo(u)
	events := &capturingPublisher{}
	h := NewRecordLoginHandler(users, nil, events, nil)

	start := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	_, err := h.Handle(context.Background(), RecordLoginCommand{UserID: u.ID, At: start})
	require.NoError(t, err)
	_, err = h.Handle(context.Background(), RecordLoginCommand{UserID: u.ID, At: start.Add(24 * time.Hour)})
	require.NoError(t, err)

	res, err := h.Handle(context.Background(), RecordLoginCommand{UserID: u.ID, At: start.Add(24*time.Hour + 37*time.Hour)})
	require.NoError(t, err)
	assert.True(t, res.Broken)
	assert.Equal(t, 1, res.Streak)

	broken := events.ofType(shared.EventStreakBroken)
	require.Len(t, broken, 1)
	assert.Equal(t, map[string]interface{}{"previous_streak": 2}, broken[0].Payload())
}

func TestRecordLogin_ExactBoundaryKeepsStreak(t *testing.T) {
	u := testUser(t)
	users := newFakeUserRepo(u)
	h := NewRecordLoginHandler(users, nil, nil, nil)

	start := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	_, err := h.Handle(context.Background(), RecordLoginCommand{UserID: u.ID, At: start})
	require.NoError(t, err)

	// Exactly 36h is within tolerance; it lands on a new calendar day.
	res, err := h.Handle(context.Background(), RecordLoginCommand{UserID: u.ID, At: start.Add(36 * time.Hour)})
	require.NoError(t, err)
	assert.False(t, res.Broken)
	assert.True(t, res.Extended)
	assert.Equal(t, 2, res.Streak)
}

func TestRecordLogin_UnknownUser(t *testing.T) {
	h := NewRecordLoginHandler(newFakeUserRepo(), nil, nil, nil)
	_, err := h.Handle(context.Background(), RecordLoginCommand{UserID: "nobody"})
	assert.True(t, shared.IsNotFound(err))
}

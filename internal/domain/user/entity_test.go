package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
)

func newTestUser(t *testing.T) *User {
	t.Helper()
	u, err := New("learner@example.com", "$2a$10$hash", "Dana", "en")
	require.NoError(t, err)
	return u
}

func TestNew_Validation(t *testing.T) {
	_, err := New("not-an-email", "hash", "Dana", "en")
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)

	_, err = New("learner@example.com", "hash", "  ", "en")
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = New("learner@example.com", "", "Dana", "en")
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestNew_Defaults(t *testing.T) {
	u := newTestUser(t)

	assert.Equal(t, 0, u.TotalPoints)
	assert.Equal(t, 1, u.Level)
	assert.Equal(t, 0, u.LoginStreak)
	assert.Nil(t, u.LastLoginAt)
	assert.Equal(t, shared.LanguageCode("en"), u.NativeLanguage)
}

func TestComputeLevel(t *testing.T) {
	tests := []struct {
		points int
		level  int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{250, 3},
		{300, 4},
		{-5, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.level, ComputeLevel(tt.points), "points=%d", tt.points)
	}
}

func TestComputeLevel_Monotonic(t *testing.T) {
	prev := ComputeLevel(0)
	for points := 0; points <= 2000; points += 7 {
		level := ComputeLevel(points)
		assert.GreaterOrEqual(t, level, prev)
		prev = level
	}
}

func TestNextLevelPoints(t *testing.T) {
	assert.Equal(t, 100, NextLevelPoints(0))
	assert.Equal(t, 300, NextLevelPoints(250))
}

func TestApplyProgress_AwardsExactlyOnce(t *testing.T) {
	u := newTestUser(t)
	def := task.Definition{ID: "chatterbox", Category: task.CategoryContent, Level: 1, Points: 50, RequiredCount: 3}
	now := time.Now().UTC()

	// Two increments below the threshold: no award.
	for i := 0; i < 2; i++ {
		upd, err := u.ApplyProgress(def, 1, now)
		require.NoError(t, err)
		assert.False(t, upd.NewlyCompleted)
		assert.Zero(t, upd.PointsAwarded)
	}
	assert.Equal(t, 0, u.TotalPoints)
	assert.Nil(t, u.Progress["chatterbox"].CompletedAt)

	// Third increment crosses the edge.
	upd, err := u.ApplyProgress(def, 1, now)
	require.NoError(t, err)
	assert.True(t, upd.NewlyCompleted)
	assert.Equal(t, 50, upd.PointsAwarded)
	assert.Equal(t, 50, u.TotalPoints)
	require.NotNil(t, u.Progress["chatterbox"].CompletedAt)
	stamped := *u.Progress["chatterbox"].CompletedAt

	// Further increments keep counting but never re-award.
	for i := 0; i < 10; i++ {
		upd, err := u.ApplyProgress(def, 1, now.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, upd.NewlyCompleted)
		assert.Zero(t, upd.PointsAwarded)
	}
	assert.Equal(t, 50, u.TotalPoints)
	assert.Equal(t, 13, u.Progress["chatterbox"].Count)
	assert.Equal(t, stamped, *u.Progress["chatterbox"].CompletedAt, "completedAt is set once")
}

func TestApplyProgress_BulkAmountCrossesEdgeOnce(t *testing.T) {
	u := newTestUser(t)
	def := task.Definition{ID: "bulk", Category: task.CategoryContent, Level: 1, Points: 30, RequiredCount: 5}

	upd, err := u.ApplyProgress(def, 7, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, upd.NewlyCompleted)
	assert.Equal(t, 30, u.TotalPoints)
	assert.Equal(t, 7, u.Progress["bulk"].Count)
}

func TestApplyProgress_LevelRefreshOnAward(t *testing.T) {
	u := newTestUser(t)
	u.TotalPoints = 250
	u.Level = ComputeLevel(u.TotalPoints)
	def := task.Definition{ID: "scholar", Category: task.CategoryLesson, Level: 1, Points: 50, RequiredCount: 1}

	upd, err := u.ApplyProgress(def, 1, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, upd.LeveledUp())
	assert.Equal(t, 3, upd.OldLevel)
	assert.Equal(t, 4, upd.NewLevel)
	assert.Equal(t, 300, u.TotalPoints)
}

func TestApplyProgress_RejectsNonPositiveAmount(t *testing.T) {
	u := newTestUser(t)
	def := task.Definition{ID: "x", Points: 10, RequiredCount: 1}

	_, err := u.ApplyProgress(def, 0, time.Now().UTC())
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	_, err = u.ApplyProgress(def, -1, time.Now().UTC())
	assert.Error(t, err)
}

func TestApplyProgress_CountNeverDecreases(t *testing.T) {
	u := newTestUser(t)
	def := task.Definition{ID: "x", Points: 10, RequiredCount: 100}

	prev := 0
	for i := 0; i < 20; i++ {
		_, err := u.ApplyProgress(def, 1, time.Now().UTC())
		require.NoError(t, err)
		assert.Greater(t, u.Progress["x"].Count, prev)
		prev = u.Progress["x"].Count
	}
}

func TestCompletedTaskIDs_UsesRequiredCountThreshold(t *testing.T) {
	u := newTestUser(t)
	u.Progress = map[string]*TaskProgress{
		"started":  {TaskID: "started", Count: 1, RequiredCount: 3, Points: 10},
		"finished": {TaskID: "finished", Count: 3, RequiredCount: 3, Points: 10},
		"over":     {TaskID: "over", Count: 9, RequiredCount: 3, Points: 10},
	}

	set := u.CompletedTaskIDs()

	// A touched-but-unfinished task does not count as completed.
	assert.False(t, set.Contains("started"))
	assert.True(t, set.Contains("finished"))
	assert.True(t, set.Contains("over"))
}

// The four streak scenarios: first login, next-day login within the gap,
// same-day repeat, and a gap past the tolerance.
func TestRecordLogin_Scenarios(t *testing.T) {
	u := newTestUser(t)

	// (a) First-ever login.
	first := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	change := u.RecordLogin(first)
	assert.True(t, change.Started)
	assert.Equal(t, 1, u.LoginStreak)
	require.NotNil(t, u.LastLoginAt)
	assert.Equal(t, first, *u.LastLoginAt)

	// (b) 20 hours later, next calendar day: streak extends.
	second := first.Add(20 * time.Hour)
	change = u.RecordLogin(second)
	assert.True(t, change.Extended)
	assert.Equal(t, 2, u.LoginStreak)

	// (c) 10 hours after that, same calendar day: unchanged.
	third := second.Add(10 * time.Hour)
	change = u.RecordLogin(third)
	assert.False(t, change.Extended)
	assert.False(t, change.Broken)
	assert.Equal(t, 2, u.LoginStreak)
	assert.Equal(t, third, *u.LastLoginAt, "lastLoginAt advances even on same-day logins")

	// (d) 40 hours later: gap exceeded, streak resets.
	fourth := third.Add(40 * time.Hour)
	change = u.RecordLogin(fourth)
	assert.True(t, change.Broken)
	assert.Equal(t, 2, change.Previous)
	assert.Equal(t, 1, u.LoginStreak)
}

func TestRecordLogin_StreakNeverNegative(t *testing.T) {
	u := newTestUser(t)
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		u.RecordLogin(now.Add(time.Duration(i*100) * time.Hour))
		assert.GreaterOrEqual(t, u.LoginStreak, 0)
	}
}

func TestTaskProgressRemaining(t *testing.T) {
	p := &TaskProgress{Count: 2, RequiredCount: 5}
	assert.Equal(t, 3, p.Remaining())

	p.Count = 7
	assert.Equal(t, 0, p.Remaining())
}

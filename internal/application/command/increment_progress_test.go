package command

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
)

func contentDef(id string, required, points int, prereqs ...string) task.Definition {
	return task.Definition{
		ID:            id,
		Title:         id,
		Category:      task.CategoryContent,
		Level:         1,
		Points:        points,
		RequiredCount: required,
		Prerequisites: prereqs,
	}
}

func TestIncrementProgress_AwardsExactlyOnceAtEdge(t *testing.T) {
	u := testUser(t)
	users := newFakeUserRepo(u)
	tasks := &fakeTaskRepo{defs: []task.Definition{contentDef("content-novice", 3, 10)}}
	events := &capturingPublisher{}

	h := NewIncrementProgressHandler(users, tasks, events, nil, nil)
	cmd := IncrementProgressCommand{UserID: u.ID, Category: task.CategoryContent}

	for i := 1; i <= 2; i++ {
		res, err := h.Handle(context.Background(), cmd)
		require.NoError(t, err)
		assert.Empty(t, res.NewlyCompleted, "no award before the threshold")
		assert.Zero(t, res.PointsAwarded)
	}

	res, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"content-novice"}, res.NewlyCompleted)
	assert.Equal(t, 10, res.PointsAwarded)
	assert.Equal(t, 10, res.TotalPoints)

	// Counting continues past completion but never re-awards.
	res, err = h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Empty(t, res.NewlyCompleted)
	assert.Equal(t, 10, res.TotalPoints)

	stored := users.stored(u.ID)
	assert.Equal(t, 4, stored.Progress["content-novice"].Count)
	assert.Equal(t, 10, stored.TotalPoints)
	assert.NotNil(t, stored.Progress["content-novice"].CompletedAt)

	assert.Len(t, events.ofType(shared.EventTaskCompleted), 1)
}

func TestIncrementProgress_PrerequisiteGatesAccrual(t *testing.T) {
	u := testUser(t)
	users := newFakeUserRepo(u)
	tasks := &fakeTaskRepo{defs: []task.Definition{
		contentDef("content-novice", 2, 10),
		contentDef("content-adept", 2, 20, "content-novice"),
	}}

	h := NewIncrementProgressHandler(users, tasks, nil, nil, nil)
	cmd := IncrementProgressCommand{UserID: u.ID, Category: task.CategoryContent}

	// First increment: only the prerequisite-free task accrues.
	_, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	stored := users.stored(u.ID)
	assert.Equal(t, 1, stored.Progress["content-novice"].Count)
	assert.Nil(t, stored.Progress["content-adept"])

	// Second increment completes the prerequisite. The gated task starts
	// accruing from the NEXT event, not retroactively.
	_, err = h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	stored = users.stored(u.ID)
	assert.Nil(t, stored.Progress["content-adept"])

	_, err = h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	stored = users.stored(u.ID)
	assert.Equal(t, 1, stored.Progress["content-adept"].Count)
}

func TestIncrementProgress_LevelUpAndCacheInvalidation(t *testing.T) {
	u := testUser(t)
	users := newFakeUserRepo(u)
	tasks := &fakeTaskRepo{defs: []task.Definition{contentDef("content-big", 1, 100)}}
	events := &capturingPublisher{}
	cache := &fakeCache{}

	h := NewIncrementProgressHandler(users, tasks, events, cache, nil)

	res, err := h.Handle(context.Background(), IncrementProgressCommand{UserID: u.ID, Category: task.CategoryContent})
	require.NoError(t, err)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 2, res.Level)

	assert.Len(t, events.ofType(shared.EventLevelUp), 1)
	assert.Equal(t, []string{u.ID}, cache.invalidated)
}

func TestIncrementProgress_RetriesOnOptimisticLock(t *testing.T) {
	u := testUser(t)
	users := newFakeUserRepo(u)
	users.failUpdates = 2
	tasks := &fakeTaskRepo{defs: []task.Definition{contentDef("content-novice", 5, 10)}}

	h := NewIncrementProgressHandler(users, tasks, nil, nil, nil)

	_, err := h.Handle(context.Background(), IncrementProgressCommand{UserID: u.ID, Category: task.CategoryContent})
	require.NoError(t, err)

	// Two rejected attempts plus the one that landed; the counter moved
	// exactly once.
	assert.Equal(t, 3, users.updateCalls)
	assert.Equal(t, 1, users.stored(u.ID).Progress["content-novice"].Count)
}

func TestIncrementProgress_GivesUpAfterRetryBudget(t *testing.T) {
	u := testUser(t)
	users := newFakeUserRepo(u)
	users.failUpdates = maxConflictRetries
	tasks := &fakeTaskRepo{defs: []task.Definition{contentDef("content-novice", 5, 10)}}

	h := NewIncrementProgressHandler(users, tasks, nil, nil, nil)

	_, err := h.Handle(context.Background(), IncrementProgressCommand{UserID: u.ID, Category: task.CategoryContent})
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
	assert.Equal(t, 0, users.stored(u.ID).Progress["content-novice"].Count)
}

func TestIncrementProgress_ConcurrentCallersAwardOnce(t *testing.T) {
	const callers = 25

	u := testUser(t)
	users := newFakeUserRepo(u)
	tasks := &fakeTaskRepo{defs: []task.Definition{contentDef("content-marathon", callers, 50)}}
	events := &capturingPublisher{}

	h := NewIncrementProgressHandler(users, tasks, events, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// A conflicted command never persisted anything, so retrying
			// the whole command is safe and eventually lands.
			for {
				_, err := h.Handle(context.Background(), IncrementProgressCommand{
					UserID:   u.ID,
					Category: task.CategoryContent,
				})
				if err == nil {
					return
				}
				if !shared.IsConflict(err) {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	stored := users.stored(u.ID)
	assert.Equal(t, callers, stored.Progress["content-marathon"].Count)
	assert.Equal(t, 50, stored.TotalPoints, "points awarded exactly once")
	assert.Len(t, events.ofType(shared.EventTaskCompleted), 1)
}

func TestIncrementProgress_Validation(t *testing.T) {
	h := NewIncrementProgressHandler(nil, nil, nil, nil, nil)

	_, err := h.Handle(context.Background(), IncrementProgressCommand{Category: task.CategoryContent})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), IncrementProgressCommand{UserID: "u1", Category: "BOGUS"})
	assert.ErrorIs(t, err, shared.ErrInvalidCategory)

	_, err = h.Handle(context.Background(), IncrementProgressCommand{UserID: "u1", Category: task.CategoryContent, Amount: -1})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)
}

package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
)

var listDefs = []task.Definition{
	{ID: "content-novice", Category: task.CategoryContent, Level: 1, Order: 1, Points: 10, RequiredCount: 3},
	{ID: "content-adept", Category: task.CategoryContent, Level: 1, Order: 2, Points: 20, RequiredCount: 5, Prerequisites: []string{"content-novice"}},
	{ID: "lesson-master", Category: task.CategoryLesson, Level: 3, Order: 1, Points: 100, RequiredCount: 10},
}

func TestListTasks_Available(t *testing.T) {
	u := progressUser(listDefs, nil)
	users := &fakeUserRepo{users: map[string]*user.User{u.ID: u}}
	tasks := &fakeTaskRepo{defs: listDefs}

	h := NewListTasksHandler(users, tasks, nil)

	views, err := h.Available(context.Background(), ListTasksQuery{UserID: u.ID})
	require.NoError(t, err)

	// Level-3 task is gated away and the prerequisite chain hides the
	// second content task.
	require.Len(t, views, 1)
	assert.Equal(t, "content-novice", views[0].ID)
	assert.False(t, views[0].Completed)
}

func TestListTasks_AvailableAfterPrerequisite(t *testing.T) {
	u := progressUser(listDefs, map[string]int{"content-novice": 3})
	users := &fakeUserRepo{users: map[string]*user.User{u.ID: u}}
	tasks := &fakeTaskRepo{defs: listDefs}

	h := NewListTasksHandler(users, tasks, nil)

	views, err := h.Available(context.Background(), ListTasksQuery{UserID: u.ID})
	require.NoError(t, err)

	// The completed prerequisite leaves the listing; its dependent enters.
	require.Len(t, views, 1)
	assert.Equal(t, "content-adept", views[0].ID)
}

func TestListTasks_AvailableScopedToCurrentLevel(t *testing.T) {
	defs := []task.Definition{
		{ID: "starter", Category: task.CategoryContent, Level: 1, Order: 1, Points: 120, RequiredCount: 1},
		{ID: "leftover", Category: task.CategoryContent, Level: 1, Order: 2, Points: 10, RequiredCount: 3},
		{ID: "current", Category: task.CategoryContent, Level: 2, Order: 1, Points: 20, RequiredCount: 3},
		{ID: "future", Category: task.CategoryLesson, Level: 3, Order: 1, Points: 100, RequiredCount: 1},
	}
	// Completing the starter pushes the user to level 2.
	u := progressUser(defs, map[string]int{"starter": 1})
	require.Equal(t, 2, u.Level)
	users := &fakeUserRepo{users: map[string]*user.User{u.ID: u}}
	tasks := &fakeTaskRepo{defs: defs}

	h := NewListTasksHandler(users, tasks, nil)

	views, err := h.Available(context.Background(), ListTasksQuery{UserID: u.ID})
	require.NoError(t, err)

	// Only the level-2 tier is listed: the unfinished level-1 task stays
	// behind and the level-3 task is not yet reachable.
	require.Len(t, views, 1)
	assert.Equal(t, "current", views[0].ID)
}

func TestListTasks_Completed(t *testing.T) {
	u := progressUser(listDefs, map[string]int{
		"content-novice": 4,
		"content-adept":  5,
	})
	users := &fakeUserRepo{users: map[string]*user.User{u.ID: u}}
	tasks := &fakeTaskRepo{defs: listDefs}

	h := NewListTasksHandler(users, tasks, nil)

	views, err := h.Completed(context.Background(), ListTasksQuery{UserID: u.ID})
	require.NoError(t, err)

	require.Len(t, views, 2)
	assert.Equal(t, "content-adept", views[0].ID, "highest reward first")
	assert.True(t, views[0].Completed)
	assert.NotNil(t, views[0].CompletedAt)
	assert.Equal(t, 4, views[1].Count, "count keeps rising past completion")
}

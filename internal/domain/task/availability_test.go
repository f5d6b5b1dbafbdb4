package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAvailable_NoPrerequisites(t *testing.T) {
	def := Definition{ID: "a", Category: CategoryContent, Level: 1, Points: 10, RequiredCount: 1}

	assert.True(t, IsAvailable(CompletedSet{}, def))
	assert.True(t, IsAvailable(nil, def))
}

func TestIsAvailable_SinglePrerequisite(t *testing.T) {
	def := Definition{ID: "b", Prerequisites: []string{"a"}}

	assert.False(t, IsAvailable(CompletedSet{}, def))
	assert.True(t, IsAvailable(CompletedSet{"a": true}, def))
}

func TestIsAvailable_AllPrerequisitesRequired(t *testing.T) {
	def := Definition{ID: "c", Prerequisites: []string{"a", "b"}}

	assert.False(t, IsAvailable(CompletedSet{"a": true}, def))
	assert.False(t, IsAvailable(CompletedSet{"b": true}, def))
	assert.True(t, IsAvailable(CompletedSet{"a": true, "b": true}, def))
}

// A three-deep chain: a <- b <- c. Availability of each node must track the
// completed set exactly, never skipping a level.
func TestIsAvailable_ChainDepthThree(t *testing.T) {
	a := Definition{ID: "a"}
	b := Definition{ID: "b", Prerequisites: []string{"a"}}
	c := Definition{ID: "c", Prerequisites: []string{"b"}}

	completed := CompletedSet{}
	assert.True(t, IsAvailable(completed, a))
	assert.False(t, IsAvailable(completed, b))
	assert.False(t, IsAvailable(completed, c))

	completed["a"] = true
	assert.True(t, IsAvailable(completed, b))
	assert.False(t, IsAvailable(completed, c))

	completed["b"] = true
	assert.True(t, IsAvailable(completed, c))
}

// Diamond DAG: d requires b and c, which both require a.
func TestIsAvailable_DiamondGraph(t *testing.T) {
	d := Definition{ID: "d", Prerequisites: []string{"b", "c"}}

	assert.False(t, IsAvailable(CompletedSet{"a": true, "b": true}, d))
	assert.True(t, IsAvailable(CompletedSet{"a": true, "b": true, "c": true}, d))
}

func TestFilterAvailable_PreservesOrder(t *testing.T) {
	defs := []Definition{
		{ID: "first"},
		{ID: "locked", Prerequisites: []string{"missing"}},
		{ID: "second", Prerequisites: []string{"first"}},
	}

	got := FilterAvailable(CompletedSet{"first": true}, defs)

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
}

func TestDefinitionValidate(t *testing.T) {
	valid := Definition{ID: "x", Category: CategoryLesson, Level: 1, Points: 10, RequiredCount: 1}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Definition)
	}{
		{"empty id", func(d *Definition) { d.ID = "" }},
		{"bad category", func(d *Definition) { d.Category = "BOGUS" }},
		{"negative points", func(d *Definition) { d.Points = -1 }},
		{"zero required count", func(d *Definition) { d.RequiredCount = 0 }},
		{"zero level", func(d *Definition) { d.Level = 0 }},
		{"self prerequisite", func(d *Definition) { d.Prerequisites = []string{"x"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			assert.Error(t, d.Validate())
		})
	}
}

// The seeded catalog must itself be valid and reference only catalog tasks
// as prerequisites.
func TestCatalogConsistency(t *testing.T) {
	defs := Catalog()
	require.NotEmpty(t, defs)

	ids := make(map[string]bool, len(defs))
	for _, d := range defs {
		require.NoError(t, d.Validate(), "task %s", d.ID)
		assert.False(t, ids[d.ID], "duplicate task ID %s", d.ID)
		ids[d.ID] = true
	}

	for _, d := range defs {
		for _, p := range d.Prerequisites {
			assert.True(t, ids[p], "task %s references unknown prerequisite %s", d.ID, p)
		}
	}
}

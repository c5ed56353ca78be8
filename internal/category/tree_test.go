package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func sample() []Category {
	return []Category{
		{ID: 1, Name: "Home"},
		{ID: 2, Name: "Plumbing", ParentID: ptr(1)},
		{ID: 3, Name: "Drains", ParentID: ptr(2)},
		{ID: 4, Name: "Electrical", ParentID: ptr(1)},
		{ID: 5, Name: "Tutoring"},
	}
}

func TestBuildTree(t *testing.T) {
	roots := BuildTree(sample())
	require.Len(t, roots, 2)

	assert.Equal(t, "Home", roots[0].Name)
	require.Len(t, roots[0].Children, 2)
	assert.Equal(t, "Plumbing", roots[0].Children[0].Name)
	require.Len(t, roots[0].Children[0].Children, 1)
	assert.Equal(t, "Drains", roots[0].Children[0].Children[0].Name)

	assert.Equal(t, "Tutoring", roots[1].Name)
	assert.Empty(t, roots[1].Children)
}

func TestBuildTreeOrphanBecomesRoot(t *testing.T) {
	cats := []Category{
		{ID: 2, Name: "Plumbing", ParentID: ptr(99)},
	}
	roots := BuildTree(cats)
	require.Len(t, roots, 1)
	assert.Equal(t, "Plumbing", roots[0].Name)
}

func TestAncestors(t *testing.T) {
	byID := make(map[int64]Category)
	for _, c := range sample() {
		byID[c.ID] = c
	}

	got := Ancestors(byID, 3)
	require.Len(t, got, 2)
	assert.Equal(t, "Plumbing", got[0].Name)
	assert.Equal(t, "Home", got[1].Name)

	assert.Empty(t, Ancestors(byID, 1))
	assert.Empty(t, Ancestors(byID, 42))
}

func TestAncestorsCycleTerminates(t *testing.T) {
	byID := map[int64]Category{
		1: {ID: 1, ParentID: ptr(2)},
		2: {ID: 2, ParentID: ptr(1)},
	}
	got := Ancestors(byID, 1)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestDescendants(t *testing.T) {
	got := Descendants(sample(), 1)
	ids := make([]int64, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []int64{2, 3, 4}, ids)

	assert.Empty(t, Descendants(sample(), 5))
}

func TestDescendantsCycleTerminates(t *testing.T) {
	cats := []Category{
		{ID: 1, ParentID: ptr(2)},
		{ID: 2, ParentID: ptr(1)},
	}
	got := Descendants(cats, 1)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

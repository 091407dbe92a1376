package carryover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clive/sprint-carryover/internal/model"
)

func workItems(ids ...int) []model.WorkItem {
	items := make([]model.WorkItem, len(ids))
	for i, id := range ids {
		items[i] = model.WorkItem{ID: id, WorkItemType: "Task", Title: "item", State: "Active"}
	}
	return items
}

func TestSelectionDefaultsToAllIncluded(t *testing.T) {
	s := NewSelection(workItems(1, 2, 3, 4, 5))

	assert.Equal(t, []int{1, 2, 3, 4, 5}, s.IncludedIDs())
	assert.Equal(t, 5, s.Count())
	assert.Equal(t, 5, s.Len())
}

func TestSelectionToggle(t *testing.T) {
	s := NewSelection(workItems(1, 2, 3))

	require.NoError(t, s.SetIncluded(2, false))
	assert.Equal(t, []int{1, 3}, s.IncludedIDs())
	assert.False(t, s.Included(2))

	require.NoError(t, s.SetIncluded(2, true))
	assert.Equal(t, []int{1, 2, 3}, s.IncludedIDs())
}

func TestSelectionRejectsUnknownID(t *testing.T) {
	s := NewSelection(workItems(1, 2))

	err := s.SetIncluded(99, true)
	assert.ErrorIs(t, err, ErrUnknownItem)
	assert.Equal(t, []int{1, 2}, s.IncludedIDs())
	assert.False(t, s.Included(99))
}

func TestSelectionSetAll(t *testing.T) {
	s := NewSelection(workItems(1, 2, 3))

	s.SetAllIncluded(false)
	assert.Empty(t, s.IncludedIDs())
	assert.Equal(t, 0, s.Count())

	s.SetAllIncluded(true)
	assert.Len(t, s.IncludedIDs(), 3)
}

func TestSelectionResetDropsStaleFlags(t *testing.T) {
	s := NewSelection(workItems(1, 2, 3))
	require.NoError(t, s.SetIncluded(1, false))

	s.Reset(workItems(1, 4))

	assert.Equal(t, []int{1, 4}, s.IncludedIDs(), "reload includes everything again")
	assert.ErrorIs(t, s.SetIncluded(3, true), ErrUnknownItem)
}

func TestSelectionFilterKeepsOrder(t *testing.T) {
	items := workItems(5, 3, 9)
	s := NewSelection(items)
	require.NoError(t, s.SetIncluded(3, false))

	got := s.Filter(items)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].ID)
	assert.Equal(t, 9, got[1].ID)
}

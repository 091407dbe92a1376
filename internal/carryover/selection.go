package carryover

import (
	"errors"
	"fmt"

	"github.com/clive/sprint-carryover/internal/model"
)

// ErrUnknownItem is returned when toggling an id that is not currently loaded
var ErrUnknownItem = errors.New("work item is not in the current list")

// Selection tracks which of the loaded work items are included in the next
// carry-over. Every loaded item has exactly one flag.
type Selection struct {
	order    []int
	included map[int]bool
}

// NewSelection creates a selection with every item included
func NewSelection(items []model.WorkItem) *Selection {
	s := &Selection{}
	s.Reset(items)
	return s
}

// Reset replaces the tracked items, dropping flags for items no longer
// present and including every new item.
func (s *Selection) Reset(items []model.WorkItem) {
	s.order = make([]int, 0, len(items))
	s.included = make(map[int]bool, len(items))
	for _, item := range items {
		if _, dup := s.included[item.ID]; dup {
			continue
		}
		s.order = append(s.order, item.ID)
		s.included[item.ID] = true
	}
}

// SetIncluded sets the flag for a single item
func (s *Selection) SetIncluded(id int, included bool) error {
	if _, ok := s.included[id]; !ok {
		return fmt.Errorf("#%d: %w", id, ErrUnknownItem)
	}
	s.included[id] = included
	return nil
}

// SetAllIncluded sets every flag at once
func (s *Selection) SetAllIncluded(included bool) {
	for id := range s.included {
		s.included[id] = included
	}
}

// Included reports whether the item is included
func (s *Selection) Included(id int) bool {
	return s.included[id]
}

// IncludedIDs returns the included ids in load order
func (s *Selection) IncludedIDs() []int {
	ids := make([]int, 0, len(s.order))
	for _, id := range s.order {
		if s.included[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// Count returns the number of included items
func (s *Selection) Count() int {
	n := 0
	for _, v := range s.included {
		if v {
			n++
		}
	}
	return n
}

// Len returns the number of tracked items
func (s *Selection) Len() int {
	return len(s.order)
}

// Filter returns the included items, preserving their order
func (s *Selection) Filter(items []model.WorkItem) []model.WorkItem {
	var out []model.WorkItem
	for _, item := range items {
		if s.included[item.ID] {
			out = append(out, item)
		}
	}
	return out
}

package carryover

import (
	"sort"
	"time"

	"github.com/clive/sprint-carryover/internal/model"
)

// Defaults is the result of the sprint auto-selection. Empty ids mean no
// default could be chosen for that side.
type Defaults struct {
	SourceID      string
	DestinationID string
	Note          string
}

// SortIterations orders iterations by start date, most recent first
func SortIterations(iterations []model.Iteration) {
	sort.SliceStable(iterations, func(i, j int) bool {
		return iterations[i].StartDate.After(iterations[j].StartDate)
	})
}

// SelectDefaults picks a destination and source iteration relative to now.
//
// The destination is the iteration whose start date is closest to now (first
// one wins on ties). The source is the iteration with the latest start date
// strictly before the destination's. The result does not depend on input
// order except for tie-breaking.
func SelectDefaults(iterations []model.Iteration, now time.Time) Defaults {
	switch len(iterations) {
	case 0:
		return Defaults{Note: "No sprints found for this team"}
	case 1:
		return Defaults{Note: "Only one sprint available - please add more sprints for transfer functionality"}
	}

	destIdx := -1
	var smallest time.Duration
	for i, it := range iterations {
		diff := absDuration(it.StartDate.Sub(now))
		if destIdx == -1 || diff < smallest {
			smallest = diff
			destIdx = i
		}
	}

	dest := iterations[destIdx]
	srcIdx := -1
	for i, it := range iterations {
		if i == destIdx {
			continue
		}
		if !it.StartDate.Before(dest.StartDate) {
			continue
		}
		if srcIdx == -1 || it.StartDate.After(iterations[srcIdx].StartDate) {
			srcIdx = i
		}
	}

	d := Defaults{DestinationID: dest.ID}
	if srcIdx != -1 {
		d.SourceID = iterations[srcIdx].ID
	}
	return d
}

// absDuration returns |d|, saturating at the maximum duration
func absDuration(d time.Duration) time.Duration {
	if d >= 0 {
		return d
	}
	if d == time.Duration(-1<<63) {
		return time.Duration(1<<63 - 1)
	}
	return -d
}

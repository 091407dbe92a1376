package carryover

import (
	"context"

	"github.com/clive/sprint-carryover/internal/model"
)

// Outcome is the result of patching a single work item
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// ItemResult records what happened to one work item during a run
type ItemResult struct {
	ID      int     `json:"id"`
	Title   string  `json:"title"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}

// Report summarises a carry-over run. Attempted always equals the number of
// items handed to Execute.
type Report struct {
	DestinationPath string       `json:"destination_path"`
	Attempted       int          `json:"attempted"`
	Succeeded       int          `json:"succeeded"`
	Items           []ItemResult `json:"items"`
}

// Failed returns the number of items that could not be moved
func (r Report) Failed() int {
	return r.Attempted - r.Succeeded
}

// PatchFunc moves a single work item to the destination path
type PatchFunc func(ctx context.Context, item model.WorkItem, destinationPath string) error

// Execute moves each item to destinationPath, one at a time and in order.
// A failing item never stops the run; its error is recorded and the next item
// is attempted. observe, when non-nil, is called after each item.
//
// There is no rollback: items moved before a failure stay moved.
func Execute(ctx context.Context, items []model.WorkItem, destinationPath string, apply PatchFunc, observe func(ItemResult)) Report {
	report := Report{
		DestinationPath: destinationPath,
		Items:           make([]ItemResult, 0, len(items)),
	}

	for _, item := range items {
		result := ItemResult{ID: item.ID, Title: item.Title}

		// A cancelled context still counts every item as attempted so the
		// report stays consistent with the input.
		err := ctx.Err()
		if err == nil {
			err = apply(ctx, item, destinationPath)
		}

		report.Attempted++
		if err != nil {
			result.Outcome = OutcomeFailed
			result.Detail = err.Error()
		} else {
			result.Outcome = OutcomeSucceeded
			report.Succeeded++
		}
		report.Items = append(report.Items, result)

		if observe != nil {
			observe(result)
		}
	}

	return report
}

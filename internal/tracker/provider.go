package tracker

import (
	"context"

	"github.com/clive/sprint-carryover/internal/carryover"
	"github.com/clive/sprint-carryover/internal/model"
)

// Provider defines the interface for work tracking systems
type Provider interface {
	// Name returns the display name of the tracker
	Name() string

	// IsAvailable checks if the tracker is configured and accessible
	IsAvailable(ctx context.Context) bool

	// ListIterations returns the team's iterations in service order
	ListIterations(ctx context.Context) ([]model.Iteration, error)

	// QueryWorkItems runs the query and returns matching ids
	QueryWorkItems(ctx context.Context, q carryover.Query) ([]int, error)

	// GetWorkItems returns the details of the given items
	GetWorkItems(ctx context.Context, ids []int) ([]model.WorkItem, error)

	// PatchIterationPath moves one item to another iteration
	PatchIterationPath(ctx context.Context, id int, path string) error
}

var _ carryover.Repository = Provider(nil)

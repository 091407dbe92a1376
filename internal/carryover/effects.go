package carryover

import "github.com/clive/sprint-carryover/internal/model"

// Effect is an outbound call the session asks its driver to perform.
// Handlers never talk to the repository directly.
type Effect interface {
	isEffect()
}

// LoadIterations fetches the team's iterations
type LoadIterations struct{}

// LoadItems fetches the open work items of an iteration
type LoadItems struct {
	Iteration model.Iteration
}

// RunCarryOver moves Items into Destination, one at a time
type RunCarryOver struct {
	Source      model.Iteration
	Destination model.Iteration
	Items       []model.WorkItem
}

func (LoadIterations) isEffect() {}
func (LoadItems) isEffect()      {}
func (RunCarryOver) isEffect()   {}

// Event is the completion of an effect, fed back into Session.Apply
type Event interface {
	isEvent()
}

// IterationsLoaded completes LoadIterations
type IterationsLoaded struct {
	Iterations []model.Iteration
	Err        error
}

// ItemsLoaded completes LoadItems
type ItemsLoaded struct {
	IterationID string
	Items       []model.WorkItem
	Err         error
}

// ItemPatched reports progress inside a carry-over run
type ItemPatched struct {
	Result ItemResult
}

// CarryOverFinished completes RunCarryOver
type CarryOverFinished struct {
	RunID     string
	Report    Report
	RecordErr error
}

func (IterationsLoaded) isEvent()  {}
func (ItemsLoaded) isEvent()       {}
func (ItemPatched) isEvent()       {}
func (CarryOverFinished) isEvent() {}

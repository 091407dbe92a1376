package carryover

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clive/sprint-carryover/internal/model"
)

// Repository is the remote work tracking API the runner talks to
type Repository interface {
	ListIterations(ctx context.Context) ([]model.Iteration, error)
	QueryWorkItems(ctx context.Context, q Query) ([]int, error)
	GetWorkItems(ctx context.Context, ids []int) ([]model.WorkItem, error)
	PatchIterationPath(ctx context.Context, id int, path string) error
}

// Run is a finished carry-over as handed to a Recorder
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Source      model.Iteration
	Destination model.Iteration
	Report      Report
}

// Recorder persists finished runs
type Recorder interface {
	Record(ctx context.Context, run Run) error
}

// Runner performs session effects against a Repository
type Runner struct {
	repo     Repository
	recorder Recorder
	logger   *zap.Logger
	observe  func(Event)
	now      func() time.Time
	dryRun   bool
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithRecorder stores every finished run
func WithRecorder(r Recorder) RunnerOption {
	return func(rn *Runner) {
		rn.recorder = r
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(l *zap.Logger) RunnerOption {
	return func(rn *Runner) {
		if l != nil {
			rn.logger = l
		}
	}
}

// WithDryRun makes RunCarryOver report success without patching anything
func WithDryRun(enabled bool) RunnerOption {
	return func(rn *Runner) {
		rn.dryRun = enabled
	}
}

// WithObserver is called by Drive after each event has been applied to the
// session, including per-item progress
func WithObserver(fn func(Event)) RunnerOption {
	return func(rn *Runner) {
		rn.observe = fn
	}
}

// NewRunner creates a runner over repo
func NewRunner(repo Repository, opts ...RunnerOption) *Runner {
	r := &Runner{
		repo:   repo,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Perform executes a single effect and returns its completion event.
// progress receives per-item results while a carry-over is running.
func (r *Runner) Perform(ctx context.Context, eff Effect, progress func(ItemResult)) Event {
	switch eff := eff.(type) {
	case LoadIterations:
		iterations, err := r.repo.ListIterations(ctx)
		if err != nil {
			r.logger.Warn("list iterations failed", zap.Error(err))
			return IterationsLoaded{Err: err}
		}
		r.logger.Debug("iterations loaded", zap.Int("count", len(iterations)))
		return IterationsLoaded{Iterations: iterations}

	case LoadItems:
		items, err := r.loadItems(ctx, eff.Iteration)
		if err != nil {
			r.logger.Warn("load work items failed",
				zap.String("iteration", eff.Iteration.Path), zap.Error(err))
		}
		return ItemsLoaded{IterationID: eff.Iteration.ID, Items: items, Err: err}

	case RunCarryOver:
		return r.carryOver(ctx, eff, progress)
	}

	panic(fmt.Sprintf("carryover: unknown effect %T", eff))
}

// Drive performs effects until the session has nothing left to do. Progress
// events are applied to the session as they happen. The last carry-over
// result is returned, or nil when no run was performed.
func (r *Runner) Drive(ctx context.Context, s *Session, effects []Effect) *CarryOverFinished {
	var finished *CarryOverFinished
	queue := effects
	for len(queue) > 0 {
		eff := queue[0]
		queue = queue[1:]

		ev := r.Perform(ctx, eff, func(res ItemResult) {
			r.apply(s, ItemPatched{Result: res})
		})
		if f, ok := ev.(CarryOverFinished); ok {
			finished = &f
		}
		queue = append(queue, r.apply(s, ev)...)
	}
	return finished
}

func (r *Runner) apply(s *Session, ev Event) []Effect {
	follow := s.Apply(ev)
	if r.observe != nil {
		r.observe(ev)
	}
	return follow
}

func (r *Runner) loadItems(ctx context.Context, it model.Iteration) ([]model.WorkItem, error) {
	q := BuildOpenItemsQuery(it.Path)
	ids, err := r.repo.QueryWorkItems(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query work items: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	items, err := r.repo.GetWorkItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load work item details: %w", err)
	}
	return items, nil
}

func (r *Runner) carryOver(ctx context.Context, eff RunCarryOver, progress func(ItemResult)) Event {
	run := Run{
		ID:          uuid.NewString(),
		StartedAt:   r.now(),
		Source:      eff.Source,
		Destination: eff.Destination,
	}
	logger := r.logger.With(zap.String("run", run.ID))
	logger.Info("carry-over started",
		zap.String("from", eff.Source.Path),
		zap.String("to", eff.Destination.Path),
		zap.Int("items", len(eff.Items)))

	apply := func(ctx context.Context, item model.WorkItem, path string) error {
		if r.dryRun {
			return nil
		}
		return r.repo.PatchIterationPath(ctx, item.ID, path)
	}
	observe := func(res ItemResult) {
		if res.Outcome == OutcomeFailed {
			logger.Warn("work item not moved", zap.Int("id", res.ID), zap.String("detail", res.Detail))
		} else {
			logger.Debug("work item moved", zap.Int("id", res.ID))
		}
		if progress != nil {
			progress(res)
		}
	}

	run.Report = Execute(ctx, eff.Items, eff.Destination.Path, apply, observe)
	run.FinishedAt = r.now()
	logger.Info("carry-over finished",
		zap.Int("attempted", run.Report.Attempted),
		zap.Int("succeeded", run.Report.Succeeded))

	ev := CarryOverFinished{RunID: run.ID, Report: run.Report}
	if r.recorder != nil && !r.dryRun {
		// History is kept even when the caller was cancelled mid-run
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := r.recorder.Record(recCtx, run); err != nil {
			logger.Error("record run failed", zap.Error(err))
			ev.RecordErr = err
		}
	}
	return ev
}

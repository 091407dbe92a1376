package carryover

import (
	"context"
	"errors"
	"fmt"

	"github.com/clive/sprint-carryover/internal/model"
)

// fakeRepo is an in-memory Repository
type fakeRepo struct {
	iterations    []model.Iteration
	iterationsErr error
	items         map[int]model.WorkItem
	queryErr      error
	detailsErr    error
	failPatch     map[int]error

	queries []Query
	patched []int
}

func newFakeRepo(iterations []model.Iteration, items ...model.WorkItem) *fakeRepo {
	r := &fakeRepo{
		iterations: iterations,
		items:      make(map[int]model.WorkItem),
		failPatch:  make(map[int]error),
	}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (r *fakeRepo) ListIterations(ctx context.Context) ([]model.Iteration, error) {
	return r.iterations, r.iterationsErr
}

func (r *fakeRepo) QueryWorkItems(ctx context.Context, q Query) ([]int, error) {
	r.queries = append(r.queries, q)
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	var ids []int
	for id, it := range r.items {
		if it.IterationPath == q.IterationPath && !model.IsTerminalState(it.State) {
			ids = append(ids, id)
		}
	}
	sortInts(ids)
	return ids, nil
}

func (r *fakeRepo) GetWorkItems(ctx context.Context, ids []int) ([]model.WorkItem, error) {
	if r.detailsErr != nil {
		return nil, r.detailsErr
	}
	out := make([]model.WorkItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.items[id])
	}
	return out, nil
}

func (r *fakeRepo) PatchIterationPath(ctx context.Context, id int, path string) error {
	r.patched = append(r.patched, id)
	if err := r.failPatch[id]; err != nil {
		return err
	}
	it, ok := r.items[id]
	if !ok {
		return fmt.Errorf("work item %d does not exist", id)
	}
	it.IterationPath = path
	r.items[id] = it
	return nil
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}

var errBoom = errors.New("TF401320: rule error")

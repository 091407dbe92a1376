package carryover

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clive/sprint-carryover/internal/model"
)

func fixedClock() time.Time {
	return day("2024-01-16")
}

func threeSprints() []model.Iteration {
	return []model.Iteration{
		sprint("A", "2024-01-01"),
		sprint("B", "2024-01-15"),
		sprint("C", "2024-02-01"),
	}
}

func openItem(id int, path string) model.WorkItem {
	return model.WorkItem{ID: id, WorkItemType: "Task", Title: "task", State: "Active", IterationPath: path}
}

// loadedSession returns a session driven through Load against repo
func loadedSession(t *testing.T, repo *fakeRepo, opts ...Option) (*Session, *Runner) {
	t.Helper()
	s := NewSession(append([]Option{WithClock(fixedClock)}, opts...)...)
	r := NewRunner(repo)
	r.Drive(context.Background(), s, s.Load())
	return s, r
}

func countLog(s *Session, sev model.Severity, contains string) int {
	n := 0
	for _, e := range s.Log() {
		if e.Severity == sev && strings.Contains(e.Message, contains) {
			n++
		}
	}
	return n
}

func itemIDs(items []model.WorkItem) []int {
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func TestSessionLoadAutoSelects(t *testing.T) {
	srcPath := sprint("A", "2024-01-01").Path
	repo := newFakeRepo(threeSprints(),
		openItem(1, srcPath),
		openItem(2, srcPath),
		model.WorkItem{ID: 3, State: "Done", IterationPath: srcPath},
	)

	s, _ := loadedSession(t, repo)

	var ids []string
	for _, it := range s.Iterations() {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"C", "B", "A"}, ids, "most recent first")
	assert.Equal(t, "A", s.SourceID())
	assert.Equal(t, "B", s.DestinationID())
	assert.Equal(t, []int{1, 2}, itemIDs(s.Items()))
	assert.Equal(t, []int{1, 2}, s.Selection().IncludedIDs())
	assert.True(t, s.CanCarryOver())
	assert.False(t, s.Loading())
	require.Len(t, repo.queries, 1)
	assert.Equal(t, srcPath, repo.queries[0].IterationPath)
}

func TestSessionLoadWithoutAutoLoad(t *testing.T) {
	repo := newFakeRepo(threeSprints(), openItem(1, sprint("A", "2024-01-01").Path))

	s, _ := loadedSession(t, repo, WithAutoLoad(false))

	assert.Equal(t, "A", s.SourceID())
	assert.Empty(t, s.Items())
	assert.Empty(t, repo.queries)
}

func TestSessionLoadSingleSprint(t *testing.T) {
	repo := newFakeRepo([]model.Iteration{sprint("A", "2024-01-01")})

	s, _ := loadedSession(t, repo)

	assert.Empty(t, s.SourceID())
	assert.Empty(t, s.DestinationID())
	assert.Equal(t, 1, countLog(s, model.SeverityInfo, "Only one sprint available"))
}

func TestSessionLoadFailure(t *testing.T) {
	repo := newFakeRepo(nil)
	repo.iterationsErr = errors.New("401 Unauthorized")

	s, _ := loadedSession(t, repo)

	assert.Empty(t, s.Iterations())
	assert.Equal(t, 1, countLog(s, model.SeverityError, "Error loading sprints: 401 Unauthorized"))
	assert.False(t, s.Loading())
}

func TestSessionSourceChangeReloadsItems(t *testing.T) {
	pathA := sprint("A", "2024-01-01").Path
	pathC := sprint("C", "2024-02-01").Path
	repo := newFakeRepo(threeSprints(), openItem(1, pathA), openItem(2, pathA), openItem(3, pathC))
	s, r := loadedSession(t, repo)
	require.NoError(t, s.Toggle(1, false))

	r.Drive(context.Background(), s, s.SelectSource("C"))

	assert.Equal(t, []int{3}, itemIDs(s.Items()))
	assert.Equal(t, []int{3}, s.Selection().IncludedIDs())
	assert.ErrorIs(t, s.Toggle(1, true), ErrUnknownItem, "flags of the old list are gone")
}

func TestSessionSelectUnknownSource(t *testing.T) {
	repo := newFakeRepo(threeSprints(), openItem(1, sprint("A", "2024-01-01").Path))
	s, _ := loadedSession(t, repo)

	effects := s.SelectSource("nope")

	assert.Empty(t, effects)
	assert.Empty(t, s.SourceID())
	assert.Empty(t, s.Items())
	assert.Equal(t, 1, countLog(s, model.SeverityError, "Sprint not found"))
}

func TestSessionDestinationChangeFetchesNothing(t *testing.T) {
	repo := newFakeRepo(threeSprints())
	s, _ := loadedSession(t, repo)
	queries := len(repo.queries)

	assert.Empty(t, s.SelectDestination("C"))
	assert.Equal(t, "C", s.DestinationID())
	assert.Len(t, repo.queries, queries)

	assert.Empty(t, s.SelectDestination("missing"))
	assert.Equal(t, "C", s.DestinationID(), "unknown destination is ignored")
}

func TestSessionStaleItemsResponseIsDropped(t *testing.T) {
	repo := newFakeRepo(threeSprints())
	s, _ := loadedSession(t, repo)
	s.SelectSource("C")

	s.Apply(ItemsLoaded{IterationID: "A", Items: workItems(1, 2)})

	assert.Empty(t, s.Items())
	assert.True(t, s.Loading(), "still waiting on sprint C")
}

func TestSessionItemQueryFailureClearsList(t *testing.T) {
	pathA := sprint("A", "2024-01-01").Path
	repo := newFakeRepo(threeSprints(), openItem(1, pathA))
	s, r := loadedSession(t, repo)
	require.Len(t, s.Items(), 1)

	repo.queryErr = errors.New("TF51005: malformed query")
	r.Drive(context.Background(), s, s.SelectSource("A"))

	assert.Empty(t, s.Items())
	assert.Equal(t, 0, s.Selection().Len())
	assert.Equal(t, 1, countLog(s, model.SeverityError, "TF51005"))
}

func TestSessionPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(s *Session)
		wantErr error
	}{
		{
			name:    "no source",
			prepare: func(s *Session) { s.SelectSource("") },
			wantErr: ErrNoSource,
		},
		{
			name:    "no destination",
			prepare: func(s *Session) { s.SelectDestination("") },
			wantErr: ErrNoDestination,
		},
		{
			name:    "nothing selected",
			prepare: func(s *Session) { s.SelectNone() },
			wantErr: ErrNothingSelected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pathA := sprint("A", "2024-01-01").Path
			repo := newFakeRepo(threeSprints(), openItem(1, pathA), openItem(2, pathA))
			s, _ := loadedSession(t, repo)
			tt.prepare(s)

			effects, err := s.StartCarryOver()

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, effects)
			assert.False(t, s.Running())
			assert.False(t, s.CanCarryOver())
			assert.Empty(t, repo.patched, "no network call")
			last := s.Log()[len(s.Log())-1]
			assert.Equal(t, model.SeverityError, last.Severity)
		})
	}
}

func TestSessionRejectsSecondRun(t *testing.T) {
	pathA := sprint("A", "2024-01-01").Path
	repo := newFakeRepo(threeSprints(), openItem(1, pathA))
	s, _ := loadedSession(t, repo)

	effects, err := s.StartCarryOver()
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.True(t, s.Running())
	assert.False(t, s.CanCarryOver())

	_, err = s.StartCarryOver()
	assert.ErrorIs(t, err, ErrRunning)
}

func TestSessionCarryOverScenario(t *testing.T) {
	pathA := sprint("A", "2024-01-01").Path
	pathB := sprint("B", "2024-01-15").Path
	repo := newFakeRepo(threeSprints(),
		openItem(1, pathA), openItem(2, pathA), openItem(3, pathA), openItem(4, pathA), openItem(5, pathA))
	repo.failPatch[2] = errBoom
	repo.failPatch[5] = errBoom

	s, r := loadedSession(t, repo)
	require.Len(t, s.Items(), 5)
	require.NoError(t, s.Toggle(3, false))
	queriesBefore := len(repo.queries)

	effects, err := s.StartCarryOver()
	require.NoError(t, err)
	require.Len(t, effects, 1)
	run, ok := effects[0].(RunCarryOver)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 4, 5}, itemIDs(run.Items))
	assert.Equal(t, pathB, run.Destination.Path)

	ev := r.Perform(context.Background(), run, func(res ItemResult) {
		s.Apply(ItemPatched{Result: res})
	})
	finished, ok := ev.(CarryOverFinished)
	require.True(t, ok)
	assert.Equal(t, 4, finished.Report.Attempted)
	assert.Equal(t, 2, finished.Report.Succeeded)
	assert.NotEmpty(t, finished.RunID)

	follow := s.Apply(finished)
	require.Len(t, follow, 1, "reload is requested despite failures")
	assert.IsType(t, LoadItems{}, follow[0])
	assert.False(t, s.Running())

	assert.Equal(t, 2, countLog(s, model.SeverityError, "Error with Work Item #"))
	assert.Equal(t, 2, countLog(s, model.SeveritySuccess, "transferred"))
	assert.Equal(t, 1, countLog(s, model.SeverityInfo, "Transfer completed: 2/4"))

	r.Drive(context.Background(), s, follow)
	assert.Len(t, repo.queries, queriesBefore+1)
	assert.Equal(t, []int{2, 3, 5}, itemIDs(s.Items()), "only items left behind remain")
	assert.Equal(t, pathB, repo.items[1].IterationPath)
	assert.Equal(t, pathB, repo.items[4].IterationPath)
	assert.Equal(t, pathA, repo.items[3].IterationPath)
}

func TestSessionFinishedWithoutSourceClearsItems(t *testing.T) {
	pathA := sprint("A", "2024-01-01").Path
	repo := newFakeRepo(threeSprints(), openItem(1, pathA))
	s, _ := loadedSession(t, repo)
	_, err := s.StartCarryOver()
	require.NoError(t, err)
	s.sourceID = ""

	follow := s.Apply(CarryOverFinished{Report: Report{Attempted: 1, Succeeded: 1}})

	assert.Empty(t, follow)
	assert.Empty(t, s.Items())
}

func TestSessionRecordErrorIsLogged(t *testing.T) {
	s := NewSession(WithClock(fixedClock))
	s.running = true

	s.Apply(CarryOverFinished{Report: Report{}, RecordErr: errors.New("disk full")})

	assert.Equal(t, 1, countLog(s, model.SeverityError, "disk full"))
}

func TestSessionLogIsBounded(t *testing.T) {
	s := NewSession(WithClock(fixedClock))
	for i := 0; i < maxLogLines+50; i++ {
		s.info("line")
	}
	assert.Len(t, s.Log(), maxLogLines)
}

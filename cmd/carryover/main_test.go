package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/clive/sprint-carryover/internal/carryover"
	"github.com/clive/sprint-carryover/internal/config"
	"github.com/clive/sprint-carryover/internal/journal"
	"github.com/clive/sprint-carryover/internal/model"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testSprints() []model.Iteration {
	mk := func(id, name, start string) model.Iteration {
		st := date(start)
		return model.Iteration{ID: id, Name: name, Path: `Fiber\` + name, StartDate: st, FinishDate: st.AddDate(0, 0, 11)}
	}
	return []model.Iteration{
		mk("s1", "Sprint 1", "2024-01-01"),
		mk("s2", "Sprint 2", "2024-01-15"),
		mk("s3", "Sprint 3", "2030-01-29"),
	}
}

// stubRepo is an in-memory Repository
type stubRepo struct {
	iterations []model.Iteration
	items      map[int]*model.WorkItem
	listErr    error
	fail       map[int]bool
}

func newStubRepo(items ...model.WorkItem) *stubRepo {
	r := &stubRepo{iterations: testSprints(), items: map[int]*model.WorkItem{}, fail: map[int]bool{}}
	for i := range items {
		it := items[i]
		r.items[it.ID] = &it
	}
	return r
}

func (r *stubRepo) ListIterations(ctx context.Context) ([]model.Iteration, error) {
	return r.iterations, r.listErr
}

func (r *stubRepo) QueryWorkItems(ctx context.Context, q carryover.Query) ([]int, error) {
	var ids []int
	for id := 1; id <= 100; id++ {
		it, ok := r.items[id]
		if ok && it.IterationPath == q.IterationPath && !model.IsTerminalState(it.State) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *stubRepo) GetWorkItems(ctx context.Context, ids []int) ([]model.WorkItem, error) {
	out := make([]model.WorkItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.items[id])
	}
	return out, nil
}

func (r *stubRepo) PatchIterationPath(ctx context.Context, id int, path string) error {
	if r.fail[id] {
		return errors.New("TF401347: Invalid tree name")
	}
	r.items[id].IterationPath = path
	return nil
}

func task(id int, sprint, state string) model.WorkItem {
	return model.WorkItem{ID: id, WorkItemType: "Task", Title: "task", State: state, IterationPath: `Fiber\` + sprint}
}

func testApp(t *testing.T, repo *stubRepo, opts ...carryover.RunnerOption) *app {
	t.Helper()
	return &app{
		cfg:    config.DefaultConfig(),
		logger: zaptest.NewLogger(t),
		runner: carryover.NewRunner(repo, opts...),
	}
}

func TestFindIteration(t *testing.T) {
	sprints := append(testSprints(), model.Iteration{ID: "x", Name: "sprint 1", Path: `Other\Sprint 1`})

	tests := []struct {
		key     string
		wantID  string
		wantErr string
	}{
		{key: "s2", wantID: "s2"},
		{key: `Fiber\Sprint 3`, wantID: "s3"},
		{key: "SPRINT 2", wantID: "s2"},
		{key: "Sprint 1", wantErr: "matches 2 sprints"},
		{key: "Sprint 9", wantErr: "sprint not found: Sprint 9"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			it, err := findIteration(sprints, tt.key)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, it.ID)
		})
	}

	_, err := findIteration(sprints, "nope")
	assert.ErrorIs(t, err, carryover.ErrUnknownIteration)
}

func TestLoadSessionWithExplicitSprints(t *testing.T) {
	repo := newStubRepo(task(1, "Sprint 1", "Active"), task(2, "Sprint 2", "New"), task(3, "Sprint 1", "Done"))
	a := testApp(t, repo)
	s := a.newSession(carryover.WithAutoLoad(false))

	s, err := loadSession(context.Background(), a, s, "Sprint 1", "s3")
	require.NoError(t, err)

	assert.Equal(t, "s1", s.SourceID())
	assert.Equal(t, "s3", s.DestinationID())
	require.Len(t, s.Items(), 1)
	assert.Equal(t, 1, s.Items()[0].ID)
}

func TestLoadSessionErrors(t *testing.T) {
	repo := newStubRepo()
	a := testApp(t, repo)

	_, err := prepareSession(context.Background(), a, "Sprint 7", "")
	assert.ErrorContains(t, err, "source: sprint not found")

	_, err = prepareSession(context.Background(), a, "", "Sprint 7")
	assert.ErrorContains(t, err, "destination: sprint not found")

	repo.listErr = errors.New("HTTP 401: Unauthorized")
	_, err = prepareSession(context.Background(), a, "", "")
	assert.ErrorContains(t, err, "Error loading sprints: HTTP 401: Unauthorized")

	repo.listErr = nil
	repo.iterations = nil
	_, err = prepareSession(context.Background(), a, "", "")
	assert.EqualError(t, err, "the team has no sprints")
}

func TestLogPrinterStreamsRun(t *testing.T) {
	repo := newStubRepo(task(1, "Sprint 1", "Active"), task(2, "Sprint 1", "Active"))
	repo.fail[2] = true

	var buf bytes.Buffer
	printer := &logPrinter{w: &buf}
	a := testApp(t, repo, carryover.WithObserver(printer.observe))
	printer.session = a.newSession(carryover.WithAutoLoad(false))

	s, err := loadSession(context.Background(), a, printer.session, "s1", "s2")
	require.NoError(t, err)
	effects, err := s.StartCarryOver()
	require.NoError(t, err)
	finished := a.runner.Drive(context.Background(), s, effects)

	require.NotNil(t, finished)
	assert.Equal(t, 1, finished.Report.Failed())
	out := buf.String()
	assert.Contains(t, out, "Error with Work Item #2")
	assert.Contains(t, out, "Transfer completed: 1/2 work items successfully transferred")
	assert.Equal(t, len(s.Log()), bytes.Count(buf.Bytes(), []byte("\n")), "every line printed once")
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)
	for _, env := range []string{config.EnvOrgURL, config.EnvProject, config.EnvTeam, config.EnvPAT} {
		t.Setenv(env, "")
	}
	chdir(t, t.TempDir())

	configPath, orgURL, project, team = "", "https://dev.azure.com/fabrikam", "Fiber", ""
	t.Cleanup(func() { orgURL, project = "", "" })

	c, err := loadConfig()
	require.NoError(t, err)
	require.NotNil(t, c.AzureDevOps)
	assert.Equal(t, "https://dev.azure.com/fabrikam", c.AzureDevOps.OrganizationURL)
	assert.Equal(t, "Fiber", c.AzureDevOps.Project)
	assert.Empty(t, c.AzureDevOps.Team)
}

func TestPrintSprintsMarksDefaults(t *testing.T) {
	repo := newStubRepo()
	repo.iterations = append(repo.iterations, model.Iteration{ID: "b", Name: "Backlog", Path: `Fiber\Backlog`})
	a := testApp(t, repo)
	s := a.newSession(carryover.WithAutoLoad(false), carryover.WithClock(func() time.Time { return date("2024-01-16") }))
	a.runner.Drive(context.Background(), s, s.Load())

	var buf bytes.Buffer
	printSprints(&buf, s)
	out := buf.String()

	assert.Regexp(t, `>\s+Sprint 2\s+1/15/2024`, out)
	assert.Regexp(t, `<\s+Sprint 1\s+1/1/2024`, out)
	assert.Regexp(t, `Backlog\s+N/A\s+N/A`, out)
}

func TestPrintHistory(t *testing.T) {
	entries := []journal.Entry{{
		ID: "run-1", StartedAt: date("2024-01-16"), SourceName: "Sprint 1", DestinationName: "Sprint 2",
		Attempted: 3, Succeeded: 2,
	}}

	var buf bytes.Buffer
	printHistory(&buf, entries)

	assert.Regexp(t, `run-1\s+\S+ \S+\s+Sprint 1\s+Sprint 2\s+2/3\s+1`, buf.String())
}

func TestPrintItemsEmpty(t *testing.T) {
	var buf bytes.Buffer
	printItems(&buf, nil)
	assert.Equal(t, "Nothing to carry over\n", buf.String())
}

package carryover

import (
	"errors"
	"fmt"
	"time"

	"github.com/clive/sprint-carryover/internal/model"
)

// Precondition errors returned by StartCarryOver
var (
	ErrNoSource         = errors.New("no source sprint selected")
	ErrNoDestination    = errors.New("no destination sprint selected")
	ErrNothingSelected  = errors.New("no work items selected for transfer")
	ErrRunning          = errors.New("a transfer is already running")
	ErrTargetNotFound   = errors.New("target sprint path not found")
	ErrUnknownIteration = errors.New("sprint not found")
)

// maxLogLines bounds the session log
const maxLogLines = 500

// Session holds the state of one interactive carry-over session. Handlers
// mutate the session and return the effects the caller must perform; results
// come back through Apply.
type Session struct {
	now      func() time.Time
	autoLoad bool

	iterations    []model.Iteration
	sourceID      string
	destinationID string
	items         []model.WorkItem
	selection     *Selection
	log           []model.LogEntry

	loadingIterations bool
	loadingItems      bool
	running           bool
}

// Option configures a Session
type Option func(*Session)

// WithClock overrides the clock used for auto-selection and log timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithAutoLoad controls whether items are fetched right after the source
// sprint is auto-selected
func WithAutoLoad(enabled bool) Option {
	return func(s *Session) {
		s.autoLoad = enabled
	}
}

// NewSession creates an empty session
func NewSession(opts ...Option) *Session {
	s := &Session{
		now:       time.Now,
		autoLoad:  true,
		selection: NewSelection(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Accessors ---

// Iterations returns the loaded iterations, most recent first
func (s *Session) Iterations() []model.Iteration {
	return s.iterations
}

// SourceID returns the chosen source iteration id ("" when unset)
func (s *Session) SourceID() string {
	return s.sourceID
}

// DestinationID returns the chosen destination iteration id ("" when unset)
func (s *Session) DestinationID() string {
	return s.destinationID
}

// Source returns the chosen source iteration
func (s *Session) Source() (model.Iteration, bool) {
	return s.iteration(s.sourceID)
}

// Destination returns the chosen destination iteration
func (s *Session) Destination() (model.Iteration, bool) {
	return s.iteration(s.destinationID)
}

// HasIteration reports whether id is one of the loaded iterations
func (s *Session) HasIteration(id string) bool {
	_, ok := s.iteration(id)
	return ok
}

// Items returns the loaded work items of the source iteration
func (s *Session) Items() []model.WorkItem {
	return s.items
}

// Selection returns the inclusion flags of the loaded items
func (s *Session) Selection() *Selection {
	return s.selection
}

// SelectedItems returns the included items in display order
func (s *Session) SelectedItems() []model.WorkItem {
	return s.selection.Filter(s.items)
}

// Log returns the session log, oldest first
func (s *Session) Log() []model.LogEntry {
	return s.log
}

// Running reports whether a carry-over run is in progress
func (s *Session) Running() bool {
	return s.running
}

// Loading reports whether iterations or items are being fetched
func (s *Session) Loading() bool {
	return s.loadingIterations || s.loadingItems
}

// CanCarryOver reports whether the carry-over action is currently enabled
func (s *Session) CanCarryOver() bool {
	return !s.running && s.sourceID != "" && s.destinationID != "" && s.selection.Count() > 0
}

// --- Handlers ---

// Load starts a fresh session by fetching the iterations
func (s *Session) Load() []Effect {
	s.loadingIterations = true
	s.info("Loading sprints...")
	return []Effect{LoadIterations{}}
}

// SelectSource changes the source iteration and reloads its items
func (s *Session) SelectSource(id string) []Effect {
	s.sourceID = id
	if id == "" {
		s.setItems(nil)
		return nil
	}

	it, ok := s.iteration(id)
	if !ok {
		s.errorf("Sprint not found: %s", id)
		s.sourceID = ""
		s.setItems(nil)
		return nil
	}

	s.loadingItems = true
	s.info(fmt.Sprintf("Loading work items from sprint %q...", it.Name))
	return []Effect{LoadItems{Iteration: it}}
}

// SelectDestination changes the destination iteration. No data is fetched.
func (s *Session) SelectDestination(id string) []Effect {
	if id != "" {
		if _, ok := s.iteration(id); !ok {
			s.errorf("Sprint not found: %s", id)
			return nil
		}
	}
	s.destinationID = id
	return nil
}

// Toggle includes or excludes a single loaded item
func (s *Session) Toggle(id int, included bool) error {
	return s.selection.SetIncluded(id, included)
}

// SelectAll includes every loaded item
func (s *Session) SelectAll() {
	s.selection.SetAllIncluded(true)
}

// SelectNone excludes every loaded item
func (s *Session) SelectNone() {
	s.selection.SetAllIncluded(false)
}

// StartCarryOver validates the preconditions and returns the run effect.
// Violations are logged and returned without any effect.
func (s *Session) StartCarryOver() ([]Effect, error) {
	if err := s.checkCarryOver(); err != nil {
		s.errorf("%s", preconditionMessage(err))
		return nil, err
	}

	src, _ := s.Source()
	dest, ok := s.Destination()
	if !ok || dest.Path == "" {
		s.errorf("Target sprint path not found")
		return nil, ErrTargetNotFound
	}

	items := s.SelectedItems()
	s.running = true
	s.info(fmt.Sprintf("Transferring %d selected work items...", len(items)))

	return []Effect{RunCarryOver{Source: src, Destination: dest, Items: items}}, nil
}

func (s *Session) checkCarryOver() error {
	switch {
	case s.running:
		return ErrRunning
	case s.sourceID == "":
		return ErrNoSource
	case s.destinationID == "":
		return ErrNoDestination
	case len(s.SelectedItems()) == 0:
		return ErrNothingSelected
	}
	return nil
}

// Apply folds the result of an effect into the session and returns any
// follow-up effects.
func (s *Session) Apply(ev Event) []Effect {
	switch ev := ev.(type) {
	case IterationsLoaded:
		return s.applyIterations(ev)
	case ItemsLoaded:
		s.applyItems(ev)
	case ItemPatched:
		s.applyPatched(ev)
	case CarryOverFinished:
		return s.applyFinished(ev)
	}
	return nil
}

func (s *Session) applyIterations(ev IterationsLoaded) []Effect {
	s.loadingIterations = false
	if ev.Err != nil {
		s.errorf("Error loading sprints: %v", ev.Err)
		return nil
	}

	iterations := make([]model.Iteration, len(ev.Iterations))
	copy(iterations, ev.Iterations)
	SortIterations(iterations)

	s.iterations = iterations
	s.sourceID = ""
	s.destinationID = ""
	s.setItems(nil)
	s.info(fmt.Sprintf("%d sprints loaded", len(iterations)))

	defaults := SelectDefaults(iterations, s.now())
	if defaults.Note != "" {
		s.info(defaults.Note)
	}
	if defaults.DestinationID != "" {
		dest, _ := s.iteration(defaults.DestinationID)
		s.destinationID = dest.ID
		s.info(fmt.Sprintf("Auto-selected To Sprint: %s (start date closest to today)", dest.Name))
	}
	if defaults.SourceID != "" {
		src, _ := s.iteration(defaults.SourceID)
		s.info(fmt.Sprintf("Auto-selected From Sprint: %s (previous sprint)", src.Name))
		if s.autoLoad {
			return s.SelectSource(src.ID)
		}
		s.sourceID = src.ID
	}
	return nil
}

func (s *Session) applyItems(ev ItemsLoaded) {
	if ev.IterationID != s.sourceID {
		// Response for a source that is no longer selected
		return
	}
	s.loadingItems = false

	if ev.Err != nil {
		s.errorf("Error loading work items: %v", ev.Err)
		s.setItems(nil)
		return
	}

	s.setItems(ev.Items)
	if len(ev.Items) == 0 {
		s.info("No open work items found in selected sprint")
		return
	}
	s.info(fmt.Sprintf("Found %d open work items", len(ev.Items)))
}

func (s *Session) applyPatched(ev ItemPatched) {
	r := ev.Result
	if r.Outcome == OutcomeSucceeded {
		s.append(model.SeveritySuccess, fmt.Sprintf("Work Item #%d transferred", r.ID))
		return
	}
	s.errorf("Error with Work Item #%d: %s", r.ID, r.Detail)
}

func (s *Session) applyFinished(ev CarryOverFinished) []Effect {
	s.running = false
	s.info(fmt.Sprintf("Transfer completed: %d/%d work items successfully transferred",
		ev.Report.Succeeded, ev.Report.Attempted))
	if ev.RecordErr != nil {
		s.errorf("Could not record run history: %v", ev.RecordErr)
	}

	// The moved items are stale either way; reload what is left
	if s.sourceID == "" {
		s.setItems(nil)
		return nil
	}
	s.info("Reloading remaining work items...")
	return s.SelectSource(s.sourceID)
}

// --- Helpers ---

func (s *Session) iteration(id string) (model.Iteration, bool) {
	if id == "" {
		return model.Iteration{}, false
	}
	for _, it := range s.iterations {
		if it.ID == id {
			return it, true
		}
	}
	return model.Iteration{}, false
}

func (s *Session) setItems(items []model.WorkItem) {
	s.items = items
	s.selection.Reset(items)
}

func (s *Session) info(msg string) {
	s.append(model.SeverityInfo, msg)
}

func (s *Session) errorf(format string, args ...interface{}) {
	s.append(model.SeverityError, fmt.Sprintf(format, args...))
}

func (s *Session) append(sev model.Severity, msg string) {
	s.log = append(s.log, model.LogEntry{Time: s.now(), Severity: sev, Message: msg})
	if len(s.log) > maxLogLines {
		s.log = s.log[len(s.log)-maxLogLines:]
	}
}

func preconditionMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoSource), errors.Is(err, ErrNoDestination):
		return "Please select both sprints"
	case errors.Is(err, ErrNothingSelected):
		return "No work items selected for transfer"
	case errors.Is(err, ErrRunning):
		return "A transfer is already running"
	}
	return err.Error()
}

package api

import (
	"time"

	"github.com/clive/sprint-carryover/internal/carryover"
	"github.com/clive/sprint-carryover/internal/model"
)

// IterationView is one entry of the sprint pickers
type IterationView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Label      string     `json:"label"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	FinishDate *time.Time `json:"finish_date,omitempty"`
}

// ItemView is one row of the item list
type ItemView struct {
	ID       int    `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	State    string `json:"state"`
	Included bool   `json:"included"`
}

// LogView is one session log line
type LogView struct {
	Time     time.Time      `json:"time"`
	Severity model.Severity `json:"severity"`
	Message  string         `json:"message"`
}

// SessionView is the full session state
type SessionView struct {
	Iterations    []IterationView `json:"iterations"`
	SourceID      string          `json:"source_id"`
	DestinationID string          `json:"destination_id"`
	Items         []ItemView      `json:"items"`
	IncludedCount int             `json:"included_count"`
	CanCarryOver  bool            `json:"can_carry_over"`
	Running       bool            `json:"running"`
	Loading       bool            `json:"loading"`
	Log           []LogView       `json:"log"`
}

// CarryOverResponse is returned by POST /session/carryover
type CarryOverResponse struct {
	RunID   string           `json:"run_id"`
	Report  carryover.Report `json:"report"`
	Session SessionView      `json:"session"`
}

func newSessionView(s *carryover.Session) SessionView {
	v := SessionView{
		Iterations:    make([]IterationView, 0, len(s.Iterations())),
		SourceID:      s.SourceID(),
		DestinationID: s.DestinationID(),
		Items:         make([]ItemView, 0, len(s.Items())),
		IncludedCount: s.Selection().Count(),
		CanCarryOver:  s.CanCarryOver(),
		Running:       s.Running(),
		Loading:       s.Loading(),
		Log:           make([]LogView, 0, len(s.Log())),
	}

	for _, it := range s.Iterations() {
		iv := IterationView{ID: it.ID, Name: it.Name, Path: it.Path, Label: it.Label()}
		if !it.StartDate.IsZero() {
			start := it.StartDate
			iv.StartDate = &start
		}
		if !it.FinishDate.IsZero() {
			finish := it.FinishDate
			iv.FinishDate = &finish
		}
		v.Iterations = append(v.Iterations, iv)
	}

	sel := s.Selection()
	for _, item := range s.Items() {
		v.Items = append(v.Items, ItemView{
			ID:       item.ID,
			Type:     item.WorkItemType,
			Title:    item.Title,
			State:    item.State,
			Included: sel.Included(item.ID),
		})
	}

	for _, e := range s.Log() {
		v.Log = append(v.Log, LogView{Time: e.Time, Severity: e.Severity, Message: e.Message})
	}
	return v
}

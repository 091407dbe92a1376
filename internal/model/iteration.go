package model

import "time"

// Iteration represents a sprint as returned by the team settings API
type Iteration struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"` // hierarchical path, e.g. "Project\\Sprint 12"
	StartDate  time.Time `json:"start_date,omitempty"`
	FinishDate time.Time `json:"finish_date,omitempty"`
}

// HasDates reports whether the iteration has been scheduled
func (i Iteration) HasDates() bool {
	return !i.StartDate.IsZero() && !i.FinishDate.IsZero()
}

// Label returns the picker label, e.g. "Sprint 12 (1/2/2024 - 1/15/2024)"
func (i Iteration) Label() string {
	if !i.HasDates() {
		return i.Name
	}
	return i.Name + " (" + FormatDate(i.StartDate) + " - " + FormatDate(i.FinishDate) + ")"
}

// FormatDate renders a date the way the work hub does (M/D/YYYY)
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("1/2/2006")
}

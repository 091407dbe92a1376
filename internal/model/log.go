package model

import "time"

// Severity classifies a session log line
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Marker returns the prefix shown in front of a log line
func (s Severity) Marker() string {
	switch s {
	case SeveritySuccess:
		return "✅"
	case SeverityError:
		return "❌"
	default:
		return "ℹ"
	}
}

// LogEntry is a single line in the user-facing session log
type LogEntry struct {
	Time     time.Time
	Severity Severity
	Message  string
}

// String renders the entry as "[15:04:05] ✅ message"
func (e LogEntry) String() string {
	return "[" + e.Time.Format("15:04:05") + "] " + e.Severity.Marker() + " " + e.Message
}

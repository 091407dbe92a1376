package model

// Field reference names used by the work item tracking API
const (
	FieldID            = "System.Id"
	FieldWorkItemType  = "System.WorkItemType"
	FieldTitle         = "System.Title"
	FieldState         = "System.State"
	FieldIterationPath = "System.IterationPath"
)

// Terminal states. Items in these states are never carried over.
const (
	StateDone    = "Done"
	StateClosed  = "Closed"
	StateRemoved = "Removed"
)

// TerminalStates returns the states considered finished
func TerminalStates() []string {
	return []string{StateClosed, StateDone, StateRemoved}
}

// IsTerminalState reports whether state is one of the terminal states
func IsTerminalState(state string) bool {
	for _, s := range TerminalStates() {
		if s == state {
			return true
		}
	}
	return false
}

// WorkItem is the subset of a work item the carry-over flow needs
type WorkItem struct {
	ID            int    `json:"id"`
	WorkItemType  string `json:"type"`
	Title         string `json:"title"`
	State         string `json:"state"`
	IterationPath string `json:"iteration_path"`
}

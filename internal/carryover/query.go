package carryover

import (
	"strings"

	"github.com/clive/sprint-carryover/internal/model"
)

// Query selects the open work items of a single iteration
type Query struct {
	IterationPath  string
	ExcludedStates []string
	OrderBy        []string
	Fields         []string
}

// BuildOpenItemsQuery returns a query for every item in the iteration that is
// not in a terminal state, ordered by work item type then id.
func BuildOpenItemsQuery(iterationPath string) Query {
	return Query{
		IterationPath:  iterationPath,
		ExcludedStates: model.TerminalStates(),
		OrderBy:        []string{model.FieldWorkItemType, model.FieldID},
		Fields: []string{
			model.FieldID,
			model.FieldWorkItemType,
			model.FieldTitle,
			model.FieldState,
		},
	}
}

// WIQL renders the query as Work Item Query Language text
func (q Query) WIQL() string {
	var b strings.Builder

	b.WriteString("SELECT ")
	for i, f := range q.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("[" + f + "]")
	}
	b.WriteString(" FROM WorkItems")
	b.WriteString(" WHERE [" + model.FieldIterationPath + "] = " + quote(q.IterationPath))
	for _, state := range q.ExcludedStates {
		b.WriteString(" AND [" + model.FieldState + "] <> " + quote(state))
	}
	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, f := range q.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("[" + f + "]")
		}
	}

	return b.String()
}

// quote wraps a WIQL string literal, doubling embedded single quotes
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

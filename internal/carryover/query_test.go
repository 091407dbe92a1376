package carryover

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildOpenItemsQuery(t *testing.T) {
	q := BuildOpenItemsQuery(`Fabrikam\Sprint 12`)

	assert.Equal(t, `Fabrikam\Sprint 12`, q.IterationPath)
	assert.ElementsMatch(t, []string{"Done", "Closed", "Removed"}, q.ExcludedStates)
	assert.Equal(t, []string{"System.WorkItemType", "System.Id"}, q.OrderBy)

	want := `SELECT [System.Id], [System.WorkItemType], [System.Title], [System.State] FROM WorkItems ` +
		`WHERE [System.IterationPath] = 'Fabrikam\Sprint 12' ` +
		`AND [System.State] <> 'Closed' AND [System.State] <> 'Done' AND [System.State] <> 'Removed' ` +
		`ORDER BY [System.WorkItemType], [System.Id]`
	assert.Equal(t, want, q.WIQL())
}

func TestWIQLEscapesQuotes(t *testing.T) {
	q := BuildOpenItemsQuery(`Team's Project\Sprint 1`)
	assert.Contains(t, q.WIQL(), `= 'Team''s Project\Sprint 1'`)
}

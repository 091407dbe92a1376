package ado

import (
	"strings"
	"time"
)

// IterationList is the response of the team settings iterations endpoint
type IterationList struct {
	Count int         `json:"count"`
	Value []Iteration `json:"value"`
}

// Iteration is a team iteration as returned by the work API
type Iteration struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Path       string              `json:"path"`
	Attributes IterationAttributes `json:"attributes"`
	URL        string              `json:"url"`
}

// IterationAttributes holds the iteration dates. Unscheduled iterations have
// null dates.
type IterationAttributes struct {
	StartDate  *Time  `json:"startDate"`
	FinishDate *Time  `json:"finishDate"`
	TimeFrame  string `json:"timeFrame"` // "past", "current", "future"
}

// Time accepts the date formats the service emits
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// UnmarshalJSON parses a quoted date, tolerating a missing zone
func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var err error
	for _, layout := range timeLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return err
}

// MarshalJSON writes the time in RFC 3339
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}

// WiqlRequest is the body of a WIQL query
type WiqlRequest struct {
	Query string `json:"query"`
}

// WorkItemReference is an id-only query result row
type WorkItemReference struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// WiqlResponse is the result of a flat WIQL query
type WiqlResponse struct {
	QueryType       string              `json:"queryType"`
	QueryResultType string              `json:"queryResultType"`
	AsOf            string              `json:"asOf"`
	WorkItems       []WorkItemReference `json:"workItems"`
}

// WorkItemsBatchRequest fetches several work items at once
type WorkItemsBatchRequest struct {
	IDs    []int    `json:"ids"`
	Fields []string `json:"fields,omitempty"`
}

// WorkItemsBatchResponse is the result of a batch fetch
type WorkItemsBatchResponse struct {
	Count int        `json:"count"`
	Value []WorkItem `json:"value"`
}

// WorkItem is a work item with its field bag
type WorkItem struct {
	ID     int                    `json:"id"`
	Rev    int                    `json:"rev"`
	Fields map[string]interface{} `json:"fields"`
	URL    string                 `json:"url"`
}

// StringField returns a field value as a string ("" when absent)
func (w WorkItem) StringField(name string) string {
	v, ok := w.Fields[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// PatchOperation is one JSON Patch operation
type PatchOperation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
}

// ErrorResponse is the error body the service returns
type ErrorResponse struct {
	Message   string `json:"message"`
	TypeKey   string `json:"typeKey"`
	ErrorCode int    `json:"errorCode"`
}

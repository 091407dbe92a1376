package ado

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// APIVersion is the REST API version requested on every call
	APIVersion = "7.0"

	contentTypeJSON      = "application/json"
	contentTypeJSONPatch = "application/json-patch+json"

	// maxBatchSize is the service limit for workitemsbatch
	maxBatchSize = 200
)

// Client is an Azure DevOps REST API client scoped to one project and team
type Client struct {
	orgURL     string
	project    string
	team       string
	authHeader string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new client. orgURL is e.g. "https://dev.azure.com/fabrikam".
// pat is a personal access token with work item read & write scope.
func NewClient(orgURL, project, team, pat string, opts ...Option) *Client {
	c := &Client{
		orgURL:     strings.TrimRight(orgURL, "/"),
		project:    project,
		team:       team,
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+pat)),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Message    string
	TypeKey    string
}

func (e *APIError) Error() string {
	if e.TypeKey != "" {
		return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, e.Message, e.TypeKey)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// do executes a request and unmarshals the JSON response into result
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("api-version", APIVersion)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", contentTypeJSON)
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Message != "" {
		apiErr.Message = er.Message
		apiErr.TypeKey = er.TypeKey
		return apiErr
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	// Sign-in pages come back as HTML when the token is rejected
	if strings.HasPrefix(msg, "<") {
		msg = http.StatusText(status)
	}
	apiErr.Message = msg
	return apiErr
}

func (c *Client) projectURL(parts ...string) string {
	segs := []string{c.orgURL, url.PathEscape(c.project)}
	segs = append(segs, parts...)
	return strings.Join(segs, "/")
}

func (c *Client) teamURL(parts ...string) string {
	segs := []string{c.orgURL, url.PathEscape(c.project), url.PathEscape(c.team)}
	segs = append(segs, parts...)
	return strings.Join(segs, "/")
}

// GetTeamIterations returns all iterations the team is subscribed to
func (c *Client) GetTeamIterations(ctx context.Context) ([]Iteration, error) {
	var result IterationList
	endpoint := c.teamURL("_apis", "work", "teamsettings", "iterations")
	if err := c.do(ctx, http.MethodGet, endpoint, "", nil, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// QueryByWiql runs a flat WIQL query and returns the matching ids in result order
func (c *Client) QueryByWiql(ctx context.Context, wiql string) ([]int, error) {
	var result WiqlResponse
	endpoint := c.projectURL("_apis", "wit", "wiql")
	if err := c.do(ctx, http.MethodPost, endpoint, contentTypeJSON, WiqlRequest{Query: wiql}, &result); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(result.WorkItems))
	for _, ref := range result.WorkItems {
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

// GetWorkItems fetches the given work items, limited to fields when non-empty.
// The response keeps the order of ids.
func (c *Client) GetWorkItems(ctx context.Context, ids []int, fields []string) ([]WorkItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxBatchSize {
		return nil, fmt.Errorf("%d work items requested, at most %d are supported", len(ids), maxBatchSize)
	}

	var result WorkItemsBatchResponse
	endpoint := c.projectURL("_apis", "wit", "workitemsbatch")
	req := WorkItemsBatchRequest{IDs: ids, Fields: fields}
	if err := c.do(ctx, http.MethodPost, endpoint, contentTypeJSON, req, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// UpdateWorkItem applies a JSON Patch document to a work item
func (c *Client) UpdateWorkItem(ctx context.Context, id int, ops []PatchOperation) (*WorkItem, error) {
	var result WorkItem
	endpoint := c.projectURL("_apis", "wit", "workitems", strconv.Itoa(id))
	if err := c.do(ctx, http.MethodPatch, endpoint, contentTypeJSONPatch, ops, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReplaceField sets a single field with one replace operation
func (c *Client) ReplaceField(ctx context.Context, id int, field, value string) error {
	ops := []PatchOperation{{
		Op:    "replace",
		Path:  "/fields/" + field,
		Value: value,
	}}
	_, err := c.UpdateWorkItem(ctx, id, ops)
	return err
}

// IsAuthenticated checks the token by listing the team's iterations
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	_, err := c.GetTeamIterations(ctx)
	return err == nil
}

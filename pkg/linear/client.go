// Package linear implements the task tracker backend for Linear.
//
// Linear exposes a single GraphQL endpoint. Requests carry the personal API
// key in the Authorization header as-is, without a scheme.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/tasks"
)

// DefaultEndpoint is Linear's public GraphQL API.
const DefaultEndpoint = "https://api.linear.app/graphql"

const defaultFirst = 50

// Client talks to the Linear GraphQL API.
type Client struct {
	endpoint   string
	apiKey     string
	teamKey    string
	workspace  string
	first      int
	httpClient *http.Client
	verbose    bool
	logger     *slog.Logger

	mu   sync.Mutex
	urls map[string]string // issue identifier -> web URL, filled as issues are fetched
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Linear client. The API key is required.
func NewClient(cfg *config.LinearConfig, verbose bool, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, joraerrors.NewConfigError("linear", "linear config is required")
	}
	if cfg.APIKey == "" {
		return nil, joraerrors.NewConfigError("linear.api_key", "missing Linear API key: set LINEAR_API_KEY")
	}

	c := &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		teamKey:    cfg.TeamKey,
		workspace:  cfg.Workspace,
		first:      defaultFirst,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		verbose:    verbose,
		logger:     slog.Default(),
		urls:       make(map[string]string),
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Name identifies the tracker in messages and fetch errors.
func (c *Client) Name() string { return "Linear" }

// BrowseURL returns the web URL of an issue. URLs reported by the API are
// preferred; otherwise the link is built from the configured workspace.
func (c *Client) BrowseURL(key string) string {
	c.mu.Lock()
	u, ok := c.urls[key]
	c.mu.Unlock()
	if ok {
		return u
	}
	if c.workspace != "" {
		return "https://linear.app/" + c.workspace + "/issue/" + key
	}
	return "https://linear.app/issue/" + key
}

type issueNode struct {
	Identifier    string    `json:"identifier"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	URL           string    `json:"url"`
	PriorityLabel string    `json:"priorityLabel"`
	UpdatedAt     time.Time `json:"updatedAt"`
	State         struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"state"`
}

func (n *issueNode) toTask() tasks.Task {
	return tasks.Task{
		Key:       n.Identifier,
		Title:     n.Title,
		Status:    n.State.Name,
		Category:  MapStateToCategory(n.State.Type, n.State.Name),
		Priority:  normalizePriority(n.PriorityLabel),
		UpdatedAt: n.UpdatedAt,
	}
}

const issueFields = `identifier title url priorityLabel updatedAt state { name type }`

const assignedQuery = `query AssignedIssues($first: Int!) {
  viewer {
    assignedIssues(
      first: $first
      orderBy: updatedAt
      filter: { state: { type: { nin: ["completed", "canceled"] } } }
    ) {
      nodes { ` + issueFields + ` }
    }
  }
}`

// FetchAssigned returns the open issues assigned to the API key's user,
// most recently updated first.
func (c *Client) FetchAssigned(ctx context.Context) ([]tasks.Task, error) {
	var data struct {
		Viewer struct {
			AssignedIssues struct {
				Nodes []issueNode `json:"nodes"`
			} `json:"assignedIssues"`
		} `json:"viewer"`
	}
	if err := c.query(ctx, "FetchAssigned", "", assignedQuery, map[string]any{"first": c.first}, &data); err != nil {
		return nil, err
	}

	nodes := data.Viewer.AssignedIssues.Nodes
	result := make([]tasks.Task, 0, len(nodes))
	for i := range nodes {
		c.rememberURL(&nodes[i])
		result = append(result, nodes[i].toTask())
	}

	c.logDebug("fetched assigned issues", "count", len(result))
	return result, nil
}

const issueQuery = `query Issue($id: String!) {
  issue(id: $id) { ` + issueFields + ` description }
}`

// GetTask fetches a single issue by identifier, e.g. "ENG-42".
func (c *Client) GetTask(ctx context.Context, key string) (*tasks.Task, error) {
	node, err := c.getIssue(ctx, key)
	if err != nil {
		return nil, err
	}
	t := node.toTask()
	return &t, nil
}

func (c *Client) getIssue(ctx context.Context, key string) (*issueNode, error) {
	var data struct {
		Issue *issueNode `json:"issue"`
	}
	if err := c.query(ctx, "GetTask", key, issueQuery, map[string]any{"id": key}, &data); err != nil {
		return nil, err
	}
	if data.Issue == nil {
		return nil, errIssueNotFound("GetTask", key)
	}
	c.rememberURL(data.Issue)
	return data.Issue, nil
}

type teamNode struct {
	ID     string `json:"id"`
	Labels struct {
		Nodes []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"labels"`
}

const teamQuery = `query Team($key: String!) {
  teams(filter: { key: { eq: $key } }) {
    nodes { id labels { nodes { id name } } }
  }
  viewer { id }
}`

func (c *Client) team(ctx context.Context, op string) (*teamNode, string, error) {
	if c.teamKey == "" {
		return nil, "", joraerrors.NewConfigError("linear.team_key", "missing Linear team configuration: set LINEAR_TEAM_KEY")
	}

	var data struct {
		Teams struct {
			Nodes []teamNode `json:"nodes"`
		} `json:"teams"`
		Viewer struct {
			ID string `json:"id"`
		} `json:"viewer"`
	}
	if err := c.query(ctx, op, "", teamQuery, map[string]any{"key": c.teamKey}, &data); err != nil {
		return nil, "", err
	}
	if len(data.Teams.Nodes) == 0 {
		return nil, "", joraerrors.NewLinearError(op, "no team found with key: "+c.teamKey)
	}
	return &data.Teams.Nodes[0], data.Viewer.ID, nil
}

const createMutation = `mutation CreateIssue($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue { ` + issueFields + ` }
  }
}`

// CreateTask creates an issue in the configured team, assigned to the
// API key's user. Components map to team labels by name; unknown names
// are skipped.
func (c *Client) CreateTask(ctx context.Context, title string, components []string) (*tasks.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, joraerrors.NewLinearError("CreateTask", "task title is required")
	}

	team, viewerID, err := c.team(ctx, "CreateTask")
	if err != nil {
		return nil, err
	}

	labelIDs := make(map[string]string, len(team.Labels.Nodes))
	for _, l := range team.Labels.Nodes {
		labelIDs[strings.ToLower(l.Name)] = l.ID
	}
	var ids []string
	for _, name := range components {
		id, ok := labelIDs[strings.ToLower(name)]
		if !ok {
			c.logDebug("ignoring unknown label", "name", name)
			continue
		}
		ids = append(ids, id)
	}

	input := map[string]any{
		"teamId":     team.ID,
		"title":      title,
		"assigneeId": viewerID,
	}
	if len(ids) > 0 {
		input["labelIds"] = ids
	}

	var data struct {
		IssueCreate struct {
			Success bool       `json:"success"`
			Issue   *issueNode `json:"issue"`
		} `json:"issueCreate"`
	}
	if err := c.query(ctx, "CreateTask", "", createMutation, map[string]any{"input": input}, &data); err != nil {
		return nil, err
	}
	if !data.IssueCreate.Success || data.IssueCreate.Issue == nil {
		return nil, joraerrors.NewLinearError("CreateTask", "issue was not created")
	}

	c.rememberURL(data.IssueCreate.Issue)
	t := data.IssueCreate.Issue.toTask()
	return &t, nil
}

// ListComponents returns the label names of the configured team.
func (c *Client) ListComponents(ctx context.Context) ([]string, error) {
	team, _, err := c.team(ctx, "ListComponents")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(team.Labels.Nodes))
	for _, l := range team.Labels.Nodes {
		if l.Name != "" {
			names = append(names, l.Name)
		}
	}
	return names, nil
}

func errIssueNotFound(op, key string) error {
	return joraerrors.NewLinearErrorWithCause(op, key, "issue "+key+" not found", nil)
}

func (c *Client) rememberURL(n *issueNode) {
	if n.URL == "" || n.Identifier == "" {
		return
	}
	c.mu.Lock()
	c.urls[n.Identifier] = n.URL
	c.mu.Unlock()
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query posts a GraphQL document and decodes its data into out.
func (c *Client) query(ctx context.Context, op, issue, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return joraerrors.NewLinearErrorWithCause(op, issue, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return joraerrors.NewLinearErrorWithCause(op, issue, "failed to create request", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logDebug("linear request", "operation", op)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return joraerrors.Wrap(ctxErr, "linear request cancelled")
		}
		linearErr := joraerrors.NewLinearErrorWithCause(op, issue, "failed to execute request", err)
		linearErr.Retryable = true
		return linearErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return joraerrors.NewLinearErrorWithCause(op, issue, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if resp.StatusCode == http.StatusUnauthorized {
			msg = "authentication failed: check your Linear API key"
		}
		var gql graphQLResponse
		if json.Unmarshal(body, &gql) == nil && len(gql.Errors) > 0 {
			msg = gql.Errors[0].Message
		}
		linearErr := joraerrors.NewLinearErrorWithStatus(op, resp.StatusCode, msg)
		linearErr.Issue = issue
		return linearErr
	}

	var gql graphQLResponse
	if err := json.Unmarshal(body, &gql); err != nil {
		return joraerrors.NewLinearErrorWithCause(op, issue, "failed to parse response", err)
	}
	if len(gql.Errors) > 0 {
		msgs := make([]string, 0, len(gql.Errors))
		for _, e := range gql.Errors {
			msgs = append(msgs, e.Message)
		}
		return joraerrors.NewLinearErrorWithCause(op, issue, strings.Join(msgs, "; "), nil)
	}
	if out == nil || len(gql.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gql.Data, out); err != nil {
		return joraerrors.NewLinearErrorWithCause(op, issue, "failed to decode response data", err)
	}
	return nil
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.verbose {
		c.logger.Debug(msg, args...)
	}
}

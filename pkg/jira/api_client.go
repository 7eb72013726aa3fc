// Package jira implements the task tracker backend for Jira Cloud.
package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/tasks"
)

// Rate limit retry configuration
const (
	maxRetries = 3
	baseDelay  = time.Second
	maxDelay   = 30 * time.Second
)

// updatedLayout is the timestamp format of Jira's "updated" field.
const updatedLayout = "2006-01-02T15:04:05.000-0700"

// Client talks to the Jira Cloud REST API with Basic auth (email:token).
type Client struct {
	baseURL    string
	email      string
	token      string
	projectKey string
	maxResults int
	excluded   []string
	httpClient *http.Client
	retryBase  time.Duration
	verbose    bool
	logger     *slog.Logger

	mu        sync.Mutex
	accountID string
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

// NewClient creates a Jira client. base_url, email and token are required.
func NewClient(cfg *config.JiraConfig, verbose bool, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, joraerrors.NewConfigError("jira", "jira config is required")
	}
	if cfg.BaseURL == "" {
		return nil, joraerrors.NewConfigError("jira.base_url",
			"missing JIRA URL configuration: set JIRA_URL (e.g. https://yourcompany.atlassian.net)")
	}
	if cfg.Email == "" || cfg.Token == "" {
		return nil, joraerrors.NewConfigError("jira.token",
			"missing required JIRA configuration: set JIRA_EMAIL and JIRA_API_KEY")
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		email:      cfg.Email,
		token:      cfg.Token,
		projectKey: cfg.ProjectKey,
		maxResults: cfg.MaxResults,
		excluded:   cfg.ExcludedStatuses,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryBase:  baseDelay,
		verbose:    verbose,
		logger:     slog.Default(),
	}
	if c.maxResults <= 0 {
		c.maxResults = 50
	}
	if c.excluded == nil {
		c.excluded = config.DefaultExcludedStatuses
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Name identifies the tracker in messages and fetch errors.
func (c *Client) Name() string { return "JIRA" }

// BrowseURL returns the web URL of an issue.
func (c *Client) BrowseURL(key string) string {
	return c.baseURL + "/browse/" + key
}

// jiraNameField represents a Jira field with a name property.
type jiraNameField struct {
	Name string `json:"name"`
}

// jiraIssue represents the relevant parts of a Jira issue response.
type jiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string         `json:"summary"`
		Status      *jiraNameField `json:"status"`
		Priority    *jiraNameField `json:"priority"`
		Updated     string         `json:"updated"`
		Description *adfNode       `json:"description"`
	} `json:"fields"`
}

func (i *jiraIssue) toTask() tasks.Task {
	t := tasks.Task{
		Key:   i.Key,
		Title: i.Fields.Summary,
	}
	if i.Fields.Status != nil {
		t.Status = i.Fields.Status.Name
	}
	t.Category = MapStatusToCategory(t.Status)
	if i.Fields.Priority != nil {
		t.Priority = i.Fields.Priority.Name
	}
	if ts, err := time.Parse(updatedLayout, i.Fields.Updated); err == nil {
		t.UpdatedAt = ts
	}
	return t
}

// FetchAssigned returns the unfinished issues assigned to the configured
// user, most recently updated first.
func (c *Client) FetchAssigned(ctx context.Context) ([]tasks.Task, error) {
	accountID, err := c.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	search := map[string]any{
		"jql":        assignedJQL(accountID, c.excluded),
		"maxResults": c.maxResults,
		"fields":     []string{"summary", "status", "priority", "updated"},
	}

	c.logDebug("searching assigned issues", "max_results", c.maxResults)

	body, err := c.do(ctx, "FetchAssigned", "", http.MethodPost, "/rest/api/2/search", nil, search)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Issues []jiraIssue `json:"issues"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, joraerrors.NewJiraErrorWithCause("FetchAssigned", "", "failed to parse search response", err)
	}

	result := make([]tasks.Task, 0, len(resp.Issues))
	for i := range resp.Issues {
		result = append(result, resp.Issues[i].toTask())
	}

	c.logDebug("fetched assigned issues", "count", len(result))
	return result, nil
}

// GetTask fetches a single issue by key.
func (c *Client) GetTask(ctx context.Context, key string) (*tasks.Task, error) {
	issue, err := c.getIssue(ctx, key)
	if err != nil {
		return nil, err
	}
	t := issue.toTask()
	return &t, nil
}

func (c *Client) getIssue(ctx context.Context, key string) (*jiraIssue, error) {
	c.logDebug("fetching issue", "key", key)

	body, err := c.do(ctx, "GetTask", key, http.MethodGet, "/rest/api/3/issue/"+url.PathEscape(key), nil, nil)
	if err != nil {
		return nil, err
	}

	var issue jiraIssue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, joraerrors.NewJiraErrorWithCause("GetTask", key, "failed to parse jira response", err)
	}
	if issue.Key == "" {
		issue.Key = key
	}
	return &issue, nil
}

// CreateTask creates a Task issue in the configured project, assigned to
// the configured user.
func (c *Client) CreateTask(ctx context.Context, title string, components []string) (*tasks.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, joraerrors.NewJiraError("CreateTask", "task title is required")
	}
	if c.projectKey == "" {
		return nil, joraerrors.NewConfigError("jira.project_key", "missing JIRA project configuration: set JIRA_PROJECT_KEY")
	}

	accountID, err := c.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"project":     map[string]string{"key": c.projectKey},
		"summary":     title,
		"description": "Task created via Jora",
		"issuetype":   map[string]string{"name": "Task"},
		"assignee":    map[string]string{"accountId": accountID},
	}
	if len(components) > 0 {
		named := make([]map[string]string, 0, len(components))
		for _, name := range components {
			named = append(named, map[string]string{"name": name})
		}
		fields["components"] = named
	}

	c.logDebug("creating issue", "project", c.projectKey, "components", components)

	body, err := c.do(ctx, "CreateTask", "", http.MethodPost, "/rest/api/2/issue", nil, map[string]any{"fields": fields})
	if err != nil {
		if len(components) > 0 && strings.Contains(strings.ToLower(err.Error()), "component") {
			return nil, joraerrors.Wrapf(err, "component issue with: '%s'", strings.Join(components, ", "))
		}
		return nil, err
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.Key == "" {
		return nil, joraerrors.NewJiraErrorWithCause("CreateTask", "", "failed to parse created issue", err)
	}

	return &tasks.Task{
		Key:      created.Key,
		Title:    title,
		Status:   "To Do",
		Category: tasks.CategoryNotStarted,
	}, nil
}

// ListComponents returns the component names of the configured project.
func (c *Client) ListComponents(ctx context.Context) ([]string, error) {
	if c.projectKey == "" {
		return nil, joraerrors.NewConfigError("jira.project_key", "missing JIRA project configuration: set JIRA_PROJECT_KEY")
	}

	path := "/rest/api/2/project/" + url.PathEscape(c.projectKey) + "/components"
	body, err := c.do(ctx, "ListComponents", "", http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var components []jiraNameField
	if err := json.Unmarshal(body, &components); err != nil {
		return nil, joraerrors.NewJiraErrorWithCause("ListComponents", "", "failed to parse components", err)
	}

	names := make([]string, 0, len(components))
	for _, comp := range components {
		if comp.Name != "" {
			names = append(names, comp.Name)
		}
	}
	return names, nil
}

// AccountID resolves the account ID of the configured email. The result
// is cached for the lifetime of the client.
func (c *Client) AccountID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accountID != "" {
		return c.accountID, nil
	}

	query := url.Values{"query": {c.email}, "maxResults": {"1"}}
	body, err := c.do(ctx, "AccountID", "", http.MethodGet, "/rest/api/2/user/search", query, nil)
	if err != nil {
		return "", err
	}

	var users []struct {
		AccountID string `json:"accountId"`
	}
	if err := json.Unmarshal(body, &users); err != nil {
		return "", joraerrors.NewJiraErrorWithCause("AccountID", "", "failed to parse user search", err)
	}
	if len(users) == 0 {
		return "", joraerrors.NewJiraError("AccountID", "no user found with email: "+c.email)
	}
	if users[0].AccountID == "" {
		return "", joraerrors.NewJiraError("AccountID", "account ID not found for user: "+c.email)
	}

	c.accountID = users[0].AccountID
	return c.accountID, nil
}

type jiraComment struct {
	Author struct {
		DisplayName string `json:"displayName"`
	} `json:"author"`
	Created string   `json:"created"`
	Body    *adfNode `json:"body"`
}

func (c *Client) comments(ctx context.Context, key string) ([]jiraComment, error) {
	path := "/rest/api/3/issue/" + url.PathEscape(key) + "/comment"
	body, err := c.do(ctx, "Comments", key, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Comments []jiraComment `json:"comments"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, joraerrors.NewJiraErrorWithCause("Comments", key, "failed to parse comments", err)
	}
	return resp.Comments, nil
}

// assignedJQL builds the search for unfinished issues of an account.
func assignedJQL(accountID string, excluded []string) string {
	clauses := []string{"assignee = " + jqlQuote(accountID)}
	for _, status := range excluded {
		clauses = append(clauses, "status != "+jqlQuote(status))
	}
	return strings.Join(clauses, " AND ") + " ORDER BY updated DESC"
}

func jqlQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// do sends a request and returns the body of a 2xx response. Other
// statuses are mapped by handleHTTPError.
func (c *Client) do(ctx context.Context, op, ticket, method, path string, query url.Values, payload any) ([]byte, error) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, joraerrors.NewJiraErrorWithCause(op, ticket, "failed to marshal request body", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	newRequest := func() (*http.Request, error) {
		var body io.Reader
		if data != nil {
			body = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return nil, err
		}

		// Basic Auth header: base64(email:token)
		auth := base64.StdEncoding.EncodeToString([]byte(c.email + ":" + c.token))
		req.Header.Set("Authorization", "Basic "+auth)
		req.Header.Set("Accept", "application/json")
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}

	resp, err := c.doRequestWithRetry(ctx, op, ticket, newRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, joraerrors.NewJiraErrorWithCause(op, ticket, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleHTTPError(op, resp.StatusCode, body, ticket)
	}
	return body, nil
}

// doRequestWithRetry executes an HTTP request with retry logic for rate limiting.
// It implements exponential backoff with jitter and respects Retry-After headers.
func (c *Client) doRequestWithRetry(ctx context.Context, op, ticket string, newRequest func() (*http.Request, error)) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := newRequest()
		if err != nil {
			return nil, joraerrors.NewJiraErrorWithCause(op, ticket, "failed to create request", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, joraerrors.Wrap(ctxErr, "jira request cancelled")
			}
			jiraErr := joraerrors.NewJiraErrorWithCause(op, ticket, "failed to execute request", err)
			jiraErr.Retryable = true
			return nil, jiraErr
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		resp.Body.Close()

		if attempt == maxRetries {
			return nil, joraerrors.NewJiraErrorWithStatus(op, ticket, http.StatusTooManyRequests,
				fmt.Sprintf("rate limited after %d retries", maxRetries))
		}

		// Prefer the Retry-After header when present
		delay := parseRetryAfter(resp.Header.Get("Retry-After"))
		if delay == 0 {
			delay = joraerrors.CalculateBackoff(c.retryBase, maxDelay, attempt, joraerrors.DefaultJitter)
		}

		c.logDebug("rate limited (HTTP 429), retrying",
			"delay", delay.Round(time.Millisecond), "attempt", attempt+1, "max", maxRetries)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, joraerrors.Wrap(ctx.Err(), "jira request cancelled during rate limit backoff")
		case <-timer.C:
		}
	}
}

// parseRetryAfter extracts the delay from a Retry-After header.
// Returns the duration if present and valid, otherwise returns 0.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := time.Parse(time.RFC1123, header); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return 0
}

// handleHTTPError returns a JiraError for a non-2xx response.
func handleHTTPError(op string, statusCode int, body []byte, ticket string) error {
	var msg string
	switch statusCode {
	case http.StatusUnauthorized:
		msg = "authentication failed: check your email and API token"
	case http.StatusForbidden:
		msg = "access denied: check your permissions"
	case http.StatusNotFound:
		msg = "not found"
		if ticket != "" {
			msg = fmt.Sprintf("ticket %s not found", ticket)
		}
	case http.StatusTooManyRequests:
		msg = "rate limit exceeded: please wait before making more requests"
	default:
		var errResp struct {
			ErrorMessages []string          `json:"errorMessages"`
			Errors        map[string]string `json:"errors"`
		}
		msg = "jira API error"
		if err := json.Unmarshal(body, &errResp); err == nil {
			details := errResp.ErrorMessages
			for _, field := range slices.Sorted(maps.Keys(errResp.Errors)) {
				details = append(details, field+": "+errResp.Errors[field])
			}
			if len(details) > 0 {
				msg = strings.Join(details, "; ")
			}
		}
	}
	return joraerrors.NewJiraErrorWithStatus(op, ticket, statusCode, msg)
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.verbose {
		c.logger.Debug(msg, args...)
	}
}

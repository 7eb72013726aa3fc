package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	joraerrors "thoreinstein.com/jora/pkg/errors"
)

// CLIClient implements the Client interface using the gh CLI.
// gh resolves the repository from the working directory and handles
// authentication itself.
type CLIClient struct {
	verbose bool
	token   string // Optional token for GITHUB_TOKEN env override
	logger  *slog.Logger
	run     func(ctx context.Context, args ...string) (string, error)
}

// CLIClientOption is a functional option for configuring CLIClient.
type CLIClientOption func(*CLIClient)

// WithToken sets a token to be used via GITHUB_TOKEN environment variable.
func WithToken(token string) CLIClientOption {
	return func(c *CLIClient) {
		c.token = token
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) CLIClientOption {
	return func(c *CLIClient) {
		c.logger = logger
	}
}

// NewCLIClient creates a new gh CLI-based GitHub client.
func NewCLIClient(verbose bool, opts ...CLIClientOption) (*CLIClient, error) {
	c := &CLIClient{
		verbose: verbose,
		logger:  slog.Default(),
	}
	c.run = c.runGH

	for _, opt := range opts {
		opt(c)
	}

	if _, err := exec.LookPath("gh"); err != nil {
		return nil, joraerrors.NewGitHubErrorWithCause("NewCLIClient", "gh CLI not found in PATH", err)
	}

	return c, nil
}

// IsAuthenticated checks if gh CLI is authenticated with GitHub.
func (c *CLIClient) IsAuthenticated() bool {
	_, err := c.run(context.Background(), "auth", "status")
	return err == nil
}

// ListOpenPRs lists open pull requests using gh pr list.
func (c *CLIClient) ListOpenPRs(ctx context.Context, limit int) ([]PRInfo, error) {
	args := []string{
		"pr", "list",
		"--state", "open",
		"--json", strings.Join(listJSONFields, ","),
	}
	if limit > 0 {
		args = append(args, "--limit", strconv.Itoa(limit))
	}

	c.logDebug("listing open PRs", "limit", limit)

	output, err := c.run(ctx, args...)
	if err != nil {
		return nil, joraerrors.NewGitHubErrorWithCause("ListOpenPRs", "failed to list PRs", err)
	}

	var responses []ghPRResponse
	if err := json.Unmarshal([]byte(output), &responses); err != nil {
		return nil, joraerrors.NewGitHubErrorWithCause("ListOpenPRs", "failed to parse PR list response", err)
	}

	prs := make([]PRInfo, 0, len(responses))
	for _, resp := range responses {
		prs = append(prs, *resp.toPRInfo())
	}

	return prs, nil
}

// CreatePR creates a new pull request using gh pr create.
func (c *CLIClient) CreatePR(ctx context.Context, opts CreatePROptions) (*PRInfo, error) {
	if opts.Title == "" {
		return nil, joraerrors.NewGitHubError("CreatePR", "title is required")
	}

	// gh requires both --title and --body when running non-interactively
	args := []string{"pr", "create", "--title", opts.Title, "--body", opts.Body}
	if opts.BaseBranch != "" {
		args = append(args, "--base", opts.BaseBranch)
	}
	if opts.HeadBranch != "" {
		args = append(args, "--head", opts.HeadBranch)
	}

	c.logDebug("creating PR", "head", opts.HeadBranch, "base", opts.BaseBranch)

	output, err := c.run(ctx, args...)
	if err != nil {
		return nil, joraerrors.NewGitHubErrorWithCause("CreatePR", "failed to create PR", err)
	}

	// gh pr create prints the PR URL on success
	prURL := lastLine(output)
	c.logDebug("PR created", "url", prURL)

	pr := &PRInfo{
		URL:        prURL,
		Title:      opts.Title,
		Body:       opts.Body,
		State:      "OPEN",
		HeadBranch: opts.HeadBranch,
		BaseBranch: opts.BaseBranch,
	}
	number, parseErr := extractPRNumber(prURL)
	if parseErr != nil {
		c.logDebug("could not parse PR number from URL", "url", prURL, "error", parseErr)
		return pr, nil
	}
	pr.Number = number
	return pr, nil
}

// CurrentPR returns the pull request of the checked out branch using gh pr view.
func (c *CLIClient) CurrentPR(ctx context.Context) (*PRInfo, error) {
	args := []string{"pr", "view", "--json", strings.Join(viewJSONFields, ",")}

	c.logDebug("getting PR for current branch")

	output, err := c.run(ctx, args...)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no pull requests found") {
			return nil, ErrNoPullRequest
		}
		return nil, joraerrors.NewGitHubErrorWithCause("CurrentPR", "failed to get PR for current branch", err)
	}

	var resp ghPRResponse
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		return nil, joraerrors.NewGitHubErrorWithCause("CurrentPR", "failed to parse PR response", err)
	}

	return resp.toPRInfo(), nil
}

// AddLabels adds labels to a pull request using gh pr edit.
func (c *CLIClient) AddLabels(ctx context.Context, number int, labels ...string) error {
	if len(labels) == 0 {
		return nil
	}

	args := []string{"pr", "edit", strconv.Itoa(number), "--add-label", strings.Join(labels, ",")}

	c.logDebug("adding labels", "number", number, "labels", labels)

	if _, err := c.run(ctx, args...); err != nil {
		return joraerrors.NewGitHubErrorWithCause("AddLabels", fmt.Sprintf("failed to label PR #%d", number), err)
	}
	return nil
}

// ListAssignees lists assignable users through the REST API via gh api.
// The repository is resolved by gh from the working directory.
func (c *CLIClient) ListAssignees(ctx context.Context) ([]User, error) {
	args := []string{"api", "repos/{owner}/{repo}/assignees", "--paginate"}

	c.logDebug("listing assignable users")

	output, err := c.run(ctx, args...)
	if err != nil {
		return nil, joraerrors.NewGitHubErrorWithCause("ListAssignees", "failed to list assignable users", err)
	}

	users, err := decodeUserPages(output)
	if err != nil {
		return nil, joraerrors.NewGitHubErrorWithCause("ListAssignees", "failed to parse assignee response", err)
	}
	return users, nil
}

// SetAssignees replaces the assignees of a pull request using gh pr edit.
func (c *CLIClient) SetAssignees(ctx context.Context, number int, logins []string) error {
	current, err := c.prAssignees(ctx, number)
	if err != nil {
		return err
	}

	add, remove := assigneeDiff(current, logins)
	if len(add) == 0 && len(remove) == 0 {
		c.logDebug("assignees unchanged", "number", number)
		return nil
	}

	args := []string{"pr", "edit", strconv.Itoa(number)}
	if len(add) > 0 {
		args = append(args, "--add-assignee", strings.Join(add, ","))
	}
	if len(remove) > 0 {
		args = append(args, "--remove-assignee", strings.Join(remove, ","))
	}

	c.logDebug("updating assignees", "number", number, "add", add, "remove", remove)

	if _, err := c.run(ctx, args...); err != nil {
		return joraerrors.NewGitHubErrorWithCause("SetAssignees", fmt.Sprintf("failed to update assignees of PR #%d", number), err)
	}
	return nil
}

func (c *CLIClient) prAssignees(ctx context.Context, number int) ([]string, error) {
	output, err := c.run(ctx, "pr", "view", strconv.Itoa(number), "--json", "assignees")
	if err != nil {
		return nil, joraerrors.NewGitHubErrorWithCause("SetAssignees", fmt.Sprintf("failed to get PR #%d", number), err)
	}

	var resp ghPRResponse
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		return nil, joraerrors.NewGitHubErrorWithCause("SetAssignees", "failed to parse PR response", err)
	}
	return resp.toPRInfo().Assignees, nil
}

// runGH executes a gh command and returns its output.
func (c *CLIClient) runGH(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)

	if c.token != "" {
		cmd.Env = append(os.Environ(), "GITHUB_TOKEN="+c.token)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		ghErr := joraerrors.NewGitHubError("gh", errMsg)
		if isRetryableGHError(errMsg) {
			ghErr.Retryable = true
		}
		return "", ghErr
	}

	return stdout.String(), nil
}

// logDebug logs a debug message if verbose mode is enabled.
func (c *CLIClient) logDebug(msg string, args ...any) {
	if c.verbose {
		c.logger.Debug(msg, args...)
	}
}

var (
	listJSONFields = []string{"number", "url", "title", "headRefName", "baseRefName", "body", "reviews", "state"}
	viewJSONFields = []string{"number", "url", "title", "state", "headRefName", "baseRefName", "assignees"}
)

// decodeUserPages decodes gh api --paginate output, which concatenates one
// JSON array per page.
func decodeUserPages(output string) ([]User, error) {
	dec := json.NewDecoder(strings.NewReader(output))
	users := []User{}
	for dec.More() {
		var page []User
		if err := dec.Decode(&page); err != nil {
			return nil, err
		}
		users = append(users, page...)
	}
	return users, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// extractPRNumber extracts the PR number from a GitHub PR URL.
func extractPRNumber(url string) (int, error) {
	// URL format: https://github.com/owner/repo/pull/123
	parts := strings.Split(strings.TrimSuffix(url, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] != "pull" {
		return 0, joraerrors.NewGitHubError("extractPRNumber", "invalid PR URL format")
	}
	number, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, joraerrors.NewGitHubErrorWithCause("extractPRNumber", "failed to parse PR number", err)
	}
	return number, nil
}

// isRetryableGHError checks if a gh CLI error message indicates a retryable error.
func isRetryableGHError(errMsg string) bool {
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"network",
		"502",
		"503",
		"504",
	}

	lowerErr := strings.ToLower(errMsg)
	for _, pattern := range retryablePatterns {
		if strings.Contains(lowerErr, pattern) {
			return true
		}
	}
	return false
}

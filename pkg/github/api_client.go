package github

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/tasks"
)

// reviewFetchConcurrency bounds the parallel review requests of ListOpenPRs.
const reviewFetchConcurrency = 4

// APIClient implements Client using GitHub REST API.
type APIClient struct {
	client  *gh.Client
	repo    RepoContext
	verbose bool
	logger  *slog.Logger
}

// APIClientOption is a functional option for configuring APIClient.
type APIClientOption func(*APIClient)

// WithAPILogger sets a custom logger for the API client.
func WithAPILogger(logger *slog.Logger) APIClientOption {
	return func(c *APIClient) {
		c.logger = logger
	}
}

// WithBaseURL points the client at a different API root, such as a
// GitHub Enterprise server. The URL must end with a slash.
func WithBaseURL(base *url.URL) APIClientOption {
	return func(c *APIClient) {
		c.client.BaseURL = base
	}
}

// NewAPIClient creates a GitHub API client with the given token. repo
// resolves the owner, name and current branch of the working repository.
func NewAPIClient(token string, repo RepoContext, verbose bool, opts ...APIClientOption) (*APIClient, error) {
	if token == "" {
		return nil, joraerrors.NewGitHubError("NewAPIClient", "token is required")
	}
	if repo == nil {
		return nil, joraerrors.NewGitHubError("NewAPIClient", "repository context is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	client := &APIClient{
		client:  gh.NewClient(tc),
		repo:    repo,
		verbose: verbose,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// IsAuthenticated checks if the client is authenticated with GitHub.
func (c *APIClient) IsAuthenticated() bool {
	_, _, err := c.client.Users.Get(context.Background(), "")
	return err == nil
}

// ListOpenPRs lists open pull requests and fetches their reviews concurrently.
func (c *APIClient) ListOpenPRs(ctx context.Context, limit int) ([]PRInfo, error) {
	owner, repo, err := c.currentRepo()
	if err != nil {
		return nil, err
	}

	c.logDebug("listing open PRs", "owner", owner, "repo", repo, "limit", limit)

	ghOpts := &gh.PullRequestListOptions{State: "open"}
	if limit > 0 {
		ghOpts.PerPage = limit
	}

	prs, resp, err := c.client.PullRequests.List(ctx, owner, repo, ghOpts)
	if err != nil {
		return nil, toGitHubError("ListOpenPRs", resp, err)
	}
	if limit > 0 && len(prs) > limit {
		prs = prs[:limit]
	}

	result := make([]PRInfo, len(prs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reviewFetchConcurrency)
	for i, pr := range prs {
		result[i] = *prInfoFromGitHub(pr)
		g.Go(func() error {
			reviews, resp, err := c.client.PullRequests.ListReviews(gctx, owner, repo, pr.GetNumber(), &gh.ListOptions{PerPage: 100})
			if err != nil {
				return toGitHubError("ListReviews", resp, err)
			}
			result[i].Reviews = reviewsFromGitHub(reviews)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

// CreatePR creates a new pull request.
func (c *APIClient) CreatePR(ctx context.Context, opts CreatePROptions) (*PRInfo, error) {
	if opts.Title == "" {
		return nil, joraerrors.NewGitHubError("CreatePR", "title is required")
	}

	owner, repo, err := c.currentRepo()
	if err != nil {
		return nil, err
	}

	head := opts.HeadBranch
	if head == "" {
		head, err = c.repo.CurrentBranch()
		if err != nil {
			return nil, joraerrors.NewGitHubErrorWithCause("CreatePR", "failed to get current branch", err)
		}
	}

	base := opts.BaseBranch
	if base == "" {
		repository, resp, err := c.client.Repositories.Get(ctx, owner, repo)
		if err != nil {
			return nil, toGitHubError("CreatePR", resp, err)
		}
		base = repository.GetDefaultBranch()
	}

	c.logDebug("creating PR", "owner", owner, "repo", repo, "head", head, "base", base)

	newPR := &gh.NewPullRequest{
		Title: gh.Ptr(opts.Title),
		Head:  gh.Ptr(head),
		Base:  gh.Ptr(base),
		Body:  gh.Ptr(opts.Body),
	}

	pr, resp, err := c.client.PullRequests.Create(ctx, owner, repo, newPR)
	if err != nil {
		return nil, toGitHubError("CreatePR", resp, err)
	}

	return prInfoFromGitHub(pr), nil
}

// CurrentPR finds the open pull request whose head is the current branch.
func (c *APIClient) CurrentPR(ctx context.Context) (*PRInfo, error) {
	owner, repo, err := c.currentRepo()
	if err != nil {
		return nil, err
	}
	branch, err := c.repo.CurrentBranch()
	if err != nil {
		return nil, joraerrors.NewGitHubErrorWithCause("CurrentPR", "failed to get current branch", err)
	}

	c.logDebug("getting PR for branch", "branch", branch)

	prs, resp, err := c.client.PullRequests.List(ctx, owner, repo, &gh.PullRequestListOptions{
		State: "open",
		Head:  owner + ":" + branch,
	})
	if err != nil {
		return nil, toGitHubError("CurrentPR", resp, err)
	}
	if len(prs) == 0 {
		return nil, ErrNoPullRequest
	}

	return prInfoFromGitHub(prs[0]), nil
}

// AddLabels adds labels to a pull request. Pull requests share the issue
// label API.
func (c *APIClient) AddLabels(ctx context.Context, number int, labels ...string) error {
	if len(labels) == 0 {
		return nil
	}

	owner, repo, err := c.currentRepo()
	if err != nil {
		return err
	}

	c.logDebug("adding labels", "number", number, "labels", labels)

	_, resp, err := c.client.Issues.AddLabelsToIssue(ctx, owner, repo, number, labels)
	if err != nil {
		return toGitHubError("AddLabels", resp, err)
	}
	return nil
}

// ListAssignees lists every assignable user of the repository.
func (c *APIClient) ListAssignees(ctx context.Context) ([]User, error) {
	owner, repo, err := c.currentRepo()
	if err != nil {
		return nil, err
	}

	c.logDebug("listing assignable users", "owner", owner, "repo", repo)

	users := []User{}
	opts := &gh.ListOptions{PerPage: 100}
	for {
		page, resp, err := c.client.Issues.ListAssignees(ctx, owner, repo, opts)
		if err != nil {
			return nil, toGitHubError("ListAssignees", resp, err)
		}
		for _, u := range page {
			users = append(users, User{Login: u.GetLogin(), Name: u.GetName()})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return users, nil
}

// SetAssignees replaces the assignees of a pull request.
func (c *APIClient) SetAssignees(ctx context.Context, number int, logins []string) error {
	owner, repo, err := c.currentRepo()
	if err != nil {
		return err
	}

	issue, resp, err := c.client.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return toGitHubError("SetAssignees", resp, err)
	}
	current := make([]string, 0, len(issue.Assignees))
	for _, u := range issue.Assignees {
		current = append(current, u.GetLogin())
	}

	add, remove := assigneeDiff(current, logins)
	c.logDebug("updating assignees", "number", number, "add", add, "remove", remove)

	if len(add) > 0 {
		if _, resp, err := c.client.Issues.AddAssignees(ctx, owner, repo, number, add); err != nil {
			return toGitHubError("SetAssignees", resp, err)
		}
	}
	if len(remove) > 0 {
		if _, resp, err := c.client.Issues.RemoveAssignees(ctx, owner, repo, number, remove); err != nil {
			return toGitHubError("SetAssignees", resp, err)
		}
	}
	return nil
}

func (c *APIClient) currentRepo() (owner, repo string, err error) {
	u, err := c.repo.RemoteRepo()
	if err != nil {
		return "", "", joraerrors.NewGitHubErrorWithCause("GetCurrentRepo", "failed to parse git remote", err)
	}
	return u.Owner, u.Repo, nil
}

func (c *APIClient) logDebug(msg string, args ...any) {
	if c.verbose {
		c.logger.Debug(msg, args...)
	}
}

// Helper functions

func prInfoFromGitHub(pr *gh.PullRequest) *PRInfo {
	info := &PRInfo{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		State:   strings.ToUpper(pr.GetState()),
		URL:     pr.GetHTMLURL(),
		Reviews: []tasks.ReviewEvent{},
	}

	if pr.Head != nil {
		info.HeadBranch = pr.GetHead().GetRef()
	}
	if pr.Base != nil {
		info.BaseBranch = pr.GetBase().GetRef()
	}
	for _, u := range pr.Assignees {
		info.Assignees = append(info.Assignees, u.GetLogin())
	}

	return info
}

func reviewsFromGitHub(reviews []*gh.PullRequestReview) []tasks.ReviewEvent {
	events := make([]tasks.ReviewEvent, 0, len(reviews))
	for _, r := range reviews {
		events = append(events, reviewEvent(r.GetUser().GetLogin(), r.GetState()))
	}
	return events
}

func toGitHubError(operation string, resp *gh.Response, err error) error {
	if resp != nil && resp.Response != nil && resp.StatusCode > 0 {
		return joraerrors.NewGitHubErrorWithStatus(operation, resp.StatusCode, err.Error())
	}
	return joraerrors.NewGitHubErrorWithCause(operation, "API request failed", err)
}

// Package github provides GitHub integration for task pull requests.
//
// Two Client implementations exist: CLIClient shells out to the gh CLI and
// reuses its stored credentials, APIClient talks to the REST API with a
// token. PullRequestSource adapts either one to the task pipeline.
package github

import (
	"strings"

	"github.com/cockroachdb/errors"

	"thoreinstein.com/jora/pkg/tasks"
)

// AuthMethod represents the authentication method for GitHub.
type AuthMethod string

const (
	// AuthToken uses a personal access token for authentication.
	AuthToken AuthMethod = "token"
	// AuthGHCLI uses the gh CLI's stored credentials.
	AuthGHCLI AuthMethod = "gh_cli"
)

// ErrNoPullRequest is returned when the current branch has no pull request.
var ErrNoPullRequest = errors.New("no pull request found for the current branch")

// PRInfo represents pull request information.
type PRInfo struct {
	Number     int
	Title      string
	Body       string
	State      string // "OPEN", "CLOSED", "MERGED"
	URL        string
	HeadBranch string
	BaseBranch string
	Reviews    []tasks.ReviewEvent // Oldest first
	Assignees  []string
}

// User is a GitHub account that can be assigned to pull requests.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Display returns "login (Name)", or just the login when the name is empty
// or the same.
func (u User) Display() string {
	if u.Name == "" || u.Name == u.Login {
		return u.Login
	}
	return u.Login + " (" + u.Name + ")"
}

// CreatePROptions holds options for creating a pull request.
type CreatePROptions struct {
	Title      string // PR title (required)
	Body       string // PR body/description
	HeadBranch string // Source branch (defaults to current branch)
	BaseBranch string // Target branch (defaults to repo default branch)
}

// ghPRResponse represents the JSON response from gh pr view/list.
type ghPRResponse struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	State       string `json:"state"`
	URL         string `json:"url"`
	HeadRefName string `json:"headRefName"`
	BaseRefName string `json:"baseRefName"`
	Reviews     []struct {
		State  string `json:"state"`
		Author struct {
			Login string `json:"login"`
		} `json:"author"`
	} `json:"reviews"`
	Assignees []struct {
		Login string `json:"login"`
	} `json:"assignees"`
}

// toPRInfo converts a ghPRResponse to PRInfo.
func (r *ghPRResponse) toPRInfo() *PRInfo {
	pr := &PRInfo{
		Number:     r.Number,
		Title:      r.Title,
		Body:       r.Body,
		State:      strings.ToUpper(r.State),
		URL:        r.URL,
		HeadBranch: r.HeadRefName,
		BaseBranch: r.BaseRefName,
		Reviews:    make([]tasks.ReviewEvent, 0, len(r.Reviews)),
	}

	for _, review := range r.Reviews {
		pr.Reviews = append(pr.Reviews, reviewEvent(review.Author.Login, review.State))
	}
	for _, a := range r.Assignees {
		if a.Login != "" {
			pr.Assignees = append(pr.Assignees, a.Login)
		}
	}

	return pr
}

// ToPullRequest converts the PR to the task pipeline's representation.
func (pr *PRInfo) ToPullRequest() tasks.PullRequest {
	reviews := pr.Reviews
	if reviews == nil {
		reviews = []tasks.ReviewEvent{}
	}
	return tasks.PullRequest{
		URL:        pr.URL,
		Title:      pr.Title,
		HeadBranch: pr.HeadBranch,
		Body:       pr.Body,
		State:      pr.State,
		Reviews:    reviews,
	}
}

func reviewEvent(login, state string) tasks.ReviewEvent {
	return tasks.ReviewEvent{
		Reviewer: login,
		State:    tasks.ReviewState(strings.ToUpper(state)),
	}
}

// assigneeDiff returns the logins to add and remove to turn current into want.
func assigneeDiff(current, want []string) (add, remove []string) {
	have := make(map[string]bool, len(current))
	for _, login := range current {
		have[login] = true
	}
	keep := make(map[string]bool, len(want))
	for _, login := range want {
		if login == "" || keep[login] {
			continue
		}
		keep[login] = true
		if !have[login] {
			add = append(add, login)
		}
	}
	for _, login := range current {
		if !keep[login] {
			remove = append(remove, login)
		}
	}
	return add, remove
}

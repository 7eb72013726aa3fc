package github

import (
	"context"
	"os"

	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/git"
)

// Client defines the interface for GitHub operations.
// Implementations include CLIClient (wrapping gh CLI) and APIClient (using GitHub REST API).
type Client interface {
	// IsAuthenticated checks if the client is authenticated with GitHub.
	IsAuthenticated() bool

	// ListOpenPRs lists open pull requests of the current repository,
	// including their reviews in submission order.
	ListOpenPRs(ctx context.Context, limit int) ([]PRInfo, error)

	// CreatePR creates a new pull request.
	CreatePR(ctx context.Context, opts CreatePROptions) (*PRInfo, error)

	// CurrentPR returns the pull request of the current branch, or
	// ErrNoPullRequest when there is none.
	CurrentPR(ctx context.Context) (*PRInfo, error)

	// AddLabels adds labels to a pull request.
	AddLabels(ctx context.Context, number int, labels ...string) error

	// ListAssignees lists the users that can be assigned in the repository.
	ListAssignees(ctx context.Context) ([]User, error)

	// SetAssignees replaces the assignees of a pull request. An empty
	// list removes every assignee.
	SetAssignees(ctx context.Context, number int, logins []string) error
}

// RepoContext locates the repository and branch a client operates on.
// *git.Repo satisfies it.
type RepoContext interface {
	RemoteRepo() (*git.RepoURL, error)
	CurrentBranch() (string, error)
}

// Compile-time checks that implementations satisfy the Client interface.
var (
	_ Client      = (*CLIClient)(nil)
	_ Client      = (*APIClient)(nil)
	_ RepoContext = (*git.Repo)(nil)
)

// ResolveToken returns the GitHub token to use.
//
// Token resolution order:
//  1. GITHUB_TOKEN environment variable
//  2. JORA_GITHUB_TOKEN environment variable
//  3. Token from config file (github.token)
func ResolveToken(cfg *config.GitHubConfig) string {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	if token := os.Getenv("JORA_GITHUB_TOKEN"); token != "" {
		return token
	}
	if cfg == nil {
		return ""
	}
	return cfg.Token
}

// NewClient creates a GitHub client based on the provided configuration.
// With a token available the REST API client is used, otherwise the gh CLI.
func NewClient(cfg *config.GitHubConfig, repo RepoContext, verbose bool) (Client, error) {
	if cfg == nil {
		return nil, joraerrors.NewGitHubError("NewClient", "github config is required")
	}

	token := ResolveToken(cfg)

	switch AuthMethod(cfg.AuthMethod) {
	case AuthToken:
		if token == "" {
			return nil, joraerrors.NewGitHubError("NewClient",
				"token auth requires GITHUB_TOKEN, JORA_GITHUB_TOKEN env var, or github.token in config")
		}
		return NewAPIClient(token, repo, verbose)

	case AuthGHCLI, "":
		if token != "" {
			return NewAPIClient(token, repo, verbose)
		}
		return NewCLIClient(verbose)

	default:
		return nil, joraerrors.NewGitHubError("NewClient", "unknown auth method: "+cfg.AuthMethod)
	}
}

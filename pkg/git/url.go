package git

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// RepoURL identifies a GitHub repository parsed from a remote URL.
type RepoURL struct {
	Original string // Remote URL as configured
	Protocol string // "ssh" or "https"
	Owner    string // GitHub org/user
	Repo     string // Repository name (without .git)
}

// FullName returns "owner/repo".
func (u *RepoURL) FullName() string {
	return u.Owner + "/" + u.Repo
}

// WebURL returns the repository's github.com page.
func (u *RepoURL) WebURL() string {
	return "https://github.com/" + u.FullName()
}

var (
	// git@github.com:owner/repo(.git)
	sshRemoteRegex = regexp.MustCompile(`^git@github\.com:([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+?)(?:\.git)?/?$`)

	// ssh://git@github.com/owner/repo(.git)
	sshSchemeRemoteRegex = regexp.MustCompile(`^ssh://git@github\.com/([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+?)(?:\.git)?/?$`)

	// https://github.com/owner/repo(.git), optionally with credentials
	httpsRemoteRegex = regexp.MustCompile(`^https://(?:[^@/]+@)?github\.com/([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+?)(?:\.git)?/?$`)
)

// ParseGitHubURL parses a git remote URL pointing at github.com.
// Supported formats:
//   - git@github.com:owner/repo.git
//   - ssh://git@github.com/owner/repo.git
//   - https://github.com/owner/repo
func ParseGitHubURL(remote string) (*RepoURL, error) {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return nil, errors.New("empty remote URL")
	}

	for _, p := range []struct {
		re       *regexp.Regexp
		protocol string
	}{
		{sshRemoteRegex, "ssh"},
		{sshSchemeRemoteRegex, "ssh"},
		{httpsRemoteRegex, "https"},
	} {
		if m := p.re.FindStringSubmatch(remote); len(m) == 3 {
			return &RepoURL{Original: remote, Protocol: p.protocol, Owner: m[1], Repo: m[2]}, nil
		}
	}

	return nil, errors.Newf("remote %q is not a GitHub repository URL", remote)
}

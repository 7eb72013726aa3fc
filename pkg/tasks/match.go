package tasks

import "strings"

// Match returns the first pull request whose title, head branch or body
// contains key, compared case-insensitively. Candidates are scanned in the
// order given. An empty key never matches.
//
// Matching is a plain substring test, so a key mentioned in an unrelated
// PR's description matches that PR too.
func Match(key string, prs []PullRequest) (PullRequestMatch, bool) {
	if key == "" {
		return PullRequestMatch{}, false
	}

	needle := strings.ToLower(key)
	for _, pr := range prs {
		if containsFold(pr.Title, needle) ||
			containsFold(pr.HeadBranch, needle) ||
			containsFold(pr.Body, needle) {
			return PullRequestMatch{
				URL:     pr.URL,
				Reviews: pr.Reviews,
				State:   pr.State,
			}, true
		}
	}

	return PullRequestMatch{}, false
}

// containsFold reports whether lowerNeedle occurs in s ignoring case.
// lowerNeedle must already be lower-cased.
func containsFold(s, lowerNeedle string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), lowerNeedle)
}

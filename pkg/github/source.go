package github

import (
	"context"
	"time"

	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/tasks"
)

// DefaultPRListLimit is the number of open pull requests fetched per listing.
const DefaultPRListLimit = 100

// PullRequestSource adapts a Client to the task pipeline.
type PullRequestSource struct {
	client Client
	limit  int
	retry  joraerrors.RetryConfig
}

var (
	_ tasks.PullRequestSource = (*PullRequestSource)(nil)
	_ tasks.Named             = (*PullRequestSource)(nil)
)

// NewPullRequestSource wraps client. A limit of zero or less uses
// DefaultPRListLimit.
func NewPullRequestSource(client Client, limit int) *PullRequestSource {
	if limit <= 0 {
		limit = DefaultPRListLimit
	}
	return &PullRequestSource{
		client: client,
		limit:  limit,
		retry: joraerrors.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   2 * time.Second,
			Jitter:     joraerrors.DefaultJitter,
		},
	}
}

// Name identifies the source in fetch errors.
func (s *PullRequestSource) Name() string { return "GitHub" }

// ListOpen returns the open pull requests with their reviews. Retryable
// failures such as rate limits are retried a couple of times.
func (s *PullRequestSource) ListOpen(ctx context.Context) ([]tasks.PullRequest, error) {
	infos, err := joraerrors.RetryWithResult(ctx, s.retry, func() ([]PRInfo, error) {
		return s.client.ListOpenPRs(ctx, s.limit)
	})
	if err != nil {
		return nil, err
	}

	prs := make([]tasks.PullRequest, 0, len(infos))
	for i := range infos {
		prs = append(prs, infos[i].ToPullRequest())
	}
	return prs, nil
}

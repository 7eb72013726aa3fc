// Package tasks ranks tracker tasks by the review state of their pull requests.
//
// The package is tracker-agnostic. Backend adapters (Jira, Linear) translate
// their API responses into Task, the GitHub adapter produces PullRequest, and
// the Pipeline joins the two: it fetches both concurrently, attaches the
// matching pull request and its reviews to every task, and sorts the result
// so that tasks needing attention come first.
package tasks

import (
	"context"
	"time"
)

// StatusCategory is the tracker-independent phase of a task.
type StatusCategory string

const (
	CategoryNotStarted StatusCategory = "not_started"
	CategoryInProgress StatusCategory = "in_progress"
	CategoryInReview   StatusCategory = "in_review"
	CategoryDone       StatusCategory = "done"
)

// ReviewState is the verdict recorded by a single review event.
// Hosting platforms report more states than the two that matter for
// classification; anything other than APPROVED and CHANGES_REQUESTED is
// treated as a pending review.
type ReviewState string

const (
	ReviewApproved         ReviewState = "APPROVED"
	ReviewChangesRequested ReviewState = "CHANGES_REQUESTED"
	ReviewCommented        ReviewState = "COMMENTED"
	ReviewPending          ReviewState = "PENDING"
	ReviewDismissed        ReviewState = "DISMISSED"
)

// ReviewStatus is the single status derived from all review events of a PR.
type ReviewStatus string

const (
	ReviewStatusApproved         ReviewStatus = "APPROVED"
	ReviewStatusChangesRequested ReviewStatus = "CHANGES_REQUESTED"
	ReviewStatusReviewRequired   ReviewStatus = "REVIEW_REQUIRED"
	ReviewStatusNoReviews        ReviewStatus = "NO_REVIEWS"
)

// ReviewEvent is one reviewer's verdict on a pull request. Slices of
// events are ordered chronologically, oldest first.
type ReviewEvent struct {
	Reviewer string      `json:"reviewer" yaml:"reviewer"`
	State    ReviewState `json:"state" yaml:"state"`
}

// PullRequest is an open pull request as reported by the hosting platform.
type PullRequest struct {
	URL        string        `json:"url"`
	Title      string        `json:"title"`
	HeadBranch string        `json:"headRefName"`
	Body       string        `json:"body"`
	State      string        `json:"state"`
	Reviews    []ReviewEvent `json:"reviews"`
}

// PullRequestMatch is the part of a PullRequest that is attached to a task.
type PullRequestMatch struct {
	URL     string
	Reviews []ReviewEvent
	State   string
}

// Enrichment holds the pull request data attached to a task. After
// enrichment every field is set: a task without a pull request has
// HasPullRequest=false, empty URL and State, and an empty, non-nil Reviews.
type Enrichment struct {
	HasPullRequest   bool          `json:"has_pull_request" yaml:"has_pull_request"`
	PullRequestURL   string        `json:"pull_request_url" yaml:"pull_request_url"`
	ReviewEvents     []ReviewEvent `json:"review_events" yaml:"review_events"`
	PullRequestState string        `json:"pull_request_state" yaml:"pull_request_state"`
}

// Task is a unit of work assigned to the current user in the tracker.
type Task struct {
	Key       string         `json:"key" yaml:"key"`
	Title     string         `json:"title" yaml:"title"`
	Status    string         `json:"status" yaml:"status"`
	Category  StatusCategory `json:"category" yaml:"category"`
	Priority  string         `json:"priority" yaml:"priority"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"updated_at"`

	Enrichment `yaml:",inline"`
}

// ReviewStatus classifies the task's attached review events.
func (t Task) ReviewStatus() ReviewStatus {
	return Classify(t.ReviewEvents)
}

// TaskSource returns the tasks assigned to the current user.
type TaskSource interface {
	FetchAssigned(ctx context.Context) ([]Task, error)
}

// PullRequestSource returns the open pull requests of the current repository.
type PullRequestSource interface {
	ListOpen(ctx context.Context) ([]PullRequest, error)
}

// Named is implemented by sources that can identify themselves in errors.
type Named interface {
	Name() string
}

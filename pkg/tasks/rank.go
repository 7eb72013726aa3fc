package tasks

import (
	"cmp"
	"slices"
)

// Sort priorities. Lower values are listed first.
const (
	PriorityApproved       = 0
	PriorityNeedsAttention = 1
	PriorityAwaitingReview = 2
	PriorityNoPullRequest  = 4
)

// Priority returns the sort key of an enriched task: approved PRs first,
// then PRs with feedback or pending reviews, then unreviewed PRs, and tasks
// without a PR last.
func Priority(t Task) int {
	if !t.HasPullRequest {
		return PriorityNoPullRequest
	}

	switch Classify(t.ReviewEvents) {
	case ReviewStatusApproved:
		return PriorityApproved
	case ReviewStatusChangesRequested, ReviewStatusReviewRequired:
		return PriorityNeedsAttention
	default:
		return PriorityAwaitingReview
	}
}

// SortByPriority sorts tasks in place by Priority. Tasks with equal priority
// keep their relative order.
func SortByPriority(ts []Task) {
	slices.SortStableFunc(ts, func(a, b Task) int {
		return cmp.Compare(Priority(a), Priority(b))
	})
}

package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withPR(key string, reviews ...ReviewEvent) Task {
	t := Task{Key: key}
	t.HasPullRequest = true
	t.ReviewEvents = append([]ReviewEvent{}, reviews...)
	return t
}

func TestPriority(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want int
	}{
		{"no pull request", Task{Key: "A-1"}, PriorityNoPullRequest},
		{"no pull request ignores stray reviews", Task{Key: "A-1", Enrichment: Enrichment{ReviewEvents: []ReviewEvent{ev("a", ReviewApproved)}}}, PriorityNoPullRequest},
		{"approved", withPR("A-1", ev("a", ReviewApproved)), PriorityApproved},
		{"changes requested", withPR("A-1", ev("a", ReviewChangesRequested)), PriorityNeedsAttention},
		{"review required", withPR("A-1", ev("a", ReviewCommented)), PriorityNeedsAttention},
		{"no reviews", withPR("A-1"), PriorityAwaitingReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Priority(tt.task))
		})
	}
}

func TestSortByPriority_IsStable(t *testing.T) {
	ts := []Task{
		{Key: "N-1"},
		withPR("W-1"),
		{Key: "N-2"},
		withPR("A-1", ev("a", ReviewApproved)),
		withPR("W-2"),
		withPR("C-1", ev("a", ReviewChangesRequested)),
		withPR("A-2", ev("b", ReviewApproved)),
	}

	SortByPriority(ts)

	keys := make([]string, len(ts))
	for i, task := range ts {
		keys[i] = task.Key
	}
	assert.Equal(t, []string{"A-1", "A-2", "C-1", "W-1", "W-2", "N-1", "N-2"}, keys)
}

// Package ui holds the terminal interaction for jora: the task browser,
// pickers and line prompts.
package ui

import (
	"fmt"

	"thoreinstein.com/jora/pkg/tasks"
)

const (
	keyWidth       = 7
	maxTitleLength = 55
)

// PriorityIndicator returns the emoji shown for a task priority.
func PriorityIndicator(priority string) string {
	switch priority {
	case "High", "Highest":
		return "🔴"
	case "Medium":
		return "🟡"
	default:
		return "🟢"
	}
}

// ReviewBadge returns the emoji shown for a task's pull request, or two
// spaces when it has none so titles stay aligned.
func ReviewBadge(t tasks.Task) string {
	if !t.HasPullRequest {
		return "  "
	}
	switch t.ReviewStatus() {
	case tasks.ReviewStatusApproved:
		return "✅"
	case tasks.ReviewStatusChangesRequested:
		return "❌"
	case tasks.ReviewStatusReviewRequired:
		return "⏳"
	default:
		return "🚀"
	}
}

// FormatTaskRow renders a task as a single list line.
func FormatTaskRow(t tasks.Task) string {
	key := []rune(t.Key)
	if len(key) > keyWidth {
		key = key[:keyWidth]
	}
	return fmt.Sprintf("%s %s %-*s %s", PriorityIndicator(t.Priority), ReviewBadge(t), keyWidth, string(key), Truncate(t.Title, maxTitleLength))
}

// Truncate shortens s to at most n runes, ending in "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

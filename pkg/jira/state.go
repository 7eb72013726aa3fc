package jira

import (
	"strings"

	"thoreinstein.com/jora/pkg/tasks"
)

// statusToCategoryMap maps lowercase Jira status names to status categories.
var statusToCategoryMap = map[string]tasks.StatusCategory{
	// Not started statuses
	"open":                     tasks.CategoryNotStarted,
	"to do":                    tasks.CategoryNotStarted,
	"backlog":                  tasks.CategoryNotStarted,
	"new":                      tasks.CategoryNotStarted,
	"reopened":                 tasks.CategoryNotStarted,
	"ready":                    tasks.CategoryNotStarted,
	"selected":                 tasks.CategoryNotStarted,
	"selected for development": tasks.CategoryNotStarted,

	// In progress statuses
	"in progress":    tasks.CategoryInProgress,
	"in development": tasks.CategoryInProgress,
	"in dev":         tasks.CategoryInProgress,
	"development":    tasks.CategoryInProgress,
	"working":        tasks.CategoryInProgress,
	"implementing":   tasks.CategoryInProgress,
	"active":         tasks.CategoryInProgress,
	"blocked":        tasks.CategoryInProgress,

	// In review statuses
	"in review":        tasks.CategoryInReview,
	"code review":      tasks.CategoryInReview,
	"review":           tasks.CategoryInReview,
	"ready for review": tasks.CategoryInReview,
	"pending review":   tasks.CategoryInReview,
	"awaiting review":  tasks.CategoryInReview,
	"under review":     tasks.CategoryInReview,
	"qa":               tasks.CategoryInReview,
	"testing":          tasks.CategoryInReview,
	"in qa":            tasks.CategoryInReview,

	// Done statuses
	"done":      tasks.CategoryDone,
	"closed":    tasks.CategoryDone,
	"resolved":  tasks.CategoryDone,
	"complete":  tasks.CategoryDone,
	"finished":  tasks.CategoryDone,
	"released":  tasks.CategoryDone,
	"deployed":  tasks.CategoryDone,
	"verified":  tasks.CategoryDone,
	"cancelled": tasks.CategoryDone,
	"canceled":  tasks.CategoryDone,
}

// MapStatusToCategory maps a Jira status name to a status category.
// The mapping is case-insensitive. Returns CategoryNotStarted for unknown statuses.
func MapStatusToCategory(status string) tasks.StatusCategory {
	statusLower := strings.ToLower(strings.TrimSpace(status))

	if category, ok := statusToCategoryMap[statusLower]; ok {
		return category
	}

	// Fallback: try to infer from keywords
	switch {
	case strings.Contains(statusLower, "progress") || strings.Contains(statusLower, "dev"):
		return tasks.CategoryInProgress
	case strings.Contains(statusLower, "review") || strings.Contains(statusLower, "qa") || strings.Contains(statusLower, "test"):
		return tasks.CategoryInReview
	case strings.Contains(statusLower, "done") || strings.Contains(statusLower, "close") || strings.Contains(statusLower, "resolv"):
		return tasks.CategoryDone
	default:
		return tasks.CategoryNotStarted
	}
}

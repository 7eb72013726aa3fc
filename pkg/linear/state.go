package linear

import (
	"strings"

	"thoreinstein.com/jora/pkg/tasks"
)

// MapStateToCategory maps a Linear workflow state to a status category.
// Linear groups states by type; started states whose name mentions review
// count as in review.
func MapStateToCategory(stateType, name string) tasks.StatusCategory {
	switch strings.ToLower(stateType) {
	case "started":
		if strings.Contains(strings.ToLower(name), "review") {
			return tasks.CategoryInReview
		}
		return tasks.CategoryInProgress
	case "completed", "canceled":
		return tasks.CategoryDone
	default:
		return tasks.CategoryNotStarted
	}
}

// normalizePriority maps Linear priority labels onto the shared names.
func normalizePriority(label string) string {
	switch label {
	case "Urgent":
		return "Highest"
	case "", "No priority":
		return "None"
	default:
		return label
	}
}

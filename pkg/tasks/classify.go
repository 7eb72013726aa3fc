package tasks

// Classify reduces a pull request's review events to a single ReviewStatus.
//
// Only the last event of each reviewer counts, where "last" means last in
// the slice. Events without a reviewer are ignored. A single outstanding
// change request outweighs any number of approvals.
func Classify(events []ReviewEvent) ReviewStatus {
	if len(events) == 0 {
		return ReviewStatusNoReviews
	}

	latest := make(map[string]ReviewState, len(events))
	for _, ev := range events {
		if ev.Reviewer == "" {
			continue
		}
		latest[ev.Reviewer] = ev.State
	}

	approved := false
	for _, state := range latest {
		switch state {
		case ReviewChangesRequested:
			return ReviewStatusChangesRequested
		case ReviewApproved:
			approved = true
		}
	}

	if approved {
		return ReviewStatusApproved
	}
	return ReviewStatusReviewRequired
}

package workflow

import (
	"context"
	"fmt"
	"strings"

	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/github"
	"thoreinstein.com/jora/pkg/tasks"
)

// PRTitle is the pull request title for a task: "[KEY] summary".
func PRTitle(t *tasks.Task) string {
	summary := t.Title
	if summary == "" {
		summary = "No summary"
	}
	return fmt.Sprintf("[%s] %s", t.Key, summary)
}

// PRBody is the pull request body for a task.
func PRBody(key string) string {
	return fmt.Sprintf("[%s]\n\n---\n*Created by Jora*", key)
}

// CommitMessage is the commit message for a task: its lower-cased title.
func CommitMessage(t *tasks.Task) string {
	title := t.Title
	if title == "" {
		title = "No title available"
	}
	return strings.ToLower(title)
}

// CreateTaskPR pushes the existing task branch for key and opens a pull
// request against the base branch.
//
// Steps:
//  1. Preflight - in a repository, the task branch exists and is checked
//     out, and it differs from the base
//  2. Fetch task - load the title from the tracker
//  3. Push - push the branch with upstream tracking
//  4. Create - open the pull request
func (e *Engine) CreateTaskPR(ctx context.Context, key string) (*PRResult, error) {
	result := &PRResult{}

	err := e.run(ctx, "create-pr",
		stepFunc{StepPreflight, func(context.Context) error {
			if err := e.requireRepo(); err != nil {
				return err
			}
			branch, err := e.repo.CheckoutTask(key, false)
			if err != nil {
				return err
			}
			result.Branch = branch

			changed, err := e.repo.HasChangesFromBase()
			if err != nil {
				return err
			}
			if !changed {
				return joraerrors.NewWorkflowError(StepPreflight.String(), "no changes found to create a PR")
			}
			return nil
		}},
		stepFunc{StepFetchTask, func(ctx context.Context) error {
			t, err := e.tracker.GetTask(ctx, key)
			if err != nil {
				return err
			}
			result.Task = t
			return nil
		}},
		stepFunc{StepPush, func(context.Context) error {
			return e.repo.Push(result.Branch)
		}},
		stepFunc{StepCreate, func(ctx context.Context) error {
			pr, err := e.github.CreatePR(ctx, github.CreatePROptions{
				Title:      PRTitle(result.Task),
				Body:       PRBody(key),
				HeadBranch: result.Branch,
				BaseBranch: e.baseBranch,
			})
			if err != nil {
				return err
			}
			result.PR = pr
			return nil
		}},
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreatePRForCurrentBranch runs CreateTaskPR for the task of the checked
// out branch.
func (e *Engine) CreatePRForCurrentBranch(ctx context.Context) (*PRResult, error) {
	if err := e.requireRepo(); err != nil {
		return nil, err
	}
	key, err := e.repo.CurrentTaskKey()
	if err != nil {
		return nil, joraerrors.NewWorkflowErrorWithCause(StepPreflight.String(), err.Error(), err)
	}
	return e.CreateTaskPR(ctx, key)
}

// CommitWithTaskTitle stages every change and commits it with the
// lower-cased title of the current branch's task.
func (e *Engine) CommitWithTaskTitle(ctx context.Context) (*CommitResult, error) {
	result := &CommitResult{}
	var task *tasks.Task

	err := e.run(ctx, "commit",
		stepFunc{StepPreflight, func(context.Context) error {
			if err := e.requireRepo(); err != nil {
				return err
			}
			key, err := e.repo.CurrentTaskKey()
			if err != nil {
				return err
			}
			result.Key = key
			return nil
		}},
		stepFunc{StepFetchTask, func(ctx context.Context) error {
			t, err := e.tracker.GetTask(ctx, result.Key)
			if err != nil {
				return err
			}
			task = t
			return nil
		}},
		stepFunc{StepCommit, func(context.Context) error {
			result.Message = CommitMessage(task)
			return e.repo.StageAndCommit(result.Message)
		}},
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CheckoutTask switches to the task branch for key, creating it from the
// refreshed base branch when needed. It returns the branch name.
func (e *Engine) CheckoutTask(ctx context.Context, key string) (string, error) {
	var branch string
	err := e.run(ctx, "checkout",
		stepFunc{StepPreflight, func(context.Context) error {
			if strings.TrimSpace(key) == "" {
				return joraerrors.NewWorkflowError(StepPreflight.String(), "task key is required")
			}
			return e.requireRepo()
		}},
		stepFunc{StepCheckout, func(context.Context) error {
			var err error
			branch, err = e.repo.CheckoutTask(key, true)
			return err
		}},
	)
	return branch, err
}

// currentPR resolves the pull request of the checked out branch.
func (e *Engine) currentPR(ctx context.Context) (*github.PRInfo, error) {
	pr, err := e.github.CurrentPR(ctx)
	if joraerrors.Is(err, github.ErrNoPullRequest) {
		return nil, joraerrors.NewWorkflowErrorWithCause(StepLookupPR.String(), "no PR found for the current branch", err)
	}
	return pr, err
}

// Deploy adds the configured deploy label to the current branch's pull
// request. It returns the labelled pull request.
func (e *Engine) Deploy(ctx context.Context) (*github.PRInfo, error) {
	var pr *github.PRInfo
	err := e.run(ctx, "deploy",
		stepFunc{StepPreflight, func(context.Context) error { return e.requireRepo() }},
		stepFunc{StepLookupPR, func(ctx context.Context) error {
			var err error
			pr, err = e.currentPR(ctx)
			return err
		}},
		stepFunc{StepLabel, func(ctx context.Context) error {
			return e.github.AddLabels(ctx, pr.Number, e.deployLabel)
		}},
	)
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// CurrentPR returns the pull request of the checked out branch.
func (e *Engine) CurrentPR(ctx context.Context) (*github.PRInfo, error) {
	if err := e.requireRepo(); err != nil {
		return nil, err
	}
	return e.currentPR(ctx)
}

// Assign replaces the assignees of the current branch's pull request with
// logins. An empty list clears them.
func (e *Engine) Assign(ctx context.Context, logins []string) (*github.PRInfo, error) {
	var pr *github.PRInfo
	err := e.run(ctx, "assign",
		stepFunc{StepPreflight, func(context.Context) error { return e.requireRepo() }},
		stepFunc{StepLookupPR, func(ctx context.Context) error {
			var err error
			pr, err = e.currentPR(ctx)
			return err
		}},
		stepFunc{StepAssign, func(ctx context.Context) error {
			return e.github.SetAssignees(ctx, pr.Number, logins)
		}},
	)
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// Package workflow runs the multi-step git, tracker and GitHub flows behind
// the checkout, commit and pr commands.
//
// Each flow is a sequence of named steps. The first failing step stops the
// flow and its error is returned wrapped in a *errors.WorkflowError that
// names the step.
package workflow

import (
	"context"

	"thoreinstein.com/jora/pkg/git"
	"thoreinstein.com/jora/pkg/github"
	"thoreinstein.com/jora/pkg/tasks"
)

// Step names a workflow step.
type Step string

const (
	// StepPreflight verifies the repository and branch state.
	StepPreflight Step = "preflight"
	// StepFetchTask loads the task from the tracker.
	StepFetchTask Step = "fetch-task"
	// StepPush pushes the task branch.
	StepPush Step = "push"
	// StepCreate opens the pull request.
	StepCreate Step = "create"
	// StepCommit stages and commits the working tree.
	StepCommit Step = "commit"
	// StepCheckout switches to the task branch.
	StepCheckout Step = "checkout"
	// StepLookupPR finds the current branch's pull request.
	StepLookupPR Step = "lookup-pr"
	// StepLabel adds labels to the pull request.
	StepLabel Step = "label"
	// StepAssign replaces the pull request's assignees.
	StepAssign Step = "assign"
)

// String returns the string representation of the step.
func (s Step) String() string {
	return string(s)
}

// Repository is the git surface the workflows need.
type Repository interface {
	IsRepo() bool
	CurrentTaskKey() (string, error)
	CheckoutTask(key string, create bool) (string, error)
	HasChangesFromBase() (bool, error)
	Push(branch string) error
	StageAndCommit(message string) error
}

// TaskGetter fetches a single task from the tracker.
type TaskGetter interface {
	GetTask(ctx context.Context, key string) (*tasks.Task, error)
}

var _ Repository = (*git.Repo)(nil)

// PRResult describes a pull request created for a task.
type PRResult struct {
	Task   *tasks.Task
	Branch string
	PR     *github.PRInfo
}

// CommitResult describes a commit made with a task title.
type CommitResult struct {
	Key     string
	Message string
}

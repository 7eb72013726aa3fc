package workflow

import (
	"context"
	"log/slog"
	"os"

	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/github"
)

// Engine runs workflows over a repository, a tracker and a GitHub client.
// Any dependency a workflow does not use may be nil.
type Engine struct {
	repo        Repository
	tracker     TaskGetter
	github      github.Client
	baseBranch  string
	deployLabel string
	verbose     bool
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a workflow engine.
//
// Parameters:
//   - repo: git repository of the current working tree
//   - tracker: task tracker used to resolve task titles
//   - gh: GitHub client for PR operations
//   - cfg: configuration (base branch and deploy label)
//   - verbose: enable verbose logging
func NewEngine(repo Repository, tracker TaskGetter, gh github.Client, cfg *config.Config, verbose bool, opts ...Option) *Engine {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	e := &Engine{
		repo:    repo,
		tracker: tracker,
		github:  gh,
		verbose: verbose,
		logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
	if cfg != nil {
		e.baseBranch = cfg.Git.BaseBranch
		e.deployLabel = cfg.GitHub.DeployLabel
	}
	if e.baseBranch == "" {
		e.baseBranch = "develop"
	}
	if e.deployLabel == "" {
		e.deployLabel = config.DefaultDeployLabel
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type stepFunc struct {
	step Step
	fn   func(context.Context) error
}

// run executes steps in order and stops at the first failure, which is
// returned as a WorkflowError for that step. Errors that already are
// WorkflowErrors pass through unchanged.
func (e *Engine) run(ctx context.Context, name string, steps ...stepFunc) error {
	e.logDebug("starting workflow", "workflow", name)

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return joraerrors.NewWorkflowErrorWithCause(s.step.String(), "interrupted", err)
		}

		e.logDebug("executing step", "workflow", name, "step", s.step)
		if err := s.fn(ctx); err != nil {
			var wfErr *joraerrors.WorkflowError
			if joraerrors.As(err, &wfErr) {
				return err
			}
			return joraerrors.NewWorkflowErrorWithCause(s.step.String(), err.Error(), err)
		}
		e.logDebug("completed step", "workflow", name, "step", s.step)
	}

	e.logDebug("workflow completed", "workflow", name)
	return nil
}

func (e *Engine) requireRepo() error {
	if e.repo == nil || !e.repo.IsRepo() {
		return joraerrors.NewWorkflowError(StepPreflight.String(), "not in a git repository")
	}
	return nil
}

func (e *Engine) logDebug(msg string, args ...any) {
	if e.verbose {
		e.logger.Debug(msg, args...)
	}
}

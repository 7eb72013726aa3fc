// Package tracker selects the issue tracker backend configured for the user.
package tracker

import (
	"context"

	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/jira"
	"thoreinstein.com/jora/pkg/linear"
	"thoreinstein.com/jora/pkg/tasks"
)

// Tracker is the issue tracker surface the commands work against.
type Tracker interface {
	tasks.TaskSource

	GetTask(ctx context.Context, key string) (*tasks.Task, error)
	CreateTask(ctx context.Context, title string, components []string) (*tasks.Task, error)
	ListComponents(ctx context.Context) ([]string, error)

	// TaskContext renders the task's summary, description and attachments
	// as markdown.
	TaskContext(ctx context.Context, key string) (string, error)
	// CommentsContext renders the task with its comment thread.
	CommentsContext(ctx context.Context, key string) (string, error)

	BrowseURL(key string) string
	Name() string
}

var (
	_ Tracker = (*jira.Client)(nil)
	_ Tracker = (*linear.Client)(nil)
)

// New returns the tracker selected by tracker.backend. An empty backend
// means JIRA.
func New(cfg *config.Config, verbose bool) (Tracker, error) {
	if cfg == nil {
		return nil, joraerrors.NewConfigError("tracker", "configuration is required")
	}

	switch cfg.Tracker.Backend {
	case "", config.BackendJira:
		c, err := jira.NewClient(&cfg.Jira, verbose)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendLinear:
		c, err := linear.NewClient(&cfg.Linear, verbose)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, joraerrors.NewConfigError("tracker.backend", "unknown tracker backend: "+cfg.Tracker.Backend)
	}
}

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"thoreinstein.com/jora/pkg/cache"
	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/git"
	"thoreinstein.com/jora/pkg/github"
	"thoreinstein.com/jora/pkg/tasks"
	"thoreinstein.com/jora/pkg/tracker"
	"thoreinstein.com/jora/pkg/workflow"
)

// errSilentExit makes Execute exit 1 without printing anything. Commands
// return it after writing their own failure message.
var errSilentExit = joraerrors.New("silent exit")

// Constructors used by the commands. Tests replace them with fakes.
var (
	newRepo = func(cfg *config.Config) *git.Repo {
		return git.NewRepo(".", cfg.Git, verbose)
	}
	newTracker = func(cfg *config.Config) (tracker.Tracker, error) {
		return tracker.New(cfg, verbose)
	}
	newGitHub = func(cfg *config.Config, repo github.RepoContext) (github.Client, error) {
		return github.NewClient(&cfg.GitHub, repo, verbose)
	}
	openCache = func(cfg *config.Config) (tasks.Cache, io.Closer, error) {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
)

// app bundles the configuration and the lazily built clients a command uses.
type app struct {
	cfg    *config.Config
	out    io.Writer
	logger *slog.Logger
	repo   *git.Repo

	tr tracker.Tracker
	gh github.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		out:    cmd.OutOrStdout(),
		logger: slog.Default(),
		repo:   newRepo(cfg),
	}, nil
}

func (a *app) tracker() (tracker.Tracker, error) {
	if a.tr == nil {
		tr, err := newTracker(a.cfg)
		if err != nil {
			return nil, err
		}
		a.tr = tr
	}
	return a.tr, nil
}

func (a *app) github() (github.Client, error) {
	if a.gh == nil {
		gh, err := newGitHub(a.cfg, a.repo)
		if err != nil {
			return nil, err
		}
		a.gh = gh
	}
	return a.gh, nil
}

// engine builds a workflow engine. Clients the caller does not ask for are
// left nil.
func (a *app) engine(withTracker, withGitHub bool) (*workflow.Engine, error) {
	var tg workflow.TaskGetter
	if withTracker {
		tr, err := a.tracker()
		if err != nil {
			return nil, err
		}
		tg = tr
	}

	var gh github.Client
	if withGitHub {
		c, err := a.github()
		if err != nil {
			return nil, err
		}
		gh = c
	}

	return workflow.NewEngine(a.repo, tg, gh, a.cfg, verbose, workflow.WithLogger(a.logger)), nil
}

// taskService wires the tracker and GitHub into a cached, ranked task list.
// GitHub and the cache are optional: without them the list has no pull
// request data or is fetched every time. The returned func releases the
// cache.
func (a *app) taskService() (*tasks.Service, func(), error) {
	tr, err := a.tracker()
	if err != nil {
		return nil, nil, err
	}

	var prs tasks.PullRequestSource
	if gh, err := a.github(); err != nil {
		a.logger.Debug("pull request data unavailable", "error", err)
	} else {
		prs = github.NewPullRequestSource(gh, a.cfg.GitHub.PRListLimit)
	}

	pipeline := tasks.NewPipeline(tr, prs, verbose,
		tasks.WithTaskTimeout(a.cfg.Tasks.TaskTimeout),
		tasks.WithPRTimeout(a.cfg.Tasks.PRTimeout),
		tasks.WithLogger(a.logger),
	)

	release := func() {}
	var store tasks.Cache
	c, closer, err := openCache(a.cfg)
	if err != nil {
		a.logger.Debug("task cache disabled", "error", err)
	} else {
		store = c
		release = func() {
			if err := closer.Close(); err != nil {
				a.logger.Debug("failed to close task cache", "error", err)
			}
		}
	}

	svc := tasks.NewService(pipeline, store, a.cfg.Cache.TTL, verbose, tasks.WithServiceLogger(a.logger))
	return svc, release, nil
}

// requireTaskKey resolves key, falling back to the task of the current
// branch.
func (a *app) requireTaskKey(key string) (string, error) {
	if key != "" {
		return key, nil
	}
	if !a.repo.IsRepo() {
		return "", joraerrors.NewGitError("CurrentTaskKey", "not in a git repository")
	}
	return a.repo.CurrentTaskKey()
}

// signalContext returns a context cancelled on interrupt.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}

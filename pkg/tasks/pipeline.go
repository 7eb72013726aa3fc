package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sourcegraph/conc/panics"

	joraerrors "thoreinstein.com/jora/pkg/errors"
)

// Default fetch deadlines. They are measured from the start of a run and
// enforced independently for each source.
const (
	DefaultTaskTimeout = 35 * time.Second
	DefaultPRTimeout   = 15 * time.Second
)

// Pipeline fetches tasks and pull requests concurrently and joins them into
// a ranked task list.
//
// The task fetch is mandatory: if it fails or misses its deadline the run
// fails with a *joraerrors.FetchError. The pull request fetch is best-effort:
// any failure degrades to an empty list and every task is shown without a PR.
type Pipeline struct {
	tasks       TaskSource
	prs         PullRequestSource
	taskTimeout time.Duration
	prTimeout   time.Duration
	verbose     bool
	logger      *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithTaskTimeout sets the deadline for the task fetch.
func WithTaskTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.taskTimeout = d
		}
	}
}

// WithPRTimeout sets the deadline for the pull request fetch.
func WithPRTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.prTimeout = d
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a Pipeline over the given sources.
func NewPipeline(tasks TaskSource, prs PullRequestSource, verbose bool, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		tasks:       tasks,
		prs:         prs,
		taskTimeout: DefaultTaskTimeout,
		prTimeout:   DefaultPRTimeout,
		verbose:     verbose,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		p.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return p
}

// EnrichAndRank fetches the assigned tasks and open pull requests, attaches
// the matching pull request to each task, and returns the tasks sorted by
// Priority.
//
// Both fetches start immediately. Results that arrive after their deadline
// are discarded. Cancelling ctx stops the wait and returns ctx's error.
func (p *Pipeline) EnrichAndRank(ctx context.Context) ([]Task, error) {
	started := time.Now()
	taskFetch := startFetch(ctx, p.taskTimeout, p.tasks.FetchAssigned)

	var prFetch *pendingFetch[PullRequest]
	if p.prs != nil {
		prFetch = startFetch(ctx, p.prTimeout, p.prs.ListOpen)
	}

	fetched, err := taskFetch.wait(ctx)
	if err != nil {
		return nil, p.taskFetchError(ctx, err)
	}
	p.logDebug("tasks fetched", "count", len(fetched), "elapsed", time.Since(started))

	prs := []PullRequest{}
	if prFetch != nil {
		prs = BestEffort(func() ([]PullRequest, error) { return prFetch.wait(ctx) }, func(err error) {
			p.logDebug("pull request fetch degraded to empty list", "error", err)
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, joraerrors.Wrap(err, "listing tasks interrupted")
	}
	p.logDebug("pull requests fetched", "count", len(prs), "elapsed", time.Since(started))

	return Enrich(fetched, prs), nil
}

// Enrich attaches to each task the first pull request that mentions its key
// and returns a new slice sorted by Priority. The input slice is not modified.
func Enrich(ts []Task, prs []PullRequest) []Task {
	out := make([]Task, len(ts))
	for i, t := range ts {
		t.Enrichment = Enrichment{ReviewEvents: []ReviewEvent{}}
		if m, ok := Match(t.Key, prs); ok {
			t.HasPullRequest = true
			t.PullRequestURL = m.URL
			t.PullRequestState = m.State
			if len(m.Reviews) > 0 {
				t.ReviewEvents = append([]ReviewEvent(nil), m.Reviews...)
			}
		}
		out[i] = t
	}
	SortByPriority(out)
	return out
}

// BestEffort calls fetch and returns its pull requests, or an empty list if
// fetch returned an error. The error is passed to onFailure when it is set.
// The returned slice is never nil.
func BestEffort(fetch func() ([]PullRequest, error), onFailure func(error)) []PullRequest {
	prs, err := fetch()
	if err != nil {
		if onFailure != nil {
			onFailure(err)
		}
		return []PullRequest{}
	}
	if prs == nil {
		return []PullRequest{}
	}
	return prs
}

func (p *Pipeline) taskFetchError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return joraerrors.Wrap(ctx.Err(), "listing tasks interrupted")
	}

	var fetchErr *joraerrors.FetchError
	if joraerrors.As(err, &fetchErr) {
		return fetchErr
	}

	source := sourceName(p.tasks)
	if joraerrors.Is(err, errFetchTimeout) || joraerrors.Is(err, context.DeadlineExceeded) {
		return joraerrors.NewFetchTimeoutError(source, fmt.Sprintf("no response after %s", p.taskTimeout))
	}
	return joraerrors.NewFetchErrorWithCause(source, "could not fetch assigned tasks", err)
}

func (p *Pipeline) logDebug(msg string, args ...any) {
	if p.verbose && p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func sourceName(v any) string {
	if n, ok := v.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return "task source"
}

var errFetchTimeout = joraerrors.New("fetch deadline exceeded")

type fetchResult[T any] struct {
	items []T
	err   error
}

// pendingFetch is a fetch running in its own goroutine. The result channel
// is buffered so that a late worker never blocks after the waiter gave up.
type pendingFetch[T any] struct {
	results <-chan fetchResult[T]
	ctx     context.Context
	cancel  context.CancelFunc
}

func startFetch[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) ([]T, error)) *pendingFetch[T] {
	fctx, cancel := context.WithTimeout(ctx, timeout)
	results := make(chan fetchResult[T], 1)

	go func() {
		var (
			pc    panics.Catcher
			items []T
			err   error
		)
		pc.Try(func() { items, err = fn(fctx) })
		if r := pc.Recovered(); r != nil {
			results <- fetchResult[T]{err: joraerrors.Wrap(r.AsError(), "fetch panicked")}
			return
		}
		results <- fetchResult[T]{items: items, err: err}
	}()

	return &pendingFetch[T]{results: results, ctx: fctx, cancel: cancel}
}

// wait blocks until the fetch completes, its deadline passes, or parent is
// cancelled. A result that is already available always wins over an
// expired deadline.
func (f *pendingFetch[T]) wait(parent context.Context) ([]T, error) {
	defer f.cancel()

	select {
	case r := <-f.results:
		return r.items, r.err
	default:
	}

	select {
	case r := <-f.results:
		return r.items, r.err
	case <-f.ctx.Done():
		if err := parent.Err(); err != nil {
			return nil, err
		}
		return nil, errFetchTimeout
	}
}

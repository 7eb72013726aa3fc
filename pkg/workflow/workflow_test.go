package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/github"
	"thoreinstein.com/jora/pkg/tasks"
)

type fakeRepo struct {
	notRepo     bool
	key         string
	keyErr      error
	checkoutErr error
	noChanges   bool
	pushErr     error
	commitErr   error

	checkouts []string
	pushed    []string
	committed []string
}

func (r *fakeRepo) IsRepo() bool { return !r.notRepo }

func (r *fakeRepo) CurrentTaskKey() (string, error) { return r.key, r.keyErr }

func (r *fakeRepo) CheckoutTask(key string, create bool) (string, error) {
	mode := "existing"
	if create {
		mode = "create"
	}
	r.checkouts = append(r.checkouts, key+":"+mode)
	if r.checkoutErr != nil {
		return "", r.checkoutErr
	}
	return "feature/" + key, nil
}

func (r *fakeRepo) HasChangesFromBase() (bool, error) { return !r.noChanges, nil }

func (r *fakeRepo) Push(branch string) error {
	r.pushed = append(r.pushed, branch)
	return r.pushErr
}

func (r *fakeRepo) StageAndCommit(message string) error {
	r.committed = append(r.committed, message)
	return r.commitErr
}

type fakeTracker struct {
	task *tasks.Task
	err  error
	keys []string
}

func (f *fakeTracker) GetTask(_ context.Context, key string) (*tasks.Task, error) {
	f.keys = append(f.keys, key)
	return f.task, f.err
}

type fakeGitHub struct {
	github.Client

	created   []github.CreatePROptions
	createErr error
	current   *github.PRInfo
	currentErr error
	labels    []string
	assigned  [][]string
}

func (g *fakeGitHub) CreatePR(_ context.Context, opts github.CreatePROptions) (*github.PRInfo, error) {
	g.created = append(g.created, opts)
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &github.PRInfo{Number: 7, URL: "https://github.com/o/r/pull/7"}, nil
}

func (g *fakeGitHub) CurrentPR(context.Context) (*github.PRInfo, error) {
	return g.current, g.currentErr
}

func (g *fakeGitHub) AddLabels(_ context.Context, _ int, labels ...string) error {
	g.labels = append(g.labels, labels...)
	return nil
}

func (g *fakeGitHub) SetAssignees(_ context.Context, _ int, logins []string) error {
	g.assigned = append(g.assigned, logins)
	return nil
}

func newTestEngine(repo Repository, tr TaskGetter, gh github.Client) *Engine {
	cfg := config.Default()
	cfg.GitHub.DeployLabel = "ship-it"
	return NewEngine(repo, tr, gh, cfg, true, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func stepOf(t *testing.T, err error) string {
	t.Helper()
	var wfErr *joraerrors.WorkflowError
	require.True(t, joraerrors.As(err, &wfErr), "want WorkflowError, got %v", err)
	return wfErr.Step
}

func TestCreateTaskPR(t *testing.T) {
	repo := &fakeRepo{}
	tr := &fakeTracker{task: &tasks.Task{Key: "ABC-1", Title: "Fix login"}}
	gh := &fakeGitHub{}

	res, err := newTestEngine(repo, tr, gh).CreateTaskPR(context.Background(), "ABC-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"ABC-1:existing"}, repo.checkouts)
	assert.Equal(t, []string{"feature/ABC-1"}, repo.pushed)
	require.Len(t, gh.created, 1)
	assert.Equal(t, github.CreatePROptions{
		Title:      "[ABC-1] Fix login",
		Body:       "[ABC-1]\n\n---\n*Created by Jora*",
		HeadBranch: "feature/ABC-1",
		BaseBranch: "develop",
	}, gh.created[0])
	assert.Equal(t, 7, res.PR.Number)
	assert.Equal(t, "feature/ABC-1", res.Branch)
}

func TestCreateTaskPR_Failures(t *testing.T) {
	tests := []struct {
		name     string
		repo     *fakeRepo
		tracker  *fakeTracker
		gh       *fakeGitHub
		wantStep Step
	}{
		{"not a repo", &fakeRepo{notRepo: true}, &fakeTracker{}, &fakeGitHub{}, StepPreflight},
		{"missing branch", &fakeRepo{checkoutErr: joraerrors.NewGitError("checkout", "branch does not exist")}, &fakeTracker{}, &fakeGitHub{}, StepPreflight},
		{"no changes", &fakeRepo{noChanges: true}, &fakeTracker{}, &fakeGitHub{}, StepPreflight},
		{"tracker down", &fakeRepo{}, &fakeTracker{err: errors.New("boom")}, &fakeGitHub{}, StepFetchTask},
		{"push rejected", &fakeRepo{pushErr: errors.New("rejected")}, &fakeTracker{task: &tasks.Task{Key: "ABC-1"}}, &fakeGitHub{}, StepPush},
		{"create fails", &fakeRepo{}, &fakeTracker{task: &tasks.Task{Key: "ABC-1"}}, &fakeGitHub{createErr: errors.New("exists")}, StepCreate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestEngine(tt.repo, tt.tracker, tt.gh).CreateTaskPR(context.Background(), "ABC-1")
			require.Error(t, err)
			assert.Equal(t, tt.wantStep.String(), stepOf(t, err))
		})
	}
}

func TestCreatePRForCurrentBranch(t *testing.T) {
	repo := &fakeRepo{key: "ABC-9"}
	tr := &fakeTracker{task: &tasks.Task{Key: "ABC-9"}}
	gh := &fakeGitHub{}

	_, err := newTestEngine(repo, tr, gh).CreatePRForCurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[ABC-9] No summary", gh.created[0].Title)

	_, err = newTestEngine(&fakeRepo{keyErr: errors.New("bad branch")}, tr, gh).CreatePRForCurrentBranch(context.Background())
	assert.Equal(t, StepPreflight.String(), stepOf(t, err))
}

func TestCommitWithTaskTitle(t *testing.T) {
	repo := &fakeRepo{key: "ABC-2"}
	tr := &fakeTracker{task: &tasks.Task{Key: "ABC-2", Title: "Add Retry To Uploads"}}

	res, err := newTestEngine(repo, tr, nil).CommitWithTaskTitle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "add retry to uploads", res.Message)
	assert.Equal(t, []string{"add retry to uploads"}, repo.committed)
	assert.Equal(t, []string{"ABC-2"}, tr.keys)

	repo = &fakeRepo{key: "ABC-2", commitErr: joraerrors.NewGitError("commit", "no changes to commit")}
	_, err = newTestEngine(repo, tr, nil).CommitWithTaskTitle(context.Background())
	assert.Equal(t, StepCommit.String(), stepOf(t, err))
	assert.Contains(t, err.Error(), "no changes to commit")
}

func TestCheckoutTask(t *testing.T) {
	repo := &fakeRepo{}
	branch, err := newTestEngine(repo, nil, nil).CheckoutTask(context.Background(), "ABC-3")
	require.NoError(t, err)
	assert.Equal(t, "feature/ABC-3", branch)
	assert.Equal(t, []string{"ABC-3:create"}, repo.checkouts)

	_, err = newTestEngine(repo, nil, nil).CheckoutTask(context.Background(), " ")
	assert.Equal(t, StepPreflight.String(), stepOf(t, err))
}

func TestDeploy(t *testing.T) {
	gh := &fakeGitHub{current: &github.PRInfo{Number: 12}}
	pr, err := newTestEngine(&fakeRepo{}, nil, gh).Deploy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, pr.Number)
	assert.Equal(t, []string{"ship-it"}, gh.labels)

	gh = &fakeGitHub{currentErr: github.ErrNoPullRequest}
	_, err = newTestEngine(&fakeRepo{}, nil, gh).Deploy(context.Background())
	assert.Equal(t, StepLookupPR.String(), stepOf(t, err))
	assert.True(t, joraerrors.Is(err, github.ErrNoPullRequest))
	assert.Empty(t, gh.labels)
}

func TestAssign(t *testing.T) {
	gh := &fakeGitHub{current: &github.PRInfo{Number: 3}}
	e := newTestEngine(&fakeRepo{}, nil, gh)

	_, err := e.Assign(context.Background(), []string{"ana", "bo"})
	require.NoError(t, err)
	_, err = e.Assign(context.Background(), []string{})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"ana", "bo"}, {}}, gh.assigned)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := &fakeRepo{}
	_, err := newTestEngine(repo, nil, nil).CheckoutTask(ctx, "ABC-1")
	assert.Equal(t, StepPreflight.String(), stepOf(t, err))
	assert.True(t, joraerrors.Is(err, context.Canceled))
	assert.Empty(t, repo.checkouts)
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil, false)
	assert.Equal(t, "develop", e.baseBranch)
	assert.Equal(t, config.DefaultDeployLabel, e.deployLabel)

	_, err := e.Deploy(context.Background())
	assert.Equal(t, StepPreflight.String(), stepOf(t, err))
}

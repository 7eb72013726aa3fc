package git

import (
	"fmt"
	"strconv"
	"strings"

	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
)

// Repo runs task-oriented git operations in a working tree.
//
// Task branches are named BranchPrefix + lower-cased task key and are cut
// from BaseBranch. Comparisons against the base use the remote-tracking ref
// Remote/BaseBranch.
type Repo struct {
	Dir          string
	BaseBranch   string
	Remote       string
	BranchPrefix string
	Verbose      bool
	runner       CommandRunner
}

// NewRepo creates a Repo for dir using the given git settings.
func NewRepo(dir string, cfg config.GitConfig, verbose bool) *Repo {
	return NewRepoWithRunner(dir, cfg, verbose, &RealCommandRunner{Verbose: verbose})
}

// NewRepoWithRunner creates a Repo with a custom CommandRunner (for testing)
func NewRepoWithRunner(dir string, cfg config.GitConfig, verbose bool, runner CommandRunner) *Repo {
	r := &Repo{
		Dir:          dir,
		BaseBranch:   cfg.BaseBranch,
		Remote:       cfg.Remote,
		BranchPrefix: cfg.BranchPrefix,
		Verbose:      verbose,
		runner:       runner,
	}
	if r.BaseBranch == "" {
		r.BaseBranch = "develop"
	}
	if r.Remote == "" {
		r.Remote = "origin"
	}
	if r.BranchPrefix == "" {
		r.BranchPrefix = "feature/"
	}
	return r
}

// DiffStats summarizes the changes of a task branch against the base.
type DiffStats struct {
	FilesChanged int
	Insertions   int
	Deletions    int
	Files        []FileStat
}

// FileStat is the per-file line count of a diff. Binary files count as zero.
type FileStat struct {
	Path    string
	Added   int
	Removed int
}

// BaseRef returns the remote-tracking ref of the base branch, e.g. "origin/develop".
func (r *Repo) BaseRef() string {
	return r.Remote + "/" + r.BaseBranch
}

// BranchName returns the task branch for key, e.g. "feature/abc-123".
func (r *Repo) BranchName(key string) string {
	return r.BranchPrefix + strings.ToLower(key)
}

// KeyFromBranch extracts the upper-cased task key from a task branch name.
// It returns "" when branch is not a task branch.
func (r *Repo) KeyFromBranch(branch string) string {
	if !strings.HasPrefix(branch, r.BranchPrefix) {
		return ""
	}
	return strings.ToUpper(strings.TrimPrefix(branch, r.BranchPrefix))
}

// IsRepo reports whether Dir is inside a git working tree.
func (r *Repo) IsRepo() bool {
	return r.runner.Run(r.Dir, "git", "rev-parse", "--git-dir") == nil
}

// Root returns the top-level directory of the working tree.
func (r *Repo) Root() (string, error) {
	out, err := r.runner.Output(r.Dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", joraerrors.NewGitErrorWithCause("rev-parse", "not in a git repository", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CurrentBranch returns the checked out branch name.
func (r *Repo) CurrentBranch() (string, error) {
	out, err := r.runner.Output(r.Dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", joraerrors.NewGitErrorWithCause("rev-parse", "failed to get current branch", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CurrentTaskKey returns the task key of the checked out task branch.
func (r *Repo) CurrentTaskKey() (string, error) {
	branch, err := r.CurrentBranch()
	if err != nil {
		return "", err
	}
	key := r.KeyFromBranch(branch)
	if key == "" {
		return "", joraerrors.NewGitError("branch",
			fmt.Sprintf("current branch %q does not follow the expected pattern (%sTASK-KEY)", branch, r.BranchPrefix))
	}
	return key, nil
}

// HasUncommittedChanges reports whether the working tree has staged,
// unstaged or untracked changes.
func (r *Repo) HasUncommittedChanges() (bool, error) {
	out, err := r.runner.Output(r.Dir, "git", "status", "--porcelain")
	if err != nil {
		return false, joraerrors.NewGitErrorWithCause("status", "failed to read working tree status", err)
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// RequireClean fails when the working tree has uncommitted changes.
func (r *Repo) RequireClean() error {
	dirty, err := r.HasUncommittedChanges()
	if err != nil {
		return err
	}
	if dirty {
		return joraerrors.NewGitError("status", "please commit or stash changes before switching branches")
	}
	return nil
}

// BranchExists reports whether a local branch exists.
func (r *Repo) BranchExists(branch string) bool {
	return r.runner.Run(r.Dir, "git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch) == nil
}

// CheckoutTask switches to the task branch for key and returns its name.
// The working tree must be clean. When the branch does not exist and create
// is set, the base branch is refreshed from the remote and the task branch
// is cut from it.
func (r *Repo) CheckoutTask(key string, create bool) (string, error) {
	branch := r.BranchName(key)

	if err := r.RequireClean(); err != nil {
		return "", err
	}

	if err := r.runner.Run(r.Dir, "git", "checkout", branch); err == nil {
		return branch, nil
	}

	if !create {
		return "", joraerrors.NewGitError("checkout",
			fmt.Sprintf("branch %s does not exist - no changes to create a PR from", branch))
	}

	steps := [][]string{
		{"fetch", r.Remote},
		{"checkout", r.BaseBranch},
		{"pull", r.Remote, r.BaseBranch},
	}
	for _, args := range steps {
		if err := r.runner.Run(r.Dir, "git", args...); err != nil {
			return "", joraerrors.NewGitErrorWithCause(args[0],
				fmt.Sprintf("could not update %s branch - ensure it exists", r.BaseBranch), err)
		}
	}

	if err := r.runner.Run(r.Dir, "git", "checkout", "-b", branch, r.BaseBranch); err != nil {
		return "", joraerrors.NewGitErrorWithCause("checkout", "failed to create branch "+branch, err)
	}

	return branch, nil
}

// StageAndCommit stages every change in the working tree and commits it.
func (r *Repo) StageAndCommit(message string) error {
	if !r.IsRepo() {
		return joraerrors.NewGitError("commit", "not in a git repository")
	}

	if err := r.runner.Run(r.Dir, "git", "add", "."); err != nil {
		return joraerrors.NewGitErrorWithCause("add", "failed to stage changes", err)
	}

	out, err := r.runner.Output(r.Dir, "git", "diff", "--cached", "--name-only")
	if err != nil {
		return joraerrors.NewGitErrorWithCause("diff", "failed to list staged changes", err)
	}
	if strings.TrimSpace(string(out)) == "" {
		return joraerrors.NewGitError("commit", "no changes to commit")
	}

	if err := r.runner.Run(r.Dir, "git", "commit", "-m", message); err != nil {
		return joraerrors.NewGitErrorWithCause("commit", "failed to commit", err)
	}
	return nil
}

// HasChangesFromBase reports whether the working tree differs from the base ref.
func (r *Repo) HasChangesFromBase() (bool, error) {
	out, err := r.runner.Output(r.Dir, "git", "diff", "--name-only", r.BaseRef())
	if err != nil {
		return false, joraerrors.NewGitErrorWithCause("diff", "failed to check for changes", err)
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// Push pushes branch to the remote and sets it as upstream.
func (r *Repo) Push(branch string) error {
	if err := r.runner.Run(r.Dir, "git", "push", "--set-upstream", r.Remote, branch); err != nil {
		return joraerrors.NewGitErrorWithCause("push", "failed to push branch "+branch, err)
	}
	return nil
}

// TaskCommits returns the one-line log of commits on HEAD that are not on the base ref.
func (r *Repo) TaskCommits() (string, error) {
	out, err := r.runner.Output(r.Dir, "git", "log", "--oneline", r.BaseRef()+"..HEAD")
	if err != nil {
		return "", joraerrors.NewGitErrorWithCause("log", "failed to list task commits", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CommitsAhead returns how many commits branch has that the base ref lacks.
// A missing branch counts as zero.
func (r *Repo) CommitsAhead(branch string) int {
	out, err := r.runner.Output(r.Dir, "git", "rev-list", "--count", r.BaseRef()+".."+branch)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0
	}
	return n
}

// Diff returns the full diff of HEAD against its merge base with the base ref.
func (r *Repo) Diff() (string, error) {
	out, err := r.runner.Output(r.Dir, "git", "diff", r.BaseRef()+"...HEAD")
	if err != nil {
		return "", joraerrors.NewGitErrorWithCause("diff", "failed to diff against "+r.BaseRef(), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// DiffStats summarizes the diff of HEAD against its merge base with the base ref.
func (r *Repo) DiffStats() (*DiffStats, error) {
	rangeSpec := r.BaseRef() + "...HEAD"

	short, err := r.runner.Output(r.Dir, "git", "diff", "--shortstat", rangeSpec)
	if err != nil {
		return nil, joraerrors.NewGitErrorWithCause("diff", "failed to read diff summary", err)
	}
	num, err := r.runner.Output(r.Dir, "git", "diff", "--numstat", rangeSpec)
	if err != nil {
		return nil, joraerrors.NewGitErrorWithCause("diff", "failed to read per-file diff", err)
	}

	stats := parseShortstat(string(short))
	stats.Files = parseNumstat(string(num))
	return stats, nil
}

// RemoteRepo parses the remote's URL into a GitHub repository.
func (r *Repo) RemoteRepo() (*RepoURL, error) {
	out, err := r.runner.Output(r.Dir, "git", "remote", "get-url", r.Remote)
	if err != nil {
		return nil, joraerrors.NewGitErrorWithCause("remote", "failed to read URL of remote "+r.Remote, err)
	}
	return ParseGitHubURL(string(out))
}

// parseShortstat parses "3 files changed, 10 insertions(+), 2 deletions(-)".
func parseShortstat(s string) *DiffStats {
	stats := &DiffStats{}
	for _, part := range strings.Split(strings.TrimSpace(s), ", ") {
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(fields[1], "file"):
			stats.FilesChanged = n
		case strings.HasPrefix(fields[1], "insertion"):
			stats.Insertions = n
		case strings.HasPrefix(fields[1], "deletion"):
			stats.Deletions = n
		}
	}
	return stats
}

// parseNumstat parses tab-separated "added\tremoved\tpath" lines. Binary
// files report "-" for both counts.
func parseNumstat(s string) []FileStat {
	var files []FileStat
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 3 {
			continue
		}
		added, _ := strconv.Atoi(parts[0])
		removed, _ := strconv.Atoi(parts[1])
		files = append(files, FileStat{Path: parts[2], Added: added, Removed: removed})
	}
	return files
}

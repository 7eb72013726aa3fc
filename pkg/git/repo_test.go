package git

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
)

func testRepo(mock *MockCommandRunner) *Repo {
	return NewRepoWithRunner("/work", config.GitConfig{}, false, mock)
}

func TestNewRepoWithRunner_Defaults(t *testing.T) {
	r := testRepo(&MockCommandRunner{})
	if r.BaseBranch != "develop" || r.Remote != "origin" || r.BranchPrefix != "feature/" {
		t.Errorf("defaults = %s/%s/%s, want develop/origin/feature/", r.BaseBranch, r.Remote, r.BranchPrefix)
	}
	if got := r.BaseRef(); got != "origin/develop" {
		t.Errorf("BaseRef() = %q, want origin/develop", got)
	}

	custom := NewRepoWithRunner("/work", config.GitConfig{BaseBranch: "main", Remote: "upstream", BranchPrefix: "task/"}, false, &MockCommandRunner{})
	if got := custom.BaseRef(); got != "upstream/main" {
		t.Errorf("BaseRef() = %q, want upstream/main", got)
	}
}

func TestBranchNaming(t *testing.T) {
	r := testRepo(&MockCommandRunner{})

	if got := r.BranchName("ABC-123"); got != "feature/abc-123" {
		t.Errorf("BranchName() = %q", got)
	}

	tests := []struct {
		branch string
		want   string
	}{
		{"feature/abc-123", "ABC-123"},
		{"feature/ABC-1", "ABC-1"},
		{"main", ""},
		{"bugfix/abc-1", ""},
	}
	for _, tt := range tests {
		if got := r.KeyFromBranch(tt.branch); got != tt.want {
			t.Errorf("KeyFromBranch(%q) = %q, want %q", tt.branch, got, tt.want)
		}
	}

	key := "XYZ-42"
	if got := r.KeyFromBranch(r.BranchName(key)); got != key {
		t.Errorf("round trip = %q, want %q", got, key)
	}
}

func TestCurrentTaskKey(t *testing.T) {
	t.Run("task branch", func(t *testing.T) {
		mock := &MockCommandRunner{
			OutputFunc: func(dir, name string, args ...string) ([]byte, error) {
				return []byte("feature/abc-7\n"), nil
			},
		}
		key, err := testRepo(mock).CurrentTaskKey()
		if err != nil {
			t.Fatalf("CurrentTaskKey() error = %v", err)
		}
		if key != "ABC-7" {
			t.Errorf("CurrentTaskKey() = %q, want ABC-7", key)
		}
	})

	t.Run("not a task branch", func(t *testing.T) {
		mock := &MockCommandRunner{
			OutputFunc: func(dir, name string, args ...string) ([]byte, error) {
				return []byte("main\n"), nil
			},
		}
		_, err := testRepo(mock).CurrentTaskKey()
		if !joraerrors.IsGitError(err) {
			t.Fatalf("CurrentTaskKey() error = %v, want GitError", err)
		}
		if !strings.Contains(err.Error(), "feature/TASK-KEY") {
			t.Errorf("error %q should name the expected pattern", err)
		}
	})
}

func TestCheckoutTask_ExistingBranch(t *testing.T) {
	mock := &MockCommandRunner{}
	branch, err := testRepo(mock).CheckoutTask("ABC-1", true)
	if err != nil {
		t.Fatalf("CheckoutTask() error = %v", err)
	}
	if branch != "feature/abc-1" {
		t.Errorf("branch = %q", branch)
	}

	want := []string{"git status --porcelain", "git checkout feature/abc-1"}
	if !reflect.DeepEqual(mock.Calls, want) {
		t.Errorf("calls = %v, want %v", mock.Calls, want)
	}
}

func TestCheckoutTask_CreatesFromBase(t *testing.T) {
	mock := &MockCommandRunner{
		RunFunc: func(dir, name string, args ...string) error {
			if len(args) == 2 && args[0] == "checkout" && args[1] == "feature/abc-1" {
				return errors.New("pathspec did not match")
			}
			return nil
		},
	}

	if _, err := testRepo(mock).CheckoutTask("ABC-1", true); err != nil {
		t.Fatalf("CheckoutTask() error = %v", err)
	}

	want := []string{
		"git status --porcelain",
		"git checkout feature/abc-1",
		"git fetch origin",
		"git checkout develop",
		"git pull origin develop",
		"git checkout -b feature/abc-1 develop",
	}
	if !reflect.DeepEqual(mock.Calls, want) {
		t.Errorf("calls = %v, want %v", mock.Calls, want)
	}
}

func TestCheckoutTask_Failures(t *testing.T) {
	t.Run("dirty tree", func(t *testing.T) {
		mock := &MockCommandRunner{
			OutputFunc: func(dir, name string, args ...string) ([]byte, error) {
				return []byte(" M main.go\n"), nil
			},
		}
		_, err := testRepo(mock).CheckoutTask("ABC-1", true)
		if err == nil || !strings.Contains(err.Error(), "commit or stash") {
			t.Fatalf("CheckoutTask() error = %v, want dirty tree error", err)
		}
		if len(mock.Calls) != 1 {
			t.Errorf("no checkout should be attempted, calls = %v", mock.Calls)
		}
	})

	t.Run("missing branch without create", func(t *testing.T) {
		mock := &MockCommandRunner{
			RunFunc: func(dir, name string, args ...string) error { return errors.New("no such branch") },
		}
		_, err := testRepo(mock).CheckoutTask("ABC-1", false)
		if err == nil || !strings.Contains(err.Error(), "does not exist") {
			t.Fatalf("CheckoutTask() error = %v", err)
		}
	})

	t.Run("base branch update fails", func(t *testing.T) {
		mock := &MockCommandRunner{
			RunFunc: func(dir, name string, args ...string) error {
				if args[0] == "checkout" || args[0] == "pull" {
					return errors.New("failed")
				}
				return nil
			},
		}
		_, err := testRepo(mock).CheckoutTask("ABC-1", true)
		if err == nil || !strings.Contains(err.Error(), "could not update develop") {
			t.Fatalf("CheckoutTask() error = %v", err)
		}
	})
}

func TestStageAndCommit(t *testing.T) {
	t.Run("commits staged changes", func(t *testing.T) {
		mock := &MockCommandRunner{
			OutputFunc: func(dir, name string, args ...string) ([]byte, error) {
				return []byte("main.go\n"), nil
			},
		}
		if err := testRepo(mock).StageAndCommit("add login form"); err != nil {
			t.Fatalf("StageAndCommit() error = %v", err)
		}
		last := mock.Calls[len(mock.Calls)-1]
		if last != "git commit -m add login form" {
			t.Errorf("last call = %q", last)
		}
	})

	t.Run("nothing staged", func(t *testing.T) {
		mock := &MockCommandRunner{}
		err := testRepo(mock).StageAndCommit("msg")
		if err == nil || !strings.Contains(err.Error(), "no changes to commit") {
			t.Fatalf("StageAndCommit() error = %v", err)
		}
		for _, c := range mock.Calls {
			if strings.HasPrefix(c, "git commit") {
				t.Error("commit must not run when nothing is staged")
			}
		}
	})

	t.Run("not a repo", func(t *testing.T) {
		mock := &MockCommandRunner{
			RunFunc: func(dir, name string, args ...string) error { return errors.New("not a git repository") },
		}
		if err := testRepo(mock).StageAndCommit("msg"); err == nil {
			t.Fatal("StageAndCommit() should fail outside a repository")
		}
	})
}

func TestCommitsAhead(t *testing.T) {
	mock := &MockCommandRunner{
		OutputFunc: func(dir, name string, args ...string) ([]byte, error) {
			if args[0] == "rev-list" && args[2] == "origin/develop..feature/abc-1" {
				return []byte("3\n"), nil
			}
			return nil, errors.New("unknown revision")
		},
	}
	r := testRepo(mock)

	if got := r.CommitsAhead("feature/abc-1"); got != 3 {
		t.Errorf("CommitsAhead() = %d, want 3", got)
	}
	if got := r.CommitsAhead("feature/missing"); got != 0 {
		t.Errorf("CommitsAhead(missing) = %d, want 0", got)
	}
}

func TestDiffStats(t *testing.T) {
	mock := &MockCommandRunner{
		OutputFunc: func(dir, name string, args ...string) ([]byte, error) {
			switch args[1] {
			case "--shortstat":
				return []byte(" 3 files changed, 12 insertions(+), 4 deletions(-)\n"), nil
			case "--numstat":
				return []byte("10\t2\tpkg/a.go\n2\t2\tpkg/b.go\n-\t-\tlogo.png\n"), nil
			}
			return nil, errors.New("unexpected")
		},
	}

	stats, err := testRepo(mock).DiffStats()
	if err != nil {
		t.Fatalf("DiffStats() error = %v", err)
	}
	if stats.FilesChanged != 3 || stats.Insertions != 12 || stats.Deletions != 4 {
		t.Errorf("summary = %+v", stats)
	}
	want := []FileStat{
		{Path: "pkg/a.go", Added: 10, Removed: 2},
		{Path: "pkg/b.go", Added: 2, Removed: 2},
		{Path: "logo.png"},
	}
	if !reflect.DeepEqual(stats.Files, want) {
		t.Errorf("files = %+v, want %+v", stats.Files, want)
	}
}

func TestParseShortstat_Partial(t *testing.T) {
	tests := []struct {
		in   string
		want DiffStats
	}{
		{"", DiffStats{}},
		{" 1 file changed, 1 insertion(+)", DiffStats{FilesChanged: 1, Insertions: 1}},
		{" 2 files changed, 5 deletions(-)", DiffStats{FilesChanged: 2, Deletions: 5}},
	}
	for _, tt := range tests {
		if got := parseShortstat(tt.in); !reflect.DeepEqual(*got, tt.want) {
			t.Errorf("parseShortstat(%q) = %+v, want %+v", tt.in, *got, tt.want)
		}
	}
}

func TestRemoteRepo(t *testing.T) {
	mock := &MockCommandRunner{
		OutputFunc: func(dir, name string, args ...string) ([]byte, error) {
			return []byte("git@github.com:acme/jora.git\n"), nil
		},
	}
	u, err := testRepo(mock).RemoteRepo()
	if err != nil {
		t.Fatalf("RemoteRepo() error = %v", err)
	}
	if u.FullName() != "acme/jora" {
		t.Errorf("FullName() = %q", u.FullName())
	}
	if mock.Calls[0] != "git remote get-url origin" {
		t.Errorf("call = %q", mock.Calls[0])
	}
}

package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"sort"
	"sync"
	"testing"

	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/git"
	"thoreinstein.com/jora/pkg/tasks"
)

type fakeRepo struct {
	branch string
	err    error
}

func (f *fakeRepo) RemoteRepo() (*git.RepoURL, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &git.RepoURL{Owner: "acme", Repo: "jora"}, nil
}

func (f *fakeRepo) CurrentBranch() (string, error) { return f.branch, nil }

func newTestAPIClient(t *testing.T, mux *http.ServeMux, repo RepoContext) *APIClient {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, err := NewAPIClient("test-token", repo, false, WithBaseURL(base))
	if err != nil {
		t.Fatalf("NewAPIClient() error = %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewAPIClient_Validation(t *testing.T) {
	if _, err := NewAPIClient("", &fakeRepo{}, false); err == nil {
		t.Error("NewAPIClient with empty token should return error")
	}
	if _, err := NewAPIClient("token", nil, false); err == nil {
		t.Error("NewAPIClient without repository context should return error")
	}
}

func TestAPIClient_ListOpenPRs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/jora/pulls", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != "open" {
			t.Errorf("state = %q, want open", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		writeJSON(w, []map[string]any{
			{"number": 1, "title": "ABC-1 login", "state": "open", "html_url": "https://github.com/acme/jora/pull/1", "head": map[string]any{"ref": "feature/abc-1"}},
			{"number": 2, "title": "misc", "state": "open", "html_url": "https://github.com/acme/jora/pull/2", "head": map[string]any{"ref": "chore/deps"}},
		})
	})
	mux.HandleFunc("GET /repos/acme/jora/pulls/1/reviews", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"state": "CHANGES_REQUESTED", "user": map[string]any{"login": "alice"}},
			{"state": "APPROVED", "user": map[string]any{"login": "alice"}},
		})
	})
	mux.HandleFunc("GET /repos/acme/jora/pulls/2/reviews", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{})
	})

	prs, err := newTestAPIClient(t, mux, &fakeRepo{}).ListOpenPRs(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListOpenPRs() error = %v", err)
	}
	if len(prs) != 2 {
		t.Fatalf("ListOpenPRs() returned %d PRs", len(prs))
	}

	if prs[0].HeadBranch != "feature/abc-1" || prs[0].State != "OPEN" {
		t.Errorf("prs[0] = %+v", prs[0])
	}
	wantReviews := []tasks.ReviewEvent{
		{Reviewer: "alice", State: tasks.ReviewChangesRequested},
		{Reviewer: "alice", State: tasks.ReviewApproved},
	}
	if !reflect.DeepEqual(prs[0].Reviews, wantReviews) {
		t.Errorf("prs[0].Reviews = %+v", prs[0].Reviews)
	}
	if prs[1].Reviews == nil || len(prs[1].Reviews) != 0 {
		t.Errorf("prs[1].Reviews = %#v, want empty", prs[1].Reviews)
	}
}

func TestAPIClient_ListOpenPRs_ReviewFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/jora/pulls", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"number": 1}})
	})
	mux.HandleFunc("GET /repos/acme/jora/pulls/1/reviews", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"unavailable"}`, http.StatusServiceUnavailable)
	})

	_, err := newTestAPIClient(t, mux, &fakeRepo{}).ListOpenPRs(context.Background(), 0)
	if !joraerrors.IsGitHubError(err) {
		t.Fatalf("error = %v, want GitHubError", err)
	}
	if !joraerrors.IsRetryable(err) {
		t.Error("503 should be retryable")
	}
}

func TestAPIClient_RemoteFailure(t *testing.T) {
	c := newTestAPIClient(t, http.NewServeMux(), &fakeRepo{err: errors.New("no remote")})
	if _, err := c.ListOpenPRs(context.Background(), 0); !joraerrors.IsGitHubError(err) {
		t.Errorf("error = %v, want GitHubError", err)
	}
}

func TestAPIClient_CreatePR(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/jora/pulls", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["head"] != "feature/abc-1" || body["base"] != "develop" || body["title"] != "ABC-1: Login" {
			t.Errorf("request body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]any{"number": 3, "title": "ABC-1: Login", "state": "open", "html_url": "https://github.com/acme/jora/pull/3"})
	})

	pr, err := newTestAPIClient(t, mux, &fakeRepo{branch: "feature/abc-1"}).CreatePR(context.Background(), CreatePROptions{
		Title:      "ABC-1: Login",
		BaseBranch: "develop",
	})
	if err != nil {
		t.Fatalf("CreatePR() error = %v", err)
	}
	if pr.Number != 3 || pr.URL != "https://github.com/acme/jora/pull/3" {
		t.Errorf("CreatePR() = %+v", pr)
	}
}

func TestAPIClient_CurrentPR(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/jora/pulls", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("head") == "acme:feature/abc-1" {
			writeJSON(w, []map[string]any{{"number": 4, "html_url": "https://github.com/acme/jora/pull/4"}})
			return
		}
		writeJSON(w, []map[string]any{})
	})

	pr, err := newTestAPIClient(t, mux, &fakeRepo{branch: "feature/abc-1"}).CurrentPR(context.Background())
	if err != nil || pr.Number != 4 {
		t.Fatalf("CurrentPR() = %+v, %v", pr, err)
	}

	_, err = newTestAPIClient(t, mux, &fakeRepo{branch: "feature/other"}).CurrentPR(context.Background())
	if !errors.Is(err, ErrNoPullRequest) {
		t.Errorf("CurrentPR() error = %v, want ErrNoPullRequest", err)
	}
}

func TestAPIClient_SetAssignees(t *testing.T) {
	var mu sync.Mutex
	got := map[string][]string{}

	record := func(kind string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Assignees []string `json:"assignees"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			got[kind] = body.Assignees
			mu.Unlock()
			writeJSON(w, map[string]any{"number": 5})
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/jora/issues/5", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"number": 5, "assignees": []map[string]any{{"login": "alice"}, {"login": "bob"}}})
	})
	mux.HandleFunc("POST /repos/acme/jora/issues/5/assignees", record("add"))
	mux.HandleFunc("DELETE /repos/acme/jora/issues/5/assignees", record("remove"))

	err := newTestAPIClient(t, mux, &fakeRepo{}).SetAssignees(context.Background(), 5, []string{"bob", "carol"})
	if err != nil {
		t.Fatalf("SetAssignees() error = %v", err)
	}
	if !reflect.DeepEqual(got["add"], []string{"carol"}) || !reflect.DeepEqual(got["remove"], []string{"alice"}) {
		t.Errorf("assignee changes = %v", got)
	}
}

func TestAPIClient_ListAssignees(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/jora/assignees", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"login": "bob"}, {"login": "alice", "name": "Alice"}})
	})

	users, err := newTestAPIClient(t, mux, &fakeRepo{}).ListAssignees(context.Background())
	if err != nil {
		t.Fatalf("ListAssignees() error = %v", err)
	}
	logins := []string{users[0].Login, users[1].Login}
	sort.Strings(logins)
	if !reflect.DeepEqual(logins, []string{"alice", "bob"}) {
		t.Errorf("ListAssignees() = %+v", users)
	}
}

func TestAPIClient_AddLabels(t *testing.T) {
	var labels []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/jora/issues/7/labels", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&labels)
		writeJSON(w, []map[string]any{{"name": "deploy-qa"}})
	})

	if err := newTestAPIClient(t, mux, &fakeRepo{}).AddLabels(context.Background(), 7, "deploy-qa"); err != nil {
		t.Fatalf("AddLabels() error = %v", err)
	}
	if !reflect.DeepEqual(labels, []string{"deploy-qa"}) {
		t.Errorf("labels = %v", labels)
	}
}

func TestToGitHubError(t *testing.T) {
	err := toGitHubError("ListOpenPRs", nil, errors.New("dial failed"))
	var ghErr *joraerrors.GitHubError
	if !errors.As(err, &ghErr) || ghErr.StatusCode != 0 || ghErr.Operation != "ListOpenPRs" {
		t.Errorf("toGitHubError() = %#v", err)
	}
}

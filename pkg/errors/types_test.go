package errors

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *FetchError
		expected string
	}{
		{
			name:     "failure",
			err:      &FetchError{Source: "jira", Message: "connection refused"},
			expected: "fetching tasks from jira failed: connection refused",
		},
		{
			name:     "timeout",
			err:      &FetchError{Source: "linear", Message: "no response after 35s", Timeout: true},
			expected: "fetching tasks from linear timed out: no response after 35s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFetchError_ErrorsAs(t *testing.T) {
	cause := NewJiraErrorWithStatus("SearchAssigned", "", 401, "unauthorized")
	fetchErr := NewFetchErrorWithCause("jira", "search failed", cause)

	wrapped := errors.Wrap(fetchErr, "listing tasks")

	var target *FetchError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As() should find FetchError in wrapped error chain")
	}
	if target.Source != "jira" {
		t.Errorf("Source = %q, want %q", target.Source, "jira")
	}

	var jiraErr *JiraError
	if !errors.As(wrapped, &jiraErr) {
		t.Fatal("errors.As() should find the JiraError cause through FetchError")
	}
	if jiraErr.StatusCode != 401 {
		t.Errorf("StatusCode = %d, want 401", jiraErr.StatusCode)
	}
}

func TestJiraError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *JiraError
		expected string
	}{
		{
			name:     "ticket and status",
			err:      &JiraError{Operation: "GetTask", Ticket: "ABC-1", StatusCode: 404, Message: "not found"},
			expected: "jira GetTask for ABC-1 failed (HTTP 404): not found",
		},
		{
			name:     "ticket only",
			err:      &JiraError{Operation: "GetTask", Ticket: "ABC-1", Message: "bad json"},
			expected: "jira GetTask for ABC-1 failed: bad json",
		},
		{
			name:     "status only",
			err:      &JiraError{Operation: "SearchAssigned", StatusCode: 500, Message: "boom"},
			expected: "jira SearchAssigned failed (HTTP 500): boom",
		},
		{
			name:     "neither",
			err:      &JiraError{Operation: "AccountID", Message: "no user"},
			expected: "jira AccountID failed: no user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGitAndAgentErrors(t *testing.T) {
	gitErr := NewGitErrorWithCause("commit", "no changes to commit", errors.New("exit status 1"))
	if got := gitErr.Error(); got != "git commit failed: no changes to commit" {
		t.Errorf("GitError.Error() = %q", got)
	}
	if !IsGitError(errors.Wrap(gitErr, "wrapped")) {
		t.Error("IsGitError() should see through wrapping")
	}

	agentErr := &AgentError{Command: "cursor-agent", Phase: "Review Phase", ExitCode: 2, Message: "crashed"}
	if got := agentErr.Error(); got != "agent cursor-agent (Review Phase) exited with code 2: crashed" {
		t.Errorf("AgentError.Error() = %q", got)
	}
	if !IsAgentError(agentErr) {
		t.Error("IsAgentError() = false, want true")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("plain"), false},
		{"github 503", NewGitHubErrorWithStatus("ListOpenPRs", 503, "unavailable"), true},
		{"github 404", NewGitHubErrorWithStatus("ListOpenPRs", 404, "missing"), false},
		{"jira 429", NewJiraErrorWithStatus("SearchAssigned", "", 429, "slow down"), true},
		{"linear 502", NewLinearErrorWithStatus("Assigned", 502, "bad gateway"), true},
		{"wrapped github 504", errors.Wrap(NewGitHubErrorWithStatus("CreatePR", 504, "timeout"), "ctx"), true},
		{"workflow with retryable cause", NewWorkflowErrorWithCause("push", "failed", NewGitHubErrorWithStatus("x", 500, "y")), true},
		{"fetch errors are never retried", NewFetchError("jira", "down"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "config",
			err:      NewConfigError("jira.base_url", "is required"),
			contains: []string{"Configuration error in 'jira.base_url'", "jora config init"},
		},
		{
			name:     "fetch timeout",
			err:      NewFetchTimeoutError("jira", "no response after 35s"),
			contains: []string{"Could not load tasks from jira", "tasks.task_timeout"},
		},
		{
			name:     "fetch takes precedence over its jira cause",
			err:      NewFetchErrorWithCause("jira", "search failed", NewJiraErrorWithStatus("SearchAssigned", "", 401, "unauthorized")),
			contains: []string{"Could not load tasks from jira", "Underlying error"},
		},
		{
			name:     "jira 401",
			err:      NewJiraErrorWithStatus("GetTask", "ABC-1", 401, "unauthorized"),
			contains: []string{"JIRA_API_KEY"},
		},
		{
			name:     "github 422",
			err:      NewGitHubErrorWithStatus("CreatePR", 422, "exists"),
			contains: []string{"A pull request may already exist"},
		},
		{
			name:     "agent not installed",
			err:      NewAgentError("cursor-agent", "executable not found"),
			contains: []string{"Ensure cursor-agent is installed"},
		},
		{
			name:     "workflow preflight",
			err:      NewWorkflowError("preflight", "branch feature/abc-1 does not exist"),
			contains: []string{"jora checkout"},
		},
		{
			name:     "plain",
			err:      errors.New("plain failure"),
			contains: []string{"plain failure"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatUserError(tt.err)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("FormatUserError() = %q, missing %q", got, want)
				}
			}
		})
	}

	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestRetryWithResult(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Jitter: 0}

	t.Run("retries retryable errors until success", func(t *testing.T) {
		attempts := 0
		got, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
			attempts++
			if attempts < 3 {
				return 0, NewGitHubErrorWithStatus("ListOpenPRs", 503, "unavailable")
			}
			return 42, nil
		})
		if err != nil {
			t.Fatalf("RetryWithResult() error = %v", err)
		}
		if got != 42 || attempts != 3 {
			t.Errorf("got %d after %d attempts, want 42 after 3", got, attempts)
		}
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		attempts := 0
		err := Retry(context.Background(), cfg, func() error {
			attempts++
			return NewGitHubErrorWithStatus("CreatePR", 422, "invalid")
		})
		if err == nil {
			t.Fatal("Retry() should fail")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		err := Retry(context.Background(), cfg, func() error {
			attempts++
			return NewJiraErrorWithStatus("SearchAssigned", "", 429, "slow down")
		})
		if err == nil {
			t.Fatal("Retry() should fail")
		}
		if attempts != cfg.MaxRetries+1 {
			t.Errorf("attempts = %d, want %d", attempts, cfg.MaxRetries+1)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, cfg, func() error { return nil })
		if err == nil {
			t.Fatal("Retry() with cancelled context should fail")
		}
	})
}

func TestCalculateBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Second

	if got := CalculateBackoff(base, max, 0, 0); got != base {
		t.Errorf("attempt 0 = %v, want %v", got, base)
	}
	if got := CalculateBackoff(base, max, 2, 0); got != 400*time.Millisecond {
		t.Errorf("attempt 2 = %v, want 400ms", got)
	}
	if got := CalculateBackoff(base, max, 10, 0); got != max {
		t.Errorf("attempt 10 = %v, want capped %v", got, max)
	}

	for i := 0; i < 50; i++ {
		got := CalculateBackoff(base, max, 0, DefaultJitter)
		if got < 80*time.Millisecond || got > 120*time.Millisecond {
			t.Fatalf("jittered delay %v outside [80ms, 120ms]", got)
		}
	}
}

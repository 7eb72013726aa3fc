// Package errors provides typed errors for the jora project.
//
// This package defines domain-specific error types that provide structured
// error information for the different subsystems (config, trackers, GitHub,
// git, the coding agent, task fetching and workflows). All error types
// implement the standard error interface and support errors.Is() and
// errors.As() from the standard library and cockroachdb/errors.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Field   string // Which config field has the issue
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
	}
	return "config error: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with an underlying cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// GitHubError represents GitHub API/CLI errors.
type GitHubError struct {
	Operation  string // e.g., "ListOpenPRs", "CreatePR"
	StatusCode int    // HTTP status code if applicable
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *GitHubError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("github %s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *GitHubError) Unwrap() error {
	return e.Cause
}

// NewGitHubError creates a new GitHubError.
func NewGitHubError(operation, message string) *GitHubError {
	return &GitHubError{Operation: operation, Message: message}
}

// NewGitHubErrorWithStatus creates a new GitHubError with HTTP status code.
func NewGitHubErrorWithStatus(operation string, statusCode int, message string) *GitHubError {
	return &GitHubError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  isRetryableHTTPStatus(statusCode),
	}
}

// NewGitHubErrorWithCause creates a new GitHubError with an underlying cause.
func NewGitHubErrorWithCause(operation, message string, cause error) *GitHubError {
	return &GitHubError{
		Operation: operation,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// JiraError represents Jira API errors.
type JiraError struct {
	Operation  string
	Ticket     string
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *JiraError) Error() string {
	if e.Ticket != "" && e.StatusCode > 0 {
		return fmt.Sprintf("jira %s for %s failed (HTTP %d): %s", e.Operation, e.Ticket, e.StatusCode, e.Message)
	}
	if e.Ticket != "" {
		return fmt.Sprintf("jira %s for %s failed: %s", e.Operation, e.Ticket, e.Message)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("jira %s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("jira %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *JiraError) Unwrap() error {
	return e.Cause
}

// NewJiraError creates a new JiraError.
func NewJiraError(operation, message string) *JiraError {
	return &JiraError{Operation: operation, Message: message}
}

// NewJiraErrorWithTicket creates a new JiraError for a specific ticket.
func NewJiraErrorWithTicket(operation, ticket, message string) *JiraError {
	return &JiraError{Operation: operation, Ticket: ticket, Message: message}
}

// NewJiraErrorWithStatus creates a new JiraError with HTTP status code.
func NewJiraErrorWithStatus(operation, ticket string, statusCode int, message string) *JiraError {
	return &JiraError{
		Operation:  operation,
		Ticket:     ticket,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  isRetryableHTTPStatus(statusCode),
	}
}

// NewJiraErrorWithCause creates a new JiraError with an underlying cause.
func NewJiraErrorWithCause(operation, ticket, message string, cause error) *JiraError {
	return &JiraError{
		Operation: operation,
		Ticket:    ticket,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// LinearError represents Linear GraphQL API errors.
type LinearError struct {
	Operation  string
	Issue      string
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *LinearError) Error() string {
	target := e.Operation
	if e.Issue != "" {
		target = fmt.Sprintf("%s for %s", e.Operation, e.Issue)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("linear %s failed (HTTP %d): %s", target, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("linear %s failed: %s", target, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *LinearError) Unwrap() error {
	return e.Cause
}

// NewLinearError creates a new LinearError.
func NewLinearError(operation, message string) *LinearError {
	return &LinearError{Operation: operation, Message: message}
}

// NewLinearErrorWithStatus creates a new LinearError with HTTP status code.
func NewLinearErrorWithStatus(operation string, statusCode int, message string) *LinearError {
	return &LinearError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  isRetryableHTTPStatus(statusCode),
	}
}

// NewLinearErrorWithCause creates a new LinearError with an underlying cause.
func NewLinearErrorWithCause(operation, issue, message string, cause error) *LinearError {
	return &LinearError{
		Operation: operation,
		Issue:     issue,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// GitError represents a failed git porcelain operation.
type GitError struct {
	Operation string // e.g., "checkout", "commit", "push"
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *GitError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("git %s failed: %s", e.Operation, e.Message)
	}
	return "git error: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *GitError) Unwrap() error {
	return e.Cause
}

// NewGitError creates a new GitError.
func NewGitError(operation, message string) *GitError {
	return &GitError{Operation: operation, Message: message}
}

// NewGitErrorWithCause creates a new GitError with an underlying cause.
func NewGitErrorWithCause(operation, message string, cause error) *GitError {
	return &GitError{Operation: operation, Message: message, Cause: cause}
}

// AgentError represents errors from running the external coding agent.
type AgentError struct {
	Command  string // agent binary, e.g. "cursor-agent"
	Phase    string // e.g. "Review Phase"
	ExitCode int
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("agent %s (%s) exited with code %d: %s", e.Command, e.Phase, e.ExitCode, e.Message)
	}
	return fmt.Sprintf("agent %s failed: %s", e.Command, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *AgentError) Unwrap() error {
	return e.Cause
}

// NewAgentError creates a new AgentError.
func NewAgentError(command, message string) *AgentError {
	return &AgentError{Command: command, Message: message}
}

// NewAgentErrorWithCause creates a new AgentError with an underlying cause.
func NewAgentErrorWithCause(command, message string, cause error) *AgentError {
	return &AgentError{Command: command, Message: message, Cause: cause}
}

// FetchError is returned when the mandatory task source cannot be read:
// unreachable, malformed response, or timeout. It is fatal to task listing.
type FetchError struct {
	Source  string // e.g., "jira", "linear"
	Message string
	Timeout bool
	Cause   error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("fetching tasks from %s timed out: %s", e.Source, e.Message)
	}
	return fmt.Sprintf("fetching tasks from %s failed: %s", e.Source, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewFetchError creates a new FetchError.
func NewFetchError(source, message string) *FetchError {
	return &FetchError{Source: source, Message: message}
}

// NewFetchErrorWithCause creates a new FetchError with an underlying cause.
func NewFetchErrorWithCause(source, message string, cause error) *FetchError {
	return &FetchError{Source: source, Message: message, Cause: cause}
}

// NewFetchTimeoutError creates a FetchError for a fetch that exceeded its deadline.
func NewFetchTimeoutError(source, message string) *FetchError {
	return &FetchError{Source: source, Message: message, Timeout: true}
}

// WorkflowError represents workflow orchestration errors.
type WorkflowError struct {
	Step      string // e.g., "preflight", "push", "create", "commit"
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *WorkflowError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("workflow step %s failed: %s", e.Step, e.Message)
	}
	return "workflow error: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *WorkflowError) Unwrap() error {
	return e.Cause
}

// NewWorkflowError creates a new WorkflowError.
func NewWorkflowError(step, message string) *WorkflowError {
	return &WorkflowError{Step: step, Message: message}
}

// NewWorkflowErrorWithCause creates a new WorkflowError with an underlying cause.
func NewWorkflowErrorWithCause(step, message string, cause error) *WorkflowError {
	return &WorkflowError{
		Step:      step,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// IsRetryable checks if an error or any error in its chain is retryable.
// It returns true if the error itself is retryable, or if any wrapped error
// is marked as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ghErr *GitHubError
	if errors.As(err, &ghErr) {
		return ghErr.Retryable
	}

	var jiraErr *JiraError
	if errors.As(err, &jiraErr) {
		return jiraErr.Retryable
	}

	var linearErr *LinearError
	if errors.As(err, &linearErr) {
		return linearErr.Retryable
	}

	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr.Retryable
	}

	return false
}

// IsConfigError checks if an error or any error in its chain is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsGitHubError checks if an error or any error in its chain is a GitHubError.
func IsGitHubError(err error) bool {
	var ghErr *GitHubError
	return errors.As(err, &ghErr)
}

// IsJiraError checks if an error or any error in its chain is a JiraError.
func IsJiraError(err error) bool {
	var jiraErr *JiraError
	return errors.As(err, &jiraErr)
}

// IsLinearError checks if an error or any error in its chain is a LinearError.
func IsLinearError(err error) bool {
	var linearErr *LinearError
	return errors.As(err, &linearErr)
}

// IsGitError checks if an error or any error in its chain is a GitError.
func IsGitError(err error) bool {
	var gitErr *GitError
	return errors.As(err, &gitErr)
}

// IsAgentError checks if an error or any error in its chain is an AgentError.
func IsAgentError(err error) bool {
	var agentErr *AgentError
	return errors.As(err, &agentErr)
}

// IsFetchError checks if an error or any error in its chain is a FetchError.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// IsWorkflowError checks if an error or any error in its chain is a WorkflowError.
func IsWorkflowError(err error) bool {
	var wfErr *WorkflowError
	return errors.As(err, &wfErr)
}

// isRetryableHTTPStatus returns true for HTTP status codes that are typically retryable.
func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// Re-export commonly used functions from cockroachdb/errors for convenience.
// This allows consumers to use joraerrors.Wrap() instead of importing two packages.
var (
	// New creates a new error with the given message.
	New = errors.New

	// Newf creates a new error with formatted message.
	Newf = errors.Newf

	// Wrap wraps an error with additional context.
	Wrap = errors.Wrap

	// Wrapf wraps an error with formatted additional context.
	Wrapf = errors.Wrapf

	// Is reports whether any error in err's chain matches target.
	Is = errors.Is

	// As finds the first error in err's chain that matches target.
	As = errors.As

	// Cause returns the root cause of an error.
	Cause = errors.Cause
)

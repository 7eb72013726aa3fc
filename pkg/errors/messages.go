package errors

import (
	"fmt"
	"strings"
)

// FormatUserError returns a user-friendly error message with actionable guidance.
// It examines the error chain and provides context-appropriate help text.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var configErr *ConfigError
	if As(err, &configErr) {
		return formatConfigError(configErr)
	}

	var fetchErr *FetchError
	if As(err, &fetchErr) {
		return formatFetchError(fetchErr)
	}

	var ghErr *GitHubError
	if As(err, &ghErr) {
		return formatGitHubError(ghErr)
	}

	var jiraErr *JiraError
	if As(err, &jiraErr) {
		return formatJiraError(jiraErr)
	}

	var linearErr *LinearError
	if As(err, &linearErr) {
		return formatLinearError(linearErr)
	}

	var agentErr *AgentError
	if As(err, &agentErr) {
		return formatAgentError(agentErr)
	}

	var wfErr *WorkflowError
	if As(err, &wfErr) {
		return formatWorkflowError(wfErr)
	}

	var gitErr *GitError
	if As(err, &gitErr) {
		return formatGitError(gitErr)
	}

	return err.Error()
}

func formatConfigError(err *ConfigError) string {
	var b strings.Builder

	if err.Field != "" {
		fmt.Fprintf(&b, "Configuration error in '%s': %s\n", err.Field, err.Message)
	} else {
		fmt.Fprintf(&b, "Configuration error: %s\n", err.Message)
	}

	b.WriteString("\nTo fix this:\n")
	b.WriteString("  • Check your config file: ~/.config/jora/config.toml\n")
	b.WriteString("  • Or add the values to a .env file at the repository root\n")
	b.WriteString("  • Run 'jora config init' to write a default config\n")

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatFetchError explains a failed task listing. The tracker-specific
// cause, when present, carries the detailed guidance.
func formatFetchError(err *FetchError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Could not load tasks from %s: %s\n", err.Source, err.Message)

	if err.Timeout {
		b.WriteString("\nThe tracker did not answer in time. To fix this:\n")
		b.WriteString("  • Check your network connection and VPN\n")
		b.WriteString("  • Raise tasks.task_timeout in your config if the tracker is slow\n")
	} else {
		b.WriteString("\nTo fix this:\n")
		b.WriteString("  • Verify your tracker credentials and base URL\n")
		b.WriteString("  • Run with --verbose for more details\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatGitHubError formats a GitHubError with actionable guidance based on status code.
func formatGitHubError(err *GitHubError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GitHub error during %s: %s\n", err.Operation, err.Message)

	switch err.StatusCode {
	case 401:
		b.WriteString("\nAuthentication failed. To fix this:\n")
		b.WriteString("  • Run 'gh auth login' to authenticate the gh CLI\n")
		b.WriteString("  • Or set the GITHUB_TOKEN environment variable\n")
		b.WriteString("  • Ensure your token has the 'repo' scope\n")

	case 403:
		b.WriteString("\nPermission denied. To fix this:\n")
		b.WriteString("  • Ensure you have write access to this repository\n")
		b.WriteString("  • If using SSO, ensure the token is authorized for your organization\n")

	case 404:
		b.WriteString("\nResource not found. To fix this:\n")
		b.WriteString("  • Verify the origin remote points at the right repository\n")
		b.WriteString("  • Ensure the branch or PR exists\n")

	case 422:
		b.WriteString("\nValidation failed. To fix this:\n")
		b.WriteString("  • A pull request may already exist for this branch\n")
		b.WriteString("  • Ensure the branch has been pushed to origin\n")

	case 429:
		b.WriteString("\nRate limit exceeded. To fix this:\n")
		b.WriteString("  • Wait a few minutes before retrying\n")

	case 500, 502, 503, 504:
		b.WriteString("\nGitHub server error. To fix this:\n")
		b.WriteString("  • Wait a few moments and try again\n")
		b.WriteString("  • Check GitHub Status: https://www.githubstatus.com\n")
	}

	if err.Retryable {
		b.WriteString("\nThis error may be temporary. You can try running the command again.\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatJiraError formats a JiraError with actionable guidance based on status code.
func formatJiraError(err *JiraError) string {
	var b strings.Builder

	if err.Ticket != "" {
		fmt.Fprintf(&b, "Jira error during %s for ticket %s: %s\n", err.Operation, err.Ticket, err.Message)
	} else {
		fmt.Fprintf(&b, "Jira error during %s: %s\n", err.Operation, err.Message)
	}

	switch err.StatusCode {
	case 401:
		b.WriteString("\nAuthentication failed. To fix this:\n")
		b.WriteString("  • Set JIRA_EMAIL and JIRA_API_KEY in your environment or .env file\n")
		b.WriteString("  • Generate a new API token at: https://id.atlassian.com/manage-profile/security/api-tokens\n")

	case 403:
		b.WriteString("\nAccess denied. To fix this:\n")
		b.WriteString("  • Check that your Jira account has the required project permissions\n")

	case 404:
		if err.Ticket != "" {
			fmt.Fprintf(&b, "\nTicket %s not found. To fix this:\n", err.Ticket)
		} else {
			b.WriteString("\nResource not found. To fix this:\n")
		}
		b.WriteString("  • Verify the ticket key and JIRA_PROJECT_KEY are correct\n")
		b.WriteString("  • Check that you have access to the project\n")

	case 429:
		b.WriteString("\nJira rate limit exceeded. To fix this:\n")
		b.WriteString("  • Wait before making more requests\n")

	case 500, 502, 503, 504:
		b.WriteString("\nJira server error. To fix this:\n")
		b.WriteString("  • Wait a few moments and try again\n")
		b.WriteString("  • Check Atlassian Status: https://status.atlassian.com\n")
	}

	if err.Retryable {
		b.WriteString("\nThis error may be temporary. You can try running the command again.\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

func formatLinearError(err *LinearError) string {
	var b strings.Builder

	if err.Issue != "" {
		fmt.Fprintf(&b, "Linear error during %s for issue %s: %s\n", err.Operation, err.Issue, err.Message)
	} else {
		fmt.Fprintf(&b, "Linear error during %s: %s\n", err.Operation, err.Message)
	}

	switch err.StatusCode {
	case 400, 401:
		b.WriteString("\nThe request was rejected. To fix this:\n")
		b.WriteString("  • Set LINEAR_API_KEY to a valid personal API key\n")
		b.WriteString("  • Check linear.team_key in your config\n")
	case 429:
		b.WriteString("\nLinear rate limit exceeded. Wait a minute and retry.\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

func formatAgentError(err *AgentError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Coding agent error: %s\n", err.Message)

	if err.ExitCode == 0 {
		b.WriteString("\nTo fix this:\n")
		fmt.Fprintf(&b, "  • Ensure %s is installed and in your PATH\n", err.Command)
		b.WriteString("  • Or set agent.command in your config\n")
	} else {
		fmt.Fprintf(&b, "\n%s exited with code %d during %s.\n", err.Command, err.ExitCode, err.Phase)
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatWorkflowError formats a WorkflowError with actionable guidance.
func formatWorkflowError(err *WorkflowError) string {
	var b strings.Builder

	if err.Step != "" {
		fmt.Fprintf(&b, "Workflow error in '%s' step: %s\n", err.Step, err.Message)
	} else {
		fmt.Fprintf(&b, "Workflow error: %s\n", err.Message)
	}

	switch err.Step {
	case "preflight":
		b.WriteString("\nPreflight checks failed. To fix this:\n")
		b.WriteString("  • Run 'jora checkout <KEY>' to create the task branch\n")
		b.WriteString("  • Commit your work so the branch differs from the base branch\n")

	case "push":
		b.WriteString("\nPush failed. To fix this:\n")
		b.WriteString("  • Check your access to the origin remote\n")
		b.WriteString("  • Pull and resolve conflicts if the remote branch moved\n")

	case "create":
		b.WriteString("\nPull request creation failed. To fix this:\n")
		b.WriteString("  • Check whether a PR already exists for this branch\n")
		b.WriteString("  • Run 'gh auth status' to verify GitHub access\n")

	case "commit":
		b.WriteString("\nCommit failed. To fix this:\n")
		b.WriteString("  • Make sure there are changes to commit\n")
		b.WriteString("  • Check that you are on a feature branch\n")

	default:
		b.WriteString("\nTo troubleshoot:\n")
		b.WriteString("  • Run with --verbose for more details\n")
	}

	if err.Retryable {
		b.WriteString("\nThis error may be temporary. You can try running the command again.\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

func formatGitError(err *GitError) string {
	msg := fmt.Sprintf("Git error during %s: %s\n", err.Operation, err.Message)
	if err.Cause != nil {
		msg += fmt.Sprintf("\nUnderlying error: %v", err.Cause)
	}
	return msg
}

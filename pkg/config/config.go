package config

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config represents the application configuration
// Repository information is derived from git, not configuration
type Config struct {
	Tracker TrackerConfig `mapstructure:"tracker" toml:"tracker" yaml:"tracker"`
	Jira    JiraConfig    `mapstructure:"jira" toml:"jira" yaml:"jira"`
	Linear  LinearConfig  `mapstructure:"linear" toml:"linear" yaml:"linear"`
	GitHub  GitHubConfig  `mapstructure:"github" toml:"github" yaml:"github"`
	Git     GitConfig     `mapstructure:"git" toml:"git" yaml:"git"`
	Agent   AgentConfig   `mapstructure:"agent" toml:"agent" yaml:"agent"`
	Cache   CacheConfig   `mapstructure:"cache" toml:"cache" yaml:"cache"`
	Tasks   TasksConfig   `mapstructure:"tasks" toml:"tasks" yaml:"tasks"`
}

// TrackerConfig selects the issue tracker backend
type TrackerConfig struct {
	Backend string `mapstructure:"backend" toml:"backend" yaml:"backend"` // "jira" or "linear"
}

// JiraConfig holds JIRA integration configuration
type JiraConfig struct {
	BaseURL          string   `mapstructure:"base_url" toml:"base_url" yaml:"base_url"`          // e.g., "https://your-domain.atlassian.net"
	Email            string   `mapstructure:"email" toml:"email" yaml:"email"`                   // User email for Basic Auth
	Token            string   `mapstructure:"token" toml:"token" yaml:"token"`                   // API token (JIRA_API_KEY env var takes precedence)
	ProjectKey       string   `mapstructure:"project_key" toml:"project_key" yaml:"project_key"` // Project used when creating tasks
	MaxResults       int      `mapstructure:"max_results" toml:"max_results" yaml:"max_results"`
	ExcludedStatuses []string `mapstructure:"excluded_statuses" toml:"excluded_statuses" yaml:"excluded_statuses"`
}

// LinearConfig holds Linear integration configuration
type LinearConfig struct {
	APIKey    string `mapstructure:"api_key" toml:"api_key" yaml:"api_key"`    // LINEAR_API_KEY env var takes precedence
	TeamKey   string `mapstructure:"team_key" toml:"team_key" yaml:"team_key"` // Team used when creating tasks
	Endpoint  string `mapstructure:"endpoint" toml:"endpoint" yaml:"endpoint"`
	Workspace string `mapstructure:"workspace" toml:"workspace" yaml:"workspace"` // URL slug used for browse links
}

// GitHubConfig holds GitHub integration configuration
type GitHubConfig struct {
	AuthMethod  string `mapstructure:"auth_method" toml:"auth_method" yaml:"auth_method"` // "gh_cli" or "token"
	Token       string `mapstructure:"token" toml:"token" yaml:"token"`                   // For token auth (GITHUB_TOKEN env var takes precedence)
	DeployLabel string `mapstructure:"deploy_label" toml:"deploy_label" yaml:"deploy_label"`
	PRListLimit int    `mapstructure:"pr_list_limit" toml:"pr_list_limit" yaml:"pr_list_limit"`
}

// GitConfig holds branch naming and remote configuration
type GitConfig struct {
	BaseBranch   string `mapstructure:"base_branch" toml:"base_branch" yaml:"base_branch"`
	Remote       string `mapstructure:"remote" toml:"remote" yaml:"remote"`
	BranchPrefix string `mapstructure:"branch_prefix" toml:"branch_prefix" yaml:"branch_prefix"`
}

// AgentConfig holds the coding agent CLI configuration
type AgentConfig struct {
	Command string `mapstructure:"command" toml:"command" yaml:"command"`
	Model   string `mapstructure:"model" toml:"model" yaml:"model"`
}

// CacheConfig holds task list cache configuration
type CacheConfig struct {
	Path string        `mapstructure:"path" toml:"path" yaml:"path"`
	TTL  time.Duration `mapstructure:"ttl" toml:"ttl" yaml:"ttl"`
}

// TasksConfig holds task listing deadlines
type TasksConfig struct {
	TaskTimeout time.Duration `mapstructure:"task_timeout" toml:"task_timeout" yaml:"task_timeout"`
	PRTimeout   time.Duration `mapstructure:"pr_timeout" toml:"pr_timeout" yaml:"pr_timeout"`
}

// Supported tracker backends.
const (
	BackendJira   = "jira"
	BackendLinear = "linear"
)

// ValidBackends is the list of supported tracker backends.
var ValidBackends = []string{BackendJira, BackendLinear}

// DefaultDeployLabel is the label `pr deploy` adds when none is configured.
const DefaultDeployLabel = "deploy"

// DefaultExcludedStatuses are the JIRA statuses that count as finished.
var DefaultExcludedStatuses = []string{"Done", "Resolved", "Closed", "Cancelled"}

// SecurityWarning represents a configuration security issue
type SecurityWarning struct {
	Field   string
	Message string
}

// Load loads the configuration from file and environment variables
func Load() (*Config, error) {
	config := &Config{}

	// Set defaults
	setDefaults()

	// Unmarshal the config
	if err := viper.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	// Expand paths
	if err := expandPaths(config); err != nil {
		return nil, errors.Wrap(err, "failed to expand paths")
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return config, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return &Config{
		Tracker: TrackerConfig{Backend: BackendJira},
		Jira: JiraConfig{
			MaxResults:       50,
			ExcludedStatuses: slices.Clone(DefaultExcludedStatuses),
		},
		Linear: LinearConfig{
			Endpoint: "https://api.linear.app/graphql",
		},
		GitHub: GitHubConfig{
			AuthMethod:  "gh_cli",
			DeployLabel: DefaultDeployLabel,
			PRListLimit: 100,
		},
		Git: GitConfig{
			BaseBranch:   "develop",
			Remote:       "origin",
			BranchPrefix: "feature/",
		},
		Agent: AgentConfig{
			Command: "cursor-agent",
			Model:   "sonnet-4.5-thinking",
		},
		Cache: CacheConfig{
			Path: filepath.Join(homeDir, ".cache", "jora", "cache.db"),
			TTL:  24 * time.Hour,
		},
		Tasks: TasksConfig{
			TaskTimeout: 35 * time.Second,
			PRTimeout:   15 * time.Second,
		},
	}
}

// CheckSecurityWarnings returns warnings for insecure configuration practices.
// Call this when loading config to warn users about tokens stored in config files.
func CheckSecurityWarnings(config *Config) []SecurityWarning {
	var warnings []SecurityWarning

	if config.GitHub.Token != "" && os.Getenv("JORA_GITHUB_TOKEN") == "" && os.Getenv("GITHUB_TOKEN") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "github.token",
			Message: "GitHub token is set in config file. For security, use GITHUB_TOKEN environment variable or 'gh auth login' instead.",
		})
	}

	if config.Jira.Token != "" && os.Getenv("JORA_JIRA_TOKEN") == "" && os.Getenv("JIRA_API_KEY") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "jira.token",
			Message: "Jira token is set in config file. For security, use JIRA_API_KEY environment variable or a .env file instead.",
		})
	}

	if config.Linear.APIKey != "" && os.Getenv("JORA_LINEAR_API_KEY") == "" && os.Getenv("LINEAR_API_KEY") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "linear.api_key",
			Message: "Linear API key is set in config file. For security, use LINEAR_API_KEY environment variable or a .env file instead.",
		})
	}

	return warnings
}

// ValidateBackend validates that a tracker backend is supported.
func ValidateBackend(backend string) error {
	if slices.Contains(ValidBackends, backend) {
		return nil
	}
	return errors.Newf("invalid tracker backend %q: must be one of: jira, linear", backend)
}

// Validate validates the configuration and returns any validation errors.
func (c *Config) Validate() error {
	if err := ValidateBackend(c.Tracker.Backend); err != nil {
		return errors.Wrap(err, "tracker.backend")
	}
	if c.Tasks.TaskTimeout <= 0 {
		return errors.Newf("tasks.task_timeout: must be positive, got %s", c.Tasks.TaskTimeout)
	}
	if c.Tasks.PRTimeout <= 0 {
		return errors.Newf("tasks.pr_timeout: must be positive, got %s", c.Tasks.PRTimeout)
	}
	if c.Cache.TTL <= 0 {
		return errors.Newf("cache.ttl: must be positive, got %s", c.Cache.TTL)
	}
	if c.Git.BranchPrefix == "" {
		return errors.New("git.branch_prefix: must not be empty")
	}
	if c.GitHub.AuthMethod != "gh_cli" && c.GitHub.AuthMethod != "token" {
		return errors.Newf("github.auth_method: invalid value %q: must be gh_cli or token", c.GitHub.AuthMethod)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	d := Default()

	viper.SetDefault("tracker.backend", d.Tracker.Backend)

	// JIRA defaults
	viper.SetDefault("jira.base_url", "")
	viper.SetDefault("jira.email", "")
	viper.SetDefault("jira.token", "")
	viper.SetDefault("jira.project_key", "")
	viper.SetDefault("jira.max_results", d.Jira.MaxResults)
	viper.SetDefault("jira.excluded_statuses", d.Jira.ExcludedStatuses)

	// Linear defaults
	viper.SetDefault("linear.api_key", "")
	viper.SetDefault("linear.team_key", "")
	viper.SetDefault("linear.endpoint", d.Linear.Endpoint)
	viper.SetDefault("linear.workspace", "")

	// GitHub defaults
	viper.SetDefault("github.auth_method", d.GitHub.AuthMethod) // Prefer gh CLI auth
	viper.SetDefault("github.token", "")
	viper.SetDefault("github.deploy_label", d.GitHub.DeployLabel)
	viper.SetDefault("github.pr_list_limit", d.GitHub.PRListLimit)

	// Git defaults
	viper.SetDefault("git.base_branch", d.Git.BaseBranch)
	viper.SetDefault("git.remote", d.Git.Remote)
	viper.SetDefault("git.branch_prefix", d.Git.BranchPrefix)

	viper.SetDefault("agent.command", d.Agent.Command)
	viper.SetDefault("agent.model", d.Agent.Model)

	viper.SetDefault("cache.path", d.Cache.Path)
	viper.SetDefault("cache.ttl", d.Cache.TTL)

	viper.SetDefault("tasks.task_timeout", d.Tasks.TaskTimeout)
	viper.SetDefault("tasks.pr_timeout", d.Tasks.PRTimeout)
}

// expandPaths expands ~ and environment variables in paths
func expandPaths(config *Config) error {
	var err error

	config.Cache.Path, err = expandPath(config.Cache.Path)
	if err != nil {
		return err
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// Masked returns a copy of the configuration with secrets replaced, for display.
func (c *Config) Masked() *Config {
	out := *c
	out.Jira.ExcludedStatuses = slices.Clone(c.Jira.ExcludedStatuses)
	out.Jira.Token = maskSecret(c.Jira.Token)
	out.Linear.APIKey = maskSecret(c.Linear.APIKey)
	out.GitHub.Token = maskSecret(c.GitHub.Token)
	return &out
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "********"
	default:
		return s[:4] + "********"
	}
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"thoreinstein.com/jora/pkg/bootstrap"
	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/ui"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the jora configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file",
	Long: `Write a configuration file with the defaults, asking for the tracker and
its credentials when run in a terminal.

The file goes to --config when given, else $HOME/.config/jora/config.toml.
Secrets are better kept in the environment (JIRA_API_KEY, LINEAR_API_KEY,
GITHUB_TOKEN) or in a .env file at the repository root.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			p, err := bootstrap.DefaultConfigPath()
			if err != nil {
				return err
			}
			path = p
		}

		if _, err := os.Stat(path); err == nil && !configInitForce {
			return joraerrors.NewConfigError("", fmt.Sprintf("%s already exists (use --force to overwrite)", path))
		}

		cfg := config.Default()
		if ui.IsInteractive() {
			if err := promptConfig(newPrompter(), cfg); err != nil {
				return err
			}
		}
		if err := cfg.Validate(); err != nil {
			return joraerrors.NewConfigErrorWithCause("", "invalid configuration", err)
		}

		if err := writeConfigFile(path, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return encodeConfig(cmd.OutOrStdout(), cfg.Masked())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing file")
}

// fileConfig is the on-disk form of config.Config. Durations are written
// as strings like "24h0m0s", which viper decodes back into time.Duration.
type fileConfig struct {
	Tracker config.TrackerConfig `toml:"tracker"`
	Jira    config.JiraConfig    `toml:"jira"`
	Linear  config.LinearConfig  `toml:"linear"`
	GitHub  config.GitHubConfig  `toml:"github"`
	Git     config.GitConfig     `toml:"git"`
	Agent   config.AgentConfig   `toml:"agent"`
	Cache   struct {
		Path string `toml:"path"`
		TTL  string `toml:"ttl"`
	} `toml:"cache"`
	Tasks struct {
		TaskTimeout string `toml:"task_timeout"`
		PRTimeout   string `toml:"pr_timeout"`
	} `toml:"tasks"`
}

func toFileConfig(cfg *config.Config) fileConfig {
	fc := fileConfig{
		Tracker: cfg.Tracker,
		Jira:    cfg.Jira,
		Linear:  cfg.Linear,
		GitHub:  cfg.GitHub,
		Git:     cfg.Git,
		Agent:   cfg.Agent,
	}
	fc.Cache.Path = cfg.Cache.Path
	fc.Cache.TTL = cfg.Cache.TTL.String()
	fc.Tasks.TaskTimeout = cfg.Tasks.TaskTimeout.String()
	fc.Tasks.PRTimeout = cfg.Tasks.PRTimeout.String()
	return fc
}

func encodeConfig(w io.Writer, cfg *config.Config) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(toFileConfig(cfg)); err != nil {
		return joraerrors.Wrap(err, "failed to encode configuration")
	}
	return nil
}

func writeConfigFile(path string, cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return joraerrors.Wrapf(err, "failed to create config directory for %s", path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return joraerrors.Wrapf(err, "failed to create %s", path)
	}
	if err := encodeConfig(f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type configField struct {
	label  string
	target *string
	secret bool
}

// promptConfig asks for the tracker and its connection settings, keeping
// the values already in cfg as defaults.
func promptConfig(p *ui.Prompter, cfg *config.Config) error {
	backend, err := p.Prompt("Tracker backend (jira or linear):", cfg.Tracker.Backend)
	if err != nil {
		return err
	}
	if err := config.ValidateBackend(backend); err != nil {
		return joraerrors.NewConfigErrorWithCause("tracker.backend", err.Error(), err)
	}
	cfg.Tracker.Backend = backend

	var fields []configField
	switch backend {
	case config.BackendLinear:
		fields = []configField{
			{"Linear team key:", &cfg.Linear.TeamKey, false},
			{"Linear workspace (URL slug):", &cfg.Linear.Workspace, false},
			{"Linear API key:", &cfg.Linear.APIKey, true},
		}
	default:
		fields = []configField{
			{"JIRA base URL:", &cfg.Jira.BaseURL, false},
			{"JIRA email:", &cfg.Jira.Email, false},
			{"JIRA project key:", &cfg.Jira.ProjectKey, false},
			{"JIRA API token:", &cfg.Jira.Token, true},
		}
	}

	for _, f := range fields {
		var v string
		if f.secret {
			v, err = p.PromptSecret(f.label, *f.target)
		} else {
			v, err = p.Prompt(f.label, *f.target)
		}
		if err != nil {
			return err
		}
		*f.target = v
	}

	base, err := p.Prompt("Base branch:", cfg.Git.BaseBranch)
	if err != nil {
		return err
	}
	cfg.Git.BaseBranch = base
	return nil
}

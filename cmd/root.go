package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"thoreinstein.com/jora/pkg/bootstrap"
	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
)

var cfgFile string
var verbose bool
var appConfig *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jora",
	Short: "Jora - tracker, git and pull request workflow",
	Long: `Jora is a CLI for day-to-day task work. It lists the tasks assigned to you
in JIRA or Linear, ranks them by pull request review state, and takes a task
from branch checkout through commit, pull request and AI-assisted review.

Run without a subcommand to browse your tasks interactively.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(verbose))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBrowse(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cfgFile, verbose = bootstrap.PreParseGlobalFlags(os.Args)

	if err := rootCmd.Execute(); err != nil {
		if !joraerrors.Is(err, errSilentExit) {
			fmt.Fprintln(os.Stderr, joraerrors.FormatUserError(err))
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		_ = initConfig()
	})

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "C", "", "config file (default is $HOME/.config/jora/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	var err error
	appConfig, verbose, err = bootstrap.InitConfig(cfgFile, verbose)
	return err
}

// loadConfig returns the configuration loaded at startup, or loads it now
// and reports the failure as a ConfigError.
func loadConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	if err := initConfig(); err != nil {
		return nil, joraerrors.NewConfigErrorWithCause("", "failed to load configuration", err)
	}
	return appConfig, nil
}

// resetConfig clears the cached configuration.
// This is primarily used in tests to ensure each test starts with a fresh config.
func resetConfig() {
	appConfig = nil
	bootstrap.Reset()
	viper.Reset()
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

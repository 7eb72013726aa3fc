package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"thoreinstein.com/jora/pkg/agent"
	joraerrors "thoreinstein.com/jora/pkg/errors"
)

// agentRunner runs the coding agent. *agent.Runner implements it.
type agentRunner interface {
	Run(ctx context.Context, phase, prompt string) (*agent.RunResult, error)
}

var newAgentRunner = func(a *app) agentRunner {
	return agent.NewRunner(a.cfg.Agent, verbose, agent.WithOutput(a.out), agent.WithLogger(a.logger))
}

var implementCmd = &cobra.Command{
	Use:   "implement",
	Short: "Implement the current task together with the AI agent",
	Long: `Start a collaborative agent session for the task of the current branch.

The task description from the tracker is handed to the agent, which
presents its plan and waits for approval before changing code.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.implement(ctx)
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review all work on the branch with the AI agent",
	Long: `Have the agent review every commit on the task branch against the base
branch and commit fixes for real issues only.

The working tree must be clean and the branch must have at least one commit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.review(ctx)
	},
}

// addressService selects the feedback source for `jora address`.
type addressService string

const (
	serviceGitHub  addressService = "github"
	serviceTracker addressService = "tracker"
)

func (s *addressService) String() string { return string(*s) }

func (s *addressService) Set(v string) error {
	switch strings.ToLower(v) {
	case "github":
		*s = serviceGitHub
	case "tracker", "jira", "linear":
		*s = serviceTracker
	default:
		return joraerrors.Newf("must be github or tracker (got %q)", v)
	}
	return nil
}

func (s *addressService) Type() string { return "service" }

var addressFrom addressService

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Address pull request comments or tracker feedback with the AI agent",
	Long: `Have the agent work through outstanding feedback and commit each fix.

  --service github    unresolved review comments on the current PR
  --service tracker   requirements and comments on the current task`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.address(ctx, addressFrom)
	},
}

func init() {
	rootCmd.AddCommand(implementCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(addressCmd)

	addressCmd.Flags().VarP(&addressFrom, "service", "s", "Feedback to address: github or tracker")
	_ = addressCmd.MarkFlagRequired("service")
}

func (a *app) requireRepo() error {
	if !a.repo.IsRepo() {
		return joraerrors.NewGitError("rev-parse", "not in a git repository")
	}
	return nil
}

// requireCleanTree fails with guidance naming command when the working
// tree has uncommitted changes.
func (a *app) requireCleanTree(command string) error {
	dirty, err := a.repo.HasUncommittedChanges()
	if err != nil {
		return err
	}
	if dirty {
		return joraerrors.NewGitError("status",
			fmt.Sprintf("you have uncommitted changes: commit or stash them before running %s", command))
	}
	return nil
}

func (a *app) implement(ctx context.Context) error {
	if err := a.requireRepo(); err != nil {
		return err
	}
	key, err := a.repo.CurrentTaskKey()
	if err != nil {
		return err
	}
	tr, err := a.tracker()
	if err != nil {
		return err
	}
	taskContext, err := tr.TaskContext(ctx, key)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "🤝 Starting collaborative implementation session...")
	fmt.Fprintln(a.out)
	return a.runAgent(ctx, "Guided Implementation", agent.ImplementPrompt(tr.Name(), taskContext))
}

func (a *app) review(ctx context.Context) error {
	if err := a.requireRepo(); err != nil {
		return err
	}
	if err := a.requireCleanTree("review"); err != nil {
		return err
	}

	commits, err := a.repo.TaskCommits()
	if err != nil {
		return err
	}
	if commits == "" {
		fmt.Fprintln(a.out, "ℹ️  No commits to review on this branch.")
		return nil
	}

	key, err := a.repo.CurrentTaskKey()
	if err != nil {
		return err
	}
	tr, err := a.tracker()
	if err != nil {
		return err
	}
	taskContext, err := tr.TaskContext(ctx, key)
	if err != nil {
		return err
	}
	diff, err := a.repo.Diff()
	if err != nil {
		return err
	}
	stats, err := a.repo.DiffStats()
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "🔍 Reviewing all work on this branch...")
	fmt.Fprintln(a.out)
	if stats.FilesChanged > 0 {
		fmt.Fprintln(a.out, "📊 Change Summary:")
		fmt.Fprintf(a.out, "   Files changed: %d\n", stats.FilesChanged)
		fmt.Fprintf(a.out, "   Insertions:    +%d\n", stats.Insertions)
		fmt.Fprintf(a.out, "   Deletions:     -%d\n", stats.Deletions)
		if len(stats.Files) > 0 {
			fmt.Fprintln(a.out)
			fmt.Fprintln(a.out, "📄 Files Modified:")
			for _, f := range stats.Files {
				fmt.Fprintf(a.out, "   %s (+%d/-%d)\n", f.Path, f.Added, f.Removed)
			}
		}
		fmt.Fprintln(a.out)
	}

	return a.runAgent(ctx, "Review Phase", agent.ReviewPrompt(taskContext, commits, diff, a.repo.BaseRef()))
}

func (a *app) address(ctx context.Context, service addressService) error {
	if err := a.requireRepo(); err != nil {
		return err
	}
	if err := a.requireCleanTree("address"); err != nil {
		return err
	}

	switch service {
	case serviceGitHub:
		engine, err := a.engine(false, true)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, "🔍 Checking for existing PR...")
		if _, err := engine.CurrentPR(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "✅ Found existing PR. Addressing GitHub PR comments...")
		fmt.Fprintln(a.out)
		return a.runAgent(ctx, "Addressing GitHub PR Comments", agent.AddressGitHubPrompt())

	case serviceTracker:
		tr, err := a.tracker()
		if err != nil {
			return err
		}

		var taskContext string
		branch, err := a.repo.CurrentBranch()
		if err != nil {
			return err
		}
		if key := a.repo.KeyFromBranch(branch); key != "" {
			fmt.Fprintf(a.out, "🔍 Fetching %s task context for %s...\n", tr.Name(), key)
			taskContext, err = tr.CommentsContext(ctx, key)
			if err != nil {
				return joraerrors.Wrapf(err, "cannot address %s feedback without the task context", tr.Name())
			}
			if taskContext != "" {
				fmt.Fprintf(a.out, "✅ %s context loaded successfully\n", tr.Name())
			} else {
				fmt.Fprintf(a.out, "⚠️  Could not load %s context\n", tr.Name())
			}
		} else {
			fmt.Fprintf(a.out, "ℹ️  No %s task key found in branch name - skipping task context\n", tr.Name())
		}
		return a.runAgent(ctx, "Addressing "+tr.Name()+" Requirements", agent.AddressTrackerPrompt(tr.Name(), taskContext))

	default:
		return joraerrors.Newf("unsupported service %q", string(service))
	}
}

// runAgent runs the agent and reports a failed phase. The process exit
// status is 1 on any failure.
func (a *app) runAgent(ctx context.Context, phase, prompt string) error {
	runner := newAgentRunner(a)
	res, err := runner.Run(ctx, phase, prompt)
	if err != nil {
		fmt.Fprintf(a.out, "\n❌ %s failed\n", phase)
		return err
	}
	a.logger.Debug("agent run finished", "run_id", res.RunID, "elapsed", res.Elapsed, "tools", res.ToolCount)
	return nil
}

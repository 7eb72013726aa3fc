package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/workflow"
)

// prCreateCmd creates a pull request for a task branch.
var prCreateCmd = &cobra.Command{
	Use:   "create [KEY]",
	Short: "Create a pull request for a task",
	Long: `Push a task branch and open a pull request against the base branch.

The title is "[KEY] summary" from the tracker. Without KEY the task of the
current branch is used. The branch must already exist and differ from the
base branch.

Examples:
  jora pr create
  jora pr create ABC-123`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		var key string
		if len(args) == 1 {
			key = args[0]
		}
		return a.createPR(ctx, key)
	},
}

func init() {
	prCmd.AddCommand(prCreateCmd)
}

// createPR creates the pull request for key, or for the current branch's
// task when key is empty.
func (a *app) createPR(ctx context.Context, key string) error {
	engine, err := a.engine(true, true)
	if err != nil {
		return err
	}

	gh, err := a.github()
	if err != nil {
		return err
	}
	if !gh.IsAuthenticated() {
		return joraerrors.NewGitHubError("Auth", "not authenticated with GitHub. Run 'gh auth login' first")
	}

	fmt.Fprintln(a.out, "🔄 Creating pull request...")

	var res *workflow.PRResult
	if key == "" {
		res, err = engine.CreatePRForCurrentBranch(ctx)
	} else {
		res, err = engine.CreateTaskPR(ctx, key)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "📝 Task: %s - %s\n", res.Task.Key, res.Task.Title)
	fmt.Fprintf(a.out, "✅ PR created successfully for %s\n", res.Task.Key)
	fmt.Fprintf(a.out, "🎉 Branch: %s\n", res.Branch)
	if res.PR != nil && res.PR.URL != "" {
		fmt.Fprintf(a.out, "URL: %s\n", res.PR.URL)
	}
	return nil
}

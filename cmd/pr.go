package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/github"
	"thoreinstein.com/jora/pkg/ui"
)

// prCmd is the parent command for PR operations.
var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Manage the pull request of a task",
	Long: `Manage GitHub pull requests for task branches.

Examples:
  jora pr create             # Create a PR for the current task branch
  jora pr create ABC-123     # Create a PR for ABC-123's branch
  jora pr deploy             # Add the deploy label to the current PR
  jora pr assign alice bob   # Assign alice and bob to the current PR
  jora pr assign             # Pick assignees interactively`,
}

var prDeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Add the deploy label to the current pull request",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.deploy(ctx)
	},
}

var prAssignCmd = &cobra.Command{
	Use:   "assign [login...]",
	Short: "Set the assignees of the current pull request",
	Long: `Replace the assignees of the current branch's pull request.

With no logins, the assignable users of the repository are listed in an
interactive multi-select with the current assignees preselected. Confirming
an empty selection clears the assignees.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.assign(ctx, args)
	},
}

func init() {
	rootCmd.AddCommand(prCmd)
	prCmd.AddCommand(prDeployCmd)
	prCmd.AddCommand(prAssignCmd)
}

func (a *app) deploy(ctx context.Context) error {
	engine, err := a.engine(false, true)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "🚀 Adding deploy label to PR...")
	pr, err := engine.Deploy(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✅ Deploy label added successfully to PR #%d\n", pr.Number)
	return nil
}

// selectAssignees runs the interactive picker. Tests replace it.
var selectAssignees = ui.SelectUsers

func (a *app) assign(ctx context.Context, logins []string) error {
	engine, err := a.engine(false, true)
	if err != nil {
		return err
	}

	if len(logins) > 0 {
		fmt.Fprintf(a.out, "🔄 Assigning %s to PR...\n", strings.Join(logins, ", "))
		if _, err := engine.Assign(ctx, logins); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "✅ Successfully assigned %s to the PR!\n", strings.Join(logins, ", "))
		return nil
	}

	pr, err := engine.CurrentPR(ctx)
	if err != nil {
		return err
	}

	gh, err := a.github()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "🔍 Fetching assignable users...")
	users, err := gh.ListAssignees(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return joraerrors.NewGitHubError("ListAssignees", "no assignable users found")
	}

	if len(pr.Assignees) > 0 {
		fmt.Fprintf(a.out, "👥 Currently assigned: %s\n", strings.Join(pr.Assignees, ", "))
	} else {
		fmt.Fprintln(a.out, "👥 Currently assigned: None")
	}

	chosen, err := selectAssignees(userChoices(users), pr.Assignees)
	if joraerrors.Is(err, ui.ErrCancelled) {
		fmt.Fprintln(a.out, "❌ Cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	switch {
	case len(chosen) > 0:
		fmt.Fprintf(a.out, "🔄 Assigning %s to PR...\n", strings.Join(chosen, ", "))
		if _, err := engine.Assign(ctx, chosen); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "✅ Successfully assigned %s to the PR!\n", strings.Join(chosen, ", "))
	case len(pr.Assignees) > 0:
		fmt.Fprintln(a.out, "🔄 Clearing all assignees from PR...")
		if _, err := engine.Assign(ctx, []string{}); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "✅ Cleared all assignees from the PR!")
	default:
		fmt.Fprintln(a.out, "❌ No users selected.")
	}
	return nil
}

func userChoices(users []github.User) []ui.Choice {
	choices := make([]ui.Choice, 0, len(users))
	for _, u := range users {
		choices = append(choices, ui.Choice{Value: u.Login, Label: u.Display()})
	}
	return choices
}

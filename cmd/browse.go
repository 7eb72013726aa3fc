package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/tasks"
	"thoreinstein.com/jora/pkg/ui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse your assigned tasks interactively",
	Long: `Browse the tasks assigned to you, ranked by pull request review state.

Keys:
  ↑/↓     Navigate tasks
  Enter   Show the action menu (open, checkout, pull request)
  c       Checkout the selected task's branch and exit
  n       Create a new task
  r       Refresh the task list and pull request data
  q/Esc   Quit

Pull request indicators:
  ✅  All reviews approved
  ❌  Changes requested by reviewers
  ⏳  Reviews pending or mixed
  🚀  Ready to launch, no reviews yet`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBrowse(cmd)
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

// browseTasks shows the browser. Tests replace it.
var browseTasks = ui.Browse

func runBrowse(cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	svc, release, err := a.taskService()
	if err != nil {
		return err
	}
	defer release()

	tr, _ := a.tracker()
	fmt.Fprintf(a.out, "🔍 Fetching your incomplete %s tasks...\n", tr.Name())

	refresh := false
	for {
		listing, err := svc.List(ctx, refresh)
		if err != nil {
			return err
		}
		refresh = false

		sel, err := browseTasks(listing.Tasks, listing.UpdatedAgo(time.Now()))
		if joraerrors.Is(err, ui.ErrCancelled) {
			fmt.Fprintln(a.out, "👋 Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}

		done, err := a.runBrowseAction(ctx, sel, svc)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		refresh = sel.Action == ui.ActionRefresh
	}
}

// runBrowseAction carries out one browser selection. It reports whether
// the browser should exit. Action failures are printed and the browser
// resumes, except for a cancelled context.
func (a *app) runBrowseAction(ctx context.Context, sel *ui.Selection, svc *tasks.Service) (bool, error) {
	switch sel.Action {
	case ui.ActionRefresh:
		fmt.Fprintln(a.out, "🔄 Refreshing task list and PR information...")
		return false, nil

	case ui.ActionNewTask:
		t, err := a.createTaskInteractive(ctx, "", nil)
		switch {
		case joraerrors.Is(err, ui.ErrCancelled):
			fmt.Fprintln(a.out, "Task creation cancelled.")
		case err != nil:
			fmt.Fprintf(a.out, "❌ Failed to create task: %s\n", joraerrors.FormatUserError(err))
		default:
			fmt.Fprintf(a.out, "🎉 Task created successfully: %s\n", t.Key)
			svc.Invalidate()
		}
		return false, ctx.Err()
	}

	if sel.Task == nil {
		return false, nil
	}
	key := sel.Task.Key

	switch sel.Action {
	case ui.ActionOpenTask:
		tr, err := a.tracker()
		if err != nil {
			return false, err
		}
		fmt.Fprintf(a.out, "🌐 Opening %s in browser...\n", key)
		if err := openURL(tr.BrowseURL(key)); err != nil {
			fmt.Fprintf(a.out, "❌ Failed to open browser: %v\n", err)
		}
		return false, nil

	case ui.ActionOpenPR:
		if sel.Task.PullRequestURL == "" {
			fmt.Fprintf(a.out, "❌ No PR found for %s\n", key)
			return false, nil
		}
		fmt.Fprintf(a.out, "✅ Opening PR for %s in browser...\n", key)
		if err := openURL(sel.Task.PullRequestURL); err != nil {
			fmt.Fprintf(a.out, "❌ Failed to open browser: %v\n", err)
		}
		return false, nil

	case ui.ActionCheckout:
		if err := a.checkout(ctx, key); err != nil {
			fmt.Fprintf(a.out, "❌ Failed to checkout branch: %s\n", joraerrors.FormatUserError(err))
			return false, ctx.Err()
		}
		return true, nil

	case ui.ActionCreatePR:
		if err := a.createPR(ctx, key); err != nil {
			fmt.Fprintf(a.out, "❌ Failed to create PR: %s\n", joraerrors.FormatUserError(err))
			return false, ctx.Err()
		}
		svc.Invalidate()
		return true, nil
	}

	return false, nil
}

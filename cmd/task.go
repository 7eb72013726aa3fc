package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/tasks"
	"thoreinstein.com/jora/pkg/ui"
)

var (
	taskTitle      string
	taskComponents []string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, open and summarize tracker tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task assigned to you",
	Long: `Create a task in the configured JIRA project or Linear team.

Without --title the title is prompted for. Without --component the
project's components (JIRA) or team labels (Linear) are offered in a
multi-select, using fzf when it is installed.

Examples:
  jora task create
  jora task create --title "Fix login redirect" --component web`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		t, err := a.createTaskInteractive(ctx, taskTitle, taskComponents)
		if joraerrors.Is(err, ui.ErrCancelled) {
			fmt.Fprintln(a.out, "Task creation cancelled.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "🎉 Task created successfully: %s\n", t.Key)
		return nil
	},
}

var taskOpenCmd = &cobra.Command{
	Use:   "open [KEY]",
	Short: "Open a task in the browser",
	Long:  `Open a task in the browser. Without KEY the task of the current branch is opened.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		var key string
		if len(args) == 1 {
			key = args[0]
		}
		key, err = a.requireTaskKey(key)
		if err != nil {
			return err
		}

		tr, err := a.tracker()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "🌐 Opening %s in browser...\n", key)
		return openURL(tr.BrowseURL(key))
	},
}

var taskSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the title of the current branch's task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.taskSummary(ctx)
	},
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskOpenCmd)
	taskCmd.AddCommand(taskSummaryCmd)

	taskCreateCmd.Flags().StringVarP(&taskTitle, "title", "t", "", "Task title (prompted when empty)")
	taskCreateCmd.Flags().StringSliceVarP(&taskComponents, "component", "c", nil, "Component or label to set (repeatable)")
}

// Interactive input used by the task commands. Tests replace them.
var (
	newPrompter      = ui.StdPrompter
	selectComponents = ui.SelectComponents
	openURL          = ui.OpenURL
)

// createTaskInteractive creates a task, prompting for whatever title and
// components were not given. A nil components slice asks the user to pick;
// an empty one creates the task without components.
func (a *app) createTaskInteractive(ctx context.Context, title string, components []string) (*tasks.Task, error) {
	tr, err := a.tracker()
	if err != nil {
		return nil, err
	}
	p := newPrompter()

	title = strings.TrimSpace(title)
	if title == "" {
		fmt.Fprintln(a.out, "📝 Create New Task")
		title, err = p.Prompt("Enter task title (required):", "")
		if err != nil {
			return nil, err
		}
		title = strings.TrimSpace(title)
		if title == "" {
			return nil, joraerrors.New("task title is required")
		}
	}

	if components == nil {
		available, err := tr.ListComponents(ctx)
		if err != nil {
			return nil, err
		}
		components, err = selectComponents(p, available)
		switch {
		case joraerrors.Is(err, ui.ErrNoComponents):
			components = []string{}
		case err != nil:
			return nil, err
		}
	}

	fmt.Fprintf(a.out, "Title: %s\n", title)
	fmt.Fprintf(a.out, "Project: %s\n", projectName(a.cfg))
	switch len(components) {
	case 0:
		fmt.Fprintln(a.out, "Components: None")
	case 1:
		fmt.Fprintf(a.out, "Component: %s\n", components[0])
	default:
		fmt.Fprintf(a.out, "Components: %s\n", strings.Join(components, ", "))
	}

	fmt.Fprintln(a.out, "🔄 Creating task...")
	return tr.CreateTask(ctx, title, components)
}

func (a *app) taskSummary(ctx context.Context) error {
	if !a.repo.IsRepo() {
		return joraerrors.NewGitError("CurrentTaskKey", "not in a git repository")
	}
	branch, err := a.repo.CurrentBranch()
	if err != nil {
		return err
	}
	key := a.repo.KeyFromBranch(branch)
	if key == "" {
		fmt.Fprintf(a.out, "❌ Current branch '%s' is not associated with a task.\n", branch)
		fmt.Fprintf(a.out, "💡 Task branches should follow the pattern: %sTASK-KEY\n", a.repo.BranchPrefix)
		return errSilentExit
	}

	tr, err := a.tracker()
	if err != nil {
		return err
	}
	t, err := tr.GetTask(ctx, key)
	if err != nil {
		return err
	}

	title := t.Title
	if title == "" {
		title = "No summary available"
	}
	fmt.Fprintln(a.out, title)
	return nil
}

// projectName is the JIRA project or Linear team new tasks are filed in.
func projectName(cfg *config.Config) string {
	if cfg.Tracker.Backend == config.BackendLinear {
		return cfg.Linear.TeamKey
	}
	return cfg.Jira.ProjectKey
}

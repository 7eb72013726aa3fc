package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"thoreinstein.com/jora/pkg/tasks"
)

// Action is what the user chose to do from the task browser.
type Action int

const (
	ActionNone Action = iota
	ActionOpenTask
	ActionCheckout
	ActionCreatePR
	ActionOpenPR
	ActionNewTask
	ActionRefresh
)

func (a Action) String() string {
	switch a {
	case ActionOpenTask:
		return "open task"
	case ActionCheckout:
		return "checkout"
	case ActionCreatePR:
		return "create pr"
	case ActionOpenPR:
		return "open pr"
	case ActionNewTask:
		return "new task"
	case ActionRefresh:
		return "refresh"
	default:
		return "none"
	}
}

// Selection is the result of a browser session. Task is nil for actions
// that do not target a task.
type Selection struct {
	Task   *tasks.Task
	Action Action
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
)

const browserHelp = `  ↑/↓     Navigate tasks
  Enter   Show action menu
  n       Create new task
  c       Checkout selected task's branch
  r       Refresh task list and PR information
  q/ESC   Quit
  h       Toggle this help`

type taskItem struct {
	task tasks.Task
}

func (i taskItem) Title() string       { return FormatTaskRow(i.task) }
func (i taskItem) Description() string { return "" }
func (i taskItem) FilterValue() string { return i.task.Key + " " + i.task.Title }

type menuItem struct {
	label  string
	action Action // ActionNone returns to the list
}

// menuFor lists the actions available for a task. Open PR leads when the
// task has a pull request; Create PR is offered only when it has none.
func menuFor(t tasks.Task) []menuItem {
	var items []menuItem
	if t.HasPullRequest {
		items = append(items, menuItem{"🔗 Open PR", ActionOpenPR})
	}
	items = append(items,
		menuItem{"🌐 Open task in browser", ActionOpenTask},
		menuItem{"🔀 Switch to branch", ActionCheckout},
	)
	if !t.HasPullRequest {
		items = append(items, menuItem{"📝 Create PR", ActionCreatePR})
	}
	return append(items, menuItem{"← Back to task list", ActionNone})
}

type browserModel struct {
	list    list.Model
	tasks   []tasks.Task
	updated string

	inMenu   bool
	menu     []menuItem
	cursor   int
	showHelp bool

	selection *Selection
	cancelled bool
}

func newBrowserModel(ts []tasks.Task, updated string) browserModel {
	items := make([]list.Item, len(ts))
	for i, t := range ts {
		items[i] = taskItem{task: t}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false

	l := list.New(items, delegate, 80, 20)
	l.Title = fmt.Sprintf("📋 Found %d incomplete tasks", len(ts))
	if len(ts) == 0 {
		l.Title = "✨ No incomplete tasks assigned to you."
	}
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = headerStyle

	return browserModel{list: l, tasks: ts, updated: updated}
}

func (m browserModel) selectedTask() *tasks.Task {
	item, ok := m.list.SelectedItem().(taskItem)
	if !ok {
		return nil
	}
	t := item.task
	return &t
}

func (m browserModel) finish(action Action, t *tasks.Task) (tea.Model, tea.Cmd) {
	m.selection = &Selection{Task: t, Action: action}
	return m, tea.Quit
}

func (m browserModel) Init() tea.Cmd { return nil }

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, max(msg.Height-4, 5))
		return m, nil
	case tea.KeyMsg:
		if m.inMenu {
			return m.updateMenu(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			if t := m.selectedTask(); t != nil {
				m.inMenu = true
				m.menu = menuFor(*t)
				m.cursor = 0
			}
			return m, nil
		case "c":
			if t := m.selectedTask(); t != nil {
				return m.finish(ActionCheckout, t)
			}
			return m, nil
		case "n":
			return m.finish(ActionNewTask, nil)
		case "r":
			return m.finish(ActionRefresh, nil)
		case "h", "?":
			m.showHelp = !m.showHelp
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m browserModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancelled = true
		return m, tea.Quit
	case "esc":
		m.inMenu = false
	case "up", "k":
		m.cursor = (m.cursor - 1 + len(m.menu)) % len(m.menu)
	case "down", "j":
		m.cursor = (m.cursor + 1) % len(m.menu)
	case "enter":
		item := m.menu[m.cursor]
		if item.action == ActionNone {
			m.inMenu = false
			return m, nil
		}
		return m.finish(item.action, m.selectedTask())
	}
	return m, nil
}

func (m browserModel) View() string {
	if m.selection != nil || m.cancelled {
		return ""
	}

	var b strings.Builder
	if m.inMenu {
		if t := m.selectedTask(); t != nil {
			b.WriteString(headerStyle.Render("📋 Selected Task:") + "\n")
			fmt.Fprintf(&b, "Key: %s\nSummary: %s\n\n", t.Key, t.Title)
		}
		b.WriteString("Choose an action (use ↑/↓ to navigate, Enter to select):\n")
		for i, item := range m.menu {
			if i == m.cursor {
				b.WriteString(selectedStyle.Render("➤ "+item.label) + "\n")
			} else {
				b.WriteString("  " + item.label + "\n")
			}
		}
		b.WriteString("\n" + faintStyle.Render("Press 'q' to quit, ESC to go back"))
		return b.String()
	}

	if m.updated != "" {
		b.WriteString(faintStyle.Render("📅 "+m.updated) + "\n")
	}
	b.WriteString(m.list.View() + "\n")
	if n := len(m.tasks); n > 0 {
		b.WriteString(faintStyle.Render(fmt.Sprintf("Selected: %d/%d | Press 'h' for help", m.list.Index()+1, n)))
	} else {
		b.WriteString(faintStyle.Render("Press 'n' to create a new task or 'h' for help"))
	}
	if m.showHelp {
		b.WriteString("\n\n" + browserHelp)
	}
	return b.String()
}

// Browse shows the interactive task list until the user picks an action.
// It returns ErrCancelled when the user quits.
func Browse(ts []tasks.Task, updated string) (*Selection, error) {
	final, err := tea.NewProgram(newBrowserModel(ts, updated), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, fmt.Errorf("task browser failed: %w", err)
	}

	m, ok := final.(browserModel)
	if !ok || m.cancelled || m.selection == nil {
		return nil, ErrCancelled
	}
	return m.selection, nil
}

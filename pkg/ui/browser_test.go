package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"thoreinstein.com/jora/pkg/tasks"
)

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func press(t *testing.T, m tea.Model, keys ...string) (tea.Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = m.Update(keyMsg(k))
	}
	return m, cmd
}

var browserTasks = []tasks.Task{
	{Key: "ABC-1", Title: "No PR yet", Priority: "High"},
	{Key: "ABC-2", Title: "Has PR", Enrichment: tasks.Enrichment{HasPullRequest: true, PullRequestURL: "https://github.com/o/r/pull/2"}},
}

func TestMenuFor(t *testing.T) {
	actions := func(items []menuItem) []Action {
		out := make([]Action, len(items))
		for i, it := range items {
			out[i] = it.action
		}
		return out
	}

	noPR := actions(menuFor(browserTasks[0]))
	want := []Action{ActionOpenTask, ActionCheckout, ActionCreatePR, ActionNone}
	if len(noPR) != len(want) {
		t.Fatalf("menuFor(no pr) = %v, want %v", noPR, want)
	}
	for i := range want {
		if noPR[i] != want[i] {
			t.Errorf("menuFor(no pr)[%d] = %v, want %v", i, noPR[i], want[i])
		}
	}

	withPR := actions(menuFor(browserTasks[1]))
	want = []Action{ActionOpenPR, ActionOpenTask, ActionCheckout, ActionNone}
	for i := range want {
		if withPR[i] != want[i] {
			t.Errorf("menuFor(pr)[%d] = %v, want %v", i, withPR[i], want[i])
		}
	}
}

func TestBrowser_MenuSelection(t *testing.T) {
	m, cmd := press(t, newBrowserModel(browserTasks, "Updated 2 minutes ago"), "enter", "down", "down", "enter")
	if !isQuit(cmd) {
		t.Fatal("expected quit after choosing an action")
	}

	sel := m.(browserModel).selection
	if sel == nil || sel.Action != ActionCreatePR || sel.Task == nil || sel.Task.Key != "ABC-1" {
		t.Errorf("selection = %+v", sel)
	}
}

func TestBrowser_SecondTaskOpenPR(t *testing.T) {
	m, _ := press(t, newBrowserModel(browserTasks, ""), "down", "enter", "enter")
	sel := m.(browserModel).selection
	if sel == nil || sel.Action != ActionOpenPR || sel.Task.Key != "ABC-2" {
		t.Errorf("selection = %+v", sel)
	}
}

func TestBrowser_BackAndEscape(t *testing.T) {
	// Menu "back" entry wraps around from the top with up.
	m, cmd := press(t, newBrowserModel(browserTasks, ""), "enter", "up", "enter")
	bm := m.(browserModel)
	if bm.inMenu || bm.selection != nil || isQuit(cmd) {
		t.Errorf("back should return to the list: inMenu=%v selection=%+v", bm.inMenu, bm.selection)
	}

	m, _ = press(t, newBrowserModel(browserTasks, ""), "enter", "esc")
	if m.(browserModel).inMenu {
		t.Error("esc in menu should return to the list")
	}
}

func TestBrowser_Shortcuts(t *testing.T) {
	tests := []struct {
		key        string
		wantAction Action
		wantTask   bool
	}{
		{"c", ActionCheckout, true},
		{"n", ActionNewTask, false},
		{"r", ActionRefresh, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m, cmd := press(t, newBrowserModel(browserTasks, ""), tt.key)
			if !isQuit(cmd) {
				t.Fatal("expected quit")
			}
			sel := m.(browserModel).selection
			if sel == nil || sel.Action != tt.wantAction || (sel.Task != nil) != tt.wantTask {
				t.Errorf("selection = %+v", sel)
			}
		})
	}
}

func TestBrowser_Cancel(t *testing.T) {
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		m, cmd := press(t, newBrowserModel(browserTasks, ""), key)
		bm := m.(browserModel)
		if !bm.cancelled || !isQuit(cmd) {
			t.Errorf("%s: cancelled = %v", key, bm.cancelled)
		}
	}

	m, _ := press(t, newBrowserModel(browserTasks, ""), "enter", "q")
	if !m.(browserModel).cancelled {
		t.Error("q in menu should cancel")
	}
}

func TestBrowser_EmptyList(t *testing.T) {
	m, cmd := press(t, newBrowserModel(nil, ""), "enter", "c")
	bm := m.(browserModel)
	if bm.inMenu || bm.selection != nil || isQuit(cmd) {
		t.Errorf("enter/c on empty list should do nothing: %+v", bm.selection)
	}
	if bm.View() == "" {
		t.Error("View() is empty")
	}
}

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Choice is one entry of a multi-select list.
type Choice struct {
	Value string
	Label string
}

const maxVisibleChoices = 15

type userSelectModel struct {
	filter   textinput.Model
	choices  []Choice
	visible  []int
	cursor   int
	selected map[string]bool

	done      bool
	cancelled bool
}

func newUserSelectModel(choices []Choice, preselected []string) userSelectModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter"
	ti.Prompt = "🔎 "
	ti.CharLimit = 64
	ti.Focus()

	selected := make(map[string]bool, len(preselected))
	for _, v := range preselected {
		selected[v] = true
	}

	m := userSelectModel{filter: ti, choices: choices, selected: selected}
	m.refilter()
	return m
}

// refilter recomputes the visible choices from the filter text. Matching is
// a case-insensitive substring match on value and label.
func (m *userSelectModel) refilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = m.visible[:0]
	for i, c := range m.choices {
		if q == "" || strings.Contains(strings.ToLower(c.Value), q) || strings.Contains(strings.ToLower(c.Label), q) {
			m.visible = append(m.visible, i)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

// result returns the selected values in choice order. It is never nil.
func (m userSelectModel) result() []string {
	out := []string{}
	for _, c := range m.choices {
		if m.selected[c.Value] {
			out = append(out, c.Value)
		}
	}
	return out
}

func (m userSelectModel) Init() tea.Cmd { return textinput.Blink }

func (m userSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			m.done = true
			return m, tea.Quit
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.visible)-1 {
				m.cursor++
			}
			return m, nil
		case "tab":
			if len(m.visible) > 0 {
				v := m.choices[m.visible[m.cursor]].Value
				m.selected[v] = !m.selected[v]
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.refilter()
	return m, cmd
}

func (m userSelectModel) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("👥 Select assignees") + "\n")
	b.WriteString(m.filter.View() + "\n\n")

	if len(m.visible) == 0 {
		b.WriteString(faintStyle.Render("  no matching users") + "\n")
	}

	start := 0
	if m.cursor >= maxVisibleChoices {
		start = m.cursor - maxVisibleChoices + 1
	}
	end := min(start+maxVisibleChoices, len(m.visible))
	for i := start; i < end; i++ {
		c := m.choices[m.visible[i]]
		mark := "[ ]"
		if m.selected[c.Value] {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, c.Label)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("➤ "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n" + faintStyle.Render(fmt.Sprintf("%d selected | TAB toggle, ENTER confirm, ESC cancel", len(m.result()))))
	return b.String()
}

// SelectUsers shows a filterable multi-select of choices with preselected
// values checked. It returns the chosen values, which may be empty, or
// nil and ErrCancelled when the user backs out.
func SelectUsers(choices []Choice, preselected []string) ([]string, error) {
	final, err := tea.NewProgram(newUserSelectModel(choices, preselected)).Run()
	if err != nil {
		return nil, fmt.Errorf("user selection failed: %w", err)
	}

	m, ok := final.(userSelectModel)
	if !ok || m.cancelled || !m.done {
		return nil, ErrCancelled
	}
	return m.result(), nil
}

package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	barStyle       = lipgloss.NewStyle().Faint(true)
	streamStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	assistantStyle = streamStyle.Italic(true)
)

const maxCommandWidth = 80

// streamEvent is one line of the agent's stream-json output.
type streamEvent struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	Model   string `json:"model"`
	Message struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
	ToolCall map[string]toolCall `json:"tool_call"`
}

type toolCall struct {
	Args map[string]any `json:"args"`
}

// StreamHandler renders the agent's stream-json events as a compact
// transcript. Assistant text is buffered and printed once, right before
// the next tool call or the final result.
type StreamHandler struct {
	out io.Writer

	mu          sync.Mutex
	pending     string
	lastFlushed string
	toolCount   int
}

// NewStreamHandler creates a handler that writes to out.
func NewStreamHandler(out io.Writer) *StreamHandler {
	return &StreamHandler{out: out}
}

// ToolCount reports how many tool calls have started so far.
func (h *StreamHandler) ToolCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.toolCount
}

// Reset clears the handler state for a new stream.
func (h *StreamHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = ""
	h.lastFlushed = ""
	h.toolCount = 0
}

// HandleLine processes one line of output. Blank lines and lines that are
// not valid JSON are ignored.
func (h *StreamHandler) HandleLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	var ev streamEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch ev.Type {
	case "system":
		if ev.Subtype == "init" {
			model := ev.Model
			if model == "" {
				model = "unknown"
			}
			h.print(streamStyle, "🤖 Model: "+model, "\n")
			fmt.Fprintln(h.out)
		}
	case "assistant":
		var b strings.Builder
		for _, c := range ev.Message.Content {
			b.WriteString(c.Text)
		}
		if b.Len() > 0 {
			h.pending = b.String()
		}
	case "tool_call":
		if ev.Subtype != "started" {
			return
		}
		h.flush()
		h.toolCount++
		icon, desc := describeTool(ev.ToolCall)
		if h.toolCount > 1 || h.lastFlushed != "" {
			fmt.Fprintln(h.out)
		}
		h.print(streamStyle, icon+" "+desc, "")
	case "result":
		h.flush()
		fmt.Fprintln(h.out)
		h.print(streamStyle, fmt.Sprintf("✓ Completed (%d tools)", h.toolCount), "\n")
	}
}

// flush prints pending assistant text unless it repeats the last message.
// mu must be held.
func (h *StreamHandler) flush() {
	text := h.pending
	h.pending = ""
	if text == "" || text == h.lastFlushed {
		return
	}

	if h.lastFlushed != "" || h.toolCount > 0 {
		fmt.Fprint(h.out, "\n\n")
	}
	h.print(assistantStyle, text, "\n")
	h.lastFlushed = text
}

// print writes text with a bar prefix on every line.
func (h *StreamHandler) print(style lipgloss.Style, text, end string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		fmt.Fprint(h.out, barStyle.Render("│")+" "+style.Render(line))
		if i < len(lines)-1 {
			fmt.Fprint(h.out, "\n")
		}
	}
	fmt.Fprint(h.out, end)
}

// describeTool returns the icon and a one-line description of a tool call.
func describeTool(call map[string]toolCall) (string, string) {
	for _, kind := range []string{"terminalToolCall", "shellToolCall"} {
		if tc, ok := call[kind]; ok {
			return "💻", "Running " + truncate(tc.arg("command"), maxCommandWidth)
		}
	}

	if tc, ok := call["writeToolCall"]; ok {
		return "🔧", "Creating " + tc.arg("path")
	}
	if tc, ok := call["readToolCall"]; ok {
		return "📖", "Reading " + tc.arg("path")
	}
	if tc, ok := call["grepToolCall"]; ok {
		return "🔍", "Searching for '" + tc.arg("pattern") + "'"
	}
	if tc, ok := call["searchReplaceToolCall"]; ok {
		return "✏️", "Editing " + tc.arg("file_path")
	}

	if len(call) == 0 {
		return "🔧", "unknown"
	}
	names := make([]string, 0, len(call))
	for name := range call {
		names = append(names, name)
	}
	sort.Strings(names)
	return "🔧", names[0]
}

func (tc toolCall) arg(name string) string {
	if s, ok := tc.Args[name].(string); ok {
		return s
	}
	return "unknown"
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

package ui

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	joraerrors "thoreinstein.com/jora/pkg/errors"
)

var (
	// ErrCancelled is returned when the user cancels a selection
	ErrCancelled = joraerrors.New("selection cancelled")
	// ErrNoComponents is returned when there are no components to select from
	ErrNoComponents = joraerrors.New("no components found")
)

// fzfLookPath is replaced in tests to simulate a missing fzf.
var fzfLookPath = exec.LookPath

// SelectComponents lets the user pick any number of components. It uses
// fzf in multi-select mode when installed, and a numbered prompt on p
// otherwise. An empty result means no components were chosen.
func SelectComponents(p *Prompter, components []string) ([]string, error) {
	if len(components) == 0 {
		return nil, ErrNoComponents
	}

	fzfPath, err := fzfLookPath("fzf")
	if err != nil {
		return p.SelectMany("📋 Select components:", components)
	}

	unlock := p.term.lock()
	defer unlock()
	return runFzf(fzfPath, components)
}

func runFzf(fzfPath string, components []string) ([]string, error) {
	var input bytes.Buffer
	for _, c := range components {
		input.WriteString(c)
		input.WriteByte('\n')
	}

	// --multi: tab toggles, enter confirms
	// #nosec G204 - fzf binary is looked up in PATH, no user-controlled arguments are passed directly
	cmd := exec.Command(fzfPath,
		"--multi",
		"--height=40%",
		"--layout=reverse",
		"--prompt=components> ",
		"--header=TAB to toggle, ENTER to confirm, ESC for none",
		"--cycle",
	)
	cmd.Stdin = &input
	cmd.Stderr = os.Stderr // fzf uses stderr for UI rendering
	var output bytes.Buffer
	cmd.Stdout = &output

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if joraerrors.As(err, &exitErr) {
			switch exitErr.ExitCode() {
			case 1:
				// No match
				return []string{}, nil
			case 130:
				// ESC, Ctrl-C, Ctrl-G
				return nil, ErrCancelled
			}
		}
		return nil, fmt.Errorf("fzf failed: %w", err)
	}

	return parseFzfOutput(output.String(), components), nil
}

// parseFzfOutput keeps the selected lines that name a known component, in
// the order fzf printed them.
func parseFzfOutput(out string, components []string) []string {
	known := make(map[string]bool, len(components))
	for _, c := range components {
		known[c] = true
	}

	selected := []string{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && known[line] {
			selected = append(selected, line)
		}
	}
	return selected
}

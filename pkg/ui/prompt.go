package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Prompter asks line-oriented questions on a terminal.
type Prompter struct {
	term   terminal
	in     *bufio.Reader
	out    io.Writer
	fd     int
	secret func(fd int) ([]byte, error)
	isTTY  func(fd int) bool
}

// NewPrompter creates a Prompter reading from in and writing to out. When
// in is a terminal, secrets are read without echo.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		in:     bufio.NewReader(in),
		out:    out,
		fd:     -1,
		secret: term.ReadPassword,
		isTTY:  term.IsTerminal,
	}
	if f, ok := in.(*os.File); ok {
		p.fd = int(f.Fd())
	}
	return p
}

// StdPrompter returns a Prompter on the process's stdin and stdout.
func StdPrompter() *Prompter {
	return NewPrompter(os.Stdin, os.Stdout)
}

// IsInteractive reports whether os.Stdin and os.Stdout are terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Prompt asks for a line of text. An empty answer yields def.
func (p *Prompter) Prompt(label, def string) (string, error) {
	unlock := p.term.lock()
	defer unlock()

	fmt.Fprintf(p.out, "%s ", label)
	if def != "" {
		fmt.Fprintf(p.out, "(default: %s) ", def)
	}

	input, err := p.readLine()
	if err != nil {
		return "", err
	}
	if input == "" {
		return def, nil
	}
	return input, nil
}

// Confirm asks a yes/no question. An empty answer yields def.
func (p *Prompter) Confirm(label string, def bool) (bool, error) {
	unlock := p.term.lock()
	defer unlock()

	suffix := "[y/N]"
	if def {
		suffix = "[Y/n]"
	}
	fmt.Fprintf(p.out, "%s %s ", label, suffix)

	input, err := p.readLine()
	if err != nil {
		return false, err
	}
	input = strings.ToLower(input)
	if input == "" {
		return def, nil
	}
	return strings.HasPrefix(input, "y"), nil
}

// PromptSecret asks for a value without echoing it when reading from a
// terminal. An empty answer yields def.
func (p *Prompter) PromptSecret(label, def string) (string, error) {
	unlock := p.term.lock()
	defer unlock()

	fmt.Fprintf(p.out, "%s ", label)
	if def != "" {
		fmt.Fprint(p.out, "(leave empty to keep current) ")
	}

	var input string
	if p.fd >= 0 && p.isTTY(p.fd) {
		b, err := p.secret(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		input = strings.TrimSpace(string(b))
	} else {
		var err error
		if input, err = p.readLine(); err != nil {
			return "", err
		}
	}

	if input == "" {
		return def, nil
	}
	return input, nil
}

// SelectMany lists options by number and reads a comma separated choice.
// An empty answer selects nothing; "q" cancels with ErrCancelled.
func (p *Prompter) SelectMany(label string, options []string) ([]string, error) {
	unlock := p.term.lock()
	defer unlock()

	fmt.Fprintln(p.out, label)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}

	for {
		fmt.Fprintf(p.out, "Select (1-%d, comma separated, empty for none, q to cancel): ", len(options))
		input, err := p.readLine()
		if err != nil {
			return nil, err
		}
		if input == "" {
			return []string{}, nil
		}
		if strings.EqualFold(input, "q") {
			return nil, ErrCancelled
		}

		picked, ok := parseSelection(input, len(options))
		if !ok {
			fmt.Fprintln(p.out, "Invalid selection.")
			continue
		}
		result := make([]string, 0, len(picked))
		for _, idx := range picked {
			result = append(result, options[idx])
		}
		return result, nil
	}
}

// parseSelection parses "1, 3,2" into zero-based indices, dropping
// duplicates. It fails on anything outside 1..n.
func parseSelection(input string, n int) ([]int, bool) {
	seen := make(map[int]bool)
	var out []int
	for _, field := range strings.Split(input, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		idx, err := strconv.Atoi(field)
		if err != nil || idx < 1 || idx > n {
			return nil, false
		}
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx-1)
		}
	}
	return out, len(out) > 0
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

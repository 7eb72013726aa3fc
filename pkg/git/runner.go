package git

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// CommandRunner executes external commands. Tests substitute a mock.
type CommandRunner interface {
	// Run executes the command in dir and returns an error if it fails.
	Run(dir, name string, args ...string) error
	// Output executes the command in dir and returns its standard output.
	Output(dir, name string, args ...string) ([]byte, error)
}

// RealCommandRunner runs commands with os/exec.
type RealCommandRunner struct {
	Verbose bool
}

// Run executes the command. Standard error is captured and attached to the
// returned error; in verbose mode both streams are also echoed.
func (r *RealCommandRunner) Run(dir, name string, args ...string) error {
	_, err := r.exec(dir, name, args, false)
	return err
}

// Output executes the command and returns its standard output.
func (r *RealCommandRunner) Output(dir, name string, args ...string) ([]byte, error) {
	return r.exec(dir, name, args, true)
}

func (r *RealCommandRunner) exec(dir, name string, args []string, capture bool) ([]byte, error) {
	if r.Verbose {
		fmt.Fprintf(os.Stderr, "+ %s %s\n", name, strings.Join(args, " "))
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr
	switch {
	case capture:
		cmd.Stdout = &stdout
	case r.Verbose:
		cmd.Stdout = os.Stderr
	default:
		cmd.Stdout = io.Discard
	}
	if r.Verbose {
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	}

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return stdout.Bytes(), errors.Wrapf(err, "%s %s", name, strings.Join(args, " "))
		}
		return stdout.Bytes(), errors.Wrapf(err, "%s %s: %s", name, strings.Join(args, " "), msg)
	}

	return stdout.Bytes(), nil
}

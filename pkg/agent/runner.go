// Package agent runs the external AI coding agent and renders its
// streamed output.
package agent

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
)

// Defaults used when the agent section of the config is empty.
const (
	DefaultCommand = "cursor-agent"
	DefaultModel   = "sonnet-4.5-thinking"
)

// maxLineSize bounds a single stream-json line. Partial output events can
// carry whole file contents.
const maxLineSize = 4 * 1024 * 1024

// RunResult describes a finished agent run.
type RunResult struct {
	RunID     string
	ExitCode  int
	Elapsed   time.Duration
	ToolCount int
}

// Runner executes the agent binary with a prompt.
type Runner struct {
	command  string
	model    string
	out      io.Writer
	verbose  bool
	logger   *slog.Logger
	lookPath func(string) (string, error)
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where the rendered transcript is written.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.out = w
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner from the agent config.
func NewRunner(cfg config.AgentConfig, verbose bool, opts ...Option) *Runner {
	r := &Runner{
		command:  cfg.Command,
		model:    cfg.Model,
		out:      os.Stdout,
		verbose:  verbose,
		logger:   slog.Default(),
		lookPath: exec.LookPath,
		now:      time.Now,
	}
	if r.command == "" {
		r.command = DefaultCommand
	}
	if r.model == "" {
		r.model = DefaultModel
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Args returns the agent command line for prompt, without the binary.
func (r *Runner) Args(prompt string) []string {
	return []string{
		"--force",
		"--model", r.model,
		"--output-format", "stream-json",
		"--stream-partial-output",
		"-p", prompt,
	}
}

// Run starts the agent, streams its stdout through a StreamHandler and
// waits for it to exit. phase names the run in messages, e.g. "Review Phase".
//
// A non-zero exit returns both the result and an *errors.AgentError
// carrying the exit code and captured stderr.
func (r *Runner) Run(ctx context.Context, phase, prompt string) (*RunResult, error) {
	path, err := r.lookPath(r.command)
	if err != nil {
		return nil, joraerrors.NewAgentErrorWithCause(r.command,
			fmt.Sprintf("%s not found: ensure it is installed and in your PATH", r.command), err)
	}

	runID := uuid.NewString()
	handler := NewStreamHandler(r.out)
	started := r.now()

	// #nosec G204 - the binary comes from the user's own config
	cmd := exec.CommandContext(ctx, path, r.Args(prompt)...)
	cmd.Env = append(os.Environ(), "JORA_RUN_ID="+runID)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, joraerrors.NewAgentErrorWithCause(r.command, "failed to open agent output", err)
	}

	r.logDebug("starting agent", "run_id", runID, "command", r.command, "model", r.model, "phase", phase)

	if err := cmd.Start(); err != nil {
		return nil, joraerrors.NewAgentErrorWithCause(r.command, "failed to start agent", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		handler.HandleLine(scanner.Text())
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Drain so the agent is not blocked on a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	result := &RunResult{
		RunID:     runID,
		ExitCode:  cmd.ProcessState.ExitCode(),
		Elapsed:   r.now().Sub(started),
		ToolCount: handler.ToolCount(),
	}
	r.logDebug("agent finished", "run_id", runID, "exit_code", result.ExitCode, "elapsed", result.Elapsed)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, joraerrors.Wrap(ctxErr, phase+" interrupted")
	}
	if waitErr != nil {
		agentErr := joraerrors.NewAgentErrorWithCause(r.command, stderrMessage(&stderr), waitErr)
		agentErr.Phase = phase
		agentErr.ExitCode = result.ExitCode
		return result, agentErr
	}
	if scanErr != nil {
		return result, joraerrors.NewAgentErrorWithCause(r.command, "failed to read agent output", scanErr)
	}
	return result, nil
}

func stderrMessage(stderr *bytes.Buffer) string {
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		return "no error output"
	}
	return msg
}

func (r *Runner) logDebug(msg string, args ...any) {
	if r.verbose {
		r.logger.Debug(msg, args...)
	}
}

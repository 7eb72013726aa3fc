package agent

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"thoreinstein.com/jora/pkg/config"
	joraerrors "thoreinstein.com/jora/pkg/errors"
)

func writeAgentScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-agent")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(config.AgentConfig{}, false)
	if r.command != DefaultCommand || r.model != DefaultModel {
		t.Errorf("NewRunner() = %q/%q, want defaults", r.command, r.model)
	}

	args := NewRunner(config.AgentConfig{Model: "gpt-5"}, false).Args("do it")
	want := []string{"--force", "--model", "gpt-5", "--output-format", "stream-json", "--stream-partial-output", "-p", "do it"}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Errorf("Args() = %v, want %v", args, want)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	r := NewRunner(config.AgentConfig{Command: "definitely-not-installed-agent"}, false)
	_, err := r.Run(context.Background(), "Task", "prompt")

	var agentErr *joraerrors.AgentError
	if !joraerrors.As(err, &agentErr) {
		t.Fatalf("Run() error = %v, want AgentError", err)
	}
	if !strings.Contains(agentErr.Message, "not found") {
		t.Errorf("Message = %q", agentErr.Message)
	}
}

func TestRun_StreamsOutput(t *testing.T) {
	script := writeAgentScript(t, `
[ "$1" = "--force" ] || exit 9
[ -n "$JORA_RUN_ID" ] || exit 8
echo '{"type":"system","subtype":"init","model":"test-model"}'
echo '{"type":"tool_call","subtype":"started","tool_call":{"readToolCall":{"args":{"path":"x.go"}}}}'
echo '{"type":"result"}'
`)
	var out bytes.Buffer
	r := NewRunner(config.AgentConfig{Command: script}, false, WithOutput(&out))

	res, err := r.Run(context.Background(), "Implementation", "prompt")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 || res.ToolCount != 1 || res.RunID == "" {
		t.Errorf("Run() = %+v", res)
	}
	if !strings.Contains(out.String(), "🤖 Model: test-model") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	script := writeAgentScript(t, "echo 'quota exceeded' >&2\nexit 3\n")
	r := NewRunner(config.AgentConfig{Command: script}, false, WithOutput(&bytes.Buffer{}))

	res, err := r.Run(context.Background(), "Review Phase", "prompt")
	var agentErr *joraerrors.AgentError
	if !joraerrors.As(err, &agentErr) {
		t.Fatalf("Run() error = %v, want AgentError", err)
	}
	if agentErr.ExitCode != 3 || agentErr.Phase != "Review Phase" || agentErr.Message != "quota exceeded" {
		t.Errorf("AgentError = %+v", agentErr)
	}
	if res == nil || res.ExitCode != 3 {
		t.Errorf("result = %+v, want exit code 3", res)
	}
}

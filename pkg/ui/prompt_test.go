package ui

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func newTestPrompter(input string) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	return NewPrompter(strings.NewReader(input), &out), &out
}

func TestPrompter_Prompt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   string
		want  string
	}{
		{"answer", "my-input\n", "", "my-input"},
		{"trimmed", "  spaced  \n", "", "spaced"},
		{"default", "\n", "fallback", "fallback"},
		{"no trailing newline", "last", "", "last"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPrompter(tt.input)
			got, err := p.Prompt("Enter:", tt.def)
			if err != nil {
				t.Fatalf("Prompt() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Prompt() = %q, want %q", got, tt.want)
			}
		})
	}

	p, _ := newTestPrompter("")
	if _, err := p.Prompt("Enter:", ""); err == nil {
		t.Error("Prompt() on closed input should fail")
	}
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		def   bool
		want  bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
	}
	for _, tt := range tests {
		p, out := newTestPrompter(tt.input)
		got, err := p.Confirm("Continue?", tt.def)
		if err != nil {
			t.Fatalf("Confirm(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q, %v) = %v, want %v", tt.input, tt.def, got, tt.want)
		}
		wantSuffix := "[y/N]"
		if tt.def {
			wantSuffix = "[Y/n]"
		}
		if !strings.Contains(out.String(), wantSuffix) {
			t.Errorf("prompt %q missing %s", out.String(), wantSuffix)
		}
	}
}

func TestPrompter_PromptSecret(t *testing.T) {
	p, _ := newTestPrompter("s3cret\n")
	got, err := p.PromptSecret("Token:", "")
	if err != nil || got != "s3cret" {
		t.Errorf("PromptSecret() = %q, %v", got, err)
	}

	p, out := newTestPrompter("\n")
	got, err = p.PromptSecret("Token:", "old")
	if err != nil || got != "old" {
		t.Errorf("PromptSecret() keep = %q, %v", got, err)
	}
	if !strings.Contains(out.String(), "leave empty to keep current") {
		t.Errorf("prompt = %q", out.String())
	}

	// A terminal reads through the no-echo reader.
	p, _ = newTestPrompter("")
	p.fd = 0
	p.isTTY = func(int) bool { return true }
	p.secret = func(int) ([]byte, error) { return []byte("hidden"), nil }
	got, err = p.PromptSecret("Token:", "")
	if err != nil || got != "hidden" {
		t.Errorf("PromptSecret() tty = %q, %v", got, err)
	}
}

func TestPrompter_SelectMany(t *testing.T) {
	options := []string{"Backend", "Frontend", "Infra"}
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr error
	}{
		{"pick two", "3, 1\n", []string{"Infra", "Backend"}, nil},
		{"duplicates", "2,2\n", []string{"Frontend"}, nil},
		{"none", "\n", []string{}, nil},
		{"retry after invalid", "7\nabc\n2\n", []string{"Frontend"}, nil},
		{"cancel", "q\n", nil, ErrCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPrompter(tt.input)
			got, err := p.SelectMany("Pick:", options)
			if err != tt.wantErr {
				t.Fatalf("SelectMany() error = %v, want %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectMany() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSelectComponents_Fallback(t *testing.T) {
	orig := fzfLookPath
	fzfLookPath = func(string) (string, error) { return "", ErrCancelled }
	t.Cleanup(func() { fzfLookPath = orig })

	p, _ := newTestPrompter("1\n")
	got, err := SelectComponents(p, []string{"Backend", "Frontend"})
	if err != nil || !reflect.DeepEqual(got, []string{"Backend"}) {
		t.Errorf("SelectComponents() = %v, %v", got, err)
	}

	if _, err := SelectComponents(p, nil); err != ErrNoComponents {
		t.Errorf("SelectComponents(nil) error = %v, want ErrNoComponents", err)
	}
}

func TestParseFzfOutput(t *testing.T) {
	got := parseFzfOutput("Frontend\nBackend\nstray\n\n", []string{"Backend", "Frontend"})
	if !reflect.DeepEqual(got, []string{"Frontend", "Backend"}) {
		t.Errorf("parseFzfOutput() = %v", got)
	}
	if got := parseFzfOutput("", nil); got == nil || len(got) != 0 {
		t.Errorf("parseFzfOutput(empty) = %#v", got)
	}
}

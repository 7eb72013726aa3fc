package git

import "strings"

// MockCommandRunner is a CommandRunner backed by function fields. Every
// invocation is recorded as "name arg1 arg2 ...".
type MockCommandRunner struct {
	RunFunc    func(dir string, name string, args ...string) error
	OutputFunc func(dir string, name string, args ...string) ([]byte, error)
	Calls      []string
}

func (m *MockCommandRunner) Run(dir, name string, args ...string) error {
	m.record(name, args)
	if m.RunFunc != nil {
		return m.RunFunc(dir, name, args...)
	}
	return nil
}

func (m *MockCommandRunner) Output(dir, name string, args ...string) ([]byte, error) {
	m.record(name, args)
	if m.OutputFunc != nil {
		return m.OutputFunc(dir, name, args...)
	}
	return []byte{}, nil
}

func (m *MockCommandRunner) record(name string, args []string) {
	m.Calls = append(m.Calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
}

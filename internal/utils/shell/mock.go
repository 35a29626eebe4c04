package shell

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockCommand is a canned response for commands whose rendering contains
// Pattern. User, when set, must match the command's user too.
type MockCommand struct {
	Pattern  string
	User     string
	Output   string
	ExitCode int
	Error    error
	// Effect runs before the response is returned, to emulate side
	// effects such as a touched file.
	Effect func(cmd Command)
}

// MockExecutor answers commands from a list of MockCommand. The first
// match wins. Unmatched commands fail with exit code 127.
type MockExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	calls    []Command
}

// NewMockExecutor returns an executor answering from commands.
func NewMockExecutor(commands []MockCommand) *MockExecutor {
	return &MockExecutor{commands: commands}
}

// Run implements Executor.
func (m *MockExecutor) Run(_ context.Context, cmd Command) (Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, cmd)
	m.mu.Unlock()

	rendered := cmd.String()
	for _, mc := range m.commands {
		if !strings.Contains(rendered, mc.Pattern) {
			continue
		}
		if mc.User != "" && mc.User != cmd.User {
			continue
		}
		if mc.Effect != nil {
			mc.Effect(cmd)
		}
		res := Result{Output: mc.Output, ExitCode: mc.ExitCode}
		if mc.Error != nil || mc.ExitCode != 0 {
			if res.ExitCode == 0 {
				res.ExitCode = 1
			}
			return res, &ExitError{Cmd: rendered, ExitCode: res.ExitCode, Output: mc.Output, Err: mc.Error}
		}
		return res, nil
	}
	return Result{ExitCode: 127}, &ExitError{
		Cmd:      rendered,
		ExitCode: 127,
		Err:      fmt.Errorf("unexpected command: %s", rendered),
	}
}

// Calls returns every command seen so far.
func (m *MockExecutor) Calls() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.calls...)
}

// CallsMatching returns the commands whose rendering contains pattern.
func (m *MockExecutor) CallsMatching(pattern string) []Command {
	var out []Command
	for _, c := range m.Calls() {
		if strings.Contains(c.String(), pattern) {
			out = append(out, c)
		}
	}
	return out
}

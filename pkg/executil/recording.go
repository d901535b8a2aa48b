package executil

import (
	"context"
	"strings"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir  string
	Cmd  string
	Args []string
}

// Line returns the command and its arguments joined by spaces.
func (c RecordedCommand) Line() string {
	return strings.TrimSpace(c.Cmd + " " + strings.Join(c.Args, " "))
}

// RecordingExecutor captures commands for testing.
//
// Outputs and Errors are keyed by a command-line prefix such as "git" or
// "git checkout -b". The longest key that prefixes the executed line wins.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	Outputs map[string][]byte
	Errors  map[string]error
}

// Run records the command and returns configured output/error.
func (e *RecordingExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.record("", cmd, args...)
}

// RunDir records the command with directory and returns configured output/error.
func (e *RecordingExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return e.record(dir, cmd, args...)
}

func (e *RecordingExecutor) record(dir, cmd string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rc := RecordedCommand{Dir: dir, Cmd: cmd, Args: args}
	e.Commands = append(e.Commands, rc)

	line := rc.Line()
	var out []byte
	if key, ok := longestPrefix(line, keysOf(e.Outputs)); ok {
		out = e.Outputs[key]
	}
	var err error
	if key, ok := longestPrefix(line, errKeys(e.Errors)); ok {
		err = e.Errors[key]
	}
	return out, err
}

// Lines returns every recorded command line in execution order.
func (e *RecordingExecutor) Lines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	lines := make([]string, len(e.Commands))
	for i, c := range e.Commands {
		lines[i] = c.Line()
	}
	return lines
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}

func keysOf(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func errKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func longestPrefix(line string, keys []string) (string, bool) {
	best, found := "", false
	for _, k := range keys {
		if line != k && !strings.HasPrefix(line, k+" ") {
			continue
		}
		if !found || len(k) > len(best) {
			best, found = k, true
		}
	}
	return best, found
}

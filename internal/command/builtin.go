package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ShayCichocki/taskengine/pkg/executil"
)

// Built-in type tags.
const (
	TypeNote      = "note"
	TypeShell     = "shell"
	TypeWriteFile = "write_file"
	TypeScan      = "scan"
	TypeFail      = "fail"
)

// Deps are the collaborators the built-in commands need.
type Deps struct {
	// WorkDir is the directory relative paths resolve against.
	WorkDir string
	// Exec runs shell commands. Defaults to a RealExecutor.
	Exec executil.Executor
}

// RegisterBuiltins installs the built-in command kinds into reg.
func RegisterBuiltins(reg *Registry, deps Deps) {
	if deps.Exec == nil {
		deps.Exec = &executil.RealExecutor{}
	}

	reg.Register(TypeNote, func(spec Spec) (Command, error) {
		return NewNote(spec), nil
	})
	reg.Register(TypeShell, func(spec Spec) (Command, error) {
		return NewShell(spec, deps.Exec, deps.WorkDir)
	})
	reg.Register(TypeWriteFile, func(spec Spec) (Command, error) {
		return NewWriteFile(spec, deps.WorkDir)
	})
	reg.Register(TypeScan, func(spec Spec) (Command, error) {
		return NewScan(spec, deps.WorkDir)
	})
	reg.Register(TypeFail, func(spec Spec) (Command, error) {
		return NewFail(spec), nil
	})
}

// NoteCommand records a message. Param "message" defaults to the description.
type NoteCommand struct {
	*Base
	message string
}

// NewNote creates a note command.
func NewNote(spec Spec) *NoteCommand {
	return &NoteCommand{Base: NewBase(spec), message: spec.Param("message", spec.Description)}
}

func (c *NoteCommand) Execute(ctx context.Context) bool {
	return c.Run(ctx, func(ctx context.Context) (Result, error) {
		return NoteResult{Message: c.message}, nil
	})
}

// ShellCommand runs a command line through sh -c.
//
// Params: "run" (required), "dir" (relative to the work dir).
type ShellCommand struct {
	*Base
	exec executil.Executor
	dir  string
	line string
}

// NewShell creates a shell command.
func NewShell(spec Spec, exec executil.Executor, workDir string) (*ShellCommand, error) {
	line := spec.Param("run", "")
	if strings.TrimSpace(line) == "" {
		return nil, errors.New(`missing required param "run"`)
	}
	return &ShellCommand{
		Base: NewBase(spec),
		exec: exec,
		dir:  resolve(workDir, spec.Param("dir", "")),
		line: line,
	}, nil
}

func (c *ShellCommand) Execute(ctx context.Context) bool {
	return c.Run(ctx, func(ctx context.Context) (Result, error) {
		out, err := c.exec.RunDir(ctx, c.dir, "sh", "-c", c.line)
		output := strings.TrimSpace(string(out))
		if err != nil {
			if output != "" {
				return nil, fmt.Errorf("%s: %w: %s", c.line, err, output)
			}
			return nil, fmt.Errorf("%s: %w", c.line, err)
		}
		return ShellResult{CommandLine: c.line, Output: output, ExitCode: 0}, nil
	})
}

// WriteFileCommand writes content to a file. Rollback removes a file it
// created or restores the previous content of a file it overwrote.
//
// Params: "path" (required), "content".
type WriteFileCommand struct {
	*Base
	path    string
	content string

	existed  bool
	previous []byte
	mode     os.FileMode
}

// NewWriteFile creates a write_file command.
func NewWriteFile(spec Spec, workDir string) (*WriteFileCommand, error) {
	path := spec.Param("path", "")
	if path == "" {
		return nil, errors.New(`missing required param "path"`)
	}
	return &WriteFileCommand{
		Base:    NewBase(spec),
		path:    resolve(workDir, path),
		content: spec.Params["content"],
	}, nil
}

func (c *WriteFileCommand) Execute(ctx context.Context) bool {
	return c.Run(ctx, func(ctx context.Context) (Result, error) {
		c.mode = 0o644
		if info, err := os.Stat(c.path); err == nil {
			prev, err := os.ReadFile(c.path)
			if err != nil {
				return nil, fmt.Errorf("read existing %s: %w", c.path, err)
			}
			c.existed, c.previous, c.mode = true, prev, info.Mode().Perm()
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", c.path, err)
		}

		if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
			return nil, fmt.Errorf("create parent dir: %w", err)
		}
		if err := os.WriteFile(c.path, []byte(c.content), c.mode); err != nil {
			return nil, fmt.Errorf("write %s: %w", c.path, err)
		}
		return FileResult{Path: c.path, Bytes: len(c.content), Created: !c.existed}, nil
	})
}

// Rollback undoes the write. It is a no-op unless Execute succeeded.
func (c *WriteFileCommand) Rollback(ctx context.Context) bool {
	if !c.Succeeded() {
		return true
	}
	if c.existed {
		return os.WriteFile(c.path, c.previous, c.mode) == nil
	}
	err := os.Remove(c.path)
	return err == nil || errors.Is(err, os.ErrNotExist)
}

// ScanCommand lists files matching a doublestar pattern below the work dir.
//
// Params: "pattern" (default "**/*.go"), "min" (minimum match count, default 0).
type ScanCommand struct {
	*Base
	root    string
	pattern string
	min     int
}

// NewScan creates a scan command.
func NewScan(spec Spec, workDir string) (*ScanCommand, error) {
	pattern := spec.Param("pattern", "**/*.go")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	minMatches, err := strconv.Atoi(spec.Param("min", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid min %q: %w", spec.Params["min"], err)
	}
	root := workDir
	if root == "" {
		root = "."
	}
	return &ScanCommand{Base: NewBase(spec), root: root, pattern: pattern, min: minMatches}, nil
}

func (c *ScanCommand) Execute(ctx context.Context) bool {
	return c.Run(ctx, func(ctx context.Context) (Result, error) {
		matches, err := doublestar.Glob(os.DirFS(c.root), c.pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", c.pattern, err)
		}
		if len(matches) < c.min {
			return nil, fmt.Errorf("pattern %s matched %d file(s), want at least %d", c.pattern, len(matches), c.min)
		}
		return ScanResult{Pattern: c.pattern, Matches: matches}, nil
	})
}

// FailCommand always fails. Param "mode" set to "panic" makes the body panic
// instead of returning an error.
type FailCommand struct {
	*Base
	message string
	panics  bool
}

// NewFail creates a fail command.
func NewFail(spec Spec) *FailCommand {
	return &FailCommand{
		Base:    NewBase(spec),
		message: spec.Param("message", "forced failure"),
		panics:  spec.Param("mode", "error") == "panic",
	}
}

func (c *FailCommand) Execute(ctx context.Context) bool {
	return c.Run(ctx, func(ctx context.Context) (Result, error) {
		if c.panics {
			panic(c.message)
		}
		return nil, errors.New(c.message)
	})
}

func resolve(workDir, p string) string {
	if p == "" {
		return workDir
	}
	if filepath.IsAbs(p) || workDir == "" {
		return p
	}
	return filepath.Join(workDir, p)
}

var (
	_ Command = (*NoteCommand)(nil)
	_ Command = (*ShellCommand)(nil)
	_ Command = (*WriteFileCommand)(nil)
	_ Command = (*ScanCommand)(nil)
	_ Command = (*FailCommand)(nil)
)

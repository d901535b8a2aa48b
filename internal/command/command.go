// Package command defines executable units of work and the factory that
// builds them from a registry of type tags.
//
// A Command never returns an error to its caller. Failure is reported through
// the boolean result of Execute together with ErrorMessage; success through
// Result. Exactly one of the two is set once Execute has returned.
package command

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Command is a unit of executable work.
type Command interface {
	// ID returns the identifier of the task that owns this command.
	ID() string
	// Name returns the human-readable name.
	Name() string
	// Description returns the longer description.
	Description() string
	// Execute runs the command body once and reports success.
	Execute(ctx context.Context) bool
	// Rollback undoes the side effects of a successful Execute. The engine
	// calls it on completed tasks when git cannot discard a failed run.
	Rollback(ctx context.Context) bool
	// Result returns the typed payload of a successful execution, or nil.
	Result() Result
	// ErrorMessage returns the failure text, or "" if the command did not fail.
	ErrorMessage() string
	// StartedAt returns when execution began (zero if never executed).
	StartedAt() time.Time
	// EndedAt returns when execution finished (zero if not finished).
	EndedAt() time.Time
	// Duration returns EndedAt-StartedAt, or zero if either is unset.
	Duration() time.Duration
}

// Spec carries everything a constructor needs to build a command.
type Spec struct {
	TaskID      string
	Name        string
	Description string
	Params      map[string]string
}

// Param returns the named parameter or def when it is unset or empty.
func (s Spec) Param(key, def string) string {
	if v, ok := s.Params[key]; ok && v != "" {
		return v
	}
	return def
}

// Base implements the bookkeeping half of Command. Concrete commands embed it
// and implement Execute by calling Run with their body.
type Base struct {
	spec Spec

	mu        sync.RWMutex
	startedAt time.Time
	endedAt   time.Time
	result    Result
	errMsg    string
	executed  bool
}

// NewBase returns a Base for the given spec.
func NewBase(spec Spec) *Base {
	return &Base{spec: spec}
}

func (b *Base) ID() string          { return b.spec.TaskID }
func (b *Base) Name() string        { return b.spec.Name }
func (b *Base) Description() string { return b.spec.Description }

// Spec returns the spec the command was built from.
func (b *Base) Spec() Spec { return b.spec }

// Rollback is a no-op that always succeeds.
func (b *Base) Rollback(ctx context.Context) bool { return true }

// Result returns the typed payload of a successful execution, or nil.
func (b *Base) Result() Result {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.result
}

// ErrorMessage returns the failure text, or "".
func (b *Base) ErrorMessage() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.errMsg
}

// Succeeded reports whether the command executed and did not fail.
func (b *Base) Succeeded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.executed && b.errMsg == ""
}

func (b *Base) StartedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.startedAt
}

func (b *Base) EndedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.endedAt
}

// Duration returns the elapsed wall-clock time of the execution.
func (b *Base) Duration() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.startedAt.IsZero() || b.endedAt.IsZero() {
		return 0
	}
	return b.endedAt.Sub(b.startedAt)
}

// Run executes fn at most once, recording timestamps and converting any
// returned error or panic into the error message. A second call returns the
// first outcome without running fn again.
func (b *Base) Run(ctx context.Context, fn func(ctx context.Context) (Result, error)) bool {
	b.mu.Lock()
	if b.executed {
		ok := b.errMsg == ""
		b.mu.Unlock()
		return ok
	}
	b.executed = true
	b.startedAt = time.Now()
	b.mu.Unlock()

	res, err := invoke(ctx, fn)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.endedAt = time.Now()
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "command failed"
		}
		b.errMsg = msg
		return false
	}
	if res == nil {
		res = EmptyResult{}
	}
	b.result = res
	return true
}

func invoke(ctx context.Context, fn func(ctx context.Context) (Result, error)) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("not started: %w", err)
	}
	return fn(ctx)
}

// Func adapts a plain function into a Command.
type Func struct {
	*Base
	fn func(ctx context.Context) (Result, error)
}

// NewFunc returns a Command whose body is fn.
func NewFunc(spec Spec, fn func(ctx context.Context) (Result, error)) *Func {
	return &Func{Base: NewBase(spec), fn: fn}
}

// Execute runs the wrapped function.
func (f *Func) Execute(ctx context.Context) bool {
	return f.Run(ctx, f.fn)
}

var _ Command = (*Func)(nil)

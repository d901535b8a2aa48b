// Package task provides the schedulable wrapper around a command and the
// manager that owns the task collection for a run.
package task

import (
	"context"
	"time"

	"github.com/ShayCichocki/taskengine/internal/command"
	"github.com/ShayCichocki/taskengine/pkg/models"
)

// Task is a schedulable unit wrapping a Command.
type Task struct {
	// ID is the unique identifier within a manager.
	ID string
	// Description is a human-readable summary of the work.
	Description string
	// Command is the work itself. A task owns its command exclusively.
	Command command.Command
	// DependsOn lists task IDs that must complete before this task is ready.
	// Order is preserved for reporting but treated as a set.
	DependsOn []string
	// Requires lists capability tags. Any agent offering one of them may run
	// the task; an empty list means any agent qualifies.
	Requires []string

	// Status is the current lifecycle status.
	Status models.TaskStatus
	// AgentID is the agent the task was assigned to, if any.
	AgentID string
	// StartedAt is when the task started.
	StartedAt time.Time
	// EndedAt is when the task reached a terminal status.
	EndedAt time.Time
	// Result mirrors the command result after a successful execution.
	Result command.Result
	// Error mirrors the command error message after a failed execution.
	Error string
	// BlockedReason explains why a blocked task can never become ready.
	BlockedReason string
}

// New creates a task in the not-started status.
func New(id, description string, cmd command.Command, dependsOn ...string) *Task {
	return &Task{
		ID:          id,
		Description: description,
		Command:     cmd,
		DependsOn:   dependsOn,
		Status:      models.TaskStatusNotStarted,
	}
}

// Execute records the start time, delegates to the command, records the end
// time and mirrors the command outcome onto the task. The command's boolean
// is returned unchanged.
func (t *Task) Execute(ctx context.Context) bool {
	t.begin(time.Now())
	ok := t.invoke(ctx)
	t.mirror(time.Now())
	return ok
}

// TaskID returns the task ID.
func (t *Task) TaskID() string { return t.ID }

// RequiredCapabilities returns the capability tags an agent must offer one of.
func (t *Task) RequiredCapabilities() []string { return t.Requires }

// Duration returns the elapsed time between start and end, or zero.
func (t *Task) Duration() time.Duration {
	if t.StartedAt.IsZero() || t.EndedAt.IsZero() {
		return 0
	}
	return t.EndedAt.Sub(t.StartedAt)
}

func (t *Task) begin(now time.Time) {
	t.StartedAt = now
	t.EndedAt = time.Time{}
}

func (t *Task) invoke(ctx context.Context) bool {
	if t.Command == nil {
		return false
	}
	return t.Command.Execute(ctx)
}

func (t *Task) mirror(now time.Time) {
	t.EndedAt = now
	if t.Command == nil {
		t.Result, t.Error = nil, "task has no command"
		return
	}
	t.Result = t.Command.Result()
	t.Error = t.Command.ErrorMessage()
}

// snapshot returns a copy safe to hand out while the original keeps changing.
func (t *Task) snapshot() Task {
	cp := *t
	cp.DependsOn = append([]string(nil), t.DependsOn...)
	cp.Requires = append([]string(nil), t.Requires...)
	return cp
}

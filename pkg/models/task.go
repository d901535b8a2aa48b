// Package models holds the data types shared between the engine packages
// and the CLI.
package models

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusNotStarted indicates the task has not started.
	TaskStatusNotStarted TaskStatus = "not_started"
	// TaskStatusInProgress indicates the task is assigned and executing.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusBlocked indicates the task can never become ready.
	TaskStatusBlocked TaskStatus = "blocked"
)

// AllTaskStatuses lists every status in lifecycle order.
var AllTaskStatuses = []TaskStatus{
	TaskStatusNotStarted,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusFailed,
	TaskStatusBlocked,
}

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed, TaskStatusBlocked:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition can happen in a run.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusBlocked
}

// TaskStats counts tasks per status.
type TaskStats map[TaskStatus]int

// NewTaskStats returns stats with every status present at zero.
func NewTaskStats() TaskStats {
	stats := make(TaskStats, len(AllTaskStatuses))
	for _, s := range AllTaskStatuses {
		stats[s] = 0
	}
	return stats
}

// Total returns the number of tasks counted.
func (s TaskStats) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

package orchestrator

import (
	"time"

	"github.com/ShayCichocki/taskengine/pkg/models"
)

// EventType represents the type of engine event.
type EventType string

const (
	// EventRunStarted indicates the session branch exists and scheduling begins.
	EventRunStarted EventType = "run_started"
	// EventTaskQueued indicates a task is ready and was assigned an agent.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates a task has started execution.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
	// EventTaskBlocked indicates a task can never become ready.
	EventTaskBlocked EventType = "task_blocked"
	// EventMergeStarted indicates the session branch is being merged.
	EventMergeStarted EventType = "merge_started"
	// EventMergeCompleted indicates the merge finished, successfully or not.
	EventMergeCompleted EventType = "merge_completed"
	// EventRunDone indicates the run is complete.
	EventRunDone EventType = "run_done"
)

// Event is emitted by the engine while a run progresses.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID identifies the run.
	RunID string
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// AgentID is the ID of the related agent, if applicable.
	AgentID string
	// Message provides additional context about the event.
	Message string
	// Error contains the failure text for failure events.
	Error string
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Duration is the task or run duration for completion events.
	Duration time.Duration
	// Summary is set on EventRunDone.
	Summary *models.RunSummary
}

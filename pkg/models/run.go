package models

import "time"

// SessionState is the lifecycle state of a git session.
type SessionState string

const (
	SessionUninitialized SessionState = "uninitialized"
	SessionBranched      SessionState = "branched"
	SessionMerged        SessionState = "merged"
	SessionReverted      SessionState = "reverted"
	SessionAbandoned     SessionState = "abandoned"
)

// GitOutcome describes what happened to the session branch at the end of a run.
type GitOutcome string

const (
	GitOutcomeNone          GitOutcome = "none"
	GitOutcomeBranchFailed  GitOutcome = "branch_failed"
	GitOutcomeCommitFailed  GitOutcome = "commit_failed"
	GitOutcomeCommitted     GitOutcome = "committed"
	GitOutcomeMerged        GitOutcome = "merged"
	GitOutcomeMergeFailed   GitOutcome = "merge_failed"
	GitOutcomeCleanupFailed GitOutcome = "merged_cleanup_failed"
	GitOutcomeReverted      GitOutcome = "reverted"
	GitOutcomeRevertFailed  GitOutcome = "revert_failed"
	GitOutcomeAbandoned     GitOutcome = "abandoned"
)

// TaskReport is the per-task line of a run summary.
type TaskReport struct {
	ID            string        `json:"id"`
	Description   string        `json:"description,omitempty"`
	Status        TaskStatus    `json:"status"`
	AgentID       string        `json:"agent_id,omitempty"`
	Duration      time.Duration `json:"duration"`
	Error         string        `json:"error,omitempty"`
	BlockedReason string        `json:"blocked_reason,omitempty"`
}

// RunSummary is the result of one execution engine run.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Iterations int           `json:"iterations"`
	Stats      TaskStats     `json:"stats"`
	Tasks      []TaskReport  `json:"tasks"`
	Branch     string        `json:"branch,omitempty"`
	BaseBranch string        `json:"base_branch,omitempty"`
	GitOutcome GitOutcome    `json:"git_outcome"`
	// GitError carries the failure text of the last git operation, if any.
	GitError string `json:"git_error,omitempty"`
	Success  bool   `json:"success"`
	Stopped  bool   `json:"stopped,omitempty"`
	// Error is set when the run could not proceed past git setup.
	Error string `json:"error,omitempty"`
}

// Package git provides an interface for the git operations a session needs.
package git

import "context"

// BranchOperations defines the interface for git branch operations.
type BranchOperations interface {
	// CurrentBranch returns the name of the current branch.
	CurrentBranch(ctx context.Context) (string, error)
	// CreateAndCheckoutBranch creates and switches to a new branch (git checkout -b).
	CreateAndCheckoutBranch(ctx context.Context, name string) error
	// CheckoutBranch switches to the specified branch.
	CheckoutBranch(ctx context.Context, name string) error
	// BranchExists returns true if the local branch exists.
	BranchExists(ctx context.Context, name string) (bool, error)
	// DeleteBranch deletes a fully merged branch (git branch -d).
	DeleteBranch(ctx context.Context, name string) error
	// ForceDeleteBranch deletes a branch regardless of merge state (git branch -D).
	ForceDeleteBranch(ctx context.Context, name string) error
}

// CommitOperations defines the interface for staging and committing.
type CommitOperations interface {
	// Status returns the output of git status --porcelain.
	Status(ctx context.Context) (string, error)
	// HasChanges returns true if there are uncommitted changes.
	HasChanges(ctx context.Context) (bool, error)
	// Add stages the specified paths for commit.
	Add(ctx context.Context, paths ...string) error
	// AddAll stages every change in the work tree.
	AddAll(ctx context.Context) error
	// Commit creates a new commit with the given message.
	Commit(ctx context.Context, message string) error
	// Stash shelves uncommitted changes, untracked files included.
	Stash(ctx context.Context, message string) error
}

// MergeOperations defines the interface for git merge operations.
type MergeOperations interface {
	// MergeNoFFMessage merges the specified branch with --no-ff and a custom message.
	MergeNoFFMessage(ctx context.Context, branch, message string) error
	// MergeAbort aborts an in-progress merge.
	MergeAbort(ctx context.Context) error
}

// RemoteOperations defines the interface for git remote operations.
type RemoteOperations interface {
	// HasRemote reports whether the named remote is configured.
	HasRemote(ctx context.Context, remote string) (bool, error)
	// Push pushes branch to remote and sets it as upstream.
	Push(ctx context.Context, remote, branch string) error
	// PushDelete deletes branch on remote.
	PushDelete(ctx context.Context, remote, branch string) error
}

// Runner defines the complete interface for git operations.
// Consumers should prefer using focused interfaces when possible.
type Runner interface {
	BranchOperations
	CommitOperations
	MergeOperations
	RemoteOperations
	// Run executes an arbitrary git command with the given arguments.
	// Returns the trimmed output and an error if the command fails.
	Run(ctx context.Context, args ...string) (string, error)
}

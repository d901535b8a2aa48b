package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/taskengine/pkg/executil"
)

// ExecRunner implements Runner by shelling out to the git binary.
type ExecRunner struct {
	repoPath string
	binary   string
	exec     executil.Executor
}

// RunnerOption configures an ExecRunner.
type RunnerOption func(*ExecRunner)

// WithBinary sets the git executable. Defaults to "git".
func WithBinary(path string) RunnerOption {
	return func(r *ExecRunner) {
		if path != "" {
			r.binary = path
		}
	}
}

// WithExecutor replaces the process executor, typically with a recording
// fake in tests.
func WithExecutor(e executil.Executor) RunnerOption {
	return func(r *ExecRunner) {
		if e != nil {
			r.exec = e
		}
	}
}

// NewRunner creates a new git runner for the repository at the given path.
func NewRunner(repoPath string, opts ...RunnerOption) *ExecRunner {
	r := &ExecRunner{
		repoPath: repoPath,
		binary:   "git",
		exec:     &executil.RealExecutor{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RepoPath returns the repository the runner operates on.
func (r *ExecRunner) RepoPath() string {
	return r.repoPath
}

// run executes a git command and returns its trimmed output.
func (r *ExecRunner) run(ctx context.Context, args ...string) (string, error) {
	out, err := r.exec.RunDir(ctx, r.repoPath, r.binary, args...)
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// runSilent executes a git command and ignores output.
func (r *ExecRunner) runSilent(ctx context.Context, args ...string) error {
	_, err := r.run(ctx, args...)
	return err
}

// Run executes an arbitrary git command with the given arguments.
func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.run(ctx, args...)
}

// CurrentBranch returns the name of the current branch.
func (r *ExecRunner) CurrentBranch(ctx context.Context) (string, error) {
	return r.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// CreateAndCheckoutBranch creates and switches to a new branch (git checkout -b).
func (r *ExecRunner) CreateAndCheckoutBranch(ctx context.Context, name string) error {
	return r.runSilent(ctx, "checkout", "-b", name)
}

// CheckoutBranch switches to the specified branch.
func (r *ExecRunner) CheckoutBranch(ctx context.Context, name string) error {
	return r.runSilent(ctx, "checkout", name)
}

// BranchExists returns true if the branch exists.
func (r *ExecRunner) BranchExists(ctx context.Context, name string) (bool, error) {
	out, err := r.run(ctx, "branch", "--list", name)
	if err != nil {
		return false, fmt.Errorf("check branch exists: %w", err)
	}
	return out != "", nil
}

// DeleteBranch deletes a fully merged branch.
func (r *ExecRunner) DeleteBranch(ctx context.Context, name string) error {
	return r.runSilent(ctx, "branch", "-d", name)
}

// ForceDeleteBranch deletes the specified branch even if unmerged.
func (r *ExecRunner) ForceDeleteBranch(ctx context.Context, name string) error {
	return r.runSilent(ctx, "branch", "-D", name)
}

// Status returns the output of git status --porcelain.
func (r *ExecRunner) Status(ctx context.Context) (string, error) {
	return r.run(ctx, "status", "--porcelain")
}

// HasChanges returns true if there are uncommitted changes.
func (r *ExecRunner) HasChanges(ctx context.Context) (bool, error) {
	status, err := r.Status(ctx)
	if err != nil {
		return false, err
	}
	return len(status) > 0, nil
}

// Add stages the specified files for commit.
func (r *ExecRunner) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	return r.runSilent(ctx, args...)
}

// AddAll stages every change, deletions and untracked files included.
func (r *ExecRunner) AddAll(ctx context.Context) error {
	return r.runSilent(ctx, "add", "-A")
}

// Commit creates a new commit with the given message.
func (r *ExecRunner) Commit(ctx context.Context, message string) error {
	return r.runSilent(ctx, "commit", "-m", message)
}

// Stash shelves uncommitted changes including untracked files.
func (r *ExecRunner) Stash(ctx context.Context, message string) error {
	return r.runSilent(ctx, "stash", "push", "--include-untracked", "-m", message)
}

// MergeNoFFMessage merges the specified branch with --no-ff and a custom message.
func (r *ExecRunner) MergeNoFFMessage(ctx context.Context, branch, message string) error {
	return r.runSilent(ctx, "merge", "--no-ff", "-m", message, branch)
}

// MergeAbort aborts an in-progress merge.
func (r *ExecRunner) MergeAbort(ctx context.Context) error {
	return r.runSilent(ctx, "merge", "--abort")
}

// HasRemote reports whether the named remote is configured.
func (r *ExecRunner) HasRemote(ctx context.Context, remote string) (bool, error) {
	out, err := r.run(ctx, "remote")
	if err != nil {
		return false, err
	}
	for _, name := range strings.Split(out, "\n") {
		if strings.TrimSpace(name) == remote {
			return true, nil
		}
	}
	return false, nil
}

// Push pushes branch to remote and sets upstream tracking.
func (r *ExecRunner) Push(ctx context.Context, remote, branch string) error {
	return r.runSilent(ctx, "push", "-u", remote, branch)
}

// PushDelete removes branch from remote.
func (r *ExecRunner) PushDelete(ctx context.Context, remote, branch string) error {
	return r.runSilent(ctx, "push", remote, "--delete", branch)
}

var _ Runner = (*ExecRunner)(nil)

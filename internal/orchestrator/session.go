package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/taskengine/internal/git"
	"github.com/ShayCichocki/taskengine/internal/logging"
	"github.com/ShayCichocki/taskengine/pkg/models"
)

// BranchPrefix is prepended to the timestamp of every session branch.
const BranchPrefix = "task_execution_"

// branchTimeLayout renders YYYYMMDD_HHMMSS.
const branchTimeLayout = "20060102_150405"

// DefaultRemote is the remote used for push and remote cleanup.
const DefaultRemote = "origin"

// SessionOption configures a GitSession.
type SessionOption func(*GitSession)

// WithBaseBranch fixes the branch the session forks from and merges back
// into. When unset, the branch checked out at creation time is used.
func WithBaseBranch(name string) SessionOption {
	return func(s *GitSession) { s.baseBranch = name }
}

// WithRemote sets the remote for push and remote branch deletion.
func WithRemote(name string) SessionOption {
	return func(s *GitSession) {
		if name != "" {
			s.remote = name
		}
	}
}

// WithSessionClock sets the clock used to name the session branch.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *GitSession) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l zerolog.Logger) SessionOption {
	return func(s *GitSession) { s.log = l }
}

// GitSession wraps a run in a disposable branch:
// uninitialized -> branched -> merged | reverted | abandoned.
//
// Every operation reports success as a boolean. Git failures are logged and
// kept in LastError; nothing is returned as an error or panics.
type GitSession struct {
	mu  sync.Mutex
	git git.Runner
	log zerolog.Logger
	now func() time.Time

	baseBranch  string
	remote      string
	branchName  string
	state       models.SessionState
	changesMade bool
	pushed      bool
	cleanedUp   bool
	lastErr     string
}

// NewGitSession creates an uninitialized session on top of runner.
func NewGitSession(runner git.Runner, opts ...SessionOption) *GitSession {
	s := &GitSession{
		git:    runner,
		log:    logging.Component("git-session"),
		now:    time.Now,
		remote: DefaultRemote,
		state:  models.SessionUninitialized,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	errNoBranch  = errors.New("no session branch")
	errNotMerged = errors.New("session branch not merged")
)

func (s *GitSession) failLocked(op string, err error) bool {
	s.lastErr = fmt.Sprintf("%s: %v", op, err)
	s.log.Error().Err(err).Str("op", op).Str("branch", s.branchName).Msg("git operation failed")
	return false
}

// CreateSessionBranch names a new branch after the current time, creates it
// and checks it out. On failure the session stays uninitialized.
func (s *GitSession) CreateSessionBranch(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.SessionUninitialized {
		return s.failLocked("create branch", fmt.Errorf("session already %s", s.state))
	}

	base := s.baseBranch
	if base == "" {
		current, err := s.git.CurrentBranch(ctx)
		if err != nil {
			return s.failLocked("create branch", fmt.Errorf("resolve base branch: %w", err))
		}
		base = current
	}

	name := BranchPrefix + s.now().Format(branchTimeLayout)
	if err := s.git.CreateAndCheckoutBranch(ctx, name); err != nil {
		return s.failLocked("create branch", err)
	}

	s.baseBranch = base
	s.branchName = name
	s.state = models.SessionBranched
	s.log.Info().Str("branch", name).Str("base", base).Msg("session branch created")
	return true
}

// CommitChanges stages everything and commits it on the session branch.
// A clean work tree is not an error: nothing is committed and true is
// returned.
func (s *GitSession) CommitChanges(ctx context.Context, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.SessionBranched {
		return s.failLocked("commit", errNoBranch)
	}

	dirty, err := s.git.HasChanges(ctx)
	if err != nil {
		return s.failLocked("commit", err)
	}
	if !dirty {
		s.log.Info().Str("branch", s.branchName).Msg("nothing to commit")
		return true
	}
	if err := s.git.AddAll(ctx); err != nil {
		return s.failLocked("commit", err)
	}
	if err := s.git.Commit(ctx, message); err != nil {
		return s.failLocked("commit", err)
	}
	s.changesMade = true
	s.log.Info().Str("branch", s.branchName).Msg("changes committed")
	return true
}

// PushBranch pushes the session branch upstream.
func (s *GitSession) PushBranch(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.branchName == "" {
		return s.failLocked("push", errNoBranch)
	}
	if err := s.git.Push(ctx, s.remote, s.branchName); err != nil {
		return s.failLocked("push", err)
	}
	s.pushed = true
	s.log.Info().Str("branch", s.branchName).Str("remote", s.remote).Msg("session branch pushed")
	return true
}

// MergeToBase checks out the base branch and merges the session branch into
// it with a merge commit. A conflicting merge is aborted.
func (s *GitSession) MergeToBase(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.SessionBranched {
		return s.failLocked("merge", errNoBranch)
	}
	if err := s.git.CheckoutBranch(ctx, s.baseBranch); err != nil {
		return s.failLocked("merge", err)
	}
	msg := fmt.Sprintf("Merge %s into %s", s.branchName, s.baseBranch)
	if err := s.git.MergeNoFFMessage(ctx, s.branchName, msg); err != nil {
		if abortErr := s.git.MergeAbort(ctx); abortErr != nil {
			s.log.Warn().Err(abortErr).Msg("merge abort failed")
		}
		return s.failLocked("merge", err)
	}
	s.state = models.SessionMerged
	s.log.Info().Str("branch", s.branchName).Str("base", s.baseBranch).Msg("session branch merged")
	return true
}

// CleanupBranch deletes the merged session branch locally and, if it was
// pushed, on the remote. Both deletions are attempted; the result is true
// only if both succeed.
func (s *GitSession) CleanupBranch(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.branchName == "" {
		return s.failLocked("cleanup", errNoBranch)
	}
	if s.state != models.SessionMerged {
		return s.failLocked("cleanup", errNotMerged)
	}
	if s.cleanedUp {
		return true
	}

	ok := true
	if err := s.git.DeleteBranch(ctx, s.branchName); err != nil {
		ok = s.failLocked("cleanup", err)
	}
	if s.pushed {
		if err := s.git.PushDelete(ctx, s.remote, s.branchName); err != nil {
			ok = s.failLocked("cleanup remote", err)
		}
	}
	if ok {
		s.cleanedUp = true
		s.log.Info().Str("branch", s.branchName).Msg("session branch cleaned up")
	}
	return ok
}

// Revert discards the session: uncommitted changes are stashed so they can
// still be recovered, the base branch is checked out, and the session branch
// is force-deleted.
func (s *GitSession) Revert(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.SessionBranched {
		return s.failLocked("revert", errNoBranch)
	}

	dirty, err := s.git.HasChanges(ctx)
	if err != nil {
		return s.failLocked("revert", err)
	}
	if dirty {
		if err := s.git.Stash(ctx, "taskengine: discarded "+s.branchName); err != nil {
			return s.failLocked("revert", err)
		}
		s.log.Info().Str("branch", s.branchName).Msg("uncommitted changes stashed")
	}
	if err := s.git.CheckoutBranch(ctx, s.baseBranch); err != nil {
		return s.failLocked("revert", err)
	}
	if err := s.git.ForceDeleteBranch(ctx, s.branchName); err != nil {
		return s.failLocked("revert", err)
	}
	s.state = models.SessionReverted
	s.log.Info().Str("branch", s.branchName).Str("base", s.baseBranch).Msg("session reverted")
	return true
}

// Abandon ends the session leaving the branch and its changes in place.
func (s *GitSession) Abandon() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.SessionBranched {
		return s.failLocked("abandon", errNoBranch)
	}
	s.state = models.SessionAbandoned
	s.log.Info().Str("branch", s.branchName).Msg("session branch left in place")
	return true
}

// State returns the lifecycle state.
func (s *GitSession) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BranchName returns the session branch, or "" before creation.
func (s *GitSession) BranchName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.branchName
}

// BaseBranch returns the base branch. Before creation it is only known when
// configured explicitly.
func (s *GitSession) BaseBranch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseBranch
}

// ChangesMade reports whether a commit was made on the session branch.
func (s *GitSession) ChangesMade() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changesMade
}

// Pushed reports whether the session branch was pushed.
func (s *GitSession) Pushed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushed
}

// LastError returns the most recent failure, or "".
func (s *GitSession) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

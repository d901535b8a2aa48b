package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/taskengine/internal/agent"
	"github.com/ShayCichocki/taskengine/internal/logging"
	"github.com/ShayCichocki/taskengine/internal/task"
	"github.com/ShayCichocki/taskengine/pkg/models"
)

// ReasonIterationLimit is the block reason for tasks left when the
// iteration cap is reached.
const ReasonIterationLimit = "iteration limit reached"

// Engine runs one task graph inside a git session.
type Engine struct {
	tasks   *task.Manager
	agents  *agent.Manager
	session *GitSession
	opts    engineOptions
	log     zerolog.Logger
}

// New creates an Engine from required config and functional options.
func New(req RequiredConfig, opts ...Option) (*Engine, error) {
	if req.Tasks == nil {
		return nil, errors.New("task manager is required")
	}
	if req.Agents == nil {
		return nil, errors.New("agent manager is required")
	}
	if req.Session == nil {
		return nil, errors.New("git session is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.Component("engine")
	if o.logger != nil {
		log = *o.logger
	}

	return &Engine{
		tasks:   req.Tasks,
		agents:  req.Agents,
		session: req.Session,
		opts:    o,
		log:     log,
	}, nil
}

// Run executes the run and returns its summary. Task failures never abort
// the run; only a failure to create the session branch, a deadlock, a stop
// request or context cancellation end scheduling early.
func (e *Engine) Run(ctx context.Context) *models.RunSummary {
	runID := e.opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logging.WithRunID(ctx, runID)
	log := e.log.With().Str("run", runID).Logger()

	start := e.opts.now()
	s := &models.RunSummary{
		RunID:      runID,
		StartedAt:  start,
		GitOutcome: models.GitOutcomeNone,
	}
	defer func() {
		s.Duration = e.opts.now().Sub(start)
		s.Stats = e.tasks.Stats()
		s.Tasks = e.reports()
		e.opts.metrics.RunFinished(s)
		e.emit(Event{Type: EventRunDone, RunID: runID, Duration: s.Duration, Summary: s})
		log.Info().
			Bool("success", s.Success).
			Int("iterations", s.Iterations).
			Str("git_outcome", string(s.GitOutcome)).
			Dur("duration", s.Duration).
			Msg("run finished")
	}()

	if err := e.tasks.Validate(); err != nil {
		log.Warn().Err(err).Msg("task graph has integrity problems")
	}

	if !e.session.CreateSessionBranch(ctx) {
		s.GitOutcome = models.GitOutcomeBranchFailed
		s.GitError = e.session.LastError()
		s.Error = "git setup failed: " + s.GitError
		return s
	}
	s.Branch = e.session.BranchName()
	s.BaseBranch = e.session.BaseBranch()

	log.Info().
		Int("tasks", e.tasks.Len()).
		Int("agents", e.agents.Len()).
		Bool("parallel", e.opts.parallel).
		Str("branch", s.Branch).
		Msg("run started")
	e.emit(Event{Type: EventRunStarted, RunID: runID, Message: s.Branch})

	e.schedule(ctx, s, log)
	e.finish(ctx, s, log)
	return s
}

func (e *Engine) schedule(ctx context.Context, s *models.RunSummary, log zerolog.Logger) {
	for len(e.tasks.Unfinished()) > 0 {
		if e.stopRequested(ctx) {
			s.Stopped = true
			return
		}
		if e.opts.pause != nil {
			if err := e.opts.pause.WaitIfPaused(ctx); err != nil {
				log.Info().Err(err).Msg("scheduling interrupted")
				s.Stopped = true
				return
			}
		}
		if e.opts.maxIterations > 0 && s.Iterations >= e.opts.maxIterations {
			e.blockRemaining(s.RunID, ReasonIterationLimit)
			s.Error = fmt.Sprintf("iteration limit %d reached", e.opts.maxIterations)
			return
		}

		ready := e.tasks.Ready()
		if len(ready) == 0 {
			if e.tasks.InProgressCount() == 0 {
				e.deadlock(s.RunID, log)
				return
			}
			e.sleep(ctx)
			continue
		}

		s.Iterations++
		log.Debug().Int("pass", s.Iterations).Int("ready", len(ready)).Msg("scheduling pass")

		var ran int
		if e.opts.parallel {
			ran = e.runParallel(ctx, s.RunID, ready)
		} else {
			ran = e.runSequential(ctx, s.RunID, ready)
		}
		if ran > 0 || e.stopRequested(ctx) {
			continue
		}
		// Nothing ready could be assigned. Out-of-band work may still free
		// an agent; otherwise no agent will ever take these tasks.
		if e.tasks.InProgressCount() > 0 {
			e.sleep(ctx)
			continue
		}
		e.deadlock(s.RunID, log)
		return
	}
}

func (e *Engine) runSequential(ctx context.Context, runID string, ready []task.Task) int {
	ran := 0
	for i := range ready {
		if e.stopRequested(ctx) {
			break
		}
		t := &ready[i]
		agentID, ok := e.assign(runID, t)
		if !ok {
			continue
		}
		e.execute(ctx, runID, t, agentID)
		ran++
	}
	return ran
}

// runParallel assigns every ready task it can in order, then executes the
// batch concurrently. Readiness is only recomputed on the next pass.
func (e *Engine) runParallel(ctx context.Context, runID string, ready []task.Task) int {
	type assignment struct {
		task    *task.Task
		agentID string
	}
	var batch []assignment
	for i := range ready {
		if e.stopRequested(ctx) {
			break
		}
		t := &ready[i]
		if agentID, ok := e.assign(runID, t); ok {
			batch = append(batch, assignment{task: t, agentID: agentID})
		}
	}

	var g errgroup.Group
	for _, a := range batch {
		g.Go(func() error {
			e.execute(ctx, runID, a.task, a.agentID)
			return nil
		})
	}
	_ = g.Wait()
	return len(batch)
}

// assign reserves an agent and moves the task to in-progress.
func (e *Engine) assign(runID string, t *task.Task) (string, bool) {
	agentID, ok := e.agents.Assign(t)
	if !ok {
		return "", false
	}
	if !e.tasks.Start(t.ID, agentID) {
		e.agents.Release(agentID, t.ID)
		return "", false
	}
	e.emit(Event{Type: EventTaskQueued, RunID: runID, TaskID: t.ID, AgentID: agentID})
	return agentID, true
}

// execute runs an assigned task and frees the agent regardless of outcome.
func (e *Engine) execute(ctx context.Context, runID string, t *task.Task, agentID string) {
	e.emit(Event{Type: EventTaskStarted, RunID: runID, TaskID: t.ID, AgentID: agentID, Message: t.Description})
	e.opts.metrics.TaskStarted()

	ok := e.tasks.ExecuteTask(ctx, t.ID)
	e.agents.Release(agentID, t.ID)

	done, _ := e.tasks.Get(t.ID)
	e.opts.metrics.TaskFinished(done.Status, done.Duration())
	ev := Event{RunID: runID, TaskID: t.ID, AgentID: agentID, Duration: done.Duration()}
	if ok {
		ev.Type = EventTaskCompleted
		if done.Result != nil {
			ev.Message = done.Result.Summary()
		}
	} else {
		ev.Type = EventTaskFailed
		ev.Error = done.Error
	}
	e.emit(ev)
}

func (e *Engine) deadlock(runID string, log zerolog.Logger) {
	blocked := e.tasks.BlockUnfinished()
	if len(blocked) == 0 {
		return
	}
	log.Warn().Strs("tasks", blocked).Msg("no remaining task can make progress")
	e.opts.metrics.TasksBlocked(len(blocked))
	for _, id := range blocked {
		t, _ := e.tasks.Get(id)
		e.emit(Event{Type: EventTaskBlocked, RunID: runID, TaskID: id, Message: t.BlockedReason})
	}
}

func (e *Engine) blockRemaining(runID, reason string) {
	var n int
	for _, id := range e.tasks.Unfinished() {
		if e.tasks.Block(id, reason) {
			n++
			e.emit(Event{Type: EventTaskBlocked, RunID: runID, TaskID: id, Message: reason})
		}
	}
	e.opts.metrics.TasksBlocked(n)
}

// finish applies the merge/revert policy once scheduling has ended. Git
// work runs even if ctx was cancelled so the repository is never left
// half-way through a transition.
//
// Work is kept when nothing failed, nothing was stopped and every task left
// is either completed or blocked: it is committed and, with auto-merge,
// merged. The run only counts as a success if no task was blocked.
func (e *Engine) finish(ctx context.Context, s *models.RunSummary, log zerolog.Logger) {
	ctx = context.WithoutCancel(ctx)
	stats := e.tasks.Stats()
	total := stats.Total()
	blocked := stats[models.TaskStatusBlocked]
	keep := !s.Stopped && stats[models.TaskStatusFailed] == 0 &&
		stats[models.TaskStatusNotStarted] == 0 && stats[models.TaskStatusInProgress] == 0

	gitFailed := func(outcome models.GitOutcome) {
		s.GitOutcome = outcome
		s.GitError = e.session.LastError()
	}

	if keep {
		if blocked > 0 {
			log.Info().
				Int("completed", stats[models.TaskStatusCompleted]).
				Int("blocked", blocked).
				Msg("keeping completed work; blocked tasks remain")
			if s.Error == "" {
				s.Error = fmt.Sprintf("%d task(s) blocked", blocked)
			}
		}
		e.keepWork(ctx, s, total, gitFailed)
		if blocked > 0 {
			s.Success = false
		}
		return
	}

	log.Info().
		Int("completed", stats[models.TaskStatusCompleted]).
		Int("failed", stats[models.TaskStatusFailed]).
		Int("blocked", blocked).
		Bool("stopped", s.Stopped).
		Msg("run did not complete every task")

	if e.opts.autoRevert {
		if e.session.Revert(ctx) {
			s.GitOutcome = models.GitOutcomeReverted
			return
		}
		gitFailed(models.GitOutcomeRevertFailed)
		// Git could not discard the changes, so undo what the commands can.
		if failed := e.tasks.RollbackCompleted(ctx); len(failed) > 0 {
			log.Error().Strs("tasks", failed).Msg("rollback incomplete after failed revert")
		}
		return
	}

	// Leave the branch and its uncommitted changes for inspection.
	s.GitOutcome = models.GitOutcomeAbandoned
	e.session.Abandon()
}

// keepWork commits the session branch, pushes it if configured and merges
// it when auto-merge is on.
func (e *Engine) keepWork(ctx context.Context, s *models.RunSummary, total int, gitFailed func(models.GitOutcome)) {
	if !e.session.CommitChanges(ctx, e.commitMessage(s.RunID, total)) {
		gitFailed(models.GitOutcomeCommitFailed)
		e.session.Abandon()
		return
	}
	s.GitOutcome = models.GitOutcomeCommitted
	if e.opts.push && !e.session.PushBranch(ctx) {
		s.GitError = e.session.LastError()
	}
	if !e.opts.autoMerge {
		e.session.Abandon()
		s.Success = true
		return
	}

	e.emit(Event{Type: EventMergeStarted, RunID: s.RunID, Message: s.Branch})
	if !e.session.MergeToBase(ctx) {
		gitFailed(models.GitOutcomeMergeFailed)
		e.emit(Event{Type: EventMergeCompleted, RunID: s.RunID, Error: s.GitError})
		e.session.Abandon()
		return
	}
	s.GitOutcome = models.GitOutcomeMerged
	s.Success = true
	if !e.session.CleanupBranch(ctx) {
		gitFailed(models.GitOutcomeCleanupFailed)
	}
	e.emit(Event{Type: EventMergeCompleted, RunID: s.RunID, Message: s.BaseBranch})
}

func (e *Engine) commitMessage(runID string, total int) string {
	if e.opts.commitMessage != "" {
		return e.opts.commitMessage
	}
	return fmt.Sprintf("taskengine: run %s (%d tasks)", runID, total)
}

func (e *Engine) reports() []models.TaskReport {
	tasks := e.tasks.Tasks()
	out := make([]models.TaskReport, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, models.TaskReport{
			ID:            t.ID,
			Description:   t.Description,
			Status:        t.Status,
			AgentID:       t.AgentID,
			Duration:      t.Duration(),
			Error:         t.Error,
			BlockedReason: t.BlockedReason,
		})
	}
	return out
}

func (e *Engine) stopRequested(ctx context.Context) bool {
	return ctx.Err() != nil || (e.opts.pause != nil && e.opts.pause.IsStopped())
}

func (e *Engine) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(e.opts.pollInterval):
	}
}

func (e *Engine) emit(ev Event) {
	e.opts.emitter.Emit(ev)
}

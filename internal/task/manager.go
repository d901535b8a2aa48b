package task

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/taskengine/internal/command"
	"github.com/ShayCichocki/taskengine/internal/logging"
	"github.com/ShayCichocki/taskengine/pkg/models"
)

// Block reasons recorded by BlockUnfinished.
const (
	ReasonCycle           = "dependency cycle"
	ReasonNoEligibleAgent = "no eligible agent"
)

// Manager owns the task collection and every status transition.
// It is safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	// order holds task IDs in insertion order; iteration follows it.
	order []string
	now   func() time.Time
	log   zerolog.Logger
}

// NewManager creates an empty task manager.
func NewManager() *Manager {
	return &Manager{
		tasks: make(map[string]*Task),
		now:   time.Now,
		log:   logging.Component("task-manager"),
	}
}

// Add registers a task keyed by its ID. An existing ID is replaced (last
// write wins) and the replacement keeps the original position in iteration
// order.
func (m *Manager) Add(t *Task) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.Status == "" {
		t.Status = models.TaskStatusNotStarted
	}
	if _, exists := m.tasks[t.ID]; exists {
		m.log.Warn().Str("task", t.ID).Msg("replacing task with duplicate id")
	} else {
		m.order = append(m.order, t.ID)
	}
	m.tasks[t.ID] = t
	m.log.Debug().Str("task", t.ID).Strs("depends_on", t.DependsOn).Msg("task added")
}

// Get returns a snapshot of the task with the given ID.
func (m *Manager) Get(id string) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return t.snapshot(), true
}

// Len returns the number of tasks.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Tasks returns snapshots of every task in iteration order.
func (m *Manager) Tasks() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id].snapshot())
	}
	return out
}

// Ready returns, in iteration order, every not-started task whose
// dependencies all exist and are completed.
func (m *Manager) Ready() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ready []Task
	for _, id := range m.order {
		t := m.tasks[id]
		if t.Status == models.TaskStatusNotStarted && m.depsCompletedLocked(t) {
			ready = append(ready, t.snapshot())
		}
	}
	return ready
}

func (m *Manager) depsCompletedLocked(t *Task) bool {
	for _, depID := range t.DependsOn {
		dep, ok := m.tasks[depID]
		if !ok || dep.Status != models.TaskStatusCompleted {
			return false
		}
	}
	return true
}

// Unfinished returns the IDs of tasks not yet in a terminal status.
func (m *Manager) Unfinished() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, id := range m.order {
		if !m.tasks[id].Status.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

// InProgressCount returns the number of in-progress tasks.
func (m *Manager) InProgressCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.tasks {
		if t.Status == models.TaskStatusInProgress {
			n++
		}
	}
	return n
}

// Start moves a not-started task to in-progress and records the agent and
// start time. It returns false if the ID is unknown or the task has already
// left the not-started status.
func (m *Manager) Start(id, agentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		m.log.Error().Str("task", id).Msg("start: unknown task")
		return false
	}
	if t.Status != models.TaskStatusNotStarted {
		m.log.Warn().Str("task", id).Str("status", string(t.Status)).Msg("start: task not in not_started status")
		return false
	}
	t.Status = models.TaskStatusInProgress
	t.AgentID = agentID
	t.StartedAt = m.now()
	m.log.Info().Str("task", id).Str("agent", agentID).Msg("task started")
	return true
}

// ExecuteTask runs the task's command and sets the task to completed or
// failed from the outcome. A not-started task is moved to in-progress first.
// It returns false if the ID is unknown, the task already finished, or the
// command failed.
//
// The command runs without the manager lock held so other tasks can be
// inspected and executed meanwhile. Task.Execute is not used here because
// it writes the task's fields unguarded; the manager performs the same
// steps with the lock held around each write.
func (m *Manager) ExecuteTask(ctx context.Context, id string) bool {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		m.log.Error().Str("task", id).Msg("execute: unknown task")
		return false
	}
	switch t.Status {
	case models.TaskStatusNotStarted, models.TaskStatusInProgress:
	default:
		m.mu.Unlock()
		m.log.Warn().Str("task", id).Str("status", string(t.Status)).Msg("execute: task already finished")
		return false
	}
	if t.Status == models.TaskStatusNotStarted || t.StartedAt.IsZero() {
		t.begin(m.now())
	}
	t.Status = models.TaskStatusInProgress
	cmd := t.Command
	m.mu.Unlock()

	ok = cmd != nil && cmd.Execute(logging.WithTaskID(ctx, id))

	m.mu.Lock()
	defer m.mu.Unlock()
	t.mirror(m.now())
	if ok {
		t.Status = models.TaskStatusCompleted
		m.log.Info().Ctx(ctx).Str("task", id).Dur("duration", t.Duration()).Msg("task completed")
	} else {
		t.Status = models.TaskStatusFailed
		m.log.Error().Ctx(ctx).Str("task", id).Str("error", t.Error).Msg("task failed")
	}
	return ok
}

// Complete marks an unfinished task completed with the given result. It is
// for callers that executed the work out of band.
func (m *Manager) Complete(id string, result command.Result) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.finishableLocked(id, "complete")
	if !ok {
		return false
	}
	if result == nil {
		result = command.EmptyResult{}
	}
	m.stampLocked(t)
	t.Status = models.TaskStatusCompleted
	t.Result, t.Error = result, ""
	m.log.Info().Str("task", id).Msg("task completed out of band")
	return true
}

// Fail marks an unfinished task failed with the given message.
func (m *Manager) Fail(id, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.finishableLocked(id, "fail")
	if !ok {
		return false
	}
	if msg == "" {
		msg = "task failed"
	}
	m.stampLocked(t)
	t.Status = models.TaskStatusFailed
	t.Result, t.Error = nil, msg
	m.log.Error().Str("task", id).Str("error", msg).Msg("task failed out of band")
	return true
}

// Block marks an unfinished task blocked.
func (m *Manager) Block(id, reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.finishableLocked(id, "block")
	if !ok {
		return false
	}
	m.blockLocked(t, reason)
	return true
}

func (m *Manager) finishableLocked(id, op string) (*Task, bool) {
	t, ok := m.tasks[id]
	if !ok {
		m.log.Error().Str("task", id).Msgf("%s: unknown task", op)
		return nil, false
	}
	if t.Status.Terminal() {
		m.log.Warn().Str("task", id).Str("status", string(t.Status)).Msgf("%s: task already finished", op)
		return nil, false
	}
	return t, true
}

func (m *Manager) stampLocked(t *Task) {
	now := m.now()
	if t.StartedAt.IsZero() {
		t.StartedAt = now
	}
	t.EndedAt = now
}

func (m *Manager) blockLocked(t *Task, reason string) {
	t.Status = models.TaskStatusBlocked
	t.BlockedReason = reason
	t.EndedAt = m.now()
	m.log.Warn().Str("task", t.ID).Str("reason", reason).Msg("task blocked")
}

// BlockUnfinished marks every not-started task blocked and returns their IDs
// in iteration order. It is the deadlock step of a run: the caller has
// established that no further progress is possible, so dependents of
// blocked tasks are blocked in the same call.
//
// Each task gets the most specific reason available: membership in a
// dependency cycle, a missing or failed dependency, a dependency that is
// itself blocked, or (when every dependency completed) the lack of an agent
// able to take it.
func (m *Manager) BlockUnfinished() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	inCycle := m.cycleMembersLocked(func(t *Task) bool {
		return t.Status == models.TaskStatusNotStarted
	})

	reasons := make(map[string]string)
	var blocked []string
	for _, id := range m.order {
		t := m.tasks[id]
		if t.Status != models.TaskStatusNotStarted {
			continue
		}
		reasons[id] = m.blockReasonLocked(t, inCycle)
		blocked = append(blocked, id)
	}
	for _, id := range blocked {
		m.blockLocked(m.tasks[id], reasons[id])
	}
	return blocked
}

func (m *Manager) blockReasonLocked(t *Task, inCycle map[string]bool) string {
	if inCycle[t.ID] {
		return ReasonCycle
	}
	var pending string
	for _, depID := range t.DependsOn {
		dep, ok := m.tasks[depID]
		switch {
		case !ok:
			return fmt.Sprintf("missing dependency %s", depID)
		case dep.Status == models.TaskStatusFailed:
			return fmt.Sprintf("dependency %s failed", depID)
		case dep.Status != models.TaskStatusCompleted && pending == "":
			pending = depID
		}
	}
	if pending != "" {
		return fmt.Sprintf("dependency %s blocked", pending)
	}
	return ReasonNoEligibleAgent
}

// Stats returns a count per status, always including every status.
func (m *Manager) Stats() models.TaskStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := models.NewTaskStats()
	for _, t := range m.tasks {
		stats[t.Status]++
	}
	return stats
}

// RollbackCompleted asks the command of every completed task to undo its
// side effects, most recently finished first. Task statuses are left as
// they are. It returns the IDs whose rollback reported failure.
func (m *Manager) RollbackCompleted(ctx context.Context) []string {
	type done struct {
		id    string
		cmd   command.Command
		ended time.Time
	}
	m.mu.RLock()
	var finished []done
	for _, id := range m.order {
		if t := m.tasks[id]; t.Status == models.TaskStatusCompleted && t.Command != nil {
			finished = append(finished, done{id: id, cmd: t.Command, ended: t.EndedAt})
		}
	}
	m.mu.RUnlock()

	slices.SortStableFunc(finished, func(a, b done) int { return b.ended.Compare(a.ended) })

	var failed []string
	for _, d := range finished {
		if !d.cmd.Rollback(logging.WithTaskID(ctx, d.id)) {
			failed = append(failed, d.id)
			m.log.Error().Str("task", d.id).Msg("rollback failed")
			continue
		}
		m.log.Info().Str("task", d.id).Msg("task rolled back")
	}
	return failed
}

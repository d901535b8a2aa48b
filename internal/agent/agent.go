// Package agent assigns ready tasks to capability-matched agents while
// keeping every agent within its capacity.
package agent

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/taskengine/internal/logging"
	"github.com/ShayCichocki/taskengine/pkg/models"
)

// Common errors for agent registration.
var (
	// ErrAgentNotFound indicates the requested agent does not exist.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrInvalidAgent indicates a descriptor that cannot be registered.
	ErrInvalidAgent = errors.New("invalid agent")
)

// EventType represents the kind of assignment event.
type EventType string

const (
	// EventAssigned is emitted when a task is assigned to an agent.
	EventAssigned EventType = "assigned"
	// EventReleased is emitted when an agent's slot for a task is freed.
	EventReleased EventType = "released"
)

// Event describes a capacity change on an agent.
type Event struct {
	Type    EventType
	AgentID string
	TaskID  string
	// Load is the number of tasks held by the agent after the change.
	Load      int
	Timestamp time.Time
}

// EventHandler is a function that handles assignment events.
type EventHandler func(Event)

// Assignable is the part of a task the manager needs to pick an agent.
type Assignable interface {
	TaskID() string
	RequiredCapabilities() []string
}

type slot struct {
	agent models.Agent
	tasks map[string]struct{}
}

func (s *slot) free() int { return s.agent.MaxConcurrent - len(s.tasks) }

// Manager owns the agent pool and the per-agent capacity counters.
type Manager struct {
	mu       sync.Mutex
	slots    map[string]*slot
	order    []string
	handlers []EventHandler
	log      zerolog.Logger
}

// NewManager creates an empty agent manager.
func NewManager() *Manager {
	return &Manager{
		slots: make(map[string]*slot),
		log:   logging.Component("agent-manager"),
	}
}

// OnEvent registers a handler called for every assignment and release.
// Handlers run with the manager lock held and must not call back into it.
func (m *Manager) OnEvent(handler EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

func (m *Manager) emitLocked(e Event) {
	for _, h := range m.handlers {
		h(e)
	}
}

// Register adds an agent to the pool. Re-registering an ID replaces the
// descriptor but keeps its registration position and current assignments.
func (m *Manager) Register(a models.Agent) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidAgent)
	}
	if a.MaxConcurrent < 1 {
		return fmt.Errorf("%w: agent %s: max_concurrent must be >= 1, got %d", ErrInvalidAgent, a.ID, a.MaxConcurrent)
	}
	a.Capabilities = append([]string(nil), a.Capabilities...)

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.slots[a.ID]; ok {
		s.agent = a
		m.log.Warn().Str("agent", a.ID).Msg("replacing agent descriptor")
		return nil
	}
	m.slots[a.ID] = &slot{agent: a, tasks: make(map[string]struct{})}
	m.order = append(m.order, a.ID)
	m.log.Debug().Str("agent", a.ID).Strs("capabilities", a.Capabilities).Int("capacity", a.MaxConcurrent).Msg("agent registered")
	return nil
}

// Assign picks an eligible agent for the task and reserves one unit of its
// capacity. An agent is eligible when it offers one of the required
// capabilities (or none are required) and has free capacity. Among eligible
// agents the one with the most free capacity wins; ties go to the earliest
// registered. It returns false when no agent is eligible.
func (m *Manager) Assign(t Assignable) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	required := t.RequiredCapabilities()
	var best *slot
	for _, id := range m.order {
		s := m.slots[id]
		if s.free() <= 0 || !s.agent.HasAnyCapability(required) {
			continue
		}
		if best == nil || s.free() > best.free() {
			best = s
		}
	}
	if best == nil {
		m.log.Debug().Str("task", t.TaskID()).Strs("requires", required).Msg("no eligible agent")
		return "", false
	}

	best.tasks[t.TaskID()] = struct{}{}
	m.log.Debug().Str("task", t.TaskID()).Str("agent", best.agent.ID).Int("load", len(best.tasks)).Msg("task assigned")
	m.emitLocked(Event{Type: EventAssigned, AgentID: best.agent.ID, TaskID: t.TaskID(), Load: len(best.tasks), Timestamp: time.Now()})
	return best.agent.ID, true
}

// Release frees the capacity held by agentID for taskID. It returns false if
// the agent is unknown or does not hold the task.
func (m *Manager) Release(agentID, taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[agentID]
	if !ok {
		m.log.Error().Str("agent", agentID).Str("task", taskID).Msg("release: unknown agent")
		return false
	}
	if _, held := s.tasks[taskID]; !held {
		m.log.Warn().Str("agent", agentID).Str("task", taskID).Msg("release: task not assigned to agent")
		return false
	}
	delete(s.tasks, taskID)
	m.emitLocked(Event{Type: EventReleased, AgentID: agentID, TaskID: taskID, Load: len(s.tasks), Timestamp: time.Now()})
	return true
}

// Load returns the number of tasks currently assigned to the agent.
func (m *Manager) Load(agentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[agentID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	return len(s.tasks), nil
}

// Get returns the descriptor for agentID.
func (m *Manager) Get(agentID string) (models.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[agentID]
	if !ok {
		return models.Agent{}, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	return s.agent, nil
}

// Agents returns the registered descriptors in registration order.
func (m *Manager) Agents() []models.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Agent, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.slots[id].agent)
	}
	return out
}

// Len returns the number of registered agents.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// CanEverServe reports whether any registered agent offers one of the
// required capabilities, regardless of current load.
func (m *Manager) CanEverServe(required []string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if m.slots[id].agent.HasAnyCapability(required) {
			return true
		}
	}
	return false
}

package task

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hay-kot/criterio"
)

// ErrCycleDetected indicates a circular dependency was found among tasks.
var ErrCycleDetected = errors.New("circular dependency detected")

// cycleMembersLocked returns the IDs of tasks that lie on a dependency cycle,
// considering only tasks accepted by include. Uses depth-first search with
// coloring; every node on the grey stack between a back edge's target and
// the current node is part of a cycle.
func (m *Manager) cycleMembersLocked(include func(*Task) bool) map[string]bool {
	const (
		white = iota
		grey
		black
	)
	colors := make(map[string]int, len(m.tasks))
	members := make(map[string]bool)
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		colors[id] = grey
		stack = append(stack, id)

		for _, depID := range m.tasks[id].DependsOn {
			dep, ok := m.tasks[depID]
			if !ok || !include(dep) {
				continue
			}
			switch colors[depID] {
			case grey:
				// Back edge: everything from depID to the top of the stack.
				for i := len(stack) - 1; i >= 0; i-- {
					members[stack[i]] = true
					if stack[i] == depID {
						break
					}
				}
			case white:
				visit(depID)
			}
		}

		stack = stack[:len(stack)-1]
		colors[id] = black
	}

	for _, id := range m.order {
		if colors[id] == white && include(m.tasks[id]) {
			visit(id)
		}
	}
	return members
}

// Validate reports data-integrity problems in the task collection: empty
// IDs, missing commands, self-dependencies, dependencies on unknown tasks,
// and dependency cycles. Problems are aggregated per task; nothing is
// modified.
func (m *Manager) Validate() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs criterio.FieldErrorsBuilder
	for _, id := range m.order {
		t := m.tasks[id]
		field := fmt.Sprintf("tasks[%q]", id)

		if strings.TrimSpace(id) == "" {
			errs = errs.Append(field+".id", errors.New("id is required"))
		}
		if t.Command == nil {
			errs = errs.Append(field+".command", errors.New("command is required"))
		}
		for _, depID := range t.DependsOn {
			switch _, ok := m.tasks[depID]; {
			case depID == id:
				errs = errs.Append(field+".depends_on", errors.New("task depends on itself"))
			case !ok:
				errs = errs.Append(field+".depends_on", fmt.Errorf("unknown task %s", depID))
			}
		}
	}

	inCycle := m.cycleMembersLocked(func(*Task) bool { return true })
	for _, id := range m.order {
		if inCycle[id] {
			errs = errs.Append(fmt.Sprintf("tasks[%q].depends_on", id), ErrCycleDetected)
		}
	}

	return errs.ToError()
}

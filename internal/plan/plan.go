// Package plan defines task graphs: the built-in demo graph and YAML plan
// files that describe agents and tasks for a run.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hay-kot/criterio"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/taskengine/internal/agent"
	"github.com/ShayCichocki/taskengine/internal/command"
	"github.com/ShayCichocki/taskengine/internal/task"
	"github.com/ShayCichocki/taskengine/pkg/models"
)

// Plan is a complete task graph with the agents that can run it.
type Plan struct {
	Name   string         `yaml:"name"`
	Agents []models.Agent `yaml:"agents"`
	Tasks  []TaskDef      `yaml:"tasks"`
}

// TaskDef describes one task and the command it wraps.
type TaskDef struct {
	ID          string            `yaml:"id"`
	Type        string            `yaml:"type"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	DependsOn   []string          `yaml:"depends_on"`
	Requires    []string          `yaml:"requires"`
	Params      map[string]string `yaml:"params"`
}

// Load reads a plan from a YAML file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Parse(data)
}

// Parse decodes a plan from YAML. Unknown fields are rejected.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return &p, nil
}

// Validate checks the plan's structure. Command types are checked against
// knownTypes when it is non-empty. Dependency problems such as cycles or
// unknown IDs are left to the task manager, which reports them without
// refusing the run.
func (p *Plan) Validate(knownTypes []string) error {
	var errs criterio.FieldErrorsBuilder

	if len(p.Tasks) == 0 {
		errs = errs.Append("tasks", errors.New("at least one task is required"))
	}
	if len(p.Agents) == 0 {
		errs = errs.Append("agents", errors.New("at least one agent is required"))
	}

	agentIDs := make(map[string]bool, len(p.Agents))
	for i, a := range p.Agents {
		field := fmt.Sprintf("agents[%d]", i)
		switch {
		case strings.TrimSpace(a.ID) == "":
			errs = errs.Append(field+".id", errors.New("id is required"))
		case agentIDs[a.ID]:
			errs = errs.Append(field+".id", fmt.Errorf("duplicate agent id %q", a.ID))
		}
		agentIDs[a.ID] = true
		if a.MaxConcurrent < 1 {
			errs = errs.Append(field+".max_concurrent", fmt.Errorf("must be >= 1, got %d", a.MaxConcurrent))
		}
	}

	known := make(map[string]bool, len(knownTypes))
	for _, t := range knownTypes {
		known[t] = true
	}
	taskIDs := make(map[string]bool, len(p.Tasks))
	for i, t := range p.Tasks {
		field := fmt.Sprintf("tasks[%d]", i)
		switch {
		case strings.TrimSpace(t.ID) == "":
			errs = errs.Append(field+".id", errors.New("id is required"))
		case taskIDs[t.ID]:
			errs = errs.Append(field+".id", fmt.Errorf("duplicate task id %q", t.ID))
		}
		taskIDs[t.ID] = true
		switch {
		case t.Type == "":
			errs = errs.Append(field+".type", errors.New("type is required"))
		case len(known) > 0 && !known[t.Type]:
			errs = errs.Append(field+".type", fmt.Errorf("%w: %q", command.ErrUnknownCommandType, t.Type))
		}
	}

	return errs.ToError()
}

// Build creates a command for every task through factory and registers the
// tasks and agents with the managers. It fails on the first unknown command
// type or invalid agent.
func (p *Plan) Build(factory *command.Factory, tm *task.Manager, am *agent.Manager) error {
	for _, a := range p.Agents {
		if err := am.Register(a); err != nil {
			return err
		}
	}
	for _, def := range p.Tasks {
		name := def.Name
		if name == "" {
			name = def.ID
		}
		cmd, err := factory.CreateWithParams(def.Type, command.Spec{
			TaskID:      def.ID,
			Name:        name,
			Description: def.Description,
			Params:      def.Params,
		})
		if err != nil {
			return err
		}
		t := task.New(def.ID, def.Description, cmd, def.DependsOn...)
		t.Requires = def.Requires
		tm.Add(t)
	}
	return nil
}

package plan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/taskengine/internal/agent"
	"github.com/ShayCichocki/taskengine/internal/command"
	"github.com/ShayCichocki/taskengine/internal/task"
	"github.com/ShayCichocki/taskengine/pkg/models"
)

const samplePlan = `
name: docs
agents:
  - id: writer
    name: Writer
    capabilities: [docs]
    max_concurrent: 2
tasks:
  - id: intro
    type: write_file
    description: Write the intro
    requires: [docs]
    params:
      path: docs/intro.md
      content: "# Intro"
  - id: check
    type: scan
    depends_on: [intro]
    params:
      pattern: "docs/*.md"
      min: "1"
`

func builtinFactory(dir string) *command.Factory {
	reg := command.NewRegistry()
	command.RegisterBuiltins(reg, command.Deps{WorkDir: dir})
	return command.NewFactory(reg)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePlan), 0o644))

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "docs", p.Name)
	require.Len(t, p.Agents, 1)
	assert.Equal(t, 2, p.Agents[0].MaxConcurrent)
	assert.Equal(t, []string{"docs"}, p.Agents[0].Capabilities)
	require.Len(t, p.Tasks, 2)
	assert.Equal(t, "docs/intro.md", p.Tasks[0].Params["path"])
	assert.Equal(t, []string{"intro"}, p.Tasks[1].DependsOn)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("tasks:\n  - id: a\n    kind: note\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	known := []string{command.TypeNote, command.TypeShell}
	oneAgent := []models.Agent{{ID: "a1", MaxConcurrent: 1}}
	oneTask := []TaskDef{{ID: "t1", Type: command.TypeNote}}

	tests := []struct {
		name      string
		plan      Plan
		wantField string
	}{
		{
			name:      "no tasks",
			plan:      Plan{Agents: oneAgent},
			wantField: "tasks",
		},
		{
			name:      "no agents",
			plan:      Plan{Tasks: oneTask},
			wantField: "agents",
		},
		{
			name:      "zero capacity",
			plan:      Plan{Agents: []models.Agent{{ID: "a1"}}, Tasks: oneTask},
			wantField: "agents[0].max_concurrent",
		},
		{
			name: "duplicate agent",
			plan: Plan{
				Agents: []models.Agent{{ID: "a1", MaxConcurrent: 1}, {ID: "a1", MaxConcurrent: 1}},
				Tasks:  oneTask,
			},
			wantField: "agents[1].id",
		},
		{
			name:      "missing task id",
			plan:      Plan{Agents: oneAgent, Tasks: []TaskDef{{Type: command.TypeNote}}},
			wantField: "tasks[0].id",
		},
		{
			name: "duplicate task",
			plan: Plan{
				Agents: oneAgent,
				Tasks:  []TaskDef{{ID: "t1", Type: "note"}, {ID: "t1", Type: "note"}},
			},
			wantField: "tasks[1].id",
		},
		{
			name:      "missing type",
			plan:      Plan{Agents: oneAgent, Tasks: []TaskDef{{ID: "t1"}}},
			wantField: "tasks[0].type",
		},
		{
			name:      "unknown type",
			plan:      Plan{Agents: oneAgent, Tasks: []TaskDef{{ID: "t1", Type: "deploy"}}},
			wantField: "tasks[0].type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate(known)
			require.Error(t, err)

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)

			var fields []string
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestValidate_NoKnownTypesSkipsTypeCheck(t *testing.T) {
	p := Plan{
		Agents: []models.Agent{{ID: "a1", MaxConcurrent: 1}},
		Tasks:  []TaskDef{{ID: "t1", Type: "anything"}},
	}
	assert.NoError(t, p.Validate(nil))
}

func TestDemo(t *testing.T) {
	p := Demo()
	require.NoError(t, p.Validate([]string{command.TypeNote}))

	tm := task.NewManager()
	am := agent.NewManager()
	require.NoError(t, p.Build(builtinFactory(t.TempDir()), tm, am))

	assert.Equal(t, 4, tm.Len())
	assert.Equal(t, 4, am.Len())
	require.NoError(t, tm.Validate())

	var ready []string
	for _, r := range tm.Ready() {
		ready = append(ready, r.ID)
	}
	assert.Equal(t, []string{"1.1", "2.1"}, ready)

	for _, tk := range tm.Tasks() {
		assert.True(t, am.CanEverServe(tk.Requires), "task %s has no agent", tk.ID)
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	p, err := Parse([]byte(samplePlan))
	require.NoError(t, err)

	tm := task.NewManager()
	am := agent.NewManager()
	require.NoError(t, p.Build(builtinFactory(dir), tm, am))

	intro, ok := tm.Get("intro")
	require.True(t, ok)
	assert.Equal(t, []string{"docs"}, intro.Requires)
	assert.Equal(t, "intro", intro.Command.Name())

	require.True(t, tm.ExecuteTask(context.Background(), "intro"))
	assert.FileExists(t, filepath.Join(dir, "docs", "intro.md"))
	require.True(t, tm.ExecuteTask(context.Background(), "check"))
}

func TestBuild_UnknownType(t *testing.T) {
	p := Plan{
		Agents: []models.Agent{{ID: "a1", MaxConcurrent: 1}},
		Tasks:  []TaskDef{{ID: "t1", Type: "deploy"}},
	}
	err := p.Build(builtinFactory(t.TempDir()), task.NewManager(), agent.NewManager())
	assert.ErrorIs(t, err, command.ErrUnknownCommandType)
}

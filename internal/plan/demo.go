package plan

import (
	"github.com/ShayCichocki/taskengine/internal/command"
	"github.com/ShayCichocki/taskengine/pkg/models"
)

// Demo returns the fixed graph run by the execute command when no plan file
// is given: two independent tasks, each followed by a dependent one, and
// one single-slot agent per required capability.
func Demo() *Plan {
	return &Plan{
		Name: "demo",
		Agents: []models.Agent{
			{ID: "architect", Name: "Architect", Capabilities: []string{"analysis"}, MaxConcurrent: 1},
			{ID: "builder", Name: "Builder", Capabilities: []string{"generation"}, MaxConcurrent: 1},
			{ID: "reviewer", Name: "Reviewer", Capabilities: []string{"review"}, MaxConcurrent: 1},
			{ID: "scribe", Name: "Scribe", Capabilities: []string{"documentation"}, MaxConcurrent: 1},
		},
		Tasks: []TaskDef{
			{
				ID:          "1.1",
				Type:        command.TypeNote,
				Name:        "Analyze project structure",
				Description: "Survey the repository layout before generating anything",
				Requires:    []string{"analysis"},
			},
			{
				ID:          "2.1",
				Type:        command.TypeNote,
				Name:        "Generate rule files",
				Description: "Produce the rule definitions for the project",
				Requires:    []string{"generation"},
			},
			{
				ID:          "3.1",
				Type:        command.TypeNote,
				Name:        "Review analysis",
				Description: "Check the structure analysis for gaps",
				DependsOn:   []string{"1.1"},
				Requires:    []string{"review"},
			},
			{
				ID:          "4.1",
				Type:        command.TypeNote,
				Name:        "Document generated rules",
				Description: "Write up the generated rules",
				DependsOn:   []string{"2.1"},
				Requires:    []string{"documentation"},
			},
		},
	}
}

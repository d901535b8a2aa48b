package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/hay-kot/criterio"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskengine/internal/agent"
	"github.com/ShayCichocki/taskengine/internal/command"
	"github.com/ShayCichocki/taskengine/internal/task"
)

var validatePlan string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a plan without running it",
	Long: `Load a plan and report every structural problem: missing fields, unknown
command types, duplicate IDs, unknown or cyclic dependencies, and tasks no
registered agent can serve. Nothing is executed and git is not touched.

Exits 1 if any problem is found.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validatePlan, "plan", "", "YAML plan file (default: built-in demo graph)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, err := loadPlan(validatePlan)
	if err != nil {
		return err
	}

	registry := command.NewRegistry()
	command.RegisterBuiltins(registry, command.Deps{WorkDir: repoDir})

	problems := 0
	report := func(err error) {
		var fieldErrs criterio.FieldErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				printStatus("✗", fmt.Sprintf("%s: %v", fe.Field, fe.Err), color.FgRed)
			}
			problems += len(fieldErrs)
			return
		}
		printStatus("✗", err.Error(), color.FgRed)
		problems++
	}

	if err := p.Validate(registry.Types()); err != nil {
		report(err)
		return errRunFailed
	}

	tasks, agents := task.NewManager(), agent.NewManager()
	if err := p.Build(command.NewFactory(registry), tasks, agents); err != nil {
		report(err)
		return errRunFailed
	}
	if err := tasks.Validate(); err != nil {
		report(err)
	}
	for _, t := range tasks.Tasks() {
		if !agents.CanEverServe(t.Requires) {
			printStatus("✗", fmt.Sprintf("task %s: no agent offers any of %v", t.ID, t.Requires), color.FgRed)
			problems++
		}
	}

	if problems > 0 {
		fmt.Printf("\n%d problem(s) found\n", problems)
		return errRunFailed
	}
	printStatus("✓", fmt.Sprintf("Plan %q is valid: %d tasks, %d agents", p.Name, tasks.Len(), agents.Len()), color.FgGreen)
	return nil
}

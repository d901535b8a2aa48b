package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskengine/internal/agent"
	"github.com/ShayCichocki/taskengine/internal/command"
	"github.com/ShayCichocki/taskengine/internal/config"
	"github.com/ShayCichocki/taskengine/internal/git"
	"github.com/ShayCichocki/taskengine/internal/plan"
	"github.com/ShayCichocki/taskengine/internal/state"
	"github.com/ShayCichocki/taskengine/internal/task"
	"github.com/ShayCichocki/taskengine/internal/version"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the engine components are wired up",
	Long: `Build every engine component without running anything and report what
was found:

  - Registered command types
  - The demo task graph and its agents
  - The git binary and the repository's current branch
  - Which config files are in effect
  - The most recent recorded run

status always exits 0; problems are reported as warnings.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Printf("taskengine %s\n\n", version.String())

	registry := command.NewRegistry()
	command.RegisterBuiltins(registry, command.Deps{WorkDir: repoDir})
	types := registry.Types()
	printStatus("✓", fmt.Sprintf("Command registry: %d types (%s)", len(types), strings.Join(types, ", ")), color.FgGreen)

	demo := plan.Demo()
	tasks, agents := task.NewManager(), agent.NewManager()
	if err := demo.Build(command.NewFactory(registry), tasks, agents); err != nil {
		printStatus("✗", "Demo graph: "+err.Error(), color.FgRed)
	} else {
		printStatus("✓", fmt.Sprintf("Demo graph: %d tasks, %d agents", tasks.Len(), agents.Len()), color.FgGreen)
	}

	if path, err := exec.LookPath(cfg.Git.Binary); err != nil {
		printStatus("⚠", fmt.Sprintf("Git binary %q not found", cfg.Git.Binary), color.FgYellow)
	} else {
		printStatus("✓", "Git: "+path, color.FgGreen)
		runner := git.NewRunner(repoDir, git.WithBinary(cfg.Git.Binary))
		if branch, err := runner.CurrentBranch(cmd.Context()); err != nil {
			printStatus("⚠", repoDir+" is not a git repository with commits", color.FgYellow)
		} else {
			printStatus("✓", fmt.Sprintf("Repository: %s on %s", repoDir, branch), color.FgGreen)
		}
	}

	printConfigSources()
	printLastRun()
	return nil
}

func printConfigSources() {
	var sources []string
	if configFile != "" {
		sources = append(sources, configFile)
	} else {
		if _, err := os.Stat(config.GetUserConfigPath()); err == nil {
			sources = append(sources, config.GetUserConfigPath())
		}
		if p := config.GetProjectConfigPath(repoDir); p != "" {
			sources = append(sources, p)
		}
	}
	if len(sources) == 0 {
		printStatus("✓", "Config: built-in defaults", color.FgGreen)
		return
	}
	printStatus("✓", "Config: "+strings.Join(sources, ", "), color.FgGreen)
}

func printLastRun() {
	path := cfg.State.DBPath
	if path == "" {
		path = state.ProjectDBPath(repoDir)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		printStatus("✓", "History: no runs recorded yet", color.FgGreen)
		return
	}

	db, err := openHistory()
	if err != nil {
		printStatus("⚠", "History: "+err.Error(), color.FgYellow)
		return
	}
	defer db.Close()

	runs, err := db.ListRuns(1)
	if err != nil {
		printStatus("⚠", "History: "+err.Error(), color.FgYellow)
		return
	}
	if len(runs) == 0 {
		printStatus("✓", "History: no runs recorded yet", color.FgGreen)
		return
	}
	last := runs[0]
	outcome := "failed"
	if last.Success {
		outcome = "succeeded"
	}
	printStatus("✓", fmt.Sprintf("Last run: %s %s %s ago (%s)",
		last.RunID, outcome, formatDuration(timeSince(last.StartedAt)), last.GitOutcome), color.FgGreen)
}

// printStatus prints a status line with color.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/taskengine/internal/state"
	"github.com/ShayCichocki/taskengine/pkg/models"
)

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	t.Setenv("GIT_CONFIG_GLOBAL", "/dev/null")
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	gitCmd(t, dir, "config", "user.email", "engine@example.com")
	gitCmd(t, dir, "config", "user.name", "Engine Test")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# repo\n"), 0o644))
	gitCmd(t, dir, "add", "README.md")
	gitCmd(t, dir, "commit", "-q", "-m", "initial")
	return dir
}

// runCLI executes the root command with every flag reset to its default,
// since cobra keeps flag state between executions in one process.
func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			require.NoError(t, f.Value.Set(f.DefValue))
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExecute_DemoMerges(t *testing.T) {
	dir := initRepo(t)

	err := runCLI(t, "execute", "--repo", dir, "--quiet", "--log-level", "error")
	require.NoError(t, err)

	assert.Equal(t, "main", gitCmd(t, dir, "rev-parse", "--abbrev-ref", "HEAD"))
	assert.Empty(t, gitCmd(t, dir, "branch", "--list", "task_execution_*"))

	db, err := state.OpenProject(dir)
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Success)
	assert.Equal(t, models.GitOutcomeMerged, runs[0].GitOutcome)
	assert.Equal(t, 4, runs[0].Stats[models.TaskStatusCompleted])

	assert.Empty(t, gitCmd(t, dir, "status", "--porcelain"), "engine state must stay out of git")
}

func TestExecute_PlanWritesFiles(t *testing.T) {
	dir := initRepo(t)
	planPath := writePlan(t, `
name: files
agents:
  - id: writer
    capabilities: [docs]
    max_concurrent: 2
tasks:
  - id: a
    type: write_file
    requires: [docs]
    params: {path: a.txt, content: "alpha"}
  - id: b
    type: write_file
    depends_on: [a]
    params: {path: b.txt, content: "beta"}
`)

	err := runCLI(t, "execute", "--repo", dir, "--plan", planPath, "--quiet", "--no-record", "--parallel", "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "beta", string(data))
	assert.Contains(t, gitCmd(t, dir, "log", "--oneline"), "Merge task_execution_")
	assert.NoFileExists(t, state.ProjectDBPath(dir))
}

func TestExecute_FailingPlanReverts(t *testing.T) {
	dir := initRepo(t)
	planPath := writePlan(t, `
agents:
  - id: w
    max_concurrent: 1
tasks:
  - id: write
    type: write_file
    params: {path: out.txt, content: "x"}
  - id: boom
    type: fail
`)

	err := runCLI(t, "execute", "--repo", dir, "--plan", planPath, "--quiet", "--no-record", "--log-level", "error")
	require.ErrorIs(t, err, errRunFailed)

	assert.Equal(t, "main", gitCmd(t, dir, "rev-parse", "--abbrev-ref", "HEAD"))
	assert.NoFileExists(t, filepath.Join(dir, "out.txt"))
}

func TestExecute_InvalidPlan(t *testing.T) {
	dir := initRepo(t)
	planPath := writePlan(t, "tasks:\n  - id: a\n    type: deploy\n")

	err := runCLI(t, "execute", "--repo", dir, "--plan", planPath, "--log-level", "error")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errRunFailed)
	assert.Contains(t, err.Error(), "invalid plan")
}

func TestValidate(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	require.NoError(t, runCLI(t, "validate", "--repo", dir, "--log-level", "error"))

	cyclic := writePlan(t, `
agents:
  - id: w
    capabilities: [x]
    max_concurrent: 1
tasks:
  - id: a
    type: note
    depends_on: [b]
  - id: b
    type: note
    depends_on: [a]
  - id: c
    type: note
    requires: [y]
`)
	err := runCLI(t, "validate", "--repo", dir, "--plan", cyclic, "--log-level", "error")
	assert.ErrorIs(t, err, errRunFailed)
}

func TestSignal(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	require.NoError(t, runCLI(t, "signal", "pause", "--repo", dir, "--log-level", "error"))
	assert.FileExists(t, filepath.Join(dir, ".taskengine", "signals", "pause"))

	assert.Error(t, runCLI(t, "signal", "restart", "--repo", dir, "--log-level", "error"))
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"execute", "history", "signal", "status", "validate", "version"}
	var got []string
	for _, c := range rootCmd.Commands() {
		if c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		got = append(got, c.Name())
	}
	assert.ElementsMatch(t, want, got)

	var flags []string
	executeCmd.Flags().VisitAll(func(f *pflag.Flag) { flags = append(flags, f.Name) })
	assert.Subset(t, flags, []string{"no-merge", "no-revert", "plan", "parallel"})
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
}

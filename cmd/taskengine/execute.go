package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskengine/internal/agent"
	"github.com/ShayCichocki/taskengine/internal/command"
	"github.com/ShayCichocki/taskengine/internal/git"
	"github.com/ShayCichocki/taskengine/internal/orchestrator"
	"github.com/ShayCichocki/taskengine/internal/plan"
	"github.com/ShayCichocki/taskengine/internal/signals"
	"github.com/ShayCichocki/taskengine/internal/state"
	"github.com/ShayCichocki/taskengine/internal/task"
	"github.com/ShayCichocki/taskengine/pkg/models"
)

var (
	executeNoMerge       bool
	executeNoRevert      bool
	executePlan          string
	executeParallel      bool
	executePush          bool
	executeMaxIterations int
	executeMetricsOut    string
	executeNoRecord      bool
	executeQuiet         bool
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Run a task graph inside a git session",
	Long: `Run a task graph through the execution engine.

A session branch named task_execution_<timestamp> is created from the current
branch. Ready tasks are assigned to agents whose capabilities match, executed,
and their status recorded until nothing is left to run.

When every task completes the branch is committed and merged back unless
--no-merge is given. Otherwise the branch is reverted unless --no-revert is
given, in which case it is left in place for inspection.

While a run is in progress, "taskengine signal pause|resume|stop" controls it
from another terminal. Ctrl-C stops scheduling and still finishes the git
lifecycle.

Exit code is 0 when the run succeeded and 1 otherwise.`,
	Args: cobra.NoArgs,
	RunE: runExecute,
}

func init() {
	executeCmd.Flags().BoolVar(&executeNoMerge, "no-merge", false, "Keep the session branch instead of merging it")
	executeCmd.Flags().BoolVar(&executeNoRevert, "no-revert", false, "Leave the session branch in place when tasks fail")
	executeCmd.Flags().StringVar(&executePlan, "plan", "", "YAML plan file (default: built-in demo graph)")
	executeCmd.Flags().BoolVar(&executeParallel, "parallel", false, "Execute each scheduling pass concurrently")
	executeCmd.Flags().BoolVar(&executePush, "push", false, "Push the session branch before merging")
	executeCmd.Flags().IntVar(&executeMaxIterations, "max-iterations", 0, "Cap on scheduling passes (0 = unlimited)")
	executeCmd.Flags().StringVar(&executeMetricsOut, "metrics-out", "", "Write run metrics in Prometheus text format to this file")
	executeCmd.Flags().BoolVar(&executeNoRecord, "no-record", false, "Do not record the run in the history database")
	executeCmd.Flags().BoolVarP(&executeQuiet, "quiet", "q", false, "Only print the final summary")
}

func runExecute(cmd *cobra.Command, args []string) error {
	applyExecuteFlags(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := command.NewRegistry()
	command.RegisterBuiltins(registry, command.Deps{WorkDir: repoDir})
	factory := command.NewFactory(registry)

	p, err := loadPlan(executePlan)
	if err != nil {
		return err
	}
	if err := p.Validate(registry.Types()); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}

	tasks := task.NewManager()
	agents := agent.NewManager()
	if err := p.Build(factory, tasks, agents); err != nil {
		return fmt.Errorf("build plan: %w", err)
	}

	sessionOpts := []orchestrator.SessionOption{orchestrator.WithRemote(cfg.Git.Remote)}
	if cfg.Git.BaseBranch != "" {
		sessionOpts = append(sessionOpts, orchestrator.WithBaseBranch(cfg.Git.BaseBranch))
	}
	runner := git.NewRunner(repoDir, git.WithBinary(cfg.Git.Binary))
	session := orchestrator.NewGitSession(runner, sessionOpts...)

	pause := orchestrator.NewPauseController()
	if cfg.Signals.Enabled {
		w, err := signals.NewWatcher(repoDir, pause)
		if err != nil {
			log.Warn().Err(err).Msg("signal files disabled")
		} else {
			defer w.Close()
			if !w.Watching() {
				w.StartPolling(ctx, cfg.Engine.PollInterval)
			}
		}
	}

	promRegistry := prometheus.NewRegistry()
	metrics := orchestrator.MustNewMetrics(promRegistry)

	emitter := orchestrator.NewEventEmitter(64)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range emitter.Events() {
			if !executeQuiet {
				printEvent(os.Stdout, ev)
			}
		}
	}()

	engine, err := orchestrator.New(
		orchestrator.RequiredConfig{Tasks: tasks, Agents: agents, Session: session},
		orchestrator.WithAutoMerge(cfg.Engine.AutoMerge),
		orchestrator.WithAutoRevertOnFailure(cfg.Engine.AutoRevertOnFailure),
		orchestrator.WithParallel(cfg.Engine.Parallel),
		orchestrator.WithPush(cfg.Git.Push),
		orchestrator.WithMaxIterations(cfg.Engine.MaxIterations),
		orchestrator.WithPollInterval(cfg.Engine.PollInterval),
		orchestrator.WithMetrics(metrics),
		orchestrator.WithEmitter(emitter),
		orchestrator.WithPauseController(pause),
	)
	if err != nil {
		emitter.Close()
		return err
	}

	summary := engine.Run(ctx)
	emitter.Close()
	<-printed

	fmt.Println(renderSummary(summary, p.Name))

	if cfg.State.Record {
		recordRun(summary)
	}
	if cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, promRegistry); err != nil {
			log.Warn().Err(err).Str("path", cfg.Metrics.Textfile).Msg("write metrics textfile")
		}
	}

	if !summary.Success {
		return errRunFailed
	}
	return nil
}

// applyExecuteFlags overrides configuration with flags given explicitly.
func applyExecuteFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if executeNoMerge {
		cfg.Engine.AutoMerge = false
	}
	if executeNoRevert {
		cfg.Engine.AutoRevertOnFailure = false
	}
	if flags.Changed("parallel") {
		cfg.Engine.Parallel = executeParallel
	}
	if flags.Changed("push") {
		cfg.Git.Push = executePush
	}
	if flags.Changed("max-iterations") {
		cfg.Engine.MaxIterations = executeMaxIterations
	}
	if executeMetricsOut != "" {
		cfg.Metrics.Textfile = executeMetricsOut
	}
	if executeNoRecord {
		cfg.State.Record = false
	}
}

func loadPlan(path string) (*plan.Plan, error) {
	if path == "" {
		return plan.Demo(), nil
	}
	return plan.Load(path)
}

// recordRun stores the summary in the history database. Failures are
// logged only; the run outcome is already decided.
func recordRun(s *models.RunSummary) {
	db, err := openHistory()
	if err != nil {
		log.Warn().Err(err).Msg("run history unavailable")
		return
	}
	defer db.Close()

	if err := db.RecordRun(s); err != nil {
		log.Warn().Err(err).Str("run", s.RunID).Msg("record run")
	}
}

// openHistory opens the configured history database, or the project one.
func openHistory() (*state.DB, error) {
	if cfg.State.DBPath == "" {
		return state.OpenProject(repoDir)
	}
	db, err := state.Open(cfg.State.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

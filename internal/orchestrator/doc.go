// Package orchestrator runs a task graph inside a git session.
//
// The package provides:
//   - GitSession: a disposable branch per run (create, commit, push, merge,
//     cleanup, revert)
//   - Engine: the scheduling loop that asks the task manager for ready tasks,
//     assigns them to agents, executes them and applies the merge/revert policy
//   - PauseController and EventEmitter for steering and observing a run
//   - Metrics: Prometheus collectors for tasks and runs
//
// Example usage:
//
//	session := orchestrator.NewGitSession(git.NewRunner(repo))
//	engine, err := orchestrator.New(orchestrator.RequiredConfig{
//		Tasks:   tasks,
//		Agents:  agents,
//		Session: session,
//	}, orchestrator.WithAutoMerge(true))
//	if err != nil {
//		return err
//	}
//	summary := engine.Run(ctx)
package orchestrator

package orchestrator

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/taskengine/internal/agent"
	"github.com/ShayCichocki/taskengine/internal/task"
)

// RequiredConfig contains the minimal required configuration for an Engine.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// Tasks owns the task graph for the run.
	Tasks *task.Manager
	// Agents owns the agent pool.
	Agents *agent.Manager
	// Session wraps the run in a git branch.
	Session *GitSession
}

// Option configures an Engine. Use With* functions to create Options.
type Option func(*engineOptions)

// engineOptions holds all optional configuration.
type engineOptions struct {
	autoMerge     bool
	autoRevert    bool
	parallel      bool
	push          bool
	maxIterations int
	pollInterval  time.Duration
	commitMessage string
	runID         string
	logger        *zerolog.Logger
	metrics       *Metrics
	emitter       *EventEmitter
	pause         *PauseController
	now           func() time.Time
}

func defaultOptions() engineOptions {
	return engineOptions{
		autoMerge:    true,
		autoRevert:   true,
		pollInterval: 50 * time.Millisecond,
		now:          time.Now,
	}
}

// WithAutoMerge merges the session branch into its base when every task
// completes. Enabled by default.
func WithAutoMerge(b bool) Option {
	return func(o *engineOptions) { o.autoMerge = b }
}

// WithAutoRevertOnFailure discards the session branch when the run does not
// succeed. Enabled by default.
func WithAutoRevertOnFailure(b bool) Option {
	return func(o *engineOptions) { o.autoRevert = b }
}

// WithParallel executes each pass's assigned tasks concurrently.
func WithParallel(b bool) Option {
	return func(o *engineOptions) { o.parallel = b }
}

// WithPush pushes the session branch after a successful commit.
func WithPush(b bool) Option {
	return func(o *engineOptions) { o.push = b }
}

// WithMaxIterations caps the number of scheduling passes. Zero means no cap.
func WithMaxIterations(n int) Option {
	return func(o *engineOptions) { o.maxIterations = n }
}

// WithPollInterval sets how long the loop waits when nothing is ready but
// tasks reported out of band are still in progress.
func WithPollInterval(d time.Duration) Option {
	return func(o *engineOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithCommitMessage overrides the message of the session commit.
func WithCommitMessage(msg string) Option {
	return func(o *engineOptions) { o.commitMessage = msg }
}

// WithRunID sets the run identifier. A random UUID is used otherwise.
func WithRunID(id string) Option {
	return func(o *engineOptions) { o.runID = id }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *engineOptions) { o.logger = &l }
}

// WithMetrics records run and task metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *engineOptions) { o.metrics = m }
}

// WithEmitter publishes run events.
func WithEmitter(e *EventEmitter) Option {
	return func(o *engineOptions) { o.emitter = e }
}

// WithPauseController lets callers pause, resume and stop the run between
// scheduling passes.
func WithPauseController(p *PauseController) Option {
	return func(o *engineOptions) { o.pause = p }
}

// WithClock sets the clock used for run timing.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		if now != nil {
			o.now = now
		}
	}
}

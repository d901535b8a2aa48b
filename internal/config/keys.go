package config

// Configuration keys. Each is also readable from the environment as
// TASKENGINE_<KEY> with dots replaced by underscores, e.g.
// TASKENGINE_ENGINE_PARALLEL.
const (
	KeyAutoMerge     = "engine.auto_merge"
	KeyAutoRevert    = "engine.auto_revert_on_failure"
	KeyParallel      = "engine.parallel"
	KeyMaxIterations = "engine.max_iterations"
	KeyPollInterval  = "engine.poll_interval"

	KeyGitBinary     = "git.binary"
	KeyGitBaseBranch = "git.base_branch"
	KeyGitRemote     = "git.remote"
	KeyGitPush       = "git.push"

	KeyLogLevel = "logging.level"
	KeyLogFile  = "logging.file"

	KeyStateDBPath = "state.db_path"
	KeyStateRecord = "state.record"

	KeySignalsEnabled = "signals.enabled"

	KeyMetricsTextfile = "metrics.textfile"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TASKENGINE"

// defaults maps every key to its built-in value. Durations are strings so
// they decode the same way as values read from YAML.
var defaults = map[string]any{
	KeyAutoMerge:       true,
	KeyAutoRevert:      true,
	KeyParallel:        false,
	KeyMaxIterations:   0,
	KeyPollInterval:    "50ms",
	KeyGitBinary:       "git",
	KeyGitBaseBranch:   "",
	KeyGitRemote:       "origin",
	KeyGitPush:         false,
	KeyLogLevel:        "info",
	KeyLogFile:         "",
	KeyStateDBPath:     "",
	KeyStateRecord:     true,
	KeySignalsEnabled:  true,
	KeyMetricsTextfile: "",
}

// Keys returns every known configuration key.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	return keys
}

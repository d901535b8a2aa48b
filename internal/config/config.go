// Package config handles configuration loading for taskengine.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// ProjectConfigName is the project config file searched for upward from the
// working directory.
const ProjectConfigName = ".taskengine.yaml"

// Config holds all configuration for taskengine.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Git     GitConfig     `mapstructure:"git"`
	Logging LoggingConfig `mapstructure:"logging"`
	State   StateConfig   `mapstructure:"state"`
	Signals SignalsConfig `mapstructure:"signals"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// EngineConfig holds execution engine settings.
type EngineConfig struct {
	AutoMerge           bool `mapstructure:"auto_merge"`
	AutoRevertOnFailure bool `mapstructure:"auto_revert_on_failure"`
	Parallel            bool `mapstructure:"parallel"`
	// MaxIterations caps scheduling passes. Zero means unlimited.
	MaxIterations int           `mapstructure:"max_iterations"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

// GitConfig holds git session settings.
type GitConfig struct {
	Binary string `mapstructure:"binary"`
	// BaseBranch is the merge target. Empty means the branch checked out
	// when the session starts.
	BaseBranch string `mapstructure:"base_branch"`
	Remote     string `mapstructure:"remote"`
	Push       bool   `mapstructure:"push"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// File receives JSON logs instead of the console when set.
	File string `mapstructure:"file"`
}

// StateConfig holds run-history settings.
type StateConfig struct {
	// DBPath overrides the project database location.
	DBPath string `mapstructure:"db_path"`
	Record bool   `mapstructure:"record"`
}

// SignalsConfig toggles the signal-file watcher.
type SignalsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// Textfile is where run metrics are written in Prometheus text format.
	Textfile string `mapstructure:"textfile"`
}

// Load loads configuration for a run in dir.
// Precedence (highest to lowest):
// 1. Environment variables (TASKENGINE_*)
// 2. Project config (.taskengine.yaml in dir or a parent)
// 3. User config (~/.config/taskengine/config.yaml)
// 4. Built-in defaults
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(dir); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file over the defaults.
// Environment overrides still apply.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)
	return unmarshal(v)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			AutoMerge:           true,
			AutoRevertOnFailure: true,
			PollInterval:        50 * time.Millisecond,
		},
		Git: GitConfig{
			Binary: "git",
			Remote: "origin",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		State: StateConfig{
			Record: true,
		},
		Signals: SignalsConfig{
			Enabled: true,
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.Engine.MaxIterations < 0 {
		errs = errs.Append(KeyMaxIterations, fmt.Errorf("must be >= 0, got %d", c.Engine.MaxIterations))
	}
	if c.Engine.PollInterval <= 0 {
		errs = errs.Append(KeyPollInterval, fmt.Errorf("must be positive, got %s", c.Engine.PollInterval))
	}
	if strings.TrimSpace(c.Git.Binary) == "" {
		errs = errs.Append(KeyGitBinary, errors.New("is required"))
	}
	if c.Git.Push && strings.TrimSpace(c.Git.Remote) == "" {
		errs = errs.Append(KeyGitRemote, errors.New("is required when git.push is enabled"))
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil || c.Logging.Level == "" {
		errs = errs.Append(KeyLogLevel, fmt.Errorf("unknown level %q", c.Logging.Level))
	}

	return errs.ToError()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the project config file for dir, or "" if
// there is none.
func GetProjectConfigPath(dir string) string {
	return findProjectConfig(dir)
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Logging.File = expandEnv(cfg.Logging.File)
	cfg.State.DBPath = expandEnv(cfg.State.DBPath)
	cfg.Metrics.Textfile = expandEnv(cfg.Metrics.Textfile)
	return cfg, nil
}

// getUserConfigDir returns the XDG config directory for taskengine.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskengine")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "taskengine")
	}
	return filepath.Join(home, ".config", "taskengine")
}

// findProjectConfig searches for .taskengine.yaml in dir and its parents.
func findProjectConfig(dir string) string {
	cwd, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

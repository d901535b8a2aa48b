package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
)

// isolate points the user config at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Engine.AutoMerge {
		t.Error("expected engine.auto_merge to be true")
	}
	if !cfg.Engine.AutoRevertOnFailure {
		t.Error("expected engine.auto_revert_on_failure to be true")
	}
	if cfg.Engine.Parallel {
		t.Error("expected engine.parallel to be false")
	}
	if cfg.Engine.PollInterval != 50*time.Millisecond {
		t.Errorf("expected poll interval 50ms, got %v", cfg.Engine.PollInterval)
	}
	if cfg.Git.Binary != "git" {
		t.Errorf("expected git binary 'git', got %q", cfg.Git.Binary)
	}
	if cfg.Git.Remote != "origin" {
		t.Errorf("expected remote 'origin', got %q", cfg.Git.Remote)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %q", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad_DefaultsMatchDefault(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load with no files = %+v, want %+v", cfg, Default())
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
engine:
  auto_merge: false
  parallel: true
  max_iterations: 25
  poll_interval: 200ms
git:
  base_branch: develop
  push: true
logging:
  level: debug
metrics:
  textfile: ${TEST_METRICS_DIR}/taskengine.prom
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("TEST_METRICS_DIR", "/var/lib/node_exporter")

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Engine.AutoMerge {
		t.Error("expected engine.auto_merge to be false")
	}
	if !cfg.Engine.AutoRevertOnFailure {
		t.Error("expected engine.auto_revert_on_failure to keep its default")
	}
	if !cfg.Engine.Parallel {
		t.Error("expected engine.parallel to be true")
	}
	if cfg.Engine.MaxIterations != 25 {
		t.Errorf("expected max iterations 25, got %d", cfg.Engine.MaxIterations)
	}
	if cfg.Engine.PollInterval != 200*time.Millisecond {
		t.Errorf("expected poll interval 200ms, got %v", cfg.Engine.PollInterval)
	}
	if cfg.Git.BaseBranch != "develop" || !cfg.Git.Push {
		t.Errorf("unexpected git config: %+v", cfg.Git)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level 'debug', got %q", cfg.Logging.Level)
	}
	if cfg.Metrics.Textfile != "/var/lib/node_exporter/taskengine.prom" {
		t.Errorf("expected expanded textfile path, got %q", cfg.Metrics.Textfile)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_Precedence(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	userDir := filepath.Join(xdg, "taskengine")
	if err := os.MkdirAll(userDir, 0755); err != nil {
		t.Fatal(err)
	}
	userContent := "git:\n  remote: upstream\n  base_branch: main\nlogging:\n  level: warn\n"
	if err := os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte(userContent), 0644); err != nil {
		t.Fatal(err)
	}

	project := t.TempDir()
	projectContent := "git:\n  base_branch: trunk\nengine:\n  parallel: true\n"
	if err := os.WriteFile(filepath.Join(project, ProjectConfigName), []byte(projectContent), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(project, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TASKENGINE_LOGGING_LEVEL", "error")

	cfg, err := Load(nested)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Git.Remote != "upstream" {
		t.Errorf("user config not applied: remote = %q", cfg.Git.Remote)
	}
	if cfg.Git.BaseBranch != "trunk" {
		t.Errorf("project config should override user config: base_branch = %q", cfg.Git.BaseBranch)
	}
	if !cfg.Engine.Parallel {
		t.Error("project config not applied: parallel = false")
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("environment should override files: level = %q", cfg.Logging.Level)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	dir := getUserConfigDir()
	expected := "/custom/config/taskengine"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
	if GetUserConfigPath() != "/custom/config/taskengine/config.yaml" {
		t.Errorf("unexpected user config path %q", GetUserConfigPath())
	}
}

func TestGetProjectConfigPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectConfigName)
	if err := os.WriteFile(path, []byte("engine:\n  parallel: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(dir, "sub")
	if err := os.Mkdir(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if got := GetProjectConfigPath(nested); got != path {
		t.Errorf("GetProjectConfigPath = %q, want %q", got, path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"negative iterations", func(c *Config) { c.Engine.MaxIterations = -1 }, KeyMaxIterations},
		{"zero poll interval", func(c *Config) { c.Engine.PollInterval = 0 }, KeyPollInterval},
		{"empty git binary", func(c *Config) { c.Git.Binary = " " }, KeyGitBinary},
		{"push without remote", func(c *Config) { c.Git.Push = true; c.Git.Remote = "" }, KeyGitRemote},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, KeyLogLevel},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, KeyLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}

			var fieldErrs criterio.FieldErrors
			if !errors.As(err, &fieldErrs) {
				t.Fatalf("expected criterio.FieldErrors, got %T", err)
			}
			found := false
			for _, fe := range fieldErrs {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.wantField, err)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Engine.MaxIterations = -3
	cfg.Logging.Level = "nope"

	var fieldErrs criterio.FieldErrors
	if !errors.As(cfg.Validate(), &fieldErrs) {
		t.Fatal("expected criterio.FieldErrors")
	}
	if len(fieldErrs) != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", len(fieldErrs), fieldErrs)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskengine/internal/config"
	"github.com/ShayCichocki/taskengine/internal/logging"
)

// errRunFailed makes the process exit 1 without printing anything more; the
// run summary already explains what went wrong.
var errRunFailed = errors.New("run failed")

var (
	repoDir    string
	configFile string
	logLevel   string

	// cfg and log are set by the root PersistentPreRunE.
	cfg       *config.Config
	log       zerolog.Logger
	logCloser = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "taskengine",
	Short: "Dependency-ordered task execution inside a git session",
	Long: `taskengine runs a graph of tasks on a pool of capability-tagged agents.

Every run happens on a fresh session branch. When every task completes the
branch is committed and merged back into the base branch; otherwise the
branch is reverted so the working tree returns to where it started.

Tasks come from a YAML plan file, or from a small built-in demo graph when
no plan is given.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	logCloser()
	if err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo", ".", "Repository to run in")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: user and project config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(executeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(signalCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration, applies global flag overrides and installs the
// root logger before any component logger is created.
func setup(cmd *cobra.Command, args []string) error {
	abs, err := filepath.Abs(repoDir)
	if err != nil {
		return fmt.Errorf("resolve repo path: %w", err)
	}
	repoDir = abs

	if configFile != "" {
		cfg, err = config.LoadFromPath(configFile)
	} else {
		cfg, err = config.Load(repoDir)
	}
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, logCloser, err = logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	logging.SetGlobal(log)
	return nil
}

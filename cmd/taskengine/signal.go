package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskengine/internal/signals"
)

var signalCmd = &cobra.Command{
	Use:       "signal pause|resume|stop",
	Short:     "Pause, resume or stop a running execute",
	Long:      `Drop a signal file that a running "taskengine execute" in the same repository picks up.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{signals.Pause, signals.Resume, signals.Stop},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := signals.Send(repoDir, args[0]); err != nil {
			return err
		}
		fmt.Printf("Sent %s to %s\n", args[0], signals.Dir(repoDir))
		return nil
	},
}

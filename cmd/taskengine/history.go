package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskengine/pkg/models"
)

var (
	historyLimit int
	historyRun   string
	historyPurge time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs",
	Long: `List runs recorded in the history database, newest first.

Use --run to show one run with its per-task report, and --purge to delete
runs older than the given age (for example --purge 720h).`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to list (0 = all)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show a single run in detail")
	historyCmd.Flags().DurationVar(&historyPurge, "purge", 0, "Delete runs older than this age")
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := openHistory()
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer db.Close()

	if historyPurge > 0 {
		n, err := db.PurgeOldRuns(historyPurge)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d run(s) older than %s\n", n, historyPurge)
		return nil
	}

	if historyRun != "" {
		s, err := db.GetRun(historyRun)
		if err != nil {
			return err
		}
		fmt.Println(renderSummary(s, ""))
		return nil
	}

	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded. Run 'taskengine execute' to start.")
		return nil
	}
	for _, r := range runs {
		fmt.Println(formatRunLine(r))
	}
	return nil
}

var (
	idStyle   = lipgloss.NewStyle().Width(38)
	whenStyle = lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color("245"))
)

func formatRunLine(r models.RunSummary) string {
	result := okStyle.Render("ok  ")
	if !r.Success {
		result = failStyle.Render("fail")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		result, " ",
		idStyle.Render(r.RunID),
		whenStyle.Render(formatDuration(timeSince(r.StartedAt))+" ago"),
		dimStyle.Render(fmt.Sprintf("%-22s %s", r.GitOutcome, formatStats(r.Stats))),
	)
}

// timeSince is time.Since rounded to whole seconds for display.
func timeSince(t time.Time) time.Duration {
	return time.Since(t).Round(time.Second)
}

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/ShayCichocki/taskengine/internal/orchestrator"
	"github.com/ShayCichocki/taskengine/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// renderSummary formats a run summary as a boxed report.
func renderSummary(s *models.RunSummary, planName string) string {
	var b strings.Builder

	title := "Run " + s.RunID
	if planName != "" {
		title += " (" + planName + ")"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	result := okStyle.Render("success")
	if !s.Success {
		result = failStyle.Render("failed")
	}
	if s.Stopped {
		result += dimStyle.Render(" (stopped)")
	}
	b.WriteString(labelStyle.Render("Result"))
	b.WriteString(result)
	b.WriteString("\n")

	row("Duration", formatDuration(s.Duration))
	row("Iterations", fmt.Sprintf("%d", s.Iterations))
	row("Tasks", formatStats(s.Stats))
	if s.Branch != "" {
		row("Branch", s.Branch+" -> "+s.BaseBranch)
	}
	row("Git", string(s.GitOutcome))
	if s.GitError != "" {
		row("Git error", s.GitError)
	}
	if s.Error != "" {
		row("Error", s.Error)
	}

	if len(s.Tasks) > 0 {
		b.WriteString("\n")
		for _, t := range s.Tasks {
			b.WriteString(formatTaskLine(t))
			b.WriteString("\n")
		}
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// formatStats lists per-status counts in lifecycle order.
func formatStats(stats models.TaskStats) string {
	parts := make([]string, 0, len(models.AllTaskStatuses))
	for _, st := range models.AllTaskStatuses {
		parts = append(parts, fmt.Sprintf("%s %d", st, stats[st]))
	}
	return strings.Join(parts, ", ")
}

func formatTaskLine(t models.TaskReport) string {
	line := fmt.Sprintf("%s %-6s %-12s", statusSymbol(t.Status), t.ID, t.Status)
	if t.AgentID != "" {
		line += dimStyle.Render(" @" + t.AgentID)
	}
	switch {
	case t.Error != "":
		line += " " + failStyle.Render(t.Error)
	case t.BlockedReason != "":
		line += " " + dimStyle.Render(t.BlockedReason)
	case t.Duration > 0:
		line += dimStyle.Render(" " + t.Duration.Round(time.Millisecond).String())
	}
	return line
}

func statusSymbol(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusCompleted:
		return color.GreenString("✓")
	case models.TaskStatusFailed:
		return color.RedString("✗")
	case models.TaskStatusBlocked:
		return color.YellowString("⊘")
	case models.TaskStatusInProgress:
		return color.CyanString("…")
	default:
		return color.New(color.Faint).Sprint("·")
	}
}

// printEvent writes one progress line for an engine event.
func printEvent(w io.Writer, ev orchestrator.Event) {
	ts := color.New(color.Faint).Sprint(ev.Timestamp.Format(time.TimeOnly))
	switch ev.Type {
	case orchestrator.EventRunStarted:
		fmt.Fprintf(w, "%s %s on %s\n", ts, color.CyanString("run started"), ev.Message)
	case orchestrator.EventTaskStarted:
		fmt.Fprintf(w, "%s %s %s on %s %s\n", ts, color.BlueString("▶"), ev.TaskID, ev.AgentID,
			color.New(color.Faint).Sprint(ev.Message))
	case orchestrator.EventTaskCompleted:
		fmt.Fprintf(w, "%s %s %s %s\n", ts, color.GreenString("✓"), ev.TaskID, ev.Message)
	case orchestrator.EventTaskFailed:
		fmt.Fprintf(w, "%s %s %s %s\n", ts, color.RedString("✗"), ev.TaskID, color.RedString(ev.Error))
	case orchestrator.EventTaskBlocked:
		fmt.Fprintf(w, "%s %s %s %s\n", ts, color.YellowString("⊘"), ev.TaskID, ev.Message)
	case orchestrator.EventMergeStarted:
		fmt.Fprintf(w, "%s %s %s\n", ts, color.CyanString("merging"), ev.Message)
	case orchestrator.EventMergeCompleted:
		if ev.Error != "" {
			fmt.Fprintf(w, "%s %s %s\n", ts, color.RedString("merge failed:"), ev.Error)
		} else {
			fmt.Fprintf(w, "%s %s into %s\n", ts, color.GreenString("merged"), ev.Message)
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if m > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dh", h)
}

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"reelscraper/pkg/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FFFF")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FFFF")).Width(14)

	runStatusStyles = map[string]lipgloss.Style{
		models.StatusCompleted:           lipgloss.NewStyle().Foreground(lipgloss.Color("#39FF14")),
		models.StatusCompletedWithErrors: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6700")),
		models.StatusFailed:              lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
		models.StatusRunning:             lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
	}
)

// RenderRunTable renders run logs as a bordered table
func RenderRunTable(runs []models.RunLog) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.SourceType,
			r.Status,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatRunDuration(r),
			fmt.Sprint(r.ReelsFoundCount),
			fmt.Sprint(r.ReelsAddedCount),
			fmt.Sprint(r.ErrorsCount),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "LEVEL", "STATUS", "STARTED", "DURATION", "FOUND", "ADDED", "ERRORS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(rows) {
				if s, ok := runStatusStyles[rows[row][2]]; ok {
					return s.Padding(0, 1)
				}
			}
			return cellStyle
		})
	return t.Render()
}

// RenderRunDetail renders one run with its error detail and direct children
func RenderRunDetail(run *models.RunLog, children []models.RunLog) string {
	var b strings.Builder

	field := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + " " + value + "\n")
	}
	field("ID", run.ID)
	if run.ParentRunID != nil {
		field("Parent", *run.ParentRunID)
	}
	field("Level", run.SourceType)
	if run.ProjectID != nil {
		field("Project", *run.ProjectID)
	}
	if run.SourceID != nil {
		field("Source", *run.SourceID)
	}
	status := run.Status
	if s, ok := runStatusStyles[status]; ok {
		status = s.Render(status)
	}
	field("Status", status)
	field("Started", run.StartedAt.Local().Format(time.RFC3339))
	if run.EndedAt != nil {
		field("Ended", run.EndedAt.Local().Format(time.RFC3339))
	}
	field("Duration", formatRunDuration(*run))
	field("Reels", fmt.Sprintf("%d found, %d added", run.ReelsFoundCount, run.ReelsAddedCount))
	field("Errors", fmt.Sprint(run.ErrorsCount))
	if run.LogMessage != "" {
		field("Message", run.LogMessage)
	}
	if len(run.ErrorDetails) > 0 && string(run.ErrorDetails) != "null" {
		field("Error", string(run.ErrorDetails))
	}

	if len(children) > 0 {
		b.WriteString("\n")
		b.WriteString(RenderRunTable(children))
		b.WriteString("\n")
	}
	return b.String()
}

func formatRunDuration(r models.RunLog) string {
	if r.EndedAt == nil {
		return "-"
	}
	return r.Duration().Round(time.Millisecond).String()
}

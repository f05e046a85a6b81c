package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderLogo())

	leftColumn := m.renderStatsPanel((m.width-4)/3) + "\n" + m.renderLogsPanel((m.width-4)/3)
	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftColumn,
		"  ",
		m.renderSourcesPanel(m.width-4-(m.width-4)/3),
	)
	sections = append(sections, mainContent)

	switch {
	case m.showHelp:
		sections = append(sections, m.renderHelp())
	case m.done:
		sections = append(sections, helpStyle.Render("Run finished. Press q or enter to exit"))
	case m.quitting:
		sections = append(sections, helpStyle.Render("Stopping..."))
	default:
		sections = append(sections, helpStyle.Render("Press ? for help, q to stop the run"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderLogo() string {
	logo := `
┏━┓┏━╸┏━╸╻  ┏━┓┏━╸┏━┓┏━┓┏━┓┏━╸┏━┓
┣┳┛┣╸ ┣╸ ┃  ┗━┓┃  ┣┳┛┣━┫┣━┛┣╸ ┣┳┛
╹┗╸┗━╸┗━╸┗━╸┗━┛┗━╸╹┗╸╹ ╹╹  ┗━╸╹┗╸
      DAILY REEL INGESTION`

	return logoStyle.Width(m.width).Render(logo)
}

func (m *Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" RUN STATS ")

	running, finished, failed, totals := m.Stats()
	elapsed := time.Since(m.startTime)
	if m.summary != nil {
		elapsed = m.summary.Duration
	}

	status := statsValueStyle.Render("running")
	if m.summary != nil {
		status = StatusStyle(m.summary.Status).Render(m.summary.Status)
	} else if m.done {
		status = errorStyle.Render("aborted")
	}

	stats := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Status:"), status),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatDuration(elapsed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Running:"), statsValueStyle.Render(fmt.Sprint(running))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Finished:"), statsValueStyle.Render(fmt.Sprint(finished))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Failed:"), errorStyle.Render(fmt.Sprint(failed))),
		"",
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Reels found:"), statsValueStyle.Render(fmt.Sprint(totals.Found))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Reels added:"), successStyle.Render(fmt.Sprint(totals.Added))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprint(totals.Errors))),
	}
	if m.summary != nil && m.summary.Resumed > 0 {
		stats = append(stats, warningStyle.Render(fmt.Sprintf("↺ %d sources resumed", m.summary.Resumed)))
	}
	if m.summary != nil && m.summary.DryRun {
		stats = append(stats, warningStyle.Render("DRY RUN"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

func (m *Model) renderSourcesPanel(width int) string {
	title := titleStyle.Render(" SOURCES ")

	rows := m.VisibleRows()
	if len(rows) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("Waiting for sources...")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, m.renderRow(row, width-8))
	}
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

func (m *Model) renderRow(row *SourceRow, width int) string {
	var icon, detail string
	switch row.State {
	case SourceRunning:
		icon = m.spinner.View()
		detail = formatDuration(time.Since(row.StartTime))
	case SourceFailed:
		icon = "✗"
		detail = "failed"
		if row.Err != nil {
			detail = row.Err.Error()
		}
	case SourceWithErrors:
		icon = "!"
		detail = fmt.Sprintf("%d/%d added, %d errors", row.Counts.Added, row.Counts.Found, row.Counts.Errors)
	default:
		icon = "✓"
		detail = fmt.Sprintf("%d/%d added", row.Counts.Added, row.Counts.Found)
	}

	name := fmt.Sprintf("%-10s %-9s %s", truncate(row.Project, 10), row.Type, row.Identifier)
	line := icon + " " + truncate(name+"  "+detail, width-2)

	if row.State == SourceRunning {
		return rowStyle.Render(line)
	}
	if row.State == SourceCompleted {
		return rowFinishedStyle.Render(line)
	}
	return StateStyle(row.State).PaddingLeft(1).Render(line)
}

func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOGS ")

	start := len(m.logMessages) - 8
	if start < 0 {
		start = 0
	}

	var logs []string
	for i := start; i < len(m.logMessages); i++ {
		log := m.logMessages[i]
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		message := logMessageStyle.Render(truncate(log.Message, width-25))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/ctrl+c - Stop the run (finishes run logs first), exit once done
    enter    - Exit once the run is done
    ctrl+l   - Clear logs
    ?        - Toggle this help

  Sources:
    ` + successStyle.Render("✓") + `        - Completed
    ` + warningStyle.Render("!") + `        - Completed with errors
    ` + errorStyle.Render("✗") + `        - Failed
`

	return panelStyle.Width(m.width).Render(help)
}

// truncate shortens s to max runes, marking the cut with "..."
func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"reelscraper/pkg/models"
	"reelscraper/pkg/pipeline"
)

// SourceStartedMsg is sent when a worker picks up a source
type SourceStartedMsg struct {
	Source pipeline.SourceInfo
}

// SourceFinishedMsg is sent when a source is done, successfully or not
type SourceFinishedMsg struct {
	Result pipeline.SourceResult
}

// RunDoneMsg is sent once the daily run returns
type RunDoneMsg struct {
	Summary *pipeline.Summary
	Err     error
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg refreshes elapsed times
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()

	case SourceStartedMsg:
		m.StartSource(msg.Source)
		return m, nil

	case SourceFinishedMsg:
		m.FinishSource(msg.Result)
		src := msg.Result.Source
		switch {
		case msg.Result.Err != nil:
			m.AddLogMessage("ERROR", fmt.Sprintf("%s %s: %v", src.Type, src.Identifier, msg.Result.Err))
		case msg.Result.Counts.Errors > 0:
			m.AddLogMessage("WARN", fmt.Sprintf("%s %s: %d reels failed to save", src.Type, src.Identifier, msg.Result.Counts.Errors))
		default:
			m.AddLogMessage("SUCCESS", fmt.Sprintf("%s %s: added %d of %d", src.Type, src.Identifier, msg.Result.Counts.Added, msg.Result.Counts.Found))
		}
		return m, nil

	case RunDoneMsg:
		m.SetDone(msg.Summary, msg.Err)
		switch {
		case msg.Summary == nil:
			m.AddLogMessage("ERROR", fmt.Sprintf("Run aborted: %v", msg.Err))
		case msg.Summary.Status == models.StatusFailed:
			m.AddLogMessage("ERROR", "Run failed")
		default:
			m.AddLogMessage("SUCCESS", "Run "+msg.Summary.Status)
		}
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.done {
			return m, tea.Quit
		}
		// cancel the run and wait for RunDoneMsg so run logs get closed
		if !m.quitting {
			m.quitting = true
			m.AddLogMessage("WARN", "Stopping run, waiting for workers...")
			if m.onQuit != nil {
				m.onQuit()
			}
		}
		return m, nil

	case "enter":
		if m.done {
			return m, tea.Quit
		}
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = []LogMessage{}
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

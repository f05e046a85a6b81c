package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"reelscraper/pkg/models"
	"reelscraper/pkg/pipeline"
	"reelscraper/pkg/runlog"
)

// SourceState is the display state of one source row
type SourceState int

const (
	SourceRunning SourceState = iota
	SourceCompleted
	SourceWithErrors
	SourceFailed
)

// SourceRow is one source shown by the monitor
type SourceRow struct {
	Key        string
	Project    string
	Type       string
	Identifier string
	State      SourceState
	Counts     runlog.Counts
	Err        error
	StartTime  time.Time
	Duration   time.Duration
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the bubbletea model of the run monitor. All mutation happens
// in Update, on the program goroutine.
type Model struct {
	spinner spinner.Model

	rows     map[string]*SourceRow
	order    []string
	maxRows  int
	running  int
	finished int
	failed   int
	totals   runlog.Counts

	startTime time.Time
	summary   *pipeline.Summary
	runErr    error
	done      bool

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	// onQuit is called once when the user quits before the run is done
	onQuit   func()
	quitting bool
}

// NewModel creates a monitor model. onQuit may be nil.
func NewModel(onQuit func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return Model{
		spinner:        s,
		rows:           make(map[string]*SourceRow),
		maxRows:        15,
		startTime:      time.Now(),
		maxLogMessages: 50,
		onQuit:         onQuit,
	}
}

// Init starts the spinner and the elapsed time ticker
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func rowKey(src pipeline.SourceInfo) string {
	return src.ProjectID + "/" + src.Key()
}

// StartSource adds or restarts the row of src
func (m *Model) StartSource(src pipeline.SourceInfo) {
	key := rowKey(src)
	row, ok := m.rows[key]
	if !ok {
		row = &SourceRow{Key: key}
		m.rows[key] = row
		m.order = append(m.order, key)
	}
	row.Project = src.ProjectName
	row.Type = src.Type
	row.Identifier = src.Identifier
	row.State = SourceRunning
	row.StartTime = time.Now()
	m.running++
}

// FinishSource records the result of a source. Results for sources that
// never reported a start (skipped from a checkpoint) only count toward
// the totals.
func (m *Model) FinishSource(res pipeline.SourceResult) {
	m.finished++
	m.totals = m.totals.Add(res.Counts)

	row, ok := m.rows[rowKey(res.Source)]
	if !ok {
		return
	}
	if row.State == SourceRunning {
		m.running--
	}
	row.Counts = res.Counts
	row.Err = res.Err
	row.Duration = res.Duration

	switch {
	case res.Err != nil || res.Status == models.StatusFailed:
		row.State = SourceFailed
		m.failed++
	case res.Counts.Errors > 0:
		row.State = SourceWithErrors
	default:
		row.State = SourceCompleted
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = errorRed
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// SetDone stores the outcome of the run
func (m *Model) SetDone(summary *pipeline.Summary, err error) {
	m.done = true
	m.summary = summary
	m.runErr = err
}

// VisibleRows returns running sources first, then the most recently
// finished ones, capped at maxRows.
func (m *Model) VisibleRows() []*SourceRow {
	var running, finished []*SourceRow
	for _, key := range m.order {
		row := m.rows[key]
		if row.State == SourceRunning {
			running = append(running, row)
		} else {
			finished = append(finished, row)
		}
	}

	rows := running
	if len(rows) > m.maxRows {
		return rows[:m.maxRows]
	}
	space := m.maxRows - len(rows)
	if len(finished) > space {
		finished = finished[len(finished)-space:]
	}
	// newest finished first
	for i := len(finished) - 1; i >= 0; i-- {
		rows = append(rows, finished[i])
	}
	return rows
}

// Stats returns the running, finished and failed source counts and the
// reel totals.
func (m *Model) Stats() (running, finished, failed int, totals runlog.Counts) {
	return m.running, m.finished, m.failed, m.totals
}

// Done reports whether the run has ended
func (m *Model) Done() bool {
	return m.done
}

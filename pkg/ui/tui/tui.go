// Package tui is the live monitor shown by "reelscraper run --tui".
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"reelscraper/pkg/pipeline"
)

// Monitor runs the bubbletea program and implements pipeline.Observer.
// Observer calls arrive from pipeline workers and are forwarded with
// program.Send, which is safe for concurrent use.
type Monitor struct {
	program *tea.Program
	model   *Model
}

// NewMonitor creates a monitor. onQuit is called when the user stops the
// run from the keyboard; it should cancel the run context.
func NewMonitor(onQuit func(), opts ...tea.ProgramOption) *Monitor {
	model := NewModel(onQuit)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &Monitor{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Run blocks until the user exits the monitor
func (t *Monitor) Run() error {
	_, err := t.program.Run()
	return err
}

// Stop quits the program without waiting for the user
func (t *Monitor) Stop() {
	t.program.Quit()
}

// Send sends a message to the program
func (t *Monitor) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *Monitor) SourceStarted(src pipeline.SourceInfo) {
	t.Send(SourceStartedMsg{Source: src})
}

func (t *Monitor) SourceFinished(res pipeline.SourceResult) {
	t.Send(SourceFinishedMsg{Result: res})
}

// Done reports the outcome of the daily run
func (t *Monitor) Done(summary *pipeline.Summary, err error) {
	t.Send(RunDoneMsg{Summary: summary, Err: err})
}

// Log sends a log message to the monitor
func (t *Monitor) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"reelscraper/pkg/pipeline"
)

// ConsoleReporter prints one line per finished source. It implements
// pipeline.Observer for runs without the live monitor.
type ConsoleReporter struct {
	mu       sync.Mutex
	out      io.Writer
	started  int
	finished int
	failed   int
	start    time.Time
}

// NewConsoleReporter writes progress lines to out
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out, start: time.Now()}
}

func (c *ConsoleReporter) SourceStarted(src pipeline.SourceInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
}

func (c *ConsoleReporter) SourceFinished(res pipeline.SourceResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.finished++
	mark := Green("✓")
	detail := fmt.Sprintf("found %d, added %d", res.Counts.Found, res.Counts.Added)
	switch {
	case res.Err != nil:
		c.failed++
		mark = Red("✗")
		detail = res.Err.Error()
	case res.Counts.Errors > 0:
		mark = Yellow("!")
		detail += fmt.Sprintf(", %d errors", res.Counts.Errors)
	}

	fmt.Fprintf(c.out, "%s %s %s %s %s %s\n",
		Dim(fmt.Sprintf("[%d]", c.finished)),
		mark,
		Cyan(res.Source.ProjectName),
		Dim(res.Source.Type),
		res.Source.Identifier,
		Dim(fmt.Sprintf("%s (%s)", detail, res.Duration.Round(time.Millisecond))),
	)
}

// Finished returns how many sources finished and how many of them failed
func (c *ConsoleReporter) Finished() (finished, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished, c.failed
}

// PrintSummary writes the outcome of a daily run
func PrintSummary(out io.Writer, s *pipeline.Summary) {
	if s == nil {
		return
	}
	title := "RUN SUMMARY"
	if s.DryRun {
		title += " (dry-run)"
	}
	fmt.Fprintf(out, "\n%s\n", Magenta(title))
	fmt.Fprintf(out, "  %-10s %s\n", Cyan("Run"), s.RunID)
	fmt.Fprintf(out, "  %-10s %s\n", Cyan("Status"), StatusColor(s.Status))
	fmt.Fprintf(out, "  %-10s %d\n", Cyan("Projects"), len(s.Projects))
	fmt.Fprintf(out, "  %-10s %d found, %d added, %d errors\n", Cyan("Reels"), s.Counts.Found, s.Counts.Added, s.Counts.Errors)
	if s.Resumed > 0 {
		fmt.Fprintf(out, "  %-10s %d sources skipped from checkpoint\n", Cyan("Resumed"), s.Resumed)
	}
	fmt.Fprintf(out, "  %-10s %s\n", Cyan("Duration"), s.Duration.Round(time.Millisecond))
}

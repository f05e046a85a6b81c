// Package scheduler triggers the daily run on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"reelscraper/pkg/logger"
)

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job is the work run on every tick
type Job func(ctx context.Context) error

// Scheduler runs one job on a cron expression. A tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	schedule cron.Schedule
	entryID  cron.EntryID
	job      Job
	logger   logger.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler for expr, a 5- or 6-field cron expression or a
// descriptor such as "@daily".
func New(expr string, job Job, log logger.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler job is required")
	}
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "scheduler")

	spec, err := normalizeCron(expr)
	if err != nil {
		return nil, err
	}
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	cl := cronLogger{log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		spec:     spec,
		schedule: schedule,
		job:      job,
		logger:   log,
		ctx:      context.Background(),
	}

	s.entryID, err = s.cron.AddFunc(spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule job: %w", err)
	}
	return s, nil
}

// Spec returns the normalized 6-field expression
func (s *Scheduler) Spec() string {
	return s.spec
}

// Start begins firing the job. Jobs receive a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.InfoWithFields("Scheduler started", map[string]interface{}{
		"cron":     s.spec,
		"next_run": s.Next(),
	})
}

// Stop stops the scheduler and waits for a running job to return
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-stopCtx.Done()
	s.logger.Info("Scheduler stopped")
}

// Next returns the next time the job fires
func (s *Scheduler) Next() time.Time {
	if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
		return next
	}
	return s.schedule.Next(time.Now())
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	start := time.Now()
	s.logger.Info("Scheduled run starting")
	if err := s.job(ctx); err != nil {
		s.logger.WithError(err).WarnWithFields("Scheduled run finished with error", map[string]interface{}{
			"duration": time.Since(start).String(),
		})
		return
	}
	s.logger.InfoWithFields("Scheduled run finished", map[string]interface{}{
		"duration": time.Since(start).String(),
		"next_run": s.Next(),
	})
}

// normalizeCron converts a 5-field expression to the 6-field form used
// with cron.WithSeconds by prepending a zero seconds field.
func normalizeCron(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", fmt.Errorf("cron expression is required")
	}

	if strings.HasPrefix(expr, "@") {
		if _, err := parser.Parse(expr); err != nil {
			return "", fmt.Errorf("invalid cron descriptor: %w", err)
		}
		return expr, nil
	}

	fields := strings.Fields(expr)
	switch len(fields) {
	case 6:
		if _, err := parser.Parse(expr); err != nil {
			return "", fmt.Errorf("invalid 6-field cron expression: %w", err)
		}
		return strings.Join(fields, " "), nil
	case 5:
		if _, err := cron.ParseStandard(expr); err != nil {
			return "", fmt.Errorf("invalid 5-field cron expression: %w", err)
		}
		return "0 " + strings.Join(fields, " "), nil
	default:
		return "", fmt.Errorf("invalid cron expression: expected 5 or 6 fields, got %d", len(fields))
	}
}

// cronLogger routes robfig/cron's logging through our Logger
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.DebugWithFields("cron: "+msg, kvFields(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.WithError(err).ErrorWithFields("cron: "+msg, kvFields(keysAndValues))
}

func kvFields(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}

package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogActorCall records one actor invocation
func LogActorCall(l Logger, identifiers []string, items int, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"identifiers": identifiers,
		"items":       items,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		l.WithError(err).ErrorWithFields("Actor invocation failed", fields)
		return
	}
	l.InfoWithFields("Actor invocation completed", fields)
}

// LogRunFinished records a terminal run transition
func LogRunFinished(l Logger, runID, level, status string, found, added, errorsCount int) {
	fields := map[string]interface{}{
		"run_id":       runID,
		"level":        level,
		"status":       status,
		"reels_found":  found,
		"reels_added":  added,
		"errors_count": errorsCount,
	}
	if status == "failed" {
		l.WarnWithFields("Run finished", fields)
		return
	}
	l.InfoWithFields("Run finished", fields)
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}

// Package runlog records the overall > project > source run hierarchy.
package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
	"reelscraper/pkg/store"
)

var (
	// ErrRunNotRunning is returned by Finish for unknown or already
	// finished runs.
	ErrRunNotRunning = errors.New("run is not running")
	// ErrInvalidStatus is returned by Finish for a non-terminal status.
	ErrInvalidStatus = errors.New("invalid terminal status")
)

const (
	maxMessageLen = 1000
	maxStackLen   = 16000
)

// Store is the persistence the tracker writes through.
type Store interface {
	InsertRunLog(ctx context.Context, run *models.RunLog) error
	UpdateRunLog(ctx context.Context, id string, fields map[string]interface{}) (*models.RunLog, error)
}

// Entry describes a unit of work being started.
type Entry struct {
	Level     string
	ParentID  string
	ProjectID string
	SourceID  string
	Message   string
}

// Counts are the reel counters carried by every run.
type Counts struct {
	Found  int
	Added  int
	Errors int
}

// Add returns the element-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{Found: c.Found + o.Found, Added: c.Added + o.Added, Errors: c.Errors + o.Errors}
}

// Outcome is the terminal update of a run.
type Outcome struct {
	Status  string
	Counts  Counts
	Message string
	Err     *models.ErrorDetail
}

// Tracker starts and finishes run logs. In dry-run mode it only logs.
type Tracker struct {
	store  Store
	dryRun bool
	logger logger.Logger
	now    func() time.Time

	// open holds finishes in progress, and in dry-run every started run
	// that has not finished yet, since no row guards it there
	mu   sync.Mutex
	open map[string]bool
}

// NewTracker creates a tracker writing to s.
func NewTracker(s Store, dryRun bool, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Tracker{
		store:    s,
		dryRun:   dryRun,
		logger:   log.WithField("component", "runlog"),
		now:      func() time.Time { return time.Now().UTC() },
		open:     make(map[string]bool),
	}
}

// Start records a running entry and returns its id. It never fails: when
// the store rejects the row the error is logged and the id is still
// returned so the caller's flow continues.
func (t *Tracker) Start(ctx context.Context, e Entry) string {
	id := uuid.New().String()
	fields := map[string]interface{}{
		"run_id":    id,
		"level":     e.Level,
		"parent_id": e.ParentID,
	}
	if e.SourceID != "" {
		fields["source_id"] = e.SourceID
	}

	if t.dryRun {
		t.mu.Lock()
		t.open[id] = true
		t.mu.Unlock()
		t.logger.InfoWithFields("[dry-run] run started", fields)
		return id
	}

	run := &models.RunLog{
		ID:          id,
		ParentRunID: optional(e.ParentID),
		ProjectID:   optional(e.ProjectID),
		SourceType:  e.Level,
		SourceID:    optional(e.SourceID),
		Status:      models.StatusRunning,
		StartedAt:   t.now(),
		LogMessage:  truncate(e.Message, maxMessageLen),
	}
	if err := t.store.InsertRunLog(ctx, run); err != nil {
		t.logger.WithError(err).WarnWithFields("Failed to record run start", fields)
		return id
	}

	t.logger.DebugWithFields("Run started", fields)
	return id
}

// Finish moves a running entry to its terminal status. It must be called
// at most once per id; later calls return ErrRunNotRunning.
func (t *Tracker) Finish(ctx context.Context, id string, o Outcome) error {
	if !models.CanTransition(models.StatusRunning, o.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, o.Status)
	}

	if t.dryRun {
		t.mu.Lock()
		started := t.open[id]
		delete(t.open, id)
		t.mu.Unlock()
		if !started {
			return ErrRunNotRunning
		}

		t.logger.InfoWithFields("[dry-run] run finished", map[string]interface{}{
			"run_id":       id,
			"status":       o.Status,
			"reels_found":  o.Counts.Found,
			"reels_added":  o.Counts.Added,
			"errors_count": o.Counts.Errors,
		})
		return nil
	}

	t.mu.Lock()
	if t.open[id] {
		t.mu.Unlock()
		return ErrRunNotRunning
	}
	t.open[id] = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.open, id)
		t.mu.Unlock()
	}()

	updates := map[string]interface{}{
		"status":            o.Status,
		"ended_at":          t.now(),
		"reels_found_count": o.Counts.Found,
		"reels_added_count": o.Counts.Added,
		"errors_count":      o.Counts.Errors,
	}
	if o.Message != "" {
		updates["log_message"] = truncate(o.Message, maxMessageLen)
	}
	if o.Err != nil {
		detail, err := encodeDetail(o.Err)
		if err != nil {
			t.logger.WithError(err).Warn("Failed to encode error detail")
		} else {
			updates["error_details"] = detail
		}
	}

	run, err := t.store.UpdateRunLog(ctx, id, updates)
	if errors.Is(err, store.ErrRunLogNotFound) {
		return ErrRunNotRunning
	}
	if err != nil {
		t.logger.WithError(err).WarnWithFields("Failed to record run finish", map[string]interface{}{
			"run_id": id,
			"status": o.Status,
		})
		return err
	}

	logger.LogRunFinished(t.logger, run.ID, run.SourceType, run.Status,
		run.ReelsFoundCount, run.ReelsAddedCount, run.ErrorsCount)
	return nil
}

// DetailFromError builds the stored error detail for err.
func DetailFromError(err error) *models.ErrorDetail {
	if err == nil {
		return nil
	}
	return &models.ErrorDetail{
		Message: truncate(err.Error(), maxMessageLen),
		Type:    string(errs.TypeOf(err)),
	}
}

// DetailFromPanic builds the stored error detail for a recovered panic.
func DetailFromPanic(recovered interface{}, stack []byte) *models.ErrorDetail {
	return &models.ErrorDetail{
		Message: truncate(fmt.Sprintf("panic: %v", recovered), maxMessageLen),
		Type:    "panic",
		Stack:   truncate(string(stack), maxStackLen),
	}
}

func encodeDetail(d *models.ErrorDetail) (datatypes.JSON, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// truncate caps s at max bytes without splitting a UTF-8 sequence
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := max - 3
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Run statuses. A run starts as running and moves exactly once to one of
// the terminal statuses.
const (
	StatusRunning             = "running"
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed_with_errors"
	StatusFailed              = "failed"
)

// Run levels, stored in RunLog.SourceType.
const (
	LevelOverall    = "overall_run"
	LevelProject    = "project_processing"
	LevelCompetitor = SourceCompetitor
	LevelHashtag    = SourceHashtag
)

var allowedTransitions = map[string]map[string]bool{
	"": {
		StatusRunning: true,
	},
	StatusRunning: {
		StatusCompleted:           true,
		StatusCompletedWithErrors: true,
		StatusFailed:              true,
	},
	StatusCompleted:           {},
	StatusCompletedWithErrors: {},
	StatusFailed:              {},
}

func IsKnownStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok && status != ""
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// IsTerminal reports whether status ends a run.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCompletedWithErrors || status == StatusFailed
}

// StatusForErrors picks the terminal status of a run that produced a result.
func StatusForErrors(errorsCount int) string {
	if errorsCount > 0 {
		return StatusCompletedWithErrors
	}
	return StatusCompleted
}

// ErrorDetail is the structured failure stored in RunLog.ErrorDetails.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// RunLog is one unit of work in the overall > project > source hierarchy.
type RunLog struct {
	ID              string         `gorm:"primaryKey" json:"id"`
	ParentRunID     *string        `gorm:"index;column:parent_run_id" json:"parent_run_id,omitempty"`
	ProjectID       *string        `gorm:"index;column:project_id" json:"project_id,omitempty"`
	SourceType      string         `gorm:"not null;column:source_type" json:"source_type"`
	SourceID        *string        `gorm:"column:source_id" json:"source_id,omitempty"`
	Status          string         `gorm:"not null;index" json:"status"`
	StartedAt       time.Time      `gorm:"not null;column:started_at" json:"started_at"`
	EndedAt         *time.Time     `gorm:"column:ended_at" json:"ended_at,omitempty"`
	ReelsFoundCount int            `gorm:"not null;column:reels_found_count" json:"reels_found_count"`
	ReelsAddedCount int            `gorm:"not null;column:reels_added_count" json:"reels_added_count"`
	ErrorsCount     int            `gorm:"not null;column:errors_count" json:"errors_count"`
	LogMessage      string         `gorm:"type:text;column:log_message" json:"log_message,omitempty"`
	ErrorDetails    datatypes.JSON `gorm:"column:error_details" json:"error_details,omitempty"`
}

func (r *RunLog) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func (RunLog) TableName() string {
	return "run_logs"
}

// Duration is the wall time of a finished run, zero while running.
func (r RunLog) Duration() time.Duration {
	if r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

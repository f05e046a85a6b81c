package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/models"
)

// ListOptions filters ListRunLogs.
type ListOptions struct {
	Limit    int
	Offset   int
	ParentID string
	Status   string
	// TopLevel restricts the listing to overall runs
	TopLevel bool
}

// InsertRunLog stores a new run log row.
func (s *Store) InsertRunLog(ctx context.Context, run *models.RunLog) error {
	if err := s.withCtx(ctx).Create(run).Error; err != nil {
		return errs.Wrap("store.insert_run_log", errs.ErrorTypeDatabase, err)
	}
	return nil
}

// UpdateRunLog applies fields to a running run log and returns the updated
// row. Rows that are missing or already terminal are left untouched and
// ErrRunLogNotFound is returned.
func (s *Store) UpdateRunLog(ctx context.Context, id string, fields map[string]interface{}) (*models.RunLog, error) {
	res := s.withCtx(ctx).
		Model(&models.RunLog{}).
		Where("id = ? AND status = ?", id, models.StatusRunning).
		Updates(fields)
	if res.Error != nil {
		return nil, errs.Wrap("store.update_run_log", errs.ErrorTypeDatabase, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrRunLogNotFound
	}
	return s.GetRunLog(ctx, id)
}

// GetRunLog loads one run log by id.
func (s *Store) GetRunLog(ctx context.Context, id string) (*models.RunLog, error) {
	var run models.RunLog
	err := s.withCtx(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunLogNotFound
	}
	if err != nil {
		return nil, errs.Wrap("store.get_run_log", errs.ErrorTypeDatabase, err)
	}
	return &run, nil
}

// ListRunLogs returns run logs newest first plus the total matching count.
func (s *Store) ListRunLogs(ctx context.Context, opts ListOptions) ([]models.RunLog, int64, error) {
	q := s.withCtx(ctx).Model(&models.RunLog{})
	if opts.ParentID != "" {
		q = q.Where("parent_run_id = ?", opts.ParentID)
	}
	if opts.TopLevel {
		q = q.Where("parent_run_id IS NULL")
	}
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errs.Wrap("store.list_run_logs", errs.ErrorTypeDatabase, err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	var runs []models.RunLog
	err := q.Order("started_at DESC").Limit(limit).Offset(opts.Offset).Find(&runs).Error
	if err != nil {
		return nil, 0, errs.Wrap("store.list_run_logs", errs.ErrorTypeDatabase, err)
	}
	return runs, total, nil
}

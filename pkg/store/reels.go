package store

import (
	"context"

	"gorm.io/gorm/clause"

	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/models"
)

const insertBatchSize = 200

var ignoreURLConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "reel_url"}},
	DoNothing: true,
}

// ExistsByURL reports whether a reel with url is stored.
func (s *Store) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var count int64
	err := s.withCtx(ctx).Model(&models.Reel{}).Where("reel_url = ?", url).Count(&count).Error
	if err != nil {
		return false, errs.Wrap("store.exists_by_url", errs.ErrorTypeDatabase, err)
	}
	return count > 0, nil
}

// InsertOne stores reel. It returns false when another writer stored the
// same URL first.
func (s *Store) InsertOne(ctx context.Context, reel *models.Reel) (bool, error) {
	res := s.withCtx(ctx).Clauses(ignoreURLConflict).Create(reel)
	if res.Error != nil {
		return false, errs.Wrap("store.insert_one", errs.ErrorTypeDatabase, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// InsertManyIgnoringConflicts stores every reel whose URL is new and
// returns how many rows were actually inserted.
func (s *Store) InsertManyIgnoringConflicts(ctx context.Context, reels []models.Reel) (int64, error) {
	if len(reels) == 0 {
		return 0, nil
	}
	res := s.withCtx(ctx).Clauses(ignoreURLConflict).CreateInBatches(reels, insertBatchSize)
	if res.Error != nil {
		return 0, errs.Wrap("store.insert_many", errs.ErrorTypeDatabase, res.Error)
	}
	return res.RowsAffected, nil
}

// CountReels counts stored reels, optionally for one project.
func (s *Store) CountReels(ctx context.Context, projectID string) (int64, error) {
	q := s.withCtx(ctx).Model(&models.Reel{})
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, errs.Wrap("store.count_reels", errs.ErrorTypeDatabase, err)
	}
	return count, nil
}

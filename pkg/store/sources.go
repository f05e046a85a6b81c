package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/models"
)

// ListActiveUsers returns active users ordered by name.
func (s *Store) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.withCtx(ctx).Where("is_active = ?", true).Order("name").Find(&users).Error
	if err != nil {
		return nil, errs.Wrap("store.list_users", errs.ErrorTypeDatabase, err)
	}
	return users, nil
}

// ListActiveProjects returns a user's active projects.
func (s *Store) ListActiveProjects(ctx context.Context, userID string) ([]models.Project, error) {
	var projects []models.Project
	err := s.withCtx(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("name").
		Find(&projects).Error
	if err != nil {
		return nil, errs.Wrap("store.list_projects", errs.ErrorTypeDatabase, err)
	}
	return projects, nil
}

// ListActiveCompetitors returns a project's active competitors.
func (s *Store) ListActiveCompetitors(ctx context.Context, projectID string) ([]models.Competitor, error) {
	var competitors []models.Competitor
	err := s.withCtx(ctx).
		Where("project_id = ? AND is_active = ?", projectID, true).
		Order("created_at, id").
		Find(&competitors).Error
	if err != nil {
		return nil, errs.Wrap("store.list_competitors", errs.ErrorTypeDatabase, err)
	}
	return competitors, nil
}

// ListActiveHashtags returns a project's active hashtags.
func (s *Store) ListActiveHashtags(ctx context.Context, projectID string) ([]models.Hashtag, error) {
	var hashtags []models.Hashtag
	err := s.withCtx(ctx).
		Where("project_id = ? AND is_active = ?", projectID, true).
		Order("created_at, id").
		Find(&hashtags).Error
	if err != nil {
		return nil, errs.Wrap("store.list_hashtags", errs.ErrorTypeDatabase, err)
	}
	return hashtags, nil
}

// ImportResult counts rows created by ImportUsers.
type ImportResult struct {
	Users       int
	Projects    int
	Competitors int
	Hashtags    int
}

// ImportUsers merges user trees into the store in one transaction. Users
// and projects are matched by name; competitors and hashtags already
// present in a project are left alone.
func (s *Store) ImportUsers(ctx context.Context, users []models.User) (ImportResult, error) {
	var result ImportResult

	err := s.withCtx(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range users {
			user := models.User{Name: u.Name, IsActive: u.IsActive}
			created, err := findOrCreate(tx, &user, "name = ?", u.Name)
			if err != nil {
				return err
			}
			if created {
				result.Users++
			}

			for _, p := range u.Projects {
				project := models.Project{UserID: user.ID, Name: p.Name, IsActive: p.IsActive}
				created, err := findOrCreate(tx, &project, "user_id = ? AND name = ?", user.ID, p.Name)
				if err != nil {
					return err
				}
				if created {
					result.Projects++
				}

				for _, c := range p.Competitors {
					comp := models.Competitor{
						ProjectID:  project.ID,
						Username:   c.Username,
						ProfileURL: c.ProfileURL,
						IsActive:   c.IsActive,
					}
					created, err := findOrCreate(tx, &comp, "project_id = ? AND username = ?", project.ID, c.Username)
					if err != nil {
						return err
					}
					if created {
						result.Competitors++
					}
				}

				for _, h := range p.Hashtags {
					tag := models.Hashtag{ProjectID: project.ID, TagName: h.TagName, IsActive: h.IsActive}
					created, err := findOrCreate(tx, &tag, "project_id = ? AND tag_name = ?", project.ID, h.TagName)
					if err != nil {
						return err
					}
					if created {
						result.Hashtags++
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, errs.Wrap("store.import_users", errs.ErrorTypeDatabase, err)
	}
	return result, nil
}

// findOrCreate loads the row matching query into dest, or inserts dest
// when there is none. It reports whether a row was inserted.
func findOrCreate[T any](tx *gorm.DB, dest *T, query string, args ...interface{}) (bool, error) {
	var existing T
	err := tx.Where(query, args...).First(&existing).Error
	if err == nil {
		*dest = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return true, tx.Create(dest).Error
}

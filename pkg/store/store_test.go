package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"reelscraper/pkg/config"
	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
	"reelscraper/pkg/store"
	"reelscraper/pkg/store/storetest"
)

func reel(url string) models.Reel {
	return models.Reel{
		ReelURL:    url,
		ProjectID:  "p1",
		SourceType: models.SourceCompetitor,
		SourceID:   "c1",
		ViewsCount: 100,
		RawData:    datatypes.JSON(`{"url":"` + url + `"}`),
	}
}

func TestOpenUnsupportedURL(t *testing.T) {
	_, err := store.Open(context.Background(), config.DatabaseConfig{URL: "mysql://x", ConnectAttempts: 1}, logger.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeConfig))
}

func TestOpenFileDatabase(t *testing.T) {
	path := t.TempDir() + "/nested/reels.db"
	s, err := store.Open(context.Background(), config.DatabaseConfig{
		URL:             "sqlite://" + path,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnectAttempts: 1,
	}, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, path)
}

func TestInsertOneAndExists(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	exists, err := s.ExistsByURL(ctx, "https://x/reel/1/")
	require.NoError(t, err)
	assert.False(t, exists)

	r := reel("https://x/reel/1/")
	added, err := s.InsertOne(ctx, &r)
	require.NoError(t, err)
	assert.True(t, added)
	assert.NotEmpty(t, r.ID)

	exists, err = s.ExistsByURL(ctx, "https://x/reel/1/")
	require.NoError(t, err)
	assert.True(t, exists)

	dup := reel("https://x/reel/1/")
	added, err = s.InsertOne(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, added)

	count, err := s.CountReels(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestInsertManyIgnoringConflicts(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	n, err := s.InsertManyIgnoringConflicts(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	batch := []models.Reel{reel("u1"), reel("u2"), reel("u3")}
	n, err = s.InsertManyIgnoringConflicts(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	again := []models.Reel{reel("u1"), reel("u2"), reel("u3"), reel("u4")}
	n, err = s.InsertManyIgnoringConflicts(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	total, err := s.CountReels(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	other, err := s.CountReels(ctx, "p2")
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestRunLogLifecycle(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	run := &models.RunLog{
		SourceType: models.LevelOverall,
		Status:     models.StatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, s.InsertRunLog(ctx, run))
	require.NotEmpty(t, run.ID)

	ended := time.Now().UTC()
	updated, err := s.UpdateRunLog(ctx, run.ID, map[string]interface{}{
		"status":            models.StatusCompleted,
		"ended_at":          ended,
		"reels_found_count": 5,
		"reels_added_count": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, 5, updated.ReelsFoundCount)
	assert.Equal(t, 3, updated.ReelsAddedCount)
	require.NotNil(t, updated.EndedAt)

	// terminal rows are frozen
	_, err = s.UpdateRunLog(ctx, run.ID, map[string]interface{}{"status": models.StatusFailed})
	assert.ErrorIs(t, err, store.ErrRunLogNotFound)

	_, err = s.UpdateRunLog(ctx, "missing", map[string]interface{}{"status": models.StatusFailed})
	assert.ErrorIs(t, err, store.ErrRunLogNotFound)

	_, err = s.GetRunLog(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrRunLogNotFound)
}

func TestListRunLogs(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	parent := &models.RunLog{SourceType: models.LevelOverall, Status: models.StatusCompleted, StartedAt: base}
	require.NoError(t, s.InsertRunLog(ctx, parent))

	for i := 0; i < 3; i++ {
		status := models.StatusCompleted
		if i == 1 {
			status = models.StatusFailed
		}
		child := &models.RunLog{
			ParentRunID: &parent.ID,
			SourceType:  models.LevelProject,
			Status:      status,
			StartedAt:   base.Add(time.Duration(i+1) * time.Minute),
		}
		require.NoError(t, s.InsertRunLog(ctx, child))
	}

	all, total, err := s.ListRunLogs(ctx, store.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, all, 4)
	assert.True(t, all[0].StartedAt.After(all[3].StartedAt), "newest first")

	children, total, err := s.ListRunLogs(ctx, store.ListOptions{ParentID: parent.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, children, 3)

	failed, _, err := s.ListRunLogs(ctx, store.ListOptions{Status: models.StatusFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	top, _, err := s.ListRunLogs(ctx, store.ListOptions{TopLevel: true})
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, parent.ID, top[0].ID)

	page, total, err := s.ListRunLogs(ctx, store.ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, page, 2)
}

func TestImportAndListSources(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	users := []models.User{
		{
			Name:     "alice",
			IsActive: true,
			Projects: []models.Project{
				{
					Name:     "coffee",
					IsActive: true,
					Competitors: []models.Competitor{
						{Username: "bluebottle", IsActive: true},
						{Username: "stumptown", ProfileURL: "https://www.instagram.com/stumptown/", IsActive: true},
						{Username: "dormant", IsActive: false},
					},
					Hashtags: []models.Hashtag{{TagName: "#latteart", IsActive: true}},
				},
				{Name: "archived", IsActive: false},
			},
		},
		{Name: "bob", IsActive: false},
	}

	res, err := s.ImportUsers(ctx, users)
	require.NoError(t, err)
	assert.Equal(t, store.ImportResult{Users: 2, Projects: 2, Competitors: 3, Hashtags: 1}, res)

	// importing again is a no-op
	res, err = s.ImportUsers(ctx, users)
	require.NoError(t, err)
	assert.Equal(t, store.ImportResult{}, res)

	active, err := s.ListActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "alice", active[0].Name)

	projects, err := s.ListActiveProjects(ctx, active[0].ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "coffee", projects[0].Name)

	competitors, err := s.ListActiveCompetitors(ctx, projects[0].ID)
	require.NoError(t, err)
	assert.Len(t, competitors, 2)

	hashtags, err := s.ListActiveHashtags(ctx, projects[0].ID)
	require.NoError(t, err)
	require.Len(t, hashtags, 1)
	assert.Equal(t, "#latteart", hashtags[0].TagName)
}

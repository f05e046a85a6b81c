package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
	"reelscraper/pkg/store/storetest"
)

func TestStartAndFinish(t *testing.T) {
	s := storetest.New(t)
	tr := NewTracker(s, false, logger.NewNopLogger())
	ctx := context.Background()

	overall := tr.Start(ctx, Entry{Level: models.LevelOverall, Message: "daily run"})
	project := tr.Start(ctx, Entry{Level: models.LevelProject, ParentID: overall, ProjectID: "p1"})

	run, err := s.GetRunLog(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, run.Status)
	assert.Nil(t, run.EndedAt)
	require.NotNil(t, run.ParentRunID)
	assert.Equal(t, overall, *run.ParentRunID)
	require.NotNil(t, run.ProjectID)
	assert.Equal(t, "p1", *run.ProjectID)
	assert.Nil(t, run.SourceID)

	err = tr.Finish(ctx, project, Outcome{
		Status:  models.StatusCompletedWithErrors,
		Counts:  Counts{Found: 10, Added: 4, Errors: 1},
		Message: "1 source failed",
	})
	require.NoError(t, err)

	run, err = s.GetRunLog(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompletedWithErrors, run.Status)
	require.NotNil(t, run.EndedAt)
	assert.Equal(t, 10, run.ReelsFoundCount)
	assert.Equal(t, 4, run.ReelsAddedCount)
	assert.Equal(t, 1, run.ErrorsCount)
	assert.Equal(t, "1 source failed", run.LogMessage)
}

func TestFinishTwice(t *testing.T) {
	s := storetest.New(t)
	tr := NewTracker(s, false, logger.NewNopLogger())
	ctx := context.Background()

	id := tr.Start(ctx, Entry{Level: models.LevelCompetitor, SourceID: "c1"})
	require.NoError(t, tr.Finish(ctx, id, Outcome{Status: models.StatusCompleted}))

	err := tr.Finish(ctx, id, Outcome{Status: models.StatusFailed})
	assert.ErrorIs(t, err, ErrRunNotRunning)

	// a second tracker bypasses the in-memory guard; the SQL guard holds
	other := NewTracker(s, false, logger.NewNopLogger())
	err = other.Finish(ctx, id, Outcome{Status: models.StatusFailed})
	assert.ErrorIs(t, err, ErrRunNotRunning)

	run, err := s.GetRunLog(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, run.Status)
}

func TestFinishRejectsNonTerminalStatus(t *testing.T) {
	tr := NewTracker(storetest.New(t), false, logger.NewNopLogger())
	id := tr.Start(context.Background(), Entry{Level: models.LevelOverall})

	err := tr.Finish(context.Background(), id, Outcome{Status: models.StatusRunning})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// the run can still be finished properly
	assert.NoError(t, tr.Finish(context.Background(), id, Outcome{Status: models.StatusCompleted}))
}

func TestFinishStoresErrorDetail(t *testing.T) {
	s := storetest.New(t)
	tr := NewTracker(s, false, logger.NewNopLogger())
	ctx := context.Background()

	id := tr.Start(ctx, Entry{Level: models.LevelHashtag, SourceID: "h1"})
	actorErr := errs.New("actor.invoke", errs.ErrorTypeAuth, "token rejected")
	require.NoError(t, tr.Finish(ctx, id, Outcome{
		Status: models.StatusFailed,
		Counts: Counts{Errors: 1},
		Err:    DetailFromError(actorErr),
	}))

	run, err := s.GetRunLog(ctx, id)
	require.NoError(t, err)

	var detail models.ErrorDetail
	require.NoError(t, json.Unmarshal(run.ErrorDetails, &detail))
	assert.Equal(t, "auth", detail.Type)
	assert.Contains(t, detail.Message, "token rejected")
}

type failingStore struct {
	inserts int
}

func (f *failingStore) InsertRunLog(ctx context.Context, run *models.RunLog) error {
	f.inserts++
	return errors.New("database is locked")
}

func (f *failingStore) UpdateRunLog(ctx context.Context, id string, fields map[string]interface{}) (*models.RunLog, error) {
	return nil, errors.New("database is locked")
}

func TestStartNeverFails(t *testing.T) {
	fs := &failingStore{}
	tl := logger.NewTestLogger()
	tr := NewTracker(fs, false, tl)

	id := tr.Start(context.Background(), Entry{Level: models.LevelOverall})
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, fs.inserts)
	assert.True(t, tl.HasMessage("Failed to record run start"))

	err := tr.Finish(context.Background(), id, Outcome{Status: models.StatusCompleted})
	assert.EqualError(t, err, "database is locked")
}

func TestDryRunWritesNothing(t *testing.T) {
	fs := &failingStore{}
	tl := logger.NewTestLogger()
	tr := NewTracker(fs, true, tl)
	ctx := context.Background()

	id := tr.Start(ctx, Entry{Level: models.LevelOverall})
	require.NoError(t, tr.Finish(ctx, id, Outcome{Status: models.StatusCompleted}))
	assert.ErrorIs(t, tr.Finish(ctx, id, Outcome{Status: models.StatusCompleted}), ErrRunNotRunning)

	assert.Zero(t, fs.inserts)
	assert.True(t, tl.HasMessage("[dry-run] run started"))
	assert.True(t, tl.HasMessage("[dry-run] run finished"))
}

func TestCountsAdd(t *testing.T) {
	total := Counts{}.Add(Counts{Found: 3, Added: 2}).Add(Counts{Found: 1, Errors: 1})
	assert.Equal(t, Counts{Found: 4, Added: 2, Errors: 1}, total)
}

func TestDetailHelpers(t *testing.T) {
	assert.Nil(t, DetailFromError(nil))

	d := DetailFromError(errors.New("plain"))
	assert.Equal(t, "unknown", d.Type)

	p := DetailFromPanic("nil map write", []byte(strings.Repeat("x", maxStackLen+10)))
	assert.Equal(t, "panic", p.Type)
	assert.Equal(t, "panic: nil map write", p.Message)
	assert.Len(t, p.Stack, maxStackLen)
	assert.True(t, strings.HasSuffix(p.Stack, "..."))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "abc", 10, "abc"},
		{"ascii", "abcdefghij", 8, "abcde..."},
		{"cut inside two-byte rune", "abcéxyz", 7, "abc..."},
		{"rune ends before cut", "abcéxyzw", 8, "abcé..."},
		{"three-byte runes", "日本語日本語", 10, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) is not valid UTF-8", tt.in, tt.max)
			}
		})
	}

	d := DetailFromError(errors.New(strings.Repeat("a", maxMessageLen-4) + strings.Repeat("é", 10)))
	assert.True(t, utf8.ValidString(d.Message))
	assert.LessOrEqual(t, len(d.Message), maxMessageLen)
	assert.True(t, strings.HasSuffix(d.Message, "..."))
}

func TestTrackerForgetsFinishedRuns(t *testing.T) {
	ctx := context.Background()

	t.Run("database", func(t *testing.T) {
		tr := NewTracker(storetest.New(t), false, logger.NewNopLogger())
		for i := 0; i < 50; i++ {
			id := tr.Start(ctx, Entry{Level: models.LevelHashtag, SourceID: "h1"})
			require.NoError(t, tr.Finish(ctx, id, Outcome{Status: models.StatusCompleted}))
			assert.ErrorIs(t, tr.Finish(ctx, id, Outcome{Status: models.StatusFailed}), ErrRunNotRunning)
		}
		assert.Empty(t, tr.open)
	})

	t.Run("dry-run", func(t *testing.T) {
		tr := NewTracker(&failingStore{}, true, logger.NewNopLogger())
		for i := 0; i < 50; i++ {
			id := tr.Start(ctx, Entry{Level: models.LevelHashtag})
			require.NoError(t, tr.Finish(ctx, id, Outcome{Status: models.StatusCompleted}))
		}
		assert.Empty(t, tr.open)
		assert.ErrorIs(t, tr.Finish(ctx, "never-started", Outcome{Status: models.StatusCompleted}), ErrRunNotRunning)
	})
}

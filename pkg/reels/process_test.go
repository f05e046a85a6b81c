package reels

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelscraper/pkg/actor"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func int64p(v int64) *int64 { return &v }
func intp(v int) *int       { return &v }

func item(typ, url string, views *int64, ts time.Time) actor.RawItem {
	it := actor.RawItem{Type: typ, URL: url, VideoPlayCount: views}
	if !ts.IsZero() {
		it.Timestamp = ts.Format(time.RFC3339)
	}
	return it
}

func TestProcessScenario(t *testing.T) {
	dayAgo := testNow.Add(-24 * time.Hour)
	items := []actor.RawItem{
		item("Video", "u1", int64p(100), dayAgo),
		item("Video", "u2", int64p(5), dayAgo),
		item("Image", "u3", int64p(999), dayAgo),
	}

	out, stats := Process(items, Filter{MinViews: int64p(50), MaxAgeDays: intp(7)}, testNow)

	require.Len(t, out, 1)
	assert.Equal(t, "u1", out[0].ReelURL)
	assert.Equal(t, int64(100), out[0].ViewsCount)
	assert.Equal(t, Stats{Input: 3, NotVideo: 1, TooFewViews: 1, Kept: 1}, stats)
	assert.Equal(t, 2, stats.Dropped())
}

func TestProcessFilters(t *testing.T) {
	recent := testNow.Add(-2 * 24 * time.Hour)
	old := testNow.Add(-30 * 24 * time.Hour)

	tests := []struct {
		name   string
		item   actor.RawItem
		filter Filter
		keep   bool
	}{
		{"no filters keeps video", item("Video", "u", nil, time.Time{}), Filter{}, true},
		{"clips product type", actor.RawItem{Type: "Image", ProductType: "clips", URL: "u"}, Filter{}, true},
		{"not video", item("Sidecar", "u", int64p(10), recent), Filter{}, false},
		{"age ok", item("Video", "u", nil, recent), Filter{MaxAgeDays: intp(7)}, true},
		{"too old", item("Video", "u", nil, old), Filter{MaxAgeDays: intp(7)}, false},
		{"missing timestamp under age filter", item("Video", "u", nil, time.Time{}), Filter{MaxAgeDays: intp(7)}, false},
		{"bad timestamp under age filter", actor.RawItem{Type: "Video", URL: "u", Timestamp: "soon"}, Filter{MaxAgeDays: intp(7)}, false},
		{"missing timestamp without age filter", item("Video", "u", int64p(1), time.Time{}), Filter{MinViews: int64p(1)}, true},
		{"views at floor", item("Video", "u", int64p(50), recent), Filter{MinViews: int64p(50)}, true},
		{"views below floor", item("Video", "u", int64p(49), recent), Filter{MinViews: int64p(50)}, false},
		{"unknown views under view filter", item("Video", "u", nil, recent), Filter{MinViews: int64p(0)}, false},
		{"view count fallback", actor.RawItem{Type: "Video", URL: "u", VideoViewCount: int64p(60)}, Filter{MinViews: int64p(50)}, true},
		{"url from short code", actor.RawItem{Type: "Video", ShortCode: "abc"}, Filter{}, true},
		{"no url", actor.RawItem{Type: "Video"}, Filter{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, stats := Process([]actor.RawItem{tt.item}, tt.filter, testNow)
			assert.Equal(t, tt.keep, len(out) == 1)
			assert.Equal(t, 1, stats.Input)
			if !tt.keep {
				assert.Equal(t, 1, stats.Dropped())
			}
		})
	}
}

func TestProcessEmpty(t *testing.T) {
	out, stats := Process(nil, Filter{MinViews: int64p(1), MaxAgeDays: intp(1)}, testNow)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Equal(t, Stats{}, stats)
}

func TestProcessMapping(t *testing.T) {
	raw := []byte(`{"type":"Video","shortCode":"C1","ownerUsername":"bluebottle","caption":"pour over",
		"likesCount":12,"commentsCount":-1,"videoPlayCount":300,"timestamp":"2024-05-30T08:00:00.000Z",
		"displayUrl":"https://cdn/thumb.jpg","videoUrl":"https://cdn/v.mp4",
		"musicInfo":{"artist_name":"Nina","song_name":"Feeling Good","audio_id":"991"}}`)

	var it actor.RawItem
	require.NoError(t, json.Unmarshal(raw, &it))

	out, _ := Process([]actor.RawItem{it}, Filter{}, testNow)
	require.Len(t, out, 1)
	r := out[0]

	assert.Equal(t, "https://www.instagram.com/reel/C1/", r.ReelURL)
	assert.Equal(t, "C1", r.ShortCode)
	assert.Equal(t, "bluebottle", r.OwnerUsername)
	assert.Equal(t, "pour over", r.Caption)
	assert.Equal(t, int64(300), r.ViewsCount)
	assert.Equal(t, int64(12), r.LikesCount)
	assert.Equal(t, int64(0), r.CommentsCount)
	require.NotNil(t, r.PublishedAt)
	assert.Equal(t, time.Date(2024, 5, 30, 8, 0, 0, 0, time.UTC), *r.PublishedAt)
	assert.Equal(t, "https://cdn/thumb.jpg", r.ThumbnailURL)
	assert.Equal(t, "https://cdn/v.mp4", r.VideoURL)
	assert.Equal(t, "Nina", r.MusicArtist)
	assert.Equal(t, "Feeling Good", r.MusicTitle)
	assert.Equal(t, "991", r.MusicAudioID)
	assert.JSONEq(t, string(raw), string(r.RawData))
}

func TestProcessDefaultsCounts(t *testing.T) {
	out, _ := Process([]actor.RawItem{{Type: "Video", URL: "u"}}, Filter{}, testNow)
	require.Len(t, out, 1)
	assert.Zero(t, out[0].ViewsCount)
	assert.Zero(t, out[0].LikesCount)
	assert.Nil(t, out[0].PublishedAt)
	assert.Empty(t, out[0].MusicArtist)
}

// Package reels filters raw actor items into reel records and persists
// the new ones.
package reels

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"reelscraper/pkg/actor"
	"reelscraper/pkg/models"
)

// Filter holds the optional ingest filters. A nil field disables it.
type Filter struct {
	MinViews   *int64
	MaxAgeDays *int
}

// Stats counts why items were dropped during Process.
type Stats struct {
	Input        int
	NotVideo     int
	TooOld       int
	NoTimestamp  int
	TooFewViews  int
	UnknownViews int
	NoURL        int
	Kept         int
}

// Dropped is the number of items that did not survive.
func (s Stats) Dropped() int {
	return s.Input - s.Kept
}

// Process keeps the video items that pass f and maps them to reel
// records. Records carry no project or source yet; Persist fills those.
func Process(items []actor.RawItem, f Filter, now time.Time) ([]models.Reel, Stats) {
	stats := Stats{Input: len(items)}
	out := make([]models.Reel, 0, len(items))

	var cutoff time.Time
	if f.MaxAgeDays != nil {
		cutoff = now.Add(-time.Duration(*f.MaxAgeDays) * 24 * time.Hour)
	}

	for _, item := range items {
		if !item.IsVideo() {
			stats.NotVideo++
			continue
		}

		published, hasTime := item.PublishedAt()
		if f.MaxAgeDays != nil {
			if !hasTime {
				stats.NoTimestamp++
				continue
			}
			if published.Before(cutoff) {
				stats.TooOld++
				continue
			}
		}

		views, hasViews := item.Views()
		if f.MinViews != nil {
			if !hasViews {
				stats.UnknownViews++
				continue
			}
			if views < *f.MinViews {
				stats.TooFewViews++
				continue
			}
		}

		url := item.PermanentURL()
		if url == "" {
			stats.NoURL++
			continue
		}

		out = append(out, toReel(item, url, views, published, hasTime))
	}

	stats.Kept = len(out)
	return out, stats
}

func toReel(item actor.RawItem, url string, views int64, published time.Time, hasTime bool) models.Reel {
	r := models.Reel{
		ReelURL:       url,
		ShortCode:     strings.TrimSpace(item.ShortCode),
		OwnerUsername: item.OwnerUsername,
		Caption:       item.Caption,
		ViewsCount:    views,
		LikesCount:    count(item.LikesCount),
		CommentsCount: count(item.CommentsCount),
		ThumbnailURL:  item.DisplayURL,
		VideoURL:      item.VideoURL,
	}
	if hasTime {
		p := published
		r.PublishedAt = &p
	}
	if item.Music != nil {
		r.MusicArtist = item.Music.Artist
		r.MusicTitle = item.Music.Title
		r.MusicAudioID = item.Music.AudioID
	}
	if len(item.Raw) > 0 {
		r.RawData = datatypes.JSON(item.Raw)
	}
	return r
}

// count treats missing and hidden (negative) counts as zero
func count(v *int64) int64 {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

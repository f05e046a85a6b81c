package actor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RawItem is one entry of the actor's dataset. The actor returns posts of
// several kinds; Type and ProductType tell them apart. Raw keeps the
// original JSON so it can be stored verbatim.
type RawItem struct {
	Type           string
	ProductType    string
	URL            string
	ShortCode      string
	OwnerUsername  string
	Caption        string
	LikesCount     *int64
	CommentsCount  *int64
	VideoPlayCount *int64
	VideoViewCount *int64
	Timestamp      string
	DisplayURL     string
	VideoURL       string
	Music          *MusicInfo

	Raw json.RawMessage
}

// MusicInfo is the optional audio metadata attached to a reel.
type MusicInfo struct {
	Artist  string `json:"artist_name"`
	Title   string `json:"song_name"`
	AudioID string `json:"audio_id"`
}

type rawItemJSON struct {
	Type           string          `json:"type"`
	ProductType    string          `json:"productType"`
	URL            string          `json:"url"`
	ShortCode      string          `json:"shortCode"`
	OwnerUsername  string          `json:"ownerUsername"`
	Caption        string          `json:"caption"`
	LikesCount     *int64          `json:"likesCount"`
	CommentsCount  *int64          `json:"commentsCount"`
	VideoPlayCount *int64          `json:"videoPlayCount"`
	VideoViewCount *int64          `json:"videoViewCount"`
	Timestamp      json.RawMessage `json:"timestamp"`
	DisplayURL     string          `json:"displayUrl"`
	VideoURL       string          `json:"videoUrl"`
	MusicInfo      *MusicInfo      `json:"musicInfo"`
}

// UnmarshalJSON decodes the known fields and keeps a copy of the input.
func (r *RawItem) UnmarshalJSON(data []byte) error {
	var j rawItemJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	*r = RawItem{
		Type:           j.Type,
		ProductType:    j.ProductType,
		URL:            j.URL,
		ShortCode:      j.ShortCode,
		OwnerUsername:  j.OwnerUsername,
		Caption:        j.Caption,
		LikesCount:     j.LikesCount,
		CommentsCount:  j.CommentsCount,
		VideoPlayCount: j.VideoPlayCount,
		VideoViewCount: j.VideoViewCount,
		Timestamp:      timestampString(j.Timestamp),
		DisplayURL:     j.DisplayURL,
		VideoURL:       j.VideoURL,
		Music:          j.MusicInfo,
		Raw:            append(json.RawMessage(nil), data...),
	}
	return nil
}

// MarshalJSON returns Raw when present so round trips are lossless.
func (r RawItem) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(rawItemJSON{
		Type:           r.Type,
		ProductType:    r.ProductType,
		URL:            r.URL,
		ShortCode:      r.ShortCode,
		OwnerUsername:  r.OwnerUsername,
		Caption:        r.Caption,
		LikesCount:     r.LikesCount,
		CommentsCount:  r.CommentsCount,
		VideoPlayCount: r.VideoPlayCount,
		VideoViewCount: r.VideoViewCount,
		Timestamp:      timestampJSON(r.Timestamp),
		DisplayURL:     r.DisplayURL,
		VideoURL:       r.VideoURL,
		MusicInfo:      r.Music,
	})
}

// timestamps arrive as ISO strings, but some actor versions send unix seconds
func timestampString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return time.Unix(int64(n), 0).UTC().Format(time.RFC3339)
	}
	return ""
}

func timestampJSON(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	b, _ := json.Marshal(s)
	return b
}

// IsVideo reports whether the item is video content.
func (r RawItem) IsVideo() bool {
	return strings.EqualFold(r.Type, "video") || strings.EqualFold(r.ProductType, "clips")
}

// Views returns the play count, falling back to the view count. The second
// result is false when the actor reported neither.
func (r RawItem) Views() (int64, bool) {
	for _, v := range []*int64{r.VideoPlayCount, r.VideoViewCount} {
		if v != nil && *v >= 0 {
			return *v, true
		}
	}
	return 0, false
}

// PublishedAt parses Timestamp. The second result is false when the
// timestamp is missing or unparseable.
func (r RawItem) PublishedAt() (time.Time, bool) {
	ts := strings.TrimSpace(r.Timestamp)
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z0700", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// PermanentURL returns the explicit URL or one derived from the short code.
func (r RawItem) PermanentURL() string {
	if u := strings.TrimSpace(r.URL); u != "" {
		return u
	}
	if sc := strings.TrimSpace(r.ShortCode); sc != "" {
		return fmt.Sprintf("https://www.instagram.com/reel/%s/", sc)
	}
	return ""
}

// Package models holds the persisted entities of reelscraper.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Source types recorded on reels and source-level run logs.
const (
	SourceCompetitor = "competitor"
	SourceHashtag    = "hashtag"
)

// User owns projects. Only active users are processed.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	Projects  []Project `json:"projects,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

func (User) TableName() string {
	return "users"
}

// Project groups the sources tracked for one user.
type Project struct {
	ID          string       `gorm:"primaryKey" json:"id"`
	UserID      string       `gorm:"index;not null;column:user_id" json:"user_id"`
	Name        string       `gorm:"not null" json:"name"`
	IsActive    bool         `gorm:"not null" json:"is_active"`
	Competitors []Competitor `json:"competitors,omitempty"`
	Hashtags    []Hashtag    `json:"hashtags,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (Project) TableName() string {
	return "projects"
}

// Competitor is a tracked account. ProfileURL, when set, is what gets
// sent to the actor; otherwise Username is.
type Competitor struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	ProjectID  string    `gorm:"index;not null;column:project_id" json:"project_id"`
	Username   string    `gorm:"not null" json:"username"`
	ProfileURL string    `gorm:"column:profile_url" json:"profile_url,omitempty"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (c *Competitor) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (Competitor) TableName() string {
	return "competitors"
}

// Descriptor returns the raw source descriptor handed to the normalizer.
func (c Competitor) Descriptor() string {
	if c.ProfileURL != "" {
		return c.ProfileURL
	}
	return c.Username
}

// Hashtag is a tracked tag. TagName may be "#tag", "tag" or a tag URL.
type Hashtag struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ProjectID string    `gorm:"index;not null;column:project_id" json:"project_id"`
	TagName   string    `gorm:"not null;column:tag_name" json:"tag_name"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *Hashtag) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return nil
}

func (Hashtag) TableName() string {
	return "hashtags"
}

// Reel is one stored short video. ReelURL is the dedup key and rows are
// never updated or deleted by the pipeline.
type Reel struct {
	ID             string         `gorm:"primaryKey" json:"id"`
	ReelURL        string         `gorm:"uniqueIndex;not null;column:reel_url" json:"reel_url"`
	ProjectID      string         `gorm:"index;column:project_id" json:"project_id"`
	SourceType     string         `gorm:"not null;column:source_type" json:"source_type"`
	SourceID       string         `gorm:"index;column:source_id" json:"source_id"`
	ShortCode      string         `gorm:"column:short_code" json:"short_code,omitempty"`
	OwnerUsername  string         `gorm:"column:owner_username" json:"owner_username,omitempty"`
	Caption        string         `gorm:"type:text" json:"caption,omitempty"`
	ViewsCount     int64          `gorm:"not null;column:views_count" json:"views_count"`
	LikesCount     int64          `gorm:"not null;column:likes_count" json:"likes_count"`
	CommentsCount  int64          `gorm:"not null;column:comments_count" json:"comments_count"`
	PublishedAt    *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
	ThumbnailURL   string         `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	VideoURL       string         `gorm:"column:video_url" json:"video_url,omitempty"`
	MusicArtist    string         `gorm:"column:music_artist" json:"music_artist,omitempty"`
	MusicTitle     string         `gorm:"column:music_title" json:"music_title,omitempty"`
	MusicAudioID   string         `gorm:"column:music_audio_id" json:"music_audio_id,omitempty"`
	RawData        datatypes.JSON `gorm:"column:raw_data" json:"raw_data,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (r *Reel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func (Reel) TableName() string {
	return "reels"
}

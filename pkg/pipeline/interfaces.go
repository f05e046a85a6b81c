package pipeline

import (
	"context"

	"reelscraper/pkg/actor"
	"reelscraper/pkg/models"
	"reelscraper/pkg/reels"
	"reelscraper/pkg/runlog"
)

// ActorClient invokes the external scraping actor
type ActorClient interface {
	Invoke(ctx context.Context, req actor.Request) ([]actor.RawItem, error)
}

// SourceLister reads the tracked users, projects and sources
type SourceLister interface {
	ListActiveUsers(ctx context.Context) ([]models.User, error)
	ListActiveProjects(ctx context.Context, userID string) ([]models.Project, error)
	ListActiveCompetitors(ctx context.Context, projectID string) ([]models.Competitor, error)
	ListActiveHashtags(ctx context.Context, projectID string) ([]models.Hashtag, error)
}

// ReelPersister writes filtered reel records
type ReelPersister interface {
	Persist(ctx context.Context, records []models.Reel, target reels.Target) (reels.PersistResult, error)
}

// RunTracker records the run hierarchy
type RunTracker interface {
	Start(ctx context.Context, e runlog.Entry) string
	Finish(ctx context.Context, id string, o runlog.Outcome) error
}

// Observer is notified as sources are processed. Calls may come from
// several workers at once.
type Observer interface {
	SourceStarted(src SourceInfo)
	SourceFinished(res SourceResult)
}

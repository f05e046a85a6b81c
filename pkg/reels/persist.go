package reels

import (
	"context"
	"fmt"

	"reelscraper/pkg/config"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
)

// Repository is the slice of the store the persister needs.
type Repository interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
	InsertOne(ctx context.Context, reel *models.Reel) (bool, error)
	InsertManyIgnoringConflicts(ctx context.Context, reels []models.Reel) (int64, error)
}

// Target identifies where a batch of records came from.
type Target struct {
	ProjectID  string
	SourceType string
	SourceID   string
}

// PersistResult counts the outcome of one Persist call. Added is the
// number of genuinely new rows.
type PersistResult struct {
	Added   int
	Skipped int
	Failed  int
}

// Persister writes reel records without ever duplicating a URL.
type Persister struct {
	repo     Repository
	strategy string
	logger   logger.Logger
}

// NewPersister creates a persister using strategy (config.PersistBulk or
// config.PersistCheckThenInsert).
func NewPersister(repo Repository, strategy string, log logger.Logger) (*Persister, error) {
	switch strategy {
	case "":
		strategy = config.PersistBulk
	case config.PersistBulk, config.PersistCheckThenInsert:
	default:
		return nil, fmt.Errorf("unknown persist strategy %q", strategy)
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Persister{repo: repo, strategy: strategy, logger: log.WithField("component", "persister")}, nil
}

// Strategy returns the configured strategy name.
func (p *Persister) Strategy() string {
	return p.strategy
}

// Persist stamps records with target and stores the new ones.
func (p *Persister) Persist(ctx context.Context, records []models.Reel, target Target) (PersistResult, error) {
	if len(records) == 0 {
		return PersistResult{}, nil
	}

	stamped := make([]models.Reel, len(records))
	for i, r := range records {
		r.ProjectID = target.ProjectID
		r.SourceType = target.SourceType
		r.SourceID = target.SourceID
		stamped[i] = r
	}

	if p.strategy == config.PersistCheckThenInsert {
		return p.checkThenInsert(ctx, stamped), nil
	}
	return p.bulk(ctx, stamped)
}

func (p *Persister) bulk(ctx context.Context, records []models.Reel) (PersistResult, error) {
	added, err := p.repo.InsertManyIgnoringConflicts(ctx, dedupe(records))
	if err != nil {
		return PersistResult{}, err
	}
	return PersistResult{Added: int(added), Skipped: len(records) - int(added)}, nil
}

func (p *Persister) checkThenInsert(ctx context.Context, records []models.Reel) PersistResult {
	var res PersistResult
	for i := range records {
		r := &records[i]

		exists, err := p.repo.ExistsByURL(ctx, r.ReelURL)
		if err != nil {
			res.Failed++
			p.logger.WithError(err).WarnWithFields("Existence check failed, skipping reel", map[string]interface{}{
				"reel_url": r.ReelURL,
			})
			continue
		}
		if exists {
			res.Skipped++
			continue
		}

		inserted, err := p.repo.InsertOne(ctx, r)
		if err != nil {
			res.Failed++
			p.logger.WithError(err).WarnWithFields("Insert failed, skipping reel", map[string]interface{}{
				"reel_url": r.ReelURL,
			})
			continue
		}
		if inserted {
			res.Added++
		} else {
			res.Skipped++
		}
	}
	return res
}

// dedupe drops repeated URLs within one batch, keeping the first
func dedupe(records []models.Reel) []models.Reel {
	seen := make(map[string]bool, len(records))
	out := records[:0:0]
	for _, r := range records {
		if seen[r.ReelURL] {
			continue
		}
		seen[r.ReelURL] = true
		out = append(out, r)
	}
	return out
}

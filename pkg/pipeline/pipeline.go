package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"reelscraper/internal/workerpool"
	"reelscraper/pkg/actor"
	"reelscraper/pkg/checkpoint"
	"reelscraper/pkg/config"
	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
	"reelscraper/pkg/reels"
	"reelscraper/pkg/runlog"
	"reelscraper/pkg/source"
)

// ErrRunFailed is returned by RunDaily when the overall run ends failed.
var ErrRunFailed = errors.New("overall run failed")

// Options tune a daily run
type Options struct {
	Filter       reels.Filter
	ResultLimit  int
	ActorTimeout time.Duration
	Concurrency  int
	DryRun       bool
	Resume       bool
}

// OptionsFromConfig builds run options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Filter: reels.Filter{
			MinViews:   cfg.MinViewsFilter(),
			MaxAgeDays: cfg.MaxAgeDaysFilter(),
		},
		ResultLimit:  cfg.Actor.ResultLimit,
		ActorTimeout: cfg.Actor.Timeout,
		Concurrency:  cfg.Run.Concurrency,
		DryRun:       cfg.Run.DryRun,
	}
}

// SourceInfo identifies one source being processed
type SourceInfo struct {
	ParentRunID string
	UserName    string
	ProjectID   string
	ProjectName string
	Type        string
	ID          string
	Descriptor  string
	Identifier  string
}

// Key returns the checkpoint key of the source
func (s SourceInfo) Key() string {
	return checkpoint.SourceKey(s.Type, s.ID)
}

// SourceResult is what one worker hands back for a source
type SourceResult struct {
	Source   SourceInfo
	RunID    string
	Status   string
	Counts   runlog.Counts
	Stats    reels.Stats
	Err      error
	Resumed  bool
	Duration time.Duration
}

// ProjectSummary aggregates the sources of one project
type ProjectSummary struct {
	RunID     string
	UserName  string
	ProjectID string
	Name      string
	Status    string
	Counts    runlog.Counts
	Sources   []SourceResult
}

// Summary is the outcome of RunDaily
type Summary struct {
	RunID     string
	Status    string
	Counts    runlog.Counts
	Projects  []ProjectSummary
	Resumed   int
	DryRun    bool
	StartedAt time.Time
	Duration  time.Duration
}

// Orchestrator drives users, projects and sources through ingestion
type Orchestrator struct {
	sources     SourceLister
	actor       ActorClient
	persister   ReelPersister
	tracker     RunTracker
	checkpoints *checkpoint.Manager
	observer    Observer
	opts        Options
	logger      logger.Logger
	now         func() time.Time
}

// New creates an Orchestrator
func New(sources SourceLister, client ActorClient, persister ReelPersister, tracker RunTracker, opts Options, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Orchestrator{
		sources:   sources,
		actor:     client,
		persister: persister,
		tracker:   tracker,
		opts:      opts,
		logger:    log.WithField("component", "pipeline"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetObserver registers an observer for source progress
func (o *Orchestrator) SetObserver(obs Observer) {
	o.observer = obs
}

// SetCheckpoints enables resumable runs. Ignored in dry-run mode.
func (o *Orchestrator) SetCheckpoints(m *checkpoint.Manager) {
	o.checkpoints = m
}

// RunDaily processes every active project once. The summary is returned
// even when the run fails; the error wraps ErrRunFailed in that case.
func (o *Orchestrator) RunDaily(ctx context.Context) (summary *Summary, err error) {
	summary = &Summary{StartedAt: o.now(), DryRun: o.opts.DryRun}
	runID := o.tracker.Start(context.WithoutCancel(ctx), runlog.Entry{
		Level:   models.LevelOverall,
		Message: "Daily reel ingestion",
	})
	summary.RunID = runID
	log := o.logger.WithField("run_id", runID)

	log.InfoWithFields("Starting daily run", map[string]interface{}{
		"dry_run":     o.opts.DryRun,
		"concurrency": o.opts.Concurrency,
		"resume":      o.opts.Resume,
	})

	defer func() {
		if r := recover(); r != nil {
			detail := runlog.DetailFromPanic(r, debug.Stack())
			log.ErrorWithFields("Daily run panicked", map[string]interface{}{"panic": detail.Message})
			summary.Status = models.StatusFailed
			summary.Duration = o.now().Sub(summary.StartedAt)
			o.finish(ctx, runID, runlog.Outcome{
				Status:  models.StatusFailed,
				Counts:  summary.Counts,
				Message: "Daily run aborted by panic",
				Err:     detail,
			})
			err = fmt.Errorf("%w: %s", ErrRunFailed, detail.Message)
		}
	}()

	cp := o.openCheckpoint(runID)

	users, err := o.sources.ListActiveUsers(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list users")
		summary.Status = models.StatusFailed
		summary.Duration = o.now().Sub(summary.StartedAt)
		o.finish(ctx, runID, runlog.Outcome{
			Status:  models.StatusFailed,
			Message: "Failed to list users",
			Err:     runlog.DetailFromError(err),
		})
		return summary, fmt.Errorf("%w: %w", ErrRunFailed, err)
	}

	// listing failures have no child row but still count toward the
	// overall errors_count, so it can exceed the sum over projects
	var listErrors int
	for _, user := range users {
		if ctx.Err() != nil {
			break
		}
		projects, err := o.sources.ListActiveProjects(ctx, user.ID)
		if err != nil {
			log.WithError(err).WithField("user", user.Name).Error("Failed to list projects")
			listErrors++
			continue
		}
		for _, project := range projects {
			if ctx.Err() != nil {
				break
			}
			ps := o.runProject(ctx, runID, user, project, cp)
			summary.Projects = append(summary.Projects, ps)
			summary.Counts = summary.Counts.Add(ps.Counts)
			for _, src := range ps.Sources {
				if src.Resumed {
					summary.Resumed++
				}
			}
		}
	}
	summary.Counts.Errors += listErrors

	outcome := runlog.Outcome{
		Status: models.StatusForErrors(summary.Counts.Errors),
		Counts: summary.Counts,
		Message: fmt.Sprintf("Processed %d projects: %d reels found, %d added",
			len(summary.Projects), summary.Counts.Found, summary.Counts.Added),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		outcome.Status = models.StatusFailed
		outcome.Message = "Daily run interrupted"
		outcome.Err = runlog.DetailFromError(ctxErr)
	}

	summary.Status = outcome.Status
	summary.Duration = o.now().Sub(summary.StartedAt)
	o.finish(ctx, runID, outcome)

	if outcome.Status == models.StatusFailed {
		return summary, fmt.Errorf("%w: %w", ErrRunFailed, ctx.Err())
	}

	if cp != nil {
		if err := o.checkpoints.Delete(); err != nil {
			log.WithError(err).Warn("Failed to delete checkpoint")
		}
	}

	log.InfoWithFields("Daily run finished", map[string]interface{}{
		"status":      summary.Status,
		"projects":    len(summary.Projects),
		"reels_found": summary.Counts.Found,
		"reels_added": summary.Counts.Added,
		"errors":      summary.Counts.Errors,
		"resumed":     summary.Resumed,
		"duration":    summary.Duration.String(),
	})
	return summary, nil
}

// openCheckpoint loads the checkpoint to resume from, or starts a new one
// for runID. A nil result disables checkpointing for this run.
func (o *Orchestrator) openCheckpoint(runID string) *checkpoint.Checkpoint {
	if o.checkpoints == nil || o.opts.DryRun {
		return nil
	}

	if o.opts.Resume {
		cp, err := o.checkpoints.Load()
		if err != nil {
			o.logger.WithError(err).Warn("Failed to load checkpoint, starting from scratch")
		} else if cp != nil {
			o.logger.InfoWithFields("Resuming from checkpoint", map[string]interface{}{
				"previous_run_id":   cp.RunID,
				"completed_sources": len(cp.CompletedSources),
			})
			return cp
		}
	}

	cp, err := o.checkpoints.Create(runID)
	if err != nil {
		o.logger.WithError(err).Warn("Failed to create checkpoint, continuing without resume support")
		return nil
	}
	return cp
}

func (o *Orchestrator) runProject(ctx context.Context, parentID string, user models.User, project models.Project, cp *checkpoint.Checkpoint) ProjectSummary {
	ps := ProjectSummary{UserName: user.Name, ProjectID: project.ID, Name: project.Name}
	ps.RunID = o.tracker.Start(context.WithoutCancel(ctx), runlog.Entry{
		Level:     models.LevelProject,
		ParentID:  parentID,
		ProjectID: project.ID,
		Message:   fmt.Sprintf("Project %s of %s", project.Name, user.Name),
	})
	log := o.logger.WithFields(map[string]interface{}{
		"run_id":  ps.RunID,
		"project": project.Name,
		"user":    user.Name,
	})

	jobs, err := o.projectSources(ctx, ps.RunID, user, project)
	if err != nil {
		log.WithError(err).Error("Failed to load project sources")
		ps.Status = models.StatusFailed
		// no source rows exist; the error is the project's own
		ps.Counts = runlog.Counts{Errors: 1}
		o.finish(ctx, ps.RunID, runlog.Outcome{
			Status:  ps.Status,
			Counts:  ps.Counts,
			Message: "Failed to load project sources",
			Err:     runlog.DetailFromError(err),
		})
		return ps
	}

	log.InfoWithFields("Processing project", map[string]interface{}{"sources": len(jobs)})

	handle := func(ctx context.Context, _ int, src SourceInfo) SourceResult {
		return o.processSource(ctx, src, cp)
	}
	results := workerpool.Run(ctx, o.opts.Concurrency, jobs, handle, log)

	for i, r := range results {
		if r.Err != nil {
			// never started because the run was cancelled
			ps.Sources = append(ps.Sources, SourceResult{Source: jobs[i], Err: r.Err})
			continue
		}
		ps.Sources = append(ps.Sources, r.Value)
		ps.Counts = ps.Counts.Add(r.Value.Counts)
	}

	outcome := runlog.Outcome{
		Status: models.StatusForErrors(ps.Counts.Errors),
		Counts: ps.Counts,
		Message: fmt.Sprintf("Processed %d sources: %d reels found, %d added",
			len(jobs), ps.Counts.Found, ps.Counts.Added),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		outcome.Status = models.StatusFailed
		outcome.Message = "Project interrupted"
		outcome.Err = runlog.DetailFromError(ctxErr)
	}
	ps.Status = outcome.Status
	o.finish(ctx, ps.RunID, outcome)
	return ps
}

// projectSources lists competitors then hashtags as pool jobs
func (o *Orchestrator) projectSources(ctx context.Context, parentID string, user models.User, project models.Project) ([]SourceInfo, error) {
	competitors, err := o.sources.ListActiveCompetitors(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	hashtags, err := o.sources.ListActiveHashtags(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	base := SourceInfo{
		ParentRunID: parentID,
		UserName:    user.Name,
		ProjectID:   project.ID,
		ProjectName: project.Name,
	}
	jobs := make([]SourceInfo, 0, len(competitors)+len(hashtags))
	for _, c := range competitors {
		src := base
		src.Type = models.SourceCompetitor
		src.ID = c.ID
		src.Descriptor = c.Descriptor()
		src.Identifier = source.Normalize(src.Descriptor)
		jobs = append(jobs, src)
	}
	for _, h := range hashtags {
		src := base
		src.Type = models.SourceHashtag
		src.ID = h.ID
		src.Descriptor = h.TagName
		src.Identifier = source.Normalize(h.TagName)
		jobs = append(jobs, src)
	}
	return jobs, nil
}

// processSource runs one source under its own run log. Errors and panics
// end here; the caller only sees the result.
func (o *Orchestrator) processSource(ctx context.Context, src SourceInfo, cp *checkpoint.Checkpoint) (res SourceResult) {
	res.Source = src
	log := o.logger.WithFields(map[string]interface{}{
		"project":     src.ProjectName,
		"source_type": src.Type,
		"source":      src.Identifier,
	})

	if cp.IsSourceDone(src.Key()) {
		log.Info("Skipping source finished in previous run")
		res.Resumed = true
		res.Status = models.StatusCompleted
		return res
	}

	start := o.now()
	res.RunID = o.tracker.Start(context.WithoutCancel(ctx), runlog.Entry{
		Level:     src.Type,
		ParentID:  src.ParentRunID,
		ProjectID: src.ProjectID,
		SourceID:  src.ID,
		Message:   fmt.Sprintf("Fetching reels for %s", src.Identifier),
	})
	log = log.WithField("run_id", res.RunID)
	o.notifyStarted(src)

	defer func() {
		if r := recover(); r != nil {
			detail := runlog.DetailFromPanic(r, debug.Stack())
			log.ErrorWithFields("Source panicked", map[string]interface{}{"panic": detail.Message})
			res.Status = models.StatusFailed
			res.Counts = runlog.Counts{Errors: 1}
			res.Err = errors.New(detail.Message)
			o.finish(ctx, res.RunID, runlog.Outcome{
				Status:  res.Status,
				Counts:  res.Counts,
				Message: "Source aborted by panic",
				Err:     detail,
			})
		}
		res.Duration = o.now().Sub(start)
		o.notifyFinished(res)
	}()

	counts, stats, err := o.ingest(ctx, src, log)
	res.Stats = stats
	if err != nil {
		log.WithError(err).Error("Source failed")
		counts.Errors = 1
		res.Status = models.StatusFailed
		res.Counts = counts
		res.Err = err
		o.finish(ctx, res.RunID, runlog.Outcome{
			Status:  res.Status,
			Counts:  counts,
			Message: fmt.Sprintf("Source %s failed", src.Identifier),
			Err:     runlog.DetailFromError(err),
		})
		return res
	}

	res.Status = models.StatusForErrors(counts.Errors)
	res.Counts = counts
	o.finish(ctx, res.RunID, runlog.Outcome{
		Status:  res.Status,
		Counts:  counts,
		Message: fmt.Sprintf("Found %d reels, added %d", counts.Found, counts.Added),
	})

	if cp != nil {
		if err := o.checkpoints.RecordSource(cp, src.Key(), counts.Added); err != nil {
			log.WithError(err).Warn("Failed to update checkpoint")
		}
	}
	return res
}

// ingest is normalize, invoke, filter and persist for one source.
func (o *Orchestrator) ingest(ctx context.Context, src SourceInfo, log logger.Logger) (runlog.Counts, reels.Stats, error) {
	if src.Identifier == "" {
		return runlog.Counts{}, reels.Stats{}, errs.New("pipeline.normalize", errs.ErrorTypeConfig,
			fmt.Sprintf("source %s has an empty identifier", src.ID))
	}

	if o.opts.DryRun {
		log.InfoWithFields("[dry-run] would invoke actor", map[string]interface{}{
			"identifier":   src.Identifier,
			"result_limit": o.opts.ResultLimit,
		})
		return runlog.Counts{}, reels.Stats{}, nil
	}

	callCtx := ctx
	if o.opts.ActorTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.opts.ActorTimeout)
		defer cancel()
	}

	items, err := o.actor.Invoke(callCtx, actor.Request{
		Identifiers: []string{src.Identifier},
		ResultLimit: o.opts.ResultLimit,
	})
	if err != nil {
		return runlog.Counts{}, reels.Stats{}, err
	}

	records, stats := reels.Process(items, o.opts.Filter, o.now())
	if stats.Dropped() > 0 {
		log.DebugWithFields("Filtered actor items", map[string]interface{}{
			"input":         stats.Input,
			"kept":          stats.Kept,
			"not_video":     stats.NotVideo,
			"too_old":       stats.TooOld,
			"no_timestamp":  stats.NoTimestamp,
			"too_few_views": stats.TooFewViews,
			"unknown_views": stats.UnknownViews,
		})
	}
	if stats.NoURL > 0 {
		log.WarnWithFields("Dropped items without a permanent URL", map[string]interface{}{
			"count": stats.NoURL,
		})
	}

	counts := runlog.Counts{Found: len(records)}
	result, err := o.persister.Persist(ctx, records, reels.Target{
		ProjectID:  src.ProjectID,
		SourceType: src.Type,
		SourceID:   src.ID,
	})
	if err != nil {
		return counts, stats, err
	}
	counts.Added = result.Added
	counts.Errors = result.Failed
	return counts, stats, nil
}

// finish closes a run log even when ctx has been cancelled.
func (o *Orchestrator) finish(ctx context.Context, id string, outcome runlog.Outcome) {
	err := o.tracker.Finish(context.WithoutCancel(ctx), id, outcome)
	if err != nil {
		o.logger.WithError(err).WarnWithFields("Failed to finish run", map[string]interface{}{
			"run_id": id,
			"status": outcome.Status,
		})
	}
}

func (o *Orchestrator) notifyStarted(src SourceInfo) {
	if o.observer != nil {
		o.observer.SourceStarted(src)
	}
}

func (o *Orchestrator) notifyFinished(res SourceResult) {
	if o.observer != nil {
		o.observer.SourceFinished(res)
	}
}

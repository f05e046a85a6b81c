// Package pipeline runs the daily reel ingestion.
//
// RunDaily walks every active user and project, and for each project
// processes its competitor sources and then its hashtag sources:
//
//	normalize -> actor invocation -> filter/transform -> persist
//
// Each level (overall, project, source) is recorded as a run log through
// the runlog tracker. A failing or panicking source is finished as failed
// and the run carries on; parents end completed_with_errors with counts
// summed from their children.
//
// Sources of one project run on a bounded worker pool sized by
// run.concurrency. Every worker returns its own SourceResult and the
// project sums them once the pool has drained.
package pipeline

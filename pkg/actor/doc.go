// Package actor invokes the external reel scraping actor.
//
// The actor is an opaque hosted job: one POST to its synchronous run
// endpoint starts a run, waits for it to finish and returns the dataset as
// a JSON array. The call is the slowest step of an ingestion run, so
// callers bound it with a context deadline.
//
//	client := actor.NewClient(cfg.Actor, ratelimit.PerMinute(30), log)
//	items, err := client.Invoke(ctx, actor.Request{Identifiers: []string{"coffee"}})
//
// Items are heterogeneous posts. RawItem exposes the fields the pipeline
// needs and keeps the original JSON in Raw.
package actor

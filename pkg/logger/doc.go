// Package logger provides a structured logging interface for reelscraper.
//
// It wraps zerolog behind a small Logger interface so components can take a
// logger as a dependency and tests can swap in NewTestLogger or NewNopLogger.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "pipeline")
//	log.InfoWithFields("Source finished", map[string]interface{}{
//	    "source_id":   src.ID,
//	    "reels_added": added,
//	})
//
// Output is a colored console by default, JSON lines with Format "json", and
// is additionally appended to File when one is configured.
package logger

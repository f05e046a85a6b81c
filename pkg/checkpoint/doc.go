// Package checkpoint lets an interrupted daily run resume where it stopped.
//
// While a run is in progress every source that finishes without failing is
// recorded in a JSON checkpoint. "reelscraper run --resume" loads it and
// skips those sources; the file is deleted once an overall run ends
// without failing.
//
// Checkpoints live in run.checkpoint_dir, or by default in:
//   - Linux: $XDG_DATA_HOME/reelscraper/checkpoints/ (~/.local/share/...)
//   - macOS: ~/Library/Application Support/reelscraper/checkpoints/
//   - Windows: %APPDATA%/reelscraper/checkpoints/
//
// Writes go through a temporary file and a rename so a crash never leaves a
// half-written checkpoint behind.
package checkpoint

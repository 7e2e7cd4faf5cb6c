// Package importer orchestrates one import run from an external
// health-data source into the local journal store.
//
// A run is a linear state machine:
//
//	Idle -> Parsing -> PreviewReady -> Normalizing -> Merging ->
//	Persisting -> CleaningUp -> Summarized
//
// Start drives Idle through PreviewReady and returns a preview for
// user confirmation. PreviewReady is the only state that waits on a
// human decision: Commit resumes the run through Summarized, Abandon
// discards it. A fatal error in any state moves the run to Failed.
//
// Nothing is written before Merging, so abandoning a preview has no
// persisted side effect. Once Merging begins, records are merged one
// at a time in ascending date order. A malformed record is downgraded
// to a summary warning and the remaining records still merge; work
// written before a cancellation or storage failure is retained, and
// the summary counts exactly what landed.
//
// All merging happens on the caller's goroutine. The importer performs
// no concurrent store mutation; cancellation is cooperative via ctx,
// checked between records.
package importer

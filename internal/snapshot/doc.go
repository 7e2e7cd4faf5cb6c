// Package snapshot extracts wellness data from a relational snapshot backup
// produced by a mobile health-data aggregator.
//
// The backup is a SQLite database, optionally wrapped in a zip container or
// gzip stream; wrapping is detected by magic bytes, never by filename. The
// database is opened read-only and its schema introspected: table and column
// names vary by producing application, so logical tables (daily aggregates,
// weight readings, intraday samples, activity sessions) are located by
// heuristic name and column matching.
//
// Extraction streams rows through bounded, deterministic queries rather than
// loading whole tables, since historical snapshots can hold years of
// samples. A table that cannot be read is omitted from the result with a
// warning; only a snapshot with no recognizable wellness table at all fails
// outright (ErrNoTables).
package snapshot

// Package portal parses per-metric delimited exports downloaded from the
// wearable vendor's web portal.
//
// Each export file covers one metric category (calories, steps, sleep, ...)
// with a file-specific header and date format. Files are matched against the
// compiled layout catalog by header inspection, then accumulated into one
// raw field bag per date across all files, so two files touching different
// metrics for the same date combine rather than overwrite.
//
// Failure policy: an unparseable row becomes a line-level warning, an
// unreadable or unrecognized file becomes a file-level warning, and the
// parse as a whole fails only when the merged output is empty (ErrNoData).
package portal

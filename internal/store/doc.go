// Package store provides SQLite-backed durable storage for the journal.
//
// Three tables, all keyed by ISO dates:
//   - activity_days: one row of daily aggregates per calendar day
//   - weight_days: one body-composition reading per day
//   - sample_days: intraday series as opaque JSON, keyed by (kind, day)
//
// # Presence Model
//
// Metric columns are nullable, and NULL round-trips to a nil pointer.
// "Never imported" and "imported as zero" therefore stay distinguishable
// across writes, which the reconciliation rules depend on. Sub-activities
// and sample series are stored as JSON documents the store never inspects.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Multi-row reads order by day ASC; ISO date text sorts chronologically.
package store

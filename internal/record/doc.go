// Package record provides the canonical data shapes for vitalog.
//
// This package contains type definitions only. All other internal packages
// import record; record imports nothing internal. This keeps the canonical
// model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Numeric measurements are pointers: present-with-value or absent.
//     Absence is never encoded as 0 or -1, because zero is a legitimate
//     reading for some fields.
//   - Persisted records are keyed by calendar date (Date), never by a
//     wall-clock instant.
//   - All JSON tags use snake_case.
package record

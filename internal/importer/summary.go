package importer

import (
	"github.com/aweiler/vitalog/internal/reconcile"
)

// Summary is the outcome of one committed import run. It is returned
// to the caller for display and never persisted.
type Summary struct {
	// Added counts records created for dates with nothing stored.
	Added int `json:"added"`

	// Updated counts stored records where at least one field changed.
	Updated int `json:"updated"`

	// Skipped counts records that produced no change: data already
	// stored, weight readings older than the stored one, and records
	// dropped by a per-record merge failure.
	Skipped int `json:"skipped"`

	// SampleDays counts intraday sample days written (full replace).
	SampleDays int `json:"sampleDays"`

	// PurgedSampleDays counts sample days removed by the retention
	// sweep.
	PurgedSampleDays int `json:"purgedSampleDays"`

	// Warnings lists recoverable problems in the order they occurred.
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Summary) count(outcome reconcile.Outcome) {
	switch outcome {
	case reconcile.Added:
		s.Added++
	case reconcile.Updated:
		s.Updated++
	default:
		s.Skipped++
	}
}

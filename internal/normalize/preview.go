package normalize

import (
	"slices"

	"github.com/aweiler/vitalog/internal/record"
)

// Preview summarizes what a confirmed import would touch, without writing
// anything. It exists purely for the confirmation step and is never
// persisted.
type Preview struct {
	Source   string                    `json:"source"`
	Days     []DaySummary              `json:"days,omitempty"`
	Weights  int                       `json:"weights,omitempty"`
	Samples  map[record.SampleKind]int `json:"samples,omitempty"`
	Warnings []string                  `json:"warnings,omitempty"`
}

// DaySummary counts the data carried for one date.
type DaySummary struct {
	Date     record.Date `json:"date"`
	Metrics  int         `json:"metrics"`
	Sessions int         `json:"sessions,omitempty"`
}

// Preview derives the confirmation view for a bundle. Days come out in
// ascending date order, sample counts are per-kind day counts.
func (b *Bundle) Preview() Preview {
	p := Preview{
		Source:   b.Source,
		Weights:  len(b.Weights),
		Samples:  make(map[record.SampleKind]int),
		Warnings: slices.Clone(b.Warnings),
	}
	for _, act := range b.Activities {
		p.Days = append(p.Days, DaySummary{
			Date:     act.Date,
			Metrics:  metricCount(act),
			Sessions: len(act.SubActivities),
		})
	}
	for kind, days := range b.Samples {
		if len(days) > 0 {
			p.Samples[kind] = len(days)
		}
	}
	return p
}

// IsEmpty reports whether the preview describes an import that would write
// nothing at all.
func (p Preview) IsEmpty() bool {
	return len(p.Days) == 0 && p.Weights == 0 && len(p.Samples) == 0
}

// Package reconcile merges normalized incoming records into stored ones.
//
// Daily activity merges field by field: a stored value is kept unless the
// incoming record carries a non-zero value for that field. Intensity
// minutes are the exception, overwritten whenever present, because zero
// intensity minutes is a real reading. Weight merges whole readings by
// recency of their source timestamp. This composition rule lets partial
// imports taken at different times (one covering steps, a later one
// covering sleep) build up a day without wiping each other out.
package reconcile

import (
	"slices"

	"github.com/aweiler/vitalog/internal/record"
)

// Outcome classifies what a merge did to the stored record.
type Outcome int

const (
	Added Outcome = iota
	Updated
	Unchanged
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// MergeActivity resolves an incoming daily record against the stored one.
// A nil existing record means the day is new. Neither input is mutated.
func MergeActivity(existing *record.DailyActivity, incoming record.DailyActivity) (record.DailyActivity, Outcome) {
	if existing == nil {
		return incoming.Clone(), Added
	}

	merged := existing.Clone()
	changed := false

	merged.Steps, changed = mergeNonzero(merged.Steps, incoming.Steps, changed)
	merged.TotalCalories, changed = mergeNonzero(merged.TotalCalories, incoming.TotalCalories, changed)
	merged.ActiveCalories, changed = mergeNonzero(merged.ActiveCalories, incoming.ActiveCalories, changed)
	merged.RestingCalories, changed = mergeNonzero(merged.RestingCalories, incoming.RestingCalories, changed)
	merged.IntensityMinutes, changed = mergeAlways(merged.IntensityMinutes, incoming.IntensityMinutes, changed)
	merged.DistanceKM, changed = mergeNonzero(merged.DistanceKM, incoming.DistanceKM, changed)
	merged.FloorsClimbed, changed = mergeNonzero(merged.FloorsClimbed, incoming.FloorsClimbed, changed)
	merged.RestingHeartRate, changed = mergeNonzero(merged.RestingHeartRate, incoming.RestingHeartRate, changed)
	merged.MaxHeartRate, changed = mergeNonzero(merged.MaxHeartRate, incoming.MaxHeartRate, changed)
	merged.StressLevel, changed = mergeNonzero(merged.StressLevel, incoming.StressLevel, changed)
	merged.EnergyScore, changed = mergeNonzero(merged.EnergyScore, incoming.EnergyScore, changed)
	merged.SleepSeconds, changed = mergeNonzero(merged.SleepSeconds, incoming.SleepSeconds, changed)
	merged.HRVOvernight, changed = mergeNonzero(merged.HRVOvernight, incoming.HRVOvernight, changed)
	merged.HRVWeeklyAvg, changed = mergeNonzero(merged.HRVWeeklyAvg, incoming.HRVWeeklyAvg, changed)

	if len(incoming.SubActivities) > 0 && !slices.Equal(merged.SubActivities, incoming.SubActivities) {
		merged.SubActivities = slices.Clone(incoming.SubActivities)
		changed = true
	}

	if changed {
		return merged, Updated
	}
	return merged, Unchanged
}

// MergeWeight resolves an incoming weight reading against the stored one.
// A reading is atomic: the newer source timestamp replaces the whole
// record, an older one is skipped.
func MergeWeight(existing *record.Weight, incoming record.Weight) (record.Weight, Outcome) {
	if existing == nil {
		return incoming.Clone(), Added
	}
	if incoming.SourceTime.Before(existing.SourceTime) {
		return existing.Clone(), Skipped
	}
	if weightsEqual(*existing, incoming) {
		return existing.Clone(), Unchanged
	}
	return incoming.Clone(), Updated
}

// mergeNonzero keeps the stored value unless the incoming one is present
// and non-zero. It reports whether anything changed, folded into the
// running flag so call sites stay flat.
func mergeNonzero[T int64 | float64](existing, incoming *T, changed bool) (*T, bool) {
	if incoming == nil || *incoming == 0 {
		return existing, changed
	}
	if existing != nil && *existing == *incoming {
		return existing, changed
	}
	v := *incoming
	return &v, true
}

// mergeAlways overwrites whenever the incoming value is present, zero
// included.
func mergeAlways[T int64 | float64](existing, incoming *T, changed bool) (*T, bool) {
	if incoming == nil {
		return existing, changed
	}
	if existing != nil && *existing == *incoming {
		return existing, changed
	}
	v := *incoming
	return &v, true
}

func weightsEqual(a, b record.Weight) bool {
	return a.Date == b.Date &&
		a.WeightKG == b.WeightKG &&
		eqFloat(a.BodyFatPct, b.BodyFatPct) &&
		eqFloat(a.BoneMassKG, b.BoneMassKG) &&
		eqInt(a.BasalMetabolicRate, b.BasalMetabolicRate) &&
		a.SourceTime.Equal(b.SourceTime)
}

func eqInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

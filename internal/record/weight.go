package record

import "time"

// Weight is a per-day weight reading with optional body composition.
// SourceTime is the instant the producing device or app recorded the
// reading; the merge rule for weights compares it (recency-wins), unlike
// the per-field rules used for DailyActivity.
type Weight struct {
	Date               Date      `json:"date"`
	WeightKG           float64   `json:"weight_kg"`
	BodyFatPct         *float64  `json:"body_fat_pct,omitempty"`
	BoneMassKG         *float64  `json:"bone_mass_kg,omitempty"`
	BasalMetabolicRate *int64    `json:"basal_metabolic_rate,omitempty"` // kcal/day
	SourceTime         time.Time `json:"source_time"`
}

// Clone returns a deep copy of the reading.
func (w Weight) Clone() Weight {
	out := w
	out.BodyFatPct = cloneFloat64(w.BodyFatPct)
	out.BoneMassKG = cloneFloat64(w.BoneMassKG)
	out.BasalMetabolicRate = cloneInt64(w.BasalMetabolicRate)
	return out
}

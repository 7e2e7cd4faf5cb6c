package record

// DailyActivity is the canonical per-day aggregate every source is
// normalized into and the shape the reconciliation rules operate on.
// At most one exists per date. Nil pointer fields mean "no measurement",
// which merge logic treats differently from a measured zero.
type DailyActivity struct {
	Date             Date          `json:"date"`
	Steps            *int64        `json:"steps,omitempty"`
	TotalCalories    *int64        `json:"total_calories,omitempty"`    // kcal
	ActiveCalories   *int64        `json:"active_calories,omitempty"`   // kcal
	RestingCalories  *int64        `json:"resting_calories,omitempty"`  // kcal
	IntensityMinutes *int64        `json:"intensity_minutes,omitempty"` // zero is a real reading here
	DistanceKM       *float64      `json:"distance_km,omitempty"`
	FloorsClimbed    *int64        `json:"floors_climbed,omitempty"`
	RestingHeartRate *int64        `json:"resting_heart_rate,omitempty"` // bpm
	MaxHeartRate     *int64        `json:"max_heart_rate,omitempty"`     // bpm
	StressLevel      *int64        `json:"stress_level,omitempty"`       // 0-100
	EnergyScore      *int64        `json:"energy_score,omitempty"`       // 0-100
	SleepSeconds     *int64        `json:"sleep_seconds,omitempty"`
	HRVOvernight     *float64      `json:"hrv_overnight,omitempty"`  // ms
	HRVWeeklyAvg     *float64      `json:"hrv_weekly_avg,omitempty"` // ms
	SubActivities    []SubActivity `json:"sub_activities,omitempty"`
}

// SubActivity is an opaque activity session attached to a day. The pipeline
// carries the list through merges as a unit and never reconciles individual
// sessions field by field.
type SubActivity struct {
	Kind            string `json:"kind"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
	Calories        int64  `json:"calories,omitempty"` // kcal
}

// Clone returns a deep copy so callers can mutate the result without
// aliasing the receiver's pointer fields.
func (a DailyActivity) Clone() DailyActivity {
	out := a
	out.Steps = cloneInt64(a.Steps)
	out.TotalCalories = cloneInt64(a.TotalCalories)
	out.ActiveCalories = cloneInt64(a.ActiveCalories)
	out.RestingCalories = cloneInt64(a.RestingCalories)
	out.IntensityMinutes = cloneInt64(a.IntensityMinutes)
	out.DistanceKM = cloneFloat64(a.DistanceKM)
	out.FloorsClimbed = cloneInt64(a.FloorsClimbed)
	out.RestingHeartRate = cloneInt64(a.RestingHeartRate)
	out.MaxHeartRate = cloneInt64(a.MaxHeartRate)
	out.StressLevel = cloneInt64(a.StressLevel)
	out.EnergyScore = cloneInt64(a.EnergyScore)
	out.SleepSeconds = cloneInt64(a.SleepSeconds)
	out.HRVOvernight = cloneFloat64(a.HRVOvernight)
	out.HRVWeeklyAvg = cloneFloat64(a.HRVWeeklyAvg)
	if a.SubActivities != nil {
		out.SubActivities = make([]SubActivity, len(a.SubActivities))
		copy(out.SubActivities, a.SubActivities)
	}
	return out
}

// Int64 returns a pointer to v, for building records with present fields.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v, for building records with present fields.
func Float64(v float64) *float64 { return &v }

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat64(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

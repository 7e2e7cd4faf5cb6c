package portal

import (
	"math"

	"github.com/aweiler/vitalog/internal/catalog"
	"github.com/aweiler/vitalog/internal/record"
)

// DayFields is the raw per-day field bag accumulated from portal exports.
// Values are in source units (sleep in hours, distance in meters); the
// normalizer converts them to canonical units. Nil means the metric never
// appeared in any parsed file for that date.
type DayFields struct {
	Date             record.Date
	Steps            *int64
	TotalCalories    *int64
	ActiveCalories   *int64
	RestingCalories  *int64
	IntensityMinutes *int64
	DistanceMeters   *float64
	FloorsClimbed    *int64
	RestingHeartRate *int64
	MaxHeartRate     *int64
	StressLevel      *int64
	EnergyScore      *int64
	SleepHours       *float64
	HRVOvernightMS   *float64
	HRVWeeklyAvgMS   *float64
}

// set stores a parsed column value in the slot named by the catalog field.
// Integer slots round to the nearest whole number since some portal exports
// write counters with a trailing ".0".
func (d *DayFields) set(f catalog.Field, v float64) {
	switch f {
	case catalog.FieldSteps:
		d.Steps = record.Int64(roundInt(v))
	case catalog.FieldTotalCalories:
		d.TotalCalories = record.Int64(roundInt(v))
	case catalog.FieldActiveCalories:
		d.ActiveCalories = record.Int64(roundInt(v))
	case catalog.FieldRestingCalories:
		d.RestingCalories = record.Int64(roundInt(v))
	case catalog.FieldIntensityMinutes:
		d.IntensityMinutes = record.Int64(roundInt(v))
	case catalog.FieldDistanceMeters:
		d.DistanceMeters = record.Float64(v)
	case catalog.FieldFloorsClimbed:
		d.FloorsClimbed = record.Int64(roundInt(v))
	case catalog.FieldRestingHeartRate:
		d.RestingHeartRate = record.Int64(roundInt(v))
	case catalog.FieldMaxHeartRate:
		d.MaxHeartRate = record.Int64(roundInt(v))
	case catalog.FieldStressLevel:
		d.StressLevel = record.Int64(roundInt(v))
	case catalog.FieldEnergyScore:
		d.EnergyScore = record.Int64(roundInt(v))
	case catalog.FieldSleepHours:
		d.SleepHours = record.Float64(v)
	case catalog.FieldHRVOvernight:
		d.HRVOvernightMS = record.Float64(v)
	case catalog.FieldHRVWeeklyAvg:
		d.HRVWeeklyAvgMS = record.Float64(v)
	}
}

func roundInt(v float64) int64 {
	return int64(math.Round(v))
}

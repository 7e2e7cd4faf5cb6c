package normalize

import (
	"math"
	"slices"

	"github.com/aweiler/vitalog/internal/portal"
	"github.com/aweiler/vitalog/internal/record"
	"github.com/aweiler/vitalog/internal/snapshot"
)

// Source names for preview rendering and log lines.
const (
	SourcePortal   = "portal"
	SourceSnapshot = "snapshot"
)

// Bundle is a fully normalized import payload, ready for reconciliation.
// Activities and Weights are sorted ascending by date so that merge order,
// and with it the summary counts, is deterministic.
type Bundle struct {
	Source     string
	Activities []record.DailyActivity
	Weights    []record.Weight
	Samples    map[record.SampleKind]map[record.Date]record.SampleSeries
	Warnings   []string
}

func newBundle(source string, warnings []string) *Bundle {
	return &Bundle{
		Source:   source,
		Samples:  make(map[record.SampleKind]map[record.Date]record.SampleSeries),
		Warnings: slices.Clone(warnings),
	}
}

// SampleDates lists the dates carrying samples of one kind, ascending.
func (b *Bundle) SampleDates(kind record.SampleKind) []record.Date {
	days := b.Samples[kind]
	dates := make([]record.Date, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, record.Date.Compare)
	return dates
}

// FromPortal converts accumulated portal field bags into canonical records.
func FromPortal(res *portal.Result) *Bundle {
	b := newBundle(SourcePortal, res.Warnings)
	for _, date := range res.Dates() {
		day := res.Days[date]
		act := record.DailyActivity{
			Date:             date,
			Steps:            dropZeroInt(day.Steps),
			TotalCalories:    dropZeroInt(day.TotalCalories),
			ActiveCalories:   dropZeroInt(day.ActiveCalories),
			RestingCalories:  dropZeroInt(day.RestingCalories),
			IntensityMinutes: keepInt(day.IntensityMinutes),
			DistanceKM:       metersToKM(day.DistanceMeters),
			FloorsClimbed:    dropZeroInt(day.FloorsClimbed),
			RestingHeartRate: dropZeroInt(day.RestingHeartRate),
			MaxHeartRate:     dropZeroInt(day.MaxHeartRate),
			StressLevel:      dropZeroInt(day.StressLevel),
			EnergyScore:      dropZeroInt(day.EnergyScore),
			SleepSeconds:     sleepHoursToSeconds(day.SleepHours),
			HRVOvernight:     dropZeroFloat(day.HRVOvernightMS),
			HRVWeeklyAvg:     dropZeroFloat(day.HRVWeeklyAvgMS),
		}
		if isEmpty(act) {
			continue
		}
		b.Activities = append(b.Activities, act)
	}
	return b
}

// FromSnapshot converts an extracted snapshot into canonical records.
func FromSnapshot(snap *snapshot.Snapshot) *Bundle {
	b := newBundle(SourceSnapshot, snap.Warnings)

	for _, date := range snap.Dates() {
		day := snap.Days[date]
		act := record.DailyActivity{
			Date:             date,
			Steps:            dropZeroInt(day.Steps),
			TotalCalories:    dropZeroInt(day.TotalCalories),
			ActiveCalories:   dropZeroInt(day.ActiveCalories),
			RestingCalories:  dropZeroInt(day.RestingCalories),
			IntensityMinutes: keepInt(day.IntensityMinutes),
			DistanceKM:       metersToKM(day.DistanceMeters),
			FloorsClimbed:    dropZeroInt(day.FloorsClimbed),
			RestingHeartRate: dropZeroInt(day.RestingHeartRate),
			MaxHeartRate:     dropZeroInt(day.MaxHeartRate),
			StressLevel:      dropZeroInt(day.StressLevel),
			EnergyScore:      dropZeroInt(day.EnergyScore),
			SleepSeconds:     dropZeroInt(day.SleepSeconds),
			HRVOvernight:     dropZeroFloat(day.HRVOvernightMS),
			HRVWeeklyAvg:     dropZeroFloat(day.HRVWeeklyAvgMS),
			SubActivities:    slices.Clone(day.Activities),
		}
		if isEmpty(act) {
			continue
		}
		b.Activities = append(b.Activities, act)
	}

	readings := slices.Clone(snap.Weights)
	slices.SortFunc(readings, func(a, b snapshot.WeightReading) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return a.SourceTime.Compare(b.SourceTime)
	})
	for _, r := range readings {
		b.Weights = append(b.Weights, record.Weight{
			Date:               r.Date,
			WeightKG:           r.WeightKG,
			BodyFatPct:         fatToPct(r.BodyFat),
			BoneMassKG:         boneToKG(r.BoneMass),
			BasalMetabolicRate: dropZeroInt(r.BMR),
			SourceTime:         r.SourceTime,
		})
	}

	for _, kind := range record.SampleKinds {
		for _, date := range snap.SampleDates(kind) {
			series := snap.Series(kind, date)
			if series.Len() == 0 {
				continue
			}
			if b.Samples[kind] == nil {
				b.Samples[kind] = make(map[record.Date]record.SampleSeries)
			}
			b.Samples[kind][date] = series
		}
	}
	return b
}

func dropZeroInt(v *int64) *int64 {
	if v == nil || *v == 0 {
		return nil
	}
	u := *v
	return &u
}

func dropZeroFloat(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	u := *v
	return &u
}

// keepInt clones without the zero-drop, for counters where zero is a
// legitimate reading.
func keepInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	u := *v
	return &u
}

func metersToKM(m *float64) *float64 {
	if m == nil || *m == 0 {
		return nil
	}
	km := *m / 1000
	return &km
}

func sleepHoursToSeconds(hours *float64) *int64 {
	if hours == nil || *hours == 0 {
		return nil
	}
	s := int64(math.Round(*hours * 3600))
	return &s
}

// fatToPct normalizes a body-fat reading to percent. Producers disagree on
// the unit, so anything at or below 1 is read as a fraction.
func fatToPct(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	pct := *v
	if pct <= 1 {
		pct *= 100
	}
	return &pct
}

// boneToKG normalizes bone mass to kilograms. A human skeleton is a few
// kilograms, so triple digits can only be grams.
func boneToKG(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	kg := *v
	if kg >= 100 {
		kg /= 1000
	}
	return &kg
}

func isEmpty(a record.DailyActivity) bool {
	return metricCount(a) == 0 && len(a.SubActivities) == 0
}

// metricCount reports how many canonical metric fields carry a value.
func metricCount(a record.DailyActivity) int {
	present := []bool{
		a.Steps != nil,
		a.TotalCalories != nil,
		a.ActiveCalories != nil,
		a.RestingCalories != nil,
		a.IntensityMinutes != nil,
		a.DistanceKM != nil,
		a.FloorsClimbed != nil,
		a.RestingHeartRate != nil,
		a.MaxHeartRate != nil,
		a.StressLevel != nil,
		a.EnergyScore != nil,
		a.SleepSeconds != nil,
		a.HRVOvernight != nil,
		a.HRVWeeklyAvg != nil,
	}
	n := 0
	for _, p := range present {
		if p {
			n++
		}
	}
	return n
}

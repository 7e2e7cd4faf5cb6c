package snapshot

import (
	"fmt"
	"slices"
	"time"

	"github.com/aweiler/vitalog/internal/record"
)

// DayAggregate is the raw per-day row read from the producer's daily
// summary table, in source units (sleep in seconds, distance in meters).
// Nil fields were absent or NULL in the snapshot.
type DayAggregate struct {
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
	SleepSeconds     *int64
	HRVOvernightMS   *float64
	HRVWeeklyAvgMS   *float64
	Activities       []record.SubActivity
}

// WeightReading is a raw body-composition row. BodyFat may be a percentage
// or a fraction and BoneMass kilograms or grams, depending on the producer;
// the normalizer resolves the units.
type WeightReading struct {
	Date       record.Date
	WeightKG   float64
	BodyFat    *float64
	BoneMass   *float64
	BMR        *int64
	SourceTime time.Time
}

// Snapshot is everything extracted from one backup file.
type Snapshot struct {
	Days        map[record.Date]*DayAggregate
	Weights     []WeightReading
	HeartRate   map[record.Date][]record.HeartRateSample
	SleepStages map[record.Date][]record.SleepStageSample
	StepBuckets map[record.Date][]record.StepSample
	Warnings    []string
}

// NewSnapshot returns an empty snapshot with initialized maps.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Days:        make(map[record.Date]*DayAggregate),
		HeartRate:   make(map[record.Date][]record.HeartRateSample),
		SleepStages: make(map[record.Date][]record.SleepStageSample),
		StepBuckets: make(map[record.Date][]record.StepSample),
	}
}

// IsEmpty reports whether extraction yielded no usable data of any category.
func (s *Snapshot) IsEmpty() bool {
	return len(s.Days) == 0 &&
		len(s.Weights) == 0 &&
		len(s.HeartRate) == 0 &&
		len(s.SleepStages) == 0 &&
		len(s.StepBuckets) == 0
}

// Dates returns the aggregate dates in ascending order.
func (s *Snapshot) Dates() []record.Date {
	dates := make([]record.Date, 0, len(s.Days))
	for d := range s.Days {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, record.Date.Compare)
	return dates
}

// SampleDates returns the dates holding samples of the given kind in
// ascending order.
func (s *Snapshot) SampleDates(kind record.SampleKind) []record.Date {
	var dates []record.Date
	switch kind {
	case record.SampleHeartRate:
		for d := range s.HeartRate {
			dates = append(dates, d)
		}
	case record.SampleSleepStage:
		for d := range s.SleepStages {
			dates = append(dates, d)
		}
	case record.SampleSteps:
		for d := range s.StepBuckets {
			dates = append(dates, d)
		}
	}
	slices.SortFunc(dates, record.Date.Compare)
	return dates
}

// Series returns one day's samples of the given kind as a replaceable series.
func (s *Snapshot) Series(kind record.SampleKind, date record.Date) record.SampleSeries {
	switch kind {
	case record.SampleHeartRate:
		return record.HeartRateSeries(s.HeartRate[date])
	case record.SampleSleepStage:
		return record.SleepStageSeries(s.SleepStages[date])
	case record.SampleSteps:
		return record.StepSeries(s.StepBuckets[date])
	}
	return record.SampleSeries{}
}

// day returns the aggregate for a date, creating it when absent.
func (s *Snapshot) day(date record.Date) *DayAggregate {
	agg, ok := s.Days[date]
	if !ok {
		agg = &DayAggregate{Date: date}
		s.Days[date] = agg
	}
	return agg
}

func (s *Snapshot) warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

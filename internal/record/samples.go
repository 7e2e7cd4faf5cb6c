package record

import "time"

// SampleKind names one of the intraday sample categories. Each kind is
// stored independently, keyed by (kind, date), and purged independently by
// the retention sweep.
type SampleKind string

const (
	SampleHeartRate  SampleKind = "heart_rate"
	SampleSleepStage SampleKind = "sleep_stage"
	SampleSteps      SampleKind = "steps"
)

// SampleKinds lists every kind in the order retention sweeps visit them.
var SampleKinds = []SampleKind{SampleHeartRate, SampleSleepStage, SampleSteps}

// Valid reports whether k is a known sample kind.
func (k SampleKind) Valid() bool {
	switch k {
	case SampleHeartRate, SampleSleepStage, SampleSteps:
		return true
	}
	return false
}

// HeartRateSample is one timestamped heart-rate reading.
type HeartRateSample struct {
	At  time.Time `json:"at"`
	BPM int64     `json:"bpm"`
}

// SleepStageSample is one sleep-stage interval.
type SleepStageSample struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Stage string    `json:"stage"` // producer vocabulary, e.g. "deep", "light", "rem", "awake"
}

// StepSample is one step count bucket, typically covering a few minutes.
type StepSample struct {
	At    time.Time `json:"at"`
	Steps int64     `json:"steps"`
}

// SampleSeries holds one day's readings for exactly one kind. It is a
// tagged union: the slice matching Kind() is set, the others are nil.
// A day's series is always replaced whole, never merged.
type SampleSeries struct {
	HeartRate  []HeartRateSample  `json:"heart_rate,omitempty"`
	SleepStage []SleepStageSample `json:"sleep_stage,omitempty"`
	Steps      []StepSample       `json:"steps,omitempty"`
}

// HeartRateSeries wraps heart-rate readings as a SampleSeries.
func HeartRateSeries(samples []HeartRateSample) SampleSeries {
	return SampleSeries{HeartRate: samples}
}

// SleepStageSeries wraps sleep-stage intervals as a SampleSeries.
func SleepStageSeries(samples []SleepStageSample) SampleSeries {
	return SampleSeries{SleepStage: samples}
}

// StepSeries wraps step buckets as a SampleSeries.
func StepSeries(samples []StepSample) SampleSeries {
	return SampleSeries{Steps: samples}
}

// Kind returns the sample kind the series carries, or "" for an empty series.
func (s SampleSeries) Kind() SampleKind {
	switch {
	case s.HeartRate != nil:
		return SampleHeartRate
	case s.SleepStage != nil:
		return SampleSleepStage
	case s.Steps != nil:
		return SampleSteps
	}
	return ""
}

// Len returns the number of readings in the series.
func (s SampleSeries) Len() int {
	return len(s.HeartRate) + len(s.SleepStage) + len(s.Steps)
}

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/aweiler/vitalog/internal/importer"
	"github.com/aweiler/vitalog/internal/normalize"
	"github.com/aweiler/vitalog/internal/record"
)

// ImportReport is the JSON payload for an import run.
type ImportReport struct {
	Preview normalize.Preview `json:"preview"`
	Summary *importer.Summary `json:"summary,omitempty"` // nil until committed
	DryRun  bool              `json:"dry_run,omitempty"`
	Aborted bool              `json:"aborted,omitempty"`
}

// PurgeReport is the JSON payload for a purge run.
type PurgeReport struct {
	Cutoff record.Date                 `json:"cutoff"`
	Purged map[record.SampleKind]int64 `json:"purged_days"`
	Total  int64                       `json:"total"`
}

// SampleDayReport is the JSON payload for show samples.
type SampleDayReport struct {
	Kind   record.SampleKind   `json:"kind"`
	Date   record.Date         `json:"date"`
	Count  int                 `json:"count"`
	Series record.SampleSeries `json:"series"`
}

// renderPreview writes the confirmation view of a pending import.
func renderPreview(w io.Writer, p normalize.Preview) {
	fmt.Fprintf(w, "Import preview (source: %s)\n", p.Source)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Days ===")
	if len(p.Days) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, day := range p.Days {
		fmt.Fprintf(w, "  %s  metrics=%d", day.Date, day.Metrics)
		if day.Sessions > 0 {
			fmt.Fprintf(w, " sessions=%d", day.Sessions)
		}
		fmt.Fprintln(w)
	}

	if p.Weights > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Weights ===")
		fmt.Fprintf(w, "  readings: %d\n", p.Weights)
	}

	if len(p.Samples) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Samples ===")
		for _, kind := range record.SampleKinds {
			if n := p.Samples[kind]; n > 0 {
				fmt.Fprintf(w, "  %s: %d day(s)\n", kind, n)
			}
		}
	}

	renderWarnings(w, p.Warnings)
}

// renderSummary writes the final counts of a committed import.
func renderSummary(w io.Writer, sum importer.Summary) {
	fmt.Fprintln(w, "✓ Import complete")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "  Added:        %d\n", sum.Added)
	fmt.Fprintf(w, "  Updated:      %d\n", sum.Updated)
	fmt.Fprintf(w, "  Skipped:      %d\n", sum.Skipped)
	if sum.SampleDays > 0 || sum.PurgedSampleDays > 0 {
		fmt.Fprintf(w, "  Sample days:  %d\n", sum.SampleDays)
		fmt.Fprintf(w, "  Purged days:  %d\n", sum.PurgedSampleDays)
	}
	renderWarnings(w, sum.Warnings)
}

func renderWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Warnings ===")
	for _, warn := range warnings {
		fmt.Fprintf(w, "  - %s\n", warn)
	}
}

// renderDay writes the stored activity record for one day. Absent fields
// are omitted so a measured zero and a missing measurement read apart.
func renderDay(w io.Writer, act record.DailyActivity) {
	fmt.Fprintf(w, "Activity for %s\n", act.Date)
	fmt.Fprintln(w)

	p := fieldPrinter{w: w}
	p.intField("Steps", act.Steps)
	p.intField("Total calories", act.TotalCalories)
	p.intField("Active calories", act.ActiveCalories)
	p.intField("Resting calories", act.RestingCalories)
	p.intField("Intensity minutes", act.IntensityMinutes)
	p.floatField("Distance (km)", act.DistanceKM)
	p.intField("Floors climbed", act.FloorsClimbed)
	p.intField("Resting heart rate", act.RestingHeartRate)
	p.intField("Max heart rate", act.MaxHeartRate)
	p.intField("Stress level", act.StressLevel)
	p.intField("Energy score", act.EnergyScore)
	p.durationField("Sleep", act.SleepSeconds)
	p.floatField("HRV overnight (ms)", act.HRVOvernight)
	p.floatField("HRV weekly avg (ms)", act.HRVWeeklyAvg)
	if p.printed == 0 {
		fmt.Fprintln(w, "  (no measurements)")
	}

	if len(act.SubActivities) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Sessions ===")
		for _, sub := range act.SubActivities {
			fmt.Fprintf(w, "  %s  %s  %d kcal\n", sub.Kind, formatDuration(sub.DurationSeconds), sub.Calories)
		}
	}
}

// renderWeightReading writes the stored body-composition reading for one day.
func renderWeightReading(w io.Writer, reading record.Weight) {
	fmt.Fprintf(w, "Weight for %s\n", reading.Date)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-20s %.1f\n", "Weight (kg):", reading.WeightKG)

	p := fieldPrinter{w: w}
	p.floatField("Body fat (%)", reading.BodyFatPct)
	p.floatField("Bone mass (kg)", reading.BoneMassKG)
	p.intField("BMR (kcal/day)", reading.BasalMetabolicRate)

	fmt.Fprintf(w, "  %-20s %s\n", "Recorded:", reading.SourceTime.UTC().Format(time.RFC3339))
}

// renderSampleDay writes one stored intraday series.
func renderSampleDay(w io.Writer, kind record.SampleKind, date record.Date, series record.SampleSeries) {
	fmt.Fprintf(w, "%s samples for %s (%d reading(s))\n", kind, date, series.Len())
	fmt.Fprintln(w)

	switch kind {
	case record.SampleHeartRate:
		for _, s := range series.HeartRate {
			fmt.Fprintf(w, "  %s  %d bpm\n", s.At.UTC().Format("15:04:05"), s.BPM)
		}
	case record.SampleSleepStage:
		for _, s := range series.SleepStage {
			fmt.Fprintf(w, "  %s - %s  %s\n", s.Start.UTC().Format("15:04:05"), s.End.UTC().Format("15:04:05"), s.Stage)
		}
	case record.SampleSteps:
		for _, s := range series.Steps {
			fmt.Fprintf(w, "  %s  %d steps\n", s.At.UTC().Format("15:04:05"), s.Steps)
		}
	}
}

// fieldPrinter writes aligned "label: value" lines, skipping absent fields
// and counting what it printed.
type fieldPrinter struct {
	w       io.Writer
	printed int
}

func (p *fieldPrinter) intField(label string, v *int64) {
	if v == nil {
		return
	}
	fmt.Fprintf(p.w, "  %-20s %d\n", label+":", *v)
	p.printed++
}

func (p *fieldPrinter) floatField(label string, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(p.w, "  %-20s %.2f\n", label+":", *v)
	p.printed++
}

func (p *fieldPrinter) durationField(label string, secs *int64) {
	if secs == nil {
		return
	}
	fmt.Fprintf(p.w, "  %-20s %s\n", label+":", formatDuration(*secs))
	p.printed++
}

func formatDuration(secs int64) string {
	return (time.Duration(secs) * time.Second).String()
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aweiler/vitalog/internal/record"
)

// UpsertActivity writes the full aggregate row for a day, inserting or
// overwriting by date. Merge semantics are the caller's job; this is a
// plain last-write so a resolved record lands exactly as given, NULLs
// included.
func (s *Store) UpsertActivity(ctx context.Context, act record.DailyActivity) error {
	subsJSON, err := marshalSubActivities(act.SubActivities)
	if err != nil {
		return fmt.Errorf("upsert activity: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO activity_days
		(day, steps, total_calories, active_calories, resting_calories,
		 intensity_minutes, distance_km, floors_climbed, resting_heart_rate,
		 max_heart_rate, stress_level, energy_score, sleep_seconds,
		 hrv_overnight_ms, hrv_weekly_avg_ms, sub_activities)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			steps = excluded.steps,
			total_calories = excluded.total_calories,
			active_calories = excluded.active_calories,
			resting_calories = excluded.resting_calories,
			intensity_minutes = excluded.intensity_minutes,
			distance_km = excluded.distance_km,
			floors_climbed = excluded.floors_climbed,
			resting_heart_rate = excluded.resting_heart_rate,
			max_heart_rate = excluded.max_heart_rate,
			stress_level = excluded.stress_level,
			energy_score = excluded.energy_score,
			sleep_seconds = excluded.sleep_seconds,
			hrv_overnight_ms = excluded.hrv_overnight_ms,
			hrv_weekly_avg_ms = excluded.hrv_weekly_avg_ms,
			sub_activities = excluded.sub_activities
	`,
		act.Date.String(),
		act.Steps,
		act.TotalCalories,
		act.ActiveCalories,
		act.RestingCalories,
		act.IntensityMinutes,
		act.DistanceKM,
		act.FloorsClimbed,
		act.RestingHeartRate,
		act.MaxHeartRate,
		act.StressLevel,
		act.EnergyScore,
		act.SleepSeconds,
		act.HRVOvernight,
		act.HRVWeeklyAvg,
		subsJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert activity: %w", err)
	}

	return nil
}

// UpsertWeight writes the body-composition reading for a day, inserting or
// overwriting by date. The source timestamp is stored in RFC 3339 UTC so
// recency comparisons survive the round trip.
func (s *Store) UpsertWeight(ctx context.Context, w record.Weight) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weight_days
		(day, weight_kg, body_fat_pct, bone_mass_kg, bmr_kcal, source_time)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			weight_kg = excluded.weight_kg,
			body_fat_pct = excluded.body_fat_pct,
			bone_mass_kg = excluded.bone_mass_kg,
			bmr_kcal = excluded.bmr_kcal,
			source_time = excluded.source_time
	`,
		w.Date.String(),
		w.WeightKG,
		w.BodyFatPct,
		w.BoneMassKG,
		w.BasalMetabolicRate,
		w.SourceTime.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert weight: %w", err)
	}

	return nil
}

// ReplaceSamples stores the full series for one (kind, day), replacing
// whatever was there. Intraday data comes from a single authoritative
// source, so series are never merged, only swapped whole.
func (s *Store) ReplaceSamples(ctx context.Context, kind record.SampleKind, date record.Date, series record.SampleSeries) error {
	if !kind.Valid() {
		return fmt.Errorf("replace samples: unknown kind %q", kind)
	}

	data, err := marshalSeries(series)
	if err != nil {
		return fmt.Errorf("replace samples: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sample_days (kind, day, series)
		VALUES (?, ?, ?)
		ON CONFLICT(kind, day) DO UPDATE SET series = excluded.series
	`,
		string(kind),
		date.String(),
		data,
	)
	if err != nil {
		return fmt.Errorf("replace samples: %w", err)
	}

	return nil
}

// DeleteSamplesBefore purges all series of one kind dated strictly before
// the cutoff and reports how many days were removed. Running it twice with
// the same cutoff purges nothing the second time.
func (s *Store) DeleteSamplesBefore(ctx context.Context, kind record.SampleKind, cutoff record.Date) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sample_days
		WHERE kind = ? AND day < ?
	`, string(kind), cutoff.String())
	if err != nil {
		return 0, fmt.Errorf("purge samples: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge samples: rows affected: %w", err)
	}

	return n, nil
}

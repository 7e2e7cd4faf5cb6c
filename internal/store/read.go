package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aweiler/vitalog/internal/record"
)

// GetActivityByDate loads the stored aggregate record for one day.
// Returns nil with no error when the day has never been stored, so merge
// call sites can treat "no row" as "create".
func (s *Store) GetActivityByDate(ctx context.Context, date record.Date) (*record.DailyActivity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT day, steps, total_calories, active_calories, resting_calories,
		       intensity_minutes, distance_km, floors_climbed, resting_heart_rate,
		       max_heart_rate, stress_level, energy_score, sleep_seconds,
		       hrv_overnight_ms, hrv_weekly_avg_ms, sub_activities
		FROM activity_days
		WHERE day = ?
	`, date.String())

	act, err := scanActivityRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read activity day: %w", err)
	}
	return &act, nil
}

// GetWeightByDate loads the stored body-composition reading for one day.
// Returns nil with no error when no reading exists for the date.
func (s *Store) GetWeightByDate(ctx context.Context, date record.Date) (*record.Weight, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT day, weight_kg, body_fat_pct, bone_mass_kg, bmr_kcal, source_time
		FROM weight_days
		WHERE day = ?
	`, date.String())

	w, err := scanWeightRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read weight day: %w", err)
	}
	return &w, nil
}

// SampleDates returns every date that stores a series of the given kind,
// in ascending order. Returns an empty slice (not nil) when none exist.
func (s *Store) SampleDates(ctx context.Context, kind record.SampleKind) ([]record.Date, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day FROM sample_days
		WHERE kind = ?
		ORDER BY day ASC
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query sample dates: %w", err)
	}
	defer rows.Close()

	dates := []record.Date{}
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan sample date: %w", err)
		}
		date, err := record.ParseDate(day)
		if err != nil {
			return nil, fmt.Errorf("scan sample date: %w", err)
		}
		dates = append(dates, date)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sample dates: %w", err)
	}

	return dates, nil
}

// GetSampleDay loads the stored series for one (kind, day). The boolean
// reports whether a series exists for that date.
func (s *Store) GetSampleDay(ctx context.Context, kind record.SampleKind, date record.Date) (record.SampleSeries, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT series FROM sample_days
		WHERE kind = ? AND day = ?
	`, string(kind), date.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return record.SampleSeries{}, false, nil
	}
	if err != nil {
		return record.SampleSeries{}, false, fmt.Errorf("read sample day: %w", err)
	}

	series, err := unmarshalSeries(data)
	if err != nil {
		return record.SampleSeries{}, false, fmt.Errorf("read sample day: %w", err)
	}
	return series, true, nil
}

// scanActivityRow scans a single activity_days row into a DailyActivity.
func scanActivityRow(row *sql.Row) (record.DailyActivity, error) {
	var (
		day                                    string
		steps, totalCal, activeCal, restingCal sql.NullInt64
		intensity, floors, restingHR, maxHR    sql.NullInt64
		stress, energy, sleep                  sql.NullInt64
		distance, hrvOvernight, hrvWeekly      sql.NullFloat64
		subsJSON                               string
	)

	err := row.Scan(
		&day, &steps, &totalCal, &activeCal, &restingCal,
		&intensity, &distance, &floors, &restingHR,
		&maxHR, &stress, &energy, &sleep,
		&hrvOvernight, &hrvWeekly, &subsJSON,
	)
	if err != nil {
		return record.DailyActivity{}, err
	}

	date, err := record.ParseDate(day)
	if err != nil {
		return record.DailyActivity{}, fmt.Errorf("scan activity day: %w", err)
	}

	subs, err := unmarshalSubActivities(subsJSON)
	if err != nil {
		return record.DailyActivity{}, err
	}

	return record.DailyActivity{
		Date:             date,
		Steps:            nullInt(steps),
		TotalCalories:    nullInt(totalCal),
		ActiveCalories:   nullInt(activeCal),
		RestingCalories:  nullInt(restingCal),
		IntensityMinutes: nullInt(intensity),
		DistanceKM:       nullFloat(distance),
		FloorsClimbed:    nullInt(floors),
		RestingHeartRate: nullInt(restingHR),
		MaxHeartRate:     nullInt(maxHR),
		StressLevel:      nullInt(stress),
		EnergyScore:      nullInt(energy),
		SleepSeconds:     nullInt(sleep),
		HRVOvernight:     nullFloat(hrvOvernight),
		HRVWeeklyAvg:     nullFloat(hrvWeekly),
		SubActivities:    subs,
	}, nil
}

// scanWeightRow scans a single weight_days row into a Weight.
func scanWeightRow(row *sql.Row) (record.Weight, error) {
	var (
		day, sourceTime string
		weightKG        float64
		fat, bone       sql.NullFloat64
		bmr             sql.NullInt64
	)

	if err := row.Scan(&day, &weightKG, &fat, &bone, &bmr, &sourceTime); err != nil {
		return record.Weight{}, err
	}

	date, err := record.ParseDate(day)
	if err != nil {
		return record.Weight{}, fmt.Errorf("scan weight day: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, sourceTime)
	if err != nil {
		return record.Weight{}, fmt.Errorf("scan weight source time: %w", err)
	}

	return record.Weight{
		Date:               date,
		WeightKG:           weightKG,
		BodyFatPct:         nullFloat(fat),
		BoneMassKG:         nullFloat(bone),
		BasalMetabolicRate: nullInt(bmr),
		SourceTime:         ts.UTC(),
	}, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	u := v.Int64
	return &u
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	u := v.Float64
	return &u
}
